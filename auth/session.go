// Package auth is the session slice: it acquires, persists and invalidates
// the API tokens and holds the signed-in user's records.
//
// The session is anonymous until a login succeeds or, for tokens restored
// from storage, until the first profile fetch succeeds. It is authenticated
// only while an access token is held. Logout always clears the local session
// even when the server cannot be told.
package auth

import (
	"context"

	"github.com/jrsteele09/go-budget-client/api"
	apperrors "github.com/jrsteele09/go-budget-client/internal/errors"
	"github.com/jrsteele09/go-budget-client/state"
	"github.com/jrsteele09/go-budget-client/token"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

// SliceName is the key of the session in the store's state tree.
const SliceName = "auth"

const (
	loginPath          = "/api/token/"
	registerPath       = "/api/accounts/register/"
	userPath           = "/api/accounts/profile/"
	profileDetailsPath = "/api/accounts/profile-details/"
	logoutPath         = "/api/accounts/logout/"

	sessionExpiredMessage = "Session expired"
)

// Service runs the session operations against one slice.
type Service struct {
	client    *api.Client
	tokens    token.Store
	validator *Validator
	slice     *state.Slice[Session]
}

// New restores any persisted tokens and returns the session service. The
// restored session is not authenticated until FetchUserProfile succeeds.
func New(client *api.Client, tokens token.Store, opts ...state.Option) *Service {
	initial := Session{}
	if pair := token.LoadPair(tokens); pair != nil {
		initial.AccessToken = pair.AccessToken
		initial.RefreshToken = pair.RefreshToken
		initial.AccessTokenExpiry = pair.Expiry
	}

	return &Service{
		client:    client,
		tokens:    tokens,
		validator: NewValidator(),
		slice:     state.NewSlice(SliceName, initial, opts...),
	}
}

// Read returns a snapshot of the session and its request status.
func (s *Service) Read() (Session, state.Status) {
	return s.slice.Read()
}

// Token is the api.TokenSource for the HTTP client.
func (s *Service) Token() *oauth2.Token {
	session, _ := s.slice.Read()
	if session.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       session.AccessTokenExpiry,
	}
}

func notAuthenticated(st *Session) error {
	if st.Authenticated {
		return apperrors.ErrAlreadyAuthenticated
	}
	return nil
}

// Login exchanges credentials for a token pair, persists it and marks the
// session authenticated. It is refused while already authenticated.
// On failure the stored tokens are left as they were.
func (s *Service) Login(ctx context.Context, username, password string) error {
	_, err := state.Run(ctx, s.slice, state.Intent[Session]{
		Name:     "auth/login",
		Fallback: "Login failed",
		Message:  errorMessage("Login failed"),
		Guard:    notAuthenticated,
	}, func(ctx context.Context) (*oauth2.Token, error) {
		if authErr := s.validator.ValidateCredentials(username, password); authErr != nil {
			return nil, authErr
		}

		var resp tokenPairResponse
		if err := s.client.Post(ctx, loginPath, credentials{Username: username, Password: password}, &resp); err != nil {
			return nil, newAuthError(err, "Login failed")
		}
		if resp.Access == "" {
			return nil, &AuthError{Reason: ReasonServer, Message: "Login failed", Err: apperrors.ErrServer}
		}

		pair := token.NewPair(resp.Access, resp.Refresh)
		token.SavePair(s.tokens, pair)
		return pair, nil
	}, func(st *Session, pair *oauth2.Token) {
		st.AccessToken = pair.AccessToken
		st.RefreshToken = pair.RefreshToken
		st.AccessTokenExpiry = pair.Expiry
		st.Authenticated = true
	})
	return errors.Wrap(err, "[auth.Login]")
}

// Register creates an account. It does not sign the caller in, and like
// Login it is refused while already authenticated.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	user, err := state.Run(ctx, s.slice, state.Intent[Session]{
		Name:     "auth/register",
		Fallback: "Registration failed",
		Message:  errorMessage("Registration failed"),
		Guard:    notAuthenticated,
	}, func(ctx context.Context) (*User, error) {
		if authErr := s.validator.ValidateRegistration(req); authErr != nil {
			return nil, authErr
		}

		var user User
		if err := s.client.Post(ctx, registerPath, req, &user); err != nil {
			return nil, newAuthError(err, "Registration failed")
		}
		return &user, nil
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[auth.Register]")
	}
	return user, nil
}

type profileResult struct {
	user    *User
	profile *Profile
}

// FetchUserProfile loads the user and profile records in parallel and stores
// both, or neither when either call fails. Success confirms a restored
// session; failure never demotes it.
func (s *Service) FetchUserProfile(ctx context.Context) error {
	_, err := state.Run(ctx, s.slice, state.Intent[Session]{
		Name:     "auth/fetchProfile",
		Fallback: "Failed to fetch profile",
		Guard: func(st *Session) error {
			if st.AccessToken == "" {
				return apperrors.ErrNoAccessToken
			}
			return nil
		},
	}, func(ctx context.Context) (profileResult, error) {
		var (
			user    User
			profile Profile
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return s.client.Get(gctx, userPath, &user)
		})
		g.Go(func() error {
			return s.client.Get(gctx, profileDetailsPath, &profile)
		})
		if err := g.Wait(); err != nil {
			return profileResult{}, err
		}
		return profileResult{user: &user, profile: &profile}, nil
	}, func(st *Session, res profileResult) {
		st.User = res.user
		st.Profile = res.profile
		// A logout may have landed while the fetch was in flight.
		st.Authenticated = st.AccessToken != ""
	})
	return errors.Wrap(err, "[auth.FetchUserProfile]")
}

// UpdateUser patches the account record.
func (s *Service) UpdateUser(ctx context.Context, patch UserPatch) (*User, error) {
	user, err := state.Run(ctx, s.slice, state.Intent[Session]{
		Name:     "auth/updateUser",
		Fallback: "Failed to update account",
	}, func(ctx context.Context) (*User, error) {
		var user User
		if err := s.client.Patch(ctx, userPath, patch, &user); err != nil {
			return nil, err
		}
		return &user, nil
	}, func(st *Session, user *User) {
		st.User = user.Clone()
	})
	if err != nil {
		return nil, errors.Wrap(err, "[auth.UpdateUser]")
	}
	return user, nil
}

// UpdateProfile patches the profile record.
func (s *Service) UpdateProfile(ctx context.Context, patch ProfilePatch) (*Profile, error) {
	profile, err := state.Run(ctx, s.slice, state.Intent[Session]{
		Name:     "auth/updateProfile",
		Fallback: "Failed to update profile",
	}, func(ctx context.Context) (*Profile, error) {
		var profile Profile
		if err := s.client.Patch(ctx, profileDetailsPath, patch, &profile); err != nil {
			return nil, err
		}
		return &profile, nil
	}, func(st *Session, profile *Profile) {
		st.Profile = profile.Clone()
	})
	if err != nil {
		return nil, errors.Wrap(err, "[auth.UpdateProfile]")
	}
	return profile, nil
}

// Logout tells the server (best effort) and then clears the local session
// and persisted tokens unconditionally. It never fails.
func (s *Service) Logout(ctx context.Context) {
	session, _ := s.slice.Read()
	if session.AccessToken != "" || session.RefreshToken != "" {
		if err := s.client.Post(ctx, logoutPath, logoutRequest{Refresh: session.RefreshToken}, nil); err != nil {
			s.slice.Logger().Warn().Err(err).Msg("Server logout failed, clearing local session")
		}
	}
	s.teardown("", nil)
}

// SetTokens installs a token pair obtained elsewhere, e.g. by a refresh.
func (s *Service) SetTokens(access, refresh string) {
	pair := token.NewPair(access, refresh)
	s.slice.Update(func(st *Session) {
		token.SavePair(s.tokens, pair)
		st.AccessToken = pair.AccessToken
		st.RefreshToken = pair.RefreshToken
		st.AccessTokenExpiry = pair.Expiry
		st.Authenticated = pair.AccessToken != ""
	})
}

// HandleUnauthorized is the api.UnauthorizedHook. A 401 on a request that
// carried the session's current access token means the token is no longer
// accepted, and the session and persisted tokens are torn down. A 401 for a
// token the session has since replaced, or from the sign-in endpoints, leaves
// everything alone.
func (s *Service) HandleUnauthorized(_ context.Context, sent string, httpErr *api.HTTPError) {
	if httpErr.Path == loginPath || httpErr.Path == registerPath {
		return
	}
	ended := s.teardown(api.Message(httpErr, sessionExpiredMessage), func(st *Session) bool {
		return st.AccessToken != "" && st.AccessToken == sent
	})
	if !ended {
		s.slice.Logger().Debug().Str("path", httpErr.Path).Msg("Ignoring 401 for a token no longer in use")
		return
	}
	s.slice.Logger().Warn().Str("path", httpErr.Path).Str("detail", httpErr.Message).Msg("Access token rejected, ending session")
}

func (s *Service) ClearError() {
	s.slice.ClearError()
}

// teardown clears persisted tokens and the whole session in one transition.
// A non-nil when is checked under the slice lock and can veto it.
func (s *Service) teardown(reason string, when func(st *Session) bool) bool {
	ended := false
	s.slice.Reduce(func(st *Session, status *state.Status) {
		if when != nil && !when(st) {
			return
		}
		token.ClearPair(s.tokens)
		*st = Session{}
		status.Error = reason
		ended = true
	})
	return ended
}
