package auth

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-budget-client/api"
	apperrors "github.com/jrsteele09/go-budget-client/internal/errors"
)

// Reason classifies an AuthError.
type Reason string

const (
	ReasonInvalidCredentials Reason = "invalid-credentials"
	ReasonNetwork            Reason = "network"
	ReasonServer             Reason = "server"
	ReasonValidation         Reason = "validation"
)

// AuthError is returned by login and registration.
type AuthError struct {
	Reason  Reason
	Message string              // Human-readable, from the server when it sent one
	Fields  map[string][]string // Field-level messages for ReasonValidation
	Err     error               // Underlying transport error, if any
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s: %s", e.Reason, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	switch target {
	case apperrors.ErrInvalidCredentials:
		return e.Reason == ReasonInvalidCredentials
	case apperrors.ErrNetwork:
		return e.Reason == ReasonNetwork
	case apperrors.ErrServer:
		return e.Reason == ReasonServer
	case apperrors.ErrValidation:
		return e.Reason == ReasonValidation
	}
	return false
}

// newAuthError classifies a failed login or registration call.
func newAuthError(err error, fallback string) *AuthError {
	authErr := &AuthError{
		Reason:  ReasonServer,
		Message: api.Message(err, fallback),
		Err:     err,
	}

	var httpErr *api.HTTPError
	switch {
	case apperrors.As(err, &httpErr):
		switch {
		case len(httpErr.Fields) > 0:
			authErr.Reason = ReasonValidation
			authErr.Fields = httpErr.Fields
		case httpErr.Status == http.StatusUnauthorized || httpErr.Status == http.StatusForbidden:
			authErr.Reason = ReasonInvalidCredentials
		}
	case apperrors.Is(err, apperrors.ErrNetwork):
		authErr.Reason = ReasonNetwork
	}
	return authErr
}

// errorMessage makes the stored error text of a login or registration the
// AuthError's own message.
func errorMessage(fallback string) func(error) string {
	return func(err error) string {
		var authErr *AuthError
		if apperrors.As(err, &authErr) && authErr.Message != "" {
			return authErr.Message
		}
		return api.Message(err, fallback)
	}
}
