package fakeapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jrsteele09/go-budget-client/auth"
	"github.com/jrsteele09/go-budget-client/internal/utils"
)

const invalidCredentialsDetail = "Invalid credentials"

// addAccount creates a user and an empty profile. Caller holds s.lock or is
// still constructing the server.
func (s *Server) addAccount(req auth.RegisterRequest) auth.User {
	s.nextUserID++
	now := s.now().UTC()
	user := auth.User{
		ID:            s.nextUserID,
		Username:      req.Username,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		MonthlyIncome: req.MonthlyIncome,
		Currency:      req.Currency,
		DateJoined:    now,
	}
	s.accounts[req.Username] = &account{
		password: req.Password,
		user:     user,
		profile: auth.Profile{
			ID:        s.nextUserID,
			User:      s.nextUserID,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	return user
}

// currentAccount returns the account authenticated by requireAuth. Caller
// holds s.lock.
func (s *Server) currentAccount(c *gin.Context) *account {
	return s.accounts[c.GetString(contextKeyUsername)]
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) tokenHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Malformed request body."})
		return
	}

	fields := fieldErrors{}
	fields.required("username", req.Username)
	fields.required("password", req.Password)
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	acct, ok := s.accounts[req.Username]
	if !ok || acct.password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": invalidCredentialsDetail})
		return
	}

	access, refresh, err := s.issuePair(req.Username)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue tokens")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}
	now := s.now().UTC()
	acct.user.LastLogin = &now
	c.JSON(http.StatusOK, gin.H{"access": access, "refresh": refresh})
}

func (s *Server) registerHandler(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Malformed request body."})
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	fields := fieldErrors{}
	if fields.required("username", req.Username) {
		if _, exists := s.accounts[req.Username]; exists {
			fields.add("username", "A user with that username already exists.")
		}
	}
	if fields.required("email", req.Email) && !strings.Contains(req.Email, "@") {
		fields.add("email", "Enter a valid email address.")
	}
	if fields.required("password", req.Password) {
		if msg := auth.ValidatePasswordStrength(req.Password); msg != "" {
			fields.add("password", msg)
		}
	}
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	c.JSON(http.StatusCreated, s.addAccount(req))
}

func (s *Server) getUserHandler(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()
	c.JSON(http.StatusOK, s.currentAccount(c).user)
}

func (s *Server) patchUserHandler(c *gin.Context) {
	var patch auth.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Malformed request body."})
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if utils.Value(patch.MonthlyIncome).IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"monthly_income": []string{"Ensure this value is greater than or equal to 0."}})
		return
	}

	user := &s.currentAccount(c).user
	setIf(&user.Email, patch.Email)
	setIf(&user.FirstName, patch.FirstName)
	setIf(&user.LastName, patch.LastName)
	setIf(&user.MonthlyIncome, patch.MonthlyIncome)
	setIf(&user.Currency, patch.Currency)
	c.JSON(http.StatusOK, user)
}

func (s *Server) getProfileHandler(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()
	c.JSON(http.StatusOK, s.currentAccount(c).profile)
}

func (s *Server) patchProfileHandler(c *gin.Context) {
	var patch auth.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		// Notification preferences that are not booleans land here.
		c.JSON(http.StatusBadRequest, gin.H{"notification_preferences": []string{err.Error()}})
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	profile := &s.currentAccount(c).profile
	setPtrIf(&profile.PhoneNumber, patch.PhoneNumber)
	setPtrIf(&profile.DateOfBirth, patch.DateOfBirth)
	setPtrIf(&profile.Address, patch.Address)
	setPtrIf(&profile.City, patch.City)
	setPtrIf(&profile.Country, patch.Country)
	setPtrIf(&profile.PostalCode, patch.PostalCode)
	setPtrIf(&profile.Timezone, patch.Timezone)
	setPtrIf(&profile.Language, patch.Language)
	setIf(&profile.NotificationPreferences, patch.NotificationPreferences)
	profile.UpdatedAt = s.now().UTC()
	c.JSON(http.StatusOK, profile)
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

// logoutHandler blacklists the refresh token.
func (s *Server) logoutHandler(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"refresh": []string{"This field is required."}})
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	tok, err := s.parse(req.Refresh, tokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Token is invalid or expired"})
		return
	}
	s.revoked[tok.ID] = struct{}{}
	c.JSON(http.StatusOK, gin.H{"detail": "Successfully logged out."})
}
