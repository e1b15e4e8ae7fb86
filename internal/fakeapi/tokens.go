package fakeapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	contextKeyUsername = "username"

	tokenNotValidDetail = "Given token not valid for any token type"
)

// claims mirrors the payload of the real API's SimpleJWT tokens, plus the
// epoch used by InvalidateTokens.
type claims struct {
	TokenType string `json:"token_type"`
	Epoch     int    `json:"epoch"`
	jwt.RegisteredClaims
}

// issuePair signs an access and a refresh token for username. Caller holds
// s.lock.
func (s *Server) issuePair(username string) (access, refresh string, err error) {
	now := s.now()
	access, err = s.sign(username, tokenTypeAccess, now, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.sign(username, tokenTypeRefresh, now, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Server) sign(username, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	c := claims{
		TokenType: tokenType,
		Epoch:     s.epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("[fakeapi.sign] failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// parse verifies a token of the wanted type. Caller holds s.lock.
func (s *Server) parse(raw, wantType string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if c.TokenType != wantType {
		return nil, fmt.Errorf("token type %q, want %q", c.TokenType, wantType)
	}
	if c.Epoch != s.epoch {
		return nil, fmt.Errorf("token from epoch %d has been invalidated", c.Epoch)
	}
	if _, ok := s.revoked[c.ID]; ok {
		return nil, fmt.Errorf("token %s has been revoked", c.ID)
	}
	return c, nil
}

// requireAuth validates the bearer access token and stores the username in
// the gin context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}

		s.lock.Lock()
		tok, err := s.parse(raw, tokenTypeAccess)
		var known bool
		if err == nil {
			_, known = s.accounts[tok.Subject]
		}
		s.lock.Unlock()

		if err != nil || !known {
			s.logger.Debug().Err(err).Msg("Rejected access token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": tokenNotValidDetail, "code": "token_not_valid"})
			return
		}

		c.Set(contextKeyUsername, tok.Subject)
		c.Next()
	}
}
