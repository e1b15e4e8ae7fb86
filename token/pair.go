package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const bearer = "Bearer"

// LoadPair reads the access and refresh tokens from s.
// Returns nil when neither is stored.
func LoadPair(s Store) *oauth2.Token {
	access, _ := s.Get(AccessTokenKey)
	refresh, _ := s.Get(RefreshTokenKey)
	if access == "" && refresh == "" {
		return nil
	}
	return NewPair(access, refresh)
}

// NewPair builds a bearer token pair, taking the expiry from the access
// token's exp claim when it carries one.
func NewPair(access, refresh string) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    bearer,
	}
	if exp, ok := Expiry(access); ok {
		tok.Expiry = exp
	}
	return tok
}

// SavePair persists both halves of tok. Empty halves are cleared.
func SavePair(s Store, tok *oauth2.Token) {
	if tok == nil {
		ClearPair(s)
		return
	}
	setOrClear(s, AccessTokenKey, tok.AccessToken)
	setOrClear(s, RefreshTokenKey, tok.RefreshToken)
}

// ClearPair removes both tokens from s.
func ClearPair(s Store) {
	s.Clear(AccessTokenKey)
	s.Clear(RefreshTokenKey)
}

func setOrClear(s Store, name, value string) {
	if value == "" {
		s.Clear(name)
		return
	}
	s.Set(name, value)
}

// Expiry returns the exp claim of a JWT without verifying its signature.
// The client never holds the signing key; the value is only a hint.
func Expiry(raw string) (time.Time, bool) {
	if strings.Count(raw, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
