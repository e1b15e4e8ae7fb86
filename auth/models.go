package auth

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jrsteele09/go-budget-client/internal/utils"
	"github.com/shopspring/decimal"
)

// User is the account record served by /api/accounts/profile/.
type User struct {
	ID            int64           `json:"id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	Currency      string          `json:"currency"`
	IsPremium     bool            `json:"is_premium"`
	DateJoined    time.Time       `json:"date_joined"`
	LastLogin     *time.Time      `json:"last_login"` // null until the first login
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.LastLogin = utils.ClonePtr(u.LastLogin)
	return &c
}

// UserPatch holds the account fields that may be changed. Nil fields are
// left untouched by the server.
type UserPatch struct {
	Email         *string          `json:"email,omitempty"`
	FirstName     *string          `json:"first_name,omitempty"`
	LastName      *string          `json:"last_name,omitempty"`
	MonthlyIncome *decimal.Decimal `json:"monthly_income,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
}

// Profile is the extended record served by /api/accounts/profile-details/.
type Profile struct {
	ID                      int64                   `json:"id"`
	User                    int64                   `json:"user"`
	Avatar                  *string                 `json:"avatar"`
	PhoneNumber             *string                 `json:"phone_number"`
	DateOfBirth             *string                 `json:"date_of_birth"` // YYYY-MM-DD
	Address                 *string                 `json:"address"`
	City                    *string                 `json:"city"`
	Country                 *string                 `json:"country"`
	PostalCode              *string                 `json:"postal_code"`
	Timezone                *string                 `json:"timezone"`
	Language                *string                 `json:"language"`
	NotificationPreferences NotificationPreferences `json:"notification_preferences"`
	CreatedAt               time.Time               `json:"created_at"`
	UpdatedAt               time.Time               `json:"updated_at"`
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Avatar = utils.ClonePtr(p.Avatar)
	c.PhoneNumber = utils.ClonePtr(p.PhoneNumber)
	c.DateOfBirth = utils.ClonePtr(p.DateOfBirth)
	c.Address = utils.ClonePtr(p.Address)
	c.City = utils.ClonePtr(p.City)
	c.Country = utils.ClonePtr(p.Country)
	c.PostalCode = utils.ClonePtr(p.PostalCode)
	c.Timezone = utils.ClonePtr(p.Timezone)
	c.Language = utils.ClonePtr(p.Language)
	c.NotificationPreferences = p.NotificationPreferences.Clone()
	return &c
}

// ProfilePatch holds the profile fields that may be changed.
type ProfilePatch struct {
	PhoneNumber             *string                  `json:"phone_number,omitempty"`
	DateOfBirth             *string                  `json:"date_of_birth,omitempty"`
	Address                 *string                  `json:"address,omitempty"`
	City                    *string                  `json:"city,omitempty"`
	Country                 *string                  `json:"country,omitempty"`
	PostalCode              *string                  `json:"postal_code,omitempty"`
	Timezone                *string                  `json:"timezone,omitempty"`
	Language                *string                  `json:"language,omitempty"`
	NotificationPreferences *NotificationPreferences `json:"notification_preferences,omitempty"`
}

// NotificationPreferences is a map of boolean switches. The well-known
// switches get fields; any other boolean key is kept in Extra. A value that
// is not a boolean is rejected when decoding.
type NotificationPreferences struct {
	Email         bool
	Push          bool
	SMS           bool
	BudgetAlerts  bool
	WeeklySummary bool
	Extra         map[string]bool
}

func (n *NotificationPreferences) known() map[string]*bool {
	return map[string]*bool{
		"email":          &n.Email,
		"push":           &n.Push,
		"sms":            &n.SMS,
		"budget_alerts":  &n.BudgetAlerts,
		"weekly_summary": &n.WeeklySummary,
	}
}

func (n *NotificationPreferences) UnmarshalJSON(data []byte) error {
	*n = NotificationPreferences{}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("notification_preferences: %w", err)
	}

	known := n.known()
	for key, value := range raw {
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return fmt.Errorf("notification_preferences.%s: expected boolean, got %s", key, value)
		}
		if field, ok := known[key]; ok {
			*field = b
			continue
		}
		if n.Extra == nil {
			n.Extra = make(map[string]bool)
		}
		n.Extra[key] = b
	}
	return nil
}

func (n NotificationPreferences) MarshalJSON() ([]byte, error) {
	out := make(map[string]bool, len(n.Extra)+5)
	for key, value := range n.Extra {
		out[key] = value
	}
	for key, field := range n.known() {
		out[key] = *field
	}
	return json.Marshal(out)
}

func (n NotificationPreferences) Clone() NotificationPreferences {
	c := n
	if n.Extra != nil {
		c.Extra = make(map[string]bool, len(n.Extra))
		for k, v := range n.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// ExtraKeys lists the unrecognised switches in sorted order.
func (n NotificationPreferences) ExtraKeys() []string {
	keys := make([]string, 0, len(n.Extra))
	for k := range n.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegisterRequest is the payload for /api/accounts/register/.
type RegisterRequest struct {
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	Password      string          `json:"password"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	MonthlyIncome decimal.Decimal `json:"monthly_income"`
	Currency      string          `json:"currency"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type logoutRequest struct {
	Refresh string `json:"refresh,omitempty"`
}

// Session is the auth slice state.
type Session struct {
	AccessToken       string
	RefreshToken      string
	AccessTokenExpiry time.Time // zero when the token carries no exp claim
	Authenticated     bool
	User              *User
	Profile           *Profile
}

func (s Session) Clone() Session {
	c := s
	c.User = s.User.Clone()
	c.Profile = s.Profile.Clone()
	return c
}
