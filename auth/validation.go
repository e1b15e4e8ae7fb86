package auth

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/jrsteele09/go-budget-client/api"
)

const minPasswordLength = 8

// Validator checks sign-in and registration input before it is sent, so
// obviously bad input fails the same way a server-side field error would.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCredentials requires both login fields.
func (v *Validator) ValidateCredentials(username, password string) *AuthError {
	fields := fieldErrors{}
	fields.required("username", username)
	fields.required("password", password)
	return fields.err()
}

// ValidateRegistration mirrors the server's basic account rules.
func (v *Validator) ValidateRegistration(req RegisterRequest) *AuthError {
	fields := fieldErrors{}
	fields.required("username", req.Username)
	fields.required("first_name", req.FirstName)
	fields.required("last_name", req.LastName)

	if fields.required("email", req.Email) {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			fields.add("email", "Enter a valid email address.")
		}
	}

	if fields.required("password", req.Password) {
		if err := ValidatePasswordStrength(req.Password); err != "" {
			fields.add("password", err)
		}
	}

	if req.MonthlyIncome.IsNegative() {
		fields.add("monthly_income", "Ensure this value is greater than or equal to 0.")
	}

	if fields.required("currency", req.Currency) && !isCurrencyCode(req.Currency) {
		fields.add("currency", "Use a three-letter ISO 4217 code.")
	}

	return fields.err()
}

// ValidatePasswordStrength applies the server's minimum rules: at least eight
// characters and not entirely numeric. Returns the message, empty when valid.
func ValidatePasswordStrength(password string) string {
	if len(password) < minPasswordLength {
		return "This password is too short. It must contain at least 8 characters."
	}
	for _, char := range password {
		if !unicode.IsDigit(char) {
			return ""
		}
	}
	return "This password is entirely numeric."
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, char := range code {
		if char < 'A' || char > 'Z' {
			return false
		}
	}
	return true
}

type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

// required records a message when value is blank and reports whether it was set.
func (f fieldErrors) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		f.add(field, "This field is required.")
		return false
	}
	return true
}

func (f fieldErrors) err() *AuthError {
	if len(f) == 0 {
		return nil
	}
	return &AuthError{
		Reason:  ReasonValidation,
		Message: api.FlattenFields(f),
		Fields:  f,
	}
}
