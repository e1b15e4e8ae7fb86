package auth_test

import (
	"testing"

	"github.com/jrsteele09/go-budget-client/auth"
	apperrors "github.com/jrsteele09/go-budget-client/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestValidator_ValidateCredentials(t *testing.T) {
	v := auth.NewValidator()

	t.Run("valid", func(t *testing.T) {
		require.Nil(t, v.ValidateCredentials("alice", "secret"))
	})

	t.Run("both missing", func(t *testing.T) {
		err := v.ValidateCredentials(" ", "")
		require.NotNil(t, err)
		require.Equal(t, auth.ReasonValidation, err.Reason)
		require.Equal(t, "password: This field is required.; username: This field is required.", err.Message)
		require.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestValidator_ValidateRegistration(t *testing.T) {
	v := auth.NewValidator()
	valid := auth.RegisterRequest{
		Username:      "carol",
		Email:         "carol@example.com",
		Password:      "plenty-long",
		FirstName:     "Carol",
		LastName:      "Danvers",
		MonthlyIncome: decimal.NewFromInt(2500),
		Currency:      "GBP",
	}

	t.Run("valid", func(t *testing.T) {
		require.Nil(t, v.ValidateRegistration(valid))
	})

	tests := []struct {
		name   string
		mutate func(*auth.RegisterRequest)
		field  string
	}{
		{"missing username", func(r *auth.RegisterRequest) { r.Username = "" }, "username"},
		{"bad email", func(r *auth.RegisterRequest) { r.Email = "carol" }, "email"},
		{"short password", func(r *auth.RegisterRequest) { r.Password = "short" }, "password"},
		{"numeric password", func(r *auth.RegisterRequest) { r.Password = "1234567890" }, "password"},
		{"negative income", func(r *auth.RegisterRequest) { r.MonthlyIncome = decimal.NewFromInt(-5) }, "monthly_income"},
		{"lowercase currency", func(r *auth.RegisterRequest) { r.Currency = "gbp" }, "currency"},
		{"long currency", func(r *auth.RegisterRequest) { r.Currency = "POUND" }, "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := v.ValidateRegistration(req)
			require.NotNil(t, err)
			require.Len(t, err.Fields, 1)
			require.Contains(t, err.Fields, tt.field)
		})
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	require.Empty(t, auth.ValidatePasswordStrength("abcdefgh"))
	require.Empty(t, auth.ValidatePasswordStrength("1234567a"))
	require.Contains(t, auth.ValidatePasswordStrength("abc"), "too short")
	require.Contains(t, auth.ValidatePasswordStrength("12345678"), "entirely numeric")
}
