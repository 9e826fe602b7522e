package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
		code string
	}{
		{"validation", Validation("bad"), http.StatusBadRequest, CodeValidation},
		{"authentication", Authentication("who"), http.StatusUnauthorized, CodeAuthentication},
		{"authorization", Authorization("no"), http.StatusForbidden, CodeAuthorization},
		{"not found", NotFound("gone"), http.StatusNotFound, CodeNotFound},
		{"conflict", Conflict("dup"), http.StatusConflict, CodeConflict},
		{"server", Server("boom", errors.New("db down")), http.StatusInternalServerError, CodeServer},
		{"email", EmailService(errors.New("smtp")), http.StatusBadGateway, CodeEmailService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Status())
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestOperational(t *testing.T) {
	assert.True(t, Validation("x").IsOperational())
	assert.True(t, EmailService(nil).IsOperational())
	assert.False(t, Server("x", nil).IsOperational())
}

func TestAccountLockedCarriesMinutes(t *testing.T) {
	err := AccountLocked(12)
	assert.Equal(t, CodeAccountLocked, err.Code)
	assert.Equal(t, "Account locked. Try again in 12 minutes", err.Message)
	assert.Equal(t, 12, err.Details["minutesRemaining"])
}

func TestAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", Conflict("taken"))

	ae, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindConflict, ae.Kind)
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestNormalizeHidesUnknownErrors(t *testing.T) {
	cause := errors.New("connection refused to 10.0.0.3")
	ae := Normalize(cause)

	assert.Equal(t, KindServer, ae.Kind)
	assert.Equal(t, "Internal server error", ae.Message)
	assert.ErrorIs(t, ae, cause)
	assert.NotEmpty(t, ae.Stack())
}
