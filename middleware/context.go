package middleware

import (
	"context"

	"github.com/almanac/almanacbackend/models"
	"github.com/almanac/almanacbackend/utils"
	"github.com/gin-gonic/gin"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller of a request. User never carries
// password or code hashes.
type Identity struct {
	User   models.User
	Claims *utils.Claims
}

// IsPasswordReset reports whether the caller authenticated with a reset token.
func (id *Identity) IsPasswordReset() bool {
	return id.Claims != nil && id.Claims.Purpose == utils.PurposePasswordReset
}

func (id *Identity) Purpose() string {
	if id.Claims == nil {
		return ""
	}
	return id.Claims.Purpose
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// CurrentIdentity reads the identity set by Authenticate or
// OptionalAuthenticate.
func CurrentIdentity(c *gin.Context) (*Identity, bool) {
	return IdentityFrom(c.Request.Context())
}

// CurrentUser is a shortcut for handlers behind Authenticate. It returns nil
// when no identity is attached.
func CurrentUser(c *gin.Context) *models.User {
	id, ok := CurrentIdentity(c)
	if !ok {
		return nil
	}
	return &id.User
}

func setIdentity(c *gin.Context, id *Identity) {
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
}
