package middleware

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/database"
	"github.com/almanac/almanacbackend/models"
	"github.com/almanac/almanacbackend/services"
	"github.com/almanac/almanacbackend/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

// Authenticator resolves the bearer token of a request into an Identity.
type Authenticator struct {
	tokens *services.TokenService
	users  services.UserStore
	log    *zap.Logger
}

func NewAuthenticator(tokens *services.TokenService, users services.UserStore, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, users: users, log: log}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// resolve verifies tok and loads the user it names. Tokens of deleted or
// deactivated users are rejected.
func (a *Authenticator) resolve(ctx context.Context, tok string) (*Identity, error) {
	if tok == "" {
		return nil, apperrors.Authentication("Access token is required")
	}
	claims, err := a.tokens.VerifyAccess(tok)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, apperrors.Authentication("Access token has expired")
		}
		return nil, apperrors.Authentication("Invalid access token")
	}
	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperrors.Authentication("Invalid access token")
	}
	u, err := a.users.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.Authentication("User no longer exists")
	}
	if err != nil {
		return nil, apperrors.Server("Failed to load user", err)
	}
	if !u.IsActive {
		return nil, apperrors.Authentication("Account is deactivated")
	}
	return &Identity{User: u.Sanitized(), Claims: claims}, nil
}

func (a *Authenticator) authenticate(allowReset bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := a.resolve(c.Request.Context(), bearerToken(c))
		if err == nil && ident.IsPasswordReset() && !allowReset {
			err = apperrors.Authentication("Password reset tokens cannot be used here")
		}
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		setIdentity(c, ident)
		c.Next()
	}
}

// Authenticate requires a valid access token. Reset tokens are refused.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return a.authenticate(false)
}

// AuthenticateForReset is Authenticate that also accepts password reset
// tokens. It guards the reset-password route only.
func (a *Authenticator) AuthenticateForReset() gin.HandlerFunc {
	return a.authenticate(true)
}

// OptionalAuthenticate attaches an identity when a usable access token is
// present and otherwise lets the request through anonymously.
func (a *Authenticator) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			c.Next()
			return
		}
		ident, err := a.resolve(c.Request.Context(), tok)
		if err != nil || ident.IsPasswordReset() {
			a.log.Debug("optional authentication skipped", zap.Error(err))
			c.Next()
			return
		}
		setIdentity(c, ident)
		c.Next()
	}
}

// Authorize admits callers whose role is one of roles. It must run after
// Authenticate.
func Authorize(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := CurrentIdentity(c)
		if !ok {
			_ = c.Error(apperrors.Authentication("Authentication required"))
			c.Abort()
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, ident.User.Role) {
			_ = c.Error(apperrors.Authorization("You do not have permission to perform this action"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin admits the user whose id is in the param path segment,
// and admins.
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := CurrentIdentity(c)
		if !ok {
			_ = c.Error(apperrors.Authentication("Authentication required"))
			c.Abort()
			return
		}
		target, err := bson.ObjectIDFromHex(c.Param(param))
		if err != nil {
			_ = c.Error(apperrors.Validation("Invalid user id"))
			c.Abort()
			return
		}
		if err := services.RequireModifyUser(&ident.User, target); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}
