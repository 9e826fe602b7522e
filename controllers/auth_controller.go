package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/almanac/almanacbackend/config"
	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/middleware"
	"github.com/almanac/almanacbackend/services"
	"github.com/almanac/almanacbackend/utils"
	"github.com/gin-gonic/gin"
)

// POST /auth/register
func Register(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterDTO
		if !bindJSON(c, &body) {
			return
		}
		user, err := auth.Register(c.Request.Context(), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusCreated, "Registration successful. Please verify your email.", gin.H{"user": user})
	}
}

// POST /auth/login
func Login(login func(ctx context.Context, in dto.LoginDTO) (*services.LoginResult, error), cookie config.CookieConfig, refreshTTL time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if !bindJSON(c, &body) {
			return
		}
		res, err := login(c.Request.Context(), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.SetRefreshCookie(c, cookie, res.RefreshToken, refreshTTL)
		utils.Respond(c, http.StatusOK, "Login successful", res)
	}
}

// POST /auth/refresh
func Refresh(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RefreshDTO
		if !bindJSON(c, &body) {
			return
		}
		body.RefreshToken = utils.RefreshTokenFrom(c, body.RefreshToken)
		access, err := auth.Refresh(c.Request.Context(), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "Token refreshed successfully", gin.H{"accessToken": access})
	}
}

// POST /auth/logout
func Logout(auth *services.AuthService, cookie config.CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LogoutDTO
		if !bindJSON(c, &body) {
			return
		}
		user := middleware.CurrentUser(c)
		tok := utils.RefreshTokenFrom(c, body.RefreshToken)
		if err := auth.Logout(c.Request.Context(), user.ID, tok); err != nil {
			_ = c.Error(err)
			return
		}
		utils.ClearRefreshCookie(c, cookie)
		utils.Respond(c, http.StatusOK, "Logged out successfully", nil)
	}
}

// POST /auth/verify-email
func VerifyEmail(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.VerifyCodeDTO
		if !bindJSON(c, &body) {
			return
		}
		addr, err := auth.VerifyEmail(c.Request.Context(), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "Email verified successfully", gin.H{"email": addr})
	}
}

// POST /auth/resend-verification
func ResendVerification(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.EmailDTO
		if !bindJSON(c, &body) {
			return
		}
		addr, err := auth.ResendVerification(c.Request.Context(), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "Verification code sent", gin.H{"email": addr})
	}
}

// POST /auth/forgot-password
func ForgotPassword(forgot func(ctx context.Context, in dto.EmailDTO) (string, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.EmailDTO
		if !bindJSON(c, &body) {
			return
		}
		addr, err := forgot(c.Request.Context(), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "Password reset code sent", gin.H{"email": addr})
	}
}

// POST /auth/verify-reset-code
func VerifyResetCode(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.VerifyCodeDTO
		if !bindJSON(c, &body) {
			return
		}
		tok, err := auth.VerifyResetCode(c.Request.Context(), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "Code verified", gin.H{"resetToken": tok})
	}
}

// POST /auth/reset-password
func ResetPassword(auth *services.AuthService, cookie config.CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ResetPasswordDTO
		if !bindJSON(c, &body) {
			return
		}
		ident, _ := middleware.CurrentIdentity(c)
		user, err := auth.ResetPassword(c.Request.Context(), ident.User.ID, ident.Purpose(), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.ClearRefreshCookie(c, cookie)
		utils.Respond(c, http.StatusOK, "Password updated successfully", gin.H{"user": user})
	}
}

// POST /auth/change-password/request
func RequestPasswordChange(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ChangePasswordRequestDTO
		if !bindJSON(c, &body) {
			return
		}
		user := middleware.CurrentUser(c)
		addr, err := auth.RequestPasswordChange(c.Request.Context(), user.ID, body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "Verification code sent", gin.H{"email": addr})
	}
}

// GET /auth/me
func Me(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.Me(c.Request.Context(), middleware.CurrentUser(c).ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "", gin.H{"user": user})
	}
}
