package utils

import (
	"net/http"
	"time"

	"github.com/almanac/almanacbackend/config"
	"github.com/gin-gonic/gin"
)

const (
	RefreshCookieName = "refreshToken"
	refreshCookiePath = "/auth"
)

func sameSite(cfg config.CookieConfig) http.SameSite {
	if cfg.Secure {
		// cross-site frontends need None, which browsers only accept on Secure cookies
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func SetRefreshCookie(c *gin.Context, cfg config.CookieConfig, token string, ttl time.Duration) {
	c.SetSameSite(sameSite(cfg))
	c.SetCookie(RefreshCookieName, token, int(ttl.Seconds()), refreshCookiePath, cfg.Domain, cfg.Secure, true)
}

func ClearRefreshCookie(c *gin.Context, cfg config.CookieConfig) {
	c.SetSameSite(sameSite(cfg))
	c.SetCookie(RefreshCookieName, "", -1, refreshCookiePath, cfg.Domain, cfg.Secure, true)
}

// RefreshTokenFrom prefers the token sent in the body and falls back to the
// refresh cookie.
func RefreshTokenFrom(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	tok, err := c.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return tok
}
