package controllers

import (
	"github.com/almanac/almanacbackend/config"
	"github.com/almanac/almanacbackend/middleware"
	"github.com/almanac/almanacbackend/models"
	"github.com/almanac/almanacbackend/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Calendars *services.CalendarService
	Members   *services.MemberService
	Authn     *middleware.Authenticator

	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cookie    config.CookieConfig
	JWT       config.JWTConfig
	Status    StatusInfo
	Log       *zap.Logger
}

// RegisterRoutes mounts every endpoint on r. Global middleware (logging,
// recovery, error rendering, CORS) is installed by the caller.
func RegisterRoutes(r *gin.Engine, d Deps) {
	useJSONFieldNames()

	r.GET("/health", Health())
	r.GET("/ping", Ping())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authn := d.Authn.Authenticate()
	adminOnly := middleware.Authorize(models.RoleAdmin)

	auth := r.Group("/auth")
	auth.Use(middleware.RateLimit(d.Redis, d.RateLimit, "auth", d.Log))
	{
		auth.POST("/register", Register(d.Auth))
		auth.POST("/login", Login(d.Auth.GuardedLogin(), d.Cookie, d.JWT.RefreshTTL))
		auth.POST("/refresh", Refresh(d.Auth))
		auth.POST("/logout", authn, Logout(d.Auth, d.Cookie))
		auth.POST("/verify-email", VerifyEmail(d.Auth))
		auth.POST("/resend-verification", ResendVerification(d.Auth))
		auth.POST("/forgot-password", ForgotPassword(d.Auth.GuardedForgotPassword()))
		auth.POST("/verify-reset-code", VerifyResetCode(d.Auth))
		auth.POST("/reset-password", d.Authn.AuthenticateForReset(), ResetPassword(d.Auth, d.Cookie))
		auth.POST("/change-password/request", authn, RequestPasswordChange(d.Auth))
		auth.GET("/me", authn, Me(d.Auth))
	}

	users := r.Group("/users", authn)
	{
		users.POST("", adminOnly, CreateUser(d.Users))
		users.GET("", adminOnly, ListUsers(d.Users))

		self := users.Group("/:id", middleware.RequireSelfOrAdmin("id"))
		self.GET("", GetUser(d.Users))
		self.PUT("", UpdateUser(d.Users))
		self.DELETE("", DeleteUser(d.Users))
	}

	calendars := r.Group("/calendars", authn)
	{
		calendars.POST("", CreateCalendar(d.Calendars))
		calendars.GET("", ListCalendars(d.Calendars))
		calendars.PUT("/:calendarId", UpdateCalendar(d.Calendars))
		calendars.DELETE("/:calendarId", DeleteCalendar(d.Calendars))
	}

	members := r.Group("/members", authn)
	{
		members.POST("", AddMember(d.Members))
		members.GET("/:calendar_id", ListMembers(d.Members))
		members.PUT("/:memberId", UpdateMemberRole(d.Members))
		members.DELETE("/:memberId", RemoveMember(d.Members))
	}

	status := r.Group("/status", authn, adminOnly)
	{
		status.GET("/db", DBStatus(d.Status))
		status.GET("/system", SystemStatus(d.Status))
	}
}
