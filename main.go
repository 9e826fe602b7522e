package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/almanac/almanacbackend/config"
	"github.com/almanac/almanacbackend/controllers"
	"github.com/almanac/almanacbackend/database"
	"github.com/almanac/almanacbackend/email"
	"github.com/almanac/almanacbackend/middleware"
	"github.com/almanac/almanacbackend/services"
	"github.com/almanac/almanacbackend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userStore interface {
	services.UserStore
	utils.AdminSeeder
}

type stores struct {
	users     userStore
	refresh   services.RefreshTokenStore
	calendars services.CalendarStore
	members   services.MemberStore
	ping      func(ctx context.Context) error
	close     func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return &stores{
			users:     database.NewMemoryUserStore(),
			refresh:   database.NewMemoryRefreshTokenStore(),
			calendars: database.NewMemoryCalendarStore(),
			members:   database.NewMemoryMemberStore(),
			close:     func(context.Context) error { return nil },
		}, nil
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.DatabaseName)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	logger.Info("connected to mongodb", zap.String("database", cfg.DatabaseName))
	return &stores{
		users:     database.NewUserStore(db),
		refresh:   database.NewRefreshTokenStore(db),
		calendars: database.NewCalendarStore(db),
		members:   database.NewMemberStore(db),
		ping:      func(ctx context.Context) error { return database.Ping(ctx, client) },
		close:     client.Disconnect,
	}, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	if err := utils.SeedAdminUser(ctx, st.users, cfg.Admin, cfg.Security.BcryptCost, logger); err != nil {
		logger.Fatal("failed to seed admin user", zap.Error(err))
	}

	rdb := database.NewRedisClient(cfg.Redis, logger)
	mailer := email.New(cfg.SMTP, logger)

	signer := utils.NewTokenSigner(cfg.JWT, nil)
	tokens := services.NewTokenService(signer, st.refresh, nil)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	allowedOrigins := map[string]bool{}
	for _, origin := range cfg.AllowedOrigins {
		allowedOrigins[origin] = true
	}
	logger.Info("cors configured", zap.Strings("origins", cfg.AllowedOrigins))
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.ErrorHandler(logger, cfg.IsProduction()))
	r.NoRoute(middleware.NoRoute())

	controllers.RegisterRoutes(r, controllers.Deps{
		Auth:      services.NewAuthService(st.users, tokens, mailer, cfg.Security, logger, nil),
		Users:     services.NewUserService(st.users, st.refresh, st.calendars, st.members, cfg.Security, logger, nil),
		Calendars: services.NewCalendarService(st.calendars, st.members, logger, nil),
		Members:   services.NewMemberService(st.members, st.calendars, st.users, nil),
		Authn:     middleware.NewAuthenticator(tokens, st.users, logger),
		Redis:     rdb,
		RateLimit: cfg.RateLimit,
		Cookie:    cfg.Cookie,
		JWT:       cfg.JWT,
		Status: controllers.StatusInfo{
			Env:         cfg.Env,
			StoreDriver: cfg.StoreDriver,
			DBName:      cfg.DatabaseName,
			PingDB:      st.ping,
			Redis:       rdb,
			StartedAt:   time.Now(),
		},
		Log: logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := st.close(shutdownCtx); err != nil {
		logger.Error("failed to close store", zap.Error(err))
	}
}
