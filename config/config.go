package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// JWTConfig carries the signing material for access, refresh and reset tokens.
// Access and refresh tokens are signed with different secrets.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
}

// SecurityConfig holds the account-security knobs used by the auth workflows.
type SecurityConfig struct {
	BcryptCost            int
	CodeTTL               time.Duration
	MaxCodeAttempts       int
	MaxFailedLogins       int
	LockDuration          time.Duration
	PasswordResetCooldown time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough SMTP settings are present to send real mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.Username != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
	Block    time.Duration
}

// CookieConfig controls the httpOnly refresh-token cookie set on login.
type CookieConfig struct {
	Secure bool
	Domain string
}

type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

type Config struct {
	Env            string
	Port           string
	StoreDriver    string
	MongoURI       string
	DatabaseName   string
	AllowedOrigins []string

	JWT       JWTConfig
	Security  SecurityConfig
	SMTP      SMTPConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cookie    CookieConfig
	Admin     AdminConfig
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

const minBcryptCost = 10

// Load reads a .env file when present and builds the Config from the process
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the Config from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error
	durationOf := func(key, def string) time.Duration {
		d, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}
	intOf := func(key string, def int) int {
		n, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", EnvDevelopment),
		Port:           getEnv("PORT", "8080"),
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURI:       os.Getenv("MONGODB_URI"),
		DatabaseName:   getEnv("DATABASE_NAME", "almanac"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		JWT: JWTConfig{
			AccessSecret:  os.Getenv("JWT_SECRET"),
			RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
			Issuer:        getEnv("JWT_ISSUER", "almanac-api"),
			AccessTTL:     durationOf("JWT_ACCESS_EXPIRES_IN", "15m"),
			RefreshTTL:    durationOf("JWT_REFRESH_EXPIRES_IN", "7d"),
			ResetTTL:      durationOf("JWT_RESET_EXPIRES_IN", "15m"),
		},
		Security: SecurityConfig{
			BcryptCost:            intOf("BCRYPT_COST", minBcryptCost),
			CodeTTL:               durationOf("CODE_TTL", "5m"),
			MaxCodeAttempts:       intOf("CODE_MAX_ATTEMPTS", 5),
			MaxFailedLogins:       intOf("LOGIN_MAX_ATTEMPTS", 5),
			LockDuration:          durationOf("LOGIN_LOCK_DURATION", "15m"),
			PasswordResetCooldown: durationOf("PASSWORD_RESET_COOLDOWN", "24h"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     intOf("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("EMAIL_FROM"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       intOf("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnv("RATE_LIMIT_ENABLED", "true") == "true",
			Requests: intOf("RATE_LIMIT_REQUESTS", 20),
			Window:   durationOf("RATE_LIMIT_WINDOW", "1m"),
			Block:    durationOf("RATE_LIMIT_BLOCK", "5m"),
		},
		Cookie: CookieConfig{
			Secure: getEnv("COOKIE_SECURE", "false") == "true",
			Domain: os.Getenv("COOKIE_DOMAIN"),
		},
		Admin: AdminConfig{
			Name:     getEnv("ADMIN_NAME", "Administrator"),
			Email:    strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	if cfg.Security.BcryptCost < minBcryptCost {
		cfg.Security.BcryptCost = minBcryptCost
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("missing required env var: JWT_SECRET"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("missing required env var: JWT_REFRESH_SECRET"))
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("missing required env var: MONGODB_URI"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.Security.MaxFailedLogins < 1 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Security.MaxCodeAttempts < 1 {
		errs = append(errs, errors.New("CODE_MAX_ATTEMPTS must be at least 1"))
	}
	return errs
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key, def string) (time.Duration, error) {
	v := getEnv(key, def)
	d, err := ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseDuration accepts time.ParseDuration syntax plus a whole-day suffix
// ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
