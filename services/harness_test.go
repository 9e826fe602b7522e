package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/almanac/almanacbackend/config"
	"github.com/almanac/almanacbackend/database"
	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/email"
	"github.com/almanac/almanacbackend/models"
	"github.com/almanac/almanacbackend/utils"
	"github.com/stretchr/testify/require"
)

const testPassword = "Secret1!"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
	fail error
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) failWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var mailedCode = regexp.MustCompile(`\b\d{6}\b`)

// lastCode returns the code in the most recent mail to addr.
func (m *fakeMailer) lastCode(t *testing.T, addr string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == addr {
			code := mailedCode.FindString(m.sent[i].Text)
			require.NotEmpty(t, code, "no code in mail to %s", addr)
			return code
		}
	}
	t.Fatalf("no mail sent to %s", addr)
	return ""
}

type harness struct {
	clock     *fakeClock
	mailer    *fakeMailer
	users     *database.MemoryUserStore
	refresh   *database.MemoryRefreshTokenStore
	calendars *database.MemoryCalendarStore
	members   *database.MemoryMemberStore

	tokens      *TokenService
	auth        *AuthService
	userSvc     *UserService
	calendarSvc *CalendarService
	memberSvc   *MemberService
}

var testSecurity = config.SecurityConfig{
	BcryptCost:            10,
	CodeTTL:               5 * time.Minute,
	MaxCodeAttempts:       5,
	MaxFailedLogins:       5,
	LockDuration:          15 * time.Minute,
	PasswordResetCooldown: 24 * time.Hour,
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:     &fakeClock{t: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)},
		mailer:    &fakeMailer{},
		users:     database.NewMemoryUserStore(),
		refresh:   database.NewMemoryRefreshTokenStore(),
		calendars: database.NewMemoryCalendarStore(),
		members:   database.NewMemoryMemberStore(),
	}
	signer := utils.NewTokenSigner(config.JWTConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		Issuer:        "almanac-api",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		ResetTTL:      15 * time.Minute,
	}, h.clock.Now)
	h.tokens = NewTokenService(signer, h.refresh, h.clock.Now)
	h.auth = NewAuthService(h.users, h.tokens, h.mailer, testSecurity, nil, h.clock.Now)
	h.userSvc = NewUserService(h.users, h.refresh, h.calendars, h.members, testSecurity, nil, h.clock.Now)
	h.calendarSvc = NewCalendarService(h.calendars, h.members, nil, h.clock.Now)
	h.memberSvc = NewMemberService(h.members, h.calendars, h.users, h.clock.Now)
	return h
}

// seedUser stores an active, verified account directly.
func (h *harness) seedUser(t *testing.T, addr string, role models.Role) *models.User {
	t.Helper()
	now := h.clock.Now()
	u := &models.User{
		Name:            "Test User",
		Email:           addr,
		Role:            role,
		IsActive:        true,
		IsEmailVerified: true,
		Preferences:     models.DefaultPreferences(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, u.SetPassword(testPassword, testSecurity.BcryptCost))
	require.NoError(t, h.users.Create(context.Background(), u))
	return u
}

// registerVerified goes through register and verify-email.
func (h *harness) registerVerified(t *testing.T, addr string) *models.User {
	t.Helper()
	ctx := context.Background()
	_, err := h.auth.Register(ctx, dto.RegisterDTO{Name: "Ada Lovelace", Email: addr, Password: testPassword})
	require.NoError(t, err)
	_, err = h.auth.VerifyEmail(ctx, dto.VerifyCodeDTO{Email: addr, Code: h.mailer.lastCode(t, addr)})
	require.NoError(t, err)
	return h.user(t, addr)
}

func (h *harness) user(t *testing.T, addr string) *models.User {
	t.Helper()
	u, err := h.users.FindByEmail(context.Background(), addr)
	require.NoError(t, err)
	return u
}

func (h *harness) login(t *testing.T, addr, password string) *LoginResult {
	t.Helper()
	res, err := h.auth.GuardedLogin()(context.Background(), dto.LoginDTO{Email: addr, Password: password})
	require.NoError(t, err)
	return res
}
