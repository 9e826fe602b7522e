package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/config"
	"github.com/almanac/almanacbackend/database"
	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/email"
	"github.com/almanac/almanacbackend/models"
	"github.com/almanac/almanacbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type LoginResult struct {
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
	User         models.UserSummary `json:"user"`
}

// AuthService runs the account workflows: registration, email verification,
// login with lockout, logout, refresh and the password reset flows.
// It holds no per-request state.
type AuthService struct {
	users  UserStore
	tokens *TokenService
	mailer email.Mailer
	cfg    config.SecurityConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(users UserStore, tokens *TokenService, mailer email.Mailer, cfg config.SecurityConfig, log *zap.Logger, now func() time.Time) *AuthService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxCodeAttempts < 1 {
		cfg.MaxCodeAttempts = defaultMaxCodeAttempts
	}
	return &AuthService{users: users, tokens: tokens, mailer: mailer, cfg: cfg, log: log, now: now}
}

const defaultMaxCodeAttempts = 5

func invalidCredentials() error {
	return apperrors.Authentication("Invalid credentials")
}

func invalidCode() error {
	return apperrors.Validation("Invalid or expired code")
}

func tooManyCodeAttempts() error {
	return apperrors.Validation("Too many incorrect attempts. Please request a new code")
}

func invalidRefreshToken() error {
	return apperrors.Authentication("Invalid or expired refresh token")
}

// hashFailure maps a SetPassword error. Over-long input is the caller's
// fault, anything else is ours.
func hashFailure(err error) error {
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return apperrors.Validation("Password must be at most 72 bytes")
	}
	return apperrors.Server("Failed to hash password", err)
}

func lockedFor(remaining time.Duration) error {
	return apperrors.AccountLocked(int(math.Ceil(remaining.Minutes())))
}

// findByEmail maps a missing user to (nil, nil) so callers choose the error.
func (s *AuthService) findByEmail(ctx context.Context, addr string) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, addr)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Server("Failed to load user", err)
	}
	return u, nil
}

// checkCode compares candidate with the code pending in slot. A wrong guess
// against a pending code is counted, and the code is discarded once
// cfg.MaxCodeAttempts guesses have failed.
func (s *AuthService) checkCode(ctx context.Context, u *models.User, slot models.CodeSlot, candidate string) error {
	hash, exp := u.Code(slot)
	if utils.CodeMatches(hash, exp, candidate, s.now()) {
		return nil
	}
	if hash == "" {
		return invalidCode()
	}
	exhausted := u.RecordCodeFailure(slot, s.cfg.MaxCodeAttempts)
	if err := s.save(ctx, u); err != nil {
		return err
	}
	if exhausted {
		s.log.Warn("pending code discarded after failed attempts",
			zap.String("email", u.Email), zap.Stringer("slot", slot))
		return tooManyCodeAttempts()
	}
	return invalidCode()
}

func (s *AuthService) save(ctx context.Context, u *models.User) error {
	u.UpdatedAt = s.now()
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return apperrors.Conflict("An account with this email already exists")
		}
		return apperrors.Server("Failed to save user", err)
	}
	return nil
}

// newCode generates a code whose hash differs from whatever either slot
// currently holds, so the slots never share a value and a resent code always
// replaces the previous one.
func (s *AuthService) newCode(u *models.User) (string, error) {
	for i := 0; i < 8; i++ {
		code, err := utils.GenerateCode()
		if err != nil {
			return "", apperrors.Server("Failed to generate code", err)
		}
		h := utils.HashCode(code)
		if h != u.EmailVerificationCode && h != u.TwoFactorCode {
			return code, nil
		}
	}
	return "", apperrors.Server("Failed to generate a fresh code", nil)
}

func (s *AuthService) Register(ctx context.Context, in dto.RegisterDTO) (*models.UserSummary, error) {
	name := utils.NormalizeName(in.Name)
	addr := utils.NormalizeEmail(in.Email)
	if name == "" || addr == "" || in.Password == "" {
		return nil, apperrors.Validation("Name, email and password are required")
	}
	if err := utils.ValidateName(name); err != nil {
		return nil, err
	}
	if err := utils.ValidateEmail(addr); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	existing, err := s.findByEmail(ctx, addr)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("An account with this email already exists")
	}

	now := s.now()
	u := &models.User{
		Name:        name,
		Email:       addr,
		Role:        models.RoleUser,
		IsActive:    true,
		Preferences: models.DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.SetPassword(in.Password, s.cfg.BcryptCost); err != nil {
		return nil, hashFailure(err)
	}
	code, err := s.newCode(u)
	if err != nil {
		return nil, err
	}
	u.SetCode(models.SlotEmailVerification, utils.HashCode(code), utils.CodeExpiry(now, s.cfg.CodeTTL))

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperrors.Conflict("An account with this email already exists")
		}
		return nil, apperrors.Server("Failed to create user", err)
	}

	// The account exists either way; the user can ask for a new code.
	if err := s.sendVerification(ctx, u, code); err != nil {
		s.log.Warn("verification email failed after registration",
			zap.String("email", u.Email), zap.Error(err))
	}

	summary := u.Summary()
	return &summary, nil
}

func (s *AuthService) sendVerification(ctx context.Context, u *models.User, code string) error {
	msg, err := email.VerificationMessage(u.Email, u.Name, code, s.cfg.CodeTTL)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		codesSent.WithLabelValues(purposeVerify, resultFailed).Inc()
		return err
	}
	codesSent.WithLabelValues(purposeVerify, resultSent).Inc()
	return nil
}

func (s *AuthService) sendPasswordReset(ctx context.Context, u *models.User, code string) error {
	msg, err := email.PasswordResetMessage(u.Email, u.Name, code, s.cfg.CodeTTL)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		codesSent.WithLabelValues(purposeReset, resultFailed).Inc()
		return err
	}
	codesSent.WithLabelValues(purposeReset, resultSent).Inc()
	return nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, in dto.VerifyCodeDTO) (string, error) {
	addr := utils.NormalizeEmail(in.Email)
	if addr == "" || in.Code == "" {
		return "", apperrors.Validation("Email and code are required")
	}
	u, err := s.findByEmail(ctx, addr)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", invalidCode()
	}
	if u.IsEmailVerified {
		return "", apperrors.Validation("Email is already verified")
	}

	if err := s.checkCode(ctx, u, models.SlotEmailVerification, in.Code); err != nil {
		return "", err
	}

	u.IsEmailVerified = true
	u.ClearCode(models.SlotEmailVerification)
	if err := s.save(ctx, u); err != nil {
		return "", err
	}
	s.log.Info("email verified", zap.String("email", u.Email))
	return u.Email, nil
}

func (s *AuthService) ResendVerification(ctx context.Context, in dto.EmailDTO) (string, error) {
	addr := utils.NormalizeEmail(in.Email)
	if addr == "" {
		return "", apperrors.Validation("Email is required")
	}
	u, err := s.findByEmail(ctx, addr)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", apperrors.NotFound("No account found with that email")
	}
	if u.IsEmailVerified {
		return "", apperrors.Validation("Email is already verified")
	}

	code, err := s.newCode(u)
	if err != nil {
		return "", err
	}
	u.SetCode(models.SlotEmailVerification, utils.HashCode(code), utils.CodeExpiry(s.now(), s.cfg.CodeTTL))
	if err := s.save(ctx, u); err != nil {
		return "", err
	}

	if err := s.sendVerification(ctx, u, code); err != nil {
		u.ClearCode(models.SlotEmailVerification)
		if saveErr := s.save(ctx, u); saveErr != nil {
			s.log.Error("failed to clear verification code after send failure",
				zap.String("email", u.Email), zap.Error(saveErr))
		}
		return "", apperrors.EmailService(err)
	}
	return u.Email, nil
}

// Login checks credentials and issues a token pair. Failed attempts are
// counted on the user; reaching the limit opens a lockout window.
func (s *AuthService) Login(ctx context.Context, in dto.LoginDTO) (*LoginResult, error) {
	addr := utils.NormalizeEmail(in.Email)
	if addr == "" || in.Password == "" {
		return nil, apperrors.Validation("Email and password are required")
	}
	u, err := s.findByEmail(ctx, addr)
	if err != nil {
		return nil, err
	}
	if u == nil {
		loginAttempts.WithLabelValues(outcomeInvalid).Inc()
		return nil, invalidCredentials()
	}
	if !u.IsActive {
		loginAttempts.WithLabelValues(outcomeInactive).Inc()
		return nil, apperrors.Authentication("Account is deactivated")
	}
	if !u.IsEmailVerified {
		loginAttempts.WithLabelValues(outcomeUnverified).Inc()
		return nil, apperrors.Authentication("Please verify your email before logging in")
	}

	now := s.now()
	if u.IsLocked(now) {
		loginAttempts.WithLabelValues(outcomeLocked).Inc()
		return nil, lockedFor(u.LockRemaining(now))
	}

	if !u.ComparePassword(in.Password) {
		u.FailedLoginAttempts++
		if u.FailedLoginAttempts >= s.cfg.MaxFailedLogins {
			until := now.Add(s.cfg.LockDuration)
			u.LockUntil = &until
			accountLockouts.Inc()
			s.log.Warn("account locked after failed logins",
				zap.String("email", u.Email), zap.Int("attempts", u.FailedLoginAttempts))
		}
		if err := s.save(ctx, u); err != nil {
			return nil, err
		}
		loginAttempts.WithLabelValues(outcomeInvalid).Inc()
		return nil, invalidCredentials()
	}

	u.ClearLock()
	u.LastLogin = &now
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(ctx, u)
	if err != nil {
		return nil, apperrors.Server("Failed to issue tokens", err)
	}
	loginAttempts.WithLabelValues(outcomeSuccess).Inc()
	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         u.Summary(),
	}, nil
}

// Logout revokes refreshToken when given, otherwise every refresh token of
// the user.
func (s *AuthService) Logout(ctx context.Context, userID bson.ObjectID, refreshToken string) error {
	if refreshToken != "" {
		if err := s.tokens.Revoke(ctx, refreshToken, userID); err != nil {
			return apperrors.Server("Failed to revoke refresh token", err)
		}
		return nil
	}
	if _, err := s.tokens.RevokeAll(ctx, userID); err != nil {
		return apperrors.Server("Failed to revoke refresh tokens", err)
	}
	return nil
}

// Refresh exchanges a live refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, in dto.RefreshDTO) (string, error) {
	if in.RefreshToken == "" {
		return "", apperrors.Validation("Refresh token is required")
	}
	claims, err := s.tokens.VerifyRefresh(in.RefreshToken)
	if err != nil {
		return "", invalidRefreshToken()
	}
	live, err := s.tokens.IsRefreshTokenLive(ctx, in.RefreshToken)
	if err != nil {
		return "", apperrors.Server("Failed to check refresh token", err)
	}
	if !live {
		return "", invalidRefreshToken()
	}

	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return "", invalidRefreshToken()
	}
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return "", invalidRefreshToken()
	}
	if err != nil {
		return "", apperrors.Server("Failed to load user", err)
	}
	if !u.IsActive {
		return "", invalidRefreshToken()
	}

	access, err := s.tokens.IssueAccessToken(u)
	if err != nil {
		return "", apperrors.Server("Failed to issue access token", err)
	}
	return access, nil
}

// ForgotPassword mails a reset code. The cooldown anchor is stamped when the
// code goes out, so a second request inside the cooldown is refused by
// CheckResetCooldown.
func (s *AuthService) ForgotPassword(ctx context.Context, in dto.EmailDTO) (string, error) {
	addr := utils.NormalizeEmail(in.Email)
	if addr == "" {
		return "", apperrors.Validation("Email is required")
	}
	u, err := s.findByEmail(ctx, addr)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", apperrors.NotFound("No account found with that email")
	}
	if !u.IsActive {
		return "", apperrors.Authentication("Account is deactivated")
	}

	if err := s.issueResetCode(ctx, u, true); err != nil {
		return "", err
	}
	return u.Email, nil
}

// RequestPasswordChange mails a code to a logged-in user who proved the
// current password. The code is then presented to ResetPassword.
func (s *AuthService) RequestPasswordChange(ctx context.Context, userID bson.ObjectID, in dto.ChangePasswordRequestDTO) (string, error) {
	if in.CurrentPassword == "" {
		return "", apperrors.Validation("Current password is required")
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if !u.ComparePassword(in.CurrentPassword) {
		return "", apperrors.Authentication("Current password is incorrect")
	}
	if err := s.issueResetCode(ctx, u, false); err != nil {
		return "", err
	}
	return u.Email, nil
}

func (s *AuthService) issueResetCode(ctx context.Context, u *models.User, stampCooldown bool) error {
	code, err := s.newCode(u)
	if err != nil {
		return err
	}
	now := s.now()
	prevStamp := u.LastPasswordResetAt
	u.SetCode(models.SlotPasswordReset, utils.HashCode(code), utils.CodeExpiry(now, s.cfg.CodeTTL))
	if stampCooldown {
		u.LastPasswordResetAt = &now
	}
	if err := s.save(ctx, u); err != nil {
		return err
	}

	if err := s.sendPasswordReset(ctx, u, code); err != nil {
		u.ClearCode(models.SlotPasswordReset)
		u.LastPasswordResetAt = prevStamp
		if saveErr := s.save(ctx, u); saveErr != nil {
			s.log.Error("failed to roll back reset code after send failure",
				zap.String("email", u.Email), zap.Error(saveErr))
		}
		return apperrors.EmailService(err)
	}
	return nil
}

// VerifyResetCode checks a reset code and returns a short-lived reset token.
// The code stays in place so ResetPassword can re-check it.
func (s *AuthService) VerifyResetCode(ctx context.Context, in dto.VerifyCodeDTO) (string, error) {
	addr := utils.NormalizeEmail(in.Email)
	if addr == "" || in.Code == "" {
		return "", apperrors.Validation("Email and code are required")
	}
	u, err := s.findByEmail(ctx, addr)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", invalidCode()
	}
	if err := s.checkCode(ctx, u, models.SlotPasswordReset, in.Code); err != nil {
		return "", err
	}
	if !u.IsActive {
		return "", apperrors.Authentication("Account is deactivated")
	}

	tok, err := s.tokens.IssueResetToken(u)
	if err != nil {
		return "", apperrors.Server("Failed to issue reset token", err)
	}
	return tok, nil
}

// ResetPassword sets a new password for userID. With a reset-purpose token
// the code is optional (re-checked when sent) but the pending code must not
// have been consumed yet; with a normal access token the code is required.
// Every refresh token of the user is revoked afterwards.
func (s *AuthService) ResetPassword(ctx context.Context, userID bson.ObjectID, purpose string, in dto.ResetPasswordDTO) (*models.UserSummary, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case in.Code != "":
		if err := s.checkCode(ctx, u, models.SlotPasswordReset, in.Code); err != nil {
			return nil, err
		}
	case purpose == utils.PurposePasswordReset:
		if hash, _ := u.Code(models.SlotPasswordReset); hash == "" {
			return nil, apperrors.Validation("Password reset session is no longer valid")
		}
	default:
		return nil, apperrors.Validation("Verification code is required")
	}

	if in.NewPassword == "" {
		return nil, apperrors.Validation("New password is required")
	}
	if err := utils.ValidatePasswordLength(in.NewPassword); err != nil {
		return nil, err
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.NewPassword {
		return nil, apperrors.Validation("Passwords do not match")
	}
	if u.ComparePassword(in.NewPassword) {
		return nil, apperrors.Validation("New password must be different from the current password")
	}

	if err := u.SetPassword(in.NewPassword, s.cfg.BcryptCost); err != nil {
		return nil, hashFailure(err)
	}
	u.LastPasswordResetAt = &now
	u.ClearCode(models.SlotPasswordReset)
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}

	if _, err := s.tokens.RevokeAll(ctx, u.ID); err != nil {
		s.log.Error("failed to revoke refresh tokens after password reset",
			zap.String("userId", u.ID.Hex()), zap.Error(err))
	}
	passwordResets.Inc()
	s.log.Info("password reset", zap.String("email", u.Email))

	summary := u.Summary()
	return &summary, nil
}

func (s *AuthService) Me(ctx context.Context, userID bson.ObjectID) (*models.UserSummary, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := u.Summary()
	return &summary, nil
}

func (s *AuthService) loadUser(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.Server("Failed to load user", err)
	}
	return u, nil
}
