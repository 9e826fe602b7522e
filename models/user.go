package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

const DefaultTimezone = "America/Toronto"

type NotificationPreferences struct {
	Email bool `bson:"email" json:"email"`
	SMS   bool `bson:"sms" json:"sms"`
	Push  bool `bson:"push" json:"push"`
}

type Preferences struct {
	Timezone      string                  `bson:"timezone" json:"timezone"`
	Notifications NotificationPreferences `bson:"notifications" json:"notifications"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Timezone:      DefaultTimezone,
		Notifications: NotificationPreferences{Email: true, SMS: false, Push: true},
	}
}

// CodeSlot names one of the two independent one-time code slots on a user.
type CodeSlot int

const (
	SlotEmailVerification CodeSlot = iota
	SlotPasswordReset
)

func (s CodeSlot) String() string {
	if s == SlotPasswordReset {
		return "password_reset"
	}
	return "email_verification"
}

type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string        `bson:"name" json:"name"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"password" json:"-"`
	Role         Role          `bson:"role" json:"role"`
	IsActive     bool          `bson:"isActive" json:"isActive"`

	IsEmailVerified             bool       `bson:"isEmailVerified" json:"isEmailVerified"`
	EmailVerificationCode       string     `bson:"emailVerificationCode,omitempty" json:"-"`
	EmailVerificationCodeExpiry *time.Time `bson:"emailVerificationCodeExpiry,omitempty" json:"-"`
	EmailVerificationAttempts   int        `bson:"emailVerificationAttempts,omitempty" json:"-"`

	TwoFactorCode       string     `bson:"twoFactorCode,omitempty" json:"-"`
	TwoFactorCodeExpiry *time.Time `bson:"twoFactorCodeExpiry,omitempty" json:"-"`
	TwoFactorAttempts   int        `bson:"twoFactorAttempts,omitempty" json:"-"`

	FailedLoginAttempts int        `bson:"failedLoginAttempts" json:"-"`
	LockUntil           *time.Time `bson:"lockUntil,omitempty" json:"-"`
	LastPasswordResetAt *time.Time `bson:"lastPasswordResetAt,omitempty" json:"-"`
	LastLogin           *time.Time `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`

	Preferences Preferences `bson:"preferences" json:"preferences"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HashPassword returns the bcrypt hash of plain. Costs below
// bcrypt.DefaultCost are raised to it.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	return string(b), err
}

// SetPassword re-hashes and stores a new plaintext password.
func (u *User) SetPassword(plain string, cost int) error {
	hash, err := HashPassword(plain, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}

// IsLocked reports whether a lockout window is open at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// LockRemaining is the time left on the lockout, zero when unlocked.
func (u *User) LockRemaining(now time.Time) time.Duration {
	if !u.IsLocked(now) {
		return 0
	}
	return u.LockUntil.Sub(now)
}

func (u *User) ClearLock() {
	u.FailedLoginAttempts = 0
	u.LockUntil = nil
}

// Code returns the hash and expiry held in slot.
func (u *User) Code(slot CodeSlot) (string, *time.Time) {
	if slot == SlotPasswordReset {
		return u.TwoFactorCode, u.TwoFactorCodeExpiry
	}
	return u.EmailVerificationCode, u.EmailVerificationCodeExpiry
}

// SetCode stores hash and expiry together in slot and resets its failure
// count. The other slot is untouched.
func (u *User) SetCode(slot CodeSlot, hash string, expiry time.Time) {
	if slot == SlotPasswordReset {
		u.TwoFactorCode, u.TwoFactorCodeExpiry, u.TwoFactorAttempts = hash, &expiry, 0
		return
	}
	u.EmailVerificationCode, u.EmailVerificationCodeExpiry, u.EmailVerificationAttempts = hash, &expiry, 0
}

// ClearCode empties slot. The other slot is untouched.
func (u *User) ClearCode(slot CodeSlot) {
	if slot == SlotPasswordReset {
		u.TwoFactorCode, u.TwoFactorCodeExpiry, u.TwoFactorAttempts = "", nil, 0
		return
	}
	u.EmailVerificationCode, u.EmailVerificationCodeExpiry, u.EmailVerificationAttempts = "", nil, 0
}

// RecordCodeFailure counts a wrong code against slot. When max failures are
// reached the pending code is discarded and true is returned.
func (u *User) RecordCodeFailure(slot CodeSlot, max int) bool {
	attempts := &u.EmailVerificationAttempts
	if slot == SlotPasswordReset {
		attempts = &u.TwoFactorAttempts
	}
	*attempts++
	if max > 0 && *attempts >= max {
		u.ClearCode(slot)
		return true
	}
	return false
}

// Sanitized returns a copy without password or code hashes, safe to hand to
// request handlers as the authenticated identity.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.ClearCode(SlotEmailVerification)
	u.ClearCode(SlotPasswordReset)
	return u
}

// UserSummary is the public projection returned by auth endpoints.
type UserSummary struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:              u.ID.Hex(),
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		LastLogin:       u.LastLogin,
	}
}
