package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPasswordAndCompare(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("Secret1!", 10))

	assert.NotEqual(t, "Secret1!", u.PasswordHash)
	assert.True(t, u.ComparePassword("Secret1!"))
	assert.False(t, u.ComparePassword("secret1!"))

	old := u.PasswordHash
	require.NoError(t, u.SetPassword("Other2@", 10))
	assert.NotEqual(t, old, u.PasswordHash)
	assert.False(t, u.ComparePassword("Secret1!"))
}

func TestComparePasswordWithoutHash(t *testing.T) {
	assert.False(t, (&User{}).ComparePassword(""))
}

func TestCodeSlotsAreIndependent(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}

	u.SetCode(SlotEmailVerification, "email-hash", now.Add(5*time.Minute))
	u.SetCode(SlotPasswordReset, "reset-hash", now.Add(5*time.Minute))

	u.ClearCode(SlotEmailVerification)

	hash, exp := u.Code(SlotEmailVerification)
	assert.Empty(t, hash)
	assert.Nil(t, exp)

	hash, exp = u.Code(SlotPasswordReset)
	assert.Equal(t, "reset-hash", hash)
	require.NotNil(t, exp)
	assert.Equal(t, now.Add(5*time.Minute), *exp)
}

func TestLockWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(15 * time.Minute)
	u := &User{FailedLoginAttempts: 5, LockUntil: &until}

	assert.True(t, u.IsLocked(now))
	assert.Equal(t, 15*time.Minute, u.LockRemaining(now))
	assert.False(t, u.IsLocked(until))
	assert.Zero(t, u.LockRemaining(until.Add(time.Second)))

	u.ClearLock()
	assert.Zero(t, u.FailedLoginAttempts)
	assert.Nil(t, u.LockUntil)
}

func TestSanitizedDropsSecrets(t *testing.T) {
	exp := time.Now()
	u := User{
		Name:                        "Ada",
		PasswordHash:                "hash",
		EmailVerificationCode:       "a",
		EmailVerificationCodeExpiry: &exp,
		TwoFactorCode:               "b",
		TwoFactorCodeExpiry:         &exp,
	}

	s := u.Sanitized()
	assert.Empty(t, s.PasswordHash)
	assert.Empty(t, s.EmailVerificationCode)
	assert.Empty(t, s.TwoFactorCode)
	assert.Equal(t, "Ada", s.Name)
	assert.Equal(t, "hash", u.PasswordHash)
}

func TestRecordCodeFailure(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}
	u.SetCode(SlotEmailVerification, "email-hash", now.Add(5*time.Minute))
	u.SetCode(SlotPasswordReset, "reset-hash", now.Add(5*time.Minute))

	for i := 1; i < 3; i++ {
		assert.False(t, u.RecordCodeFailure(SlotPasswordReset, 3))
		assert.Equal(t, i, u.TwoFactorAttempts)
	}
	assert.True(t, u.RecordCodeFailure(SlotPasswordReset, 3))
	hash, exp := u.Code(SlotPasswordReset)
	assert.Empty(t, hash)
	assert.Nil(t, exp)
	assert.Zero(t, u.TwoFactorAttempts)

	hash, _ = u.Code(SlotEmailVerification)
	assert.Equal(t, "email-hash", hash)
	assert.Zero(t, u.EmailVerificationAttempts)

	assert.False(t, u.RecordCodeFailure(SlotEmailVerification, 3))
	assert.Equal(t, 1, u.EmailVerificationAttempts)
	u.SetCode(SlotEmailVerification, "fresh-hash", now.Add(5*time.Minute))
	assert.Zero(t, u.EmailVerificationAttempts)
}
