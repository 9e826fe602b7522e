package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

const CodeLength = 6

var (
	codeSpace   = big.NewInt(1_000_000)
	codePattern = regexp.MustCompile(`^\d{6}$`)
)

// GenerateCode returns a uniformly random six digit code, zero padded.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func IsCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}

// HashCode is the digest stored in place of a one-time code.
func HashCode(code string) string {
	return sha256Hex(code)
}

func CodeExpiry(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl)
}

// CodeMatches reports whether candidate hashes to storedHash and the code is
// still inside its validity window. An empty slot never matches.
func CodeMatches(storedHash string, expiry *time.Time, candidate string, now time.Time) bool {
	if storedHash == "" || expiry == nil || !IsCodeFormat(candidate) {
		return false
	}
	if now.After(*expiry) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashCode(candidate))) == 1
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
