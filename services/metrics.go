package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almanac_auth_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	tokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almanac_auth_tokens_issued_total",
			Help: "Tokens issued by type",
		},
		[]string{"type"},
	)

	codesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "almanac_auth_codes_sent_total",
			Help: "One-time codes mailed by purpose and result",
		},
		[]string{"purpose", "result"},
	)

	accountLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "almanac_auth_account_lockouts_total",
			Help: "Accounts locked after repeated failed logins",
		},
	)

	passwordResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "almanac_auth_password_resets_total",
			Help: "Completed password resets",
		},
	)
)

const (
	outcomeSuccess    = "success"
	outcomeInvalid    = "invalid_credentials"
	outcomeLocked     = "locked"
	outcomeInactive   = "inactive"
	outcomeUnverified = "unverified"
	purposeVerify     = "email_verification"
	purposeReset      = "password_reset"
	resultSent        = "sent"
	resultFailed      = "failed"
)
