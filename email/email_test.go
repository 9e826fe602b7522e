package email

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/almanac/almanacbackend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVerificationMessage(t *testing.T) {
	msg, err := VerificationMessage("ada@example.com", "Ada", "004211", 5*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Verify")
	assert.Contains(t, msg.HTML, "004211")
	assert.Contains(t, msg.HTML, "Welcome to Almanac, Ada!")
	assert.Contains(t, msg.HTML, "5 minutes")
	assert.Contains(t, msg.Text, "004211")
}

func TestPasswordResetMessageEscapesName(t *testing.T) {
	msg, err := PasswordResetMessage("ada@example.com", "<b>Ada</b>", "123456", 5*time.Minute)
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, "123456")
	assert.NotContains(t, msg.HTML, "<b>Ada</b>")
	assert.Contains(t, msg.HTML, "&lt;b&gt;Ada&lt;/b&gt;")
}

func TestBuildMIME(t *testing.T) {
	body, err := buildMIME("noreply@almanac.test", Message{
		To:      "ada@example.com",
		Subject: "Hello",
		HTML:    "<p>code</p>",
		Text:    "Your Almanac verification code is 123456.",
	})
	require.NoError(t, err)

	s := string(body)
	assert.True(t, strings.HasPrefix(s, "From: noreply@almanac.test\r\n"))
	assert.Contains(t, s, "To: ada@example.com\r\n")
	assert.Contains(t, s, "Subject: Hello\r\n")
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "text/plain")
	assert.Contains(t, s, "text/html")
	assert.Contains(t, s, "123456")
}

func TestNewPicksMailer(t *testing.T) {
	_, ok := New(config.SMTPConfig{}, zap.NewNop()).(*LogMailer)
	assert.True(t, ok)

	_, ok = New(config.SMTPConfig{Host: "smtp.test", Username: "u"}, zap.NewNop()).(*SMTPMailer)
	assert.True(t, ok)
}

func TestLogMailerNeverFails(t *testing.T) {
	err := NewLogMailer(zap.NewNop()).Send(context.Background(), Message{To: "ada@example.com"})
	assert.NoError(t, err)
}

func TestSMTPMailerRejectsEmptyRecipient(t *testing.T) {
	err := NewSMTPMailer(config.SMTPConfig{Host: "smtp.test", Port: 587}).Send(context.Background(), Message{})
	assert.Error(t, err)
}
