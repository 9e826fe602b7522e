package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type codeData struct {
	Name    string
	Code    string
	Minutes int
}

var (
	verificationHTML = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Welcome to Almanac{{if .Name}}, {{.Name}}{{end}}!</h2>
  <p>Use the code below to verify your email address:</p>
  <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
  <p>This code expires in {{.Minutes}} minutes.</p>
  <p>If you did not create an account, you can ignore this email.</p>
</body>
</html>`))

	passwordResetHTML = template.Must(template.New("password_reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Password reset request</h2>
  <p>{{if .Name}}Hi {{.Name}}, u{{else}}U{{end}}se the code below to reset your Almanac password:</p>
  <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
  <p>This code expires in {{.Minutes}} minutes.</p>
  <p>If you did not request a password reset, please ignore this email. Your password will not change.</p>
</body>
</html>`))
)

// VerificationMessage renders the email-verification code mail.
func VerificationMessage(to, name, code string, ttl time.Duration) (Message, error) {
	data := codeData{Name: name, Code: code, Minutes: minutes(ttl)}
	html, err := render(verificationHTML, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Verify your Almanac account",
		HTML:    html,
		Text:    fmt.Sprintf("Your Almanac verification code is %s. It expires in %d minutes.", code, data.Minutes),
	}, nil
}

// PasswordResetMessage renders the password-reset code mail.
func PasswordResetMessage(to, name, code string, ttl time.Duration) (Message, error) {
	data := codeData{Name: name, Code: code, Minutes: minutes(ttl)}
	html, err := render(passwordResetHTML, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Your Almanac password reset code",
		HTML:    html,
		Text:    fmt.Sprintf("Your Almanac password reset code is %s. It expires in %d minutes.", code, data.Minutes),
	}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func minutes(d time.Duration) int {
	m := int(d / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}
