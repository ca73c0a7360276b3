// Package notify delivers the fire-and-forget "account blocked" notice over
// SMTP. Without SMTP settings it runs in dev mode and logs instead of
// sending, so blocking never depends on mail configuration.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"
)

type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
	devMode  bool
}

func NewMailer(host, port, username, password, from, fromName string) *Mailer {
	devMode := host == "" || from == ""
	if devMode {
		log.Println("mailer running in dev mode (logging instead of sending)")
	}
	if fromName == "" {
		fromName = "WordPress Quiz"
	}
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		devMode:  devMode,
	}
}

// NotifyBlocked sends the blocked-account notice.
func (m *Mailer) NotifyBlocked(ctx context.Context, email, reason string) error {
	subject := "Account Blocked - WordPress Quiz"
	body := blockedBody(reason)
	return m.send(ctx, email, subject, body)
}

func blockedBody(reason string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: #dc2626; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0;">
      <h1>Account Blocked</h1>
    </div>
    <div style="background: #f9f9f9; padding: 30px; border-radius: 0 0 8px 8px;">
      <h2>Your Account Has Been Blocked</h2>
      <div style="background: #fee2e2; border-left: 4px solid #dc2626; padding: 15px; margin: 20px 0;">
        <p><strong>Reason:</strong> %s</p>
      </div>
      <p>Your account has been temporarily blocked due to a violation of our quiz rules.</p>
      <p>If you believe this is an error, please contact the administrator.</p>
    </div>
    <div style="text-align: center; margin-top: 20px; color: #666; font-size: 12px;">
      <p>&copy; %d WordPress Developer Quiz. All rights reserved.</p>
    </div>
  </div>
</body>
</html>`, reason, time.Now().Year())
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if m.devMode {
		log.Printf("mailer dev mode: to=%s subject=%q", to, subject)
		return nil
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", m.fromName, m.from),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	addr := m.host + ":" + m.port
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	// net/smtp has no context support; run the send in a goroutine so a hung
	// server cannot outlive the caller's deadline.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail to %s: %w", to, ctx.Err())
	}
}
