package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/quillhub/moderation-api/pkg/config"
)

// Templates for transactional review emails. The body text keeps simple
// {{name}} placeholders filled from the vars map.
var templates = map[string]struct {
	Subject string
	Body    string
}{
	"review_feedback": {
		Subject: "Your submission needs changes",
		Body:    "Hi {{full_name}},\n\nA moderator reviewed \"{{title}}\" and requested changes:\n\n{{feedback}}\n\nPlease revise and resubmit.",
	},
	"content_published": {
		Subject: "Your submission is live",
		Body:    "Hi {{full_name}},\n\n\"{{title}}\" passed review and has been published.",
	},
	"content_discarded": {
		Subject: "Your submission was not accepted",
		Body:    "Hi {{full_name}},\n\n\"{{title}}\" was removed from the review queue.\n\nReason: {{reason}}",
	},
}

// SMTPMailer sends templated plain-text mail over SMTP. When disabled it
// logs the send instead, which keeps development setups mail-server free.
type SMTPMailer struct {
	cfg    config.MailConfig
	logger *zap.Logger
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg config.MailConfig, logger *zap.Logger) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPMailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// Send renders the named template and delivers it. Unknown templates are an
// error so a typo in an effect payload surfaces in the logs.
func (m *SMTPMailer) Send(ctx context.Context, toEmail, template string, vars map[string]string) error {
	tpl, ok := templates[template]
	if !ok {
		return fmt.Errorf("unknown mail template %q", template)
	}
	subject := fill(tpl.Subject, vars)
	body := fill(tpl.Body, vars)

	if !m.cfg.Enabled {
		m.logger.Info("mail delivery disabled, skipping send",
			zap.String("to", toEmail),
			zap.String("template", template),
			zap.String("subject", subject))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.cfg.From, toEmail, subject, body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := m.send(addr, auth, m.cfg.From, []string{toEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", toEmail, err)
	}
	return nil
}

func fill(text string, vars map[string]string) string {
	for key, value := range vars {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}
