package mailer

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhub/moderation-api/pkg/config"
)

func enabledMailer(capture *string) *SMTPMailer {
	m := New(config.MailConfig{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    25,
		From:    "review@example.com",
	}, nil)
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		*capture = string(msg)
		return nil
	}
	return m
}

func TestSendFeedbackTemplateIncludesFeedbackText(t *testing.T) {
	var sent string
	m := enabledMailer(&sent)

	err := m.Send(context.Background(), "author@example.com", "review_feedback", map[string]string{
		"full_name": "Author One",
		"title":     "On moderation",
		"feedback":  "needs citations",
	})
	require.NoError(t, err)
	assert.Contains(t, sent, "needs citations")
	assert.Contains(t, sent, "On moderation")
	assert.NotContains(t, sent, "{{feedback}}")
}

func TestSendUnknownTemplate(t *testing.T) {
	var sent string
	m := enabledMailer(&sent)

	err := m.Send(context.Background(), "author@example.com", "no_such_template", nil)
	require.Error(t, err)
	assert.Empty(t, sent)
}

func TestSendDisabledSkipsDelivery(t *testing.T) {
	var sent string
	m := enabledMailer(&sent)
	m.cfg.Enabled = false

	err := m.Send(context.Background(), "author@example.com", "content_published", map[string]string{
		"full_name": "Author One",
		"title":     "On moderation",
	})
	require.NoError(t, err)
	assert.Empty(t, sent)
}
