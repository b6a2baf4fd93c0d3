package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendLoginCode(ctx context.Context, toEmail, code string, expiresIn time.Duration) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	msg := loginCodeMessage(code, expiresIn)
	return m.sendEmail(ctx, toEmail, msg)
}

func (m *MailerSendClient) sendEmail(ctx context.Context, toEmail string, content message) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: toEmail}})
	msg.SetSubject(content.subject)

	if strings.TrimSpace(content.text) != "" {
		msg.SetText(content.text)
	}
	if strings.TrimSpace(content.html) != "" {
		msg.SetHTML(content.html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
