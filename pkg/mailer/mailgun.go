package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun wraps Mailgun client configuration for transactional mail and
// mailing-list membership.
type Mailgun struct {
	Domain string
	APIKey string
	Sender string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Domain: domain, APIKey: apiKey, Sender: sender}
}

// Send sends an email via Mailgun. html is optional; if provided it is used
// as the HTML body with text as fallback.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	client := mg.NewMailgun(m.Domain, m.APIKey)
	msg := client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := client.Send(c, msg)
	return err
}

// SubscribeToList adds the address to a Mailgun mailing list, merging with an
// existing membership if present.
func (m *Mailgun) SubscribeToList(ctx context.Context, email, list string) error {
	client := mg.NewMailgun(m.Domain, m.APIKey)
	subscribed := true
	member := mg.Member{Address: email, Subscribed: &subscribed}
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return client.CreateMember(c, true, list, member)
}
