// Package notify implements the application notifier on top of the RabbitMQ
// email queue and Mailgun mailing lists.
package notify

import (
	"context"
	"errors"

	"github.com/teamdeckhq/teamdeck/internal/application"
	"github.com/teamdeckhq/teamdeck/pkg/helpers"
	"github.com/teamdeckhq/teamdeck/pkg/mailer"
	mailtpl "github.com/teamdeckhq/teamdeck/pkg/mailer/templates"
)

var errNotConfigured = errors.New("notifier not configured")

// Notifier publishes welcome mail onto the email queue and maintains the
// signup mailing list. Both paths report an Outcome instead of failing the
// caller; Publisher and Mailgun may be nil when the collaborator is not
// configured.
type Notifier struct {
	Publisher  *helpers.RabbitPublisher
	Mailgun    *mailer.Mailgun
	SignupList string
	AppName    string
	LogoURL    string
	SupportURL string
	Company    string
}

func (n *Notifier) SendWelcome(ctx context.Context, email, name string) application.Outcome {
	out := application.Outcome{Name: "welcome email"}
	if n.Publisher == nil {
		out.Err = errNotConfigured
		return out
	}
	job := mailer.EmailJob{
		To:       email,
		Template: mailtpl.Welcome,
		Data: map[string]any{
			"Name":        name,
			"AppName":     n.AppName,
			"LogoURL":     n.LogoURL,
			"SupportURL":  n.SupportURL,
			"CompanyName": n.Company,
		},
	}
	out.Err = n.Publisher.PublishJSON(ctx, job)
	return out
}

func (n *Notifier) SubscribeSignupList(ctx context.Context, email string) application.Outcome {
	out := application.Outcome{Name: "signup list subscribe"}
	if n.Mailgun == nil || n.SignupList == "" {
		out.Err = errNotConfigured
		return out
	}
	out.Err = n.Mailgun.SubscribeToList(ctx, email, n.SignupList)
	return out
}

var _ application.Notifier = (*Notifier)(nil)
