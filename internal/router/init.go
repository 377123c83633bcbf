package router

import (
	"github.com/teamdeckhq/teamdeck/internal/application"
	"github.com/teamdeckhq/teamdeck/internal/container"
	"github.com/teamdeckhq/teamdeck/internal/infrastructure/notify"
	pginfra "github.com/teamdeckhq/teamdeck/internal/infrastructure/postgres"
	handlers "github.com/teamdeckhq/teamdeck/internal/interface/http"
	"github.com/teamdeckhq/teamdeck/internal/router/modules"
	"github.com/teamdeckhq/teamdeck/pkg/slugger"
)

// InitModules wires repositories, the account service, and handlers, then
// registers all feature modules. Called once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	accounts := pginfra.NewAccountRepository(pool)
	teams := pginfra.NewTeamRepository(pool)
	invites := pginfra.NewInvitationRepository(pool)

	notifier := &notify.Notifier{
		Publisher:  container.GetRabbitPub(),
		Mailgun:    container.GetMailgun(),
		SignupList: cfg.MailgunSignupList,
		AppName:    cfg.AppName,
		LogoURL:    cfg.LogoURL,
		SupportURL: cfg.SupportURL,
		Company:    cfg.CompanyName,
	}

	svc := application.NewService(
		accounts,
		teams,
		invites,
		slugger.New(accounts),
		container.GetGateway(),
		notifier,
		logger,
		container.GetES(),
		cfg.ESAccountsIndex,
	)

	authHandler := handlers.NewAuthHandler(svc, container.GetOAuth(), container.GetJWT(), container.GetRedis(), logger, cfg.CookieDomain, cfg.CookieSecure)
	accountHandler := handlers.NewAccountHandler(svc, logger, container.GetGCS(), cfg.GCSBucket)
	billingHandler := handlers.NewBillingHandler(svc, logger)
	teamHandler := handlers.NewTeamHandler(svc, logger)

	r.Add(modules.NewAuthModule(authHandler, container.GetJWT()))
	r.Add(modules.NewAccountModule(accountHandler, container.GetJWT()))
	r.Add(modules.NewBillingModule(billingHandler, container.GetJWT()))
	r.Add(modules.NewTeamModule(teamHandler, container.GetJWT()))
}
