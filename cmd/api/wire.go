package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/adspace-backend/api/routes"
	"github.com/angelmondragon/adspace-backend/internal/auth"
	"github.com/angelmondragon/adspace-backend/internal/availability"
	"github.com/angelmondragon/adspace-backend/internal/campaignitems"
	"github.com/angelmondragon/adspace-backend/internal/campaigns"
	"github.com/angelmondragon/adspace-backend/internal/cancellations"
	"github.com/angelmondragon/adspace-backend/internal/catalog"
	"github.com/angelmondragon/adspace-backend/internal/media"
	"github.com/angelmondragon/adspace-backend/internal/mediaimages"
	"github.com/angelmondragon/adspace-backend/internal/payments"
	"github.com/angelmondragon/adspace-backend/internal/payouts"
	"github.com/angelmondragon/adspace-backend/internal/pricerules"
	"github.com/angelmondragon/adspace-backend/internal/pricing"
	"github.com/angelmondragon/adspace-backend/internal/providers"
	"github.com/angelmondragon/adspace-backend/internal/users"
	"github.com/angelmondragon/adspace-backend/pkg/auth/session"
	"github.com/angelmondragon/adspace-backend/pkg/clock"
	"github.com/angelmondragon/adspace-backend/pkg/config"
	"github.com/angelmondragon/adspace-backend/pkg/db"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/metrics"
	"github.com/angelmondragon/adspace-backend/pkg/outbox"
)

// buildServices wires every domain service over the shared clients.
func buildServices(cfg *config.Config, dbClient *db.Client, sessions *session.Manager, reg prometheus.Registerer, logg *logger.Logger) (routes.Services, error) {
	var svc routes.Services
	conn := dbClient.DB()

	loc, err := cfg.App.Location()
	if err != nil {
		return svc, err
	}
	clk := clock.New(loc)
	settlement := metrics.NewSettlement(reg)
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	checker := availability.NewChecker(conn)

	engine, err := pricing.NewEngine(pricing.NewRepository(conn))
	if err != nil {
		return svc, fmt.Errorf("pricing engine: %w", err)
	}

	userRepo := users.NewRepository(conn)
	providerRepo := providers.NewRepository(conn)

	registrar, err := auth.NewRegistrar(userRepo, dbClient, cfg.Password)
	if err != nil {
		return svc, fmt.Errorf("auth registrar: %w", err)
	}
	if svc.Auth, err = auth.NewService(auth.ServiceParams{
		Users:          userRepo,
		Providers:      providerRepo,
		Registrar:      registrar,
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		Clock:          clk,
		Logger:         logg,
	}); err != nil {
		return svc, fmt.Errorf("auth service: %w", err)
	}

	if svc.Users, err = users.NewService(userRepo, dbClient, cfg.Password); err != nil {
		return svc, fmt.Errorf("users service: %w", err)
	}
	if svc.Providers, err = providers.NewService(providerRepo, dbClient); err != nil {
		return svc, fmt.Errorf("providers service: %w", err)
	}

	reconciler, err := media.NewRuleReconciler(media.NewRuleLinkRepository())
	if err != nil {
		return svc, fmt.Errorf("rule reconciler: %w", err)
	}
	if svc.Media, err = media.NewService(media.NewRepository(conn), dbClient, reconciler, engine, checker, clk, logg); err != nil {
		return svc, fmt.Errorf("media service: %w", err)
	}
	if svc.MediaImages, err = mediaimages.NewService(mediaimages.NewRepository(conn), dbClient, logg); err != nil {
		return svc, fmt.Errorf("media images service: %w", err)
	}
	if svc.PriceRules, err = pricerules.NewService(pricerules.NewRepository(conn), dbClient); err != nil {
		return svc, fmt.Errorf("price rules service: %w", err)
	}
	if svc.CancellationPolicies, err = cancellations.NewService(cancellations.NewRepository(conn), dbClient); err != nil {
		return svc, fmt.Errorf("cancellation policies service: %w", err)
	}

	if svc.Campaigns, err = campaigns.NewService(campaigns.NewRepository(conn), dbClient, clk, events, settlement, logg); err != nil {
		return svc, fmt.Errorf("campaigns service: %w", err)
	}
	if svc.CampaignItems, err = campaignitems.NewService(campaignitems.NewRepository(conn), dbClient, engine, checker, events, settlement, logg); err != nil {
		return svc, fmt.Errorf("campaign items service: %w", err)
	}
	if svc.Payments, err = payments.NewService(payments.NewRepository(conn), dbClient, events, settlement, logg); err != nil {
		return svc, fmt.Errorf("payments service: %w", err)
	}
	if svc.Payouts, err = payouts.NewService(payouts.NewRepository(conn), dbClient, clk, events, settlement, logg); err != nil {
		return svc, fmt.Errorf("payouts service: %w", err)
	}

	if svc.Catalog, err = catalog.NewService(conn); err != nil {
		return svc, fmt.Errorf("catalog service: %w", err)
	}
	return svc, nil
}
