package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/adspace-backend/api/controllers"
	"github.com/angelmondragon/adspace-backend/api/middleware"
	"github.com/angelmondragon/adspace-backend/internal/auth"
	"github.com/angelmondragon/adspace-backend/internal/campaignitems"
	"github.com/angelmondragon/adspace-backend/internal/campaigns"
	"github.com/angelmondragon/adspace-backend/internal/cancellations"
	"github.com/angelmondragon/adspace-backend/internal/catalog"
	"github.com/angelmondragon/adspace-backend/internal/media"
	"github.com/angelmondragon/adspace-backend/internal/mediaimages"
	"github.com/angelmondragon/adspace-backend/internal/payments"
	"github.com/angelmondragon/adspace-backend/internal/payouts"
	"github.com/angelmondragon/adspace-backend/internal/pricerules"
	"github.com/angelmondragon/adspace-backend/internal/providers"
	"github.com/angelmondragon/adspace-backend/internal/users"
	"github.com/angelmondragon/adspace-backend/pkg/auth/session"
	"github.com/angelmondragon/adspace-backend/pkg/config"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
	"github.com/angelmondragon/adspace-backend/pkg/metrics"
	"github.com/angelmondragon/adspace-backend/pkg/redis"
)

// Services bundles what the HTTP layer dispatches to.
type Services struct {
	Auth                 auth.Service
	Users                users.Service
	Providers            providers.Service
	Media                media.Service
	MediaImages          mediaimages.Service
	PriceRules           pricerules.Service
	CancellationPolicies cancellations.Service
	Campaigns            campaigns.Service
	CampaignItems        campaignitems.Service
	Payments             payments.Service
	Payouts              payouts.Service
	Catalog              *catalog.Service
}

// RedisStore is the Redis surface used by rate limiting, idempotency and
// readiness. *redis.Client satisfies it.
type RedisStore interface {
	redis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// Infra holds the shared clients the middleware chain needs.
type Infra struct {
	DB       controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTP
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(infra.HTTP),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	readyDeps := map[string]controllers.Pinger{"db": infra.DB, "redis": infra.Redis}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readyDeps, logg))
	})
	if infra.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/api/v1/catalog/media", controllers.CatalogMedia(catalogSearcher(svc.Catalog), logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, infra.Redis, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, infra.Redis, logg)).Post("/register", controllers.AuthRegister(svc.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, infra.Sessions, logg)).Get("/profile", controllers.AuthProfile(svc.Auth, logg))
	})

	adminOnly := middleware.RequireRole(logg, enums.RoleAdmin)
	inventory := middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleProvider)
	providerOnly := middleware.RequireRole(logg, enums.RoleProvider)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, infra.Sessions, logg))
		r.Use(middleware.Idempotency(infra.Redis, logg))

		r.Route("/users", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", controllers.UserList(svc.Users, logg))
			r.Post("/", controllers.UserCreate(svc.Users, logg))
			r.Get("/{userId}", controllers.UserGet(svc.Users, logg))
			r.Put("/{userId}", controllers.UserUpdate(svc.Users, logg))
			r.Delete("/{userId}", controllers.UserDelete(svc.Users, logg))
		})

		r.Route("/providers", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", controllers.ProviderList(svc.Providers, logg))
			r.Post("/", controllers.ProviderCreate(svc.Providers, logg))
			r.Get("/{providerId}", controllers.ProviderGet(svc.Providers, logg))
			r.Put("/{providerId}", controllers.ProviderUpdate(svc.Providers, logg))
			r.Delete("/{providerId}", controllers.ProviderDelete(svc.Providers, logg))
		})

		r.Route("/media", func(r chi.Router) {
			r.Get("/{mediaId}/calculate-price", controllers.MediaCalculatePrice(svc.Media, logg))

			r.Group(func(r chi.Router) {
				r.Use(inventory)
				r.Get("/", controllers.MediaList(svc.Media, logg))
				r.Post("/", controllers.MediaCreate(svc.Media, logg))
				r.Get("/{mediaId}", controllers.MediaGet(svc.Media, logg))
				r.Put("/{mediaId}", controllers.MediaUpdate(svc.Media, logg))
				r.Delete("/{mediaId}", controllers.MediaDelete(svc.Media, logg))
				r.Get("/{mediaId}/images", controllers.MediaImageList(svc.MediaImages, logg))
				r.Get("/{mediaId}/price-rules", controllers.MediaRules(svc.Media, logg))
				r.Put("/{mediaId}/price-rules", controllers.MediaSyncRules(svc.Media, logg))
				r.Get("/{mediaId}/price-rules/active", controllers.MediaActiveRules(svc.Media, logg))
				r.Post("/{mediaId}/price-rules/{ruleId}", controllers.MediaAttachRule(svc.Media, logg))
				r.Delete("/{mediaId}/price-rules/{ruleId}", controllers.MediaDetachRule(svc.Media, logg))
			})
		})

		r.Route("/media-images", func(r chi.Router) {
			r.Use(inventory)
			r.Post("/", controllers.MediaImageCreate(svc.MediaImages, logg))
			r.Get("/{imageId}", controllers.MediaImageGet(svc.MediaImages, logg))
			r.Put("/{imageId}", controllers.MediaImageUpdate(svc.MediaImages, logg))
			r.Delete("/{imageId}", controllers.MediaImageDelete(svc.MediaImages, logg))
		})

		r.Route("/price-rules", func(r chi.Router) {
			r.Use(inventory)
			r.Get("/", controllers.PriceRuleList(svc.PriceRules, logg))
			r.Post("/", controllers.PriceRuleCreate(svc.PriceRules, logg))
			r.Get("/{ruleId}", controllers.PriceRuleGet(svc.PriceRules, logg))
			r.Put("/{ruleId}", controllers.PriceRuleUpdate(svc.PriceRules, logg))
			r.Delete("/{ruleId}", controllers.PriceRuleDelete(svc.PriceRules, logg))
		})

		r.Route("/cancellation-policies", func(r chi.Router) {
			r.Use(inventory)
			r.Get("/", controllers.CancellationPolicyList(svc.CancellationPolicies, logg))
			r.Get("/{policyId}", controllers.CancellationPolicyGet(svc.CancellationPolicies, logg))
			// Bands price every cancellation, so only admins change them.
			r.With(adminOnly).Post("/", controllers.CancellationPolicyCreate(svc.CancellationPolicies, logg))
			r.With(adminOnly).Put("/{policyId}", controllers.CancellationPolicyUpdate(svc.CancellationPolicies, logg))
			r.With(adminOnly).Delete("/{policyId}", controllers.CancellationPolicyDelete(svc.CancellationPolicies, logg))
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", controllers.CampaignList(svc.Campaigns, logg))
			r.Post("/", controllers.CampaignCreate(svc.Campaigns, logg))
			r.Get("/{campaignId}", controllers.CampaignGet(svc.Campaigns, logg))
			r.Put("/{campaignId}", controllers.CampaignUpdate(svc.Campaigns, logg))
			r.Delete("/{campaignId}", controllers.CampaignDelete(svc.Campaigns, logg))
			r.Patch("/{campaignId}/cancel", controllers.CampaignCancel(svc.Campaigns, logg))
		})

		r.Route("/campaign-items", func(r chi.Router) {
			r.Get("/", controllers.CampaignItemList(svc.CampaignItems, logg))
			r.Post("/", controllers.CampaignItemCreate(svc.CampaignItems, logg))
			r.Get("/{itemId}", controllers.CampaignItemGet(svc.CampaignItems, logg))
			r.Put("/{itemId}", controllers.CampaignItemUpdate(svc.CampaignItems, logg))
			r.Delete("/{itemId}", controllers.CampaignItemDelete(svc.CampaignItems, logg))
			r.With(providerOnly).Patch("/{itemId}/accept", controllers.CampaignItemAccept(svc.CampaignItems, logg))
			r.With(providerOnly).Patch("/{itemId}/reject", controllers.CampaignItemReject(svc.CampaignItems, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.PaymentList(svc.Payments, logg))
			r.With(adminOnly).Post("/", controllers.PaymentCreate(svc.Payments, logg))
			r.Get("/{paymentId}", controllers.PaymentGet(svc.Payments, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.PayoutList(svc.Payouts, logg))
			r.With(adminOnly).Post("/", controllers.PayoutCreate(svc.Payouts, logg))
			r.Get("/{payoutId}", controllers.PayoutGet(svc.Payouts, logg))
			r.With(adminOnly).Patch("/{payoutId}/paid", controllers.PayoutMarkPaid(svc.Payouts, logg))
		})
	})

	return r
}

// catalogSearcher keeps a nil *catalog.Service a nil interface so the
// controller reports it as unavailable.
func catalogSearcher(svc *catalog.Service) controllers.CatalogSearcher {
	if svc == nil {
		return nil
	}
	return svc
}
