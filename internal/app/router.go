package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bali-malayali/bali-malayali/internal/agents"
	"github.com/bali-malayali/bali-malayali/internal/catalog"
	"github.com/bali-malayali/bali-malayali/internal/commissions"
	"github.com/bali-malayali/bali-malayali/internal/fx"
	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/observability"
	"github.com/bali-malayali/bali-malayali/internal/payments"
	"github.com/bali-malayali/bali-malayali/internal/quotes"
	"github.com/bali-malayali/bali-malayali/internal/settings"
	"github.com/bali-malayali/bali-malayali/jobs"
	"github.com/bali-malayali/bali-malayali/report"
)

// RouterConfig collects every mounted surface of the API server.
type RouterConfig struct {
	Middleware  MiddlewareConfig
	Metrics     *observability.Metrics
	Quotes      *quotes.Handler
	Payments    *payments.Handler
	Commissions *commissions.Handler
	Catalog     *catalog.Handler
	Agents      *agents.Handler
	Settings    *settings.Handler
	Fx          *fx.Handler
	Report      *report.Handler
	Jobs        *jobs.Handler
}

// NewRouter assembles the HTTP surface. Everything under /api/v1 sits behind
// the identity middleware; the gateway callback authenticates by signature
// instead and stays outside it.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(cfg.Middleware) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	if cfg.Payments != nil {
		cfg.Payments.MountCallbackRoutes(r)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(identity.Middleware)
		if cfg.Quotes != nil {
			cfg.Quotes.MountRoutes(r)
		}
		if cfg.Payments != nil {
			cfg.Payments.MountRoutes(r)
		}
		if cfg.Commissions != nil {
			cfg.Commissions.MountRoutes(r)
		}
		if cfg.Catalog != nil {
			cfg.Catalog.MountRoutes(r)
		}
		if cfg.Agents != nil {
			cfg.Agents.MountRoutes(r)
		}
		if cfg.Settings != nil {
			cfg.Settings.MountRoutes(r)
		}
		if cfg.Fx != nil {
			cfg.Fx.MountRoutes(r)
		}
		if cfg.Report != nil {
			r.Route("/reports", cfg.Report.MountRoutes)
		}
		if cfg.Jobs != nil {
			r.Route("/jobs", cfg.Jobs.MountRoutes)
		}
	})

	return r
}
