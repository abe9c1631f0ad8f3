package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Sites        *SiteHandler
	People       *PersonHandler
	Movements    *MovementHandler
	AutoCheckout *AutoCheckoutHandler
	Reports      *ReportHandler
	Audit        *AuditHandler

	Tokens   TokenValidator
	SiteDir  SiteResolver
	Observer RequestObserver
	Metrics  http.Handler
	Logger   *slog.Logger
}

// NewRouter wires every handler onto a chi router. Handlers left nil are not
// mounted.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(Instrument(cfg.Observer))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.Auth != nil {
		r.Post("/sessions", cfg.Auth.CreateSession)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(cfg.Tokens, cfg.SiteDir, logger))

		if cfg.Auth != nil {
			r.Get("/me", cfg.Auth.Me)
		}

		if cfg.Sites != nil {
			r.Route("/sites", func(r chi.Router) {
				r.Get("/", cfg.Sites.List)
				r.Post("/", cfg.Sites.Create)
				r.Delete("/{siteID}", cfg.Sites.Delete)
			})
		}

		if cfg.People != nil {
			r.Route("/people", func(r chi.Router) {
				r.Get("/", cfg.People.List)
				r.Post("/", cfg.People.Create)
				r.Route("/{personID}", func(r chi.Router) {
					r.Get("/", cfg.People.Get)
					r.Put("/", cfg.People.Update)
					r.With(RequireAdmin(logger)).Delete("/", cfg.People.Delete)
					r.Get("/can-enter", cfg.People.CanEnter)
					r.Get("/movements", cfg.People.Movements)
				})
			})
		}

		r.Route("/movements", func(r chi.Router) {
			if cfg.Movements != nil {
				r.Post("/", cfg.Movements.RegisterEntry)
				r.Get("/inside", cfg.Movements.Inside)
				r.Get("/history", cfg.Movements.History)
				r.Route("/{movementID}", func(r chi.Router) {
					r.Post("/exit", cfg.Movements.RegisterExit)
					r.Put("/", cfg.Movements.Update)
					r.With(RequireAdmin(logger)).Delete("/", cfg.Movements.Delete)
				})
			}
			if cfg.AutoCheckout != nil {
				r.Get("/nearing", cfg.AutoCheckout.Nearing)
			}
		})

		if cfg.Reports != nil {
			r.Get("/reports/history.csv", cfg.Reports.HistoryCSV)
			r.Get("/reports/history.xlsx", cfg.Reports.HistoryXLSX)
		}

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(logger))

			if cfg.AutoCheckout != nil {
				r.Post("/auto-checkout", cfg.AutoCheckout.Run)
			}
			if cfg.Users != nil {
				r.Route("/users", func(r chi.Router) {
					r.Get("/", cfg.Users.List)
					r.Post("/", cfg.Users.Create)
					r.Put("/{userID}", cfg.Users.Update)
					r.Delete("/{userID}", cfg.Users.Delete)
				})
			}
			if cfg.Audit != nil {
				r.Get("/audit-logs", cfg.Audit.List)
			}
		})
	})

	return r
}
