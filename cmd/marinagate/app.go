package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/marinagate/internal/application"
	"github.com/example/marinagate/internal/audit"
	"github.com/example/marinagate/internal/backend"
	"github.com/example/marinagate/internal/config"
	httptransport "github.com/example/marinagate/internal/http"
	"github.com/example/marinagate/internal/locking"
	"github.com/example/marinagate/internal/metrics"
	"github.com/example/marinagate/internal/persistence"
	"github.com/example/marinagate/internal/token"
)

// app holds the wired services of a running instance.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	store        persistence.Store
	sink         *audit.Sink
	metrics      *metrics.Metrics
	ledger       *application.Ledger
	sites        *application.SiteService
	autoCheckout *application.AutoCheckout
	handler      http.Handler

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			if a.sink != nil {
				_ = a.sink.Close(context.Background())
			}
			_ = a.closeResources()
		}
	}()

	a.store, err = backend.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	locker, err := a.newLocker(ctx)
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(cfg.TokenSecret, cfg.TokenTTL, token.WithIssuer("marinagate"))
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	policy, err := application.ParseObservationPolicy(cfg.AutoCheckoutObservation)
	if err != nil {
		return nil, err
	}

	a.metrics = metrics.New()
	a.sink = audit.NewSink(a.store, audit.Options{Logger: logger})
	a.metrics.RegisterAuditQueue(a.sink.Dropped, a.sink.Written)

	seed := make([]application.Site, 0, len(cfg.Sites))
	for _, s := range cfg.Sites {
		seed = append(seed, application.Site{ID: s.ID, Name: s.Name})
	}
	a.sites = application.NewSiteService(application.SiteServiceDeps{
		Store:  a.store,
		Seed:   seed,
		Audit:  a.sink,
		Logger: logger,
	})
	if err := a.sites.SyncSeed(ctx); err != nil {
		return nil, fmt.Errorf("sync seed sites: %w", err)
	}

	a.ledger = application.NewLedger(application.LedgerDeps{
		Store:       a.store,
		Locker:      locker,
		Audit:       a.sink,
		Observer:    a.metrics,
		Location:    cfg.Location,
		HideDeleted: cfg.HideDeletedMovements,
		Logger:      logger,
	})
	directory := application.NewDirectory(application.DirectoryDeps{
		Store:  a.store,
		Ledger: a.ledger,
		Audit:  a.sink,
		Logger: logger,
	})
	a.autoCheckout = application.NewAutoCheckout(application.AutoCheckoutDeps{
		Ledger: a.ledger,
		Sites:  a.sites,
		Policy: policy,
		Logger: logger,
	})
	users := application.NewUserService(application.UserServiceDeps{
		Users:  a.store,
		Audit:  a.sink,
		Logger: logger,
	})
	auth := application.NewAuthService(application.AuthServiceDeps{
		Users:  a.store,
		Tokens: tokens,
		Logger: logger,
	})

	if cfg.BootstrapOwnerEmail != "" {
		created, err := auth.BootstrapOwner(ctx, cfg.BootstrapOwnerEmail, "Proprietário", cfg.BootstrapOwnerPassword)
		if err != nil {
			return nil, fmt.Errorf("bootstrap owner: %w", err)
		}
		if created {
			logger.Info("bootstrap owner created", "email", cfg.BootstrapOwnerEmail)
		}
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(auth, logger),
		Users:     httptransport.NewUserHandler(users, logger),
		Sites:     httptransport.NewSiteHandler(a.sites, logger),
		People:    httptransport.NewPersonHandler(directory, a.ledger, logger),
		Movements: httptransport.NewMovementHandler(a.ledger, logger),
		AutoCheckout: httptransport.NewAutoCheckoutHandler(a.autoCheckout, httptransport.AutoCheckoutDefaults{
			ThresholdHours:  cfg.AutoCheckoutHours,
			WarnWindowHours: cfg.AutoCheckoutWarnHours,
		}, logger),
		Reports:  httptransport.NewReportHandler(a.ledger, cfg.Location, logger),
		Audit:    httptransport.NewAuditHandler(application.NewAuditService(a.store), logger),
		Tokens:   auth,
		SiteDir:  a.sites,
		Observer: a.metrics,
		Metrics:  a.metrics.Handler(),
		Logger:   logger,
	})
	return a, nil
}

func (a *app) newLocker(ctx context.Context) (application.Locker, error) {
	if a.cfg.RedisURL == "" {
		return locking.NewKeyedMutex(), nil
	}
	client, err := locking.Connect(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	a.logger.Info("using redis person locks")
	return locking.NewRedisLocker(client), nil
}

// preload warms the ledger cache of every known site.
func (a *app) preload(ctx context.Context) {
	sites, err := a.sites.List(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "preload skipped", "error", err)
		return
	}
	for _, site := range sites {
		if err := a.ledger.Refresh(ctx, site.ID); err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.WarnContext(ctx, "preload failed", "site_id", site.ID, "error", err)
		}
	}
	a.logger.InfoContext(ctx, "ledger preloaded", "sites", len(sites))
}

// close drains the audit queue and then releases backend resources.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.sink.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("audit sink: %w", err))
	}
	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *app) closeResources() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
