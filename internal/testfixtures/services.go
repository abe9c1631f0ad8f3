package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/marinagate/internal/application"
	"github.com/example/marinagate/internal/persistence"
	"github.com/example/marinagate/internal/token"
)

// FastArgon2idParams keeps password hashing cheap in tests.
var FastArgon2idParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// FastHashPassword hashes with FastArgon2idParams. VerifyPassword accepts the
// result since parameters are encoded in the hash.
func FastHashPassword(password string) (string, error) {
	return application.CreatePasswordHash(password, FastArgon2idParams)
}

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Clock = clock }
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.IDGenerator = generator }
}

// WithLocation overrides the civil time zone of the ledger.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Location = loc }
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Logger = logger }
}

// LedgerDeps captures the collaborators a test may replace on a ledger.
type LedgerDeps struct {
	Store       application.LedgerStore
	Locker      application.Locker
	Audit       application.AuditLogger
	Observer    application.LedgerObserver
	HideDeleted bool
}

// NewLedger builds a ledger with the factory clock and identifiers.
func (f *ServiceFactory) NewLedger(deps LedgerDeps) *application.Ledger {
	return application.NewLedger(application.LedgerDeps{
		Store:       deps.Store,
		Locker:      deps.Locker,
		Audit:       deps.Audit,
		Observer:    deps.Observer,
		IDGenerator: f.IDGenerator.NextFunc(),
		Now:         f.Clock.NowFunc(),
		Location:    f.Location,
		HideDeleted: deps.HideDeleted,
		Logger:      f.Logger,
	})
}

// NewDirectory builds a person directory sharing ledger's cache.
func (f *ServiceFactory) NewDirectory(store application.LedgerStore, ledger *application.Ledger, audit application.AuditLogger) *application.Directory {
	return application.NewDirectory(application.DirectoryDeps{
		Store:       store,
		Ledger:      ledger,
		Audit:       audit,
		IDGenerator: f.IDGenerator.NextFunc(),
		Now:         f.Clock.NowFunc(),
		Logger:      f.Logger,
	})
}

// NewAutoCheckout builds the auto-checkout policy.
func (f *ServiceFactory) NewAutoCheckout(ledger *application.Ledger, sites application.SiteLister, policy application.ObservationPolicy) *application.AutoCheckout {
	return application.NewAutoCheckout(application.AutoCheckoutDeps{
		Ledger: ledger,
		Sites:  sites,
		Policy: policy,
		Logger: f.Logger,
	})
}

// NewSiteService builds the site catalog over store with the given seed.
func (f *ServiceFactory) NewSiteService(store application.SiteStore, seed ...application.Site) *application.SiteService {
	return application.NewSiteService(application.SiteServiceDeps{
		Store:  store,
		Seed:   seed,
		Now:    f.Clock.NowFunc(),
		Logger: f.Logger,
	})
}

// NewUserService builds a user service with cheap password hashing.
func (f *ServiceFactory) NewUserService(users persistence.UserRepository, audit application.AuditLogger) *application.UserService {
	return application.NewUserService(application.UserServiceDeps{
		Users:        users,
		Audit:        audit,
		HashPassword: FastHashPassword,
		IDGenerator:  f.IDGenerator.NextFunc(),
		Now:          f.Clock.NowFunc(),
		Logger:       f.Logger,
	})
}

// NewTokenManager returns a token manager driven by the factory clock.
func (f *ServiceFactory) NewTokenManager(ttl time.Duration) *token.Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	manager, err := token.NewManager("test-signing-key", ttl, token.WithClock(f.Clock.NowFunc()))
	if err != nil {
		panic(err)
	}
	return manager
}

// NewAuthService builds an auth service issuing tokens valid for one hour.
func (f *ServiceFactory) NewAuthService(users persistence.UserRepository) *application.AuthService {
	return application.NewAuthService(application.AuthServiceDeps{
		Users:        users,
		Tokens:       f.NewTokenManager(time.Hour),
		HashPassword: FastHashPassword,
		IDGenerator:  f.IDGenerator.NextFunc(),
		Now:          f.Clock.NowFunc(),
		Logger:       f.Logger,
	})
}
