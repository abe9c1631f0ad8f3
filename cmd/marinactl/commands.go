package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/example/marinagate/internal/application"
	"github.com/example/marinagate/internal/audit"
	"github.com/example/marinagate/internal/backend"
	"github.com/example/marinagate/internal/config"
	"github.com/example/marinagate/internal/locking"
	"github.com/example/marinagate/internal/logging"
	"github.com/example/marinagate/internal/persistence"
	"github.com/example/marinagate/internal/report"
)

// operatorID tags audit entries written by this tool.
const operatorID = "marinactl"

type services struct {
	cfg          config.Config
	store        persistence.Store
	sink         *audit.Sink
	closeLocks   func() error
	sites        *application.SiteService
	ledger       *application.Ledger
	autoCheckout *application.AutoCheckout
}

func openServices(ctx context.Context, env environment) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(env.stderr, cfg.LogLevel, operatorID)

	store, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	policy, err := application.ParseObservationPolicy(cfg.AutoCheckoutObservation)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var locker application.Locker = locking.NewKeyedMutex()
	var closeLocks func() error
	if cfg.RedisURL != "" {
		client, err := locking.Connect(ctx, cfg.RedisURL)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		locker, closeLocks = locking.NewRedisLocker(client), client.Close
	}

	sink := audit.NewSink(store, audit.Options{Logger: logger})
	seed := make([]application.Site, 0, len(cfg.Sites))
	for _, s := range cfg.Sites {
		seed = append(seed, application.Site{ID: s.ID, Name: s.Name})
	}
	sites := application.NewSiteService(application.SiteServiceDeps{Store: store, Seed: seed, Audit: sink, Logger: logger})
	ledger := application.NewLedger(application.LedgerDeps{
		Store:       store,
		Locker:      locker,
		Audit:       sink,
		Location:    cfg.Location,
		HideDeleted: cfg.HideDeletedMovements,
		Logger:      logger,
	})

	return &services{
		cfg:        cfg,
		store:      store,
		sink:       sink,
		closeLocks: closeLocks,
		sites:      sites,
		ledger:     ledger,
		autoCheckout: application.NewAutoCheckout(application.AutoCheckoutDeps{
			Ledger: ledger,
			Sites:  sites,
			Policy: policy,
			Logger: logger,
		}),
	}, nil
}

func (s *services) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errs := []error{s.sink.Close(ctx), s.store.Close()}
	if s.closeLocks != nil {
		errs = append(errs, s.closeLocks())
	}
	return errors.Join(errs...)
}

func newFlagSet(name string, env environment) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(env.stderr)
	return flags
}

func runAutoCheckout(ctx context.Context, env environment, args []string) (err error) {
	flags := newFlagSet("autocheckout", env)
	hours := flags.Float64("hours", 0, "threshold in hours (default: MARINA_AUTO_CHECKOUT_HOURS)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	svc, err := openServices(ctx, env)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, svc.Close()) }()

	threshold := svc.cfg.AutoCheckoutHours
	if *hours > 0 {
		threshold = *hours
	}
	closed, runErr := svc.autoCheckout.RunAutoCheckoutAllSites(ctx, threshold)
	fmt.Fprintf(env.stdout, "%d movimentações encerradas (limite %gh)\n", closed, threshold)
	return runErr
}

func runExport(ctx context.Context, env environment, args []string) (err error) {
	flags := newFlagSet("export", env)
	siteID := flags.String("site", "", "site identifier (required)")
	format := flags.String("format", "csv", "output format: csv or xlsx")
	output := flags.StringP("output", "o", "-", "output file, - for stdout")
	from := flags.String("from", "", "first day, YYYY-MM-DD")
	to := flags.String("to", "", "last day, YYYY-MM-DD")
	name := flags.String("name", "", "filter by person name")
	document := flags.String("document", "", "filter by document")
	plate := flags.String("plate", "", "filter by plate")
	excludeDeleted := flags.Bool("exclude-deleted", false, "omit soft-deleted movements")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*siteID) == "" {
		return errors.New("--site is required")
	}
	*format = strings.ToLower(*format)
	if *format != "csv" && *format != "xlsx" {
		return fmt.Errorf("unsupported format %q", *format)
	}

	filter := application.HistoryFilter{
		Name:           *name,
		Document:       *document,
		Plate:          *plate,
		ExcludeDeleted: *excludeDeleted,
	}
	if filter.DateFrom, err = parseDay(*from); err != nil {
		return err
	}
	if filter.DateTo, err = parseDay(*to); err != nil {
		return err
	}

	svc, err := openServices(ctx, env)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, svc.Close()) }()

	site, err := svc.sites.Get(ctx, strings.ToLower(strings.TrimSpace(*siteID)))
	if err != nil {
		return fmt.Errorf("site %q: %w", *siteID, err)
	}
	principal := application.Principal{UserID: operatorID, Name: operatorID, SiteID: site.ID, Role: application.RoleOwner}
	rows, err := svc.ledger.ListHistory(ctx, principal, filter)
	if err != nil {
		return err
	}

	out := env.stdout
	if *output != "-" {
		var file *os.File
		if file, err = os.Create(*output); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, file.Close()) }()
		out = file
	}

	if *format == "xlsx" {
		var data []byte
		if data, err = report.BuildHistoryXLSX(rows, svc.cfg.Location); err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}
	return report.WriteHistoryCSV(out, rows, svc.cfg.Location)
}

func parseDay(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: use YYYY-MM-DD", value)
	}
	return &day, nil
}

func runHashPassword(_ context.Context, env environment, args []string) error {
	flags := newFlagSet("hash-password", env)
	if err := flags.Parse(args); err != nil {
		return err
	}

	password, err := bufio.NewReader(env.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}

	hash, err := application.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, hash)
	return nil
}
