package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/marinagate/internal/logging"
)

// Backend names the persistence provider.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendREST   Backend = "rest"
)

// Site is a fixed marina site declared in the sites file.
type Site struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type sitesFile struct {
	Sites []Site `yaml:"sites"`
}

// Config captures environment driven configuration values for the marina service.
type Config struct {
	HTTPPort int
	LogLevel slog.Level

	Backend     Backend
	SQLiteDSN   string
	RESTURL     string
	RESTAPIKey  string
	RESTTimeout time.Duration

	TokenSecret string
	TokenTTL    time.Duration

	Location  *time.Location
	SitesFile string
	Sites     []Site

	RedisURL string

	AutoCheckoutHours       float64
	AutoCheckoutInterval    time.Duration
	AutoCheckoutWarnHours   float64
	AutoCheckoutObservation string
	HideDeletedMovements    bool

	BootstrapOwnerEmail    string
	BootstrapOwnerPassword string
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Every missing or invalid variable is
// collected so that a single error lists all of them.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:                8080,
		LogLevel:                slog.LevelInfo,
		Backend:                 BackendSQLite,
		SQLiteDSN:               "marinagate.db",
		RESTTimeout:             10 * time.Second,
		TokenTTL:                12 * time.Hour,
		AutoCheckoutHours:       12,
		AutoCheckoutWarnHours:   1,
		AutoCheckoutObservation: "overwrite",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if portValue := env("MARINA_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "MARINA_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if levelValue := env("MARINA_LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "MARINA_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if backendValue := env("MARINA_BACKEND"); backendValue != "" {
		switch Backend(strings.ToLower(backendValue)) {
		case BackendSQLite:
			cfg.Backend = BackendSQLite
		case BackendREST:
			cfg.Backend = BackendREST
		default:
			invalid = append(invalid, "MARINA_BACKEND")
		}
	}

	if dsn := env("MARINA_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.RESTURL = env("MARINA_REST_URL")
	cfg.RESTAPIKey = env("MARINA_REST_API_KEY")
	if cfg.Backend == BackendREST {
		if cfg.RESTURL == "" {
			missing = append(missing, "MARINA_REST_URL")
		}
		if cfg.RESTAPIKey == "" {
			missing = append(missing, "MARINA_REST_API_KEY")
		}
	}
	if timeoutValue := env("MARINA_REST_TIMEOUT"); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "MARINA_REST_TIMEOUT")
		} else {
			cfg.RESTTimeout = timeout
		}
	}

	if secret := env("MARINA_TOKEN_SECRET"); secret == "" {
		missing = append(missing, "MARINA_TOKEN_SECRET")
	} else {
		cfg.TokenSecret = secret
	}

	if ttlValue := env("MARINA_TOKEN_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "MARINA_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	tz := env("MARINA_TIMEZONE")
	if tz == "" {
		tz = "America/Sao_Paulo"
	}
	if loc, err := time.LoadLocation(tz); err != nil {
		invalid = append(invalid, "MARINA_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if path := env("MARINA_SITES_FILE"); path != "" {
		sites, err := LoadSites(path)
		if err != nil {
			invalid = append(invalid, "MARINA_SITES_FILE")
		} else {
			cfg.SitesFile = path
			cfg.Sites = sites
		}
	}

	cfg.RedisURL = env("MARINA_REDIS_URL")

	if hoursValue := env("MARINA_AUTO_CHECKOUT_HOURS"); hoursValue != "" {
		hours, err := strconv.ParseFloat(hoursValue, 64)
		if err != nil || hours <= 0 {
			invalid = append(invalid, "MARINA_AUTO_CHECKOUT_HOURS")
		} else {
			cfg.AutoCheckoutHours = hours
		}
	}

	if intervalValue := env("MARINA_AUTO_CHECKOUT_INTERVAL"); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval < 0 {
			invalid = append(invalid, "MARINA_AUTO_CHECKOUT_INTERVAL")
		} else {
			cfg.AutoCheckoutInterval = interval
		}
	}

	if warnValue := env("MARINA_AUTO_CHECKOUT_WARN_HOURS"); warnValue != "" {
		warn, err := strconv.ParseFloat(warnValue, 64)
		if err != nil || warn < 0 {
			invalid = append(invalid, "MARINA_AUTO_CHECKOUT_WARN_HOURS")
		} else {
			cfg.AutoCheckoutWarnHours = warn
		}
	}

	if policy := env("MARINA_AUTO_CHECKOUT_OBSERVATION"); policy != "" {
		switch strings.ToLower(policy) {
		case "overwrite", "append":
			cfg.AutoCheckoutObservation = strings.ToLower(policy)
		default:
			invalid = append(invalid, "MARINA_AUTO_CHECKOUT_OBSERVATION")
		}
	}

	if hideValue := env("MARINA_HIDE_DELETED_MOVEMENTS"); hideValue != "" {
		hide, err := strconv.ParseBool(hideValue)
		if err != nil {
			invalid = append(invalid, "MARINA_HIDE_DELETED_MOVEMENTS")
		} else {
			cfg.HideDeletedMovements = hide
		}
	}

	cfg.BootstrapOwnerEmail = env("MARINA_BOOTSTRAP_OWNER_EMAIL")
	cfg.BootstrapOwnerPassword = os.Getenv("MARINA_BOOTSTRAP_OWNER_PASSWORD")
	if cfg.BootstrapOwnerEmail != "" && cfg.BootstrapOwnerPassword == "" {
		missing = append(missing, "MARINA_BOOTSTRAP_OWNER_PASSWORD")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("variáveis de ambiente obrigatórias ausentes: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("variáveis de ambiente com valor inválido: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// LoadSites reads the fixed site list from a YAML file of the form
//
//	sites:
//	  - id: marina-norte
//	    name: Marina Norte
func LoadSites(path string) ([]Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}
	var file sitesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sites file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Sites))
	sites := make([]Site, 0, len(file.Sites))
	for i, site := range file.Sites {
		site.ID = strings.ToLower(strings.TrimSpace(site.ID))
		site.Name = strings.TrimSpace(site.Name)
		if site.ID == "" || site.Name == "" {
			return nil, fmt.Errorf("sites file entry %d: id and name are required", i)
		}
		if _, dup := seen[site.ID]; dup {
			return nil, fmt.Errorf("sites file: duplicate id %q", site.ID)
		}
		seen[site.ID] = struct{}{}
		sites = append(sites, site)
	}
	return sites, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
