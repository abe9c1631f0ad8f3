package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
)

// ObservationPolicy decides what happens to the entry note on a forced exit.
type ObservationPolicy string

const (
	// ObservationOverwrite replaces the note with the auto-checkout text.
	ObservationOverwrite ObservationPolicy = "overwrite"
	// ObservationAppend joins the auto-checkout text to the entry note like a manual exit.
	ObservationAppend ObservationPolicy = "append"
)

// ParseObservationPolicy accepts "overwrite", "append" or an empty string,
// which selects overwrite.
func ParseObservationPolicy(value string) (ObservationPolicy, error) {
	switch ObservationPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", ObservationOverwrite:
		return ObservationOverwrite, nil
	case ObservationAppend:
		return ObservationAppend, nil
	}
	return "", fmt.Errorf("unknown observation policy %q", value)
}

// SiteLister lists every known site.
type SiteLister interface {
	List(ctx context.Context) ([]Site, error)
}

// AutoCheckoutDeps wires the collaborators of AutoCheckout.
type AutoCheckoutDeps struct {
	Ledger *Ledger
	Sites  SiteLister
	Policy ObservationPolicy
	Logger *slog.Logger
}

// AutoCheckout force-closes movements that stayed open past a threshold.
type AutoCheckout struct {
	ledger *Ledger
	sites  SiteLister
	policy ObservationPolicy
	logger *slog.Logger
}

// NewAutoCheckout constructs the auto-checkout policy.
func NewAutoCheckout(deps AutoCheckoutDeps) *AutoCheckout {
	policy := deps.Policy
	if policy == "" {
		policy = ObservationOverwrite
	}
	return &AutoCheckout{
		ledger: deps.Ledger,
		sites:  deps.Sites,
		policy: policy,
		logger: defaultLogger(deps.Logger),
	}
}

func (a *AutoCheckout) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, a.logger, "AutoCheckout", operation, attrs...)
}

// errSkip marks a candidate that no longer qualifies once re-read under lock.
var errSkip = errors.New("auto-checkout: skip")

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

func validateThreshold(thresholdHours float64) *ValidationError {
	if thresholdHours <= 0 || math.IsNaN(thresholdHours) || math.IsInf(thresholdHours, 0) {
		return fieldError("threshold_hours", "threshold must be positive")
	}
	return nil
}

// RunAutoCheckout closes every open movement of the principal's site whose
// elapsed time reached the threshold. It returns how many were closed.
func (a *AutoCheckout) RunAutoCheckout(ctx context.Context, principal Principal, thresholdHours float64) (int, error) {
	if a == nil || a.ledger == nil {
		return 0, fmt.Errorf("AutoCheckout is not configured")
	}
	if !principal.IsAdmin() {
		return 0, ErrUnauthorized
	}
	siteID, err := activeSite(principal)
	if err != nil {
		return 0, err
	}
	return a.RunForSite(ctx, siteID, principal.UserID, thresholdHours)
}

// RunForSite is the site-scoped form used by the scheduler. actorID is
// recorded in the audit trail and may be empty for system runs.
func (a *AutoCheckout) RunForSite(ctx context.Context, siteID, actorID string, thresholdHours float64) (closed int, err error) {
	if a == nil || a.ledger == nil {
		return 0, fmt.Errorf("AutoCheckout is not configured")
	}

	logger := a.loggerWith(ctx, "RunForSite",
		"site_id", siteID,
		"actor_id", actorID,
		"threshold_hours", thresholdHours,
		"policy", string(a.policy),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "auto-checkout finished with errors", "closed", closed, "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "auto-checkout finished", "closed", closed)
	}()

	if strings.TrimSpace(siteID) == "" {
		return 0, ErrNoActiveSite
	}
	if vErr := validateThreshold(thresholdHours); vErr != nil {
		return 0, vErr
	}
	threshold := hoursToDuration(thresholdHours)
	text := autoCheckoutObservation(thresholdHours)

	cache, err := a.ledger.cacheFor(ctx, siteID)
	if err != nil {
		return 0, err
	}

	now := a.ledger.now()
	var failures []error
	for _, candidate := range cache.openMovements() {
		if now.Sub(candidate.EntryAt) < threshold {
			continue
		}

		var elapsed time.Duration
		before, after, mErr := a.ledger.mutateMovement(ctx, siteID, candidate.ID, func(current Movement, now time.Time) (Movement, error) {
			if !current.Inside() {
				return Movement{}, errSkip
			}
			elapsed = now.Sub(current.EntryAt)
			if elapsed < threshold {
				return Movement{}, errSkip
			}
			next := current
			exit := now
			next.ExitAt = &exit
			next.Status = StatusOutside
			observation := text
			if a.policy == ObservationAppend {
				observation = composeExitObservation(current.Observation, &text)
			}
			next.Observation = &observation
			next.UpdatedAt = now
			return next, nil
		})
		if errors.Is(mErr, errSkip) {
			continue
		}
		if mErr != nil {
			failures = append(failures, fmt.Errorf("movement %s: %w", candidate.ID, mErr))
			continue
		}

		closed++
		a.ledger.audit.Log(ctx, AuditEvent{
			SiteID:     siteID,
			UserID:     actorID,
			Action:     "saida_automatica",
			EntityType: "movimentacao",
			EntityID:   after.ID,
			EntityName: a.ledger.personName(siteID, after.PersonID),
			Details: map[string]any{
				"antes":            movementSnapshot(before),
				"depois":           movementSnapshot(after),
				"horas_decorridas": math.Round(elapsed.Hours()*100) / 100,
				"limite_horas":     thresholdHours,
			},
		})
		a.ledger.observer.MovementRecorded(siteID, "auto_exit")
	}

	a.ledger.reportInside(siteID, cache)
	return closed, errors.Join(failures...)
}

// RunAutoCheckoutAllSites runs the policy for every known site and returns the
// total number of closed movements.
func (a *AutoCheckout) RunAutoCheckoutAllSites(ctx context.Context, thresholdHours float64) (int, error) {
	if a == nil || a.sites == nil {
		return 0, fmt.Errorf("AutoCheckout is not configured")
	}
	if vErr := validateThreshold(thresholdHours); vErr != nil {
		return 0, vErr
	}

	sites, err := a.sites.List(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	var failures []error
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		closed, err := a.RunForSite(ctx, site.ID, "", thresholdHours)
		total += closed
		if err != nil {
			failures = append(failures, fmt.Errorf("site %s: %w", site.ID, err))
		}
	}
	return total, errors.Join(failures...)
}

// FindNearingThreshold lists open movements whose elapsed time lies within
// warnWindowHours before the threshold. Nothing is modified.
func (a *AutoCheckout) FindNearingThreshold(ctx context.Context, principal Principal, thresholdHours, warnWindowHours float64) ([]NearingEntry, error) {
	if a == nil || a.ledger == nil {
		return nil, fmt.Errorf("AutoCheckout is not configured")
	}
	if vErr := validateThreshold(thresholdHours); vErr != nil {
		return nil, vErr
	}
	if warnWindowHours < 0 {
		return nil, fieldError("warn_window_hours", "warning window must not be negative")
	}

	inside, err := a.ledger.ListInside(ctx, principal)
	if err != nil {
		return nil, err
	}

	threshold := hoursToDuration(thresholdHours)
	lower := threshold - hoursToDuration(warnWindowHours)
	now := a.ledger.now()

	var nearing []NearingEntry
	for _, entry := range inside {
		elapsed := now.Sub(entry.Movement.EntryAt)
		if elapsed < lower || elapsed >= threshold {
			continue
		}
		nearing = append(nearing, NearingEntry{InsideEntry: entry, Elapsed: elapsed, Remaining: threshold - elapsed})
	}
	sort.Slice(nearing, func(i, j int) bool {
		return nearing[i].Remaining < nearing[j].Remaining
	})
	return nearing, nil
}

func (c *siteCache) openMovements() []Movement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Movement
	for _, m := range c.movements {
		if m.Inside() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryAt.Before(out[j].EntryAt) })
	return out
}
