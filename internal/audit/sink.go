// Package audit persists audit events in the background so that recording an
// action never blocks or fails the operation that produced it.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/example/marinagate/internal/application"
	"github.com/example/marinagate/internal/persistence"
)

const (
	defaultBufferSize   = 256
	defaultWriteTimeout = 5 * time.Second
)

// Options tunes a Sink. Zero values select defaults.
type Options struct {
	BufferSize   int
	WriteTimeout time.Duration
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// Sink queues audit events on a bounded channel drained by a single worker.
// When the queue is full new events are dropped and counted.
type Sink struct {
	store        persistence.AuditRepository
	inbox        chan persistence.AuditEntry
	writeTimeout time.Duration
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
	written atomic.Int64
}

// NewSink starts the worker goroutine. Call Close to drain and stop it.
func NewSink(store persistence.AuditRepository, opts Options) *Sink {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Sink{
		store:        store,
		inbox:        make(chan persistence.AuditEntry, opts.BufferSize),
		writeTimeout: opts.WriteTimeout,
		idGenerator:  opts.IDGenerator,
		now:          opts.Now,
		logger:       opts.Logger.With("component", "audit"),
		done:         make(chan struct{}),
	}
	go s.run()
	return s
}

// Log implements application.AuditLogger. The entry is stamped at call time.
func (s *Sink) Log(ctx context.Context, event application.AuditEvent) {
	if s == nil {
		return
	}
	entry := persistence.AuditEntry{
		ID:         s.idGenerator(),
		SiteID:     event.SiteID,
		UserID:     event.UserID,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		EntityName: event.EntityName,
		Details:    event.Details,
		CreatedAt:  s.now(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(ctx, entry, "sink closed")
		return
	}
	select {
	case s.inbox <- entry:
	default:
		s.drop(ctx, entry, "buffer full")
	}
}

func (s *Sink) drop(ctx context.Context, entry persistence.AuditEntry, reason string) {
	s.dropped.Add(1)
	s.logger.WarnContext(ctx, "audit event dropped",
		"reason", reason,
		"action", entry.Action,
		"entity_type", entry.EntityType,
		"entity_id", entry.EntityID,
	)
}

func (s *Sink) run() {
	defer close(s.done)
	for entry := range s.inbox {
		s.write(entry)
	}
}

func (s *Sink) write(entry persistence.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit event",
			"error", err,
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"site_id", entry.SiteID,
		)
		return
	}
	s.written.Add(1)
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (s *Sink) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.inbox)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("audit: queue not drained"), ctx.Err())
	}
}

// Dropped reports how many events were discarded.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Written reports how many events reached the store.
func (s *Sink) Written() int64 {
	return s.written.Load()
}
