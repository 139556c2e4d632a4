// Package reloader implements the background worker that keeps the published
// global poll settings in sync with their sources.
package reloader

import (
	"context"
	"log/slog"
	"time"

	"github.com/rafaeljc/pollconf/internal/cache"
	"github.com/rafaeljc/pollconf/internal/observability"
)

// Reloader re-reads the global settings. Implemented by *pollinterval.Resolver.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Subscriber delivers reload requests from other instances. Implemented by *cache.ReloadBus.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan cache.ReloadEvent, error)
}

// Config holds the configuration for the Reloader service.
type Config struct {
	// Interval is the duration between periodic reloads.
	Interval time.Duration
}

// Service orchestrates periodic and event-driven reloads.
type Service struct {
	logger     *slog.Logger
	config     Config
	target     Reloader
	subscriber Subscriber
}

// New creates a new Reloader service. subscriber may be nil, in which case
// only the periodic reload runs.
func New(logger *slog.Logger, cfg Config, target Reloader, subscriber Subscriber) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if target == nil {
		panic("reloader: reload target cannot be nil")
	}

	if cfg.Interval < time.Second {
		cfg.Interval = time.Minute // Safe default
	}

	return &Service{
		logger:     logger,
		config:     cfg,
		target:     target,
		subscriber: subscriber,
	}
}

// Run reloads once immediately, then on every tick and on every reload event.
// It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting reloader service", slog.String("interval", s.config.Interval.String()))

	events := s.subscribe(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.reload(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reloader service stopping...")
			return nil
		case <-ticker.C:
			s.reload(ctx, "interval")
		case event, ok := <-events:
			if !ok {
				// Subscription ended; keep the periodic reload running.
				s.logger.Warn("reload subscription closed")
				events = nil
				continue
			}
			observability.ReloadEventsReceived.Inc()
			s.logger.Debug("reload event received",
				slog.String("event_id", event.ID),
				slog.String("reason", event.Reason),
			)
			s.reload(ctx, "event")
		}
	}
}

// subscribe returns nil (a channel that never fires) when no subscriber is
// configured or the subscription fails.
func (s *Service) subscribe(ctx context.Context) <-chan cache.ReloadEvent {
	if s.subscriber == nil {
		return nil
	}
	events, err := s.subscriber.Subscribe(ctx)
	if err != nil {
		s.logger.Error("failed to subscribe to reload events, falling back to periodic reload",
			slog.String("error", err.Error()))
		return nil
	}
	return events
}

// reload errors are logged but never stop the worker; the next trigger retries.
func (s *Service) reload(ctx context.Context, trigger string) {
	if err := s.target.Reload(ctx); err != nil {
		s.logger.Error("reload failed",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
	}
}
