// Package pollinterval resolves the polling intervals advertised to remote controllers.
//
// Two sources feed it: the process-wide properties (bounds and defaults) and the
// per-tenant overrides stored in tenant metadata. Precedence is tenant override,
// then global default, then hard-coded default. Queries never fail: any value
// that does not validate is replaced by the next one in precedence.
package pollinterval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rafaeljc/pollconf/internal/logger"
	"github.com/rafaeljc/pollconf/internal/observability"
)

// Resolver owns the validated global settings and applies tenant overrides on read.
// One instance is built per process and shared by reference.
type Resolver struct {
	logger              *slog.Logger
	source              PropertiesSource
	tenants             TenantAccessor
	enforceTenantBounds bool

	// reloadMu serializes Reload. Readers only touch settings.
	reloadMu sync.Mutex
	settings atomic.Pointer[Settings]
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for reload diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTenantBoundsEnforced makes tenant overrides outside the global bounds fall back
// to the global value. Disabled by default: tenant values are returned verbatim.
func WithTenantBoundsEnforced(enforce bool) Option {
	return func(r *Resolver) {
		r.enforceTenantBounds = enforce
	}
}

// NewResolver builds a Resolver and loads the global settings once.
// If the properties source cannot be read, the hard-coded defaults are published
// and the error is logged; the resolver is usable either way.
// Panics if source or tenants is nil.
func NewResolver(ctx context.Context, source PropertiesSource, tenants TenantAccessor, opts ...Option) *Resolver {
	if source == nil {
		panic("pollinterval: properties source cannot be nil")
	}
	if tenants == nil {
		panic("pollinterval: tenant accessor cannot be nil")
	}

	r := &Resolver{
		logger:  slog.Default(),
		source:  source,
		tenants: tenants,
	}
	for _, opt := range opts {
		opt(r)
	}

	defaults := defaultSettings()
	r.settings.Store(&defaults)

	if err := r.Reload(ctx); err != nil {
		r.logger.Error("initial poll configuration load failed, using hard-coded defaults",
			slog.String("error", err.Error()),
		)
	}

	return r
}

// Reload re-reads the properties source and publishes a new validated snapshot.
// Readers observe either the old or the new snapshot, never a mix of both.
// On a read error the current snapshot is kept and the error is returned.
func (r *Resolver) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	props, err := r.source.PollProperties(ctx)
	if err != nil {
		observability.ResolverReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to read poll properties: %w", err)
	}

	settings, fallbacks := buildSettings(props)
	for _, fb := range fallbacks {
		observability.ResolverFallbacks.WithLabelValues("global", fb.field, fb.reason).Inc()
		r.logger.Warn("invalid poll configuration, using hard-coded default",
			slog.String("field", fb.field),
			slog.String("reason", fb.reason),
			slog.String("value", fb.value),
		)
	}

	r.settings.Store(&settings)
	observability.ResolverReloads.WithLabelValues("success").Inc()

	r.logger.Info("poll configuration loaded",
		slog.Duration("min_polling_time", settings.MinPollingTime),
		slog.Duration("max_polling_time", settings.MaxPollingTime),
		slog.Duration("polling_time", settings.PollingTime),
		slog.Duration("polling_overdue_time", settings.PollingOverdueTime),
	)
	return nil
}

// Settings returns the current global values as one consistent snapshot.
func (r *Resolver) Settings() Settings {
	return *r.settings.Load()
}

// MinimumPollingInterval returns the lower bound for global poll values.
func (r *Resolver) MinimumPollingInterval() time.Duration {
	return r.settings.Load().MinPollingTime
}

// MaximumPollingInterval returns the upper bound for global poll values.
func (r *Resolver) MaximumPollingInterval() time.Duration {
	return r.settings.Load().MaxPollingTime
}

// GlobalPollTimeInterval returns the global polling interval.
func (r *Resolver) GlobalPollTimeInterval() time.Duration {
	return r.settings.Load().PollingTime
}

// GlobalOverduePollTimeInterval returns the global overdue polling interval.
func (r *Resolver) GlobalOverduePollTimeInterval() time.Duration {
	return r.settings.Load().PollingOverdueTime
}

// PollTimeInterval returns the polling interval for the tenant bound to ctx,
// falling back to the global value when the tenant has no valid override.
func (r *Resolver) PollTimeInterval(ctx context.Context) time.Duration {
	s := r.settings.Load()
	md, ok := r.lookup(ctx, fieldPoll)
	if !ok {
		return s.PollingTime
	}
	return r.applyPoll(ctx, s, md)
}

// OverduePollTimeInterval returns the overdue polling interval for the tenant bound to ctx,
// falling back to the global value when the tenant has no valid override.
func (r *Resolver) OverduePollTimeInterval(ctx context.Context) time.Duration {
	s := r.settings.Load()
	md, ok := r.lookup(ctx, fieldOverdue)
	if !ok {
		return s.PollingOverdueTime
	}
	return r.applyOverdue(ctx, s, md)
}

// TenantIntervals is the view of one tenant: its stored overrides and the
// intervals in effect, both derived from a single read of the tenant record.
type TenantIntervals struct {
	// Overrides is nil when the tenant has no record.
	Overrides          *TenantMetadata
	PollingTime        time.Duration
	PollingOverdueTime time.Duration
}

// TenantIntervals reads the record of the tenant bound to ctx once and resolves
// both intervals from it. Unlike the interval queries, a failed read is returned.
func (r *Resolver) TenantIntervals(ctx context.Context) (TenantIntervals, error) {
	md, err := r.tenants.TenantMetadata(ctx)
	if err != nil {
		return TenantIntervals{}, fmt.Errorf("failed to read tenant metadata: %w", err)
	}

	s := r.settings.Load()
	return TenantIntervals{
		Overrides:          md,
		PollingTime:        r.applyPoll(ctx, s, md),
		PollingOverdueTime: r.applyOverdue(ctx, s, md),
	}, nil
}

// SetTenantPollTimeInterval stores the tenant polling override.
// A nil duration clears the override. Values are not checked against the bounds.
func (r *Resolver) SetTenantPollTimeInterval(ctx context.Context, d *time.Duration) error {
	text, err := formatTenantValue(d)
	if err != nil {
		return err
	}
	if err := r.tenants.SetPollingTime(ctx, text); err != nil {
		return fmt.Errorf("failed to set tenant polling time: %w", err)
	}
	return nil
}

// SetTenantOverduePollTimeInterval stores the tenant overdue polling override.
// A nil duration clears the override. Values are not checked against the bounds.
func (r *Resolver) SetTenantOverduePollTimeInterval(ctx context.Context, d *time.Duration) error {
	text, err := formatTenantValue(d)
	if err != nil {
		return err
	}
	if err := r.tenants.SetPollingOverdueTime(ctx, text); err != nil {
		return fmt.Errorf("failed to set tenant polling overdue time: %w", err)
	}
	return nil
}

// TenantOverrideChange selects which tenant overrides UpdateTenantOverrides writes.
// A field whose Set flag is false is left untouched; a set nil duration clears it.
type TenantOverrideChange struct {
	PollingTime           *time.Duration
	SetPollingTime        bool
	PollingOverdueTime    *time.Duration
	SetPollingOverdueTime bool
}

// UpdateTenantOverrides writes the selected overrides together: either every
// selected field is stored or none is. Both values are validated before writing.
func (r *Resolver) UpdateTenantOverrides(ctx context.Context, c TenantOverrideChange) error {
	var u TenantMetadataUpdate
	var err error

	if c.SetPollingTime {
		if u.PollingTime, err = formatTenantValue(c.PollingTime); err != nil {
			return err
		}
		u.SetPollingTime = true
	}
	if c.SetPollingOverdueTime {
		if u.PollingOverdueTime, err = formatTenantValue(c.PollingOverdueTime); err != nil {
			return err
		}
		u.SetPollingOverdueTime = true
	}
	if !u.SetPollingTime && !u.SetPollingOverdueTime {
		return nil
	}

	if err := r.tenants.UpdateTenantMetadata(ctx, u); err != nil {
		return fmt.Errorf("failed to update tenant overrides: %w", err)
	}
	return nil
}

// ClearTenantOverrides removes the tenant record so both global values apply again.
func (r *Resolver) ClearTenantOverrides(ctx context.Context) error {
	if err := r.tenants.DeleteTenantMetadata(ctx); err != nil {
		return fmt.Errorf("failed to clear tenant overrides: %w", err)
	}
	return nil
}

// lookup reads the tenant record for a single-field query.
// ok is false when the read failed and the global value must be used.
func (r *Resolver) lookup(ctx context.Context, field string) (*TenantMetadata, bool) {
	md, err := r.tenants.TenantMetadata(ctx)
	if err != nil {
		observability.ResolverFallbacks.WithLabelValues("tenant", field, reasonLookupFailed).Inc()
		logger.FromContext(ctx).Debug("tenant metadata unavailable, using global poll value",
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return md, true
}

func (r *Resolver) applyPoll(ctx context.Context, s *Settings, md *TenantMetadata) time.Duration {
	if md == nil {
		return s.PollingTime
	}
	return r.apply(ctx, s, fieldPoll, s.PollingTime, md.PollingTime)
}

func (r *Resolver) applyOverdue(ctx context.Context, s *Settings, md *TenantMetadata) time.Duration {
	if md == nil {
		return s.PollingOverdueTime
	}
	return r.apply(ctx, s, fieldOverdue, s.PollingOverdueTime, md.PollingOverdueTime)
}

// apply puts the tenant text on top of global, using s for the bounds check
// so that a concurrent reload cannot mix bounds and defaults.
func (r *Resolver) apply(ctx context.Context, s *Settings, field string, global time.Duration, text *string) time.Duration {
	if text == nil {
		return global
	}

	d, ok := ParseDuration(*text)
	if !ok {
		observability.ResolverFallbacks.WithLabelValues("tenant", field, reasonMalformed).Inc()
		logger.FromContext(ctx).Warn("invalid tenant poll value, using global poll value",
			slog.String("field", field),
			slog.String("value", *text),
		)
		return global
	}

	if r.enforceTenantBounds && !s.contains(d) {
		observability.ResolverFallbacks.WithLabelValues("tenant", field, reasonOutOfBounds).Inc()
		logger.FromContext(ctx).Debug("tenant poll value outside bounds, using global poll value",
			slog.String("field", field),
			slog.String("value", *text),
		)
		return global
	}

	return d
}
