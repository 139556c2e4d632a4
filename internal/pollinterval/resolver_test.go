package pollinterval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTenants is an in-memory TenantAccessor that records writes.
type fakeTenants struct {
	mu       sync.Mutex
	md       *TenantMetadata
	readErr  error
	writeErr error

	pollWrites    []*string
	overdueWrites []*string
	updates       []TenantMetadataUpdate
	deletes       int
}

func (f *fakeTenants) TenantMetadata(context.Context) (*TenantMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	if f.md == nil {
		return nil, nil
	}
	cp := *f.md
	return &cp, nil
}

func (f *fakeTenants) SetPollingTime(_ context.Context, v *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.pollWrites = append(f.pollWrites, v)
	if f.md == nil {
		f.md = &TenantMetadata{}
	}
	f.md.PollingTime = v
	return nil
}

func (f *fakeTenants) SetPollingOverdueTime(_ context.Context, v *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.overdueWrites = append(f.overdueWrites, v)
	if f.md == nil {
		f.md = &TenantMetadata{}
	}
	f.md.PollingOverdueTime = v
	return nil
}

func (f *fakeTenants) UpdateTenantMetadata(_ context.Context, u TenantMetadataUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.updates = append(f.updates, u)
	if f.md == nil {
		f.md = &TenantMetadata{}
	}
	if u.SetPollingTime {
		f.md.PollingTime = u.PollingTime
	}
	if u.SetPollingOverdueTime {
		f.md.PollingOverdueTime = u.PollingOverdueTime
	}
	return nil
}

func (f *fakeTenants) DeleteTenantMetadata(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deletes++
	f.md = nil
	return nil
}

// switchableSource lets a test swap properties between reloads.
type switchableSource struct {
	mu    sync.Mutex
	props Properties
	err   error
}

func (s *switchableSource) PollProperties(context.Context) (Properties, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props, s.err
}

func (s *switchableSource) set(p Properties, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props = p
	s.err = err
}

func strPtr(s string) *string { return &s }

func props(polling, overdue, minimum, maximum string) StaticSource {
	return StaticSource{
		PollingTime:        polling,
		PollingOverdueTime: overdue,
		MinPollingTime:     minimum,
		MaxPollingTime:     maximum,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(t *testing.T, src PropertiesSource, tenants *fakeTenants, opts ...Option) *Resolver {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewResolver(context.Background(), src, tenants, opts...)
}

func TestResolver_GlobalValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  StaticSource
		want Settings
	}{
		{
			name: "Should use configured values when all are valid",
			src:  props("00:08:00", "00:12:00", "00:01:00", "20:00:00"),
			want: Settings{
				MinPollingTime:     time.Minute,
				MaxPollingTime:     20 * time.Hour,
				PollingTime:        8 * time.Minute,
				PollingOverdueTime: 12 * time.Minute,
			},
		},
		{
			name: "Should fall back to hard-coded values when every text is malformed",
			src:  props("00-08:00", "abc", "12:00:000", "20hours"),
			want: defaultSettings(),
		},
		{
			name: "Should reset both bounds when min is greater than max but keep valid defaults",
			src:  props("00:07:00", "00:07:00", "01:00:00", "00:00:00"),
			want: Settings{
				MinPollingTime:     DefaultMinPollingTime,
				MaxPollingTime:     DefaultMaxPollingTime,
				PollingTime:        7 * time.Minute,
				PollingOverdueTime: 7 * time.Minute,
			},
		},
		{
			name: "Should reset both bounds when only one bound is malformed",
			src:  props("00:07:00", "00:07:00", "00:01:00", "ten hours"),
			want: Settings{
				MinPollingTime:     DefaultMinPollingTime,
				MaxPollingTime:     DefaultMaxPollingTime,
				PollingTime:        7 * time.Minute,
				PollingOverdueTime: 7 * time.Minute,
			},
		},
		{
			name: "Should fall back defaults that are outside the bounds",
			src:  props("22:00:00", "00:07:00", "01:00:00", "10:00:00"),
			want: Settings{
				MinPollingTime:     time.Hour,
				MaxPollingTime:     10 * time.Hour,
				PollingTime:        DefaultPollingTime,
				PollingOverdueTime: DefaultPollingOverdueTime,
			},
		},
		{
			name: "Should validate poll and overdue independently",
			src:  props("00:02:00", "garbage", "00:01:00", "01:00:00"),
			want: Settings{
				MinPollingTime:     time.Minute,
				MaxPollingTime:     time.Hour,
				PollingTime:        2 * time.Minute,
				PollingOverdueTime: DefaultPollingOverdueTime,
			},
		},
		{
			name: "Should accept defaults equal to the bounds",
			src:  props("00:01:00", "01:00:00", "00:01:00", "01:00:00"),
			want: Settings{
				MinPollingTime:     time.Minute,
				MaxPollingTime:     time.Hour,
				PollingTime:        time.Minute,
				PollingOverdueTime: time.Hour,
			},
		},
		{
			name: "Should accept equal min and max",
			src:  props("00:10:00", "00:10:00", "00:10:00", "00:10:00"),
			want: Settings{
				MinPollingTime:     10 * time.Minute,
				MaxPollingTime:     10 * time.Minute,
				PollingTime:        10 * time.Minute,
				PollingOverdueTime: 10 * time.Minute,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestResolver(t, tt.src, &fakeTenants{})

			assert.Equal(t, tt.want, r.Settings())
			assert.Equal(t, tt.want.MinPollingTime, r.MinimumPollingInterval())
			assert.Equal(t, tt.want.MaxPollingTime, r.MaximumPollingInterval())
			assert.Equal(t, tt.want.PollingTime, r.GlobalPollTimeInterval())
			assert.Equal(t, tt.want.PollingOverdueTime, r.GlobalOverduePollTimeInterval())

			// Without tenant overrides the effective values are the global ones.
			ctx := context.Background()
			assert.Equal(t, tt.want.PollingTime, r.PollTimeInterval(ctx))
			assert.Equal(t, tt.want.PollingOverdueTime, r.OverduePollTimeInterval(ctx))
		})
	}
}

func TestResolver_TenantOverrides(t *testing.T) {
	t.Parallel()

	defaults := props("00:05:00", "00:05:00", "00:00:30", "23:59:59")

	tests := []struct {
		name        string
		md          *TenantMetadata
		readErr     error
		enforce     bool
		wantPoll    time.Duration
		wantOverdue time.Duration
	}{
		{
			name:        "Should return tenant values when present",
			md:          &TenantMetadata{PollingTime: strPtr("00:11:00"), PollingOverdueTime: strPtr("00:13:00")},
			wantPoll:    11 * time.Minute,
			wantOverdue: 13 * time.Minute,
		},
		{
			name:        "Should return tenant values verbatim even outside the global bounds",
			md:          &TenantMetadata{PollingTime: strPtr("00:00:01"), PollingOverdueTime: strPtr("30:00:00")},
			wantPoll:    time.Second,
			wantOverdue: 30 * time.Hour,
		},
		{
			name:        "Should fall back to global values for out of bounds tenant values when enforced",
			md:          &TenantMetadata{PollingTime: strPtr("00:00:01"), PollingOverdueTime: strPtr("30:00:00")},
			enforce:     true,
			wantPoll:    DefaultPollingTime,
			wantOverdue: DefaultPollingOverdueTime,
		},
		{
			name:        "Should keep in-bounds tenant values when enforced",
			md:          &TenantMetadata{PollingTime: strPtr("00:11:00"), PollingOverdueTime: strPtr("00:13:00")},
			enforce:     true,
			wantPoll:    11 * time.Minute,
			wantOverdue: 13 * time.Minute,
		},
		{
			name:        "Should fall back to global values for malformed tenant values",
			md:          &TenantMetadata{PollingTime: strPtr("00-11:00"), PollingOverdueTime: strPtr("00:130:00")},
			wantPoll:    DefaultPollingTime,
			wantOverdue: DefaultPollingOverdueTime,
		},
		{
			name:        "Should resolve each field on its own",
			md:          &TenantMetadata{PollingTime: strPtr("00:11:00")},
			wantPoll:    11 * time.Minute,
			wantOverdue: DefaultPollingOverdueTime,
		},
		{
			name:        "Should fall back when the tenant has no record",
			md:          nil,
			wantPoll:    DefaultPollingTime,
			wantOverdue: DefaultPollingOverdueTime,
		},
		{
			name:        "Should fall back when the tenant lookup fails",
			readErr:     errors.New("connection refused"),
			wantPoll:    DefaultPollingTime,
			wantOverdue: DefaultPollingOverdueTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tenants := &fakeTenants{md: tt.md, readErr: tt.readErr}
			r := newTestResolver(t, defaults, tenants, WithTenantBoundsEnforced(tt.enforce))
			ctx := context.Background()

			assert.Equal(t, tt.wantPoll, r.PollTimeInterval(ctx))
			assert.Equal(t, tt.wantOverdue, r.OverduePollTimeInterval(ctx))
		})
	}
}

func TestResolver_TenantSetters(t *testing.T) {
	t.Parallel()

	defaults := props("00:05:00", "00:05:00", "00:00:30", "23:59:59")

	t.Run("Should write canonical text for tenant values", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{}
		r := newTestResolver(t, defaults, tenants)
		ctx := context.Background()

		poll := 3*time.Hour + 3*time.Second
		overdue := 7*time.Minute + 7*time.Second
		require.NoError(t, r.SetTenantPollTimeInterval(ctx, &poll))
		require.NoError(t, r.SetTenantOverduePollTimeInterval(ctx, &overdue))

		require.Len(t, tenants.pollWrites, 1)
		require.Len(t, tenants.overdueWrites, 1)
		assert.Equal(t, "03:00:03", *tenants.pollWrites[0])
		assert.Equal(t, "00:07:07", *tenants.overdueWrites[0])

		assert.Equal(t, poll, r.PollTimeInterval(ctx))
		assert.Equal(t, overdue, r.OverduePollTimeInterval(ctx))
	})

	t.Run("Should write absent values for nil and fall back to global values", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{md: &TenantMetadata{
			PollingTime:        strPtr("00:11:00"),
			PollingOverdueTime: strPtr("00:13:00"),
		}}
		r := newTestResolver(t, defaults, tenants)
		ctx := context.Background()

		require.NoError(t, r.SetTenantPollTimeInterval(ctx, nil))
		require.NoError(t, r.SetTenantOverduePollTimeInterval(ctx, nil))

		require.Len(t, tenants.pollWrites, 1)
		require.Len(t, tenants.overdueWrites, 1)
		assert.Nil(t, tenants.pollWrites[0])
		assert.Nil(t, tenants.overdueWrites[0])

		assert.Equal(t, DefaultPollingTime, r.PollTimeInterval(ctx))
		assert.Equal(t, DefaultPollingOverdueTime, r.OverduePollTimeInterval(ctx))
	})

	t.Run("Should not check bounds on write", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{}
		r := newTestResolver(t, defaults, tenants)

		tooShort := time.Second
		require.NoError(t, r.SetTenantPollTimeInterval(context.Background(), &tooShort))
		assert.Equal(t, "00:00:01", *tenants.pollWrites[0])
	})

	t.Run("Should reject negative durations without writing", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{}
		r := newTestResolver(t, defaults, tenants)

		negative := -time.Minute
		err := r.SetTenantOverduePollTimeInterval(context.Background(), &negative)
		assert.ErrorIs(t, err, ErrNegativeDuration)
		assert.Empty(t, tenants.overdueWrites)
	})

	t.Run("Should wrap accessor write errors", func(t *testing.T) {
		t.Parallel()
		writeErr := errors.New("db down")
		r := newTestResolver(t, defaults, &fakeTenants{writeErr: writeErr})

		d := time.Minute
		err := r.SetTenantPollTimeInterval(context.Background(), &d)
		assert.ErrorIs(t, err, writeErr)
	})
}

func TestResolver_TenantIntervals(t *testing.T) {
	t.Parallel()

	defaults := props("00:05:00", "00:05:00", "00:00:30", "23:59:59")

	t.Run("Should derive effective values from the overrides it returns", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{md: &TenantMetadata{PollingTime: strPtr("00:11:00"), PollingOverdueTime: strPtr("bogus")}}
		r := newTestResolver(t, defaults, tenants)

		view, err := r.TenantIntervals(context.Background())
		require.NoError(t, err)
		require.NotNil(t, view.Overrides)
		assert.Equal(t, "00:11:00", *view.Overrides.PollingTime)
		assert.Equal(t, "bogus", *view.Overrides.PollingOverdueTime)
		assert.Equal(t, 11*time.Minute, view.PollingTime)
		assert.Equal(t, DefaultPollingOverdueTime, view.PollingOverdueTime)
	})

	t.Run("Should apply the bounds option", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{md: &TenantMetadata{PollingTime: strPtr("00:00:01")}}
		r := newTestResolver(t, defaults, tenants, WithTenantBoundsEnforced(true))

		view, err := r.TenantIntervals(context.Background())
		require.NoError(t, err)
		assert.Equal(t, DefaultPollingTime, view.PollingTime)
	})

	t.Run("Should return global values for a tenant without a record", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(t, defaults, &fakeTenants{})

		view, err := r.TenantIntervals(context.Background())
		require.NoError(t, err)
		assert.Nil(t, view.Overrides)
		assert.Equal(t, DefaultPollingTime, view.PollingTime)
		assert.Equal(t, DefaultPollingOverdueTime, view.PollingOverdueTime)
	})

	t.Run("Should return the lookup error", func(t *testing.T) {
		t.Parallel()
		readErr := errors.New("connection refused")
		r := newTestResolver(t, defaults, &fakeTenants{readErr: readErr})

		_, err := r.TenantIntervals(context.Background())
		assert.ErrorIs(t, err, readErr)
	})
}

func TestResolver_UpdateTenantOverrides(t *testing.T) {
	t.Parallel()

	defaults := props("00:05:00", "00:05:00", "00:00:30", "23:59:59")

	t.Run("Should write both fields in one update", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{}
		r := newTestResolver(t, defaults, tenants)
		ctx := context.Background()

		poll, overdue := 11*time.Minute, 13*time.Minute
		require.NoError(t, r.UpdateTenantOverrides(ctx, TenantOverrideChange{
			PollingTime: &poll, SetPollingTime: true,
			PollingOverdueTime: &overdue, SetPollingOverdueTime: true,
		}))

		require.Len(t, tenants.updates, 1)
		assert.Equal(t, "00:11:00", *tenants.updates[0].PollingTime)
		assert.Equal(t, "00:13:00", *tenants.updates[0].PollingOverdueTime)
		assert.Empty(t, tenants.pollWrites)
		assert.Empty(t, tenants.overdueWrites)

		assert.Equal(t, poll, r.PollTimeInterval(ctx))
		assert.Equal(t, overdue, r.OverduePollTimeInterval(ctx))
	})

	t.Run("Should leave unselected fields untouched and clear selected nil fields", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{md: &TenantMetadata{
			PollingTime:        strPtr("00:11:00"),
			PollingOverdueTime: strPtr("00:13:00"),
		}}
		r := newTestResolver(t, defaults, tenants)
		ctx := context.Background()

		require.NoError(t, r.UpdateTenantOverrides(ctx, TenantOverrideChange{SetPollingTime: true}))

		require.Len(t, tenants.updates, 1)
		assert.True(t, tenants.updates[0].SetPollingTime)
		assert.Nil(t, tenants.updates[0].PollingTime)
		assert.False(t, tenants.updates[0].SetPollingOverdueTime)

		assert.Equal(t, DefaultPollingTime, r.PollTimeInterval(ctx))
		assert.Equal(t, 13*time.Minute, r.OverduePollTimeInterval(ctx))
	})

	t.Run("Should write nothing when one value is negative", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{}
		r := newTestResolver(t, defaults, tenants)

		poll, overdue := time.Minute, -time.Minute
		err := r.UpdateTenantOverrides(context.Background(), TenantOverrideChange{
			PollingTime: &poll, SetPollingTime: true,
			PollingOverdueTime: &overdue, SetPollingOverdueTime: true,
		})
		assert.ErrorIs(t, err, ErrNegativeDuration)
		assert.Empty(t, tenants.updates)
	})

	t.Run("Should skip the write when no field is selected", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{}
		r := newTestResolver(t, defaults, tenants)

		require.NoError(t, r.UpdateTenantOverrides(context.Background(), TenantOverrideChange{}))
		assert.Empty(t, tenants.updates)
	})

	t.Run("Should wrap accessor write errors", func(t *testing.T) {
		t.Parallel()
		writeErr := errors.New("db down")
		r := newTestResolver(t, defaults, &fakeTenants{writeErr: writeErr})

		d := time.Minute
		err := r.UpdateTenantOverrides(context.Background(), TenantOverrideChange{PollingTime: &d, SetPollingTime: true})
		assert.ErrorIs(t, err, writeErr)
	})

	t.Run("Should delete the tenant record on clear", func(t *testing.T) {
		t.Parallel()
		tenants := &fakeTenants{md: &TenantMetadata{PollingTime: strPtr("00:11:00")}}
		r := newTestResolver(t, defaults, tenants)
		ctx := context.Background()

		require.NoError(t, r.ClearTenantOverrides(ctx))
		assert.Equal(t, 1, tenants.deletes)

		view, err := r.TenantIntervals(ctx)
		require.NoError(t, err)
		assert.Nil(t, view.Overrides)
		assert.Equal(t, DefaultPollingTime, view.PollingTime)
	})
}

func TestResolver_Reload(t *testing.T) {
	t.Parallel()

	t.Run("Should publish hard-coded defaults when the first read fails", func(t *testing.T) {
		t.Parallel()
		src := &switchableSource{err: errors.New("redis down")}
		r := newTestResolver(t, src, &fakeTenants{})

		assert.Equal(t, defaultSettings(), r.Settings())
	})

	t.Run("Should pick up new values on reload", func(t *testing.T) {
		t.Parallel()
		src := &switchableSource{props: Properties(props("00:08:00", "00:12:00", "00:01:00", "20:00:00"))}
		r := newTestResolver(t, src, &fakeTenants{})
		require.Equal(t, 8*time.Minute, r.GlobalPollTimeInterval())

		src.set(Properties(props("00:09:00", "00:10:00", "00:02:00", "02:00:00")), nil)
		require.NoError(t, r.Reload(context.Background()))

		assert.Equal(t, Settings{
			MinPollingTime:     2 * time.Minute,
			MaxPollingTime:     2 * time.Hour,
			PollingTime:        9 * time.Minute,
			PollingOverdueTime: 10 * time.Minute,
		}, r.Settings())
	})

	t.Run("Should keep the current snapshot when a reload read fails", func(t *testing.T) {
		t.Parallel()
		src := &switchableSource{props: Properties(props("00:08:00", "00:12:00", "00:01:00", "20:00:00"))}
		r := newTestResolver(t, src, &fakeTenants{})
		before := r.Settings()

		src.set(Properties{}, errors.New("redis down"))
		err := r.Reload(context.Background())

		require.Error(t, err)
		assert.Equal(t, before, r.Settings())
	})
}

func TestResolver_ConcurrentReloadIsConsistent(t *testing.T) {
	t.Parallel()

	// Both property sets are internally consistent; a torn read would pair
	// the wide bounds with the narrow default or vice versa.
	narrow := Properties(props("00:02:00", "00:02:00", "00:01:00", "00:03:00"))
	wide := Properties(props("05:00:00", "05:00:00", "01:00:00", "10:00:00"))

	src := &switchableSource{props: narrow}
	r := newTestResolver(t, src, &fakeTenants{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				src.set(wide, nil)
			} else {
				src.set(narrow, nil)
			}
			_ = r.Reload(ctx)
		}
		cancel()
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				s := r.Settings()
				assert.True(t, s.contains(s.PollingTime), "poll default outside its own bounds: %+v", s)
				assert.True(t, s.contains(s.PollingOverdueTime), "overdue default outside its own bounds: %+v", s)
			}
		}()
	}

	wg.Wait()
}

func TestNewResolver_PanicsOnNilDependencies(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		NewResolver(context.Background(), nil, &fakeTenants{})
	})
	assert.Panics(t, func() {
		NewResolver(context.Background(), StaticSource{}, nil)
	})
}
