package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/pollconf/internal/config"
	"github.com/rafaeljc/pollconf/internal/pollinterval"
)

func TestOverlay(t *testing.T) {
	t.Parallel()

	base := pollinterval.Properties{
		PollingTime:        "00:05:00",
		PollingOverdueTime: "00:05:00",
		MinPollingTime:     "00:00:30",
		MaxPollingTime:     "23:59:59",
	}

	tests := []struct {
		name     string
		fields   map[string]string
		expected pollinterval.Properties
	}{
		{
			name:     "no overrides keeps base",
			fields:   map[string]string{},
			expected: base,
		},
		{
			name:   "single field override",
			fields: map[string]string{FieldPollingTime: "00:01:00"},
			expected: pollinterval.Properties{
				PollingTime:        "00:01:00",
				PollingOverdueTime: "00:05:00",
				MinPollingTime:     "00:00:30",
				MaxPollingTime:     "23:59:59",
			},
		},
		{
			name: "all fields override",
			fields: map[string]string{
				FieldPollingTime:        "00:01:00",
				FieldPollingOverdueTime: "00:02:00",
				FieldMinPollingTime:     "00:00:10",
				FieldMaxPollingTime:     "01:00:00",
			},
			expected: pollinterval.Properties{
				PollingTime:        "00:01:00",
				PollingOverdueTime: "00:02:00",
				MinPollingTime:     "00:00:10",
				MaxPollingTime:     "01:00:00",
			},
		},
		{
			name:     "empty value keeps base",
			fields:   map[string]string{FieldMaxPollingTime: ""},
			expected: base,
		},
		{
			name:     "unknown fields are ignored",
			fields:   map[string]string{"sleep": "00:00:01"},
			expected: base,
		},
		{
			name:   "invalid text is passed through for the resolver to reject",
			fields: map[string]string{FieldPollingTime: "garbage"},
			expected: pollinterval.Properties{
				PollingTime:        "garbage",
				PollingOverdueTime: "00:05:00",
				MinPollingTime:     "00:00:30",
				MaxPollingTime:     "23:59:59",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, overlay(base, tt.fields))
		})
	}
}

func TestToFields(t *testing.T) {
	t.Parallel()

	t.Run("Should skip empty values", func(t *testing.T) {
		fields := toFields(pollinterval.Properties{PollingTime: "00:01:00"})
		assert.Equal(t, map[string]any{FieldPollingTime: "00:01:00"}, fields)
	})

	t.Run("Should return an empty map for empty properties", func(t *testing.T) {
		assert.Empty(t, toFields(pollinterval.Properties{}))
	})
}

func TestDecodeEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantErr bool
		reason  string
	}{
		{
			name:    "valid event",
			payload: `{"id":"7f1c","reason":"api","at":"2024-01-01T00:00:00Z"}`,
			reason:  "api",
		},
		{name: "invalid json", payload: `{not json`, wantErr: true},
		{name: "missing id", payload: `{"reason":"api"}`, wantErr: true},
		{name: "empty payload", payload: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			event, err := decodeEvent(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.reason, event.Reason)
			assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), event.At)
		})
	}
}

func TestClientOptions(t *testing.T) {
	t.Parallel()

	base := config.RedisConfig{
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
	}

	t.Run("Should build address from host and port", func(t *testing.T) {
		cfg := base
		cfg.Host, cfg.Port, cfg.DB, cfg.Password = "localhost", "6379", 3, "secret"

		opts, err := clientOptions(&cfg)
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", opts.Addr)
		assert.Equal(t, 3, opts.DB)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 10, opts.PoolSize)
		assert.Nil(t, opts.TLSConfig)
	})

	t.Run("Should parse a URL and keep pool settings", func(t *testing.T) {
		cfg := base
		cfg.URL = "redis://:pw@cache.internal:6380/2"

		opts, err := clientOptions(&cfg)
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, "pw", opts.Password)
		assert.Equal(t, 2, opts.MinIdleConns)
		assert.Equal(t, 3*time.Second, opts.ReadTimeout)
	})

	t.Run("Should enable TLS when configured", func(t *testing.T) {
		cfg := base
		cfg.Host, cfg.Port, cfg.TLSEnabled = "localhost", "6379", true

		opts, err := clientOptions(&cfg)
		require.NoError(t, err)
		require.NotNil(t, opts.TLSConfig)
	})

	t.Run("Should reject an invalid URL", func(t *testing.T) {
		cfg := base
		cfg.URL = "http://not-redis"

		_, err := clientOptions(&cfg)
		assert.Error(t, err)
	})
}
