package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/pollconf/internal/pollinterval"
	"github.com/rafaeljc/pollconf/internal/validation"
)

// Hash fields of the properties key.
const (
	FieldPollingTime        = "polling_time"
	FieldPollingOverdueTime = "polling_overdue_time"
	FieldMinPollingTime     = "min_polling_time"
	FieldMaxPollingTime     = "max_polling_time"
)

var _ pollinterval.PropertiesSource = (*RedisPropertiesSource)(nil)

// RedisPropertiesSource overlays the global poll properties stored in a Redis hash
// on top of a base source. Absent or empty fields keep the base value.
type RedisPropertiesSource struct {
	client redis.Cmdable
	key    string
	base   pollinterval.PropertiesSource
}

// NewRedisPropertiesSource creates a source reading the hash at key.
func NewRedisPropertiesSource(client redis.Cmdable, key string, base pollinterval.PropertiesSource) *RedisPropertiesSource {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	if base == nil {
		panic("cache: base properties source cannot be nil")
	}
	validation.AssertNotEmpty(key, "properties key")
	return &RedisPropertiesSource{client: client, key: key, base: base}
}

// PollProperties returns the base properties with the Redis overrides applied.
// A Redis failure is returned as is: the resolver keeps its current snapshot.
func (s *RedisPropertiesSource) PollProperties(ctx context.Context) (pollinterval.Properties, error) {
	props, err := s.base.PollProperties(ctx)
	if err != nil {
		return pollinterval.Properties{}, err
	}

	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return pollinterval.Properties{}, fmt.Errorf("failed to read poll properties from redis: %w", err)
	}

	return overlay(props, fields), nil
}

// Overrides returns only the fields currently stored in Redis.
func (s *RedisPropertiesSource) Overrides(ctx context.Context) (pollinterval.Properties, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return pollinterval.Properties{}, fmt.Errorf("failed to read poll properties from redis: %w", err)
	}
	return overlay(pollinterval.Properties{}, fields), nil
}

// SetProperties stores the non-empty fields of p. Other stored fields are kept.
func (s *RedisPropertiesSource) SetProperties(ctx context.Context, p pollinterval.Properties) error {
	fields := toFields(p)
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, s.key, fields).Err(); err != nil {
		return fmt.Errorf("failed to store poll properties in redis: %w", err)
	}
	return nil
}

// ClearProperties removes every override so the base values apply again.
func (s *RedisPropertiesSource) ClearProperties(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear poll properties in redis: %w", err)
	}
	return nil
}

func overlay(p pollinterval.Properties, fields map[string]string) pollinterval.Properties {
	set := func(dst *string, field string) {
		if v := fields[field]; v != "" {
			*dst = v
		}
	}
	set(&p.PollingTime, FieldPollingTime)
	set(&p.PollingOverdueTime, FieldPollingOverdueTime)
	set(&p.MinPollingTime, FieldMinPollingTime)
	set(&p.MaxPollingTime, FieldMaxPollingTime)
	return p
}

func toFields(p pollinterval.Properties) map[string]any {
	fields := make(map[string]any, 4)
	add := func(field, v string) {
		if v != "" {
			fields[field] = v
		}
	}
	add(FieldPollingTime, p.PollingTime)
	add(FieldPollingOverdueTime, p.PollingOverdueTime)
	add(FieldMinPollingTime, p.MinPollingTime)
	add(FieldMaxPollingTime, p.MaxPollingTime)
	return fields
}
