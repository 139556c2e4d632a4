package config

import (
	"fmt"
	"time"
)

// PollConfig holds the global controller poll properties and the reload settings.
//
// The four interval values are kept as raw HH:MM:SS text on purpose: a malformed value
// must not stop the service, it is replaced by a hard-coded default when the
// resolver loads it.
type PollConfig struct {
	PollingTime        string `envconfig:"POLLING_TIME" default:"00:05:00"`
	PollingOverdueTime string `envconfig:"POLLING_OVERDUE_TIME" default:"00:05:00"`
	MinPollingTime     string `envconfig:"MIN_POLLING_TIME" default:"00:00:30"`
	MaxPollingTime     string `envconfig:"MAX_POLLING_TIME" default:"23:59:59"`

	// EnforceTenantBounds makes tenant overrides outside [min, max] fall back to
	// the global value. Off by default: tenant overrides are used verbatim.
	EnforceTenantBounds bool `envconfig:"ENFORCE_TENANT_BOUNDS" default:"false"`

	// ReloadInterval is how often the global properties are re-read.
	ReloadInterval time.Duration `envconfig:"RELOAD_INTERVAL" default:"1m" validate:"min=1s"`

	// ReloadChannel is the Redis Pub/Sub channel used to fan out reload requests.
	ReloadChannel string `envconfig:"RELOAD_CHANNEL" default:"pollconf:reload"`

	// PropertiesKey is the Redis hash holding administrator overrides of the properties.
	PropertiesKey string `envconfig:"PROPERTIES_KEY" default:"pollconf:properties"`
}

// Validate checks the reload settings. Interval texts are not checked here.
func (p *PollConfig) Validate() error {
	if err := validateNoWhitespace(p.ReloadChannel, "poll reload channel"); err != nil {
		return err
	}
	if err := validateNoWhitespace(p.PropertiesKey, "poll properties key"); err != nil {
		return err
	}
	if p.ReloadChannel == p.PropertiesKey {
		return fmt.Errorf("poll reload channel and properties key must differ, both are %q", p.PropertiesKey)
	}
	return nil
}
