package pollinterval

import "time"

// Hard-coded fallbacks, applied whenever configured values do not validate.
const (
	DefaultMinPollingTime     = 30 * time.Second
	DefaultMaxPollingTime     = 23*time.Hour + 59*time.Minute + 59*time.Second
	DefaultPollingTime        = 5 * time.Minute
	DefaultPollingOverdueTime = 5 * time.Minute
)

// Fallback reasons reported to metrics and logs.
const (
	reasonMalformed    = "malformed"
	reasonOutOfBounds  = "out_of_bounds"
	reasonInconsistent = "inconsistent"
	reasonLookupFailed = "lookup_failed"
)

// Field names reported to metrics and logs.
const (
	fieldBounds  = "bounds"
	fieldPoll    = "polling_time"
	fieldOverdue = "polling_overdue_time"
)

// Settings is a consistent view of the validated global values.
type Settings struct {
	MinPollingTime     time.Duration
	MaxPollingTime     time.Duration
	PollingTime        time.Duration
	PollingOverdueTime time.Duration
}

// fallback records one value that was replaced by its hard-coded default.
type fallback struct {
	field  string
	reason string
	value  string
}

func defaultSettings() Settings {
	return Settings{
		MinPollingTime:     DefaultMinPollingTime,
		MaxPollingTime:     DefaultMaxPollingTime,
		PollingTime:        DefaultPollingTime,
		PollingOverdueTime: DefaultPollingOverdueTime,
	}
}

// buildSettings validates raw properties into Settings.
// Bounds are accepted or rejected as a pair; each default is then checked
// on its own against the bounds that were actually accepted.
func buildSettings(p Properties) (Settings, []fallback) {
	s := defaultSettings()
	var fallbacks []fallback

	minAllowed, minOK := ParseDuration(p.MinPollingTime)
	maxAllowed, maxOK := ParseDuration(p.MaxPollingTime)
	switch {
	case !minOK || !maxOK:
		fallbacks = append(fallbacks, fallback{
			field:  fieldBounds,
			reason: reasonMalformed,
			value:  p.MinPollingTime + " - " + p.MaxPollingTime,
		})
	case minAllowed > maxAllowed:
		fallbacks = append(fallbacks, fallback{
			field:  fieldBounds,
			reason: reasonInconsistent,
			value:  p.MinPollingTime + " - " + p.MaxPollingTime,
		})
	default:
		s.MinPollingTime = minAllowed
		s.MaxPollingTime = maxAllowed
	}

	if d, reason := validateDefault(p.PollingTime, s); reason == "" {
		s.PollingTime = d
	} else {
		fallbacks = append(fallbacks, fallback{field: fieldPoll, reason: reason, value: p.PollingTime})
	}

	if d, reason := validateDefault(p.PollingOverdueTime, s); reason == "" {
		s.PollingOverdueTime = d
	} else {
		fallbacks = append(fallbacks, fallback{field: fieldOverdue, reason: reason, value: p.PollingOverdueTime})
	}

	return s, fallbacks
}

// validateDefault returns the parsed value, or a non-empty reason when it must fall back.
func validateDefault(text string, bounds Settings) (time.Duration, string) {
	d, ok := ParseDuration(text)
	if !ok {
		return 0, reasonMalformed
	}
	if !bounds.contains(d) {
		return 0, reasonOutOfBounds
	}
	return d, ""
}

func (s Settings) contains(d time.Duration) bool {
	return d >= s.MinPollingTime && d <= s.MaxPollingTime
}
