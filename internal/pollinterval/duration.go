package pollinterval

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrNegativeDuration is returned when a negative interval is written to tenant metadata.
// Negative spans have no HH:MM:SS representation.
var ErrNegativeDuration = errors.New("poll interval cannot be negative")

// durationRegex matches the canonical HH:MM:SS form.
// Hours are two digits, or more digits without a leading zero, so that every
// accepted text formats back to itself.
var durationRegex = regexp.MustCompile(`^(\d{2}|[1-9]\d{2,}):(\d{2}):(\d{2})$`)

// maxHours keeps hours*time.Hour inside the int64 range of time.Duration.
const maxHours = int64(time.Duration(1<<63-1) / time.Hour)

// ParseDuration converts an HH:MM:SS text into a duration.
// The boolean is false when the text is not a valid interval; callers are
// expected to fall back to the next value in precedence instead of failing.
func ParseDuration(s string) (time.Duration, bool) {
	m := durationRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	hours, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || hours >= maxHours {
		return 0, false
	}
	// Two-digit fields cannot fail Atoi once the regex matched.
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	if minutes > 59 || seconds > 59 {
		return 0, false
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second, true
}

// FormatDuration renders d as zero-padded HH:MM:SS. Sub-second precision is truncated
// and hours are not wrapped at 24 (3h0m3s -> "03:00:03", 100h -> "100:00:00").
// Negative durations render as "00:00:00"; use formatTenantValue on write paths.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// formatTenantValue maps the optional setter argument to the nullable metadata text.
func formatTenantValue(d *time.Duration) (*string, error) {
	if d == nil {
		return nil, nil
	}
	if *d < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNegativeDuration, d.String())
	}
	s := FormatDuration(*d)
	return &s, nil
}
