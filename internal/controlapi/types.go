package controlapi

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rafaeljc/pollconf/internal/pollinterval"
)

// PollSettingsResponse is the published global configuration, in HH:MM:SS.
type PollSettingsResponse struct {
	MinPollingTime     string `json:"min_polling_time"`
	MaxPollingTime     string `json:"max_polling_time"`
	PollingTime        string `json:"polling_time"`
	PollingOverdueTime string `json:"polling_overdue_time"`

	// Overrides lists the global values stored by administrators, when available.
	Overrides *PollPropertiesRequest `json:"overrides,omitempty"`
}

func newPollSettingsResponse(s pollinterval.Settings) PollSettingsResponse {
	return PollSettingsResponse{
		MinPollingTime:     pollinterval.FormatDuration(s.MinPollingTime),
		MaxPollingTime:     pollinterval.FormatDuration(s.MaxPollingTime),
		PollingTime:        pollinterval.FormatDuration(s.PollingTime),
		PollingOverdueTime: pollinterval.FormatDuration(s.PollingOverdueTime),
	}
}

// PollPropertiesRequest is the payload of PUT /api/v1/poll.
// Omitted fields keep their current value.
type PollPropertiesRequest struct {
	PollingTime        string `json:"polling_time,omitempty"`
	PollingOverdueTime string `json:"polling_overdue_time,omitempty"`
	MinPollingTime     string `json:"min_polling_time,omitempty"`
	MaxPollingTime     string `json:"max_polling_time,omitempty"`
}

// Validate checks that every provided value is a valid HH:MM:SS duration.
// Consistency between values is left to the resolver, which falls back on reload.
func (r *PollPropertiesRequest) Validate() *ErrorResponse {
	var details []ErrorDetail
	check := func(field, value string) {
		if value == "" {
			return
		}
		if _, ok := pollinterval.ParseDuration(value); !ok {
			details = append(details, ErrorDetail{Field: field, Issue: "must be a duration in HH:MM:SS format"})
		}
	}
	check("polling_time", r.PollingTime)
	check("polling_overdue_time", r.PollingOverdueTime)
	check("min_polling_time", r.MinPollingTime)
	check("max_polling_time", r.MaxPollingTime)

	if len(details) > 0 {
		return &ErrorResponse{Code: "ERR_INVALID_INPUT", Message: "Invalid poll properties", Details: details}
	}
	if r.toProperties() == (pollinterval.Properties{}) {
		return &ErrorResponse{Code: "ERR_INVALID_INPUT", Message: "At least one property is required"}
	}
	return nil
}

func (r *PollPropertiesRequest) toProperties() pollinterval.Properties {
	return pollinterval.Properties{
		PollingTime:        r.PollingTime,
		PollingOverdueTime: r.PollingOverdueTime,
		MinPollingTime:     r.MinPollingTime,
		MaxPollingTime:     r.MaxPollingTime,
	}
}

func newPollPropertiesRequest(p pollinterval.Properties) *PollPropertiesRequest {
	return &PollPropertiesRequest{
		PollingTime:        p.PollingTime,
		PollingOverdueTime: p.PollingOverdueTime,
		MinPollingTime:     p.MinPollingTime,
		MaxPollingTime:     p.MaxPollingTime,
	}
}

// OptionalDuration distinguishes an omitted field (Set is false) from an
// explicit null (Set is true, Value is nil).
type OptionalDuration struct {
	Set   bool
	Value *string
}

// UnmarshalJSON records that the field was present.
func (o *OptionalDuration) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// duration parses the value; nil means "clear the override".
func (o OptionalDuration) duration() (*time.Duration, bool) {
	if o.Value == nil {
		return nil, true
	}
	d, ok := pollinterval.ParseDuration(*o.Value)
	if !ok {
		return nil, false
	}
	return &d, true
}

// TenantPollRequest is the payload of PUT /api/v1/tenants/{tenant}/poll.
// A null value clears the override; an omitted field is left untouched.
type TenantPollRequest struct {
	PollingTime        OptionalDuration `json:"polling_time"`
	PollingOverdueTime OptionalDuration `json:"polling_overdue_time"`
}

// Validate checks that every non-null value parses and that at least one field is present.
func (r *TenantPollRequest) Validate() *ErrorResponse {
	if !r.PollingTime.Set && !r.PollingOverdueTime.Set {
		return &ErrorResponse{Code: "ERR_INVALID_INPUT", Message: "At least one of polling_time or polling_overdue_time is required"}
	}

	var details []ErrorDetail
	if _, ok := r.PollingTime.duration(); !ok {
		details = append(details, ErrorDetail{Field: "polling_time", Issue: "must be null or a duration in HH:MM:SS format"})
	}
	if _, ok := r.PollingOverdueTime.duration(); !ok {
		details = append(details, ErrorDetail{Field: "polling_overdue_time", Issue: "must be null or a duration in HH:MM:SS format"})
	}
	if len(details) > 0 {
		return &ErrorResponse{Code: "ERR_INVALID_INPUT", Message: "Invalid tenant poll overrides", Details: details}
	}
	return nil
}

// TenantPollResponse shows the effective intervals of a tenant and the raw overrides they derive from.
type TenantPollResponse struct {
	Tenant             string          `json:"tenant"`
	PollingTime        string          `json:"polling_time"`
	PollingOverdueTime string          `json:"polling_overdue_time"`
	Overrides          TenantOverrides `json:"overrides"`
}

// TenantOverrides are the stored values; null means the global default applies.
type TenantOverrides struct {
	PollingTime        *string `json:"polling_time"`
	PollingOverdueTime *string `json:"polling_overdue_time"`
}

// ControllerBaseResponse is the poll advice returned to a controller.
type ControllerBaseResponse struct {
	Config ControllerConfig `json:"config"`
}

// ControllerConfig wraps the polling section.
type ControllerConfig struct {
	Polling ControllerPolling `json:"polling"`
}

// ControllerPolling carries the time the controller should sleep before polling again.
type ControllerPolling struct {
	Sleep string `json:"sleep"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details provides optional granular validation errors.
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail provides context about specific field validation failures.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}
