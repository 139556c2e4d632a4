package controlapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/rafaeljc/pollconf/internal/logger"
)

// handleGetPoll processes GET /api/v1/poll.
// It returns the published global settings and, when Redis is configured,
// the stored overrides they were built from.
func (a *API) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	resp := newPollSettingsResponse(a.resolver.Settings())

	if a.properties != nil {
		overrides, err := a.properties.Overrides(r.Context())
		if err != nil {
			logger.FromContext(r.Context()).Warn("failed to read poll overrides", slog.String("error", err.Error()))
		} else {
			resp.Overrides = newPollPropertiesRequest(overrides)
		}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// handleUpdatePoll processes PUT /api/v1/poll.
//
// Responsibilities:
// 1. Decodes and validates the override payload.
// 2. Stores the overrides in Redis.
// 3. Reloads this instance and notifies the others.
// 4. Returns the settings now in effect (values may have fallen back).
func (a *API) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if a.properties == nil {
		renderError(w, r, http.StatusServiceUnavailable, "ERR_UNAVAILABLE",
			"Global poll overrides require Redis to be configured")
		return
	}

	var req PollPropertiesRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		renderError(w, r, http.StatusBadRequest, "ERR_INVALID_JSON", "Invalid JSON payload: "+err.Error())
		return
	}
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	if err := a.properties.SetProperties(r.Context(), req.toProperties()); err != nil {
		log.Error("failed to store poll overrides", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to store poll properties")
		return
	}

	if !a.reloadAndBroadcast(w, r, "poll properties updated") {
		return
	}

	log.Info("global poll properties updated")
	a.handleGetPoll(w, r)
}

// handleClearPoll processes DELETE /api/v1/poll, restoring the configured defaults.
func (a *API) handleClearPoll(w http.ResponseWriter, r *http.Request) {
	if a.properties == nil {
		renderError(w, r, http.StatusServiceUnavailable, "ERR_UNAVAILABLE",
			"Global poll overrides require Redis to be configured")
		return
	}

	if err := a.properties.ClearProperties(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("failed to clear poll overrides", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to clear poll properties")
		return
	}

	if !a.reloadAndBroadcast(w, r, "poll properties cleared") {
		return
	}
	a.handleGetPoll(w, r)
}

// handleReload processes POST /api/v1/poll/reload.
func (a *API) handleReload(w http.ResponseWriter, r *http.Request) {
	if !a.reloadAndBroadcast(w, r, "manual reload") {
		return
	}
	a.handleGetPoll(w, r)
}

// reloadAndBroadcast reloads this instance, then notifies the others.
// A failed local reload is answered with 502 and reported as false; a failed
// broadcast is only logged, the other instances catch up on their next tick.
func (a *API) reloadAndBroadcast(w http.ResponseWriter, r *http.Request, reason string) bool {
	log := logger.FromContext(r.Context())

	if err := a.resolver.Reload(r.Context()); err != nil {
		log.Error("reload failed", slog.String("error", err.Error()))
		renderError(w, r, http.StatusBadGateway, "ERR_RELOAD_FAILED",
			"Failed to read poll properties; the previous settings remain in effect")
		return false
	}

	if a.bus != nil {
		a.publishAsync(log, reason)
	}
	return true
}

// publishAsync notifies the other instances outside the request lifecycle,
// retrying with exponential backoff.
func (a *API) publishAsync(log *slog.Logger, reason string) {
	go func() {
		// Create a context disconnected from the HTTP request.
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		const maxRetries = 3
		delay := 100 * time.Millisecond

		for i := 0; i <= maxRetries; i++ {
			event, err := a.bus.Publish(ctx, reason)
			if err == nil {
				log.Debug("reload event published", slog.String("event_id", event.ID))
				return
			}

			if i == maxRetries {
				log.Error("failed to publish reload event after retries",
					slog.String("reason", reason),
					slog.String("error", err.Error()))
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
		}
	}()
}
