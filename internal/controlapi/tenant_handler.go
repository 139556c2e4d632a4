package controlapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/rafaeljc/pollconf/internal/logger"
	"github.com/rafaeljc/pollconf/internal/pollinterval"
	"github.com/rafaeljc/pollconf/internal/tenant"
)

// handleGetTenantPoll processes GET /api/v1/tenants/{tenant}/poll.
func (a *API) handleGetTenantPoll(w http.ResponseWriter, r *http.Request) {
	a.renderTenantPoll(w, r)
}

// handleUpdateTenantPoll processes PUT /api/v1/tenants/{tenant}/poll.
// Values are stored as given (in canonical form); bounds are not enforced on write.
func (a *API) handleUpdateTenantPoll(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req TenantPollRequest
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

	poll, _ := req.PollingTime.duration()
	overdue, _ := req.PollingOverdueTime.duration()
	change := pollinterval.TenantOverrideChange{
		PollingTime:           poll,
		SetPollingTime:        req.PollingTime.Set,
		PollingOverdueTime:    overdue,
		SetPollingOverdueTime: req.PollingOverdueTime.Set,
	}
	if err := a.resolver.UpdateTenantOverrides(r.Context(), change); err != nil {
		log.Error("failed to store tenant poll overrides", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to store tenant poll overrides")
		return
	}

	log.Info("tenant poll overrides updated")
	a.renderTenantPoll(w, r)
}

// handleDeleteTenantPoll processes DELETE /api/v1/tenants/{tenant}/poll.
// The tenant record is removed so the global defaults apply.
func (a *API) handleDeleteTenantPoll(w http.ResponseWriter, r *http.Request) {
	if err := a.resolver.ClearTenantOverrides(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("failed to clear tenant poll overrides", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to clear tenant poll overrides")
		return
	}

	logger.FromContext(r.Context()).Info("tenant poll overrides cleared")
	w.WriteHeader(http.StatusNoContent)
}

// renderTenantPoll answers with the overrides and the effective values taken from one read.
func (a *API) renderTenantPoll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := tenant.FromContext(ctx)

	view, err := a.resolver.TenantIntervals(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to read tenant overrides", slog.String("error", err.Error()))
		renderError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to read tenant poll overrides")
		return
	}

	resp := TenantPollResponse{
		Tenant:             id,
		PollingTime:        pollinterval.FormatDuration(view.PollingTime),
		PollingOverdueTime: pollinterval.FormatDuration(view.PollingOverdueTime),
	}
	if view.Overrides != nil {
		resp.Overrides = TenantOverrides{
			PollingTime:        view.Overrides.PollingTime,
			PollingOverdueTime: view.Overrides.PollingOverdueTime,
		}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}
