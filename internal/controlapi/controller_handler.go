package controlapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/pollconf/internal/logger"
	"github.com/rafaeljc/pollconf/internal/pollinterval"
)

// handleControllerBase processes GET /{tenant}/controller/v1/{controllerId}.
// It answers with the tenant's effective poll interval. The lookup never fails:
// store errors and invalid overrides fall back to the global default.
func (a *API) handleControllerBase(w http.ResponseWriter, r *http.Request) {
	sleep := a.resolver.PollTimeInterval(r.Context())

	logger.FromContext(r.Context()).Debug("poll advice served",
		slog.String("controller_id", chi.URLParam(r, "controllerId")),
		slog.Duration("sleep", sleep),
	)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ControllerBaseResponse{
		Config: ControllerConfig{
			Polling: ControllerPolling{Sleep: pollinterval.FormatDuration(sleep)},
		},
	})
}
