package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// readinessResponse is the probe body. Only the status code matters to Kubernetes;
// the body is for humans.
type readinessResponse struct {
	Status map[string]string `json:"status"`
}

type checkResult struct {
	name string
	err  error
}

// liveness responds with 200 OK while the process serves HTTP.
// It deliberately ignores dependencies: a database outage must not restart the pod.
func (s *Server) liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness runs every checker in parallel under the configured timeout and
// returns 200 only if all of them pass.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	results := make(chan checkResult, len(s.checkers))
	for _, checker := range s.checkers {
		go func(c Checker) {
			results <- checkResult{name: c.Name(), err: c.Check(ctx)}
		}(checker)
	}

	resp := readinessResponse{Status: make(map[string]string, len(s.checkers))}
	ready := true
	for range s.checkers {
		res := <-results
		if res.err != nil {
			// WARN, not ERROR: the orchestrator retries and a flapping dependency should not page.
			s.logger.Warn("health probe failed",
				slog.String("component", res.name),
				slog.String("error", res.err.Error()),
			)
			resp.Status[res.name] = fmt.Sprintf("down: %v", res.err)
			ready = false
			continue
		}
		resp.Status[res.name] = "up"
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
