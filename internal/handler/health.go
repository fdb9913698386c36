package handler

import (
	"context"
	"net/http"
	"time"
)

// healthTimeout bounds each dependency probe.
const healthTimeout = 2 * time.Second

// DependencyCheck probes one backing service. Check returns nil when the
// dependency is usable.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus reports one dependency.
type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// GetHealth handles GET /healthz.
// It returns 200 with {"status":"ok"} when every registered dependency is up,
// and 503 with per-dependency detail otherwise.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	status := http.StatusOK
	if len(s.checks) > 0 {
		resp.Dependencies = make(map[string]DependencyStatus, len(s.checks))
	}
	for _, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := c.Check(ctx)
		cancel()
		if err != nil {
			resp.Dependencies[c.Name] = DependencyStatus{Status: "down", Error: err.Error()}
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[c.Name] = DependencyStatus{Status: "up"}
	}
	writeJSON(w, status, resp)
}
