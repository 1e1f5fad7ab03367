package handler

import (
	"log/slog"
	"net/http"

	"github.com/expensio/ml-gateway/internal/circuitbreaker"
	"github.com/expensio/ml-gateway/internal/healthcheck"
)

// ModelInfo serves metadata about the model behind the prediction service,
// cached briefly so dashboards polling it do not hammer the upstream.
func (h *GatewayHandler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	if info, ok := h.modelCache.Get(modelCacheKey); ok {
		h.writeJSON(w, http.StatusOK, info)
		return
	}

	info, err := h.predictor.ModelInfo(r.Context())
	if err != nil {
		h.logger.Warn("Model info unavailable", slog.String("error", err.Error()))
		h.writeError(w, http.StatusServiceUnavailable, "Model information unavailable")
		return
	}

	h.modelCache.Set(modelCacheKey, *info)
	h.writeJSON(w, http.StatusOK, info)
}

type dependenciesResponse struct {
	Dependencies    []healthcheck.Status               `json:"dependencies"`
	CircuitBreakers map[string]circuitbreaker.Snapshot `json:"circuit_breakers"`
}

// Dependencies reports the watcher's view of each upstream plus the state
// of every circuit breaker.
func (h *GatewayHandler) Dependencies(w http.ResponseWriter, r *http.Request) {
	statuses := make([]healthcheck.Status, 0, len(h.health))
	for _, dep := range h.health {
		statuses = append(statuses, dep.Status())
	}

	var breakers map[string]circuitbreaker.Snapshot
	if h.breakers != nil {
		breakers = h.breakers.Snapshot()
	}

	h.writeJSON(w, http.StatusOK, dependenciesResponse{
		Dependencies:    statuses,
		CircuitBreakers: breakers,
	})
}

type healthResponse struct {
	Status       string          `json:"status"`
	Service      string          `json:"service"`
	Dependencies map[string]bool `json:"dependencies"`
}

// Health is the gateway's own liveness endpoint. It always answers 200;
// degraded dependencies show up in the payload, not in the status code.
func (h *GatewayHandler) Health(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]bool, len(h.health))
	status := "ok"
	for _, dep := range h.health {
		healthy := dep.Healthy()
		deps[dep.Name()] = healthy
		if !healthy {
			status = "degraded"
		}
	}

	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:       status,
		Service:      "ml-gateway",
		Dependencies: deps,
	})
}
