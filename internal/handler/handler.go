package handler

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/expensio/ml-gateway/internal/cache"
	"github.com/expensio/ml-gateway/internal/circuitbreaker"
	"github.com/expensio/ml-gateway/internal/corrections"
	"github.com/expensio/ml-gateway/internal/healthcheck"
	"github.com/expensio/ml-gateway/internal/metrics"
	"github.com/expensio/ml-gateway/internal/mlclient"
	"github.com/expensio/ml-gateway/internal/retrain"
)

// Dependency labels shared by metrics events and introspection payloads.
const (
	DepMLService     = "ml-service"
	DepReportService = "report-service"
)

const (
	defaultRetrainMin = 50
	modelCacheKey     = "model-info"
	modelCacheTTL     = 5 * time.Minute
	maxBodyBytes      = 1 << 20
)

// Deps collects the handler's collaborators. Notifier and Collector may be
// nil; the handler simply skips them.
type Deps struct {
	Logger      *slog.Logger
	Predictor   *mlclient.Client
	Corrections *corrections.Store
	Notifier    *retrain.Notifier
	Breakers    *circuitbreaker.Registry
	Health      []*healthcheck.Dependency
	Collector   *metrics.Collector
	RetrainMin  int
}

type GatewayHandler struct {
	logger      *slog.Logger
	predictor   *mlclient.Client
	corrections *corrections.Store
	notifier    *retrain.Notifier
	breakers    *circuitbreaker.Registry
	health      []*healthcheck.Dependency
	collector   *metrics.Collector
	retrainMin  int
	modelCache  *cache.LRU[mlclient.ModelInfo]
}

func New(deps Deps) *GatewayHandler {
	retrainMin := deps.RetrainMin
	if retrainMin <= 0 {
		retrainMin = defaultRetrainMin
	}

	return &GatewayHandler{
		logger:      deps.Logger,
		predictor:   deps.Predictor,
		corrections: deps.Corrections,
		notifier:    deps.Notifier,
		breakers:    deps.Breakers,
		health:      deps.Health,
		collector:   deps.Collector,
		retrainMin:  retrainMin,
		modelCache:  cache.New[mlclient.ModelInfo](1, modelCacheTTL),
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// LogRequests wraps the router with access logging.
func (h *GatewayHandler) LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		h.logger.Info("Handled request",
			slog.String("from", extractClientIP(r)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapped.statusCode),
			slog.Duration("duration", time.Since(start)))
	})
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func (h *GatewayHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *GatewayHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON parses the request body into out, rejecting bodies over 1 MB.
// On failure it answers 400 itself and reports false.
func (h *GatewayHandler) decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		h.logger.Warn("Rejected request body", slog.String("error", err.Error()))
		h.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func (h *GatewayHandler) emit(event metrics.Event) {
	if h.collector == nil {
		return
	}
	h.collector.Emit(event)
}

// observeOutcome reports how a prediction attempt ended. A nil outcome means
// fallbacks are disabled and no answer was produced at all.
func (h *GatewayHandler) observeOutcome(outcome *mlclient.Outcome, duration time.Duration) {
	switch {
	case outcome == nil:
		h.emit(metrics.Event{
			Type:       metrics.EventFallbackUsed,
			Dependency: DepMLService,
			Reason:     "fallback_disabled",
			Duration:   duration,
		})
	case outcome.Fallback:
		h.emit(metrics.Event{
			Type:       metrics.EventFallbackUsed,
			Dependency: DepMLService,
			Reason:     string(outcome.FallbackReason),
			Duration:   duration,
		})
	default:
		h.emit(metrics.Event{
			Type:       metrics.EventPredictionCompleted,
			Dependency: DepMLService,
			Duration:   duration,
		})
	}
}

// Confidences are rounded to four decimals at the HTTP edge only; the
// prediction path carries them untouched.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
