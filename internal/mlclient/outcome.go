package mlclient

import "strconv"

// FallbackReason identifies why a prediction was answered locally instead of
// by the remote model. Reasons are stable tokens, safe to expose in API
// responses and metrics labels.
type FallbackReason string

const (
	ReasonServiceDisabled    FallbackReason = "service_disabled"
	ReasonCircuitOpen        FallbackReason = "circuit_open"
	ReasonServiceUnavailable FallbackReason = "service_unavailable"
	ReasonTimeout            FallbackReason = "timeout"
	ReasonConnectionError    FallbackReason = "connection_error"
	ReasonUnexpectedError    FallbackReason = "unexpected_error"
)

// HTTPErrorReason builds the reason token for an unexpected upstream status
// code, e.g. "http_error:500".
func HTTPErrorReason(status int) FallbackReason {
	return FallbackReason("http_error:" + strconv.Itoa(status))
}

type Alternative struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Outcome is the result of a prediction attempt. Successful outcomes carry
// the model's answer with the confidence exactly as the service reported it.
// Fallback outcomes carry the caller-supplied fallback category (possibly
// empty), zero confidence and the reason the remote call did not happen or
// did not succeed.
type Outcome struct {
	Category         string         `json:"category"`
	Confidence       float64        `json:"confidence"`
	Alternatives     []Alternative  `json:"alternatives"`
	PreprocessedText string         `json:"preprocessed_text,omitempty"`
	InferenceTimeMS  float64        `json:"inference_time_ms,omitempty"`
	ModelVersion     string         `json:"model_version,omitempty"`
	Success          bool           `json:"success"`
	Fallback         bool           `json:"fallback"`
	FallbackReason   FallbackReason `json:"fallback_reason,omitempty"`
}

// HealthStatus reports reachability of the prediction service. Available is
// true whenever the service produced any HTTP response, regardless of status
// code; the remaining fields echo the service's own health payload.
type HealthStatus struct {
	Status        string  `json:"status"`
	Service       string  `json:"service,omitempty"`
	Version       string  `json:"version,omitempty"`
	ModelsLoaded  bool    `json:"models_loaded"`
	UptimeSeconds float64 `json:"uptime_seconds,omitempty"`
	Error         string  `json:"error,omitempty"`
	Available     bool    `json:"available"`
	StatusCode    int     `json:"status_code,omitempty"`
}

// ModelInfo describes the model currently served by the prediction service.
type ModelInfo struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Algorithm       string   `json:"algorithm"`
	Features        string   `json:"features"`
	Categories      []string `json:"categories"`
	TrainingSamples int      `json:"training_samples,omitempty"`
	Accuracy        float64  `json:"accuracy,omitempty"`
	LastTrained     string   `json:"last_trained,omitempty"`
}
