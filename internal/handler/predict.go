package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/expensio/ml-gateway/internal/metrics"
	"github.com/expensio/ml-gateway/internal/mlclient"
)

// msgServiceUnavailable is the error surfaced when fallbacks are disabled
// and the prediction service produced no answer. Fallback outcomes expose
// their reason token instead.
const msgServiceUnavailable = "AI service temporarily unavailable"

type predictRequest struct {
	Description string `json:"description"`
}

type predictResponse struct {
	PredictedCategory string  `json:"predicted_category"`
	Confidence        float64 `json:"confidence"`
	Success           bool    `json:"success"`
}

// PredictCategory asks the model to categorize a transaction description.
// This endpoint surfaces dependency trouble to the caller as a 500 instead
// of degrading silently; the voice flow is the path that falls back to
// keyword rules.
func (h *GatewayHandler) PredictCategory(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		h.writeError(w, http.StatusBadRequest, "Description is required")
		return
	}

	h.emit(metrics.Event{Type: metrics.EventPredictionRequested, Dependency: DepMLService})
	start := time.Now()

	outcome, err := h.predictor.PredictCategory(r.Context(), description, "")
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, mlclient.ErrEmptyDescription) {
			h.writeError(w, http.StatusBadRequest, "Description is required")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Prediction failed")
		return
	}

	h.observeOutcome(outcome, duration)

	switch {
	case outcome == nil:
		h.writeError(w, http.StatusInternalServerError, msgServiceUnavailable)
	case outcome.Fallback:
		h.writeError(w, http.StatusInternalServerError, string(outcome.FallbackReason))
	default:
		h.writeJSON(w, http.StatusOK, predictResponse{
			PredictedCategory: outcome.Category,
			Confidence:        round4(outcome.Confidence),
			Success:           true,
		})
	}
}

type batchRequest struct {
	Descriptions []string `json:"descriptions"`
}

type batchResult struct {
	PredictedCategory string   `json:"predicted_category,omitempty"`
	Confidence        *float64 `json:"confidence,omitempty"`
	Success           bool     `json:"success"`
	Error             string   `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchResult `json:"results"`
	Count   int           `json:"count"`
}

// PredictBatch categorizes several descriptions in one upstream call. The
// response preserves input order; when the batch fails every item carries
// the same reason.
func (h *GatewayHandler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if len(req.Descriptions) == 0 {
		h.writeError(w, http.StatusBadRequest, "Descriptions are required")
		return
	}

	h.emit(metrics.Event{Type: metrics.EventPredictionRequested, Dependency: DepMLService})
	start := time.Now()

	outcomes, err := h.predictor.PredictBatch(r.Context(), req.Descriptions)
	duration := time.Since(start)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Batch prediction failed")
		return
	}

	// Every outcome in a batch shares the same disposition, so the first
	// one stands in for the whole call.
	h.observeOutcome(outcomes[0], duration)

	results := make([]batchResult, len(outcomes))
	for i, outcome := range outcomes {
		results[i] = toBatchResult(outcome)
	}

	h.writeJSON(w, http.StatusOK, batchResponse{Results: results, Count: len(results)})
}

func toBatchResult(outcome *mlclient.Outcome) batchResult {
	switch {
	case outcome == nil:
		return batchResult{Error: msgServiceUnavailable}
	case outcome.Fallback:
		return batchResult{Error: string(outcome.FallbackReason)}
	default:
		confidence := round4(outcome.Confidence)
		return batchResult{
			PredictedCategory: outcome.Category,
			Confidence:        &confidence,
			Success:           true,
		}
	}
}
