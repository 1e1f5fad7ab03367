package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/expensio/ml-gateway/internal/metrics"
	"github.com/expensio/ml-gateway/internal/voice"
)

type voiceRequest struct {
	VoiceText string `json:"voice_text"`
	RawText   string `json:"raw_text"`
}

type voiceResponse struct {
	RawText            string   `json:"raw_text"`
	Description        string   `json:"description"`
	Amount             float64  `json:"amount"`
	TransactionType    string   `json:"transaction_type"`
	Category           string   `json:"category"`
	CategoryConfidence *float64 `json:"category_confidence"`
	Date               string   `json:"date"`
	CategorySource     string   `json:"category_source"`
}

// ParseVoice turns a spoken phrase into a transaction draft for the user to
// confirm. Prediction failures never fail the request: the keyword hint (or
// "Uncategorized") stands in and the category source flips to "rule".
func (h *GatewayHandler) ParseVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	text := strings.TrimSpace(req.VoiceText)
	if text == "" {
		text = strings.TrimSpace(req.RawText)
	}
	if text == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No voice input received"})
		return
	}

	parsed := voice.Parse(text)

	h.emit(metrics.Event{Type: metrics.EventPredictionRequested, Dependency: DepMLService})
	start := time.Now()

	// Parse never yields an empty description, so the only error the
	// predictor can return cannot happen here; a nil outcome just keeps
	// the rule-based category.
	outcome, _ := h.predictor.PredictCategory(r.Context(), parsed.Description, parsed.CategoryHint)
	h.observeOutcome(outcome, time.Since(start))

	category := parsed.CategoryHint
	if category == "" {
		category = "Uncategorized"
	}
	source := "rule"
	var confidence *float64

	if outcome != nil && outcome.Success {
		category = outcome.Category
		rounded := round4(outcome.Confidence)
		confidence = &rounded
		source = "ai"
	}

	h.writeJSON(w, http.StatusOK, voiceResponse{
		RawText:            text,
		Description:        parsed.Description,
		Amount:             parsed.Amount,
		TransactionType:    parsed.TransactionType,
		Category:           category,
		CategoryConfidence: confidence,
		Date:               parsed.Date,
		CategorySource:     source,
	})
}
