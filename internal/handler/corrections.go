package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/expensio/ml-gateway/internal/corrections"
)

const (
	statsEmptyMessage    = "No corrections yet. Start correcting AI predictions to improve the model!"
	progressReadyMessage = "Ready to improve AI model!"
	progressKeepMessage  = "Keep correcting predictions!"
)

type correctionRequest struct {
	Description       string   `json:"description"`
	PredictedCategory string   `json:"predicted_category"`
	CorrectedCategory string   `json:"corrected_category"`
	Confidence        *float64 `json:"confidence"`
}

type correctionResponse struct {
	Success          bool  `json:"success"`
	Recorded         bool  `json:"recorded"`
	TotalCorrections int64 `json:"total_corrections"`
}

// RecordCorrection logs a user's category override so future retraining can
// learn from it. Corrections that do not actually change the category are
// acknowledged but not recorded.
func (h *GatewayHandler) RecordCorrection(w http.ResponseWriter, r *http.Request) {
	var req correctionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	predicted := strings.TrimSpace(req.PredictedCategory)
	corrected := strings.TrimSpace(req.CorrectedCategory)
	if predicted == "" || corrected == "" {
		h.writeError(w, http.StatusBadRequest, "Predicted and corrected categories are required")
		return
	}

	if strings.EqualFold(predicted, corrected) {
		total, err := h.corrections.Count(r.Context())
		if err != nil {
			h.logger.Error("Failed to count corrections", slog.String("error", err.Error()))
			h.writeError(w, http.StatusInternalServerError, "Failed to read corrections")
			return
		}
		h.writeJSON(w, http.StatusOK, correctionResponse{
			Success:          true,
			TotalCorrections: total,
		})
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = predicted
	}

	total, err := h.corrections.Record(r.Context(), corrections.Correction{
		Description:       description,
		PredictedCategory: predicted,
		CorrectedCategory: corrected,
		Confidence:        req.Confidence,
	})
	if err != nil {
		h.logger.Error("Failed to record correction", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "Failed to record correction")
		return
	}

	if h.notifier != nil {
		h.notifier.CorrectionRecorded(r.Context(), total)
	}

	h.writeJSON(w, http.StatusCreated, correctionResponse{
		Success:          true,
		Recorded:         true,
		TotalCorrections: total,
	})
}

type statsResponse struct {
	Success bool `json:"success"`
	*corrections.Stats
}

type statsEmptyResponse struct {
	Success          bool   `json:"success"`
	TotalCorrections int64  `json:"total_corrections"`
	Message          string `json:"message"`
}

// CorrectionStats summarizes the correction log for the insights dashboard.
func (h *GatewayHandler) CorrectionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.corrections.Stats(r.Context(), h.retrainMin)
	if err != nil {
		h.logger.Error("Failed to load correction stats", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "Failed to load correction stats")
		return
	}

	if stats.TotalCorrections == 0 {
		h.writeJSON(w, http.StatusOK, statsEmptyResponse{
			Success: true,
			Message: statsEmptyMessage,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: stats})
}

type progressResponse struct {
	Success bool `json:"success"`
	*corrections.Progress
	Message string `json:"message"`
}

// CorrectionProgress reports how far the correction log is from the
// retraining threshold, with the motivational message the frontend shows.
func (h *GatewayHandler) CorrectionProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.corrections.Progress(r.Context(), h.retrainMin)
	if err != nil {
		h.logger.Error("Failed to load correction progress", slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "Failed to load correction progress")
		return
	}

	message := fmt.Sprintf("%d/%d corrections logged. ", progress.TotalCorrections, progress.MinRequired)
	if progress.ReadyToRetrain {
		message += progressReadyMessage
	} else {
		message += progressKeepMessage
	}

	h.writeJSON(w, http.StatusOK, progressResponse{
		Success:  true,
		Progress: progress,
		Message:  message,
	})
}
