package main

import (
	"net/http"

	"github.com/expensio/ml-gateway/internal/handler"
	"github.com/expensio/ml-gateway/internal/metrics"
)

func setupRouter(gateway *handler.GatewayHandler, collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/categories/predict", gateway.PredictCategory)
	mux.HandleFunc("POST /api/v1/categories/predict-batch", gateway.PredictBatch)
	mux.HandleFunc("POST /api/v1/voice/parse", gateway.ParseVoice)
	mux.HandleFunc("POST /api/v1/corrections", gateway.RecordCorrection)
	mux.HandleFunc("GET /api/v1/corrections/stats", gateway.CorrectionStats)
	mux.HandleFunc("GET /api/v1/corrections/progress", gateway.CorrectionProgress)
	mux.HandleFunc("GET /api/v1/model", gateway.ModelInfo)
	mux.HandleFunc("GET /api/v1/dependencies", gateway.Dependencies)
	mux.HandleFunc("GET /metrics", collector.Handler())
	mux.HandleFunc("GET /health", gateway.Health)

	return mux
}
