// Mlservice is a stand-in for the category prediction service, used to
// exercise the gateway locally. It serves canned keyword predictions and can
// inject latency and failures to trip the gateway's circuit breaker.
//
// Usage:
//
//	go run mlservice.go -port 8001 -latency 300ms -fail-rate 0.3
//
// With -unhealthy the health endpoint answers 503 while predictions keep
// working, which exercises the gateway's health watcher separately from the
// breaker.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/expensio/ml-gateway/internal/keyword"
)

const modelVersion = "mock-v1"

type prediction struct {
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	Alternatives []any   `json:"alternatives"`
}

func main() {
	var (
		port       = flag.Int("port", 8001, "port to listen on")
		latency    = flag.Duration("latency", 0, "artificial delay before every response")
		failRate   = flag.Float64("fail-rate", 0, "fraction of prediction calls answered with -fail-status")
		failStatus = flag.Int("fail-status", http.StatusInternalServerError, "status code for injected failures")
		unhealthy  = flag.Bool("unhealthy", false, "answer 503 on /health")
	)
	flag.Parse()

	start := time.Now()

	// inject applies the latency and failure flags; callers bail out when
	// it reports true.
	inject := func(w http.ResponseWriter) bool {
		if *latency > 0 {
			time.Sleep(*latency)
		}
		if *failRate > 0 && rand.Float64() < *failRate {
			w.WriteHeader(*failStatus)
			return true
		}
		return false
	}

	predict := func(description string) prediction {
		category := keyword.CategorizeText(description)
		confidence := 0.91
		if category == "" {
			category = "Other"
			confidence = 0.42
		}
		return prediction{Category: category, Confidence: confidence, Alternatives: []any{}}
	}

	writeJSON := func(w http.ResponseWriter, status int, payload any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(payload)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/predict/category", func(w http.ResponseWriter, r *http.Request) {
		if inject(w) {
			return
		}

		body, _ := io.ReadAll(r.Body)
		var req struct {
			Description string `json:"description"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.Description == "" {
			http.Error(w, "description is required", http.StatusBadRequest)
			return
		}

		p := predict(req.Description)
		log.Printf("predict: %q -> %s (%.2f)", req.Description, p.Category, p.Confidence)

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"prediction": p,
			"metadata": map[string]any{
				"model_version":     modelVersion,
				"inference_time_ms": 1.5,
				"preprocessed_text": req.Description,
			},
		})
	})

	mux.HandleFunc("POST /api/v1/predict/batch", func(w http.ResponseWriter, r *http.Request) {
		if inject(w) {
			return
		}

		var req struct {
			Descriptions []string `json:"descriptions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		items := make([]map[string]any, len(req.Descriptions))
		for i, description := range req.Descriptions {
			p := predict(description)
			items[i] = map[string]any{
				"description": description,
				"category":    p.Category,
				"confidence":  p.Confidence,
			}
		}
		log.Printf("batch predict: %d descriptions", len(items))

		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"predictions": items,
			"metadata": map[string]any{
				"total":      len(items),
				"successful": len(items),
				"failed":     0,
			},
		})
	})

	mux.HandleFunc("GET /api/v1/model/info", func(w http.ResponseWriter, r *http.Request) {
		if inject(w) {
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"model": map[string]any{
				"name":       "keyword-mock",
				"version":    modelVersion,
				"algorithm":  "keyword lookup",
				"features":   "bag of words",
				"categories": []string{"Food", "Transport", "Bills", "Salary", "Other"},
			},
		})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		if *unhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{
			"status":         "healthy",
			"service":        "ml-service",
			"version":        modelVersion,
			"models_loaded":  true,
			"uptime_seconds": time.Since(start).Seconds(),
		})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting mock ml service on %s (latency=%s fail-rate=%.2f)", addr, *latency, *failRate)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
