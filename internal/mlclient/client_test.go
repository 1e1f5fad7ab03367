package mlclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensio/ml-gateway/internal/circuitbreaker"
	"github.com/expensio/ml-gateway/internal/mlclient"
	"github.com/expensio/ml-gateway/pkg/logger"
)

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		handler  http.HandlerFunc
		requests atomic.Int64
		breaker  *circuitbreaker.CircuitBreaker
		client   *mlclient.Client
		ctx      context.Context
	)

	log := logger.New("error", false, "dev")

	newClient := func(opts mlclient.Options) *mlclient.Client {
		return mlclient.New(opts, breaker, log)
	}

	servePrediction := func(category string, confidence float64) {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"prediction": map[string]any{
					"category":   category,
					"confidence": confidence,
					"alternatives": []map[string]any{
						{"category": "Shopping", "confidence": 0.08},
					},
				},
				"metadata": map[string]any{
					"model_version":     "v3",
					"inference_time_ms": 12.5,
					"preprocessed_text": "cleaned text",
				},
			})
		}
	}

	serveStatus := func(status int) {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		requests.Store(0)
		handler = nil
		breaker = circuitbreaker.NewCircuitBreaker(3, 60*time.Second)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			if handler != nil {
				handler(w, r)
			}
		}))
		client = newClient(mlclient.Options{
			BaseURL:         server.URL,
			Timeout:         2 * time.Second,
			Enabled:         true,
			FallbackEnabled: true,
		})
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("PredictCategory", func() {
		Context("when the service answers successfully", func() {
			BeforeEach(func() {
				servePrediction("Food & Dining", 0.87654321)
			})

			It("should return the model's prediction", func() {
				outcome, err := client.PredictCategory(ctx, "Zomato food order", "Other")
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.Success).To(BeTrue())
				Expect(outcome.Fallback).To(BeFalse())
				Expect(outcome.Category).To(Equal("Food & Dining"))
				Expect(outcome.Alternatives).To(HaveLen(1))
				Expect(outcome.ModelVersion).To(Equal("v3"))
				Expect(outcome.PreprocessedText).To(Equal("cleaned text"))
			})

			It("should echo the confidence exactly as reported", func() {
				outcome, err := client.PredictCategory(ctx, "Zomato food order", "")
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.Confidence).To(Equal(0.87654321))
			})

			It("should POST the description to the predict endpoint", func() {
				var gotPath, gotMethod string
				var gotBody map[string]string
				inner := handler
				handler = func(w http.ResponseWriter, r *http.Request) {
					gotPath = r.URL.Path
					gotMethod = r.Method
					json.NewDecoder(r.Body).Decode(&gotBody)
					inner(w, r)
				}

				_, err := client.PredictCategory(ctx, "uber ride", "")
				Expect(err).NotTo(HaveOccurred())
				Expect(gotMethod).To(Equal(http.MethodPost))
				Expect(gotPath).To(Equal("/api/v1/predict/category"))
				Expect(gotBody).To(HaveKeyWithValue("description", "uber ride"))
			})

			It("should reset the breaker failure count", func() {
				breaker.RecordFailure()
				breaker.RecordFailure()

				_, err := client.PredictCategory(ctx, "uber ride", "")
				Expect(err).NotTo(HaveOccurred())
				Expect(breaker.Snapshot().Failures).To(BeZero())
			})
		})

		Context("with an empty description", func() {
			It("should return ErrEmptyDescription without calling the service", func() {
				outcome, err := client.PredictCategory(ctx, "   ", "Other")
				Expect(err).To(MatchError(mlclient.ErrEmptyDescription))
				Expect(outcome).To(BeNil())
				Expect(requests.Load()).To(BeZero())
			})

			It("should not touch the circuit breaker", func() {
				_, err := client.PredictCategory(ctx, "", "Other")
				Expect(err).To(HaveOccurred())
				Expect(breaker.Snapshot().Failures).To(BeZero())
			})

			It("should take precedence over the disabled check", func() {
				client = newClient(mlclient.Options{
					BaseURL: server.URL,
					Enabled: false,
				})
				_, err := client.PredictCategory(ctx, "  ", "Other")
				Expect(err).To(MatchError(mlclient.ErrEmptyDescription))
			})
		})

		Context("when the service is disabled", func() {
			BeforeEach(func() {
				client = newClient(mlclient.Options{
					BaseURL:         server.URL,
					Enabled:         false,
					FallbackEnabled: true,
				})
			})

			It("should return a fallback without network I/O", func() {
				outcome, err := client.PredictCategory(ctx, "groceries", "Other")
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.Fallback).To(BeTrue())
				Expect(outcome.FallbackReason).To(Equal(mlclient.ReasonServiceDisabled))
				Expect(outcome.Category).To(Equal("Other"))
				Expect(outcome.Confidence).To(BeZero())
				Expect(requests.Load()).To(BeZero())
			})

			It("should not touch the circuit breaker", func() {
				client.PredictCategory(ctx, "groceries", "Other")
				Expect(breaker.Snapshot().Failures).To(BeZero())
			})
		})

		Context("when the service returns 503", func() {
			BeforeEach(func() {
				serveStatus(http.StatusServiceUnavailable)
			})

			It("should fall back with service_unavailable", func() {
				outcome, err := client.PredictCategory(ctx, "groceries", "Other")
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.Success).To(BeFalse())
				Expect(outcome.FallbackReason).To(Equal(mlclient.ReasonServiceUnavailable))
			})

			It("should record a breaker failure", func() {
				client.PredictCategory(ctx, "groceries", "Other")
				Expect(breaker.Snapshot().Failures).To(Equal(1))
			})
		})

		Context("when the service returns another error status", func() {
			It("should fall back with the status code in the reason", func() {
				serveStatus(http.StatusInternalServerError)
				outcome, err := client.PredictCategory(ctx, "groceries", "Other")
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.FallbackReason).To(Equal(mlclient.FallbackReason("http_error:500")))
			})

			It("should build the reason from any status", func() {
				Expect(mlclient.HTTPErrorReason(422)).To(Equal(mlclient.FallbackReason("http_error:422")))
			})
		})

		Context("when the service is slow", func() {
			It("should fall back with timeout", func() {
				handler = func(w http.ResponseWriter, r *http.Request) {
					time.Sleep(400 * time.Millisecond)
				}
				client = newClient(mlclient.Options{
					BaseURL:         server.URL,
					Timeout:         100 * time.Millisecond,
					Enabled:         true,
					FallbackEnabled: true,
				})

				outcome, err := client.PredictCategory(ctx, "groceries", "Other")
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.FallbackReason).To(Equal(mlclient.ReasonTimeout))
				Expect(breaker.Snapshot().Failures).To(Equal(1))
			})
		})

		Context("when the service is unreachable", func() {
			It("should fall back with connection_error", func() {
				server.Close()
				outcome, err := client.PredictCategory(ctx, "groceries", "Other")
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.FallbackReason).To(Equal(mlclient.ReasonConnectionError))
			})
		})

		Context("when the service returns a malformed body", func() {
			It("should fall back with unexpected_error", func() {
				handler = func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("not json at all"))
				}
				outcome, err := client.PredictCategory(ctx, "groceries", "Other")
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.FallbackReason).To(Equal(mlclient.ReasonUnexpectedError))
				Expect(breaker.Snapshot().Failures).To(Equal(1))
			})
		})

		Context("when fallbacks are disabled", func() {
			BeforeEach(func() {
				serveStatus(http.StatusInternalServerError)
				client = newClient(mlclient.Options{
					BaseURL:         server.URL,
					Timeout:         time.Second,
					Enabled:         true,
					FallbackEnabled: false,
				})
			})

			It("should return nil instead of a fallback outcome", func() {
				outcome, err := client.PredictCategory(ctx, "groceries", "Other")
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome).To(BeNil())
			})

			It("should still record the breaker failure", func() {
				client.PredictCategory(ctx, "groceries", "Other")
				Expect(breaker.Snapshot().Failures).To(Equal(1))
			})
		})

		Context("fallback category handling", func() {
			It("should carry the fallback category verbatim", func() {
				serveStatus(http.StatusInternalServerError)
				outcome, _ := client.PredictCategory(ctx, "groceries", "Groceries")
				Expect(outcome.Category).To(Equal("Groceries"))
			})

			It("should leave the category empty when no fallback was supplied", func() {
				serveStatus(http.StatusInternalServerError)
				outcome, _ := client.PredictCategory(ctx, "groceries", "")
				Expect(outcome.Category).To(BeEmpty())
				Expect(outcome.Alternatives).NotTo(BeNil())
				Expect(outcome.Alternatives).To(BeEmpty())
			})
		})
	})

	Describe("circuit breaker integration", func() {
		BeforeEach(func() {
			breaker = circuitbreaker.NewCircuitBreaker(3, 150*time.Millisecond)
			serveStatus(http.StatusInternalServerError)
			client = newClient(mlclient.Options{
				BaseURL:         server.URL,
				Timeout:         time.Second,
				Enabled:         true,
				FallbackEnabled: true,
			})
		})

		tripCircuit := func() {
			for i := 0; i < 3; i++ {
				outcome, err := client.PredictCategory(ctx, "coffee", "Other")
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome.Fallback).To(BeTrue())
			}
			Expect(breaker.State()).To(Equal(circuitbreaker.StateOpen))
		}

		It("should open after three consecutive failures", func() {
			tripCircuit()
			Expect(requests.Load()).To(Equal(int64(3)))
		})

		It("should short-circuit calls while open", func() {
			tripCircuit()

			outcome, err := client.PredictCategory(ctx, "coffee", "Other")
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.FallbackReason).To(Equal(mlclient.ReasonCircuitOpen))
			Expect(requests.Load()).To(Equal(int64(3)), "no network call while open")
		})

		It("should let a trial call through after the recovery window", func() {
			tripCircuit()
			time.Sleep(200 * time.Millisecond)

			servePrediction("Food & Dining", 0.9)
			outcome, err := client.PredictCategory(ctx, "coffee", "Other")
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Success).To(BeTrue())
			Expect(requests.Load()).To(Equal(int64(4)))
			Expect(breaker.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should re-open immediately when the trial call fails", func() {
			tripCircuit()
			time.Sleep(200 * time.Millisecond)

			// Trial call fails: one request, straight back to open
			outcome, err := client.PredictCategory(ctx, "coffee", "Other")
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Fallback).To(BeTrue())
			Expect(requests.Load()).To(Equal(int64(4)))
			Expect(breaker.State()).To(Equal(circuitbreaker.StateOpen))

			outcome, err = client.PredictCategory(ctx, "coffee", "Other")
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.FallbackReason).To(Equal(mlclient.ReasonCircuitOpen))
			Expect(requests.Load()).To(Equal(int64(4)))
		})
	})

	Describe("PredictBatch", func() {
		serveBatch := func(items []map[string]any) {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"success":     true,
					"predictions": items,
					"metadata": map[string]any{
						"total":                   len(items),
						"successful":              len(items),
						"failed":                  0,
						"total_inference_time_ms": 40.0,
					},
				})
			}
		}

		It("should return one outcome per description, in order", func() {
			serveBatch([]map[string]any{
				{"description": "zomato", "category": "Food & Dining", "confidence": 0.9},
				{"description": "uber", "category": "Transportation", "confidence": 0.8},
				{"description": "rent", "category": "Housing", "confidence": 0.95},
			})

			outcomes, err := client.PredictBatch(ctx, []string{"zomato", "uber", "rent"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcomes).To(HaveLen(3))
			Expect(outcomes[0].Category).To(Equal("Food & Dining"))
			Expect(outcomes[1].Category).To(Equal("Transportation"))
			Expect(outcomes[2].Category).To(Equal("Housing"))
			for _, o := range outcomes {
				Expect(o.Success).To(BeTrue())
				Expect(o.Fallback).To(BeFalse())
			}
		})

		It("should post all descriptions in a single call", func() {
			serveBatch([]map[string]any{
				{"description": "a", "category": "Other", "confidence": 0.5},
				{"description": "b", "category": "Other", "confidence": 0.5},
			})

			var gotPath string
			var gotBody map[string][]string
			inner := handler
			handler = func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				json.NewDecoder(r.Body).Decode(&gotBody)
				inner(w, r)
			}

			_, err := client.PredictBatch(ctx, []string{"a", "b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(requests.Load()).To(Equal(int64(1)))
			Expect(gotPath).To(Equal("/api/v1/predict/batch"))
			Expect(gotBody["descriptions"]).To(Equal([]string{"a", "b"}))
		})

		It("should return an empty result for an empty input without calling out", func() {
			outcomes, err := client.PredictBatch(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcomes).To(BeEmpty())
			Expect(requests.Load()).To(BeZero())
		})

		It("should fall back for every element when the service is disabled", func() {
			client = newClient(mlclient.Options{
				BaseURL:         server.URL,
				Enabled:         false,
				FallbackEnabled: true,
			})

			outcomes, err := client.PredictBatch(ctx, []string{"a", "b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcomes).To(HaveLen(2))
			for _, o := range outcomes {
				Expect(o.FallbackReason).To(Equal(mlclient.ReasonServiceDisabled))
			}
			Expect(requests.Load()).To(BeZero())
		})

		It("should fall back for every element while the circuit is open", func() {
			breaker.RecordFailure()
			breaker.RecordFailure()
			breaker.RecordFailure()

			outcomes, err := client.PredictBatch(ctx, []string{"a", "b"})
			Expect(err).NotTo(HaveOccurred())
			for _, o := range outcomes {
				Expect(o.FallbackReason).To(Equal(mlclient.ReasonCircuitOpen))
			}
			Expect(requests.Load()).To(BeZero())
		})

		It("should record a single breaker failure for a failed batch", func() {
			serveStatus(http.StatusInternalServerError)

			outcomes, err := client.PredictBatch(ctx, []string{"a", "b", "c"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcomes).To(HaveLen(3))
			for _, o := range outcomes {
				Expect(o.FallbackReason).To(Equal(mlclient.FallbackReason("http_error:500")))
			}
			Expect(breaker.Snapshot().Failures).To(Equal(1))
		})

		It("should treat a count mismatch as a malformed response", func() {
			serveBatch([]map[string]any{
				{"description": "a", "category": "Other", "confidence": 0.5},
			})

			outcomes, err := client.PredictBatch(ctx, []string{"a", "b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcomes).To(HaveLen(2))
			for _, o := range outcomes {
				Expect(o.FallbackReason).To(Equal(mlclient.ReasonUnexpectedError))
			}
			Expect(breaker.Snapshot().Failures).To(Equal(1))
		})

		It("should allow batches twice the single-call deadline", func() {
			client = newClient(mlclient.Options{
				BaseURL:         server.URL,
				Timeout:         200 * time.Millisecond,
				Enabled:         true,
				FallbackEnabled: true,
			})
			handler = func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"predictions": []map[string]any{
						{"description": "a", "category": "Other", "confidence": 0.5},
					},
				})
			}

			// 300ms is past the single-call deadline but inside the doubled one
			outcomes, err := client.PredictBatch(ctx, []string{"a"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcomes[0].Success).To(BeTrue())
		})
	})

	Describe("HealthCheck", func() {
		It("should report a healthy service", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.URL.Path).To(Equal("/health"))
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"status":         "healthy",
					"service":        "ml-service",
					"version":        "1.0.0",
					"models_loaded":  true,
					"uptime_seconds": 42.5,
				})
			}

			status, err := client.HealthCheck(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Available).To(BeTrue())
			Expect(status.Status).To(Equal("healthy"))
			Expect(status.ModelsLoaded).To(BeTrue())
			Expect(status.StatusCode).To(Equal(http.StatusOK))
		})

		It("should count any response as reachable", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]any{
					"status":        "unhealthy",
					"service":       "ml-service",
					"version":       "1.0.0",
					"models_loaded": false,
					"error":         "models not loaded",
				})
			}

			status, err := client.HealthCheck(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Available).To(BeTrue())
			Expect(status.Status).To(Equal("unhealthy"))
			Expect(status.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})

		It("should return an error when the service is unreachable", func() {
			server.Close()
			_, err := client.HealthCheck(ctx)
			Expect(err).To(HaveOccurred())
		})

		It("should report disabled without network I/O", func() {
			client = newClient(mlclient.Options{BaseURL: server.URL, Enabled: false})

			status, err := client.HealthCheck(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Status).To(Equal("disabled"))
			Expect(status.Available).To(BeFalse())
			Expect(requests.Load()).To(BeZero())
		})

		It("should not touch the circuit breaker", func() {
			server.Close()
			client.HealthCheck(ctx)
			Expect(breaker.Snapshot().Failures).To(BeZero())
		})
	})

	Describe("ModelInfo", func() {
		It("should fetch model metadata", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/v1/model/info"))
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"model": map[string]any{
						"name":             "expense-categorizer",
						"version":          "v3",
						"algorithm":        "logistic-regression",
						"features":         "tf-idf",
						"categories":       []string{"Food & Dining", "Transportation"},
						"training_samples": 1200,
					},
				})
			}

			info, err := client.ModelInfo(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Name).To(Equal("expense-categorizer"))
			Expect(info.Version).To(Equal("v3"))
			Expect(info.Categories).To(ContainElement("Transportation"))
			Expect(info.TrainingSamples).To(Equal(1200))
		})

		It("should return an error for a non-200 status", func() {
			serveStatus(http.StatusBadGateway)
			_, err := client.ModelInfo(ctx)
			Expect(err).To(HaveOccurred())
		})

		It("should return ErrServiceDisabled when disabled", func() {
			client = newClient(mlclient.Options{BaseURL: server.URL, Enabled: false})
			_, err := client.ModelInfo(ctx)
			Expect(err).To(MatchError(mlclient.ErrServiceDisabled))
		})
	})
})
