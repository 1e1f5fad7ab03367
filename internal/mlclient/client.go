package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/expensio/ml-gateway/internal/circuitbreaker"
)

const (
	predictPath   = "/api/v1/predict/category"
	batchPath     = "/api/v1/predict/batch"
	healthPath    = "/health"
	modelInfoPath = "/api/v1/model/info"

	defaultTimeout     = 10 * time.Second
	healthCheckTimeout = 5 * time.Second
)

// ErrEmptyDescription is returned when a prediction is requested for an empty
// or whitespace-only description. It marks a caller bug, not a dependency
// failure: no request is sent and the circuit breaker is not touched.
var ErrEmptyDescription = errors.New("mlclient: empty description")

// ErrServiceDisabled is returned by metadata lookups while the client is
// disabled by configuration.
var ErrServiceDisabled = errors.New("mlclient: service disabled")

type Options struct {
	BaseURL         string
	Timeout         time.Duration
	Enabled         bool
	FallbackEnabled bool
}

// Client talks to the remote category-prediction service. Deadlines are
// applied per call: single predictions get the configured timeout, batch
// calls twice that, health probes a fixed short one.
type Client struct {
	baseURL         string
	timeout         time.Duration
	enabled         bool
	fallbackEnabled bool
	breaker         *circuitbreaker.CircuitBreaker
	httpClient      *http.Client
	logger          *slog.Logger
}

func New(opts Options, breaker *circuitbreaker.CircuitBreaker, logger *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		timeout:         timeout,
		enabled:         opts.Enabled,
		fallbackEnabled: opts.FallbackEnabled,
		breaker:         breaker,
		httpClient:      &http.Client{},
		logger:          logger,
	}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// PredictCategory asks the remote model to categorize a transaction
// description. Dependency failures never surface as errors: they become
// fallback outcomes carrying fallbackCategory, or nil when fallbacks are
// disabled. The only error condition is an empty description.
func (c *Client) PredictCategory(ctx context.Context, description, fallbackCategory string) (*Outcome, error) {
	if strings.TrimSpace(description) == "" {
		c.logger.Warn("empty description provided")
		return nil, ErrEmptyDescription
	}

	if !c.enabled {
		c.logger.Debug("prediction service disabled, skipping call")
		return c.fallbackOutcome(fallbackCategory, ReasonServiceDisabled), nil
	}

	if !c.breaker.Allow() {
		c.logger.Warn("circuit breaker open, skipping prediction call")
		return c.fallbackOutcome(fallbackCategory, ReasonCircuitOpen), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var wire predictResponse
	status, err := c.postJSON(ctx, predictPath, predictRequest{Description: description}, &wire)
	if err != nil {
		reason := classifyError(err)
		c.logger.Error("prediction request failed",
			slog.String("reason", string(reason)),
			slog.String("error", err.Error()),
		)
		c.breaker.RecordFailure()
		return c.fallbackOutcome(fallbackCategory, reason), nil
	}

	if status != http.StatusOK {
		c.logger.Error("prediction service returned error status", slog.Int("status", status))
		c.breaker.RecordFailure()
		return c.fallbackOutcome(fallbackCategory, statusReason(status)), nil
	}

	c.breaker.RecordSuccess()

	outcome := &Outcome{
		Category:         wire.Prediction.Category,
		Confidence:       wire.Prediction.Confidence,
		Alternatives:     wire.Prediction.Alternatives,
		PreprocessedText: wire.Metadata.PreprocessedText,
		InferenceTimeMS:  wire.Metadata.InferenceTimeMS,
		ModelVersion:     wire.Metadata.ModelVersion,
		Success:          true,
	}
	if outcome.Alternatives == nil {
		outcome.Alternatives = []Alternative{}
	}

	c.logger.Info("prediction received",
		slog.String("category", outcome.Category),
		slog.Float64("confidence", outcome.Confidence),
	)

	return outcome, nil
}

// PredictBatch categorizes several descriptions in one upstream call. The
// result always has exactly one outcome per description, in input order.
// When the call is short-circuited or fails, every element carries the same
// fallback reason; at most one breaker failure is recorded per batch.
func (c *Client) PredictBatch(ctx context.Context, descriptions []string) ([]*Outcome, error) {
	if len(descriptions) == 0 {
		return []*Outcome{}, nil
	}

	if !c.enabled {
		c.logger.Debug("prediction service disabled, skipping batch call")
		return c.fallbackBatch(descriptions, ReasonServiceDisabled), nil
	}

	if !c.breaker.Allow() {
		c.logger.Warn("circuit breaker open, skipping batch prediction call")
		return c.fallbackBatch(descriptions, ReasonCircuitOpen), nil
	}

	// Batch calls get a longer deadline than single predictions
	ctx, cancel := context.WithTimeout(ctx, 2*c.timeout)
	defer cancel()

	var wire batchResponse
	status, err := c.postJSON(ctx, batchPath, batchRequest{Descriptions: descriptions}, &wire)
	if err != nil {
		reason := classifyError(err)
		c.logger.Error("batch prediction failed",
			slog.String("reason", string(reason)),
			slog.String("error", err.Error()),
		)
		c.breaker.RecordFailure()
		return c.fallbackBatch(descriptions, reason), nil
	}

	if status != http.StatusOK {
		c.logger.Error("batch prediction returned error status", slog.Int("status", status))
		c.breaker.RecordFailure()
		return c.fallbackBatch(descriptions, statusReason(status)), nil
	}

	if len(wire.Predictions) != len(descriptions) {
		// A count mismatch means the response cannot be mapped back to the
		// inputs, so the whole batch is treated as a malformed response.
		c.logger.Error("batch prediction count mismatch",
			slog.Int("requested", len(descriptions)),
			slog.Int("received", len(wire.Predictions)),
		)
		c.breaker.RecordFailure()
		return c.fallbackBatch(descriptions, ReasonUnexpectedError), nil
	}

	c.breaker.RecordSuccess()

	outcomes := make([]*Outcome, len(descriptions))
	for i, item := range wire.Predictions {
		outcomes[i] = &Outcome{
			Category:     item.Category,
			Confidence:   item.Confidence,
			Alternatives: []Alternative{},
			Success:      true,
		}
	}
	return outcomes, nil
}

// HealthCheck probes the prediction service. Any HTTP response, whatever the
// status code, counts as reachable; only transport failures return an error.
// The probe never consults or updates the circuit breaker.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	if !c.enabled {
		return &HealthStatus{Status: "disabled"}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction service unreachable: %w", err)
	}
	defer resp.Body.Close()

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil || status.Status == "" {
		status.Status = "unknown"
	}
	status.Available = true
	status.StatusCode = resp.StatusCode
	return &status, nil
}

// ModelInfo fetches metadata about the currently served model. This is a
// plain lookup outside the guarded prediction path, so failures are returned
// as errors and the breaker is left alone.
func (c *Client) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	if !c.enabled {
		return nil, ErrServiceDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+modelInfoPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build model info request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch model info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model info returned status %d", resp.StatusCode)
	}

	var wire modelInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode model info: %w", err)
	}
	return &wire.Model, nil
}

// fallbackOutcome builds the local answer for a failed or skipped prediction.
// Returns nil when fallbacks are disabled, which callers must treat as
// "no prediction available".
func (c *Client) fallbackOutcome(fallbackCategory string, reason FallbackReason) *Outcome {
	if !c.fallbackEnabled {
		return nil
	}

	c.logger.Info("using fallback prediction", slog.String("reason", string(reason)))

	return &Outcome{
		Category:       fallbackCategory,
		Confidence:     0,
		Alternatives:   []Alternative{},
		Fallback:       true,
		FallbackReason: reason,
	}
}

func (c *Client) fallbackBatch(descriptions []string, reason FallbackReason) []*Outcome {
	outcomes := make([]*Outcome, len(descriptions))
	for i := range descriptions {
		outcomes[i] = c.fallbackOutcome("", reason)
	}
	return outcomes
}

// postJSON sends a JSON POST and decodes the body into out only for 200
// responses. Transport and decode failures come back as errors; any other
// status code is returned for the caller to classify.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	return resp.StatusCode, nil
}

func classifyError(err error) FallbackReason {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return ReasonTimeout
		}
		return ReasonConnectionError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonUnexpectedError
}

func statusReason(status int) FallbackReason {
	if status == http.StatusServiceUnavailable {
		return ReasonServiceUnavailable
	}
	return HTTPErrorReason(status)
}
