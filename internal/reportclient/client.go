package reportclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	pieChartPath  = "/generate-pie-chart"
	barChartPath  = "/generate-bar-chart"
	lineChartPath = "/generate-line-chart"
	pdfPath       = "/generate-pdf"
	healthPath    = "/health"

	defaultTimeout = 30 * time.Second
)

// ErrDisabled is returned while the report service is disabled by
// configuration.
var ErrDisabled = errors.New("reportclient: service disabled")

type Options struct {
	BaseURL string
	Timeout time.Duration
	Enabled bool
}

// Client renders charts and PDF reports through the report service.
// Failures come back as plain errors; callers are expected to produce
// their reports without the artwork.
type Client struct {
	baseURL    string
	timeout    time.Duration
	enabled    bool
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    timeout,
		enabled:    opts.Enabled,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// PieChart renders a category-share pie chart and returns it as a
// base64-encoded PNG.
func (c *Client) PieChart(ctx context.Context, req PieChartRequest) (string, error) {
	req.applyDefaults()
	return c.renderChart(ctx, pieChartPath, req)
}

// BarChart renders a bar chart and returns it as a base64-encoded PNG.
func (c *Client) BarChart(ctx context.Context, req BarChartRequest) (string, error) {
	req.applyDefaults()
	return c.renderChart(ctx, barChartPath, req)
}

// LineChart renders a trend line and returns it as a base64-encoded PNG.
func (c *Client) LineChart(ctx context.Context, req LineChartRequest) (string, error) {
	req.applyDefaults()
	return c.renderChart(ctx, lineChartPath, req)
}

// PDF renders a monthly financial report and returns the decoded PDF bytes.
func (c *Client) PDF(ctx context.Context, req PDFRequest) ([]byte, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}

	if req.TemplateName == "" {
		req.TemplateName = "report_template.html"
	}
	if req.PageSize == "" {
		req.PageSize = "A4"
	}

	var wire pdfResponse
	if err := c.postJSON(ctx, pdfPath, req, &wire); err != nil {
		c.logger.Error("pdf generation failed", slog.String("error", err.Error()))
		return nil, err
	}

	if !wire.Success {
		if wire.Error == "" {
			wire.Error = "pdf generation failed"
		}
		c.logger.Error("pdf generation rejected", slog.String("error", wire.Error))
		return nil, fmt.Errorf("report service: %s", wire.Error)
	}

	if wire.PDFBase64 == "" {
		return nil, errors.New("report service: response carried no pdf data")
	}

	raw, err := base64.StdEncoding.DecodeString(wire.PDFBase64)
	if err != nil {
		return nil, fmt.Errorf("decode pdf: %w", err)
	}
	return raw, nil
}

// Health reports whether the report service answers its health endpoint
// with a 200.
func (c *Client) Health(ctx context.Context) bool {
	if !c.enabled {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("report service health check failed", slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (c *Client) renderChart(ctx context.Context, path string, payload any) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}

	var wire chartResponse
	if err := c.postJSON(ctx, path, payload, &wire); err != nil {
		c.logger.Error("chart generation failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	if !wire.Success {
		if wire.Error == "" {
			wire.Error = "chart generation failed"
		}
		c.logger.Error("chart generation rejected",
			slog.String("path", path),
			slog.String("error", wire.Error),
		)
		return "", fmt.Errorf("report service: %s", wire.Error)
	}

	return wire.ImageBase64, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("report service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("report service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
