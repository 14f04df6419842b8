package webhook

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kacperjurak/thermalcore/pkg/models"
)

// Client posts finished simulations to a webhook with connection pooling
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
	summarizer *Summarizer
	bufferPool sync.Pool // Pool for JSON marshaling buffers
}

// NewClient creates a new webhook client with optimized connection pooling
func NewClient(url string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		TLSClientConfig:       &tls.Config{},
		ResponseHeaderTimeout: 30 * time.Second,

		// Payloads are small, compression costs more than it saves
		DisableCompression: true,
		ForceAttemptHTTP2:  false,
	}

	return &Client{
		url:    url,
		logger: logger,
		httpClient: &http.Client{
			Timeout:   45 * time.Second,
			Transport: transport,
		},
		summarizer: NewSummarizer(),
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 4096))
			},
		},
	}
}

// Send posts the result of one simulation, or its error.
func (c *Client) Send(ctx context.Context, webhook models.WebhookItem) error {
	payload := models.WebhookResponse{
		ID:        webhook.RequestID,
		Time:      time.Now().Format(time.RFC3339Nano),
		BatchID:   webhook.BatchID,
		Iteration: webhook.Iteration,
		Error:     webhook.Error,
	}
	if webhook.Error == "" {
		result := sanitize(webhook.Response)
		summary := c.summarizer.Summarize(result)
		payload.Result = &result
		payload.Summary = &summary
	}

	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("failed to marshal webhook data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("webhook sent",
		zap.String("id", webhook.RequestID),
		zap.String("batch_id", webhook.BatchID),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}
	return nil
}

// sanitize replaces values JSON cannot carry. The response is copied, the
// caller's slices are left alone.
func sanitize(resp models.SimulationResponse) models.SimulationResponse {
	resp.TopOil = sanitizeSeries(resp.TopOil)
	resp.HotSpot = sanitizeSeries(resp.HotSpot)
	resp.AgingRate = sanitizeSeries(resp.AgingRate)
	if resp.WindingHotSpot != nil {
		windings := make(map[string][]float64, len(resp.WindingHotSpot))
		for side, series := range resp.WindingHotSpot {
			windings[side] = sanitizeSeries(series)
		}
		resp.WindingHotSpot = windings
	}
	return resp
}

func sanitizeSeries(values []float64) []float64 {
	if values == nil {
		return nil
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = sanitizeFloat(v)
	}
	return out
}

// sanitizeFloat cleans float64 values for JSON compatibility
func sanitizeFloat(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0.0
	}
	return value
}
