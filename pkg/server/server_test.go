package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kacperjurak/thermalcore"
	"github.com/kacperjurak/thermalcore/pkg/config"
	"github.com/kacperjurak/thermalcore/pkg/models"
)

func newTestServer(t *testing.T, webhookURL string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultServerConfig()
	cfg.WorkerCount = 2
	cfg.EnableMetrics = true
	cfg.WebhookURL = webhookURL
	cfg.TimingFile = filepath.Join(t.TempDir(), "timing.csv")

	s := New(Options{ServerConfig: cfg, Logger: zaptest.NewLogger(t)})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		r = &buf
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")

	rec := do(t, s.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, 2.0, body["workers"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGC(t *testing.T) {
	s := newTestServer(t, "")

	rec := do(t, s.Handler(), http.MethodPost, "/debug/gc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gc_runs")
}

func TestSimulateAndMetrics(t *testing.T) {
	s := newTestServer(t, "")

	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	req := models.SimulationRequest{
		Category: "distribution",
		Cooler:   "ONAN",
		Specifications: models.Specifications{
			LoadLoss: thermalcore.Float(1000), NomLoadSecSide: 1500,
			NoLoadLoss: thermalcore.Float(200), AmbTempSurcharge: thermalcore.Float(10),
		},
		Profile: models.Profile{
			Timestamps: []time.Time{start, start.Add(time.Hour)},
			Ambient:    []float64{20, 20},
			Load:       []float64{750, 750},
		},
	}

	rec := do(t, s.Handler(), http.MethodPost, "/simulate", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.SimulationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.HotSpot, 2)
	assert.Equal(t, []string{"ONAN", "ONAN"}, resp.Mode)

	rec = do(t, s.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	metrics := rec.Body.String()
	assert.Contains(t, metrics, `thermal_simulations_total{outcome="ok"} 1`)
	assert.Contains(t, metrics, `thermal_http_requests_total{method="POST",route="/simulate",status="2xx"} 1`)
}

func TestBatchDeliversWebhooks(t *testing.T) {
	received := make(chan models.WebhookResponse, 4)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload models.WebhookResponse
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
			received <- payload
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	s := newTestServer(t, hook.URL)

	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	scenario := models.SimulationRequest{
		Category:       "power",
		Specifications: models.Specifications{
			LoadLoss: thermalcore.Float(1000), NomLoadSecSide: 1500,
			NoLoadLoss: thermalcore.Float(200), AmbTempSurcharge: thermalcore.Float(0),
		},
		Profile: models.Profile{
			Timestamps: []time.Time{start, start.Add(15 * time.Minute)},
			Ambient:    []float64{20, 20},
			Load:       []float64{1500, 1500},
		},
	}
	batch := models.SimulationBatch{BatchID: "nightly", Scenarios: []models.BatchItem{
		{Simulation: scenario, Iteration: 0},
		{Simulation: scenario, Iteration: 1},
	}}

	rec := do(t, s.Handler(), http.MethodPost, "/simulate/batch", batch)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var ids []string
	for i := 0; i < 2; i++ {
		select {
		case payload := <-received:
			assert.Equal(t, "nightly", payload.BatchID)
			require.NotNil(t, payload.Summary)
			assert.Positive(t, payload.Summary.MaxHotSpot)
			ids = append(ids, payload.ID)
		case <-time.After(5 * time.Second):
			t.Fatal("webhook not delivered")
		}
	}
	assert.ElementsMatch(t, []string{"nightly_iter_000", "nightly_iter_001"}, ids)

	require.Eventually(t, func() bool {
		rec := do(t, s.Handler(), http.MethodGet, "/metrics", nil)
		return strings.Contains(rec.Body.String(), `thermal_webhooks_total{result="ok"} 2`)
	}, 5*time.Second, 10*time.Millisecond)
}
