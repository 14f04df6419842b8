package webhook

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kacperjurak/thermalcore/pkg/models"
)

func sampleResponse() models.SimulationResponse {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	days := 0.25
	return models.SimulationResponse{
		ID:         "run-1",
		Timestamps: []time.Time{start, start.Add(time.Hour), start.Add(2 * time.Hour), start.Add(3 * time.Hour)},
		TopOil:     []float64{40, 50, 60, 55},
		HotSpot:    []float64{40, 70, 90, 80},
		Mode:       []string{"ONAN", "ONAF", "ONAF", "ONAN"},
		DaysAged:   &days,
	}
}

func TestSummarize(t *testing.T) {
	sum := NewSummarizer().Summarize(sampleResponse())

	assert.Equal(t, 60.0, sum.MaxTopOil)
	assert.Equal(t, 90.0, sum.MaxHotSpot)
	assert.Equal(t, 70.0, sum.MeanHotSpot)
	assert.Equal(t, "2021-01-01T02:00:00Z", sum.MaxHotSpotTime)
	assert.Equal(t, 0.5, sum.ONAFShare)
	assert.Equal(t, 0.25, sum.DaysAged)

	assert.Equal(t, models.ResultSummary{}, NewSummarizer().Summarize(models.SimulationResponse{}))
}

func TestSend(t *testing.T) {
	received := make(chan models.WebhookResponse, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload models.WebhookResponse
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp := sampleResponse()
	resp.HotSpot[3] = math.NaN()

	client := NewClient(srv.URL, zaptest.NewLogger(t))
	err := client.Send(context.Background(), models.WebhookItem{
		RequestID: "run-1",
		BatchID:   "batch-9",
		Iteration: 3,
		Response:  resp,
	})
	require.NoError(t, err)

	payload := <-received
	assert.Equal(t, "run-1", payload.ID)
	assert.Equal(t, "batch-9", payload.BatchID)
	assert.Equal(t, 3, payload.Iteration)
	require.NotNil(t, payload.Result)
	require.NotNil(t, payload.Summary)
	assert.Equal(t, 0.0, payload.Result.HotSpot[3], "NaN is sanitized")
	assert.True(t, math.IsNaN(resp.HotSpot[3]), "the caller's series is untouched")
	assert.Equal(t, 90.0, payload.Summary.MaxHotSpot)
}

func TestSendError(t *testing.T) {
	received := make(chan models.WebhookResponse, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload models.WebhookResponse
		_ = json.NewDecoder(r.Body).Decode(&payload)
		received <- payload
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	err := client.Send(context.Background(), models.WebhookItem{RequestID: "run-2", Error: "invalid timestep"})
	assert.ErrorContains(t, err, "502")

	payload := <-received
	assert.Equal(t, "invalid timestep", payload.Error)
	assert.Nil(t, payload.Result)
	assert.Nil(t, payload.Summary)
}
