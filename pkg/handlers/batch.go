package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/kacperjurak/thermalcore/internal/utils"
	"github.com/kacperjurak/thermalcore/pkg/models"
	"github.com/kacperjurak/thermalcore/pkg/worker"
)

var errEmptyBatch = errors.New("no scenarios provided in batch")

// BatchHandler handles batch simulation requests
type BatchHandler struct {
	workerPool *worker.Pool
	timingFile string
	logger     *zap.Logger
}

// NewBatchHandler creates a new batch handler. An empty timingFile turns
// the timing log off.
func NewBatchHandler(pool *worker.Pool, timingFile string, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{
		workerPool: pool,
		timingFile: timingFile,
		logger:     logger,
	}
}

// Submit handles POST /simulate/batch.
func (h *BatchHandler) Submit(c *gin.Context) {
	var batch models.SimulationBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if len(batch.Scenarios) == 0 {
		writeError(c, http.StatusBadRequest, errEmptyBatch)
		return
	}
	if batch.BatchID == "" {
		batch.BatchID = utils.GenerateID()
	}

	h.logger.Info("batch processing started",
		zap.String("batch_id", batch.BatchID),
		zap.Int("scenarios", len(batch.Scenarios)),
	)

	go h.processBatch(batch)

	c.JSON(http.StatusAccepted, gin.H{
		"success":   true,
		"batch_id":  batch.BatchID,
		"scenarios": len(batch.Scenarios),
		"message":   "Batch processing started with worker pool",
	})
}

// processBatch runs every scenario on the pool, queues one webhook per
// result and appends the batch timing row. It returns the per-scenario
// timings in submission order.
func (h *BatchHandler) processBatch(batch models.SimulationBatch) []models.ScenarioTiming {
	batchStartTime := time.Now()

	items := make([]models.WorkItem, len(batch.Scenarios))
	for i, scenario := range batch.Scenarios {
		items[i] = h.createWorkItem(i, scenario, batch.BatchID)
	}

	timings := make([]models.ScenarioTiming, len(items))
	results := h.workerPool.SubmitBatch(items)
collect:
	for range items {
		select {
		case result := <-results:
			timings[result.ID] = scenarioTiming(result)
			h.workerPool.QueueWebhook(webhookItem(result))
		case <-h.workerPool.Done():
			h.logger.Warn("worker pool stopped before the batch finished", zap.String("batch_id", batch.BatchID))
			break collect
		}
	}

	totalBatchTime := time.Since(batchStartTime)
	if err := h.saveTimingResults(batch.BatchID, totalBatchTime, timings, h.workerPool.Workers()); err != nil {
		h.logger.Error("save timing results", zap.String("file", h.timingFile), zap.Error(err))
	}

	h.logger.Info("batch processing completed",
		zap.String("batch_id", batch.BatchID),
		zap.Duration("total_time", totalBatchTime),
	)
	return timings
}

func (h *BatchHandler) createWorkItem(pos int, item models.BatchItem, batchID string) models.WorkItem {
	req := item.Simulation
	requestID := req.ID
	if requestID == "" {
		requestID = fmt.Sprintf("%s_iter_%03d", batchID, item.Iteration)
	}
	return models.WorkItem{
		ID:        pos,
		RequestID: requestID,
		BatchID:   batchID,
		Iteration: item.Iteration,
		Request:   req,
		StartTime: time.Now(),
	}
}

func scenarioTiming(result models.WorkResult) models.ScenarioTiming {
	t := models.ScenarioTiming{
		Iteration:      result.Iteration,
		ProcessingTime: result.ProcessingTime,
		Success:        result.Success,
		Category:       result.Category,
	}
	if result.Success && len(result.Response.HotSpot) > 0 {
		t.MaxHotSpot = floats.Max(result.Response.HotSpot)
	}
	return t
}

var timingHeader = []string{
	"Timestamp",
	"BatchID",
	"TotalScenarios",
	"Concurrency",
	"TotalBatchTime_ms",
	"AvgScenarioTime_ms",
	"MinScenarioTime_ms",
	"MaxScenarioTime_ms",
	"SuccessRate",
	"MaxHotSpot",
	"ScenariosPerSecond",
	"EfficiencyScore",
	"Category",
}

// saveTimingResults appends one row of batch statistics to the timing CSV.
func (h *BatchHandler) saveTimingResults(batchID string, totalTime time.Duration, timings []models.ScenarioTiming, concurrency int) error {
	if h.timingFile == "" || len(timings) == 0 {
		return nil
	}

	writeHeader := false
	if _, err := os.Stat(h.timingFile); errors.Is(err, os.ErrNotExist) {
		writeHeader = true
	}

	file, err := os.OpenFile(h.timingFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open timing file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(timingHeader); err != nil {
			return fmt.Errorf("write timing header: %w", err)
		}
	}

	var totalScenarioTime time.Duration
	minTime, maxTime := timings[0].ProcessingTime, timings[0].ProcessingTime
	successful := 0
	maxHotSpot := 0.0
	for _, timing := range timings {
		totalScenarioTime += timing.ProcessingTime
		minTime = min(minTime, timing.ProcessingTime)
		maxTime = max(maxTime, timing.ProcessingTime)
		if timing.Success {
			successful++
			maxHotSpot = max(maxHotSpot, timing.MaxHotSpot)
		}
	}

	n := len(timings)
	avgScenarioTime := totalScenarioTime / time.Duration(n)
	successRate := float64(successful) / float64(n) * 100

	scenariosPerSecond, efficiencyScore := 0.0, 0.0
	if totalTime > 0 {
		scenariosPerSecond = float64(n) / totalTime.Seconds()
		// 1.0 means the workers ran fully in parallel.
		efficiencyScore = totalScenarioTime.Seconds() / totalTime.Seconds() / float64(concurrency)
	}

	record := []string{
		time.Now().Format(time.RFC3339),
		batchID,
		fmt.Sprintf("%d", n),
		fmt.Sprintf("%d", concurrency),
		fmt.Sprintf("%.2f", ms(totalTime)),
		fmt.Sprintf("%.2f", ms(avgScenarioTime)),
		fmt.Sprintf("%.2f", ms(minTime)),
		fmt.Sprintf("%.2f", ms(maxTime)),
		fmt.Sprintf("%.1f", successRate),
		fmt.Sprintf("%.3f", maxHotSpot),
		fmt.Sprintf("%.2f", scenariosPerSecond),
		fmt.Sprintf("%.3f", efficiencyScore),
		timings[0].Category,
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("write timing record: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush timing file: %w", err)
	}

	h.logger.Info("timing saved",
		zap.Int("scenarios", n),
		zap.Int("concurrency", concurrency),
		zap.Float64("total_ms", ms(totalTime)),
		zap.Float64("success_rate", successRate),
		zap.Float64("efficiency", efficiencyScore),
	)
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
