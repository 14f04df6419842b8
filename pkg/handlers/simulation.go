package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/kacperjurak/thermalcore/internal/utils"
	"github.com/kacperjurak/thermalcore/pkg/models"
	"github.com/kacperjurak/thermalcore/pkg/worker"
)

// Processor runs the thermal model. *processing.SimulationProcessor satisfies it.
type Processor interface {
	Process(ctx context.Context, req models.SimulationRequest) (models.SimulationResponse, error)
	Calibrate(ctx context.Context, req models.CalibrationRequest) (models.CalibrationResponse, error)
	Aging(req models.AgingRequest) (models.AgingResponse, error)
}

// Observer records handler outcomes. *profiling.Metrics satisfies it.
type Observer interface {
	ObserveSimulation(samples int, maxHotSpot float64, d time.Duration, err error)
	ObserveCalibration(method, boundary string, trials int)
}

// SimulationHandler serves single simulations, calibrations and aging.
type SimulationHandler struct {
	processor  Processor
	workerPool *worker.Pool
	observer   Observer
	logger     *zap.Logger
}

// NewSimulationHandler creates a new simulation handler. observer may be nil.
func NewSimulationHandler(processor Processor, pool *worker.Pool, observer Observer, logger *zap.Logger) *SimulationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulationHandler{
		processor:  processor,
		workerPool: pool,
		observer:   observer,
		logger:     logger,
	}
}

// Simulate handles POST /simulate. Async requests are answered with 202
// and their result goes to the webhook.
func (h *SimulationHandler) Simulate(c *gin.Context) {
	var req models.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if req.ID == "" {
		req.ID = c.GetString(requestIDKey)
	}
	if req.ID == "" {
		req.ID = utils.GenerateID()
	}

	if req.Async {
		go h.simulateAsync(req)
		c.JSON(http.StatusAccepted, gin.H{
			"success":    true,
			"request_id": req.ID,
			"message":    "Processing started",
		})
		return
	}

	start := time.Now()
	resp, err := h.processor.Process(c.Request.Context(), req)
	h.observeSimulation(resp, time.Since(start), err)
	if err != nil {
		h.logger.Info("simulation rejected", zap.String("request_id", req.ID), zap.Error(err))
		writeError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// simulateAsync runs req on the pool and queues its webhook. It gives up
// when the pool shuts down first.
func (h *SimulationHandler) simulateAsync(req models.SimulationRequest) {
	results := h.workerPool.SubmitBatch([]models.WorkItem{{
		RequestID: req.ID,
		Request:   req,
		StartTime: time.Now(),
	}})

	select {
	case result := <-results:
		h.observeCalibration(result.Response.Calibration)
		h.workerPool.QueueWebhook(webhookItem(result))
	case <-h.workerPool.Done():
		h.logger.Warn("worker pool stopped before the simulation finished", zap.String("request_id", req.ID))
	}
}

// Calibrate handles POST /calibrate.
func (h *SimulationHandler) Calibrate(c *gin.Context) {
	var req models.CalibrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	resp, err := h.processor.Calibrate(c.Request.Context(), req)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	h.observeCalibration(&resp)
	c.JSON(http.StatusOK, resp)
}

// Aging handles POST /aging.
func (h *SimulationHandler) Aging(c *gin.Context) {
	var req models.AgingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	resp, err := h.processor.Aging(req)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SimulationHandler) observeSimulation(resp models.SimulationResponse, d time.Duration, err error) {
	if h.observer == nil {
		return
	}
	maxHotSpot := 0.0
	if len(resp.HotSpot) > 0 {
		maxHotSpot = floats.Max(resp.HotSpot)
	}
	h.observer.ObserveSimulation(len(resp.HotSpot), maxHotSpot, d, err)
	h.observeCalibration(resp.Calibration)
}

func (h *SimulationHandler) observeCalibration(res *models.CalibrationResponse) {
	if h.observer == nil || res == nil {
		return
	}
	h.observer.ObserveCalibration(res.Method, res.Boundary, res.Iterations)
}

// webhookItem turns a work result into a webhook delivery.
func webhookItem(result models.WorkResult) models.WebhookItem {
	item := models.WebhookItem{
		RequestID: result.RequestID,
		BatchID:   result.BatchID,
		Iteration: result.Iteration,
		Response:  result.Response,
	}
	if result.Err != nil {
		item.Error = result.Err.Error()
	}
	return item
}
