package processing

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/kacperjurak/thermalcore"
	"github.com/kacperjurak/thermalcore/pkg/models"
	"github.com/kacperjurak/thermalcore/pkg/profiling"
)

// SimulationProcessor turns requests into runs: resolve, calibrate when
// asked, run, and evaluate aging.
type SimulationProcessor struct {
	logger *zap.Logger
}

func NewSimulationProcessor(logger *zap.Logger) *SimulationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulationProcessor{logger: logger}
}

// Process runs one simulation request.
func (p *SimulationProcessor) Process(ctx context.Context, req models.SimulationRequest) (models.SimulationResponse, error) {
	specs, err := models.Resolve(req.Category, req.Cooler, req.Specifications)
	if err != nil {
		return models.SimulationResponse{}, fmt.Errorf("resolve specifications: %w", err)
	}

	var calibration *models.CalibrationResponse
	if req.Calibration != nil {
		res, err := p.calibrate(ctx, specs, *req.Calibration)
		if err != nil {
			return models.SimulationResponse{}, err
		}
		specs = res.Specifications
		calibration = models.NewCalibrationResponse(res)
	}

	opts, err := req.Options()
	if err != nil {
		return models.SimulationResponse{}, err
	}
	opts.Logger = p.logger

	profile, err := req.Profile.Core()
	if err != nil {
		return models.SimulationResponse{}, err
	}

	m, err := thermalcore.NewModel(specs, opts)
	if err != nil {
		return models.SimulationResponse{}, err
	}

	rp := profiling.NewRequestProfiler(req.ID)
	out, err := m.Run(profile)
	if err != nil {
		return models.SimulationResponse{}, fmt.Errorf("run: %w", err)
	}
	run := rp.Finish()

	resp := models.NewSimulationResponse(req.ID, out)
	resp.Calibration = calibration

	p.logger.Info("simulation completed",
		zap.String("id", req.ID),
		zap.String("category", specs.Category.String()),
		zap.Int("samples", profile.Len()),
		zap.Float64("max_hot_spot", floats.Max(out.HotSpot)),
		zap.Duration("duration", run.Duration),
		zap.Uint64("allocated_bytes", run.MemoryAllocated),
		zap.Int("goroutines", run.Goroutines),
	)
	return resp, nil
}

// Calibrate solves the hot-spot factor of a calibration request.
func (p *SimulationProcessor) Calibrate(ctx context.Context, req models.CalibrationRequest) (models.CalibrationResponse, error) {
	specs, err := models.Resolve(req.Category, req.Cooler, req.Specifications)
	if err != nil {
		return models.CalibrationResponse{}, fmt.Errorf("resolve specifications: %w", err)
	}
	res, err := p.calibrate(ctx, specs, req.Calibration)
	if err != nil {
		return models.CalibrationResponse{}, err
	}
	return *models.NewCalibrationResponse(res), nil
}

func (p *SimulationProcessor) calibrate(ctx context.Context, specs thermalcore.Specifications, c models.Calibration) (thermalcore.CalibrationResult, error) {
	cal, target, err := c.Calibrator(specs)
	if err != nil {
		return thermalcore.CalibrationResult{}, err
	}
	cal.Logger = p.logger
	res, err := cal.Calibrate(ctx, target)
	if err != nil {
		return thermalcore.CalibrationResult{}, fmt.Errorf("calibrate hot-spot factor: %w", err)
	}
	if res.BoundaryReached {
		p.logger.Warn("hot-spot factor clipped to bound",
			zap.String("boundary", res.Boundary.String()),
			zap.Float64("hot_spot_factor", res.HotSpotFactor),
			zap.Float64("limit", target.Limit),
		)
	}
	return res, nil
}

// Aging evaluates an aging request.
func (p *SimulationProcessor) Aging(req models.AgingRequest) (models.AgingResponse, error) {
	paper, err := thermalcore.ParseInsulationType(req.Paper)
	if err != nil {
		return models.AgingResponse{}, err
	}
	rates := thermalcore.AgingRates(req.HotSpot, paper)
	days, err := thermalcore.DaysAged(rates, req.Timestamps)
	if err != nil {
		return models.AgingResponse{}, err
	}
	return models.AgingResponse{Paper: paper.String(), AgingRate: rates, DaysAged: days}, nil
}

// ProcessorFunc adapts the processor to the worker pool.
func (p *SimulationProcessor) ProcessorFunc() func(ctx context.Context, req models.SimulationRequest) (models.SimulationResponse, error) {
	return p.Process
}
