package thermalcore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/maorshutman/lm"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// CalibrationMethod is the root finder used to solve for the hot-spot factor.
type CalibrationMethod int

const (
	Bisection CalibrationMethod = iota
	Secant
	StepSearch
	NelderMead
	LevenbergMarquardt
)

func (m CalibrationMethod) String() string {
	switch m {
	case Bisection:
		return "bisection"
	case Secant:
		return "secant"
	case StepSearch:
		return "step"
	case NelderMead:
		return "nelder-mead"
	case LevenbergMarquardt:
		return "lm"
	}
	return fmt.Sprintf("CalibrationMethod(%d)", int(m))
}

// ParseCalibrationMethod accepts the names printed by CalibrationMethod.String.
func ParseCalibrationMethod(s string) (CalibrationMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bisection", "":
		return Bisection, nil
	case "secant":
		return Secant, nil
	case "step":
		return StepSearch, nil
	case "nelder-mead", "nm":
		return NelderMead, nil
	case "lm", "levenberg-marquardt":
		return LevenbergMarquardt, nil
	}
	return 0, &ConfigurationError{Field: "method", Value: math.NaN(), Reason: fmt.Sprintf("unknown calibration method %q", s)}
}

// Boundary names the bound a clipped calibration stopped at.
type Boundary int

const (
	NoBoundary Boundary = iota
	MinBoundary
	MaxBoundary
)

func (b Boundary) String() string {
	switch b {
	case MinBoundary:
		return "min"
	case MaxBoundary:
		return "max"
	}
	return ""
}

const (
	DefaultMinHotSpotFactor = 1.1
	DefaultMaxHotSpotFactor = 1.3
	DefaultTolerance        = 0.01 // K
	DefaultMaxIterations    = 100

	calibrationSamples = 7 * 24 * 4
	calibrationStep    = 15 * time.Minute
	stepSearchIncrease = 0.01
)

// CalibrationTarget is the static scenario the hot-spot factor is solved for.
type CalibrationTarget struct {
	Ambient float64 // °C
	Limit   float64 // hot-spot limit, °C
}

// Calibrator searches the hot-spot factor that makes a week at nominal load
// and constant ambient reach a hot-spot limit. Zero fields take the defaults.
type Calibrator struct {
	Specs         Specifications
	Method        CalibrationMethod
	MinFactor     float64
	MaxFactor     float64
	Tolerance     float64
	MaxIterations int
	Logger        *zap.Logger
}

// CalibrationResult is the solved factor and the hot-spot it produces.
type CalibrationResult struct {
	HotSpotFactor   float64
	HotSpot         float64
	BoundaryReached bool
	Boundary        Boundary
	Iterations      int
	Method          CalibrationMethod
	// Specifications carry the calibrated factor and the caller's surcharge.
	Specifications Specifications
}

// trial is one evaluated hot-spot factor.
type trial struct {
	factor  float64
	hotSpot float64
}

type calibration struct {
	ctx        context.Context
	specs      Specifications
	profile    Profile
	limit      float64
	tol        float64
	lo, hi     float64
	maxIter    int
	iterations int
	last       trial
	best       trial
	logger     *zap.Logger
}

// Calibrate runs the configured search. A target outside the reachable range
// is not an error: the factor is clipped and BoundaryReached is set.
func (c Calibrator) Calibrate(ctx context.Context, target CalibrationTarget) (CalibrationResult, error) {
	cal, err := c.prepare(ctx, target)
	if err != nil {
		return CalibrationResult{}, err
	}

	var (
		best     trial
		boundary Boundary
	)
	if c.Method == StepSearch {
		best, boundary, err = cal.stepSearch()
	} else {
		best, boundary, err = cal.bracket(c.Method)
	}
	if err != nil {
		return CalibrationResult{}, err
	}

	specs := c.Specs.WithHotSpotFactor(best.factor)
	res := CalibrationResult{
		HotSpotFactor:   best.factor,
		HotSpot:         best.hotSpot,
		BoundaryReached: boundary != NoBoundary,
		Boundary:        boundary,
		Iterations:      cal.iterations,
		Method:          c.Method,
		Specifications:  specs,
	}
	cal.logger.Info("hot-spot factor calibrated",
		zap.String("method", c.Method.String()),
		zap.Float64("hot_spot_factor", res.HotSpotFactor),
		zap.Float64("hot_spot", res.HotSpot),
		zap.Bool("boundary_reached", res.BoundaryReached),
		zap.Int("iterations", res.Iterations),
	)
	return res, nil
}

func (c Calibrator) prepare(ctx context.Context, target CalibrationTarget) (*calibration, error) {
	if err := c.Specs.Validate(); err != nil {
		return nil, err
	}
	if c.Method < Bisection || c.Method > LevenbergMarquardt {
		return nil, configErr("method", float64(c.Method), "unknown calibration method")
	}

	cal := &calibration{
		ctx:     ctx,
		limit:   target.Limit,
		lo:      orDefault(c.MinFactor, DefaultMinHotSpotFactor),
		hi:      orDefault(c.MaxFactor, DefaultMaxHotSpotFactor),
		tol:     orDefault(c.Tolerance, DefaultTolerance),
		maxIter: c.MaxIterations,
		logger:  c.Logger,
	}
	if cal.maxIter == 0 {
		cal.maxIter = DefaultMaxIterations
	}
	if cal.logger == nil {
		cal.logger = zap.NewNop()
	}

	switch {
	case !(cal.lo > 0):
		return nil, configErr("hot_spot_fac_min", cal.lo, "must be positive")
	case cal.lo > cal.hi || math.IsInf(cal.hi, 0):
		return nil, configErr("hot_spot_fac_min", cal.lo, fmt.Sprintf("must not exceed hot_spot_fac_max %g", cal.hi))
	case !(cal.tol > 0):
		return nil, configErr("tolerance", cal.tol, "must be positive")
	case cal.maxIter < 0:
		return nil, configErr("max_iterations", float64(cal.maxIter), "must not be negative")
	case math.IsNaN(target.Ambient) || math.IsInf(target.Ambient, 0):
		return nil, configErr("ambient", target.Ambient, "must be a finite number")
	case math.IsNaN(target.Limit) || math.IsInf(target.Limit, 0):
		return nil, configErr("limit", target.Limit, "must be a finite number")
	}

	cal.specs = c.Specs
	cal.specs.AmbTempSurcharge = 0
	cal.profile = calibrationProfile(target.Ambient)
	return cal, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// calibrationProfile is one week of 15 minute samples at nominal load on every winding.
func calibrationProfile(ambient float64) Profile {
	ts := make([]time.Time, calibrationSamples)
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * calibrationStep)
	}
	amb := make([]float64, calibrationSamples)
	floats.AddConst(ambient, amb)
	load := make([]float64, calibrationSamples)
	floats.AddConst(1, load)

	return Profile{
		Timestamps:  ts,
		Ambient:     amb,
		Unit:        Fraction,
		Load:        load,
		WindingLoad: [NumWindings][]float64{load, load, load},
	}
}

// evaluate runs the scenario at factor h and returns the maximum hot-spot.
func (c *calibration) evaluate(h float64) (trial, error) {
	if err := c.ctx.Err(); err != nil {
		return trial{}, err
	}
	if c.iterations >= c.maxIter {
		return trial{}, c.nonConvergence()
	}
	c.iterations++

	m, err := NewModel(c.specs.WithHotSpotFactor(h), ModelOptions{})
	if err != nil {
		return trial{}, err
	}
	out, err := m.Run(c.profile)
	if err != nil {
		return trial{}, err
	}
	c.last = trial{factor: h, hotSpot: floats.Max(out.HotSpot)}
	if c.iterations == 1 || math.Abs(c.last.hotSpot-c.limit) < math.Abs(c.best.hotSpot-c.limit) {
		c.best = c.last
	}
	c.logger.Debug("calibration trial",
		zap.Int("iteration", c.iterations),
		zap.Float64("hot_spot_factor", h),
		zap.Float64("hot_spot", c.last.hotSpot),
	)
	return c.last, nil
}

func (c *calibration) nonConvergence() error {
	return &CalibrationNonConvergenceError{
		Iterations:  c.iterations,
		LastFactor:  c.last.factor,
		LastHotSpot: c.last.hotSpot,
	}
}

func (c *calibration) converged(t trial) bool {
	return math.Abs(t.hotSpot-c.limit) <= c.tol
}

func (c *calibration) clip(h float64) float64 {
	return math.Max(c.lo, math.Min(c.hi, h))
}

// bracket evaluates both bounds, clips when the limit lies outside them
// and otherwise hands the bracketed root to the chosen method.
func (c *calibration) bracket(method CalibrationMethod) (trial, Boundary, error) {
	lo, err := c.evaluate(c.lo)
	if err != nil {
		return c.fail(method, err)
	}
	if c.converged(lo) {
		return lo, NoBoundary, nil
	}
	if lo.hotSpot > c.limit {
		return lo, MinBoundary, nil
	}
	if c.hi == c.lo {
		return lo, MaxBoundary, nil
	}

	hi, err := c.evaluate(c.hi)
	if err != nil {
		return c.fail(method, err)
	}
	if c.converged(hi) {
		return hi, NoBoundary, nil
	}
	if hi.hotSpot < c.limit {
		return hi, MaxBoundary, nil
	}

	var best trial
	switch method {
	case Secant:
		best, err = c.secant(lo, hi)
	case NelderMead:
		best, err = c.nelderMead()
	case LevenbergMarquardt:
		best, err = c.levenbergMarquardt()
	default:
		best, err = c.bisection(lo, hi)
	}
	if err != nil {
		return c.fail(method, err)
	}
	return best, NoBoundary, nil
}

func (c *calibration) fail(method CalibrationMethod, err error) (trial, Boundary, error) {
	var nc *CalibrationNonConvergenceError
	if errors.As(err, &nc) {
		nc.Method = method
	}
	return trial{}, NoBoundary, err
}

func (c *calibration) bisection(lo, hi trial) (trial, error) {
	for {
		mid, err := c.evaluate((lo.factor + hi.factor) / 2)
		if err != nil {
			return trial{}, err
		}
		if c.converged(mid) {
			return mid, nil
		}
		if mid.hotSpot < c.limit {
			lo = mid
		} else {
			hi = mid
		}
	}
}

func (c *calibration) secant(a, b trial) (trial, error) {
	for {
		slope := (b.hotSpot - a.hotSpot) / (b.factor - a.factor)
		if slope == 0 || math.IsNaN(slope) {
			return trial{}, c.nonConvergence()
		}
		next, err := c.evaluate(c.clip(b.factor + (c.limit-b.hotSpot)/slope))
		if err != nil {
			return trial{}, err
		}
		if c.converged(next) {
			return next, nil
		}
		a, b = b, next
	}
}

// stepSearch lowers the factor from the upper bound in fixed increments
// until the hot-spot no longer exceeds the limit.
func (c *calibration) stepSearch() (trial, Boundary, error) {
	for k := 0; ; k++ {
		h := c.hi - float64(k)*stepSearchIncrease
		if h < c.lo {
			h = c.lo
		}
		t, err := c.evaluate(h)
		if err != nil {
			return c.fail(StepSearch, err)
		}
		switch {
		case t.hotSpot <= c.limit+c.tol:
			if k == 0 && !c.converged(t) {
				return t, MaxBoundary, nil
			}
			return t, NoBoundary, nil
		case h == c.lo:
			return t, MinBoundary, nil
		}
	}
}

// miss is the signed distance of the clipped factor's hot-spot from the
// limit. Errors abort the optimiser through stop and are reported after it
// returns; until then every call reports abort.
func (c *calibration) miss(stop *error, abort float64) func(h float64) float64 {
	return func(h float64) float64 {
		if *stop != nil {
			return abort
		}
		t, err := c.evaluate(c.clip(h))
		if err != nil {
			*stop = err
			return abort
		}
		return t.hotSpot - c.limit
	}
}

func (c *calibration) nelderMead() (trial, error) {
	var stop error
	f := c.miss(&stop, math.Inf(1))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			d := f(x[0])
			return d * d
		},
		Status: func() (optimize.Status, error) {
			if stop != nil {
				return optimize.Failure, stop
			}
			if c.converged(c.best) {
				return optimize.Success, nil
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: c.maxIter - c.iterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   c.tol * c.tol,
			Iterations: 10,
		},
	}
	init := []float64{(c.lo + c.hi) / 2}
	method := &optimize.NelderMead{SimplexSize: (c.hi - c.lo) / 2}

	_, err := optimize.Minimize(problem, init, settings, method)
	if err != nil && stop == nil {
		c.logger.Warn("nelder-mead calibration stopped", zap.Error(err))
	}
	return c.settle(stop)
}

func (c *calibration) levenbergMarquardt() (best trial, err error) {
	var stop error
	f := c.miss(&stop, 0)
	residual := func(dst, x []float64) {
		dst[0] = f(x[0])
	}

	jac := lm.NumJac{Func: residual}
	problem := lm.LMProblem{
		Dim:        1,
		Size:       1,
		Func:       residual,
		Jac:        jac.Jac,
		InitParams: []float64{(c.lo + c.hi) / 2},
		Tau:        1e-13,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	// lm panics on a singular step.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("levenberg-marquardt calibration panicked", zap.Any("panic", r))
			best, err = c.settle(stop)
		}
	}()

	res, lmErr := lm.LM(problem, &lm.Settings{Iterations: c.maxIter, ObjectiveTol: c.tol * c.tol})
	if lmErr != nil && stop == nil {
		c.logger.Warn("levenberg-marquardt calibration stopped", zap.Error(lmErr))
	}
	if lmErr == nil && stop == nil && !c.converged(c.best) {
		if _, err := c.evaluate(c.clip(res.X[0])); err != nil {
			stop = err
		}
	}
	return c.settle(stop)
}

// settle decides the outcome once an optimiser has returned: the best trial
// wins if it is within tolerance, whatever stopped the optimiser.
func (c *calibration) settle(stop error) (trial, error) {
	if err := c.ctx.Err(); err != nil {
		return trial{}, err
	}
	if c.converged(c.best) {
		return c.best, nil
	}
	if stop != nil {
		return trial{}, stop
	}
	return trial{}, c.nonConvergence()
}
