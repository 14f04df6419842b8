package thermalcore

import (
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// State is the recurrence state carried from one sample to the next.
// Rise1 and Rise2 are the two exponential components of the hot-spot rise,
// one pair per winding.
type State struct {
	TopOil float64
	Rise1  [NumWindings]float64
	Rise2  [NumWindings]float64
	Mode   CoolerType
}

// HotSpotRise is the hot-spot rise over top-oil of winding i.
func (s State) HotSpotRise(i int) float64 {
	return s.Rise1[i] - s.Rise2[i]
}

func (s State) HotSpot(i int) float64 {
	return s.TopOil + s.HotSpotRise(i)
}

// StepInput is everything Step needs about one sample.
type StepInput struct {
	Index   int     // sample index, only used in errors
	Dt      float64 // minutes since the previous sample
	Ambient float64
	Load    [NumWindings]float64 // load fraction per winding, index 0 for two-winding transformers

	// TopOil, when set, is a measured value that replaces the computed top-oil.
	TopOil *float64
}

// Step advances the state by one sample under the parameter set p.
// It is a pure function of its arguments.
func Step(p *Specifications, st State, in StepInput) (State, error) {
	if !(in.Dt > 0) || math.IsInf(in.Dt, 0) {
		return st, &InvalidTimestepError{Step: in.Index, Dt: in.Dt}
	}
	for i := 0; i < p.windingCount(); i++ {
		if in.Load[i] < 0 || math.IsNaN(in.Load[i]) {
			return st, inputErr("load", in.Index, "load must not be negative")
		}
	}

	next := st
	if in.TopOil != nil {
		next.TopOil = *in.TopOil
	} else {
		target := p.InternalTemperature(in.Ambient) + p.topOilRiseEnd(in.Load)
		next.TopOil = st.TopOil + (target-st.TopOil)*(1-math.Exp(-in.Dt/(p.OilConstK11*p.TimeConstOil)))
	}

	k21, k22 := p.WindingConstK21, p.WindingConstK22
	oilDecay := math.Exp(-in.Dt * k22 / p.TimeConstOil)
	for i := 0; i < p.windingCount(); i++ {
		w := p.winding(i)
		s := w.HotSpotFactor * w.WindingOilGradient * math.Pow(in.Load[i], p.WindingExpY)
		end1, end2 := k21*s, (k21-1)*s
		next.Rise1[i] = end1 + (st.Rise1[i]-end1)*math.Exp(-in.Dt/(k22*w.TimeConstWindings))
		next.Rise2[i] = end2 + (st.Rise2[i]-end2)*oilDecay
	}
	return next, nil
}

// SteadyState is the fixed point reached under a constant load and ambient.
func SteadyState(p *Specifications, ambient float64, load [NumWindings]float64) State {
	st := State{
		TopOil: p.InternalTemperature(ambient) + p.topOilRiseEnd(load),
		Mode:   p.Cooler,
	}
	for i := 0; i < p.windingCount(); i++ {
		w := p.winding(i)
		s := w.HotSpotFactor * w.WindingOilGradient * math.Pow(load[i], p.WindingExpY)
		st.Rise1[i] = p.WindingConstK21 * s
		st.Rise2[i] = (p.WindingConstK21 - 1) * s
	}
	return st
}

// topOilRiseEnd is the ultimate top-oil rise over the internal temperature at load.
func (s *Specifications) topOilRiseEnd(load [NumWindings]float64) float64 {
	rise := math.Pow(s.lossRatioAt(load), s.OilExpX)
	if s.Category == DistributionTransformer {
		return (s.TopOilTempRise + s.AmbTempSurcharge) * rise
	}
	return s.TopOilTempRise*rise - s.EndTempReduction
}

// lossRatioAt is the total loss at load relative to the total loss at rated
// load, (1+R·K²)/(1+R) for a two-winding transformer.
func (s *Specifications) lossRatioAt(load [NumWindings]float64) float64 {
	total := s.totalLoss()
	if total == 0 {
		return 0
	}
	loss := s.NoLoadLoss
	for i := 0; i < s.windingCount(); i++ {
		loss += s.winding(i).Loss * load[i] * load[i]
	}
	return loss / total
}

type initialKind int

const (
	coldStart initialKind = iota
	givenTopOil
	givenLoad
)

// InitialCondition selects the state of the first sample.
type InitialCondition struct {
	kind  initialKind
	value float64
}

// ColdStart puts the top-oil at the internal temperature of the first
// sample with no hot-spot rise. It is the zero value.
func ColdStart() InitialCondition {
	return InitialCondition{kind: coldStart}
}

// InitialTopOil starts from a measured top-oil temperature.
func InitialTopOil(temp float64) InitialCondition {
	return InitialCondition{kind: givenTopOil, value: temp}
}

// InitialLoadFraction starts from the steady state at load fraction k on
// every winding and the first ambient sample.
func InitialLoadFraction(k float64) InitialCondition {
	return InitialCondition{kind: givenLoad, value: k}
}

// Output holds the profiles of one run, aligned with the input profile.
type Output struct {
	Timestamps []time.Time
	TopOil     []float64
	// HotSpot is the hottest winding at each sample.
	HotSpot []float64
	// WindingHotSpot is set for three-winding transformers, indexed by WindingSide.
	WindingHotSpot [][]float64
	Mode           []CoolerType
	// AgingRate is set when ModelOptions.Insulation is.
	AgingRate []float64
}

// DaysAged integrates the aging rate of the run. It returns 0 when no aging rate was requested.
func (o Output) DaysAged() float64 {
	if o.AgingRate == nil {
		return 0
	}
	days, _ := DaysAged(o.AgingRate, o.Timestamps)
	return days
}

// ModelOptions configure a Model. The zero value is a cold start with fixed
// cooling and no aging.
type ModelOptions struct {
	Cooling    CoolingPolicy
	Initial    InitialCondition
	Insulation *InsulationType
	Logger     *zap.Logger
}

// Model runs the thermal recurrence for one transformer.
// A Model holds no run state and can be shared between goroutines.
type Model struct {
	specs   Specifications
	onan    Specifications
	cooling CoolingPolicy
	initial InitialCondition
	aging   *InsulationType
	logger  *zap.Logger
}

// NewModel validates specs and opts.
func NewModel(specs Specifications, opts ModelOptions) (*Model, error) {
	if err := specs.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Cooling.Validate(specs); err != nil {
		return nil, err
	}
	if opts.Initial.kind == givenLoad && (opts.Initial.value < 0 || math.IsNaN(opts.Initial.value)) {
		return nil, inputErr("initial_load", -1, "load must not be negative")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{
		specs:   specs,
		onan:    opts.Cooling.Parameters(specs, ONAN),
		cooling: opts.Cooling,
		initial: opts.Initial,
		aging:   opts.Insulation,
		logger:  logger,
	}, nil
}

func (m *Model) Specifications() Specifications {
	return m.specs
}

func (m *Model) parameters(mode CoolerType) *Specifications {
	if mode == ONAN && m.cooling.switches() {
		return &m.onan
	}
	return &m.specs
}

// Run folds Step over the profile. Nothing is returned on error.
func (m *Model) Run(p Profile) (Output, error) {
	if err := p.Validate(m.specs.Category); err != nil {
		return Output{}, err
	}
	if err := m.cooling.validateSeries(p.Len()); err != nil {
		return Output{}, err
	}

	n := p.Len()
	out := Output{
		Timestamps: append([]time.Time(nil), p.Timestamps...),
		TopOil:     make([]float64, n),
		HotSpot:    make([]float64, n),
		Mode:       make([]CoolerType, n),
	}
	windings := m.specs.windingCount()
	if m.specs.Category == ThreeWindingTransformer {
		out.WindingHotSpot = make([][]float64, windings)
		for i := range out.WindingHotSpot {
			out.WindingHotSpot[i] = make([]float64, n)
		}
	}

	st := m.initialState(&p)
	out.record(0, st, windings)

	dts := p.Deltas()
	for t := 1; t < n; t++ {
		params := m.parameters(st.Mode)
		in := StepInput{
			Index:   t,
			Dt:      dts[t],
			Ambient: p.Ambient[t],
			Load:    p.loadFractions(params, t),
		}
		if p.TopOil != nil {
			in.TopOil = &p.TopOil[t]
		}
		next, err := Step(params, st, in)
		if err != nil {
			return Output{}, err
		}
		out.record(t, next, windings)
		next.Mode = m.cooling.NextMode(t+1, next.Mode, st.TopOil, next.TopOil)
		st = next
	}

	if m.aging != nil {
		out.AgingRate = AgingRates(out.HotSpot, *m.aging)
	}

	m.logger.Debug("thermal run finished",
		zap.String("category", m.specs.Category.String()),
		zap.Int("samples", n),
		zap.Float64("max_top_oil", floats.Max(out.TopOil)),
		zap.Float64("max_hot_spot", floats.Max(out.HotSpot)),
	)
	return out, nil
}

func (m *Model) initialState(p *Profile) State {
	if p.TopOil != nil {
		mode := m.cooling.InitialMode(m.specs.Cooler, p.TopOil[0])
		return State{TopOil: p.TopOil[0], Mode: mode}
	}

	switch m.initial.kind {
	case givenTopOil:
		return State{TopOil: m.initial.value, Mode: m.cooling.InitialMode(m.specs.Cooler, m.initial.value)}
	case givenLoad:
		var load [NumWindings]float64
		for i := range load {
			load[i] = m.initial.value
		}
		st := SteadyState(&m.specs, p.Ambient[0], load)
		mode := m.cooling.InitialMode(m.specs.Cooler, st.TopOil)
		if mode != st.Mode {
			st = SteadyState(m.parameters(mode), p.Ambient[0], load)
			st.Mode = mode
		}
		return st
	}

	top := m.specs.InternalTemperature(p.Ambient[0])
	return State{TopOil: top, Mode: m.cooling.InitialMode(m.specs.Cooler, top)}
}

func (o *Output) record(t int, st State, windings int) {
	o.TopOil[t] = st.TopOil
	o.Mode[t] = st.Mode
	hot := st.HotSpot(0)
	for i := 0; i < windings; i++ {
		h := st.HotSpot(i)
		if o.WindingHotSpot != nil {
			o.WindingHotSpot[i][t] = h
		}
		if h > hot {
			hot = h
		}
	}
	o.HotSpot[t] = hot
}
