package models

import (
	"fmt"
	"strings"

	"github.com/kacperjurak/thermalcore"
)

// User converts the payload into resolver input.
func (s Specifications) User() thermalcore.UserSpecifications {
	user := thermalcore.UserSpecifications{
		LoadLoss:           s.LoadLoss,
		NoLoadLoss:         s.NoLoadLoss,
		NomLoadSecSide:     s.NomLoadSecSide,
		AmbTempSurcharge:   s.AmbTempSurcharge,
		TopOilTempRise:     s.TopOilTempRise,
		WindingOilGradient: s.WindingOilGradient,
		HotSpotFactor:      s.HotSpotFac,
		TimeConstOil:       s.TimeConstOil,
		TimeConstWindings:  s.TimeConstWindings,
		OilConstK11:        s.OilConstK11,
		WindingConstK21:    s.WindingConstK21,
		WindingConstK22:    s.WindingConstK22,
		OilExpX:            s.OilExpX,
		WindingExpY:        s.WindingExpY,
		EndTempReduction:   s.EndTempReduction,
	}
	if s.LVWinding != nil || s.MVWinding != nil || s.HVWinding != nil {
		user.ThreeWinding = &thermalcore.UserThreeWinding{
			LV:            s.LVWinding.user(),
			MV:            s.MVWinding.user(),
			HV:            s.HVWinding.user(),
			LoadLossHVLV:  s.LoadLossHVLV,
			LoadLossHVMV:  s.LoadLossHVMV,
			LoadLossMVLV:  s.LoadLossMVLV,
			LoadLossTotal: s.LoadLossTotal,
		}
	}
	return user
}

func (w *WindingSpecifications) user() thermalcore.UserWinding {
	if w == nil {
		return thermalcore.UserWinding{}
	}
	return thermalcore.UserWinding{
		NomLoad:            w.NomLoad,
		WindingOilGradient: w.WindingOilGradient,
		HotSpotFactor:      w.HotSpotFac,
		TimeConstWindings:  w.TimeConstWindings,
		NomPower:           w.NomPower,
	}
}

// Resolve parses the category and cooler names and resolves the specifications.
func Resolve(category, cooler string, specs Specifications) (thermalcore.Specifications, error) {
	cat, err := thermalcore.ParseCategory(category)
	if err != nil {
		return thermalcore.Specifications{}, err
	}
	ct, err := thermalcore.ParseCoolerType(cooler)
	if err != nil {
		return thermalcore.Specifications{}, err
	}
	return thermalcore.Resolve(cat, ct, specs.User())
}

// Policy converts the cooling switch. A nil switch keeps the cooler fixed.
func (c *CoolingSwitch) Policy() (thermalcore.CoolingPolicy, error) {
	if c == nil {
		return thermalcore.Fixed(), nil
	}
	onan := thermalcore.ONANParameters{
		NomLoadSecSide:     c.ONANParameters.NomLoadSecSide,
		LoadLoss:           c.ONANParameters.LoadLoss,
		TopOilTempRise:     c.ONANParameters.TopOilTempRise,
		WindingOilGradient: c.ONANParameters.WindingOilGradient,
		HotSpotFactor:      c.ONANParameters.HotSpotFac,
		TimeConstOil:       c.ONANParameters.TimeConstOil,
		TimeConstWindings:  c.ONANParameters.TimeConstWindings,
	}
	threshold := c.ActivationTemp != nil && c.DeactivationTemp != nil
	switch {
	case threshold && c.FanOn != nil:
		return thermalcore.CoolingPolicy{}, &thermalcore.ConfigurationError{
			Field: "cooling_switch", Reason: "give either the threshold temperatures or fan_on, not both",
		}
	case threshold:
		return thermalcore.Threshold(*c.ActivationTemp, *c.DeactivationTemp, onan), nil
	case c.FanOn != nil:
		return thermalcore.Scheduled(c.FanOn, onan), nil
	}
	return thermalcore.CoolingPolicy{}, &thermalcore.ConfigurationError{
		Field: "cooling_switch", Reason: "needs activation_temp and deactivation_temp, or fan_on",
	}
}

// Core converts the payload into a profile.
func (p Profile) Core() (thermalcore.Profile, error) {
	out := thermalcore.Profile{
		Timestamps:  p.Timestamps,
		Ambient:     p.Ambient,
		Load:        p.Load,
		WindingLoad: [thermalcore.NumWindings][]float64{p.LVLoad, p.MVLoad, p.HVLoad},
		TopOil:      p.TopOil,
	}
	switch strings.ToLower(p.LoadUnit) {
	case "", "ampere", "amperes", "a":
		out.Unit = thermalcore.Amperes
	case "fraction", "pu":
		out.Unit = thermalcore.Fraction
	default:
		return thermalcore.Profile{}, &thermalcore.InvalidInputError{
			Field: "load_unit", Index: -1, Reason: fmt.Sprintf("unknown load unit %q", p.LoadUnit),
		}
	}
	return out, nil
}

// Options builds the model options of the request.
func (r SimulationRequest) Options() (thermalcore.ModelOptions, error) {
	policy, err := r.CoolingSwitch.Policy()
	if err != nil {
		return thermalcore.ModelOptions{}, err
	}
	opts := thermalcore.ModelOptions{Cooling: policy}

	switch {
	case r.InitialTopOil != nil && r.InitialLoad != nil:
		return thermalcore.ModelOptions{}, &thermalcore.ConfigurationError{
			Field: "initial_top_oil", Value: *r.InitialTopOil, Reason: "give either initial_top_oil or initial_load",
		}
	case r.InitialTopOil != nil:
		opts.Initial = thermalcore.InitialTopOil(*r.InitialTopOil)
	case r.InitialLoad != nil:
		opts.Initial = thermalcore.InitialLoadFraction(*r.InitialLoad)
	}

	if r.Paper != "" {
		paper, err := thermalcore.ParseInsulationType(r.Paper)
		if err != nil {
			return thermalcore.ModelOptions{}, err
		}
		opts.Insulation = &paper
	}
	return opts, nil
}

// Calibrator builds a calibrator for specs.
func (c Calibration) Calibrator(specs thermalcore.Specifications) (thermalcore.Calibrator, thermalcore.CalibrationTarget, error) {
	method, err := thermalcore.ParseCalibrationMethod(c.Method)
	if err != nil {
		return thermalcore.Calibrator{}, thermalcore.CalibrationTarget{}, err
	}
	cal := thermalcore.Calibrator{
		Specs:         specs,
		Method:        method,
		MaxIterations: c.MaxIterations,
	}
	if c.HMin != nil {
		cal.MinFactor = *c.HMin
	}
	if c.HMax != nil {
		cal.MaxFactor = *c.HMax
	}
	if c.Tolerance != nil {
		cal.Tolerance = *c.Tolerance
	}
	return cal, thermalcore.CalibrationTarget{Ambient: c.Ambient, Limit: c.Limit}, nil
}

func NewCalibrationResponse(res thermalcore.CalibrationResult) *CalibrationResponse {
	return &CalibrationResponse{
		HotSpotFactor:   res.HotSpotFactor,
		HotSpot:         res.HotSpot,
		BoundaryReached: res.BoundaryReached,
		Boundary:        res.Boundary.String(),
		Iterations:      res.Iterations,
		Method:          res.Method.String(),
	}
}

// NewSimulationResponse copies a run's output into the response payload.
func NewSimulationResponse(id string, out thermalcore.Output) SimulationResponse {
	resp := SimulationResponse{
		ID:         id,
		Timestamps: out.Timestamps,
		TopOil:     out.TopOil,
		HotSpot:    out.HotSpot,
		Mode:       make([]string, len(out.Mode)),
		AgingRate:  out.AgingRate,
	}
	for i, m := range out.Mode {
		resp.Mode[i] = m.String()
	}
	if out.WindingHotSpot != nil {
		resp.WindingHotSpot = make(map[string][]float64, len(out.WindingHotSpot))
		for i, series := range out.WindingHotSpot {
			resp.WindingHotSpot[thermalcore.WindingSide(i).String()] = series
		}
	}
	if out.AgingRate != nil {
		days := out.DaysAged()
		resp.DaysAged = &days
	}
	return resp
}
