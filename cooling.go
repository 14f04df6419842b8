package thermalcore

import "fmt"

// SwitchKind tags the variant held by a CoolingPolicy.
type SwitchKind int

const (
	FixedCooling SwitchKind = iota
	ThresholdSwitching
	ScheduledSwitching
)

func (k SwitchKind) String() string {
	switch k {
	case FixedCooling:
		return "fixed"
	case ThresholdSwitching:
		return "threshold"
	case ScheduledSwitching:
		return "schedule"
	}
	return fmt.Sprintf("SwitchKind(%d)", int(k))
}

// ONANParameters replace the ONAF nameplate values while the fans are off.
// A nil field keeps the ONAF value.
type ONANParameters struct {
	NomLoadSecSide     *float64
	LoadLoss           *float64
	TopOilTempRise     *float64
	WindingOilGradient *float64
	HotSpotFactor      *float64
	TimeConstOil       *float64
	TimeConstWindings  *float64
}

// CoolingPolicy decides which cooling mode drives each step.
//
// Threshold switching is edge-triggered on the last two top-oil values and
// takes effect on the following step. Near the band edges this can toggle
// every step; that behaviour is part of the model.
type CoolingPolicy struct {
	Kind SwitchKind

	ActivationTemp   float64 // threshold only
	DeactivationTemp float64 // threshold only
	FanOn            []bool  // schedule only, aligned with the profile

	ONAN ONANParameters
}

// Fixed keeps the resolved cooler type for the whole run.
func Fixed() CoolingPolicy {
	return CoolingPolicy{Kind: FixedCooling}
}

// Threshold switches the fans on when the top oil rises through activation
// and off when it falls through deactivation.
func Threshold(activation, deactivation float64, onan ONANParameters) CoolingPolicy {
	return CoolingPolicy{
		Kind:             ThresholdSwitching,
		ActivationTemp:   activation,
		DeactivationTemp: deactivation,
		ONAN:             onan,
	}
}

// Scheduled follows a fan state per sample; true means ONAF.
func Scheduled(fanOn []bool, onan ONANParameters) CoolingPolicy {
	return CoolingPolicy{Kind: ScheduledSwitching, FanOn: fanOn, ONAN: onan}
}

func (c CoolingPolicy) switches() bool {
	return c.Kind != FixedCooling
}

// Validate checks the policy against the transformer it will drive.
func (c CoolingPolicy) Validate(specs Specifications) error {
	switch c.Kind {
	case FixedCooling:
		return nil
	case ThresholdSwitching:
		if !(c.ActivationTemp > c.DeactivationTemp) {
			return configErr("cooling_switch.activation_temp", c.ActivationTemp,
				fmt.Sprintf("must be above the deactivation temperature %g", c.DeactivationTemp))
		}
	case ScheduledSwitching:
		if len(c.FanOn) == 0 {
			return configErr("cooling_switch.fan_on", 0, "schedule is empty")
		}
	default:
		return configErr("cooling_switch.kind", float64(c.Kind), "unknown switch kind")
	}

	if specs.Category != PowerTransformer {
		return configErr("cooling_switch", float64(specs.Category), "switching is only supported for power transformers")
	}
	if specs.Cooler != ONAF {
		return configErr("cooling_switch", float64(specs.Cooler), "switching requires a transformer resolved with ONAF cooling")
	}

	onan := c.Parameters(specs, ONAN)
	if err := onan.Validate(); err != nil {
		return fmt.Errorf("onan_parameters: %w", err)
	}
	return nil
}

// Parameters returns the parameter set active in mode. For ONAF, and for
// a fixed policy, that is specs unchanged.
func (c CoolingPolicy) Parameters(specs Specifications, mode CoolerType) Specifications {
	if !c.switches() || mode == ONAF {
		return specs
	}
	onan := specs
	onan.Cooler = ONAN
	for _, f := range []struct {
		dst *float64
		src *float64
	}{
		{&onan.NomLoadSecSide, c.ONAN.NomLoadSecSide},
		{&onan.LoadLoss, c.ONAN.LoadLoss},
		{&onan.TopOilTempRise, c.ONAN.TopOilTempRise},
		{&onan.WindingOilGradient, c.ONAN.WindingOilGradient},
		{&onan.HotSpotFactor, c.ONAN.HotSpotFactor},
		{&onan.TimeConstOil, c.ONAN.TimeConstOil},
		{&onan.TimeConstWindings, c.ONAN.TimeConstWindings},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return onan
}

// InitialMode picks the mode of the first sample.
func (c CoolingPolicy) InitialMode(base CoolerType, topOil float64) CoolerType {
	switch c.Kind {
	case ScheduledSwitching:
		return fanMode(c.FanOn[0])
	case ThresholdSwitching:
		if topOil < c.ActivationTemp {
			return ONAN
		}
		return ONAF
	}
	return base
}

// NextMode returns the mode for sample step, given the mode of the previous
// sample and the two top-oil values computed before it.
func (c CoolingPolicy) NextMode(step int, current CoolerType, prevTopOil, topOil float64) CoolerType {
	switch c.Kind {
	case ScheduledSwitching:
		if step < len(c.FanOn) {
			return fanMode(c.FanOn[step])
		}
	case ThresholdSwitching:
		if prevTopOil < c.ActivationTemp && c.ActivationTemp <= topOil {
			return ONAF
		}
		if prevTopOil > c.DeactivationTemp && c.DeactivationTemp >= topOil {
			return ONAN
		}
	}
	return current
}

func (c CoolingPolicy) validateSeries(n int) error {
	if c.Kind == ScheduledSwitching && len(c.FanOn) != n {
		return inputErr("fan_on", -1, lengthReason(len(c.FanOn), n))
	}
	return nil
}

func fanMode(on bool) CoolerType {
	if on {
		return ONAF
	}
	return ONAN
}
