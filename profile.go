package thermalcore

import (
	"fmt"
	"math"
	"time"
)

// LoadUnit says how Profile loads are expressed.
type LoadUnit int

const (
	// Amperes loads are divided by the nominal current of the active parameter set.
	Amperes LoadUnit = iota
	// Fraction loads are already per-unit of nominal and are used as-is.
	Fraction
)

// Profile is the input series of one run. All series are index-aligned
// with Timestamps, which must be strictly increasing. Intervals may vary.
type Profile struct {
	Timestamps []time.Time
	Ambient    []float64 // °C
	Unit       LoadUnit

	// Load is used by power and distribution transformers.
	Load []float64
	// WindingLoad is used by three-winding transformers, indexed by WindingSide.
	WindingLoad [NumWindings][]float64

	// TopOil optionally holds a measured top-oil series. When set it replaces
	// the computed top-oil and only the hot-spot rise is simulated.
	TopOil []float64
}

// NewProfile builds a two-winding profile with loads in amperes.
func NewProfile(timestamps []time.Time, load, ambient []float64) Profile {
	return Profile{Timestamps: timestamps, Load: load, Ambient: ambient, Unit: Amperes}
}

// NewThreeWindingProfile builds a three-winding profile with loads in amperes.
func NewThreeWindingProfile(timestamps []time.Time, lv, mv, hv, ambient []float64) Profile {
	return Profile{
		Timestamps:  timestamps,
		Ambient:     ambient,
		Unit:        Amperes,
		WindingLoad: [NumWindings][]float64{lv, mv, hv},
	}
}

func (p Profile) Len() int {
	return len(p.Timestamps)
}

// Validate rejects the profile before any step runs.
func (p Profile) Validate(category Category) error {
	n := len(p.Timestamps)
	if n == 0 {
		return inputErr("timestamps", -1, "profile is empty")
	}
	if len(p.Ambient) != n {
		return inputErr("ambient", -1, lengthReason(len(p.Ambient), n))
	}
	if err := checkFinite("ambient", p.Ambient); err != nil {
		return err
	}

	if category == ThreeWindingTransformer {
		for i, load := range p.WindingLoad {
			field := WindingSide(i).String() + "_load"
			if len(load) != n {
				return inputErr(field, -1, lengthReason(len(load), n))
			}
			if err := checkLoad(field, load); err != nil {
				return err
			}
		}
	} else {
		if len(p.Load) != n {
			return inputErr("load", -1, lengthReason(len(p.Load), n))
		}
		if err := checkLoad("load", p.Load); err != nil {
			return err
		}
	}

	if p.TopOil != nil {
		if len(p.TopOil) != n {
			return inputErr("top_oil", -1, lengthReason(len(p.TopOil), n))
		}
		if err := checkFinite("top_oil", p.TopOil); err != nil {
			return err
		}
	}

	for t := 1; t < n; t++ {
		if dt := minutes(p.Timestamps[t].Sub(p.Timestamps[t-1])); !(dt > 0) {
			return &InvalidTimestepError{Step: t, Dt: dt}
		}
	}
	return nil
}

// Deltas returns the interval ending at each sample, in minutes. The first entry is 0.
func (p Profile) Deltas() []float64 {
	out := make([]float64, len(p.Timestamps))
	for t := 1; t < len(p.Timestamps); t++ {
		out[t] = minutes(p.Timestamps[t].Sub(p.Timestamps[t-1]))
	}
	return out
}

// loadFractions returns K per winding at sample t under the parameter set s.
func (p *Profile) loadFractions(s *Specifications, t int) [NumWindings]float64 {
	var k [NumWindings]float64
	if s.Category != ThreeWindingTransformer {
		k[0] = p.fraction(p.Load[t], s.NomLoadSecSide)
		return k
	}
	for i := 0; i < NumWindings; i++ {
		k[i] = p.fraction(p.WindingLoad[i][t], s.windings[i].NomLoad)
	}
	return k
}

func (p *Profile) fraction(load, nominal float64) float64 {
	if p.Unit == Fraction {
		return load
	}
	return load / nominal
}

func minutes(d time.Duration) float64 {
	return d.Minutes()
}

func lengthReason(got, want int) string {
	return fmt.Sprintf("length %d does not match %d timestamps", got, want)
}

func checkLoad(field string, load []float64) error {
	for i, v := range load {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return inputErr(field, i, "load must be a finite number")
		}
		if v < 0 {
			return inputErr(field, i, "load must not be negative")
		}
	}
	return nil
}

func checkFinite(field string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return inputErr(field, i, "value must be a finite number")
		}
	}
	return nil
}
