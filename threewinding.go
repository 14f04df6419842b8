package thermalcore

import (
	"fmt"
	"math"
)

// WindingSide indexes the windings of a three-winding transformer.
type WindingSide int

const (
	LowVoltage WindingSide = iota
	MediumVoltage
	HighVoltage

	NumWindings = 3
)

func (w WindingSide) String() string {
	switch w {
	case LowVoltage:
		return "lv"
	case MediumVoltage:
		return "mv"
	case HighVoltage:
		return "hv"
	}
	return fmt.Sprintf("WindingSide(%d)", int(w))
}

// UserWinding is the nameplate data of one winding.
type UserWinding struct {
	NomLoad            float64 // A
	WindingOilGradient float64 // K
	HotSpotFactor      *float64
	TimeConstWindings  *float64
	NomPower           *float64 // MVA, only the ratios between windings matter
}

// UserThreeWinding holds the winding data and the three short-circuit
// measurements of a three-winding transformer.
type UserThreeWinding struct {
	LV, MV, HV UserWinding

	LoadLossHVLV float64
	LoadLossHVMV float64
	LoadLossMVLV float64

	// LoadLossTotal defaults to the no-load loss plus the star-equivalent winding losses.
	LoadLossTotal *float64
}

// Winding is a resolved winding. Loss is its star-equivalent load loss at rated current.
type Winding struct {
	NomLoad            float64
	WindingOilGradient float64
	HotSpotFactor      float64
	TimeConstWindings  float64
	NomPower           float64
	Loss               float64
}

// Windings returns the resolved windings, LV first. Two-winding
// transformers report a single winding.
func (s Specifications) Windings() []Winding {
	n := s.windingCount()
	out := make([]Winding, n)
	for i := 0; i < n; i++ {
		out[i] = s.winding(i)
	}
	return out
}

func (s *Specifications) resolveWindings(user UserThreeWinding) error {
	users := [NumWindings]UserWinding{user.LV, user.MV, user.HV}

	powers := 0
	for _, u := range users {
		if u.NomPower != nil {
			powers++
		}
	}
	if powers != 0 && powers != NumWindings {
		return configErr("nom_power", float64(powers), "give the nominal power of all three windings or of none")
	}

	for i, u := range users {
		w := Winding{
			NomLoad:            u.NomLoad,
			WindingOilGradient: u.WindingOilGradient,
			HotSpotFactor:      s.HotSpotFactor,
			TimeConstWindings:  s.TimeConstWindings,
			NomPower:           1,
		}
		if u.HotSpotFactor != nil {
			w.HotSpotFactor = *u.HotSpotFactor
		}
		if u.TimeConstWindings != nil {
			w.TimeConstWindings = *u.TimeConstWindings
		}
		if u.NomPower != nil {
			w.NomPower = *u.NomPower
			if !(w.NomPower > 0) {
				return configErr(WindingSide(i).String()+"_winding.nom_power", w.NomPower, "must be positive")
			}
		}
		s.windings[i] = w
	}

	for _, p := range []struct {
		field string
		value float64
	}{
		{"load_loss_hv_lv", user.LoadLossHVLV},
		{"load_loss_hv_mv", user.LoadLossHVMV},
		{"load_loss_mv_lv", user.LoadLossMVLV},
	} {
		if !(p.value >= 0) {
			return configErr(p.field, p.value, "must not be negative")
		}
	}

	losses := starLosses(user.LoadLossHVLV, user.LoadLossHVMV, user.LoadLossMVLV,
		[NumWindings]float64{s.windings[0].NomPower, s.windings[1].NomPower, s.windings[2].NomPower})

	s.LoadLoss = 0
	for i, l := range losses {
		if l < 0 {
			return configErr(WindingSide(i).String()+"_winding.loss", l, "star-equivalent load loss is negative, check the pairwise losses")
		}
		s.windings[i].Loss = l
		s.LoadLoss += l
	}

	s.LoadLossTotal = s.NoLoadLoss + s.LoadLoss
	if user.LoadLossTotal != nil {
		s.LoadLossTotal = *user.LoadLossTotal
	}
	return nil
}

// starLosses converts the pairwise short-circuit losses into one loss per
// winding. Each pair is measured at the power of its smaller winding, so it
// is first referred to unit power and scaled back per winding.
func starLosses(hvlv, hvmv, mvlv float64, power [NumWindings]float64) [NumWindings]float64 {
	lv, mv, hv := power[LowVoltage], power[MediumVoltage], power[HighVoltage]

	hvlv /= math.Pow(math.Min(hv, lv), 2)
	hvmv /= math.Pow(math.Min(hv, mv), 2)
	mvlv /= math.Pow(math.Min(mv, lv), 2)

	var out [NumWindings]float64
	out[LowVoltage] = 0.5 * (hvlv + mvlv - hvmv) * lv * lv
	out[MediumVoltage] = 0.5 * (hvmv + mvlv - hvlv) * mv * mv
	out[HighVoltage] = 0.5 * (hvlv + hvmv - mvlv) * hv * hv
	return out
}

func (s Specifications) validateWindings() error {
	for i := 0; i < NumWindings; i++ {
		w := s.windings[i]
		side := WindingSide(i).String()
		switch {
		case !(w.NomLoad > 0) || math.IsInf(w.NomLoad, 0):
			return configErr(side+"_winding.nom_load", w.NomLoad, "is missing or not positive")
		case !(w.WindingOilGradient >= 0):
			return configErr(side+"_winding.winding_oil_gradient", w.WindingOilGradient, "must not be negative")
		case !(w.HotSpotFactor > 0):
			return configErr(side+"_winding.hot_spot_fac", w.HotSpotFactor, "must be positive")
		case !(w.TimeConstWindings > 0):
			return configErr(side+"_winding.time_const_windings", w.TimeConstWindings, "must be positive")
		}
	}
	if !(s.LoadLossTotal > 0) {
		return configErr("load_loss_total", s.LoadLossTotal, "must be positive")
	}
	return nil
}
