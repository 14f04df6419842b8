package thermalcore

import (
	"fmt"
	"math"
	"strings"
)

// Category selects the defaults table and the equations of a transformer.
type Category int

const (
	PowerTransformer Category = iota
	DistributionTransformer
	ThreeWindingTransformer
)

func (c Category) String() string {
	switch c {
	case PowerTransformer:
		return "power"
	case DistributionTransformer:
		return "distribution"
	case ThreeWindingTransformer:
		return "three-winding"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseCategory accepts the names printed by Category.String.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "power", "":
		return PowerTransformer, nil
	case "distribution":
		return DistributionTransformer, nil
	case "three-winding", "threewinding", "three_winding":
		return ThreeWindingTransformer, nil
	}
	return 0, &ConfigurationError{Field: "category", Value: math.NaN(), Reason: fmt.Sprintf("unknown category %q", s)}
}

// CoolerType is the cooling mode: natural oil with natural or forced air.
type CoolerType int

const (
	ONAN CoolerType = iota
	ONAF
)

func (c CoolerType) String() string {
	switch c {
	case ONAN:
		return "ONAN"
	case ONAF:
		return "ONAF"
	}
	return fmt.Sprintf("CoolerType(%d)", int(c))
}

// ParseCoolerType accepts ONAN and ONAF in any case.
func ParseCoolerType(s string) (CoolerType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ONAN":
		return ONAN, nil
	case "ONAF", "":
		return ONAF, nil
	}
	return 0, &ConfigurationError{Field: "cooler", Value: math.NaN(), Reason: fmt.Sprintf("unknown cooler type %q", s)}
}

// DefaultSpecifications is one column of IEC 60076-7 Table 4.
type DefaultSpecifications struct {
	TimeConstOil       float64
	TimeConstWindings  float64
	TopOilTempRise     float64
	WindingOilGradient float64
	HotSpotFactor      float64
	OilConstK11        float64
	WindingConstK21    float64
	WindingConstK22    float64
	OilExpX            float64
	WindingExpY        float64
	EndTempReduction   float64
}

var (
	powerONANDefaults = DefaultSpecifications{
		TimeConstOil:       210,
		TimeConstWindings:  10,
		TopOilTempRise:     60,
		WindingOilGradient: 17,
		HotSpotFactor:      1.3,
		OilConstK11:        0.5,
		WindingConstK21:    2,
		WindingConstK22:    2,
		OilExpX:            0.8,
		WindingExpY:        1.3,
	}
	powerONAFDefaults = DefaultSpecifications{
		TimeConstOil:       150,
		TimeConstWindings:  7,
		TopOilTempRise:     60,
		WindingOilGradient: 17,
		HotSpotFactor:      1.3,
		OilConstK11:        0.5,
		WindingConstK21:    2,
		WindingConstK22:    2,
		OilExpX:            0.8,
		WindingExpY:        1.3,
	}
	distributionONANDefaults = DefaultSpecifications{
		TimeConstOil:       180,
		TimeConstWindings:  4,
		TopOilTempRise:     60,
		WindingOilGradient: 23,
		HotSpotFactor:      1.2,
		OilConstK11:        1.0,
		WindingConstK21:    1,
		WindingConstK22:    2,
		OilExpX:            0.8,
		WindingExpY:        1.6,
	}
)

// Defaults returns the standard constants for a category and cooler.
// Distribution transformers only exist with natural cooling.
func Defaults(category Category, cooler CoolerType) (DefaultSpecifications, error) {
	switch category {
	case PowerTransformer, ThreeWindingTransformer:
		switch cooler {
		case ONAN:
			return powerONANDefaults, nil
		case ONAF:
			return powerONAFDefaults, nil
		}
	case DistributionTransformer:
		if cooler == ONAN {
			return distributionONANDefaults, nil
		}
		return DefaultSpecifications{}, &ConfigurationError{
			Field: "cooler", Value: float64(cooler), Reason: "distribution transformers only support ONAN cooling",
		}
	default:
		return DefaultSpecifications{}, configErr("category", float64(category), "unknown transformer category")
	}
	return DefaultSpecifications{}, configErr("cooler", float64(cooler), "unknown cooler type")
}

// UserSpecifications is what a caller knows about a transformer. The losses,
// the nominal current and the surcharge are mandatory; the load loss and the
// current of a three-winding transformer come from its windings instead.
// The other nil pointers take the category default.
type UserSpecifications struct {
	LoadLoss         *float64 // W
	NoLoadLoss       *float64 // W
	NomLoadSecSide   float64  // A
	AmbTempSurcharge *float64 // K

	TopOilTempRise     *float64
	WindingOilGradient *float64
	HotSpotFactor      *float64
	TimeConstOil       *float64
	TimeConstWindings  *float64
	OilConstK11        *float64
	WindingConstK21    *float64
	WindingConstK22    *float64
	OilExpX            *float64
	WindingExpY        *float64
	EndTempReduction   *float64

	// ThreeWinding is required for ThreeWindingTransformer and ignored otherwise.
	ThreeWinding *UserThreeWinding
}

// Float returns a pointer to v, for filling optional specification fields.
func Float(v float64) *float64 {
	return &v
}

// Specifications is the fully resolved parameter set of one transformer.
// It is a value: copies are independent and safe to share between runs.
type Specifications struct {
	Category Category
	Cooler   CoolerType

	LoadLoss         float64
	NoLoadLoss       float64
	NomLoadSecSide   float64
	AmbTempSurcharge float64

	TopOilTempRise     float64
	WindingOilGradient float64
	HotSpotFactor      float64
	TimeConstOil       float64
	TimeConstWindings  float64
	OilConstK11        float64
	WindingConstK21    float64
	WindingConstK22    float64
	OilExpX            float64
	WindingExpY        float64
	EndTempReduction   float64

	// Three-winding only.
	LoadLossTotal float64
	windings      [NumWindings]Winding
}

// Resolve merges user input with the defaults of the category and validates the result.
func Resolve(category Category, cooler CoolerType, user UserSpecifications) (Specifications, error) {
	def, err := Defaults(category, cooler)
	if err != nil {
		return Specifications{}, err
	}

	if err := checkRequired(category, user); err != nil {
		return Specifications{}, err
	}

	pick := func(v *float64, d float64) float64 {
		if v != nil {
			return *v
		}
		return d
	}

	s := Specifications{
		Category:           category,
		Cooler:             cooler,
		LoadLoss:           pick(user.LoadLoss, 0),
		NoLoadLoss:         *user.NoLoadLoss,
		NomLoadSecSide:     user.NomLoadSecSide,
		AmbTempSurcharge:   *user.AmbTempSurcharge,
		TopOilTempRise:     pick(user.TopOilTempRise, def.TopOilTempRise),
		WindingOilGradient: pick(user.WindingOilGradient, def.WindingOilGradient),
		HotSpotFactor:      pick(user.HotSpotFactor, def.HotSpotFactor),
		TimeConstOil:       pick(user.TimeConstOil, def.TimeConstOil),
		TimeConstWindings:  pick(user.TimeConstWindings, def.TimeConstWindings),
		OilConstK11:        pick(user.OilConstK11, def.OilConstK11),
		WindingConstK21:    pick(user.WindingConstK21, def.WindingConstK21),
		WindingConstK22:    pick(user.WindingConstK22, def.WindingConstK22),
		OilExpX:            pick(user.OilExpX, def.OilExpX),
		WindingExpY:        pick(user.WindingExpY, def.WindingExpY),
		EndTempReduction:   pick(user.EndTempReduction, def.EndTempReduction),
	}

	if category == ThreeWindingTransformer {
		if user.ThreeWinding == nil {
			return Specifications{}, configErr("three_winding", math.NaN(), "winding specifications are required for a three-winding transformer")
		}
		if err := s.resolveWindings(*user.ThreeWinding); err != nil {
			return Specifications{}, err
		}
	}

	if err := s.Validate(); err != nil {
		return Specifications{}, err
	}
	return s, nil
}

// checkRequired reports the first mandatory field left out by the caller.
func checkRequired(category Category, user UserSpecifications) error {
	type field struct {
		name  string
		value *float64
	}
	var fields []field
	if category != ThreeWindingTransformer {
		fields = append(fields, field{"load_loss", user.LoadLoss})
	}
	fields = append(fields,
		field{"no_load_loss", user.NoLoadLoss},
		field{"amb_temp_surcharge", user.AmbTempSurcharge},
	)
	for _, f := range fields {
		if f.value == nil {
			return configErr(f.name, math.NaN(), "is required")
		}
	}
	return nil
}

// Validate checks the physical ranges of every resolved field.
func (s Specifications) Validate() error {
	checks := []struct {
		field string
		value float64
		ok    bool
		why   string
	}{
		{"load_loss", s.LoadLoss, s.LoadLoss >= 0, "must not be negative"},
		{"no_load_loss", s.NoLoadLoss, s.NoLoadLoss >= 0, "must not be negative"},
		{"amb_temp_surcharge", s.AmbTempSurcharge, true, ""},
		{"top_oil_temp_rise", s.TopOilTempRise, s.TopOilTempRise >= 0, "must not be negative"},
		{"winding_oil_gradient", s.WindingOilGradient, s.WindingOilGradient >= 0, "must not be negative"},
		{"hot_spot_fac", s.HotSpotFactor, s.HotSpotFactor > 0, "must be positive"},
		{"time_const_oil", s.TimeConstOil, s.TimeConstOil > 0, "must be positive"},
		{"time_const_windings", s.TimeConstWindings, s.TimeConstWindings > 0, "must be positive"},
		{"oil_const_k11", s.OilConstK11, s.OilConstK11 > 0, "must be positive"},
		{"winding_const_k21", s.WindingConstK21, s.WindingConstK21 > 0, "must be positive"},
		{"winding_const_k22", s.WindingConstK22, s.WindingConstK22 > 0, "must be positive"},
		{"oil_exp_x", s.OilExpX, s.OilExpX >= 0, "must not be negative"},
		{"winding_exp_y", s.WindingExpY, s.WindingExpY >= 0, "must not be negative"},
		{"end_temp_reduction", s.EndTempReduction, true, ""},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return configErr(c.field, c.value, "must be a finite number")
		}
		if !c.ok {
			return configErr(c.field, c.value, c.why)
		}
	}

	if s.Category == ThreeWindingTransformer {
		return s.validateWindings()
	}
	if !(s.NomLoadSecSide > 0) || math.IsInf(s.NomLoadSecSide, 0) {
		return configErr("nom_load_sec_side", s.NomLoadSecSide, "is missing or not positive")
	}
	return nil
}

// WithHotSpotFactor returns a copy with H replaced on the transformer and on every winding.
func (s Specifications) WithHotSpotFactor(h float64) Specifications {
	s.HotSpotFactor = h
	for i := range s.windings {
		s.windings[i].HotSpotFactor = h
	}
	return s
}

// LossRatio is R, the load loss over the no-load loss.
func (s Specifications) LossRatio() float64 {
	if s.NoLoadLoss == 0 {
		return math.Inf(1)
	}
	return s.LoadLoss / s.NoLoadLoss
}

// InternalTemperature is the temperature the oil rise is added to.
// Distribution transformers carry the surcharge in the rise instead.
func (s *Specifications) InternalTemperature(ambient float64) float64 {
	if s.Category == DistributionTransformer {
		return ambient
	}
	return ambient + s.AmbTempSurcharge
}

func (s *Specifications) windingCount() int {
	if s.Category == ThreeWindingTransformer {
		return NumWindings
	}
	return 1
}

// winding returns the i-th winding. A two-winding transformer is a single
// winding built from the transformer-level fields.
func (s *Specifications) winding(i int) Winding {
	if s.Category == ThreeWindingTransformer {
		return s.windings[i]
	}
	return Winding{
		NomLoad:            s.NomLoadSecSide,
		WindingOilGradient: s.WindingOilGradient,
		HotSpotFactor:      s.HotSpotFactor,
		TimeConstWindings:  s.TimeConstWindings,
		Loss:               s.LoadLoss,
	}
}

// totalLoss is the denominator of the loss ratio at rated load.
func (s *Specifications) totalLoss() float64 {
	if s.Category == ThreeWindingTransformer {
		return s.LoadLossTotal
	}
	return s.NoLoadLoss + s.LoadLoss
}
