package thermalcore

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// InsulationType selects the aging rate equation.
type InsulationType int

const (
	NormalPaper InsulationType = iota
	ThermallyUpgradedPaper
)

func (i InsulationType) String() string {
	switch i {
	case NormalPaper:
		return "normal"
	case ThermallyUpgradedPaper:
		return "thermally-upgraded"
	}
	return fmt.Sprintf("InsulationType(%d)", int(i))
}

// ParseInsulationType accepts the names printed by InsulationType.String.
// An empty name means normal paper.
func ParseInsulationType(s string) (InsulationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "":
		return NormalPaper, nil
	case "thermally-upgraded", "upgraded", "thermally_upgraded":
		return ThermallyUpgradedPaper, nil
	}
	return 0, &ConfigurationError{Field: "paper", Value: math.NaN(), Reason: fmt.Sprintf("unknown insulation type %q", s)}
}

const minutesPerDay = 24 * 60

// Reference hot-spot temperatures (°C) at which the aging rate is 1.
const (
	normalPaperReference   = 98.0
	upgradedPaperReference = 110.0
)

// AgingRate is the relative aging rate V at hot-spot temperature theta (°C).
// V is 1 at 98 °C for normal paper and at 110 °C for upgraded paper.
func AgingRate(theta float64, insulation InsulationType) float64 {
	if insulation == ThermallyUpgradedPaper {
		return math.Exp(15000/(upgradedPaperReference+273) - 15000/(theta+273))
	}
	return math.Pow(2, (theta-normalPaperReference)/6)
}

func AgingRates(hotSpot []float64, insulation InsulationType) []float64 {
	out := make([]float64, len(hotSpot))
	for i, theta := range hotSpot {
		out[i] = AgingRate(theta, insulation)
	}
	return out
}

// DaysAged integrates the aging rate over the profile. Each rate weighs the
// interval ending at its sample, so the first sample contributes nothing.
func DaysAged(rates []float64, timestamps []time.Time) (float64, error) {
	if len(rates) != len(timestamps) {
		return 0, inputErr("aging_rate", -1, lengthReason(len(rates), len(timestamps)))
	}
	if len(rates) == 0 {
		return 0, nil
	}
	p := Profile{Timestamps: timestamps}
	return floats.Dot(rates, p.Deltas()) / minutesPerDay, nil
}
