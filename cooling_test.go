package thermalcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func switchingSpecs(t *testing.T) (Specifications, ONANParameters) {
	t.Helper()
	user := defaultUser()
	user.AmbTempSurcharge = Float(0)
	user.WindingOilGradient = Float(25)
	user.HotSpotFactor = Float(1.1)
	specs := mustResolve(t, PowerTransformer, ONAF, user)

	onan := ONANParameters{
		NomLoadSecSide:     Float(1000),
		LoadLoss:           Float(1000),
		TopOilTempRise:     Float(65),
		WindingOilGradient: Float(23),
		HotSpotFactor:      Float(1.2),
		TimeConstOil:       Float(210),
		TimeConstWindings:  Float(10),
	}
	return specs, onan
}

func TestCoolingParameters(t *testing.T) {
	specs, onan := switchingSpecs(t)
	policy := Threshold(70, 62, onan)

	got := policy.Parameters(specs, ONAN)
	assert.Equal(t, ONAN, got.Cooler)
	assert.Equal(t, 1000.0, got.NomLoadSecSide)
	assert.Equal(t, 65.0, got.TopOilTempRise)
	assert.Equal(t, 23.0, got.WindingOilGradient)
	assert.Equal(t, 1.2, got.HotSpotFactor)
	assert.Equal(t, 210.0, got.TimeConstOil)
	assert.Equal(t, 10.0, got.TimeConstWindings)
	assert.Equal(t, specs.NoLoadLoss, got.NoLoadLoss)
	assert.Equal(t, specs.OilConstK11, got.OilConstK11)

	assert.Equal(t, specs, policy.Parameters(specs, ONAF))
	assert.Equal(t, specs, Fixed().Parameters(specs, ONAN))
}

func TestCoolingParametersKeepOmittedValues(t *testing.T) {
	specs, _ := switchingSpecs(t)
	policy := Threshold(70, 62, ONANParameters{TopOilTempRise: Float(65)})
	require.NoError(t, policy.Validate(specs))

	got := policy.Parameters(specs, ONAN)
	assert.Equal(t, 65.0, got.TopOilTempRise)
	assert.Equal(t, specs.LoadLoss, got.LoadLoss, "an omitted load loss keeps the ONAF value")
	assert.Equal(t, specs.NomLoadSecSide, got.NomLoadSecSide)
	assert.Equal(t, specs.TimeConstOil, got.TimeConstOil)
	assert.Equal(t, specs.HotSpotFactor, got.HotSpotFactor)

	empty := Threshold(70, 62, ONANParameters{}).Parameters(specs, ONAN)
	specs.Cooler = ONAN
	assert.Equal(t, specs, empty)
}

func TestCoolingInitialMode(t *testing.T) {
	_, onan := switchingSpecs(t)

	assert.Equal(t, ONAF, Fixed().InitialMode(ONAF, 100))
	assert.Equal(t, ONAN, Threshold(85, 75, onan).InitialMode(ONAF, 20))
	assert.Equal(t, ONAF, Threshold(85, 75, onan).InitialMode(ONAF, 90))
	assert.Equal(t, ONAN, Scheduled([]bool{false, true}, onan).InitialMode(ONAF, 90))
	assert.Equal(t, ONAF, Scheduled([]bool{true, false}, onan).InitialMode(ONAF, 20))
}

func TestCoolingNextMode(t *testing.T) {
	_, onan := switchingSpecs(t)
	policy := Threshold(70, 60, onan)

	tests := []struct {
		name      string
		current   CoolerType
		prev, cur float64
		want      CoolerType
	}{
		{"crosses activation", ONAN, 69, 70, ONAF},
		{"stays below activation", ONAN, 65, 69.9, ONAN},
		{"already above", ONAN, 71, 72, ONAN},
		{"crosses deactivation", ONAF, 61, 60, ONAN},
		{"inside the band", ONAF, 65, 63, ONAF},
		{"rising through deactivation", ONAN, 59, 61, ONAN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.NextMode(5, tt.current, tt.prev, tt.cur))
		})
	}

	schedule := Scheduled([]bool{false, true, false}, onan)
	assert.Equal(t, ONAF, schedule.NextMode(1, ONAN, 0, 0))
	assert.Equal(t, ONAN, schedule.NextMode(2, ONAF, 0, 0))
	assert.Equal(t, ONAN, schedule.NextMode(3, ONAN, 0, 0), "past the schedule the mode is kept")
}

func TestCoolingValidate(t *testing.T) {
	specs, onan := switchingSpecs(t)

	onanSpecs := mustResolve(t, PowerTransformer, ONAN, defaultUser())
	distribution := mustResolve(t, DistributionTransformer, ONAN, defaultUser())

	bad := onan
	bad.TimeConstOil = Float(0)

	tests := []struct {
		name   string
		policy CoolingPolicy
		specs  Specifications
		field  string
	}{
		{"onan transformer", Scheduled([]bool{true}, onan), onanSpecs, "cooling_switch"},
		{"distribution transformer", Threshold(70, 60, onan), distribution, "cooling_switch"},
		{"inverted band", Threshold(60, 70, onan), specs, "cooling_switch.activation_temp"},
		{"equal band", Threshold(60, 60, onan), specs, "cooling_switch.activation_temp"},
		{"empty schedule", Scheduled(nil, onan), specs, "cooling_switch.fan_on"},
		{"bad onan parameters", Threshold(70, 60, bad), specs, "time_const_oil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(tt.specs)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}

	assert.NoError(t, Fixed().Validate(onanSpecs))
	assert.NoError(t, Threshold(70, 60, onan).Validate(specs))
}

func TestRunScheduledSwitching(t *testing.T) {
	specs, onan := switchingSpecs(t)

	n := 120
	fanOn := make([]bool, n)
	for i := 50; i < 80; i++ {
		fanOn[i] = true
	}
	p := NewProfile(timestamps(n, 15*time.Minute), constant(n, 1100), constant(n, 20))

	out := mustRun(t, specs, ModelOptions{Cooling: Scheduled(fanOn, onan)}, p)
	for i, on := range fanOn {
		assert.Equal(t, fanMode(on), out.Mode[i], "sample %d", i)
	}
	// Fans on cool the oil, fans off heat it again.
	assert.Greater(t, out.TopOil[49], out.TopOil[60])
	assert.Less(t, out.TopOil[79], out.TopOil[100])

	t.Run("schedule length", func(t *testing.T) {
		m, err := NewModel(specs, ModelOptions{Cooling: Scheduled(fanOn[:10], onan)})
		require.NoError(t, err)
		_, err = m.Run(p)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestRunScheduledAlwaysOnMatchesFixed(t *testing.T) {
	specs, onan := switchingSpecs(t)
	n := 64
	p := NewProfile(timestamps(n, 15*time.Minute), constant(n, 1100), constant(n, 20))

	fanOn := make([]bool, n)
	for i := range fanOn {
		fanOn[i] = true
	}
	switched := mustRun(t, specs, ModelOptions{Cooling: Scheduled(fanOn, onan)}, p)
	fixed := mustRun(t, specs, ModelOptions{}, p)
	assert.Equal(t, fixed.TopOil, switched.TopOil)
	assert.Equal(t, fixed.HotSpot, switched.HotSpot)
}

func TestRunThresholdSwitching(t *testing.T) {
	specs, onan := switchingSpecs(t)
	const activation, deactivation = 70.0, 62.0

	n := 200
	p := NewProfile(timestamps(n, 15*time.Minute), constant(n, 1100), constant(n, 20))
	out := mustRun(t, specs, ModelOptions{Cooling: Threshold(activation, deactivation, onan)}, p)

	// Cold start below activation runs with fans off, then the oil heats
	// up until the fans kick in one step after the crossing.
	assert.Equal(t, ONAN, out.Mode[0])
	assert.Equal(t, ONAN, out.Mode[8])
	assert.Equal(t, ONAF, out.Mode[9])
	assert.Less(t, out.TopOil[7], activation)
	assert.GreaterOrEqual(t, out.TopOil[8], activation)

	for i := 2; i < n; i++ {
		want := out.Mode[i-1]
		switch {
		case out.TopOil[i-2] < activation && activation <= out.TopOil[i-1]:
			want = ONAF
		case out.TopOil[i-2] > deactivation && deactivation >= out.TopOil[i-1]:
			want = ONAN
		}
		assert.Equal(t, want, out.Mode[i], "sample %d", i)
	}

	// The oil keeps cycling inside the band.
	for _, theta := range out.TopOil[40:] {
		assert.Greater(t, theta, 61.0)
		assert.Less(t, theta, 74.0)
	}
	switches := 0
	for i := 1; i < n; i++ {
		if out.Mode[i] != out.Mode[i-1] {
			switches++
		}
	}
	assert.Greater(t, switches, 10)
}
