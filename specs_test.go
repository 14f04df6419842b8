package thermalcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	tests := []struct {
		category Category
		cooler   CoolerType
		want     DefaultSpecifications
	}{
		{PowerTransformer, ONAN, powerONANDefaults},
		{PowerTransformer, ONAF, powerONAFDefaults},
		{ThreeWindingTransformer, ONAF, powerONAFDefaults},
		{DistributionTransformer, ONAN, distributionONANDefaults},
	}
	for _, tt := range tests {
		t.Run(tt.category.String()+"/"+tt.cooler.String(), func(t *testing.T) {
			got, err := Defaults(tt.category, tt.cooler)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Defaults(DistributionTransformer, ONAF)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolveTakesDefaults(t *testing.T) {
	specs := mustResolve(t, PowerTransformer, ONAF, defaultUser())

	assert.Equal(t, 150.0, specs.TimeConstOil)
	assert.Equal(t, 7.0, specs.TimeConstWindings)
	assert.Equal(t, 60.0, specs.TopOilTempRise)
	assert.Equal(t, 17.0, specs.WindingOilGradient)
	assert.Equal(t, 1.3, specs.HotSpotFactor)
	assert.Equal(t, 0.5, specs.OilConstK11)
	assert.Equal(t, 0.0, specs.EndTempReduction)
	assert.Equal(t, 1500.0, specs.NomLoadSecSide)

	dist := mustResolve(t, DistributionTransformer, ONAN, defaultUser())
	assert.Equal(t, 180.0, dist.TimeConstOil)
	assert.Equal(t, 1.6, dist.WindingExpY)
	assert.Equal(t, 1.0, dist.WindingConstK21)
}

func TestResolveOverrides(t *testing.T) {
	user := defaultUser()
	user.TopOilTempRise = Float(51.3)
	user.WindingOilGradient = Float(22.6)
	user.HotSpotFactor = Float(1.15)
	user.EndTempReduction = Float(2)
	user.OilExpX = Float(0)

	specs := mustResolve(t, PowerTransformer, ONAN, user)
	assert.Equal(t, 51.3, specs.TopOilTempRise)
	assert.Equal(t, 22.6, specs.WindingOilGradient)
	assert.Equal(t, 1.15, specs.HotSpotFactor)
	assert.Equal(t, 2.0, specs.EndTempReduction)
	assert.Equal(t, 0.0, specs.OilExpX, "an explicit zero is kept")
	assert.Equal(t, 210.0, specs.TimeConstOil)

	// The defaults tables are not touched by overrides.
	assert.Equal(t, 60.0, powerONANDefaults.TopOilTempRise)
}

func TestResolveRejects(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		cooler   CoolerType
		edit     func(*UserSpecifications)
		field    string
	}{
		{"missing nominal load", PowerTransformer, ONAF, func(u *UserSpecifications) { u.NomLoadSecSide = 0 }, "nom_load_sec_side"},
		{"negative load loss", PowerTransformer, ONAF, func(u *UserSpecifications) { u.LoadLoss = Float(-1) }, "load_loss"},
		{"negative no-load loss", DistributionTransformer, ONAN, func(u *UserSpecifications) { u.NoLoadLoss = Float(-5) }, "no_load_loss"},
		{"zero oil time constant", PowerTransformer, ONAN, func(u *UserSpecifications) { u.TimeConstOil = Float(0) }, "time_const_oil"},
		{"zero hot-spot factor", PowerTransformer, ONAF, func(u *UserSpecifications) { u.HotSpotFactor = Float(0) }, "hot_spot_fac"},
		{"nan surcharge", PowerTransformer, ONAF, func(u *UserSpecifications) { u.AmbTempSurcharge = Float(math.NaN()) }, "amb_temp_surcharge"},
		{"infinite rise", PowerTransformer, ONAF, func(u *UserSpecifications) { u.TopOilTempRise = Float(math.Inf(1)) }, "top_oil_temp_rise"},
		{"missing load loss", PowerTransformer, ONAF, func(u *UserSpecifications) { u.LoadLoss = nil }, "load_loss"},
		{"missing no-load loss", PowerTransformer, ONAN, func(u *UserSpecifications) { u.NoLoadLoss = nil }, "no_load_loss"},
		{"missing surcharge", DistributionTransformer, ONAN, func(u *UserSpecifications) { u.AmbTempSurcharge = nil }, "amb_temp_surcharge"},
		{"distribution with fans", DistributionTransformer, ONAF, func(*UserSpecifications) {}, "cooler"},
		{"three-winding without windings", ThreeWindingTransformer, ONAF, func(*UserSpecifications) {}, "three_winding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := defaultUser()
			tt.edit(&user)
			_, err := Resolve(tt.category, tt.cooler, user)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestParseNames(t *testing.T) {
	for _, c := range []Category{PowerTransformer, DistributionTransformer, ThreeWindingTransformer} {
		got, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	for _, c := range []CoolerType{ONAN, ONAF} {
		got, err := ParseCoolerType(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	for _, i := range []InsulationType{NormalPaper, ThermallyUpgradedPaper} {
		got, err := ParseInsulationType(i.String())
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}

	cooler, err := ParseCoolerType(" onan ")
	require.NoError(t, err)
	assert.Equal(t, ONAN, cooler)

	_, err = ParseCategory("autotransformer")
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = ParseCoolerType("OFAF")
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = ParseInsulationType("kraft")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestLossRatio(t *testing.T) {
	specs := mustResolve(t, PowerTransformer, ONAF, defaultUser())
	assert.Equal(t, 5.0, specs.LossRatio())

	user := defaultUser()
	user.NoLoadLoss = Float(0)
	specs = mustResolve(t, PowerTransformer, ONAF, user)
	assert.True(t, math.IsInf(specs.LossRatio(), 1))
}

func TestInternalTemperature(t *testing.T) {
	power := mustResolve(t, PowerTransformer, ONAF, defaultUser())
	dist := mustResolve(t, DistributionTransformer, ONAN, defaultUser())

	assert.Equal(t, 35.0, power.InternalTemperature(15))
	assert.Equal(t, 15.0, dist.InternalTemperature(15))
}

func TestWithHotSpotFactor(t *testing.T) {
	specs := mustResolve(t, PowerTransformer, ONAF, defaultUser())
	changed := specs.WithHotSpotFactor(1.1)

	assert.Equal(t, 1.1, changed.HotSpotFactor)
	assert.Equal(t, 1.3, specs.HotSpotFactor)
	assert.Equal(t, 1.1, changed.Windings()[0].HotSpotFactor)
}
