package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armsdash/internal/models"
)

func arcBySupplier(t *testing.T, fm models.FlowMap, name string) models.Arc {
	t.Helper()
	for _, a := range fm.Arcs {
		if a.Supplier == name {
			return a
		}
	}
	t.Fatalf("no arc for %s", name)
	return models.Arc{}
}

func TestFlowMapScaling(t *testing.T) {
	ds := loadSample(t)

	fm := ds.Dashboard(PeriodFullScale, DefaultAggregateOptions()).Map
	require.Len(t, fm.Arcs, 3)

	// Smallest TIV gets the base colour and minimum width.
	pl := arcBySupplier(t, fm, "Poland")
	assert.Equal(t, 150.0, pl.TIV)
	assert.Equal(t, 0.0, pl.Intensity)
	assert.InDelta(t, 0.5, pl.Width, 1e-9)
	assert.Equal(t, [3]int{65, 105, 225}, pl.Color)
	assert.Equal(t, "Warsaw", pl.Capital)

	// Largest TIV gets the high colour and maximum width.
	us := arcBySupplier(t, fm, "United States")
	assert.Equal(t, 700.0, us.TIV)
	assert.Equal(t, "700.00", us.TIVStr)
	assert.Equal(t, 1.0, us.Intensity)
	assert.InDelta(t, 10.0, us.Width, 1e-9)
	assert.Equal(t, [3]int{0, 128, 128}, us.Color)
	assert.InDelta(t, math.Log10(700), us.LogTIV, 1e-12)

	de := arcBySupplier(t, fm, "Germany")
	wantT := (math.Log10(240) - math.Log10(150)) / (math.Log10(700) - math.Log10(150))
	assert.InDelta(t, wantT, de.Intensity, 1e-12)
	assert.InDelta(t, 0.5+9.5*math.Pow(wantT, 3), de.Width, 1e-9)
	assert.Equal(t, int(65-65*wantT), de.Color[0])

	for _, a := range fm.Arcs {
		assert.Equal(t, 50.4501, a.TargetLat)
		assert.Equal(t, 30.5234, a.TargetLon)
	}
	assert.Equal(t, "Kyiv", fm.Target.Capital)
	assert.Equal(t, MapStyleLight, fm.Style)
}

func TestFlowMapDegenerate(t *testing.T) {
	opts := DefaultFlowOptions()

	t.Run("single supplier", func(t *testing.T) {
		fm := buildFlowMap([]supplierFlow{{Supplier: "Poland", TIV: 150}}, opts)
		require.Len(t, fm.Arcs, 1)
		assert.Equal(t, 0.0, fm.Arcs[0].Intensity)
		assert.InDelta(t, opts.WidthMin, fm.Arcs[0].Width, 1e-9)
	})

	t.Run("zero tiv", func(t *testing.T) {
		// log10(0) is -Inf. It is left out of the min/max range so one empty
		// supplier does not flatten every other arc to zero.
		fm := buildFlowMap([]supplierFlow{
			{Supplier: "Estonia", TIV: 0},
			{Supplier: "Latvia", TIV: 10},
			{Supplier: "Norway", TIV: 1000},
		}, opts)
		ee := arcBySupplier(t, fm, "Estonia")
		assert.Equal(t, 0.0, ee.Intensity)
		assert.Equal(t, 0.0, ee.LogTIV)
		assert.Equal(t, 1.0, arcBySupplier(t, fm, "Norway").Intensity)
	})

	t.Run("arcs sorted by supplier", func(t *testing.T) {
		fm := buildFlowMap([]supplierFlow{{Supplier: "b", TIV: 1}, {Supplier: "a", TIV: 2}}, opts)
		assert.Equal(t, "a", fm.Arcs[0].Supplier)
	})
}

func TestNormalizeMapStyle(t *testing.T) {
	assert.Equal(t, MapStyleDark, NormalizeMapStyle("dark"))
	assert.Equal(t, MapStyleLight, NormalizeMapStyle("light"))
	assert.Equal(t, MapStyleLight, NormalizeMapStyle(""))
	assert.Equal(t, MapStyleLight, NormalizeMapStyle("satellite"))
}
