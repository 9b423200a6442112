package engine

import (
	"math"
	"sort"

	"armsdash/internal/models"
)

const (
	MapStyleLight = "light"
	MapStyleDark  = "dark"
)

// NormalizeMapStyle maps anything but "dark" to the light style.
func NormalizeMapStyle(style string) string {
	if style == MapStyleDark {
		return MapStyleDark
	}
	return MapStyleLight
}

type FlowOptions struct {
	TargetName    string
	TargetCapital string
	TargetLat     float64
	TargetLon     float64
	BaseColor     [3]int
	HighColor     [3]int
	WidthMin      float64
	WidthMax      float64
	Gamma         float64
	Style         string
}

func DefaultFlowOptions() FlowOptions {
	return FlowOptions{
		TargetName:    "Ukraine",
		TargetCapital: "Kyiv",
		TargetLat:     50.4501,
		TargetLon:     30.5234,
		BaseColor:     [3]int{65, 105, 225}, // royalblue
		HighColor:     [3]int{0, 128, 128},  // teal
		WidthMin:      0.5,
		WidthMax:      10,
		Gamma:         3,
		Style:         MapStyleLight,
	}
}

// supplierFlow is the per-supplier input of the arc layer.
type supplierFlow struct {
	Supplier string
	Capital  string
	Lat      float64
	Lon      float64
	TIV      float64
}

// buildFlowMap scales arcs on log10(TIV): width with gamma correction, colour
// as a linear blend between the base and high colours.
func buildFlowMap(flows []supplierFlow, opts FlowOptions) models.FlowMap {
	sort.Slice(flows, func(i, j int) bool { return flows[i].Supplier < flows[j].Supplier })

	logs := make([]float64, len(flows))
	minLog, maxLog := math.Inf(1), math.Inf(-1)
	for i, f := range flows {
		logs[i] = math.Log10(f.TIV)
		if math.IsNaN(logs[i]) || math.IsInf(logs[i], 0) {
			continue
		}
		minLog = math.Min(minLog, logs[i])
		maxLog = math.Max(maxLog, logs[i])
	}

	arcs := make([]models.Arc, len(flows))
	for i, f := range flows {
		t := normalize(logs[i], minLog, maxLog)
		logTIV := logs[i]
		if math.IsNaN(logTIV) || math.IsInf(logTIV, 0) {
			logTIV = 0
		}

		arcs[i] = models.Arc{
			Supplier:  f.Supplier,
			Capital:   f.Capital,
			SourceLat: f.Lat,
			SourceLon: f.Lon,
			TargetLat: opts.TargetLat,
			TargetLon: opts.TargetLon,
			TIV:       f.TIV,
			TIVStr:    FormatTIV(f.TIV),
			LogTIV:    logTIV,
			Intensity: t,
			Width:     opts.WidthMin + (opts.WidthMax-opts.WidthMin)*math.Pow(t, opts.Gamma),
			Color:     blend(opts.BaseColor, opts.HighColor, t),
		}
	}

	return models.FlowMap{
		Style: NormalizeMapStyle(opts.Style),
		View: models.ViewState{
			Latitude:  50,
			Longitude: 15,
			Zoom:      2.5,
			Pitch:     35,
			Bearing:   0,
		},
		Target: models.Point{
			Name:    opts.TargetName,
			Capital: opts.TargetCapital,
			Lat:     opts.TargetLat,
			Lon:     opts.TargetLon,
		},
		Arcs: arcs,
	}
}

// normalize maps v into [0, 1]; undefined results (empty range, non-finite v) become 0.
func normalize(v, lo, hi float64) float64 {
	t := (v - lo) / (hi - lo)
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}
	return math.Max(0, math.Min(1, t))
}

func blend(base, high [3]int, t float64) [3]int {
	var c [3]int
	for i := range c {
		c[i] = int(float64(base[i]) + float64(high[i]-base[i])*t)
	}
	return c
}
