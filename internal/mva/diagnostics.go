package mva

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Diagnostics summarises one Run: how much of the zone's DEM sampling
// fell on no-data, and the distribution of terrain elevation angles
// observed across all rays. These counters are not part of the
// correctness contract; they exist to let an operator judge whether a
// zone's DEM coverage was good enough to trust.
type Diagnostics struct {
	NoDataFraction     float64
	MinElevationAngle  float64
	MeanElevationAngle float64
	MaxElevationAngle  float64
	P50ElevationAngle  float64
	P95ElevationAngle  float64
}

type diagAccumulator struct {
	noData  int
	total   int
	samples []float64
}

func newDiagAccumulator() *diagAccumulator {
	return &diagAccumulator{}
}

func (a *diagAccumulator) merge(r rayDiag) {
	a.noData += r.noData
	a.total += r.rays
	a.samples = append(a.samples, r.samples...)
}

func (a *diagAccumulator) finalize(totalSamples int) Diagnostics {
	var d Diagnostics
	if a.total > 0 {
		d.NoDataFraction = float64(a.noData) / float64(a.total)
	}
	if len(a.samples) > 0 {
		sort.Float64s(a.samples)
		d.MinElevationAngle = a.samples[0]
		d.MaxElevationAngle = a.samples[len(a.samples)-1]
		d.MeanElevationAngle = stat.Mean(a.samples, nil)
		d.P50ElevationAngle = stat.Quantile(0.5, stat.Empirical, a.samples, nil)
		d.P95ElevationAngle = stat.Quantile(0.95, stat.Empirical, a.samples, nil)
	}
	return d
}
