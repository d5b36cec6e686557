// Package mva implements the radial-sweep Minimum-Visible-Altitude
// computation: for each cell of a sensor-centred AEQD DEM, the lowest
// MSL altitude at which that cell becomes visible from the sensor.
package mva

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/ridgeline-gis/viewshed/internal/raster"
)

// NMaxAzimuths is the hard cap on the number of azimuths swept per
// zone, independent of requested resolution.
const NMaxAzimuths = 14400

// Input bundles everything one MvaEngine.Run call needs for one
// (sensor, zone) unit of work.
type Input struct {
	// SensorHeightMslM is the sensor's effective height above MSL.
	SensorHeightMslM float64
	// EffectiveRadiusM is k*R_local for the sensor latitude.
	EffectiveRadiusM float64
	// Dem is the AEQD-reprojected DEM covering at least [RMinM, RMaxM].
	Dem *raster.AeqdRaster
	// RMinM, RMaxM bound the annulus being swept.
	RMinM, RMaxM float64
	// PixelSizeM is the zone's radial step and the output raster's
	// pixel size.
	PixelSizeM float64
	// StartingBoundary, if non-nil, must have length equal to the
	// azimuth count this call derives (see NumAzimuths) and seeds each
	// ray's running maximum elevation angle, continuing a previous
	// zone's sweep outward.
	StartingBoundary []float64
	// MaxWorkers bounds how many azimuths are swept concurrently; <=0
	// means unbounded (one goroutine per azimuth).
	MaxWorkers int
}

// Output is the result of one MvaEngine.Run call.
type Output struct {
	// Mva is a raster over the same grid as Input.Dem, in metres MSL,
	// with raster.MvaNeverVisible where no target altitude makes the
	// cell visible and NoData outside [RMinM, RMaxM].
	Mva *raster.AeqdRaster
	// FinalBoundary is the running maximum elevation angle (radians)
	// per azimuth at RMaxM, ready to seed a subsequent outward zone.
	FinalBoundary []float64
	// NumAzimuths is len(FinalBoundary).
	NumAzimuths int
	Diagnostics Diagnostics
}

// NumAzimuths chooses the sweep's azimuth count so arc length at rMax
// is approximately one pixel, capped at NMaxAzimuths.
func NumAzimuths(rMaxM, pixelSizeM float64) int {
	if rMaxM <= 0 || pixelSizeM <= 0 {
		return 1
	}
	n := int(math.Ceil(2 * math.Pi * rMaxM / pixelSizeM))
	if n < 1 {
		n = 1
	}
	if n > NMaxAzimuths {
		n = NMaxAzimuths
	}
	return n
}

// Run performs the polar radial sweep and rasterises the result back
// onto in.Dem's Cartesian grid, with no cancellation.
func (in Input) Run() (Output, error) {
	return in.RunContext(context.Background())
}

// RunContext is Run with cancellation: ctx is checked once per azimuth
// dispatched to the worker pool, so a cancelled run stops starting new
// rays promptly instead of running the outer loop to completion.
func (in Input) RunContext(ctx context.Context) (Output, error) {
	if err := in.validate(); err != nil {
		return Output{}, err
	}

	nAz := NumAzimuths(in.RMaxM, in.PixelSizeM)
	dr := in.PixelSizeM
	nR := int(math.Ceil((in.RMaxM - in.RMinM) / dr))
	if nR < 1 {
		nR = 1
	}

	if in.StartingBoundary != nil && len(in.StartingBoundary) != nAz {
		return Output{}, fmt.Errorf("mva: starting boundary length %d does not match derived azimuth count %d", len(in.StartingBoundary), nAz)
	}

	polarMva := make([][]float64, nAz)
	finalBoundary := make([]float64, nAz)
	diag := newDiagAccumulator()

	workers := in.MaxWorkers
	if workers <= 0 || workers > nAz {
		workers = nAz
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex

	worker := func() {
		defer wg.Done()
		for j := range jobs {
			ray, boundary, localDiag := in.sweepRay(j, nAz, nR, dr)
			polarMva[j] = ray
			finalBoundary[j] = boundary
			mu.Lock()
			diag.merge(localDiag)
			mu.Unlock()
		}
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go worker()
	}

dispatch:
	for j := 0; j < nAz; j++ {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- j:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	out := rasterizePolar(in.Dem, in.RMinM, in.RMaxM, dr, polarMva, nR)

	return Output{
		Mva:           out,
		FinalBoundary: finalBoundary,
		NumAzimuths:   nAz,
		Diagnostics:   diag.finalize(nAz * nR),
	}, nil
}

func (in Input) validate() error {
	for name, v := range map[string]float64{
		"SensorHeightMslM": in.SensorHeightMslM,
		"EffectiveRadiusM": in.EffectiveRadiusM,
		"RMinM":            in.RMinM,
		"RMaxM":            in.RMaxM,
		"PixelSizeM":       in.PixelSizeM,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("mva: %s is not finite: %v", name, v)
		}
	}
	if in.RMinM < 0 || in.RMaxM <= in.RMinM {
		return fmt.Errorf("mva: invalid zone bounds [%v, %v]", in.RMinM, in.RMaxM)
	}
	if in.PixelSizeM <= 0 {
		return fmt.Errorf("mva: pixel size must be positive, got %v", in.PixelSizeM)
	}
	if in.EffectiveRadiusM <= 0 {
		return fmt.Errorf("mva: effective radius must be positive, got %v", in.EffectiveRadiusM)
	}
	if in.Dem == nil {
		return fmt.Errorf("mva: dem raster is required")
	}
	return nil
}

// sweepRay walks one azimuth outward, tracking the running maximum
// elevation angle and computing the required MVA at each radial
// sample.
func (in Input) sweepRay(j, nAz, nR int, dr float64) (ray []float64, finalBoundary float64, d rayDiag) {
	az := float64(j) * 2 * math.Pi / float64(nAz)
	sinAz := math.Sin(az)
	cosAz := math.Cos(az)

	m := math.Inf(-1)
	if in.StartingBoundary != nil {
		m = in.StartingBoundary[j]
	} else if in.RMinM == 0 {
		m = math.Inf(-1)
	}

	ray = make([]float64, nR)

	for i := 0; i < nR; i++ {
		r := in.RMinM + float64(i)*dr

		if r == 0 {
			hGround := in.Dem.SampleBilinear(0, 0)
			if float64(hGround) == float64(in.Dem.NoData) {
				hGround = 0
				d.noData++
			}
			ray[i] = float64(hGround)
			d.accumulate(m)
			continue
		}

		x := r * sinAz
		y := r * cosAz
		hGround := in.Dem.SampleBilinear(x, y)
		noData := float64(hGround) == float64(in.Dem.NoData)
		if noData {
			hGround = 0
			d.noData++
		}
		d.rays++

		drop := r * r / (2 * in.EffectiveRadiusM)
		hEff := float64(hGround) + drop
		thetaTer := math.Atan((hEff - in.SensorHeightMslM) / r)
		if thetaTer > m {
			m = thetaTer
		}

		hReq := in.SensorHeightMslM + r*math.Tan(m) + drop
		if hReq < float64(hGround) {
			hReq = float64(hGround)
		}
		ray[i] = hReq
		d.accumulate(m)
	}

	return ray, m, d
}

// rasterizePolar maps each Cartesian cell within [rMin, rMax] to its
// nearest polar sample, preferring the inner candidate on ties.
func rasterizePolar(dem *raster.AeqdRaster, rMin, rMax, dr float64, polarMva [][]float64, nR int) *raster.AeqdRaster {
	out := raster.NewAeqdRaster(dem.OriginXM, dem.OriginYM, dem.PixelSizeM, dem.Width, dem.Height, raster.MvaNeverVisible)
	nAz := len(polarMva)

	for row := 0; row < dem.Height; row++ {
		for col := 0; col < dem.Width; col++ {
			x, y := dem.PixelCenter(row, col)
			r := math.Hypot(x, y)
			if r < rMin || r > rMax {
				continue
			}

			az := math.Atan2(x, y)
			if az < 0 {
				az += 2 * math.Pi
			}
			j := int(math.Round(az / (2 * math.Pi) * float64(nAz)))
			if j >= nAz {
				j = 0
			}

			iF := (r - rMin) / dr
			// Nearest radial sample; Ceil(iF-0.5) rounds an exact
			// half-way iF down, so ties go to the inner sample.
			i := int(math.Ceil(iF - 0.5))
			if i >= nR {
				i = nR - 1
			}
			if i < 0 {
				i = 0
			}

			out.Set(row, col, float32(polarMva[j][i]))
		}
	}

	return out
}

type rayDiag struct {
	noData  int
	rays    int
	samples []float64
}

func (d *rayDiag) accumulate(theta float64) {
	if math.IsInf(theta, -1) {
		return
	}
	d.samples = append(d.samples, theta)
}
