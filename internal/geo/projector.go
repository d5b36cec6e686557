package geo

import (
	"fmt"
	"math"

	"github.com/ridgeline-gis/viewshed/internal/raster"
)

// Projector is a sensor-centred azimuthal-equidistant projection. It is
// built on the sphere of radius equal to the local Earth radius of
// curvature at the sensor latitude: at the pixel sizes (tens to low
// hundreds of metres) and ranges (up to ~1000 km) this system works at,
// the spherical approximation of AEQD keeps radial distances exact to
// well within one pixel, which is what the sweep actually depends on.
type Projector struct {
	centerLatDeg float64
	centerLonDeg float64
	radiusM      float64
}

// NewAEQDProjector builds a Projector centred on (latDeg, lonDeg).
func NewAEQDProjector(latDeg, lonDeg float64) (*Projector, error) {
	if math.IsNaN(latDeg) || math.IsInf(latDeg, 0) || math.IsNaN(lonDeg) || math.IsInf(lonDeg, 0) {
		return nil, fmt.Errorf("geo: center coordinate is not finite: (%v, %v)", latDeg, lonDeg)
	}
	r, err := LocalEarthRadius(latDeg)
	if err != nil {
		return nil, err
	}
	return &Projector{centerLatDeg: latDeg, centerLonDeg: lonDeg, radiusM: r}, nil
}

// Forward projects (latDeg, lonDeg) to AEQD meters (x east, y north)
// relative to the projection center.
func (p *Projector) Forward(latDeg, lonDeg float64) (x, y float64) {
	phi1 := p.centerLatDeg * math.Pi / 180
	lambda0 := p.centerLonDeg * math.Pi / 180
	phi := latDeg * math.Pi / 180
	lambda := lonDeg * math.Pi / 180

	dLambda := lambda - lambda0
	cosC := math.Sin(phi1)*math.Sin(phi) + math.Cos(phi1)*math.Cos(phi)*math.Cos(dLambda)
	cosC = math.Max(-1, math.Min(1, cosC))
	c := math.Acos(cosC)

	if c < 1e-12 {
		return 0, 0
	}

	k := c / math.Sin(c)
	x = p.radiusM * k * math.Cos(phi) * math.Sin(dLambda)
	y = p.radiusM * k * (math.Cos(phi1)*math.Sin(phi) - math.Sin(phi1)*math.Cos(phi)*math.Cos(dLambda))
	return x, y
}

// Inverse projects AEQD meters (x, y) back to (latDeg, lonDeg).
func (p *Projector) Inverse(x, y float64) (latDeg, lonDeg float64) {
	phi1 := p.centerLatDeg * math.Pi / 180
	lambda0 := p.centerLonDeg * math.Pi / 180

	c := math.Hypot(x, y) / p.radiusM
	if c < 1e-12 {
		return p.centerLatDeg, p.centerLonDeg
	}

	sinC := math.Sin(c)
	cosC := math.Cos(c)

	phi := math.Asin(cosC*math.Sin(phi1) + (y*sinC*math.Cos(phi1))/math.Hypot(x, y))
	lambda := lambda0 + math.Atan2(x*sinC, math.Hypot(x, y)*math.Cos(phi1)*cosC-y*math.Sin(phi1)*sinC)

	return phi * 180 / math.Pi, lambda * 180 / math.Pi
}

// ReprojectBilinear fills an AEQD raster of the requested geometry by
// inverse-projecting each cell center to WGS84 and bilinearly sampling
// src. Cells outside the DEM, or whose nearest DEM cells are NoData,
// are written as NoData in the destination.
func (p *Projector) ReprojectBilinear(src *raster.WGS84Raster, dst *raster.AeqdRaster) {
	for row := 0; row < dst.Height; row++ {
		for col := 0; col < dst.Width; col++ {
			x, y := dst.PixelCenter(row, col)
			lat, lon := p.Inverse(x, y)
			v := src.SampleBilinear(lat, lon)
			if v == src.NoData {
				dst.Set(row, col, dst.NoData)
				continue
			}
			dst.Set(row, col, v)
		}
	}
}
