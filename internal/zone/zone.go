// Package zone partitions a sensor's required sweep radius into
// concentric annuli of differing pixel resolution and orders them for
// computation.
package zone

import (
	"fmt"
	"math"
)

// MinPixelsPerRadius is the guard against under-sampled far zones: a
// zone's pixel size must resolve its outer radius into at least this
// many pixels.
const MinPixelsPerRadius = 50

// Zone is one concentric annulus of the sweep, ordered by RMinM.
type Zone struct {
	Index      int
	RMinM      float64
	RMaxM      float64
	PixelSizeM float64
}

// Validate checks the invariants a Zone must hold.
func (z Zone) Validate() error {
	if z.RMinM < 0 || z.RMaxM <= z.RMinM {
		return fmt.Errorf("zone %d: invalid radial extent [%v, %v]", z.Index, z.RMinM, z.RMaxM)
	}
	if z.PixelSizeM <= 0 {
		return fmt.Errorf("zone %d: pixel size must be positive, got %v", z.Index, z.PixelSizeM)
	}
	if z.PixelSizeM > z.RMaxM/MinPixelsPerRadius {
		return fmt.Errorf("zone %d: pixel_size_m %v too coarse for r_max_m %v (need <= %v); raise pixel_size_m or lower max_range_m",
			z.Index, z.PixelSizeM, z.RMaxM, z.RMaxM/MinPixelsPerRadius)
	}
	return nil
}

// MultiscaleParams controls how BuildZones splits [0, R].
type MultiscaleParams struct {
	Enable bool

	NearM float64
	MidM  float64
	FarM  float64

	ResNearM float64
	ResMidM  float64
	ResFarM  float64
}

// BuildZones produces an ordered list of zones whose union covers
// [0, requiredRadiusM]. If multiscale is disabled, a single zone
// [0, R] at ResNearM is returned. Otherwise up to three zones are
// produced at progressively coarser resolution, and any zone emptied
// by requiredRadiusM being smaller than a cutoff is dropped.
func BuildZones(requiredRadiusM float64, p MultiscaleParams) ([]Zone, error) {
	if requiredRadiusM <= 0 {
		return nil, fmt.Errorf("zone: required radius must be positive, got %v", requiredRadiusM)
	}

	var zones []Zone
	idx := 0
	add := func(rMin, rMax, pixel float64) error {
		if rMax <= rMin {
			return nil
		}
		z := Zone{Index: idx, RMinM: rMin, RMaxM: rMax, PixelSizeM: pixel}
		if err := z.Validate(); err != nil {
			return err
		}
		zones = append(zones, z)
		idx++
		return nil
	}

	if !p.Enable {
		if err := add(0, requiredRadiusM, p.ResNearM); err != nil {
			return nil, err
		}
		return zones, nil
	}

	near := math.Min(requiredRadiusM, p.NearM)
	mid := math.Min(requiredRadiusM, p.MidM)
	far := requiredRadiusM

	if err := add(0, near, p.ResNearM); err != nil {
		return nil, err
	}
	if err := add(near, mid, p.ResMidM); err != nil {
		return nil, err
	}
	if err := add(mid, far, p.ResFarM); err != nil {
		return nil, err
	}

	if len(zones) == 0 {
		return nil, fmt.Errorf("zone: no zones produced for required radius %v", requiredRadiusM)
	}

	return zones, nil
}

