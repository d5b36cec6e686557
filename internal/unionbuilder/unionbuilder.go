// Package unionbuilder merges the polygon sets multiple sensors
// produce at a common target altitude into a single polygon set,
// preserving interior holes (terrain shadows every contributing
// sensor agrees on).
package unionbuilder

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/ridgeline-gis/viewshed/internal/mask"
)

// SensorPolygons is one sensor's already zone-stitched, clipped,
// simplified polygon set in geographic (WGS84) coordinates, as
// produced by mask.MaskExtractor followed by mask.ReprojectMultiToWGS84.
type SensorPolygons struct {
	SensorID string
	Polygons orb.MultiPolygon
}

// Result is the union at one target altitude: the merged polygon set
// plus the ids of every sensor that contributed to it.
type Result struct {
	Polygons        orb.MultiPolygon
	ContributingIDs []string
}

// UnionBuilder rasterizes each sensor's polygon set onto a shared grid
// fine enough to resolve pixelSizeDeg-sized features, ORs them
// together, and re-vectorises: a geometric boolean union without a
// general-purpose polygon clipping library, matching the boundary
// vectoriser used per sensor and accepting the same one-pixel boundary
// tolerance zone stitching already accepts.
type UnionBuilder struct {
	PixelSizeDeg float64
	MinAreaDeg2  float64
}

// Build unions every sensor's polygon set in sets, recording which
// sensors contributed. An empty sets yields an empty Result.
func (b UnionBuilder) Build(sets []SensorPolygons) Result {
	nonEmpty := make([]SensorPolygons, 0, len(sets))
	for _, s := range sets {
		if len(s.Polygons) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return Result{}
	}

	minLon, minLat, maxLon, maxLat := bounds(nonEmpty)
	pad := b.PixelSizeDeg * 2
	originLon := minLon - pad
	originLat := maxLat + pad
	width := int((maxLon-minLon+2*pad)/b.PixelSizeDeg) + 1
	height := int((maxLat-minLat+2*pad)/b.PixelSizeDeg) + 1

	var masks []*mask.BinaryMask
	ids := make([]string, 0, len(nonEmpty))
	for _, s := range nonEmpty {
		m := mask.NewBinaryMask(originLon, originLat, b.PixelSizeDeg, width, height)
		for _, poly := range s.Polygons {
			mask.Rasterize(poly, m)
		}
		masks = append(masks, m)
		ids = append(ids, s.SensorID)
	}

	unioned := mask.Union(masks)
	polys := mask.Polygonize(unioned)

	var out orb.MultiPolygon
	for _, p := range polys {
		p = mask.RemoveSlivers(p, b.MinAreaDeg2)
		if len(p) == 0 {
			continue
		}
		out = append(out, mask.CloseRings(p))
	}

	return Result{Polygons: out, ContributingIDs: ids}
}

func bounds(sets []SensorPolygons) (minLon, minLat, maxLon, maxLat float64) {
	minLon, minLat = math.Inf(1), math.Inf(1)
	maxLon, maxLat = math.Inf(-1), math.Inf(-1)
	for _, s := range sets {
		for _, poly := range s.Polygons {
			for _, ring := range poly {
				for _, p := range ring {
					lon, lat := p[0], p[1]
					minLon = math.Min(minLon, lon)
					maxLon = math.Max(maxLon, lon)
					minLat = math.Min(minLat, lat)
					maxLat = math.Max(maxLat, lat)
				}
			}
		}
	}
	return
}
