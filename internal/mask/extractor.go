package mask

import (
	"github.com/paulmach/orb"

	"github.com/ridgeline-gis/viewshed/internal/raster"
)

// ZoneResult pairs one zone's MVA raster with its geometry, as handed
// to the extractor by the orchestrator once every zone in a request
// has been computed or loaded from cache.
type ZoneResult struct {
	ZoneIndex  int
	Mva        *raster.AeqdRaster
	PixelSizeM float64
}

// MaskExtractor thresholds a sensor's per-zone MVA rasters at a target
// altitude, stitches them into one polygon set, clips to the horizon
// disc, simplifies, and repairs the result.
type MaskExtractor struct {
	SimplifyToleranceM float64
	MinAreaM2          float64
}

// Extract implements the MaskExtractor pipeline: threshold and
// polygonise each zone independently at its own resolution, union the
// per-zone polygon sets in polygon space, clip to the disc of radius
// maxRangeM centred on the origin (the sensor, at AEQD-local (0,0)),
// simplify, and repair. The returned polygon set is in AEQD metres.
func (e MaskExtractor) Extract(zones []ZoneResult, targetAltitudeM, maxRangeM float64) orb.MultiPolygon {
	if len(zones) == 0 {
		return nil
	}

	perZone := make([]orb.MultiPolygon, len(zones))
	finestPixelSizeM := zones[0].PixelSizeM
	for i, z := range zones {
		m := Threshold(z.Mva, z.Mva.Width, z.Mva.Height, z.Mva.OriginXM, z.Mva.OriginYM, z.Mva.PixelSizeM, targetAltitudeM)
		perZone[i] = Polygonize(m)
		if z.PixelSizeM < finestPixelSizeM {
			finestPixelSizeM = z.PixelSizeM
		}
	}

	stitched := UnionZonePolygons(perZone)
	if len(stitched) == 0 {
		return nil
	}

	var out orb.MultiPolygon
	for _, p := range stitched {
		clipped := ClipToDisc(p, 0, 0, maxRangeM)
		if len(clipped) == 0 {
			continue
		}
		simplified := Simplify(clipped, e.SimplifyToleranceM)
		repaired := e.repair(simplified, finestPixelSizeM)
		for _, r := range repaired {
			r = RemoveSlivers(r, e.MinAreaM2)
			if len(r) == 0 {
				continue
			}
			out = append(out, CloseRings(r))
		}
	}
	return out
}

// repair guards against self-intersecting rings the clip/simplify
// steps might introduce at sliver-thin seams: it runs a raster round
// trip only when the polygon is already invalid enough to need it,
// otherwise it is a no-op wrapping the input in a one-element set.
func (e MaskExtractor) repair(poly orb.Polygon, pixelSizeM float64) orb.MultiPolygon {
	if len(poly) == 0 || len(poly[0]) < 4 {
		return nil
	}
	if isSimple(poly[0]) {
		return orb.MultiPolygon{poly}
	}
	return RepairSelfIntersections(poly, pixelSizeM)
}

// isSimple reports whether ring's edges are free of self-intersection,
// checked by brute-force segment comparison (rings from this package
// are small polygons, not dense meshes, so O(n^2) is acceptable).
func isSimple(ring orb.Ring) bool {
	n := len(ring)
	if n < 4 {
		return true
	}
	for i := 0; i < n-1; i++ {
		a1, a2 := ring[i], ring[i+1]
		for j := i + 1; j < n-1; j++ {
			if j == i || (i == 0 && j == n-2) {
				continue
			}
			b1, b2 := ring[j], ring[j+1]
			if segmentsShareVertex(a1, a2, b1, b2) {
				continue
			}
			if segmentsIntersect(a1, a2, b1, b2) {
				return false
			}
		}
	}
	return true
}

func segmentsShareVertex(a1, a2, b1, b2 orb.Point) bool {
	return a1 == b1 || a1 == b2 || a2 == b1 || a2 == b2
}

func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := isLeft(p3, p4, p1)
	d2 := isLeft(p3, p4, p2)
	d3 := isLeft(p1, p2, p3)
	d4 := isLeft(p1, p2, p4)
	return ((d1 > 0) != (d2 > 0)) && ((d3 > 0) != (d4 > 0))
}
