package mask

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplify applies Douglas-Peucker simplification with the given
// tolerance (in the polygon's own linear units) to every ring of poly.
func Simplify(poly orb.Polygon, toleranceM float64) orb.Polygon {
	if toleranceM <= 0 {
		return poly
	}
	simplifier := simplify.DouglasPeucker(toleranceM)
	simplified, ok := simplifier.Simplify(poly.Clone()).(orb.Polygon)
	if !ok {
		return poly
	}
	return simplified
}

// RemoveSlivers drops any ring of poly (outer or hole) whose unsigned
// area falls below minAreaM2. If the outer ring itself is a sliver the
// whole polygon is dropped.
func RemoveSlivers(poly orb.Polygon, minAreaM2 float64) orb.Polygon {
	if len(poly) == 0 {
		return nil
	}
	if ringAreaAbs(poly[0]) < minAreaM2 {
		return nil
	}
	out := orb.Polygon{poly[0]}
	for _, hole := range poly[1:] {
		if ringAreaAbs(hole) >= minAreaM2 {
			out = append(out, hole)
		}
	}
	return out
}

// CloseRings ensures every ring of poly starts and ends at the same
// vertex, as orb.Polygon and GeoJSON both require.
func CloseRings(poly orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		out[i] = closeRing(ring)
	}
	return out
}

// RepairSelfIntersections resolves self-intersections and other
// invalid ring geometry the vectoriser might produce at degenerate
// (checkerboard-touching) mask configurations by rasterizing poly back
// onto a grid at pixelSizeM resolution and re-polygonising: the
// raster round trip cannot represent a self-intersecting ring, so the
// output is always simple. If poly collapses to nothing the caller
// should treat the zone as contributing an empty polygon set.
func RepairSelfIntersections(poly orb.Polygon, pixelSizeM float64) orb.MultiPolygon {
	minX, minY, maxX, maxY := boundsOf(poly[0])
	pad := pixelSizeM * 2
	originX := minX - pad
	originY := maxY + pad
	width := int((maxX-minX+2*pad)/pixelSizeM) + 1
	height := int((maxY-minY+2*pad)/pixelSizeM) + 1
	if width <= 0 || height <= 0 {
		return nil
	}

	m := NewBinaryMask(originX, originY, pixelSizeM, width, height)
	Rasterize(poly, m)
	return Polygonize(m)
}

func boundsOf(ring orb.Ring) (minX, minY, maxX, maxY float64) {
	minX, minY = ring[0][0], ring[0][1]
	maxX, maxY = ring[0][0], ring[0][1]
	for _, p := range ring {
		if p[0] < minX {
			minX = p[0]
		}
		if p[0] > maxX {
			maxX = p[0]
		}
		if p[1] < minY {
			minY = p[1]
		}
		if p[1] > maxY {
			maxY = p[1]
		}
	}
	return
}
