package mask

import (
	"math"

	"github.com/paulmach/orb"
)

// DiscSegments is the number of edges used to approximate the horizon
// circle for Sutherland-Hodgman clipping.
const DiscSegments = 180

// discPolygon returns a convex N-gon approximating the circle of
// radius radiusM centred at (cx, cy), wound counter-clockwise.
func discPolygon(cx, cy, radiusM float64, segments int) orb.Ring {
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		ring = append(ring, orb.Point{cx + radiusM*math.Cos(theta), cy + radiusM*math.Sin(theta)})
	}
	ring = append(ring, ring[0])
	return ring
}

// ClipToDisc clips every ring of poly (outer and holes) against the
// disc of radius radiusM centred at (cx, cy) using Sutherland-Hodgman,
// valid because the disc approximation is convex. Rings that clip away
// entirely are dropped; if the outer ring vanishes the whole polygon is
// dropped.
func ClipToDisc(poly orb.Polygon, cx, cy, radiusM float64) orb.Polygon {
	clip := discPolygon(cx, cy, radiusM, DiscSegments)

	var out orb.Polygon
	for i, ring := range poly {
		clipped := sutherlandHodgman(ring, clip)
		if len(clipped) < 3 {
			if i == 0 {
				return nil
			}
			continue
		}
		out = append(out, closeRing(clipped))
	}
	return out
}

// sutherlandHodgman clips subject against the convex polygon clip and
// returns the clipped ring, open (no repeated closing vertex).
func sutherlandHodgman(subject, clip orb.Ring) orb.Ring {
	output := openRing(subject)
	n := len(clip)
	if n > 1 && clip[0] == clip[n-1] {
		n--
	}

	for i := 0; i < n; i++ {
		if len(output) == 0 {
			return nil
		}
		a := clip[i]
		b := clip[(i+1)%n]

		input := output
		output = nil
		m := len(input)
		for j := 0; j < m; j++ {
			cur := input[j]
			prev := input[(j-1+m)%m]
			curIn := isLeft(a, b, cur) >= 0
			prevIn := isLeft(a, b, prev) >= 0

			if curIn {
				if !prevIn {
					output = append(output, segmentIntersect(prev, cur, a, b))
				}
				output = append(output, cur)
			} else if prevIn {
				output = append(output, segmentIntersect(prev, cur, a, b))
			}
		}
	}
	return output
}

func openRing(ring orb.Ring) orb.Ring {
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		return ring[:len(ring)-1]
	}
	return ring
}

func closeRing(ring orb.Ring) orb.Ring {
	if len(ring) == 0 || ring[0] == ring[len(ring)-1] {
		return ring
	}
	out := make(orb.Ring, len(ring)+1)
	copy(out, ring)
	out[len(ring)] = ring[0]
	return out
}

// isLeft returns a positive value if p is left of the directed line
// a->b, zero if p is on it, and a negative value if p is right of it.
func isLeft(a, b, p orb.Point) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

func segmentIntersect(p1, p2, a, b orb.Point) orb.Point {
	x1, y1 := p1[0], p1[1]
	x2, y2 := p2[0], p2[1]
	x3, y3 := a[0], a[1]
	x4, y4 := b[0], b[1]

	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if denom == 0 {
		return p2
	}
	t := ((x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)) / denom
	return orb.Point{x1 + t*(x2-x1), y1 + t*(y2-y1)}
}
