package mask

import (
	"github.com/paulmach/orb"

	"github.com/ridgeline-gis/viewshed/internal/geo"
)

// ReprojectToWGS84 inverse-projects every vertex of poly (in AEQD
// metres, sensor-centred on proj) to geographic coordinates, ready for
// GeoJSON emission.
func ReprojectToWGS84(poly orb.Polygon, proj *geo.Projector) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		newRing := make(orb.Ring, len(ring))
		for j, p := range ring {
			lat, lon := proj.Inverse(p[0], p[1])
			newRing[j] = orb.Point{lon, lat}
		}
		out[i] = newRing
	}
	return out
}

// ReprojectMultiToWGS84 applies ReprojectToWGS84 across an entire
// polygon set.
func ReprojectMultiToWGS84(polys orb.MultiPolygon, proj *geo.Projector) orb.MultiPolygon {
	out := make(orb.MultiPolygon, len(polys))
	for i, p := range polys {
		out[i] = ReprojectToWGS84(p, proj)
	}
	return out
}
