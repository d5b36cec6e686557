package mask

import "github.com/paulmach/orb"

// UnionZonePolygons combines the already-polygonised per-zone shapes of
// one sensor into a single zone-stitched polygon set. Zones partition
// disjoint, contiguous radius ranges, so their polygons only meet at a
// shared boundary circle rather than genuinely overlapping, making the
// union a plain concatenation rather than a raster round trip or a
// boolean geometry merge. Polygonising each zone on its own grid before
// this union can introduce a boundary mismatch of at most one pixel,
// which is accepted.
func UnionZonePolygons(perZone []orb.MultiPolygon) orb.MultiPolygon {
	var out orb.MultiPolygon
	for _, zonePolys := range perZone {
		out = append(out, zonePolys...)
	}
	return out
}
