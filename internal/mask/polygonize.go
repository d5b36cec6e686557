package mask

import (
	"sort"

	"github.com/paulmach/orb"
)

// corner indexes the (height+1) x (width+1) grid of pixel corners that
// bound a BinaryMask's cells.
type corner struct {
	row, col int
}

// Polygonize vectorises a 4-connected foreground mask into a set of
// polygons with holes, using boundary-edge tracing over the grid of
// pixel corners. Every cell edge adjoining a background cell (or the
// raster's outer border) becomes one directed boundary edge, oriented
// so that the owning foreground cell is consistently on one side; the
// resulting closed loops separate into outer rings and hole rings by
// the sign of their signed area, and each hole is attached to the
// outer ring whose interior contains it.
func Polygonize(m *BinaryMask) orb.MultiPolygon {
	edges := collectBoundaryEdges(m)
	if len(edges) == 0 {
		return nil
	}

	loops := traceLoops(edges)

	var outers []orb.Ring
	var holes []orb.Ring
	for _, loop := range loops {
		ring := cornersToWorldRing(m, loop)
		if signedAreaIndexSpace(loop) > 0 {
			outers = append(outers, ring)
		} else {
			holes = append(holes, ring)
		}
	}

	polys := make([]orb.Polygon, len(outers))
	for i, outer := range outers {
		polys[i] = orb.Polygon{outer}
	}
	for _, hole := range holes {
		idx := containingOuter(outers, hole)
		if idx < 0 {
			continue
		}
		polys[idx] = append(polys[idx], hole)
	}

	return orb.MultiPolygon(polys)
}

// collectBoundaryEdges returns one directed edge per cell-to-background
// boundary in the mask, in row-major cell scan order.
func collectBoundaryEdges(m *BinaryMask) []corner2 {
	var edges []corner2
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			if !m.At(r, c) {
				continue
			}
			tl := corner{r, c}
			tr := corner{r, c + 1}
			bl := corner{r + 1, c}
			br := corner{r + 1, c + 1}

			if !m.At(r-1, c) { // neighbor above missing: top edge
				edges = append(edges, corner2{tl, tr})
			}
			if !m.At(r, c+1) { // neighbor right missing: right edge
				edges = append(edges, corner2{tr, br})
			}
			if !m.At(r+1, c) { // neighbor below missing: bottom edge
				edges = append(edges, corner2{br, bl})
			}
			if !m.At(r, c-1) { // neighbor left missing: left edge
				edges = append(edges, corner2{bl, tl})
			}
		}
	}
	return edges
}

type corner2 struct {
	from, to corner
}

// traceLoops links directed boundary edges into closed loops. At a
// corner where more than one unvisited outgoing edge is available (two
// foreground regions touching only diagonally), the edge that turns
// most clockwise relative to the incoming direction is preferred, so
// that diagonally adjacent blobs trace as separate loops.
func traceLoops(edges []corner2) [][]corner {
	outgoing := make(map[corner][]int)
	for i, e := range edges {
		outgoing[e.from] = append(outgoing[e.from], i)
	}
	used := make([]bool, len(edges))

	var loops [][]corner
	for start := range edges {
		if used[start] {
			continue
		}
		loop := []corner{edges[start].from}
		cur := start
		used[cur] = true
		for {
			next := edges[cur].to
			loop = append(loop, next)
			if next == loop[0] {
				break
			}
			candidates := outgoing[next]
			chosen := -1
			for _, idx := range candidates {
				if used[idx] {
					continue
				}
				if chosen < 0 || turnRank(edges[cur], edges[idx]) < turnRank(edges[cur], edges[chosen]) {
					chosen = idx
				}
			}
			if chosen < 0 {
				break
			}
			used[chosen] = true
			cur = chosen
		}
		loops = append(loops, loop)
	}
	return loops
}

// turnRank ranks candidate's turn relative to prev's direction: 0 =
// straight ahead, 1 = right turn, 2 = reverse, 3 = left turn. Preferring
// the lowest rank keeps tracing hugging the tightest right-hand wall,
// which is the convention collectBoundaryEdges' edge orientation
// assumes.
func turnRank(prev, candidate corner2) int {
	pr, pc := prev.to.row-prev.from.row, prev.to.col-prev.from.col
	cr, cc := candidate.to.row-candidate.from.row, candidate.to.col-candidate.from.col

	// Cross product (prev x candidate) in (col=x, row=y) space: positive
	// means candidate turns clockwise from prev (right turn in screen
	// space where row increases downward).
	cross := pc*cr - pr*cc
	dot := pc*cc + pr*cr
	switch {
	case cross == 0 && dot > 0:
		return 0
	case cross > 0:
		return 1
	case cross == 0 && dot < 0:
		return 2
	default:
		return 3
	}
}

func cornersToWorldRing(m *BinaryMask, loop []corner) orb.Ring {
	ring := make(orb.Ring, 0, len(loop))
	for _, cn := range loop {
		x := m.OriginXM + (float64(cn.col)-0.5)*m.PixelSizeM
		y := m.OriginYM - (float64(cn.row)-0.5)*m.PixelSizeM
		ring = append(ring, orb.Point{x, y})
	}
	return ring
}

// signedAreaIndexSpace computes the shoelace sum over loop's (col, row)
// index coordinates (not divided by two; only the sign is used).
func signedAreaIndexSpace(loop []corner) float64 {
	var sum float64
	for i := 0; i+1 < len(loop); i++ {
		x1, y1 := float64(loop[i].col), float64(loop[i].row)
		x2, y2 := float64(loop[i+1].col), float64(loop[i+1].row)
		sum += x1*y2 - x2*y1
	}
	return sum
}

// containingOuter returns the index of the outer ring in outers whose
// interior contains hole's first vertex, or -1 if none does. Ties
// (nested outer rings both containing the point, which cannot arise
// from a single mask's tracing but is guarded against defensively) are
// broken by smallest enclosing ring.
func containingOuter(outers []orb.Ring, hole orb.Ring) int {
	if len(hole) == 0 {
		return -1
	}
	p := hole[0]

	type cand struct {
		idx  int
		area float64
	}
	var matches []cand
	for i, outer := range outers {
		if ringContainsPoint(outer, p) {
			matches = append(matches, cand{i, ringAreaAbs(outer)})
		}
	}
	if len(matches) == 0 {
		return -1
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].area < matches[j].area })
	return matches[0].idx
}

// ringContainsPoint reports whether p lies within ring using the
// standard even-odd ray casting rule.
func ringContainsPoint(ring orb.Ring, p orb.Point) bool {
	inside := false
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > p[1]) != (yj > p[1]) {
			xCross := (xj-xi)*(p[1]-yi)/(yj-yi) + xi
			if p[0] < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

func ringAreaAbs(ring orb.Ring) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}
