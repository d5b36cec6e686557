package mask

import (
	"github.com/paulmach/orb"
)

// Union ORs together masks that already share an identical grid (same
// origin, pixel size, and dimensions), as produced by Rasterize against
// a common output grid. Used by the cross-sensor union builder.
func Union(masks []*BinaryMask) *BinaryMask {
	if len(masks) == 0 {
		return nil
	}
	out := NewBinaryMask(masks[0].OriginXM, masks[0].OriginYM, masks[0].PixelSizeM, masks[0].Width, masks[0].Height)
	for _, m := range masks {
		for i, v := range m.Bits {
			if v {
				out.Bits[i] = true
			}
		}
	}
	return out
}

// Rasterize marks out.Bits true for every cell whose centre falls
// inside poly (respecting holes), using even-odd ray casting per ring.
// poly's coordinates must already be in out's coordinate system.
func Rasterize(poly orb.Polygon, out *BinaryMask) {
	if len(poly) == 0 {
		return
	}
	outer := poly[0]
	holes := poly[1:]
	for row := 0; row < out.Height; row++ {
		for col := 0; col < out.Width; col++ {
			x, y := out.PixelCenter(row, col)
			p := orb.Point{x, y}
			if !ringContainsPoint(outer, p) {
				continue
			}
			inHole := false
			for _, h := range holes {
				if ringContainsPoint(h, p) {
					inHole = true
					break
				}
			}
			if !inHole {
				out.Set(row, col, true)
			}
		}
	}
}
