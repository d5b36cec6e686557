// Package diag renders debug heatmaps of an MVA raster, gated by
// RunConfig's debug_heatmaps flag, using the gonum/plot plotting stack.
package diag

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ridgeline-gis/viewshed/internal/raster"
)

// gridXYZ adapts an AeqdRaster to plotter.GridXYZ.
type gridXYZ struct {
	r *raster.AeqdRaster
}

func (g gridXYZ) Dims() (c, r int) {
	return g.r.Width, g.r.Height
}

func (g gridXYZ) X(c int) float64 {
	x, _ := g.r.PixelCenter(0, c)
	return x
}

func (g gridXYZ) Y(r int) float64 {
	_, y := g.r.PixelCenter(r, 0)
	return y
}

func (g gridXYZ) Z(c, r int) float64 {
	v := g.r.At(r, c)
	if v == g.r.NoData {
		return 0
	}
	return float64(v)
}

// RenderHeatmap writes a PNG heatmap of mva to path, using a blue-red
// palette where red marks the highest (hardest to see over) minimum
// visible altitude.
func RenderHeatmap(mva *raster.AeqdRaster, title, path string) error {
	p := plot.New()
	p.Title.Text = title

	h := plotter.NewHeatMap(gridXYZ{r: mva}, moreland.SmoothBlueRed())
	p.Add(h)

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("diag: saving heatmap: %w", err)
	}
	return nil
}
