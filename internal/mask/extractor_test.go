package mask

import (
	"math"
	"testing"

	"github.com/ridgeline-gis/viewshed/internal/raster"
)

func flatAeqdMva(radiusCells int, pixelSize float64, visibleValue, farValue float32) *raster.AeqdRaster {
	size := radiusCells*2 + 1
	origin := -float64(radiusCells) * pixelSize
	r := raster.NewAeqdRaster(origin, -origin, pixelSize, size, size, raster.MvaNeverVisible)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			x, y := r.PixelCenter(row, col)
			d := math.Hypot(x, y)
			if d <= float64(radiusCells)*pixelSize*0.6 {
				r.Set(row, col, visibleValue)
			} else {
				r.Set(row, col, farValue)
			}
		}
	}
	return r
}

func TestMaskExtractor_Extract_ProducesDiscShapedPolygon(t *testing.T) {
	mva := flatAeqdMva(20, 10, 0, 1000)
	e := MaskExtractor{SimplifyToleranceM: 1, MinAreaM2: 1}

	polys := e.Extract([]ZoneResult{{ZoneIndex: 0, Mva: mva, PixelSizeM: 10}}, 0, 500)
	if len(polys) == 0 {
		t.Fatal("expected at least one polygon")
	}
	area := ringAreaAbs(polys[0][0])
	if area <= 0 {
		t.Errorf("area = %v, want positive", area)
	}
}

// annulusAeqdMva builds a mask visible only between rMinM and rMaxM,
// standing in for one zone's own raster in a multi-zone sensor where
// each zone only covers its own annulus.
func annulusAeqdMva(radiusCells int, pixelSize, rMinM, rMaxM float64, visibleValue, farValue float32) *raster.AeqdRaster {
	size := radiusCells*2 + 1
	origin := -float64(radiusCells) * pixelSize
	r := raster.NewAeqdRaster(origin, -origin, pixelSize, size, size, raster.MvaNeverVisible)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			x, y := r.PixelCenter(row, col)
			d := math.Hypot(x, y)
			if d >= rMinM && d <= rMaxM {
				r.Set(row, col, visibleValue)
			} else {
				r.Set(row, col, farValue)
			}
		}
	}
	return r
}

func TestMaskExtractor_Extract_UnionsDisjointZones(t *testing.T) {
	inner := flatAeqdMva(20, 10, 0, 1000)               // visible disc out to ~120m
	outer := annulusAeqdMva(60, 10, 200, 400, 0, 1000)  // visible ring from 200m to 400m
	e := MaskExtractor{SimplifyToleranceM: 1, MinAreaM2: 1}

	zones := []ZoneResult{
		{ZoneIndex: 0, Mva: inner, PixelSizeM: 10},
		{ZoneIndex: 1, Mva: outer, PixelSizeM: 10},
	}
	polys := e.Extract(zones, 0, 500)
	if len(polys) < 2 {
		t.Fatalf("len(polys) = %d, want at least 2 (one disc, one ring)", len(polys))
	}

	innerOnly := e.Extract(zones[:1], 0, 500)
	var innerOnlyArea, combinedArea float64
	for _, p := range innerOnly {
		innerOnlyArea += ringAreaAbs(p[0])
	}
	for _, p := range polys {
		combinedArea += ringAreaAbs(p[0])
	}
	if combinedArea <= innerOnlyArea {
		t.Errorf("combined area = %v, want more than inner-only area %v", combinedArea, innerOnlyArea)
	}
}

func TestMaskExtractor_Extract_EmptyZonesReturnsNil(t *testing.T) {
	e := MaskExtractor{SimplifyToleranceM: 1, MinAreaM2: 1}
	polys := e.Extract(nil, 0, 500)
	if polys != nil {
		t.Errorf("polys = %v, want nil", polys)
	}
}

func TestMaskExtractor_Extract_NoVisibleCellsReturnsEmpty(t *testing.T) {
	mva := flatAeqdMva(5, 10, 1000, 1000)
	e := MaskExtractor{SimplifyToleranceM: 1, MinAreaM2: 1}
	polys := e.Extract([]ZoneResult{{ZoneIndex: 0, Mva: mva, PixelSizeM: 10}}, 0, 500)
	if len(polys) != 0 {
		t.Errorf("len(polys) = %d, want 0", len(polys))
	}
}
