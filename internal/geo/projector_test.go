package geo

import (
	"math"
	"testing"

	"github.com/ridgeline-gis/viewshed/internal/raster"
)

func TestProjector_ForwardAtCenterIsOrigin(t *testing.T) {
	p, err := NewAEQDProjector(45, -100)
	if err != nil {
		t.Fatalf("NewAEQDProjector: %v", err)
	}
	x, y := p.Forward(45, -100)
	if math.Abs(x) > 1e-6 || math.Abs(y) > 1e-6 {
		t.Errorf("Forward(center) = (%v, %v), want (0,0)", x, y)
	}
}

func TestProjector_ForwardInverseRoundTrip(t *testing.T) {
	p, err := NewAEQDProjector(40, -105)
	if err != nil {
		t.Fatalf("NewAEQDProjector: %v", err)
	}
	lat, lon := 40.05, -104.9
	x, y := p.Forward(lat, lon)
	gotLat, gotLon := p.Inverse(x, y)
	if math.Abs(gotLat-lat) > 1e-6 || math.Abs(gotLon-lon) > 1e-6 {
		t.Errorf("round trip = (%v, %v), want (%v, %v)", gotLat, gotLon, lat, lon)
	}
}

func TestProjector_ForwardPreservesRadialDistance(t *testing.T) {
	p, err := NewAEQDProjector(0, 0)
	if err != nil {
		t.Fatalf("NewAEQDProjector: %v", err)
	}
	// A point due north along the same meridian at a known great-circle
	// distance should land at (0, distance) within numerical tolerance.
	rLocal, _ := LocalEarthRadius(0)
	dist := 50000.0
	latOffset := dist / rLocal * 180 / math.Pi

	x, y := p.Forward(latOffset, 0)
	if math.Abs(x) > 1 {
		t.Errorf("Forward due north x = %v, want ~0", x)
	}
	if math.Abs(y-dist) > 1 {
		t.Errorf("Forward due north y = %v, want ~%v", y, dist)
	}
}

func TestReprojectBilinear_FillsFromSource(t *testing.T) {
	p, err := NewAEQDProjector(0, 0)
	if err != nil {
		t.Fatalf("NewAEQDProjector: %v", err)
	}

	src := &raster.WGS84Raster{
		OriginLatDeg: 1, OriginLonDeg: -1, PixelSizeDeg: 0.01,
		Width: 201, Height: 201,
		Data:   make([]float32, 201*201),
		NoData: -9999,
	}
	for i := range src.Data {
		src.Data[i] = 100
	}

	dst := raster.NewAeqdRaster(-500, 500, 10, 101, 101, -1)
	p.ReprojectBilinear(src, dst)

	center := dst.At(50, 50)
	if center != 100 {
		t.Errorf("reprojected center = %v, want 100", center)
	}
}

func TestReprojectBilinear_OutOfDEMIsNoData(t *testing.T) {
	p, err := NewAEQDProjector(0, 0)
	if err != nil {
		t.Fatalf("NewAEQDProjector: %v", err)
	}

	src := &raster.WGS84Raster{
		OriginLatDeg: 0.01, OriginLonDeg: -0.01, PixelSizeDeg: 0.001,
		Width: 21, Height: 21,
		Data:   make([]float32, 21*21),
		NoData: -9999,
	}
	for i := range src.Data {
		src.Data[i] = 50
	}

	dst := raster.NewAeqdRaster(-50000, 50000, 1000, 101, 101, -1)
	p.ReprojectBilinear(src, dst)

	if got := dst.At(0, 0); got != -1 {
		t.Errorf("far corner = %v, want NoData (-1)", got)
	}
}
