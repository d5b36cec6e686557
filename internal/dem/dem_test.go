package dem

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"
)

func writeTestDemFile(t *testing.T) string {
	t.Helper()
	f := demFile{
		OriginLatDeg:  10,
		OriginLonDeg:  0,
		PixelSizeDeg:  1,
		Width:         10,
		Height:        10,
		Data:          make([]float32, 100),
		NoData:        -9999,
		VerticalDatum: "EGM2008",
	}
	for i := range f.Data {
		f.Data[i] = float32(i)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(f); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	path := filepath.Join(t.TempDir(), "dem.bin")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFileProvider_RoundTrip(t *testing.T) {
	path := writeTestDemFile(t)
	p, err := LoadFileProvider(path)
	if err != nil {
		t.Fatalf("LoadFileProvider: %v", err)
	}
	if p.VerticalDatum() != "EGM2008" {
		t.Errorf("VerticalDatum() = %q, want EGM2008", p.VerticalDatum())
	}
}

func TestFileProvider_Fetch_CropsToBoundingBox(t *testing.T) {
	path := writeTestDemFile(t)
	p, err := LoadFileProvider(path)
	if err != nil {
		t.Fatalf("LoadFileProvider: %v", err)
	}

	r, err := p.Fetch(context.Background(), BoundingBox{MinLatDeg: 5, MaxLatDeg: 8, MinLonDeg: 2, MaxLonDeg: 5})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if r.Width != 4 || r.Height != 4 {
		t.Errorf("cropped size = %dx%d, want 4x4", r.Width, r.Height)
	}
}

func TestFileProvider_Fetch_RejectsNonIntersectingBox(t *testing.T) {
	path := writeTestDemFile(t)
	p, err := LoadFileProvider(path)
	if err != nil {
		t.Fatalf("LoadFileProvider: %v", err)
	}

	_, err = p.Fetch(context.Background(), BoundingBox{MinLatDeg: -50, MaxLatDeg: -40, MinLonDeg: -50, MaxLonDeg: -40})
	if err == nil {
		t.Fatal("expected error for non-intersecting bbox")
	}
}

func TestFileProvider_Fetch_RespectsCancelledContext(t *testing.T) {
	path := writeTestDemFile(t)
	p, err := LoadFileProvider(path)
	if err != nil {
		t.Fatalf("LoadFileProvider: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Fetch(ctx, BoundingBox{MinLatDeg: 5, MaxLatDeg: 8, MinLonDeg: 2, MaxLonDeg: 5})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
