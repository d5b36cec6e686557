// Package dem provides the Provider collaborator: a source of
// elevation samples over a bounding box. Tile discovery, authentication,
// download, and mosaicking from a real tile service are out of scope;
// this package supplies a local-file implementation for a DEM already
// materialised as one gob+gzip-encoded WGS84Raster, using the same
// serialization discipline as the Tier-1 viewshed cache.
package dem

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/ridgeline-gis/viewshed/internal/raster"
)

// BoundingBox is a WGS84 box, inclusive of its edges.
type BoundingBox struct {
	MinLatDeg float64
	MinLonDeg float64
	MaxLatDeg float64
	MaxLonDeg float64
}

// Provider yields elevation samples over a bounding box. Fetch can
// block on network I/O in a real tile-backed implementation, hence the
// context parameter for cancellation and per-tile timeouts.
type Provider interface {
	Fetch(ctx context.Context, bbox BoundingBox) (*raster.WGS84Raster, error)
}

// demFile is the on-disk encoding of a FileProvider's backing raster.
type demFile struct {
	OriginLatDeg float64
	OriginLonDeg float64
	PixelSizeDeg float64
	Width        int
	Height       int
	Data         []float32
	NoData       float32
	VerticalDatum string
}

// FileProvider serves DEM samples from a single whole-extent raster
// loaded once at startup. It has no tiling, authentication, or
// mosaicking: a real deployment would replace it with a provider
// backed by an actual tile service, implementing the same Provider
// interface.
type FileProvider struct {
	full          *raster.WGS84Raster
	verticalDatum string
}

// LoadFileProvider reads a gob+gzip-encoded DEM from path.
func LoadFileProvider(path string) (*FileProvider, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dem: reading %q: %w", path, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("dem: creating gzip reader: %w", err)
	}
	defer gz.Close()

	var f demFile
	if err := gob.NewDecoder(gz).Decode(&f); err != nil {
		return nil, fmt.Errorf("dem: decoding dem file: %w", err)
	}

	return &FileProvider{
		full: &raster.WGS84Raster{
			OriginLatDeg: f.OriginLatDeg,
			OriginLonDeg: f.OriginLonDeg,
			PixelSizeDeg: f.PixelSizeDeg,
			Width:        f.Width,
			Height:       f.Height,
			Data:         f.Data,
			NoData:       f.NoData,
		},
		verticalDatum: f.VerticalDatum,
	}, nil
}

// VerticalDatum reports the vertical datum the underlying elevation
// samples are referenced to (e.g. "EGM2008", "NAVD88", "ellipsoidal"),
// surfaced as metadata so a caller can apply a geoid-separation offset
// when the sensor and DEM don't share a datum.
func (p *FileProvider) VerticalDatum() string {
	return p.verticalDatum
}

// Fetch crops the backing raster to bbox. Since the whole extent is
// already resident in memory, this never blocks; ctx is honoured only
// for consistency with the Provider interface.
func (p *FileProvider) Fetch(ctx context.Context, bbox BoundingBox) (*raster.WGS84Raster, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	startCol := int((bbox.MinLonDeg - p.full.OriginLonDeg) / p.full.PixelSizeDeg)
	endCol := int((bbox.MaxLonDeg - p.full.OriginLonDeg) / p.full.PixelSizeDeg)
	startRow := int((p.full.OriginLatDeg - bbox.MaxLatDeg) / p.full.PixelSizeDeg)
	endRow := int((p.full.OriginLatDeg - bbox.MinLatDeg) / p.full.PixelSizeDeg)

	if startCol < 0 {
		startCol = 0
	}
	if startRow < 0 {
		startRow = 0
	}
	if endCol >= p.full.Width {
		endCol = p.full.Width - 1
	}
	if endRow >= p.full.Height {
		endRow = p.full.Height - 1
	}
	if endCol < startCol || endRow < startRow {
		return nil, fmt.Errorf("dem: requested bbox does not intersect the loaded extent")
	}

	width := endCol - startCol + 1
	height := endRow - startRow + 1
	data := make([]float32, width*height)
	for r := 0; r < height; r++ {
		copy(data[r*width:(r+1)*width], p.full.Data[(startRow+r)*p.full.Width+startCol:(startRow+r)*p.full.Width+startCol+width])
	}

	return &raster.WGS84Raster{
		OriginLatDeg: p.full.OriginLatDeg - float64(startRow)*p.full.PixelSizeDeg,
		OriginLonDeg: p.full.OriginLonDeg + float64(startCol)*p.full.PixelSizeDeg,
		PixelSizeDeg: p.full.PixelSizeDeg,
		Width:        width,
		Height:       height,
		Data:         data,
		NoData:       p.full.NoData,
	}, nil
}
