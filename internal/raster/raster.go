// Package raster holds the grid types the sweep operates on: a WGS84
// source grid, the sensor-centred AEQD grid it gets reprojected into,
// and the UInt16-quantised on-disk form of an MVA raster.
package raster

import "math"

// WGS84Raster is an elevation grid in geographic coordinates. Origin is
// the centre of the top-left pixel; rows increase southward.
type WGS84Raster struct {
	OriginLatDeg float64
	OriginLonDeg float64
	PixelSizeDeg float64
	Width        int
	Height       int
	Data         []float32
	NoData       float32
}

// At returns the value at (row, col), or NoData if out of bounds.
func (r *WGS84Raster) At(row, col int) float32 {
	if row < 0 || row >= r.Height || col < 0 || col >= r.Width {
		return r.NoData
	}
	return r.Data[row*r.Width+col]
}

// SampleBilinear samples elevation at (latDeg, lonDeg) by bilinear
// interpolation over the four nearest pixel centres. Returns NoData if
// the point falls outside the raster, or if any of the four
// contributing cells is itself NoData.
func (r *WGS84Raster) SampleBilinear(latDeg, lonDeg float64) float32 {
	col := (lonDeg - r.OriginLonDeg) / r.PixelSizeDeg
	row := (r.OriginLatDeg - latDeg) / r.PixelSizeDeg

	if col < 0 || row < 0 || col > float64(r.Width-1) || row > float64(r.Height-1) {
		return r.NoData
	}

	c0 := int(math.Floor(col))
	r0 := int(math.Floor(row))
	c1 := c0 + 1
	r1 := r0 + 1
	if c1 > r.Width-1 {
		c1 = c0
	}
	if r1 > r.Height-1 {
		r1 = r0
	}

	fc := col - float64(c0)
	fr := row - float64(r0)

	v00 := r.At(r0, c0)
	v01 := r.At(r0, c1)
	v10 := r.At(r1, c0)
	v11 := r.At(r1, c1)
	if v00 == r.NoData || v01 == r.NoData || v10 == r.NoData || v11 == r.NoData {
		return r.NoData
	}

	top := float64(v00)*(1-fc) + float64(v01)*fc
	bot := float64(v10)*(1-fc) + float64(v11)*fc
	return float32(top*(1-fr) + bot*fr)
}

// AeqdRaster is a square-pixel, unrotated raster in a sensor-centred
// azimuthal-equidistant projection. Origin is the projected coordinate
// of the top-left pixel centre; X increases east, Y increases north
// (so row 0 is the northernmost row).
type AeqdRaster struct {
	OriginXM   float64
	OriginYM   float64
	PixelSizeM float64
	Width      int
	Height     int
	Data       []float32
	NoData     float32
}

// NewAeqdRaster allocates a raster filled with NoData.
func NewAeqdRaster(originX, originY, pixelSize float64, width, height int, noData float32) *AeqdRaster {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = noData
	}
	return &AeqdRaster{
		OriginXM:   originX,
		OriginYM:   originY,
		PixelSizeM: pixelSize,
		Width:      width,
		Height:     height,
		Data:       data,
		NoData:     noData,
	}
}

// At returns the value at (row, col), or NoData if out of bounds.
func (r *AeqdRaster) At(row, col int) float32 {
	if row < 0 || row >= r.Height || col < 0 || col >= r.Width {
		return r.NoData
	}
	return r.Data[row*r.Width+col]
}

// Set stores v at (row, col). Out-of-bounds calls are a no-op.
func (r *AeqdRaster) Set(row, col int, v float32) {
	if row < 0 || row >= r.Height || col < 0 || col >= r.Width {
		return
	}
	r.Data[row*r.Width+col] = v
}

// SampleBilinear samples the raster at projected coordinate (x, y) by
// bilinear interpolation over the four nearest pixel centres. Returns
// NoData if the point falls outside the raster or any contributing
// cell is itself NoData.
func (r *AeqdRaster) SampleBilinear(x, y float64) float32 {
	col := (x - r.OriginXM) / r.PixelSizeM
	row := (r.OriginYM - y) / r.PixelSizeM

	if col < 0 || row < 0 || col > float64(r.Width-1) || row > float64(r.Height-1) {
		return r.NoData
	}

	c0 := int(math.Floor(col))
	r0 := int(math.Floor(row))
	c1 := c0 + 1
	r1 := r0 + 1
	if c1 > r.Width-1 {
		c1 = c0
	}
	if r1 > r.Height-1 {
		r1 = r0
	}

	fc := col - float64(c0)
	fr := row - float64(r0)

	v00 := r.At(r0, c0)
	v01 := r.At(r0, c1)
	v10 := r.At(r1, c0)
	v11 := r.At(r1, c1)
	if v00 == r.NoData || v01 == r.NoData || v10 == r.NoData || v11 == r.NoData {
		return r.NoData
	}

	top := float64(v00)*(1-fc) + float64(v01)*fc
	bot := float64(v10)*(1-fc) + float64(v11)*fc
	return float32(top*(1-fr) + bot*fr)
}

// PixelCenter returns the projected (x, y) coordinate of the centre of
// pixel (row, col).
func (r *AeqdRaster) PixelCenter(row, col int) (x, y float64) {
	return r.OriginXM + float64(col)*r.PixelSizeM, r.OriginYM - float64(row)*r.PixelSizeM
}

// RowColAt returns the nearest (row, col) for a projected (x, y)
// coordinate.
func (r *AeqdRaster) RowColAt(x, y float64) (row, col int) {
	col = int(math.Round((x - r.OriginXM) / r.PixelSizeM))
	row = int(math.Round((r.OriginYM - y) / r.PixelSizeM))
	return row, col
}

// InBounds reports whether (row, col) addresses a valid cell.
func (r *AeqdRaster) InBounds(row, col int) bool {
	return row >= 0 && row < r.Height && col >= 0 && col < r.Width
}
