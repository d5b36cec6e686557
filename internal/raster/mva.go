package raster

import "math"

// MvaNeverVisible is the sentinel used in an in-memory MVA raster for
// "never visible at any altitude within numeric range".
var MvaNeverVisible = float32(math.Inf(1))

// MvaQuantScaleM is the on-disk quantisation scale for MVA values.
const MvaQuantScaleM = 0.5

// MvaQuantNoData is the on-disk sentinel for "never visible" and for
// cells outside the computed annulus.
const MvaQuantNoData = uint16(65535)

// MvaQuantMax is the largest quantised value below the NoData
// sentinel (MvaQuantMax*MvaQuantScaleM = 32767 m).
const MvaQuantMax = uint16(65534)

// NBoundaryAz is the fixed resolution (0.025 degree steps) of a
// persisted BoundaryHorizon vector, chosen to allow future radial
// extension of a cached sensor without recomputing the interior.
const NBoundaryAz = 14400

// QuantizeMVA converts a float32 MVA raster to its on-disk UInt16
// form, scale 0.5m, NoData=65535. Values above
// MvaQuantMax*MvaQuantScaleM, NaN, or +Inf (MvaNeverVisible) are
// stored as NoData; negative values, including -Inf, are stored as 0.
func QuantizeMVA(data []float32) []uint16 {
	out := make([]uint16, len(data))
	for i, v := range data {
		if math.IsInf(float64(v), 1) || math.IsNaN(float64(v)) {
			out[i] = MvaQuantNoData
			continue
		}
		q := v / MvaQuantScaleM
		if q < 0 {
			q = 0
		}
		if q > float32(MvaQuantMax) {
			out[i] = MvaQuantNoData
			continue
		}
		out[i] = uint16(math.Round(float64(q)))
	}
	return out
}

// DequantizeMVA converts an on-disk UInt16 MVA raster back to float32
// metres, mapping NoData to MvaNeverVisible.
func DequantizeMVA(data []uint16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		if v == MvaQuantNoData {
			out[i] = MvaNeverVisible
			continue
		}
		out[i] = float32(v) * MvaQuantScaleM
	}
	return out
}

// NormalizeBoundaryHorizon resamples a boundary array of length nAz
// (the running maximum elevation angle per azimuth, evenly spaced
// starting at azimuth 0) onto the fixed NBoundaryAz resolution by
// nearest-azimuth lookup. If nAz already equals NBoundaryAz the input
// is copied unchanged.
func NormalizeBoundaryHorizon(boundary []float32, nAz int) []float32 {
	out := make([]float32, NBoundaryAz)
	if nAz <= 0 {
		return out
	}
	if nAz == NBoundaryAz {
		copy(out, boundary)
		return out
	}
	for i := 0; i < NBoundaryAz; i++ {
		azFrac := float64(i) / float64(NBoundaryAz)
		j := int(math.Round(azFrac*float64(nAz))) % nAz
		out[i] = boundary[j]
	}
	return out
}

// DenormalizeBoundaryHorizon samples a NBoundaryAz-length boundary
// vector back down to nAz samples by nearest-azimuth lookup, the
// inverse operation used when a zone's computation requests a
// starting_boundary at its own (usually coarser) azimuth count.
func DenormalizeBoundaryHorizon(boundary []float32, nAz int) []float32 {
	out := make([]float32, nAz)
	for j := 0; j < nAz; j++ {
		azFrac := float64(j) / float64(nAz)
		i := int(math.Round(azFrac*float64(NBoundaryAz))) % NBoundaryAz
		out[j] = boundary[i]
	}
	return out
}
