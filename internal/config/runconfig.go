// Package config loads the run configuration for the viewshed engine.
//
// RunConfig follows a "pointer-field, partial override" JSON loading
// pattern: every field is a pointer so a JSON file can set only the
// options it cares about, and
// a Get* accessor supplies the default for anything left nil. RunConfig
// is passed explicitly through calls rather than read from a package
// global, so tests never have to reset shared state between cases.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EarthModel names the reference ellipsoid/geoid used for curvature
// calculations. Only WGS84 is supported; the field exists so a future
// model can be added without breaking the JSON schema.
type EarthModel string

// WGS84 is the only supported earth model.
const WGS84 EarthModel = "WGS84"

// AltitudeReference names the vertical datum a sensor's target altitude
// is expressed against.
type AltitudeReference string

const (
	// MSL targets are expressed as mean-sea-level elevation.
	MSL AltitudeReference = "MSL"
	// AGL targets are expressed as height above local ground.
	AGL AltitudeReference = "AGL"
)

// MultiscaleConfig controls how a single sensor's required radius is
// split into concentric annuli of differing pixel resolution.
type MultiscaleConfig struct {
	Enable *bool    `json:"enable,omitempty"`
	NearM  *float64 `json:"near_m,omitempty"`
	MidM   *float64 `json:"mid_m,omitempty"`
	FarM   *float64 `json:"far_m,omitempty"`

	ResNearM *float64 `json:"res_near_m,omitempty"`
	ResMidM  *float64 `json:"res_mid_m,omitempty"`
	ResFarM  *float64 `json:"res_far_m,omitempty"`
}

// StyleConfig controls the appearance attributes an OutputSink embeds
// in emitted polygons. Changing any of these fields invalidates only
// the Tier-2 output artifact, never the Tier-1 MVA cache.
type StyleConfig struct {
	LineColor   *string  `json:"line_color,omitempty"`
	FillColor   *string  `json:"fill_color,omitempty"`
	LineWidth   *float64 `json:"line_width,omitempty"`
	FillOpacity *float64 `json:"fill_opacity,omitempty"`
}

// RunConfig is the root configuration for a viewshed engine run. The
// schema mirrors the recognised options enumerated for this system:
// cache layout, worker pool sizing, sweep resolution, atmosphere,
// multiscale zoning, union behaviour, and output styling.
type RunConfig struct {
	CacheDir              *string  `json:"cache_dir,omitempty"`
	MaxWorkers            *int     `json:"max_workers,omitempty"`
	ReserveCPUs           *int     `json:"reserve_cpus,omitempty"`
	PixelSizeM            *float64 `json:"pixel_size_m,omitempty"`
	MaxRangeKm            *float64 `json:"max_range_km,omitempty"`
	AtmosphericKFactor    *float64 `json:"atmospheric_k_factor,omitempty"`
	EarthModel            *string  `json:"earth_model,omitempty"`
	TargetAltitudeRef     *string  `json:"target_altitude_reference,omitempty"`
	SimplifyToleranceM    *float64 `json:"simplify_tolerance_m,omitempty"`
	UnionOutputs          *bool    `json:"union_outputs,omitempty"`
	DebugHeatmaps         *bool    `json:"debug_heatmaps,omitempty"`

	Multiscale MultiscaleConfig `json:"multiscale,omitempty"`
	Style      StyleConfig      `json:"style,omitempty"`
}

// Helper functions to create pointers.
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRunConfig returns a RunConfig with all fields nil. Use
// LoadRunConfig to populate values from a JSON file.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// LoadRunConfig loads a RunConfig from a JSON file. The file must have
// a .json extension and be under 1MB. Fields omitted from the JSON
// retain their nil zero value, so partial overrides are safe — callers
// read values back out through the Get* accessors, never the raw
// pointer fields.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that set fields hold admissible values. Fields left
// nil are not validated here — they are validated against their
// default at the point of use.
func (c *RunConfig) Validate() error {
	if c.PixelSizeM != nil && *c.PixelSizeM <= 0 {
		return fmt.Errorf("pixel_size_m must be positive, got %f", *c.PixelSizeM)
	}
	if c.MaxRangeKm != nil && *c.MaxRangeKm <= 0 {
		return fmt.Errorf("max_range_km must be positive, got %f", *c.MaxRangeKm)
	}
	if c.AtmosphericKFactor != nil && *c.AtmosphericKFactor <= 0 {
		return fmt.Errorf("atmospheric_k_factor must be positive, got %f", *c.AtmosphericKFactor)
	}
	if c.EarthModel != nil && EarthModel(*c.EarthModel) != WGS84 {
		return fmt.Errorf("earth_model %q is not supported", *c.EarthModel)
	}
	if c.TargetAltitudeRef != nil {
		switch AltitudeReference(*c.TargetAltitudeRef) {
		case MSL, AGL:
		default:
			return fmt.Errorf("target_altitude_reference %q is not supported", *c.TargetAltitudeRef)
		}
	}
	if c.MaxWorkers != nil && *c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be >= 1, got %d", *c.MaxWorkers)
	}
	if c.ReserveCPUs != nil && *c.ReserveCPUs < 0 {
		return fmt.Errorf("reserve_cpus must be >= 0, got %d", *c.ReserveCPUs)
	}
	return nil
}

// GetCacheDir returns cache_dir or the default "./viewshed-cache".
func (c *RunConfig) GetCacheDir() string {
	if c.CacheDir == nil || *c.CacheDir == "" {
		return "./viewshed-cache"
	}
	return *c.CacheDir
}

// GetPixelSizeM returns pixel_size_m or the default 10m.
func (c *RunConfig) GetPixelSizeM() float64 {
	if c.PixelSizeM == nil {
		return 10
	}
	return *c.PixelSizeM
}

// GetMaxRangeKm returns max_range_km or the default 50km.
func (c *RunConfig) GetMaxRangeKm() float64 {
	if c.MaxRangeKm == nil {
		return 50
	}
	return *c.MaxRangeKm
}

// GetAtmosphericKFactor returns atmospheric_k_factor or the standard
// refraction default of 4/3.
func (c *RunConfig) GetAtmosphericKFactor() float64 {
	if c.AtmosphericKFactor == nil {
		return 1.333
	}
	return *c.AtmosphericKFactor
}

// GetEarthModel returns earth_model or the default WGS84.
func (c *RunConfig) GetEarthModel() EarthModel {
	if c.EarthModel == nil {
		return WGS84
	}
	return EarthModel(*c.EarthModel)
}

// GetTargetAltitudeReference returns target_altitude_reference or the
// default MSL.
func (c *RunConfig) GetTargetAltitudeReference() AltitudeReference {
	if c.TargetAltitudeRef == nil {
		return MSL
	}
	return AltitudeReference(*c.TargetAltitudeRef)
}

// GetSimplifyToleranceM returns simplify_tolerance_m or the default,
// one half of the configured pixel size.
func (c *RunConfig) GetSimplifyToleranceM() float64 {
	if c.SimplifyToleranceM == nil {
		return c.GetPixelSizeM() / 2
	}
	return *c.SimplifyToleranceM
}

// GetUnionOutputs returns union_outputs or the default false.
func (c *RunConfig) GetUnionOutputs() bool {
	if c.UnionOutputs == nil {
		return false
	}
	return *c.UnionOutputs
}

// GetDebugHeatmaps returns debug_heatmaps or the default false.
func (c *RunConfig) GetDebugHeatmaps() bool {
	if c.DebugHeatmaps == nil {
		return false
	}
	return *c.DebugHeatmaps
}

// GetReserveCPUs returns reserve_cpus or the default 0.
func (c *RunConfig) GetReserveCPUs() int {
	if c.ReserveCPUs == nil {
		return 0
	}
	return *c.ReserveCPUs
}

// GetMaxWorkers returns max_workers, or a default computed from the
// available CPUs and reserve_cpus when unset: min(cores-reserve,
// 0.8*cores), floored at 1.
func (c *RunConfig) GetMaxWorkers(numCPU int) int {
	if c.MaxWorkers != nil {
		return *c.MaxWorkers
	}
	reserve := c.GetReserveCPUs()
	byReserve := numCPU - reserve
	byFraction := int(0.8 * float64(numCPU))
	workers := byReserve
	if byFraction < workers {
		workers = byFraction
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// GetMultiscaleEnable returns multiscale.enable or the default true.
func (c *RunConfig) GetMultiscaleEnable() bool {
	if c.Multiscale.Enable == nil {
		return true
	}
	return *c.Multiscale.Enable
}

// GetMultiscaleNearM returns multiscale.near_m or the default 2000m.
func (c *RunConfig) GetMultiscaleNearM() float64 {
	if c.Multiscale.NearM == nil {
		return 2000
	}
	return *c.Multiscale.NearM
}

// GetMultiscaleMidM returns multiscale.mid_m or the default 10000m.
func (c *RunConfig) GetMultiscaleMidM() float64 {
	if c.Multiscale.MidM == nil {
		return 10000
	}
	return *c.Multiscale.MidM
}

// GetMultiscaleFarM returns multiscale.far_m or the default 50000m.
func (c *RunConfig) GetMultiscaleFarM() float64 {
	if c.Multiscale.FarM == nil {
		return 50000
	}
	return *c.Multiscale.FarM
}

// GetMultiscaleResNearM returns multiscale.res_near_m or the default,
// the configured pixel size.
func (c *RunConfig) GetMultiscaleResNearM() float64 {
	if c.Multiscale.ResNearM == nil {
		return c.GetPixelSizeM()
	}
	return *c.Multiscale.ResNearM
}

// GetMultiscaleResMidM returns multiscale.res_mid_m or the default,
//4x the configured pixel size.
func (c *RunConfig) GetMultiscaleResMidM() float64 {
	if c.Multiscale.ResMidM == nil {
		return c.GetPixelSizeM() * 4
	}
	return *c.Multiscale.ResMidM
}

// GetMultiscaleResFarM returns multiscale.res_far_m or the default,
// 16x the configured pixel size.
func (c *RunConfig) GetMultiscaleResFarM() float64 {
	if c.Multiscale.ResFarM == nil {
		return c.GetPixelSizeM() * 16
	}
	return *c.Multiscale.ResFarM
}

// GetStyleLineColor returns style.line_color or the default "#ff0000".
func (c *RunConfig) GetStyleLineColor() string {
	if c.Style.LineColor == nil || *c.Style.LineColor == "" {
		return "#ff0000"
	}
	return *c.Style.LineColor
}

// GetStyleFillColor returns style.fill_color or the default "#ff0000".
func (c *RunConfig) GetStyleFillColor() string {
	if c.Style.FillColor == nil || *c.Style.FillColor == "" {
		return "#ff0000"
	}
	return *c.Style.FillColor
}

// GetStyleLineWidth returns style.line_width or the default 2.
func (c *RunConfig) GetStyleLineWidth() float64 {
	if c.Style.LineWidth == nil {
		return 2
	}
	return *c.Style.LineWidth
}

// GetStyleFillOpacity returns style.fill_opacity or the default 0.35.
func (c *RunConfig) GetStyleFillOpacity() float64 {
	if c.Style.FillOpacity == nil {
		return 0.35
	}
	return *c.Style.FillOpacity
}
