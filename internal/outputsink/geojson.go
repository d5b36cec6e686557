// Package outputsink writes a union or per-sensor polygon set to disk
// as GeoJSON, embedding the output fingerprint and the metadata the
// Tier-2 cache depends on for coherence between the on-disk artifact
// and its index entry.
package outputsink

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/ridgeline-gis/viewshed/internal/fsutil"
)

// Metadata carries every fingerprint parameter as a human-readable
// key/value pair, plus the raw hash, so a reader can audit why an
// artifact was (or wasn't) regenerated without recomputing anything.
type Metadata struct {
	OutputFingerprint string            `json:"output_fingerprint"`
	TargetAltitudeM   float64           `json:"target_altitude_m"`
	MaxRangeM         float64           `json:"max_range_m"`
	SensorIDs         []string          `json:"sensor_ids"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// Write serializes polygons as a single GeoJSON FeatureCollection with
// one feature per polygon, its properties holding meta, and atomically
// writes it to path via a temp-file-and-rename so a reader never
// observes a partial file.
func Write(fs fsutil.FileSystem, path string, polygons orb.MultiPolygon, meta Metadata) error {
	fc := geojson.NewFeatureCollection()
	for _, poly := range polygons {
		f := geojson.NewFeature(poly)
		f.Properties["output_fingerprint"] = meta.OutputFingerprint
		f.Properties["target_altitude_m"] = meta.TargetAltitudeM
		f.Properties["max_range_m"] = meta.MaxRangeM
		f.Properties["sensor_ids"] = meta.SensorIDs
		for k, v := range meta.Extra {
			f.Properties[k] = v
		}
		fc.Append(f)
	}

	body, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("outputsink: marshaling geojson: %w", err)
	}

	tmpPath := path + ".tmp.write"
	if err := fs.WriteFile(tmpPath, body, 0o644); err != nil {
		return fmt.Errorf("outputsink: writing temp file: %w", err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("outputsink: renaming temp file into place: %w", err)
	}
	return nil
}
