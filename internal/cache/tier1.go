// Package cache implements the two-tier cache: a persistent per-sensor
// MVA raster store (Tier 1) and a per-output fingerprint skip cache
// (Tier 2). Artifact serialization uses gob+gzip persistence; writes
// are atomic via internal/fsutil's temp-file-and-rename discipline.
package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/ridgeline-gis/viewshed/internal/fsutil"
	"github.com/ridgeline-gis/viewshed/internal/raster"
	"github.com/ridgeline-gis/viewshed/internal/timeutil"
)

// Tier1SchemaVersion is bumped whenever the on-disk artifact layout
// changes incompatibly; Lookup treats an artifact whose stored
// SchemaVersion differs from it as absent. (sensor.Fingerprint folds
// its own, separate sensor.CacheSchemaVersion into the cache key.)
const Tier1SchemaVersion = 1

// Entry is one (sensor, zone) Tier-1 cache record.
type Entry struct {
	Mva             *raster.AeqdRaster
	OuterRadiusM    float64
	BoundaryHorizon []float32
}

// tier1Artifact is the gob-serialized, gzip-compressed body of a Tier-1
// cache file: the quantised MVA raster, its georeference, and the
// boundary horizon needed for possible future radial extension.
type tier1Artifact struct {
	SchemaVersion   int
	OriginXM        float64
	OriginYM        float64
	PixelSizeM      float64
	Width           int
	Height          int
	OuterRadiusM    float64
	MvaQuantized    []uint16
	BoundaryHorizon []float32
}

// tier1Sidecar is the human-readable JSON metadata written alongside
// each compressed artifact.
type tier1Sidecar struct {
	SchemaVersion     int    `json:"schema_version"`
	SensorFingerprint string `json:"sensor_fingerprint"`
	ZoneIndex         int    `json:"zone_index"`
	WrittenUnixNanos  int64  `json:"written_unix_nanos"`
	OuterRadiusM      float64 `json:"outer_radius_m"`
}

// ViewshedCache is the Tier-1 content-addressable store, keyed by
// sensor fingerprint and zone index.
type ViewshedCache struct {
	fs    fsutil.FileSystem
	clock timeutil.Clock
	dir   string
}

// NewViewshedCache returns a ViewshedCache rooted at dir (typically
// "<cache_dir>/viewsheds").
func NewViewshedCache(fs fsutil.FileSystem, clock timeutil.Clock, dir string) *ViewshedCache {
	return &ViewshedCache{fs: fs, clock: clock, dir: dir}
}

func (c *ViewshedCache) artifactPath(sensorFp string, zoneIndex int) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%d.bin", sensorFp, zoneIndex))
}

func (c *ViewshedCache) sidecarPath(sensorFp string, zoneIndex int) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%d.json", sensorFp, zoneIndex))
}

// Lookup returns the cached entry for (sensorFp, zoneIndex), if
// present and readable. A corrupt or version-mismatched artifact is
// treated as absent, per the CorruptCacheArtifact error taxonomy: the
// caller recomputes.
func (c *ViewshedCache) Lookup(sensorFp string, zoneIndex int) (Entry, bool, error) {
	path := c.artifactPath(sensorFp, zoneIndex)
	if !c.fs.Exists(path) {
		return Entry{}, false, nil
	}

	blob, err := c.fs.ReadFile(path)
	if err != nil {
		return Entry{}, false, nil
	}

	art, err := deserializeTier1(blob)
	if err != nil {
		return Entry{}, false, nil
	}
	if art.SchemaVersion != Tier1SchemaVersion {
		return Entry{}, false, nil
	}

	aeqd := raster.NewAeqdRaster(art.OriginXM, art.OriginYM, art.PixelSizeM, art.Width, art.Height, raster.MvaNeverVisible)
	aeqd.Data = raster.DequantizeMVA(art.MvaQuantized)

	return Entry{
		Mva:             aeqd,
		OuterRadiusM:    art.OuterRadiusM,
		BoundaryHorizon: art.BoundaryHorizon,
	}, true, nil
}

// Store atomically writes entry under (sensorFp, zoneIndex). An
// existing entry is only replaced if entry.OuterRadiusM is >= the
// existing entry's; otherwise Store is a no-op and returns nil.
func (c *ViewshedCache) Store(sensorFp string, zoneIndex int, entry Entry) error {
	if existing, ok, err := c.Lookup(sensorFp, zoneIndex); err == nil && ok {
		if entry.OuterRadiusM < existing.OuterRadiusM {
			return nil
		}
	}

	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache: creating cache dir: %w", err)
	}

	art := tier1Artifact{
		SchemaVersion:   Tier1SchemaVersion,
		OriginXM:        entry.Mva.OriginXM,
		OriginYM:        entry.Mva.OriginYM,
		PixelSizeM:      entry.Mva.PixelSizeM,
		Width:           entry.Mva.Width,
		Height:          entry.Mva.Height,
		OuterRadiusM:    entry.OuterRadiusM,
		MvaQuantized:    raster.QuantizeMVA(entry.Mva.Data),
		BoundaryHorizon: entry.BoundaryHorizon,
	}

	blob, err := serializeTier1(art)
	if err != nil {
		return fmt.Errorf("cache: serializing artifact: %w", err)
	}

	finalPath := c.artifactPath(sensorFp, zoneIndex)
	if err := atomicWrite(c.fs, finalPath, blob); err != nil {
		return err
	}

	sidecar := tier1Sidecar{
		SchemaVersion:     Tier1SchemaVersion,
		SensorFingerprint: sensorFp,
		ZoneIndex:         zoneIndex,
		WrittenUnixNanos:  c.clock.Now().UnixNano(),
		OuterRadiusM:      entry.OuterRadiusM,
	}
	sidecarBytes, err := json.Marshal(sidecar)
	if err != nil {
		return fmt.Errorf("cache: marshaling sidecar: %w", err)
	}
	return atomicWrite(c.fs, c.sidecarPath(sensorFp, zoneIndex), sidecarBytes)
}

// CleanupTemps removes any "*.tmp.*" files left behind by an
// interrupted write, run on both startup and shutdown.
func (c *ViewshedCache) CleanupTemps() error {
	return cleanupTemps(c.fs, c.dir)
}

func serializeTier1(art tier1Artifact) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(art); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deserializeTier1(blob []byte) (tier1Artifact, error) {
	if len(blob) == 0 {
		return tier1Artifact{}, fmt.Errorf("cache: empty artifact blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return tier1Artifact{}, fmt.Errorf("cache: creating gzip reader: %w", err)
	}
	defer gz.Close()

	var art tier1Artifact
	dec := gob.NewDecoder(gz)
	if err := dec.Decode(&art); err != nil {
		return tier1Artifact{}, fmt.Errorf("cache: decoding artifact: %w", err)
	}
	return art, nil
}

// atomicWrite writes data to a temp file beside path and renames it
// into place, so a reader never observes a partially written artifact.
func atomicWrite(fs fsutil.FileSystem, path string, data []byte) error {
	tmpPath := path + ".tmp." + tempSuffix()
	if err := fs.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("cache: writing temp file: %w", err)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("cache: renaming temp file into place: %w", err)
	}
	return nil
}

var tempSuffixCounter uint64

func tempSuffix() string {
	return fmt.Sprintf("%d", atomic.AddUint64(&tempSuffixCounter, 1))
}

func cleanupTemps(fs fsutil.FileSystem, dir string) error {
	matches, err := fs.Glob(filepath.Join(dir, "*.tmp.*"))
	if err != nil {
		return fmt.Errorf("cache: globbing temp files: %w", err)
	}
	for _, m := range matches {
		if !strings.Contains(filepath.Base(m), ".tmp.") {
			continue
		}
		if err := fs.Remove(m); err != nil {
			return fmt.Errorf("cache: removing temp file %q: %w", m, err)
		}
	}
	return nil
}
