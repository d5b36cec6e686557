package sensor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ridgeline-gis/viewshed/internal/zone"
)

// CacheSchemaVersion is bumped whenever the Tier-1 artifact layout
// changes in a way that invalidates previously written caches.
const CacheSchemaVersion = 1

// Fingerprint is the Tier-1 cache key for one (sensor, zone) unit. It
// intentionally excludes target altitude: varying target altitude must
// never invalidate a cached MVA raster.
func Fingerprint(s Sensor, z zone.Zone, earthModel string) string {
	// Round each component to a fixed precision before hashing, so that
	// float formatting noise below that precision never changes the key.
	key := fmt.Sprintf(
		"lat=%.6f|lon=%.6f|ground=%.1f|agl=%.2f|k=%.4f|zmin=%.3f|zmax=%.3f|zpx=%.3f|earth=%s|schema=%d",
		s.LatitudeDeg,
		s.LongitudeDeg,
		s.GroundElevMslM,
		s.SensorHeightAglM,
		s.RefractionK,
		z.RMinM,
		z.RMaxM,
		z.PixelSizeM,
		earthModel,
		CacheSchemaVersion,
	)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// PhysicalFingerprint hashes the physical parameters of s that Fingerprint
// also covers, minus any one zone's bounds. It is used as the Tier-2
// output-cache input for a sensor, so that a sensor whose lat/lon/height
// changes while keeping the same ID still invalidates stale Tier-2 entries.
func PhysicalFingerprint(s Sensor, earthModel string) string {
	key := fmt.Sprintf(
		"lat=%.6f|lon=%.6f|ground=%.1f|agl=%.2f|k=%.4f|earth=%s|schema=%d",
		s.LatitudeDeg,
		s.LongitudeDeg,
		s.GroundElevMslM,
		s.SensorHeightAglM,
		s.RefractionK,
		earthModel,
		CacheSchemaVersion,
	)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
