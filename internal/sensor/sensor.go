// Package sensor defines the sensor model the viewshed engine computes
// against and the fingerprinting that keys the Tier-1 cache.
package sensor

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// AltitudeMode controls how a sensor's effective MSL height is derived.
type AltitudeMode string

const (
	// ClampToGround pins the sensor to the DEM-sampled ground elevation
	// plus its AGL height.
	ClampToGround AltitudeMode = "ClampToGround"
	// RelativeToGround is the same computation as ClampToGround; the
	// distinction exists for callers that want to preserve the source
	// document's semantic tag.
	RelativeToGround AltitudeMode = "RelativeToGround"
	// Absolute takes SensorHeightAglM as the sensor's MSL height
	// directly, ignoring ground elevation.
	Absolute AltitudeMode = "Absolute"
)

// Sensor is a single ground-based observer. It is constructed once per
// request and immutable afterward.
type Sensor struct {
	ID               string
	LatitudeDeg      float64
	LongitudeDeg     float64
	SensorHeightAglM float64
	GroundElevMslM   float64
	AltitudeMode     AltitudeMode
	RefractionK      float64
}

// New validates and constructs a Sensor, assigning a synthetic UUID-
// based id when none is supplied, matching the corpus convention of
// never leaving an empty identifier in persisted records.
func New(id string, latDeg, lonDeg, heightAglM, groundElevMslM float64, mode AltitudeMode, refractionK float64) (Sensor, error) {
	if math.IsNaN(latDeg) || math.IsInf(latDeg, 0) || latDeg < -90 || latDeg > 90 {
		return Sensor{}, fmt.Errorf("sensor: invalid latitude %v", latDeg)
	}
	if math.IsNaN(lonDeg) || math.IsInf(lonDeg, 0) || lonDeg < -180 || lonDeg > 180 {
		return Sensor{}, fmt.Errorf("sensor: invalid longitude %v", lonDeg)
	}
	if math.IsNaN(heightAglM) || math.IsInf(heightAglM, 0) {
		return Sensor{}, fmt.Errorf("sensor: invalid sensor_height_agl_m %v", heightAglM)
	}
	if math.IsNaN(groundElevMslM) || math.IsInf(groundElevMslM, 0) {
		return Sensor{}, fmt.Errorf("sensor: invalid ground_elev_msl_m %v", groundElevMslM)
	}
	if math.IsNaN(refractionK) || math.IsInf(refractionK, 0) || refractionK <= 0 {
		return Sensor{}, fmt.Errorf("sensor: invalid refraction_k %v", refractionK)
	}
	switch mode {
	case ClampToGround, RelativeToGround, Absolute:
	default:
		return Sensor{}, fmt.Errorf("sensor: unknown altitude mode %q", mode)
	}

	if id == "" {
		id = uuid.NewString()
	}

	return Sensor{
		ID:               id,
		LatitudeDeg:       latDeg,
		LongitudeDeg:      lonDeg,
		SensorHeightAglM:  heightAglM,
		GroundElevMslM:    groundElevMslM,
		AltitudeMode:      mode,
		RefractionK:       refractionK,
	}, nil
}

// EffectiveHeightMslM returns the sensor's height above MSL used as
// the MVA sweep's observer height.
func (s Sensor) EffectiveHeightMslM() float64 {
	switch s.AltitudeMode {
	case Absolute:
		return s.SensorHeightAglM
	default:
		return s.GroundElevMslM + s.SensorHeightAglM
	}
}
