// Package sensorsource loads sensor definitions from a CSV file using
// encoding/csv.
package sensorsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ridgeline-gis/viewshed/internal/sensor"
)

// Record is one row of the sensor CSV, before conversion into a
// sensor.Sensor: name, latitude/longitude, height above ground, ground
// elevation, altitude mode and refraction k. Every column is required.
type Record struct {
	Name            string
	LatDeg          float64
	LonDeg          float64
	HeightAglM      float64
	GroundElevMslM  float64
	AltitudeMode    sensor.AltitudeMode
	RefractionK     float64
}

var csvHeader = []string{
	"name", "lat", "lon", "height_agl_m", "ground_elev_msl_m", "altitude_mode", "refraction_k",
}

// LoadCSV reads sensor definitions from r. The header row must match
// csvHeader exactly (case-insensitive); altitude_mode accepts
// "clamp_to_ground", "relative_to_ground", or "absolute".
func LoadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sensorsource: reading csv: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("sensorsource: empty csv")
	}

	if err := validateHeader(records[0]); err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(records)-1)
	for i, row := range records[1:] {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("sensorsource: line %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func validateHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return fmt.Errorf("sensorsource: expected %d columns, got %d", len(csvHeader), len(header))
	}
	for i, want := range csvHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != want {
			return fmt.Errorf("sensorsource: expected column %d to be %q, got %q", i, want, header[i])
		}
	}
	return nil
}

func parseRow(row []string) (Record, error) {
	if len(row) != len(csvHeader) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(csvHeader), len(row))
	}

	lat, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid lat: %w", err)
	}
	lon, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid lon: %w", err)
	}
	heightAgl, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid height_agl_m: %w", err)
	}
	groundElev, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid ground_elev_msl_m: %w", err)
	}
	mode, err := parseAltitudeMode(row[5])
	if err != nil {
		return Record{}, err
	}
	k, err := strconv.ParseFloat(row[6], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid refraction_k: %w", err)
	}

	return Record{
		Name:           row[0],
		LatDeg:         lat,
		LonDeg:         lon,
		HeightAglM:     heightAgl,
		GroundElevMslM: groundElev,
		AltitudeMode:   mode,
		RefractionK:    k,
	}, nil
}

func parseAltitudeMode(s string) (sensor.AltitudeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clamp_to_ground":
		return sensor.ClampToGround, nil
	case "relative_to_ground":
		return sensor.RelativeToGround, nil
	case "absolute":
		return sensor.Absolute, nil
	default:
		return "", fmt.Errorf("unrecognised altitude_mode %q", s)
	}
}

// ToSensors converts parsed CSV records into sensor.Sensor values,
// assigning each a synthetic id since the CSV carries only a
// human-readable name.
func ToSensors(records []Record) ([]sensor.Sensor, error) {
	out := make([]sensor.Sensor, 0, len(records))
	for _, rec := range records {
		s, err := sensor.New("", rec.LatDeg, rec.LonDeg, rec.HeightAglM, rec.GroundElevMslM, rec.AltitudeMode, rec.RefractionK)
		if err != nil {
			return nil, fmt.Errorf("sensorsource: building sensor %q: %w", rec.Name, err)
		}
		out = append(out, s)
	}
	return out, nil
}
