package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyRunConfig_Defaults(t *testing.T) {
	cfg := EmptyRunConfig()

	if got, want := cfg.GetCacheDir(), "./viewshed-cache"; got != want {
		t.Errorf("GetCacheDir() = %q, want %q", got, want)
	}
	if got, want := cfg.GetPixelSizeM(), 10.0; got != want {
		t.Errorf("GetPixelSizeM() = %v, want %v", got, want)
	}
	if got, want := cfg.GetAtmosphericKFactor(), 1.333; got != want {
		t.Errorf("GetAtmosphericKFactor() = %v, want %v", got, want)
	}
	if got, want := cfg.GetEarthModel(), WGS84; got != want {
		t.Errorf("GetEarthModel() = %v, want %v", got, want)
	}
	if got, want := cfg.GetTargetAltitudeReference(), MSL; got != want {
		t.Errorf("GetTargetAltitudeReference() = %v, want %v", got, want)
	}
	if got, want := cfg.GetUnionOutputs(), false; got != want {
		t.Errorf("GetUnionOutputs() = %v, want %v", got, want)
	}
	if got, want := cfg.GetSimplifyToleranceM(), 5.0; got != want {
		t.Errorf("GetSimplifyToleranceM() = %v, want %v (half of pixel size)", got, want)
	}
}

func TestRunConfig_MaxWorkersDefault(t *testing.T) {
	cfg := EmptyRunConfig()

	// 8 cores, default reserve 0 -> min(8, int(0.8*8)=6) = 6
	if got, want := cfg.GetMaxWorkers(8), 6; got != want {
		t.Errorf("GetMaxWorkers(8) = %d, want %d", got, want)
	}

	cfg.ReserveCPUs = ptrInt(6)
	// 8 cores, reserve 6 -> min(2, 6) = 2
	if got, want := cfg.GetMaxWorkers(8), 2; got != want {
		t.Errorf("GetMaxWorkers(8) with reserve=6 = %d, want %d", got, want)
	}

	cfg.ReserveCPUs = ptrInt(100)
	if got, want := cfg.GetMaxWorkers(8), 1; got != want {
		t.Errorf("GetMaxWorkers(8) with reserve=100 = %d, want %d (floored at 1)", got, want)
	}
}

func TestRunConfig_MaxWorkersExplicit(t *testing.T) {
	cfg := EmptyRunConfig()
	cfg.MaxWorkers = ptrInt(3)

	if got, want := cfg.GetMaxWorkers(64), 3; got != want {
		t.Errorf("GetMaxWorkers(64) = %d, want %d", got, want)
	}
}

func TestRunConfig_MultiscaleDefaults(t *testing.T) {
	cfg := EmptyRunConfig()

	if !cfg.GetMultiscaleEnable() {
		t.Error("GetMultiscaleEnable() = false, want true")
	}
	if got, want := cfg.GetMultiscaleNearM(), 2000.0; got != want {
		t.Errorf("GetMultiscaleNearM() = %v, want %v", got, want)
	}
	if got, want := cfg.GetMultiscaleResNearM(), cfg.GetPixelSizeM(); got != want {
		t.Errorf("GetMultiscaleResNearM() = %v, want %v (pixel size)", got, want)
	}
	if got, want := cfg.GetMultiscaleResMidM(), cfg.GetPixelSizeM()*4; got != want {
		t.Errorf("GetMultiscaleResMidM() = %v, want %v", got, want)
	}
}

func TestRunConfig_StyleDefaults(t *testing.T) {
	cfg := EmptyRunConfig()

	if got, want := cfg.GetStyleLineWidth(), 2.0; got != want {
		t.Errorf("GetStyleLineWidth() = %v, want %v", got, want)
	}
	if got, want := cfg.GetStyleFillOpacity(), 0.35; got != want {
		t.Errorf("GetStyleFillOpacity() = %v, want %v", got, want)
	}
}

func TestRunConfig_Validate(t *testing.T) {
	cfg := EmptyRunConfig()
	cfg.PixelSizeM = ptrFloat64(-1)

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with negative pixel_size_m, want error")
	}

	cfg = EmptyRunConfig()
	cfg.EarthModel = ptrString("NAD83")
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with unsupported earth_model, want error")
	}

	cfg = EmptyRunConfig()
	cfg.TargetAltitudeRef = ptrString("bogus")
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with unsupported target_altitude_reference, want error")
	}
}

func TestLoadRunConfig_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	contents := `{
		"cache_dir": "/var/cache/viewshed",
		"pixel_size_m": 25,
		"style": {"fill_color": "#00ff00"},
		"multiscale": {"enable": false}
	}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadRunConfig(path)
	if err != nil {
		t.Fatalf("LoadRunConfig: %v", err)
	}

	if got, want := cfg.GetCacheDir(), "/var/cache/viewshed"; got != want {
		t.Errorf("GetCacheDir() = %q, want %q", got, want)
	}
	if got, want := cfg.GetPixelSizeM(), 25.0; got != want {
		t.Errorf("GetPixelSizeM() = %v, want %v", got, want)
	}
	if got, want := cfg.GetStyleFillColor(), "#00ff00"; got != want {
		t.Errorf("GetStyleFillColor() = %q, want %q", got, want)
	}
	if cfg.GetMultiscaleEnable() {
		t.Error("GetMultiscaleEnable() = true, want false (explicit override)")
	}
	// Omitted fields keep library defaults.
	if got, want := cfg.GetAtmosphericKFactor(), 1.333; got != want {
		t.Errorf("GetAtmosphericKFactor() = %v, want %v (unset default)", got, want)
	}
}

func TestLoadRunConfig_RejectsNonJSONExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadRunConfig(path); err == nil {
		t.Error("LoadRunConfig() with .yaml extension, want error")
	}
}

func TestLoadRunConfig_RejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	big := make([]byte, 2*1024*1024)
	for i := range big {
		big[i] = ' '
	}
	if err := os.WriteFile(path, big, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadRunConfig(path); err == nil {
		t.Error("LoadRunConfig() with oversized file, want error")
	}
}
