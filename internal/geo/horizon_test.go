package geo

import (
	"math"
	"testing"
)

func TestLocalEarthRadius_Equator(t *testing.T) {
	r, err := LocalEarthRadius(0)
	if err != nil {
		t.Fatalf("LocalEarthRadius: %v", err)
	}
	// At the equator M = a(1-e²) and N = a, so the Gaussian mean radius
	// sqrt(MN) is a*sqrt(1-e²), about 21.4 km below the semi-major axis.
	want := WGS84SemiMajorAxisM * math.Sqrt(1-wgs84EccentricitySquared)
	if math.Abs(r-want) > 1 {
		t.Errorf("LocalEarthRadius(0) = %v, want %v", r, want)
	}
}

func TestLocalEarthRadius_RejectsOutOfRange(t *testing.T) {
	if _, err := LocalEarthRadius(95); err == nil {
		t.Error("LocalEarthRadius(95), want error")
	}
	if _, err := LocalEarthRadius(math.NaN()); err == nil {
		t.Error("LocalEarthRadius(NaN), want error")
	}
}

func TestEffectiveRadius(t *testing.T) {
	rLocal, _ := LocalEarthRadius(45)
	rEff, err := EffectiveRadius(1.333, 45)
	if err != nil {
		t.Fatalf("EffectiveRadius: %v", err)
	}
	want := 1.333 * rLocal
	if math.Abs(rEff-want) > 1 {
		t.Errorf("EffectiveRadius = %v, want %v", rEff, want)
	}
}

func TestEffectiveRadius_RejectsNonPositiveK(t *testing.T) {
	if _, err := EffectiveRadius(0, 45); err == nil {
		t.Error("EffectiveRadius(0, 45), want error")
	}
	if _, err := EffectiveRadius(-1, 45); err == nil {
		t.Error("EffectiveRadius(-1, 45), want error")
	}
}

func TestCurvatureDrop(t *testing.T) {
	rEff := 8500000.0
	d := 10000.0
	want := d * d / (2 * rEff)
	if got := CurvatureDrop(d, rEff); got != want {
		t.Errorf("CurvatureDrop(%v, %v) = %v, want %v", d, rEff, got, want)
	}
}

func TestHorizonDistance_ReducesWhenTargetAtZero(t *testing.T) {
	rEff := 8500000.0
	d, err := HorizonDistance(10, 0, rEff, 1e9)
	if err != nil {
		t.Fatalf("HorizonDistance: %v", err)
	}
	want := math.Sqrt(2 * rEff * 10)
	if math.Abs(d-want) > 1e-6 {
		t.Errorf("HorizonDistance(10,0) = %v, want %v", d, want)
	}
}

func TestHorizonDistance_IncreasesInBothHeights(t *testing.T) {
	rEff := 8500000.0
	d1, _ := HorizonDistance(10, 0, rEff, 1e9)
	d2, _ := HorizonDistance(20, 0, rEff, 1e9)
	d3, _ := HorizonDistance(10, 50, rEff, 1e9)

	if !(d2 > d1) {
		t.Errorf("HorizonDistance should strictly increase in hr: d1=%v d2=%v", d1, d2)
	}
	if !(d3 > d1) {
		t.Errorf("HorizonDistance should strictly increase in ht: d1=%v d3=%v", d1, d3)
	}
}

func TestHorizonDistance_ClampedByMaxRange(t *testing.T) {
	rEff := 8500000.0
	d, err := HorizonDistance(10000, 10000, rEff, 5000)
	if err != nil {
		t.Fatalf("HorizonDistance: %v", err)
	}
	if d != 5000 {
		t.Errorf("HorizonDistance = %v, want clamped to 5000", d)
	}
}

func TestHorizonDistance_RejectsNegativeHeights(t *testing.T) {
	if _, err := HorizonDistance(-1, 0, 8500000, 1e9); err == nil {
		t.Error("HorizonDistance(-1, ...), want error")
	}
}

func TestHorizonDistance_RejectsNonFinite(t *testing.T) {
	if _, err := HorizonDistance(math.Inf(1), 0, 8500000, 1e9); err == nil {
		t.Error("HorizonDistance(+Inf, ...), want error")
	}
}
