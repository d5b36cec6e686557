package cache

import "testing"

func TestFingerprintIndex_PutAndLookup(t *testing.T) {
	dbPath := t.TempDir() + "/index.sqlite"
	idx, err := OpenFingerprintIndex(dbPath)
	if err != nil {
		t.Fatalf("OpenFingerprintIndex: %v", err)
	}
	defer idx.Close()

	if err := idx.Put("fp1", "/out/a.geojson", 1234); err != nil {
		t.Fatalf("Put: %v", err)
	}

	path, ok, err := idx.Lookup("fp1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("Lookup() ok = false, want true")
	}
	if path != "/out/a.geojson" {
		t.Errorf("path = %q, want /out/a.geojson", path)
	}
}

func TestFingerprintIndex_LookupMiss(t *testing.T) {
	dbPath := t.TempDir() + "/index.sqlite"
	idx, err := OpenFingerprintIndex(dbPath)
	if err != nil {
		t.Fatalf("OpenFingerprintIndex: %v", err)
	}
	defer idx.Close()

	_, ok, err := idx.Lookup("missing")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("Lookup() ok = true for missing fingerprint, want false")
	}
}

func TestFingerprintIndex_PutOverwritesExisting(t *testing.T) {
	dbPath := t.TempDir() + "/index.sqlite"
	idx, err := OpenFingerprintIndex(dbPath)
	if err != nil {
		t.Fatalf("OpenFingerprintIndex: %v", err)
	}
	defer idx.Close()

	if err := idx.Put("fp1", "/out/a.geojson", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := idx.Put("fp1", "/out/b.geojson", 2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	path, ok, err := idx.Lookup("fp1")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if path != "/out/b.geojson" {
		t.Errorf("path = %q, want /out/b.geojson (overwritten)", path)
	}
}

func TestFingerprintIndex_ReopenPreservesData(t *testing.T) {
	dbPath := t.TempDir() + "/index.sqlite"
	idx, err := OpenFingerprintIndex(dbPath)
	if err != nil {
		t.Fatalf("OpenFingerprintIndex: %v", err)
	}
	if err := idx.Put("fp1", "/out/a.geojson", 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := OpenFingerprintIndex(dbPath)
	if err != nil {
		t.Fatalf("reopen OpenFingerprintIndex: %v", err)
	}
	defer idx2.Close()

	path, ok, err := idx2.Lookup("fp1")
	if err != nil || !ok {
		t.Fatalf("Lookup after reopen: ok=%v err=%v", ok, err)
	}
	if path != "/out/a.geojson" {
		t.Errorf("path = %q, want /out/a.geojson", path)
	}
}
