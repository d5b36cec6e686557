package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// OutputSchemaVersion is folded into the output fingerprint; bump it
// when the emitted artifact's structure changes in a way that should
// force regeneration even if nothing else changed.
const OutputSchemaVersion = 1

// OutputFingerprint computes the Tier-2 fingerprint for one emitted
// artifact: a hash of the sensor fingerprint, target altitude, max
// range, and style, folding in OutputSchemaVersion. This never
// influences correctness — only whether a write can be skipped.
func OutputFingerprint(sensorFp string, targetAltitudeM, maxRangeM float64, styleFingerprint string) string {
	key := fmt.Sprintf("sfp=%s|alt=%.3f|range=%.3f|style=%s|schema=%d",
		sensorFp, targetAltitudeM, maxRangeM, styleFingerprint, OutputSchemaVersion)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// OutputStateCache decides whether an output artifact can be skipped
// because its FingerprintIndex records the same fingerprint as last
// written to the same path; the file on disk is not inspected. It
// never requires the index: ShouldWrite degrades to "always write" if
// idx is nil.
type OutputStateCache struct {
	idx *FingerprintIndex
}

// NewOutputStateCache returns a Tier-2 cache backed by idx. idx may be
// nil, in which case every write proceeds (the index is purely an
// optimization, never a correctness gate).
func NewOutputStateCache(idx *FingerprintIndex) *OutputStateCache {
	return &OutputStateCache{idx: idx}
}

// ShouldWrite reports whether path needs to be (re)written for the
// given fingerprint: false only when the index already has this exact
// fingerprint recorded against this exact path. Callers that can
// cheaply read an existing artifact's own embedded fingerprint should
// prefer that check over trusting a possibly-stale index entry, since
// this tier never gates correctness.
func (c *OutputStateCache) ShouldWrite(fp, path string) (bool, error) {
	if c.idx == nil {
		return true, nil
	}
	recordedPath, ok, err := c.idx.Lookup(fp)
	if err != nil {
		// A broken index must never block a write; recompute.
		return true, nil
	}
	if !ok {
		return true, nil
	}
	return recordedPath != path, nil
}

// RecordWrite updates the index after a write completes.
func (c *OutputStateCache) RecordWrite(fp, path string, writtenUnixNanos int64) error {
	if c.idx == nil {
		return nil
	}
	return c.idx.Put(fp, path, writtenUnixNanos)
}
