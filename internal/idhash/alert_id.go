package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeAlertID computes a deterministic alert_id using SHA256.
// Formula: SHA256(mint|source_event_id)
// Returns hex-encoded hash (64 characters).
func ComputeAlertID(mint, sourceEventID string) string {
	data := fmt.Sprintf("%s|%s", mint, sourceEventID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
