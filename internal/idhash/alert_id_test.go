package idhash

import "testing"

func TestComputeAlertID(t *testing.T) {
	tests := []struct {
		name          string
		mint          string
		sourceEventID string
	}{
		{"typical", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"},
		{"empty event", "Mint", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ComputeAlertID(tt.mint, tt.sourceEventID)
			if len(id) != 64 {
				t.Errorf("expected 64 hex chars, got %d", len(id))
			}
			if again := ComputeAlertID(tt.mint, tt.sourceEventID); again != id {
				t.Errorf("expected deterministic id, got %s and %s", id, again)
			}
		})
	}
}

func TestComputeAlertID_DistinctInputs(t *testing.T) {
	a := ComputeAlertID("mintA", "sig1")
	b := ComputeAlertID("mintA", "sig2")
	c := ComputeAlertID("mintB", "sig1")

	if a == b || a == c || b == c {
		t.Errorf("expected distinct ids, got %s %s %s", a, b, c)
	}
}
