package domain

import "time"

// AlertMessage is built for every scored candidate and either dispatched or dropped.
type AlertMessage struct {
	AlertID       string
	Candidate     Candidate
	Enrichment    Enrichment
	Score         float64
	SourceEventID string
	DetectedAt    time.Time
}
