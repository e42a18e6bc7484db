package domain

// Candidate is a mint address believed to have been created by a matched
// InitializeMint instruction.
type Candidate struct {
	Mint          string // candidate identifier, base58 account key
	SourceEventID string // signature of the transaction it was extracted from
}
