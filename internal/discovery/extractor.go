package discovery

import (
	"github.com/mr-tron/base58"

	"mint-watch/internal/domain"
)

// Extractor pulls new-mint candidates out of a loaded transaction.
type Extractor struct {
	programID string
}

// NewExtractor creates an extractor matching instructions of programID.
func NewExtractor(programID string) *Extractor {
	return &Extractor{programID: programID}
}

// Extract returns one candidate per matching instruction, in instruction order.
// The first account of a matching instruction is taken as the mint.
// Duplicates within one event are kept; the candidate dedup gate drops them.
func (e *Extractor) Extract(ev domain.RawEvent) []domain.Candidate {
	var candidates []domain.Candidate

	for _, ix := range ev.Instructions {
		program, ok := ev.AccountKey(ix.ProgramIDIndex)
		if !ok || program != e.programID {
			continue
		}
		if len(ix.Accounts) == 0 {
			continue
		}
		mint, ok := ev.AccountKey(ix.Accounts[0])
		if !ok || !IsValidAddress(mint) {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Mint:          mint,
			SourceEventID: ev.EventID,
		})
	}

	return candidates
}

// IsValidAddress reports whether s is a base58-encoded 32-byte public key.
func IsValidAddress(s string) bool {
	if s == "" {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}
