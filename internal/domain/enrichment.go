package domain

// HolderBalance is one entry of getTokenLargestAccounts, in UI units.
type HolderBalance struct {
	Address string
	Amount  float64
}

// Enrichment holds supply and holder concentration for a candidate.
// Fields of a failed fetch are zero; missing data and zero are not distinguished.
type Enrichment struct {
	Supply           float64 // total supply in UI units
	TopHolderShare   float64 // largest holder, percent of supply
	Top10HolderShare float64 // sum of ten largest holders, percent of supply

	// Display-only metadata, best effort.
	Decimals int
	Name     string
	Symbol   string
}

// HasMetadata reports whether a name or symbol was resolved.
func (e Enrichment) HasMetadata() bool {
	return e.Name != "" || e.Symbol != ""
}
