package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"mint-watch/internal/domain"
)

// DefaultExplorerBase is the block explorer used for transaction links.
const DefaultExplorerBase = "https://explorer.solana.com"

// Formatter renders alert text.
type Formatter struct {
	explorerBase string
}

// NewFormatter creates a Formatter; an empty base uses DefaultExplorerBase.
func NewFormatter(explorerBase string) *Formatter {
	if explorerBase == "" {
		explorerBase = DefaultExplorerBase
	}
	return &Formatter{explorerBase: strings.TrimRight(explorerBase, "/")}
}

// TxURL returns the explorer link for a transaction signature.
func (f *Formatter) TxURL(signature string) string {
	return f.explorerBase + "/tx/" + signature
}

// FormatText renders the multi-line alert body.
func (f *Formatter) FormatText(msg domain.AlertMessage) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New token detected | Mint: %s\n", msg.Candidate.Mint)
	if msg.Enrichment.HasMetadata() {
		fmt.Fprintf(&b, "Token: %s\n", tokenLabel(msg.Enrichment))
	}
	fmt.Fprintf(&b, "Supply: %s\n", formatSupply(msg.Enrichment.Supply))
	fmt.Fprintf(&b, "Top1: %.2f%% | Top10: %.2f%%\n", msg.Enrichment.TopHolderShare, msg.Enrichment.Top10HolderShare)
	fmt.Fprintf(&b, "Risk score: %.3f\n", msg.Score)
	fmt.Fprintf(&b, "Tx: %s", f.TxURL(msg.SourceEventID))

	return b.String()
}

func tokenLabel(e domain.Enrichment) string {
	switch {
	case e.Name != "" && e.Symbol != "":
		return fmt.Sprintf("%s (%s)", e.Name, e.Symbol)
	case e.Name != "":
		return e.Name
	default:
		return e.Symbol
	}
}

// formatSupply prints the shortest exact decimal form, e.g. 1000000000 or 12.5.
func formatSupply(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
