package feed

import (
	"context"
	"fmt"

	"mint-watch/internal/domain"
	"mint-watch/internal/solana"
)

// Loader completes feed events with their transaction message.
// Logs notifications carry only signature and logs.
type Loader struct {
	rpc solana.RPCClient
}

// NewLoader creates a Loader.
func NewLoader(rpc solana.RPCClient) *Loader {
	return &Loader{rpc: rpc}
}

// Load returns ev with account keys and instructions filled in.
// Events that already carry account keys are returned unchanged.
func (l *Loader) Load(ctx context.Context, ev domain.RawEvent) (domain.RawEvent, error) {
	if ev.HasTransaction() {
		return ev, nil
	}

	tx, err := l.rpc.GetTransaction(ctx, ev.EventID)
	if err != nil {
		return ev, fmt.Errorf("load transaction %s: %w", ev.EventID, err)
	}
	if tx == nil || tx.Message == nil {
		return ev, fmt.Errorf("load transaction %s: %w", ev.EventID, solana.ErrTransactionNotFound)
	}

	out := ev
	out.AccountKeys = tx.AllAccountKeys()
	out.Instructions = make([]domain.Instruction, 0, len(tx.Message.Instructions))
	for _, ix := range tx.Message.Instructions {
		out.Instructions = append(out.Instructions, domain.Instruction{
			ProgramIDIndex: ix.ProgramIDIndex,
			Accounts:       ix.Accounts,
		})
	}

	if out.Slot == 0 {
		out.Slot = tx.Slot
	}
	if tx.Meta != nil {
		if len(out.LogLines) == 0 {
			out.LogLines = tx.Meta.LogMessages
		}
		if out.Err == nil {
			out.Err = tx.Meta.Err
		}
	}

	return out, nil
}
