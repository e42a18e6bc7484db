package solana

import (
	"context"
	"errors"
)

// ErrTransactionNotFound is returned when the node has no record of a signature.
var ErrTransactionNotFound = errors.New("transaction not found")

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns ErrTransactionNotFound when the node returns a null result.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetTokenSupply retrieves the total supply of a mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error)

	// GetTokenLargestAccounts retrieves the largest token accounts of a mint,
	// ordered by balance descending.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)

	// GetAccountInfo retrieves raw account data. Returns nil, nil if the
	// account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err             interface{}
	LogMessages     []string
	LoadedAddresses LoadedAddresses
}

// LoadedAddresses are the accounts resolved from address lookup tables
// of a versioned transaction.
type LoadedAddresses struct {
	Writable []string
	Readonly []string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []CompiledInstruction
}

// CompiledInstruction is a top-level instruction with index-based references.
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
}

// AllAccountKeys returns the static keys followed by loaded writable and
// loaded readonly addresses, the order instruction indexes refer to.
func (t *Transaction) AllAccountKeys() []string {
	if t == nil || t.Message == nil {
		return nil
	}
	keys := make([]string, 0, len(t.Message.AccountKeys))
	keys = append(keys, t.Message.AccountKeys...)
	if t.Meta != nil {
		keys = append(keys, t.Meta.LoadedAddresses.Writable...)
		keys = append(keys, t.Meta.LoadedAddresses.Readonly...)
	}
	return keys
}
