package stub

import (
	"context"
	"errors"
	"sync"

	"mint-watch/internal/solana"
)

// ErrNotFound is returned when a mint has no stubbed value.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
// Per-method errors take precedence over stored values.
type RPCClient struct {
	mu sync.Mutex

	Transactions map[string]*solana.Transaction
	Supplies     map[string]*solana.TokenAmount
	Holders      map[string][]solana.TokenAccountBalance
	Accounts     map[string]*solana.AccountInfo

	TransactionErr error
	SupplyErr      error
	HoldersErr     error
	AccountErr     error

	calls map[string]int
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions: make(map[string]*solana.Transaction),
		Supplies:     make(map[string]*solana.TokenAmount),
		Holders:      make(map[string][]solana.TokenAccountBalance),
		Accounts:     make(map[string]*solana.AccountInfo),
		calls:        make(map[string]int),
	}
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getTransaction"]++

	if c.TransactionErr != nil {
		return nil, c.TransactionErr
	}
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, solana.ErrTransactionNotFound
	}
	return tx, nil
}

// GetTokenSupply returns the stubbed supply of a mint.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getTokenSupply"]++

	if c.SupplyErr != nil {
		return nil, c.SupplyErr
	}
	supply, ok := c.Supplies[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return supply, nil
}

// GetTokenLargestAccounts returns the stubbed holders of a mint.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getTokenLargestAccounts"]++

	if c.HoldersErr != nil {
		return nil, c.HoldersErr
	}
	holders, ok := c.Holders[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return holders, nil
}

// GetAccountInfo returns the stubbed account, nil when absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["getAccountInfo"]++

	if c.AccountErr != nil {
		return nil, c.AccountErr
	}
	return c.Accounts[pubkey], nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[tx.Signature] = tx
}

// SetSupply stores a supply for mint.
func (c *RPCClient) SetSupply(mint string, uiAmount float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Supplies[mint] = &solana.TokenAmount{UIAmount: &uiAmount}
}

// SetHolders stores holder balances for mint, in the given order.
func (c *RPCClient) SetHolders(mint string, amounts ...float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	holders := make([]solana.TokenAccountBalance, len(amounts))
	for i := range amounts {
		amt := amounts[i]
		holders[i] = solana.TokenAccountBalance{TokenAmount: solana.TokenAmount{UIAmount: &amt}}
	}
	c.Holders[mint] = holders
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}
