package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mint-watch/internal/domain"
	"mint-watch/internal/solana"
	"mint-watch/internal/solana/stub"
)

func TestLoader_Load(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(&solana.Transaction{
		Slot:      42,
		Signature: "sig1",
		Meta: &solana.TransactionMeta{
			LoadedAddresses: solana.LoadedAddresses{Writable: []string{"w1"}, Readonly: []string{"r1"}},
		},
		Message: &solana.TransactionMessage{
			AccountKeys: []string{"payer", "mint", solana.TokenProgramID},
			Instructions: []solana.CompiledInstruction{
				{ProgramIDIndex: 2, Accounts: []int{1, 3}},
			},
		},
	})

	ev := domain.RawEvent{EventID: "sig1", LogLines: []string{"Program log: Instruction: InitializeMint"}}
	got, err := NewLoader(rpc).Load(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, []string{"payer", "mint", solana.TokenProgramID, "w1", "r1"}, got.AccountKeys)
	assert.Equal(t, []domain.Instruction{{ProgramIDIndex: 2, Accounts: []int{1, 3}}}, got.Instructions)
	assert.Equal(t, int64(42), got.Slot)
	assert.Equal(t, ev.LogLines, got.LogLines)
}

func TestLoader_AlreadyLoaded(t *testing.T) {
	rpc := stub.NewRPCClient()
	ev := domain.RawEvent{EventID: "sig1", AccountKeys: []string{"a"}}

	got, err := NewLoader(rpc).Load(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
	assert.Zero(t, rpc.Calls("getTransaction"))
}

func TestLoader_NotFound(t *testing.T) {
	_, err := NewLoader(stub.NewRPCClient()).Load(context.Background(), domain.RawEvent{EventID: "missing"})
	assert.ErrorIs(t, err, solana.ErrTransactionNotFound)
}

func TestLoader_RPCError(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.TransactionErr = errors.New("timeout")

	_, err := NewLoader(rpc).Load(context.Background(), domain.RawEvent{EventID: "sig"})
	assert.Error(t, err)
}
