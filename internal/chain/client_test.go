package chain

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"twopc_backend/internal/domain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	receipts map[common.Hash]*types.Receipt
	balance  *big.Int
	lastCall ethereum.CallMsg
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, h common.Hash) (*types.Receipt, error) {
	r, ok := f.receipts[h]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.lastCall = msg
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}
	return parsed.Methods["balanceOf"].Outputs.Pack(f.balance)
}

const (
	okHash       = "0x1111111111111111111111111111111111111111111111111111111111111111"
	revertedHash = "0x2222222222222222222222222222222222222222222222222222222222222222"
	missingHash  = "0x3333333333333333333333333333333333333333333333333333333333333333"
	tokenAddr    = "0x00000000000000000000000000000000000000aa"
)

func newTestClient(t *testing.T, b *fakeBackend) *Client {
	t.Helper()
	c, err := NewClient(b, Config{TokenAddress: tokenAddr, TokenDecimals: 18, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	return c
}

func TestVerifyTx(t *testing.T) {
	b := &fakeBackend{receipts: map[common.Hash]*types.Receipt{
		common.HexToHash(okHash):       {Status: types.ReceiptStatusSuccessful},
		common.HexToHash(revertedHash): {Status: types.ReceiptStatusFailed},
	}}
	c := newTestClient(t, b)
	ctx := context.Background()

	assert.NoError(t, c.VerifyTx(ctx, okHash))
	assert.ErrorIs(t, c.VerifyTx(ctx, revertedHash), domain.ErrTxNotConfirmed)
	assert.ErrorIs(t, c.VerifyTx(ctx, missingHash), domain.ErrTxNotConfirmed)
}

func TestBalanceOf(t *testing.T) {
	raw, ok := new(big.Int).SetString("1500000000000000000000", 10)
	require.True(t, ok)
	b := &fakeBackend{balance: raw}
	c := newTestClient(t, b)

	bal, err := c.BalanceOf(context.Background(), "0x00000000000000000000000000000000000000bb")
	require.NoError(t, err)
	assert.Equal(t, "1500", bal.String())
	require.NotNil(t, b.lastCall.To)
	assert.Equal(t, common.HexToAddress(tokenAddr), *b.lastCall.To)
}

func TestBalanceOfWithoutToken(t *testing.T) {
	c, err := NewClient(&fakeBackend{}, Config{})
	require.NoError(t, err)

	_, err = c.BalanceOf(context.Background(), "0x00000000000000000000000000000000000000bb")
	assert.ErrorIs(t, err, ErrNoToken)
}
