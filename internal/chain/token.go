package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var ErrNoToken = errors.New("token address not configured")

// BalanceOf returns the wallet's token balance in whole tokens
func (c *Client) BalanceOf(ctx context.Context, wallet string) (decimal.Decimal, error) {
	if !c.HasToken() {
		return decimal.Zero, ErrNoToken
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.erc20.Pack("balanceOf", common.HexToAddress(wallet))
	if err != nil {
		return decimal.Zero, fmt.Errorf("pack balanceOf: %w", err)
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.token, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("call balanceOf: %w", err)
	}
	values, err := c.erc20.Unpack("balanceOf", out)
	if err != nil || len(values) != 1 {
		return decimal.Zero, fmt.Errorf("unpack balanceOf: %v", err)
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected balanceOf result %T", values[0])
	}
	return decimal.NewFromBigInt(raw, -c.decimals), nil
}
