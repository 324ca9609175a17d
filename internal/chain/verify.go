package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"twopc_backend/internal/domain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// VerifyTx checks that txHash was mined with a success status. A receipt
// that is still missing is polled until the client timeout.
func (c *Client) VerifyTx(ctx context.Context, txHash string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := c.waitForReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return err
	}
	if receipt.Status != ReceiptStatusSuccess {
		return fmt.Errorf("%w: %s reverted", domain.ErrTxNotConfirmed, txHash)
	}
	return nil
}

func (c *Client) waitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", domain.ErrTxNotConfirmed, hash.Hex(), ctx.Err())
			}
			return nil, fmt.Errorf("fetch receipt %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s not found", domain.ErrTxNotConfirmed, hash.Hex())
		case <-time.After(ReceiptPollInterval):
		}
	}
}
