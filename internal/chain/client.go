package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"twopc_backend/internal/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the part of an EVM JSON-RPC client the ledger needs.
// *ethclient.Client satisfies it.
type Backend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client reads receipts and token balances from the chain
type Client struct {
	backend  Backend
	token    common.Address
	decimals int32
	timeout  time.Duration
	erc20    abi.ABI
}

// Config for the chain client
type Config struct {
	RPCURL        string
	TokenAddress  string
	TokenDecimals int32
	Timeout       time.Duration
}

// Dial connects to the JSON-RPC endpoint in cfg
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("could not instantiate ethereum client: %w", err)
	}
	logger.Info("chain client connected", "rpc", cfg.RPCURL)
	return NewClient(ec, cfg)
}

// NewClient wraps an existing backend
func NewClient(backend Backend, cfg Config) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	decimals := cfg.TokenDecimals
	if decimals <= 0 {
		decimals = DefaultTokenDecimals
	}
	c := &Client{
		backend:  backend,
		decimals: decimals,
		timeout:  timeout,
		erc20:    parsed,
	}
	if cfg.TokenAddress != "" {
		if !common.IsHexAddress(cfg.TokenAddress) {
			return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
		}
		c.token = common.HexToAddress(cfg.TokenAddress)
	}
	return c, nil
}

// HasToken reports whether a token contract is configured
func (c *Client) HasToken() bool {
	return c.token != (common.Address{})
}
