package chain

import "time"

const (
	// DefaultTimeout bounds a single receipt lookup or contract call
	DefaultTimeout = 10 * time.Second

	// ReceiptPollInterval is how often VerifyTx retries a missing receipt
	ReceiptPollInterval = 2 * time.Second

	// ReceiptStatusSuccess is the receipt status of a successful tx
	ReceiptStatusSuccess = 1

	// DefaultTokenDecimals matches the 2PC ERC-20 token
	DefaultTokenDecimals = 18
)

// erc20ABI covers the part of the token interface the ledger reads
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`
