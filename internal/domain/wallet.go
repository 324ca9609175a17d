package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Role of a registered wallet
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Wallet is a registered DApp user identified by an EVM address
type Wallet struct {
	Address   string    `db:"address" json:"wallet"`
	Name      string    `db:"name" json:"name"`
	Role      Role      `db:"role" json:"role"`
	Referrer  string    `db:"referrer" json:"referrer,omitempty"` // "" for roots
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// DisplayName returns the name, falling back to the address
func (w *Wallet) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.Address
}

// NormalizeAddress validates a hex address and returns it lowercased.
// The zero address is rejected.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return "", fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	return strings.ToLower(addr.Hex()), nil
}

// IsZeroAddress reports whether s is empty or the zero address, which the
// token contract returns for "no referrer".
func IsZeroAddress(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	return common.IsHexAddress(s) && common.HexToAddress(s) == (common.Address{})
}

// NormalizeTxHash validates a 32-byte 0x-prefixed hash and lowercases it.
func NormalizeTxHash(s string) (string, error) {
	s = strings.TrimSpace(s)
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidTxHash, s)
	}
	return strings.ToLower(s), nil
}

// LoginInfo is returned by wallet login
type LoginInfo struct {
	Exists bool   `json:"exists"`
	Wallet string `json:"wallet"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role,omitempty"`
	Token  string `json:"token,omitempty"`
}
