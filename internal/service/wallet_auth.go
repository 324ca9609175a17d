package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const loginMessagePrefix = "2PC login"

// LoginMessage is the text a wallet signs with personal_sign to log in
func LoginMessage(wallet string, issuedAt time.Time) string {
	return fmt.Sprintf("%s\nwallet: %s\nissued: %d", loginMessagePrefix, strings.ToLower(wallet), issuedAt.Unix())
}

// ValidateWalletLogin verifies a personal_sign signature over a login
// message and checks that the message names wallet and was issued within
// the last hour.
func ValidateWalletLogin(wallet, message, signature string, now time.Time) bool {
	lines := strings.Split(message, "\n")
	if len(lines) != 3 || lines[0] != loginMessagePrefix {
		return false
	}
	if !strings.EqualFold(strings.TrimPrefix(lines[1], "wallet: "), wallet) {
		return false
	}
	issued, err := strconv.ParseInt(strings.TrimPrefix(lines[2], "issued: "), 10, 64)
	if err != nil {
		return false
	}
	// allow small clock skew, but reject anything older than 1 hour
	if now.Unix()-issued > 3600 || issued-now.Unix() > 300 {
		return false
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == common.HexToAddress(wallet)
}
