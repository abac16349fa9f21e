package utils

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidAddress checks if the given string is a valid hex-encoded address.
// Note: it does not check the address has any on-chain existence.
func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// IsValidHash checks if the given string is a valid 32-byte hex-encoded hash,
// with or without the 0x prefix. Request ids, voucher ids and transaction
// hashes all share this format.
func IsValidHash(h string) bool {
	h = strings.TrimPrefix(h, "0x")
	if len(h) != common.HashLength*2 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil
}
