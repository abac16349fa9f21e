package utils

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ComputeRequestId derives the deterministic id of a voucher request from the
// requester, their nonce and the transfer parameters. The same derivation runs
// in the escrow contract, so an id computed off-chain before submission and
// the id observed by the chain watcher always agree.
func ComputeRequestId(
	requester string, nonce uint64,
	sourceChainId, destinationChainId uint64,
	sourceToken, destinationToken string,
	amount uint64, recipient string,
) string {
	buf := make([]byte, 0, 4*common.AddressLength+4*8)
	buf = append(buf, common.HexToAddress(requester).Bytes()...)
	buf = appendUint64(buf, nonce)
	buf = appendUint64(buf, sourceChainId)
	buf = appendUint64(buf, destinationChainId)
	buf = append(buf, common.HexToAddress(sourceToken).Bytes()...)
	buf = append(buf, common.HexToAddress(destinationToken).Bytes()...)
	buf = appendUint64(buf, amount)
	buf = append(buf, common.HexToAddress(recipient).Bytes()...)

	return crypto.Keccak256Hash(buf).Hex()
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}
