package relay

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
)

// Escrow contract event signatures. Topic 0 of every log is the keccak hash
// of the canonical signature; indexed fields follow as topics, the rest are
// packed into the data section as 32-byte words.
const (
	voucherRequestedEventSig = "VoucherRequested(bytes32,address,uint256,uint256,address,address,uint256,address,uint256,uint256,uint256,uint256)"
	voucherFulfilledEventSig = "VoucherFulfilled(bytes32,address,address,address,uint256,uint256)"
)

var (
	VoucherRequestedTopic = crypto.Keccak256Hash([]byte(voucherRequestedEventSig))
	VoucherFulfilledTopic = crypto.Keccak256Hash([]byte(voucherFulfilledEventSig))
)

// decodeVoucherRequestedLog decodes an escrow deposit event.
// Indexed: requestId, requester. Data words: nonce, destinationChainId,
// sourceToken, destinationToken, amount, recipient, gasOnDestination, maxFee,
// feeIncrement, deadline.
func decodeVoucherRequestedLog(
	eventLog ethtypes.Log, sourceChainId uint64, blockTime uint64,
) (*queueclient.VoucherRequestedMessage, error) {
	if len(eventLog.Topics) < 3 {
		return nil, fmt.Errorf("voucher requested log has %d topics, want 3", len(eventLog.Topics))
	}
	words := chunk32(eventLog.Data)
	if len(words) < 10 {
		return nil, fmt.Errorf("voucher requested log has %d data words, want 10", len(words))
	}

	return &queueclient.VoucherRequestedMessage{
		RequestId:          eventLog.Topics[1].Hex(),
		Requester:          common.BytesToAddress(eventLog.Topics[2].Bytes()[12:]).Hex(),
		Nonce:              wordToUint64(words[0]),
		SourceChainId:      sourceChainId,
		DestinationChainId: wordToUint64(words[1]),
		SourceToken:        common.BytesToAddress(words[2][12:]).Hex(),
		DestinationToken:   common.BytesToAddress(words[3][12:]).Hex(),
		Amount:             wordToUint64(words[4]),
		Recipient:          common.BytesToAddress(words[5][12:]).Hex(),
		GasOnDestination:   wordToUint64(words[6]),
		MaxFee:             wordToUint64(words[7]),
		FeeIncrement:       wordToUint64(words[8]),
		Deadline:           int64(wordToUint64(words[9])),
		EscrowTxHash:       eventLog.TxHash.Hex(),
		EscrowedAt:         int64(blockTime),
	}, nil
}

// decodeVoucherFulfilledLog decodes a destination-chain payout event.
// Indexed: requestId, xlp. Data words: token, recipient, amount, gasDelivered.
func decodeVoucherFulfilledLog(
	eventLog ethtypes.Log, chainId uint64, blockTime uint64,
) (*queueclient.FulfillmentProofMessage, error) {
	if len(eventLog.Topics) < 3 {
		return nil, fmt.Errorf("voucher fulfilled log has %d topics, want 3", len(eventLog.Topics))
	}
	words := chunk32(eventLog.Data)
	if len(words) < 4 {
		return nil, fmt.Errorf("voucher fulfilled log has %d data words, want 4", len(words))
	}

	return &queueclient.FulfillmentProofMessage{
		RequestId:    eventLog.Topics[1].Hex(),
		Xlp:          common.BytesToAddress(eventLog.Topics[2].Bytes()[12:]).Hex(),
		ChainId:      chainId,
		Token:        common.BytesToAddress(words[0][12:]).Hex(),
		Recipient:    common.BytesToAddress(words[1][12:]).Hex(),
		Amount:       wordToUint64(words[2]),
		GasDelivered: wordToUint64(words[3]),
		TxHash:       eventLog.TxHash.Hex(),
		MinedAt:      int64(blockTime),
	}, nil
}

// chunk32 splits the data section into 32-byte words, zero-padding the tail.
func chunk32(data []byte) [][]byte {
	var chunks [][]byte
	for i := 0; i < len(data); i += 32 {
		end := i + 32
		if end > len(data) {
			end = len(data)
		}
		chunk := make([]byte, 32)
		copy(chunk, data[i:end])
		chunks = append(chunks, chunk)
	}
	return chunks
}

func wordToUint64(word []byte) uint64 {
	return new(big.Int).SetBytes(word).Uint64()
}
