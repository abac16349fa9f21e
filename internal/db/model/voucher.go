package model

import (
	"encoding/base64"
	"encoding/json"

	"github.com/crosslane/voucher-api-service/internal/types"
)

const (
	VoucherRequestCollection = "voucher_requests"
	VoucherCollection        = "vouchers"
)

// VoucherRequestDocument is the source of truth for one cross-chain transfer
// request. The status field is the single gate for every lifecycle transition;
// all mutations go through a compare-and-set on it.
type VoucherRequestDocument struct {
	RequestId          string                     `bson:"_id"` // Primary key, keccak256 of requester, nonce and params
	Requester          string                     `bson:"requester"`
	Nonce              uint64                     `bson:"nonce"`
	SourceChainId      uint64                     `bson:"source_chain_id"`
	DestinationChainId uint64                     `bson:"destination_chain_id"`
	SourceToken        string                     `bson:"source_token"`
	DestinationToken   string                     `bson:"destination_token"`
	Amount             uint64                     `bson:"amount"`
	Recipient          string                     `bson:"recipient"`
	GasOnDestination   uint64                     `bson:"gas_on_destination"`
	MaxFee             uint64                     `bson:"max_fee"`
	FeeIncrement       uint64                     `bson:"fee_increment"`
	Deadline           int64                      `bson:"deadline"` // unix seconds, absolute
	Status             types.VoucherRequestStatus `bson:"status"`
	CreatedAt          int64                      `bson:"created_at"`
	EscrowTxHash       string                     `bson:"escrow_tx_hash"`
	// Settlement details, set on the fulfilled transition only.
	SettledAmount     uint64 `bson:"settled_amount,omitempty"`
	FulfillmentTxHash string `bson:"fulfillment_tx_hash,omitempty"`
	RefundedAt        int64  `bson:"refunded_at,omitempty"`
}

// VoucherDocument binds one XLP to one request at the fee fixed at claim
// time. The unique index on request_id is what makes double-issuance fail.
type VoucherDocument struct {
	VoucherId string `bson:"_id"`
	RequestId string `bson:"request_id"` // Unique index
	Xlp       string `bson:"xlp"`
	Fee       uint64 `bson:"fee"`
	IssuedAt  int64  `bson:"issued_at"`
}

type VoucherRequestByRequesterPagination struct {
	CreatedAt int64  `json:"created_at"`
	RequestId string `json:"request_id"`
}

func DecodeVoucherRequestByRequesterPaginationToken(token string) (*VoucherRequestByRequesterPagination, error) {
	tokenBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	var p VoucherRequestByRequesterPagination
	err = json.Unmarshal(tokenBytes, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *VoucherRequestByRequesterPagination) GetPaginationToken() (string, error) {
	tokenBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}

func BuildVoucherRequestByRequesterPaginationToken(d VoucherRequestDocument) (string, error) {
	page := &VoucherRequestByRequesterPagination{
		CreatedAt: d.CreatedAt,
		RequestId: d.RequestId,
	}
	return page.GetPaginationToken()
}
