package types

// ProtocolEventType identifies an entry in the append-only protocol event log.
// The event log is the only channel downstream projectors (transfer history,
// per-chain statistics, XLP reputation) consume; ordering is guaranteed per
// chain via a monotonically increasing sequence number.
type ProtocolEventType string

const (
	EventVoucherRequested ProtocolEventType = "voucher_requested"
	EventVoucherIssued    ProtocolEventType = "voucher_issued"
	EventVoucherFulfilled ProtocolEventType = "voucher_fulfilled"
	EventVoucherRefunded  ProtocolEventType = "voucher_refunded"
	EventXLPSlashed       ProtocolEventType = "xlp_slashed"
)

func (t ProtocolEventType) ToString() string {
	return string(t)
}

type VoucherRequestedEvent struct {
	RequestId          string `json:"request_id"`
	Requester          string `json:"requester"`
	SourceToken        string `json:"source_token"`
	Amount             uint64 `json:"amount"`
	DestinationChainId uint64 `json:"destination_chain_id"`
	Recipient          string `json:"recipient"`
	MaxFee             uint64 `json:"max_fee"`
	Deadline           int64  `json:"deadline"`
}

type VoucherIssuedEvent struct {
	VoucherId string `json:"voucher_id"`
	RequestId string `json:"request_id"`
	Xlp       string `json:"xlp"`
	Fee       uint64 `json:"fee"`
}

type VoucherFulfilledEvent struct {
	VoucherId string `json:"voucher_id"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type VoucherRefundedEvent struct {
	RequestId string `json:"request_id"`
	Requester string `json:"requester"`
	Amount    uint64 `json:"amount"`
}

type XLPSlashedEvent struct {
	Xlp    string `json:"xlp"`
	Amount uint64 `json:"amount"`
	Reason string `json:"reason"`
}
