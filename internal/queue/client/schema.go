package client

// Queue names. The requested and proof queues are fed by the chain watchers;
// the stats queue is the internal projection channel feeding read models.
const (
	VoucherRequestedQueueName string = "voucher_requested_queue"
	FulfillmentProofQueueName string = "fulfillment_proof_queue"
	VoucherStatsQueueName     string = "voucher_stats_queue"
)

// VoucherRequestedMessage is published by a source-chain watcher when a
// requester's escrow transaction is confirmed.
type VoucherRequestedMessage struct {
	RequestId          string `json:"request_id"`
	Requester          string `json:"requester"`
	Nonce              uint64 `json:"nonce"`
	SourceChainId      uint64 `json:"source_chain_id"`
	DestinationChainId uint64 `json:"destination_chain_id"`
	SourceToken        string `json:"source_token"`
	DestinationToken   string `json:"destination_token"`
	Amount             uint64 `json:"amount"`
	Recipient          string `json:"recipient"`
	GasOnDestination   uint64 `json:"gas_on_destination"`
	MaxFee             uint64 `json:"max_fee"`
	FeeIncrement       uint64 `json:"fee_increment"`
	Deadline           int64  `json:"deadline"`
	EscrowTxHash       string `json:"escrow_tx_hash"`
	EscrowedAt         int64  `json:"escrowed_at"`
}

// FulfillmentProofMessage is published by a destination-chain watcher when a
// transfer paying a voucher's recipient is confirmed. MinedAt is the
// destination block timestamp, which is what the deadline is checked against.
type FulfillmentProofMessage struct {
	RequestId    string `json:"request_id"`
	Xlp          string `json:"xlp"`
	ChainId      uint64 `json:"chain_id"`
	Token        string `json:"token"`
	Recipient    string `json:"recipient"`
	Amount       uint64 `json:"amount"`
	GasDelivered uint64 `json:"gas_delivered"`
	TxHash       string `json:"tx_hash"`
	MinedAt      int64  `json:"mined_at"`
}

// VoucherStatsMessage drives the read-model projector.
type VoucherStatsMessage struct {
	RequestId string `json:"request_id"`
	Xlp       string `json:"xlp,omitempty"`
	State     string `json:"state"`
	Amount    uint64 `json:"amount"`
	Fee       uint64 `json:"fee"`
}
