package model

import (
	"github.com/crosslane/voucher-api-service/internal/types"
)

const (
	ProtocolEventCollection = "protocol_events"
	EventCounterCollection  = "event_counters"
)

// ProtocolEventDocument is one entry of the append-only protocol event log.
// Seq is allocated from a per-chain counter inside the same transaction as
// the state change producing the event, so per-chain ordering is total.
type ProtocolEventDocument struct {
	EventId   string                  `bson:"_id"` // uuid
	Seq       int64                   `bson:"seq"`
	ChainId   uint64                  `bson:"chain_id"`
	EventType types.ProtocolEventType `bson:"event_type"`
	RequestId string                  `bson:"request_id,omitempty"`
	VoucherId string                  `bson:"voucher_id,omitempty"`
	Xlp       string                  `bson:"xlp,omitempty"`
	Payload   string                  `bson:"payload"` // JSON-encoded event body
	CreatedAt int64                   `bson:"created_at"`
}

// EventCounterDocument holds the next sequence number per chain.
type EventCounterDocument struct {
	ChainId uint64 `bson:"_id"`
	Seq     int64  `bson:"seq"`
}
