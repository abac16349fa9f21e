package model

const (
	XLPStakeCollection    = "xlp_stakes"
	SlashRecordCollection = "slash_records"
)

// XLPStakeDocument tracks one XLP's collateral on the hub chain. It is never
// hard-deleted; a fully unstaked XLP keeps its document with is_active false
// and zero stake. UnbondingAmount is always a subset of StakedAmount, so a
// slash that reduces the stake clamps the unbonding amount with it.
type XLPStakeDocument struct {
	Xlp                string   `bson:"_id"` // Primary key, XLP address
	StakedAmount       uint64   `bson:"staked_amount"`
	UnbondingAmount    uint64   `bson:"unbonding_amount"`
	UnbondingStartTime *int64   `bson:"unbonding_start_time"` // unix seconds, nil when no unbonding in progress
	SlashedAmount      uint64   `bson:"slashed_amount"`
	IsActive           bool     `bson:"is_active"`
	SupportedChains    []uint64 `bson:"supported_chains"`
	RegisteredAt       int64    `bson:"registered_at"`
}

// SlashRecordDocument is the audit trail for involuntary collateral loss.
// A slash without a recorded reason must never happen.
type SlashRecordDocument struct {
	Id              string `bson:"_id"` // uuid
	Xlp             string `bson:"xlp"`
	RequestedAmount uint64 `bson:"requested_amount"`
	SlashedAmount   uint64 `bson:"slashed_amount"` // actual amount forfeited, floored at available collateral
	Reason          string `bson:"reason"`
	SlashedAt       int64  `bson:"slashed_at"`
}
