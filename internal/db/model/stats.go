package model

const (
	StatsLockCollection   = "stats_lock"
	OverallStatsCollection = "overall_stats"
	XlpStatsCollection    = "xlp_stats"
)

// StatsLockDocument prevents double counting when stats events are redelivered.
// The id is built from the request id and the lifecycle step being counted.
type StatsLockDocument struct {
	Id           string `bson:"_id"` // requestId:state
	OverallStats bool   `bson:"overall_stats"`
	XlpStats     bool   `bson:"xlp_stats"`
}

// OverallStatsDocument is the protocol-wide read model projected from the
// event log. LogicalShardId spreads increment contention across documents;
// readers sum all shards.
type OverallStatsDocument struct {
	Id                string `bson:"_id"` // logical shard id
	TotalRequests     int64  `bson:"total_requests"`
	ActiveVouchers    int64  `bson:"active_vouchers"`
	FulfilledVouchers int64  `bson:"fulfilled_vouchers"`
	RefundedRequests  int64  `bson:"refunded_requests"`
	TotalVolume       int64  `bson:"total_volume"`
	TotalFeesPaid     int64  `bson:"total_fees_paid"`
}

// XlpStatsDocument is the per-XLP reputation read model.
type XlpStatsDocument struct {
	Xlp               string `bson:"_id"`
	ActiveVouchers    int64  `bson:"active_vouchers"`
	FulfilledVouchers int64  `bson:"fulfilled_vouchers"`
	ExpiredClaims     int64  `bson:"expired_claims"`
	TotalVolume       int64  `bson:"total_volume"`
	TotalFeesEarned   int64  `bson:"total_fees_earned"`
}
