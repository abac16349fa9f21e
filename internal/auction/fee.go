// Package auction implements the escalating-fee auction used to price
// voucher fulfillment. The fee offered to liquidity providers starts at zero
// and rises by a fixed increment every tick until it reaches the requester's
// cap, letting an abundant market claim early at a low fee while guaranteeing
// the offer eventually becomes attractive before expiry.
package auction

import "time"

// CurrentFee computes the fee claimable for a request at the given time as
//
//	min(maxFee, feeIncrement * floor(elapsed / tickInterval))
//
// It is a pure, deterministic step function, non-decreasing in now and capped
// at maxFee. Times at or past the request deadline still yield a defined
// value; rejecting late claims is the coordinator's responsibility, not the
// auction's.
func CurrentFee(maxFee, feeIncrement uint64, createdAt, now time.Time, tickInterval time.Duration) uint64 {
	if tickInterval <= 0 || feeIncrement == 0 {
		return 0
	}
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		return 0
	}

	ticks := uint64(elapsed / tickInterval)
	// Guard the multiplication against overflow; a fee that large is always
	// capped by maxFee anyway.
	if ticks > maxFee/feeIncrement {
		return maxFee
	}
	fee := feeIncrement * ticks
	if fee > maxFee {
		return maxFee
	}
	return fee
}
