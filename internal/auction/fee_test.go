package auction_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/voucher-api-service/internal/auction"
)

func TestCurrentFeeStepFunction(t *testing.T) {
	createdAt := time.Unix(1_700_000_000, 0)
	tick := 60 * time.Second

	fee := auction.CurrentFee(5, 1, createdAt, createdAt, tick)
	assert.Equal(t, uint64(0), fee, "fee at creation time should be zero")

	fee = auction.CurrentFee(5, 1, createdAt, createdAt.Add(59*time.Second), tick)
	assert.Equal(t, uint64(0), fee, "fee before the first tick should be zero")

	fee = auction.CurrentFee(5, 1, createdAt, createdAt.Add(125*time.Second), tick)
	assert.Equal(t, uint64(2), fee, "fee after two full ticks should be two increments")

	fee = auction.CurrentFee(5, 1, createdAt, createdAt.Add(600*time.Second), tick)
	assert.Equal(t, uint64(5), fee, "fee should be capped at max fee")
}

func TestCurrentFeeIsNonDecreasingAndBounded(t *testing.T) {
	createdAt := time.Unix(1_700_000_000, 0)
	tick := 30 * time.Second
	maxFee := uint64(1000)
	increment := uint64(7)

	var prev uint64
	for i := 0; i <= 600; i++ {
		now := createdAt.Add(time.Duration(i) * time.Second)
		fee := auction.CurrentFee(maxFee, increment, createdAt, now, tick)
		require.GreaterOrEqual(t, fee, prev, "fee must be non-decreasing over time")
		require.LessOrEqual(t, fee, maxFee, "fee must never exceed max fee")
		prev = fee
	}
}

func TestCurrentFeePastDeadlineStillDefined(t *testing.T) {
	createdAt := time.Unix(1_700_000_000, 0)

	// Display-only use case: a long expired request still yields the capped fee.
	fee := auction.CurrentFee(5, 1, createdAt, createdAt.Add(365*24*time.Hour), time.Minute)
	assert.Equal(t, uint64(5), fee)
}

func TestCurrentFeeDegenerateInputs(t *testing.T) {
	createdAt := time.Unix(1_700_000_000, 0)

	assert.Equal(t, uint64(0), auction.CurrentFee(5, 0, createdAt, createdAt.Add(time.Hour), time.Minute))
	assert.Equal(t, uint64(0), auction.CurrentFee(5, 1, createdAt, createdAt.Add(time.Hour), 0))
	assert.Equal(t, uint64(0), auction.CurrentFee(5, 1, createdAt, createdAt.Add(-time.Hour), time.Minute))
}

func TestCurrentFeeLargeTickCountDoesNotOverflow(t *testing.T) {
	createdAt := time.Unix(0, 0)

	fee := auction.CurrentFee(10, ^uint64(0)/2, createdAt, createdAt.Add(1000*time.Hour), time.Second)
	assert.Equal(t, uint64(10), fee)
}
