package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

func TestClaimTransitionOnlyFromOpen(t *testing.T) {
	assert.Equal(t, []types.VoucherRequestStatus{types.Open}, utils.QualifiedStatesToClaimed())
}

func TestFulfillTransitionOnlyFromClaimed(t *testing.T) {
	assert.Equal(t, []types.VoucherRequestStatus{types.Claimed}, utils.QualifiedStatesToFulfilled())
}

func TestRefundCoversDanglingClaims(t *testing.T) {
	refundable := utils.QualifiedStatesToRefunded()
	assert.Contains(t, refundable, types.Open)
	assert.Contains(t, refundable, types.Claimed, "an unfulfilled claim must stay refundable")
	assert.NotContains(t, refundable, types.Fulfilled)
	assert.NotContains(t, refundable, types.Refunded)
}

func TestOutdatedStatesForFulfillmentAreTerminal(t *testing.T) {
	for _, state := range utils.OutdatedStatesForFulfillment() {
		assert.True(t, state.IsTerminal())
	}
}
