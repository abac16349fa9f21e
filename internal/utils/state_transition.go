package utils

import (
	"github.com/crosslane/voucher-api-service/internal/types"
)

// QualifiedStatesToClaimed returns the qualified existing states to transition to "claimed".
// Claiming is the only transition admitted exclusively from Open; this is what
// guarantees at most one voucher per request under concurrent claim attempts.
func QualifiedStatesToClaimed() []types.VoucherRequestStatus {
	return []types.VoucherRequestStatus{types.Open}
}

// QualifiedStatesToFulfilled returns the qualified existing states to transition to "fulfilled".
func QualifiedStatesToFulfilled() []types.VoucherRequestStatus {
	return []types.VoucherRequestStatus{types.Claimed}
}

// QualifiedStatesToRefunded returns the qualified existing states to transition to "refunded".
// A dangling claim whose fulfillment never arrived is refundable as well; the
// deadline is enforced separately as a time guard inside the refund call.
func QualifiedStatesToRefunded() []types.VoucherRequestStatus {
	return []types.VoucherRequestStatus{types.Open, types.Claimed, types.Expired}
}

// OutdatedStatesForFulfillment lists states an incoming fulfillment proof can
// be silently dropped in, as they mean the request has already been resolved.
func OutdatedStatesForFulfillment() []types.VoucherRequestStatus {
	return []types.VoucherRequestStatus{types.Fulfilled, types.Refunded}
}
