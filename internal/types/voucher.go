package types

import "fmt"

type VoucherRequestStatus string

const (
	Open      VoucherRequestStatus = "open"
	Claimed   VoucherRequestStatus = "claimed"
	Fulfilled VoucherRequestStatus = "fulfilled"
	Expired   VoucherRequestStatus = "expired"
	Refunded  VoucherRequestStatus = "refunded"
)

func (s VoucherRequestStatus) ToString() string {
	return string(s)
}

// IsTerminal reports whether the status is terminal. A request in a terminal
// status is immutable; escrowed funds have either been paid out (fulfilled)
// or returned to the requester (refunded).
func (s VoucherRequestStatus) IsTerminal() bool {
	return s == Fulfilled || s == Refunded
}

func FromStringToVoucherRequestStatus(s string) (VoucherRequestStatus, error) {
	switch s {
	case "open":
		return Open, nil
	case "claimed":
		return Claimed, nil
	case "fulfilled":
		return Fulfilled, nil
	case "expired":
		return Expired, nil
	case "refunded":
		return Refunded, nil
	default:
		return "", fmt.Errorf("invalid voucher request status: %s", s)
	}
}

// NativeTokenAddress is the token address used for the chain's native asset
// in liquidity balances and transfer requests.
const NativeTokenAddress = "0x0000000000000000000000000000000000000000"
