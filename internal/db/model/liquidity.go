package model

import "fmt"

const XLPLiquidityCollection = "xlp_liquidity"

// XLPLiquidityDocument tracks the balance an XLP has pre-funded on one chain
// for one token. LockedAmount is the portion reserved against in-flight
// vouchers; locked_amount <= amount holds at every observable point, enforced
// by guarded updates on this single document.
type XLPLiquidityDocument struct {
	Id           string `bson:"_id"` // Primary key, xlp:chainId:token
	Xlp          string `bson:"xlp"`
	ChainId      uint64 `bson:"chain_id"`
	Token        string `bson:"token"`
	Amount       uint64 `bson:"amount"`
	LockedAmount uint64 `bson:"locked_amount"`
}

// LiquidityId builds the composite primary key of a liquidity document.
func LiquidityId(xlp string, chainId uint64, token string) string {
	return fmt.Sprintf("%s:%d:%s", xlp, chainId, token)
}
