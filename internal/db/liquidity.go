package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crosslane/voucher-api-service/internal/db/model"
)

// DepositLiquidity credits an XLP's balance for one chain and token, creating
// the balance document on first deposit.
func (db *Database) DepositLiquidity(ctx context.Context, xlp string, chainId uint64, token string, amount uint64) error {
	client := db.Client.Database(db.DbName).Collection(model.XLPLiquidityCollection)

	filter := bson.M{"_id": model.LiquidityId(xlp, chainId, token)}
	update := bson.M{
		"$inc": bson.M{"amount": int64(amount)},
		"$setOnInsert": bson.M{
			"xlp":           xlp,
			"chain_id":      chainId,
			"token":         token,
			"locked_amount": int64(0),
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := client.UpdateOne(ctx, filter, update, opts)
	return err
}

// WithdrawLiquidity debits an XLP's unlocked balance. The guard on
// amount - locked_amount is part of the update filter, so a withdrawal can
// never dip into funds committed to a live voucher.
func (db *Database) WithdrawLiquidity(ctx context.Context, xlp string, chainId uint64, token string, amount uint64) error {
	client := db.Client.Database(db.DbName).Collection(model.XLPLiquidityCollection)

	liquidityId := model.LiquidityId(xlp, chainId, token)
	filter := bson.M{
		"_id": liquidityId,
		"$expr": bson.M{
			"$gte": bson.A{
				bson.M{"$subtract": bson.A{"$amount", "$locked_amount"}},
				int64(amount),
			},
		},
	}
	update := bson.M{"$inc": bson.M{"amount": -int64(amount)}}

	result, err := client.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// The guarded update missed; figure out which precondition failed.
	if _, err := db.FindXLPLiquidity(ctx, xlp, chainId, token); err != nil {
		return err
	}
	return &InsufficientBalanceError{
		Key:     liquidityId,
		Message: "withdrawal exceeds unlocked balance",
	}
}

func (db *Database) FindXLPLiquidity(ctx context.Context, xlp string, chainId uint64, token string) (*model.XLPLiquidityDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.XLPLiquidityCollection)
	liquidityId := model.LiquidityId(xlp, chainId, token)
	var liquidity model.XLPLiquidityDocument
	err := client.FindOne(ctx, bson.M{"_id": liquidityId}).Decode(&liquidity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     liquidityId,
				Message: "liquidity balance not found",
			}
		}
		return nil, err
	}
	return &liquidity, nil
}

func (db *Database) FindLiquidityBalancesByXLP(ctx context.Context, xlp string) ([]model.XLPLiquidityDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.XLPLiquidityCollection)

	cursor, err := client.Find(ctx, bson.M{"xlp": xlp})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var balances []model.XLPLiquidityDocument
	if err = cursor.All(ctx, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// lockLiquidity reserves part of a balance against an in-flight voucher.
// Only reachable from coordinator transactions, never from XLP-facing calls.
func (db *Database) lockLiquidity(ctx context.Context, liquidityId string, amount uint64) error {
	client := db.Client.Database(db.DbName).Collection(model.XLPLiquidityCollection)

	filter := bson.M{
		"_id": liquidityId,
		"$expr": bson.M{
			"$gte": bson.A{
				bson.M{"$subtract": bson.A{"$amount", "$locked_amount"}},
				int64(amount),
			},
		},
	}
	update := bson.M{"$inc": bson.M{"locked_amount": int64(amount)}}

	result, err := client.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &InsufficientBalanceError{
			Key:     liquidityId,
			Message: "available liquidity cannot cover the required output",
		}
	}
	return nil
}

// unlockLiquidity releases a reservation without spending it (refund path).
func (db *Database) unlockLiquidity(ctx context.Context, liquidityId string, amount uint64) error {
	client := db.Client.Database(db.DbName).Collection(model.XLPLiquidityCollection)

	filter := bson.M{
		"_id":           liquidityId,
		"locked_amount": bson.M{"$gte": int64(amount)},
	}
	update := bson.M{"$inc": bson.M{"locked_amount": -int64(amount)}}

	result, err := client.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &InsufficientBalanceError{
			Key:     liquidityId,
			Message: "locked balance is smaller than the amount to unlock",
		}
	}
	return nil
}

// debitLockedLiquidity spends a reservation (fulfillment path): both the
// balance and its locked portion shrink by the delivered output.
func (db *Database) debitLockedLiquidity(ctx context.Context, liquidityId string, amount uint64) error {
	client := db.Client.Database(db.DbName).Collection(model.XLPLiquidityCollection)

	filter := bson.M{
		"_id":           liquidityId,
		"locked_amount": bson.M{"$gte": int64(amount)},
		"amount":        bson.M{"$gte": int64(amount)},
	}
	update := bson.M{"$inc": bson.M{
		"amount":        -int64(amount),
		"locked_amount": -int64(amount),
	}}

	result, err := client.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &InsufficientBalanceError{
			Key:     liquidityId,
			Message: "locked balance is smaller than the amount to debit",
		}
	}
	return nil
}
