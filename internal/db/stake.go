package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/crosslane/voucher-api-service/internal/db/model"
	"github.com/crosslane/voucher-api-service/internal/types"
)

// SaveXLPStake registers a new XLP. A duplicate key means the XLP already has
// a stake document; reactivation of an inactive XLP goes through
// ReactivateXLPStake instead.
func (db *Database) SaveXLPStake(ctx context.Context, stake model.XLPStakeDocument) error {
	client := db.Client.Database(db.DbName).Collection(model.XLPStakeCollection)

	_, err := client.InsertOne(ctx, stake)
	if err != nil {
		if isMongoDuplicateKeyError(err) {
			return &DuplicateKeyError{
				Key:     stake.Xlp,
				Message: "XLP already registered",
			}
		}
		return err
	}
	return nil
}

// ReactivateXLPStake re-registers a previously unstaked XLP. The compare-and-set
// on is_active rejects re-registration of an XLP that is still active.
func (db *Database) ReactivateXLPStake(
	ctx context.Context, xlp string, chains []uint64, stakeAmount uint64, now int64,
) error {
	client := db.Client.Database(db.DbName).Collection(model.XLPStakeCollection)

	filter := bson.M{"_id": xlp, "is_active": false}
	update := bson.M{
		"$set": bson.M{
			"is_active":        true,
			"supported_chains": chains,
			"registered_at":    now,
		},
		"$inc": bson.M{"staked_amount": int64(stakeAmount)},
	}
	result, err := client.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &DuplicateKeyError{
			Key:     xlp,
			Message: "XLP already registered",
		}
	}
	return nil
}

// AddStake increases an XLP's staked collateral. Allowed regardless of
// unbonding state.
func (db *Database) AddStake(ctx context.Context, xlp string, amount uint64) error {
	client := db.Client.Database(db.DbName).Collection(model.XLPStakeCollection)

	result, err := client.UpdateOne(
		ctx,
		bson.M{"_id": xlp},
		bson.M{"$inc": bson.M{"staked_amount": int64(amount)}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &NotFoundError{Key: xlp, Message: "XLP not registered"}
	}
	return nil
}

// StartUnbonding records an unbonding request. Only one unbonding may be in
// progress at a time, and the requested amount must be covered by collateral
// not already unbonding; both guards live in the update filter.
func (db *Database) StartUnbonding(ctx context.Context, xlp string, amount uint64, now int64) error {
	client := db.Client.Database(db.DbName).Collection(model.XLPStakeCollection)

	filter := bson.M{
		"_id":                  xlp,
		"unbonding_start_time": nil,
		"staked_amount":        bson.M{"$gte": int64(amount)},
	}
	update := bson.M{"$set": bson.M{
		"unbonding_amount":     int64(amount),
		"unbonding_start_time": now,
	}}

	result, err := client.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// The guarded update missed; figure out which precondition failed.
	stake, err := db.FindXLPStake(ctx, xlp)
	if err != nil {
		return err
	}
	if stake.UnbondingStartTime != nil {
		return &UnbondingInProgressError{
			Key:     xlp,
			Message: "an unbonding request is already in progress",
		}
	}
	return &InsufficientBalanceError{
		Key:     xlp,
		Message: "unbonding amount exceeds staked collateral",
	}
}

// CompleteUnbonding pays out an elapsed unbonding request and returns the
// amount transferred. The stake document is re-read inside the transaction so
// a slash recorded during the unbonding window shrinks the payout; the amount
// requested at startUnbonding time is an upper bound, never a promise.
func (db *Database) CompleteUnbonding(
	ctx context.Context, xlp string, now int64, unbondingPeriodSeconds int64, minStakeAmount uint64,
) (uint64, error) {
	client := db.Client.Database(db.DbName).Collection(model.XLPStakeCollection)

	txn := func(sessCtx mongo.SessionContext) (interface{}, error) {
		var stake model.XLPStakeDocument
		err := client.FindOne(sessCtx, bson.M{"_id": xlp}).Decode(&stake)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, &NotFoundError{Key: xlp, Message: "XLP not registered"}
			}
			return nil, err
		}
		if stake.UnbondingStartTime == nil {
			return nil, &NotFoundError{Key: xlp, Message: "no unbonding in progress"}
		}
		if now < *stake.UnbondingStartTime+unbondingPeriodSeconds {
			return nil, &UnbondingNotReadyError{
				Key:     xlp,
				Message: "unbonding period has not elapsed yet",
			}
		}

		payout := stake.UnbondingAmount
		if payout > stake.StakedAmount {
			payout = stake.StakedAmount
		}
		remaining := stake.StakedAmount - payout

		update := bson.M{"$set": bson.M{
			"staked_amount":        int64(remaining),
			"unbonding_amount":     int64(0),
			"unbonding_start_time": nil,
			"is_active":            remaining >= minStakeAmount,
		}}
		if _, err := client.UpdateOne(sessCtx, bson.M{"_id": xlp}, update); err != nil {
			return nil, err
		}
		return payout, nil
	}

	result, err := db.txWithRetries(ctx, txn)
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

// SlashXLPStake forfeits staked collateral, floored at the collateral that
// actually exists, clamps any in-progress unbonding to the reduced stake, and
// writes the audit record plus the XLPSlashed event in the same transaction.
// Returns the amount actually slashed.
func (db *Database) SlashXLPStake(
	ctx context.Context, xlp string, amount uint64, reason string, hubChainId uint64, minStakeAmount uint64,
) (uint64, error) {
	stakeClient := db.Client.Database(db.DbName).Collection(model.XLPStakeCollection)
	recordClient := db.Client.Database(db.DbName).Collection(model.SlashRecordCollection)

	txn := func(sessCtx mongo.SessionContext) (interface{}, error) {
		var stake model.XLPStakeDocument
		err := stakeClient.FindOne(sessCtx, bson.M{"_id": xlp}).Decode(&stake)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, &NotFoundError{Key: xlp, Message: "XLP not registered"}
			}
			return nil, err
		}

		slashed := amount
		if slashed > stake.StakedAmount {
			slashed = stake.StakedAmount
		}
		remaining := stake.StakedAmount - slashed

		unbonding := stake.UnbondingAmount
		if unbonding > remaining {
			unbonding = remaining
		}

		update := bson.M{
			"$set": bson.M{
				"staked_amount":    int64(remaining),
				"unbonding_amount": int64(unbonding),
				"is_active":        stake.IsActive && remaining >= minStakeAmount,
			},
			"$inc": bson.M{"slashed_amount": int64(slashed)},
		}
		if _, err := stakeClient.UpdateOne(sessCtx, bson.M{"_id": xlp}, update); err != nil {
			return nil, err
		}

		record := model.SlashRecordDocument{
			Id:              uuid.NewString(),
			Xlp:             xlp,
			RequestedAmount: amount,
			SlashedAmount:   slashed,
			Reason:          reason,
			SlashedAt:       time.Now().Unix(),
		}
		if _, err := recordClient.InsertOne(sessCtx, record); err != nil {
			return nil, err
		}

		event := types.XLPSlashedEvent{
			Xlp:    xlp,
			Amount: slashed,
			Reason: reason,
		}
		if err := db.appendProtocolEvent(sessCtx, hubChainId, types.EventXLPSlashed, "", "", xlp, event); err != nil {
			return nil, err
		}
		return slashed, nil
	}

	result, err := db.txWithRetries(ctx, txn)
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

func (db *Database) FindXLPStake(ctx context.Context, xlp string) (*model.XLPStakeDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.XLPStakeCollection)
	var stake model.XLPStakeDocument
	err := client.FindOne(ctx, bson.M{"_id": xlp}).Decode(&stake)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     xlp,
				Message: "XLP not registered",
			}
		}
		return nil, err
	}
	return &stake, nil
}

func (db *Database) FindSlashRecordsByXLP(ctx context.Context, xlp string) ([]model.SlashRecordDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.SlashRecordCollection)

	cursor, err := client.Find(ctx, bson.M{"xlp": xlp})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.SlashRecordDocument
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
