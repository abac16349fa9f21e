package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crosslane/voucher-api-service/internal/db/model"
	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

// SaveVoucherRequest inserts a new open request and appends the
// VoucherRequested event in the same transaction. A duplicate request id
// (e.g. the relay redelivering an escrow event already processed, or an
// escrow the API already recorded) returns a DuplicateKeyError.
func (db *Database) SaveVoucherRequest(ctx context.Context, request model.VoucherRequestDocument) error {
	requestClient := db.Client.Database(db.DbName).Collection(model.VoucherRequestCollection)

	txn := func(sessCtx mongo.SessionContext) (interface{}, error) {
		_, err := requestClient.InsertOne(sessCtx, request)
		if err != nil {
			if isMongoDuplicateKeyError(err) {
				return nil, &DuplicateKeyError{
					Key:     request.RequestId,
					Message: "voucher request already exists",
				}
			}
			return nil, err
		}

		event := types.VoucherRequestedEvent{
			RequestId:          request.RequestId,
			Requester:          request.Requester,
			SourceToken:        request.SourceToken,
			Amount:             request.Amount,
			DestinationChainId: request.DestinationChainId,
			Recipient:          request.Recipient,
			MaxFee:             request.MaxFee,
			Deadline:           request.Deadline,
		}
		err = db.appendProtocolEvent(
			sessCtx, request.SourceChainId, types.EventVoucherRequested,
			request.RequestId, "", "", event,
		)
		return nil, err
	}

	_, err := db.txWithRetries(ctx, txn)
	return err
}

func (db *Database) FindVoucherRequestById(ctx context.Context, requestId string) (*model.VoucherRequestDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.VoucherRequestCollection)
	filter := bson.M{"_id": requestId}
	var request model.VoucherRequestDocument
	err := client.FindOne(ctx, filter).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     requestId,
				Message: "voucher request not found",
			}
		}
		return nil, err
	}
	return &request, nil
}

func (db *Database) FindVoucherRequestsByRequester(
	ctx context.Context, requester string, paginationToken string,
) (*DbResultMap[model.VoucherRequestDocument], error) {
	client := db.Client.Database(db.DbName).Collection(model.VoucherRequestCollection)

	filter := bson.M{"requester": requester}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(db.cfg.MaxPaginationLimit)

	if paginationToken != "" {
		decodedToken, err := model.DecodeVoucherRequestByRequesterPaginationToken(paginationToken)
		if err != nil {
			return nil, &InvalidPaginationTokenError{
				Message: "Invalid pagination token",
			}
		}
		filter = bson.M{
			"requester": requester,
			"$or": []bson.M{
				{"created_at": bson.M{"$lt": decodedToken.CreatedAt}},
				{"created_at": decodedToken.CreatedAt, "_id": bson.M{"$gt": decodedToken.RequestId}},
			},
		}
	}

	cursor, err := client.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []model.VoucherRequestDocument
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}

	return toResultMapWithPaginationToken(db.cfg, requests, model.BuildVoucherRequestByRequesterPaginationToken)
}

// ClaimVoucherRequest admits a claim: it compare-and-sets the request status
// from open to claimed, locks the claimant's destination liquidity and issues
// the voucher, all inside one transaction. The status CAS is the single point
// of mutual exclusion; concurrent claims lose there with a StaleStatusError
// and no partial state mutation survives the abort.
func (db *Database) ClaimVoucherRequest(
	ctx context.Context, requestId string, voucher model.VoucherDocument, outputAmount uint64, now int64,
) error {
	requestClient := db.Client.Database(db.DbName).Collection(model.VoucherRequestCollection)
	voucherClient := db.Client.Database(db.DbName).Collection(model.VoucherCollection)

	txn := func(sessCtx mongo.SessionContext) (interface{}, error) {
		var request model.VoucherRequestDocument
		err := requestClient.FindOne(sessCtx, bson.M{"_id": requestId}).Decode(&request)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, &NotFoundError{Key: requestId, Message: "voucher request not found"}
			}
			return nil, err
		}
		if request.Status != types.Open {
			return nil, &StaleStatusError{
				Key:           requestId,
				CurrentStatus: request.Status.ToString(),
				Message:       "voucher request is not open for claims",
			}
		}
		if now >= request.Deadline {
			return nil, &DeadlineExceededError{
				Key:     requestId,
				Message: "voucher request deadline has passed",
			}
		}

		// The filter re-checks status and deadline; a concurrent claim that
		// committed between the read above and this update makes the CAS miss.
		casFilter := bson.M{
			"_id":      requestId,
			"status":   bson.M{"$in": utils.QualifiedStatesToClaimed()},
			"deadline": bson.M{"$gt": now},
		}
		casUpdate := bson.M{"$set": bson.M{"status": types.Claimed}}
		result, err := requestClient.UpdateOne(sessCtx, casFilter, casUpdate)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, &StaleStatusError{
				Key:           requestId,
				CurrentStatus: request.Status.ToString(),
				Message:       "voucher request already claimed",
			}
		}

		liquidityId := model.LiquidityId(voucher.Xlp, request.DestinationChainId, request.DestinationToken)
		if err := db.lockLiquidity(sessCtx, liquidityId, outputAmount); err != nil {
			return nil, err
		}

		_, err = voucherClient.InsertOne(sessCtx, voucher)
		if err != nil {
			if isMongoDuplicateKeyError(err) {
				return nil, &DuplicateKeyError{
					Key:     requestId,
					Message: "voucher already issued for this request",
				}
			}
			return nil, err
		}

		event := types.VoucherIssuedEvent{
			VoucherId: voucher.VoucherId,
			RequestId: requestId,
			Xlp:       voucher.Xlp,
			Fee:       voucher.Fee,
		}
		err = db.appendProtocolEvent(
			sessCtx, request.SourceChainId, types.EventVoucherIssued,
			requestId, voucher.VoucherId, voucher.Xlp, event,
		)
		return nil, err
	}

	_, err := db.txWithRetries(ctx, txn)
	return err
}

// FulfillVoucherRequest resolves a claimed request to fulfilled: it
// compare-and-sets the status, debits the XLP's locked destination liquidity
// and records the settlement released to the XLP on the source chain.
func (db *Database) FulfillVoucherRequest(
	ctx context.Context, requestId string, outputAmount, settledAmount uint64, fulfillmentTxHash string,
) error {
	requestClient := db.Client.Database(db.DbName).Collection(model.VoucherRequestCollection)
	voucherClient := db.Client.Database(db.DbName).Collection(model.VoucherCollection)

	txn := func(sessCtx mongo.SessionContext) (interface{}, error) {
		var request model.VoucherRequestDocument
		err := requestClient.FindOne(sessCtx, bson.M{"_id": requestId}).Decode(&request)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, &NotFoundError{Key: requestId, Message: "voucher request not found"}
			}
			return nil, err
		}

		var voucher model.VoucherDocument
		err = voucherClient.FindOne(sessCtx, bson.M{"request_id": requestId}).Decode(&voucher)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, &NotFoundError{Key: requestId, Message: "voucher not found for request"}
			}
			return nil, err
		}

		casFilter := bson.M{
			"_id":    requestId,
			"status": bson.M{"$in": utils.QualifiedStatesToFulfilled()},
		}
		casUpdate := bson.M{"$set": bson.M{
			"status":              types.Fulfilled,
			"settled_amount":      settledAmount,
			"fulfillment_tx_hash": fulfillmentTxHash,
		}}
		result, err := requestClient.UpdateOne(sessCtx, casFilter, casUpdate)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, &StaleStatusError{
				Key:           requestId,
				CurrentStatus: request.Status.ToString(),
				Message:       "voucher request is not in claimed state",
			}
		}

		liquidityId := model.LiquidityId(voucher.Xlp, request.DestinationChainId, request.DestinationToken)
		if err := db.debitLockedLiquidity(sessCtx, liquidityId, outputAmount); err != nil {
			return nil, err
		}

		event := types.VoucherFulfilledEvent{
			VoucherId: voucher.VoucherId,
			Recipient: request.Recipient,
			Amount:    outputAmount,
		}
		err = db.appendProtocolEvent(
			sessCtx, request.DestinationChainId, types.EventVoucherFulfilled,
			requestId, voucher.VoucherId, voucher.Xlp, event,
		)
		return nil, err
	}

	_, err := db.txWithRetries(ctx, txn)
	return err
}

// RefundVoucherRequest resolves an expired request to refunded and frees any
// liquidity still locked by a dangling claim. The deadline re-check lives in
// the CAS filter, so a fulfillment that landed first always wins.
func (db *Database) RefundVoucherRequest(ctx context.Context, requestId string, now int64) error {
	requestClient := db.Client.Database(db.DbName).Collection(model.VoucherRequestCollection)
	voucherClient := db.Client.Database(db.DbName).Collection(model.VoucherCollection)

	txn := func(sessCtx mongo.SessionContext) (interface{}, error) {
		var request model.VoucherRequestDocument
		err := requestClient.FindOne(sessCtx, bson.M{"_id": requestId}).Decode(&request)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, &NotFoundError{Key: requestId, Message: "voucher request not found"}
			}
			return nil, err
		}
		if request.Status.IsTerminal() {
			return nil, &StaleStatusError{
				Key:           requestId,
				CurrentStatus: request.Status.ToString(),
				Message:       "voucher request already resolved",
			}
		}
		if now < request.Deadline {
			return nil, &DeadlineExceededError{
				Key:     requestId,
				Message: "voucher request deadline has not passed yet",
			}
		}

		casFilter := bson.M{
			"_id":      requestId,
			"status":   bson.M{"$in": utils.QualifiedStatesToRefunded()},
			"deadline": bson.M{"$lte": now},
		}
		casUpdate := bson.M{"$set": bson.M{
			"status":      types.Refunded,
			"refunded_at": now,
		}}
		result, err := requestClient.UpdateOne(sessCtx, casFilter, casUpdate)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, &StaleStatusError{
				Key:           requestId,
				CurrentStatus: request.Status.ToString(),
				Message:       "voucher request no longer eligible for refund",
			}
		}

		// Free the lock of a dangling claim, if one exists.
		var voucher model.VoucherDocument
		err = voucherClient.FindOne(sessCtx, bson.M{"request_id": requestId}).Decode(&voucher)
		if err == nil {
			liquidityId := model.LiquidityId(voucher.Xlp, request.DestinationChainId, request.DestinationToken)
			if err := db.unlockLiquidity(sessCtx, liquidityId, request.Amount); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		event := types.VoucherRefundedEvent{
			RequestId: requestId,
			Requester: request.Requester,
			Amount:    request.Amount,
		}
		err = db.appendProtocolEvent(
			sessCtx, request.SourceChainId, types.EventVoucherRefunded,
			requestId, voucher.VoucherId, voucher.Xlp, event,
		)
		return nil, err
	}

	_, err := db.txWithRetries(ctx, txn)
	return err
}

func (db *Database) FindVoucherByRequestId(ctx context.Context, requestId string) (*model.VoucherDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.VoucherCollection)
	filter := bson.M{"request_id": requestId}
	var voucher model.VoucherDocument
	err := client.FindOne(ctx, filter).Decode(&voucher)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     requestId,
				Message: "voucher not found",
			}
		}
		return nil, err
	}
	return &voucher, nil
}

func (db *Database) FindVoucherByVoucherId(ctx context.Context, voucherId string) (*model.VoucherDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.VoucherCollection)
	filter := bson.M{"_id": voucherId}
	var voucher model.VoucherDocument
	err := client.FindOne(ctx, filter).Decode(&voucher)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     voucherId,
				Message: "voucher not found",
			}
		}
		return nil, err
	}
	return &voucher, nil
}
