package db

import (
	"context"
	"fmt"
	"math/rand"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crosslane/voucher-api-service/internal/db/model"
)

// GetOrCreateStatsLock fetches the stats lock for one request and lifecycle
// step, creating it with all fields false on first sight. The lock is what
// makes projection of redelivered stats events idempotent.
func (db *Database) GetOrCreateStatsLock(ctx context.Context, requestId string, state string) (*model.StatsLockDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.StatsLockCollection)

	id := fmt.Sprintf("%s:%s", requestId, state)
	filter := bson.M{"_id": id}
	update := bson.M{"$setOnInsert": model.StatsLockDocument{
		Id: id,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var lock model.StatsLockDocument
	if err := client.FindOneAndUpdate(ctx, filter, update, opts).Decode(&lock); err != nil {
		return nil, err
	}
	return &lock, nil
}

// IncrementOverallStats applies the given increments to one logical shard of
// the overall stats read model, guarded by the request's stats lock. A
// NotFoundError means another delivery already counted this step.
func (db *Database) IncrementOverallStats(ctx context.Context, requestId, state string, increments bson.M) error {
	lockClient := db.Client.Database(db.DbName).Collection(model.StatsLockCollection)
	statsClient := db.Client.Database(db.DbName).Collection(model.OverallStatsCollection)

	lockId := fmt.Sprintf("%s:%s", requestId, state)
	result, err := lockClient.UpdateOne(
		ctx,
		bson.M{"_id": lockId, "overall_stats": false},
		bson.M{"$set": bson.M{"overall_stats": true}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &NotFoundError{Key: lockId, Message: "overall stats already counted for this step"}
	}

	shardId := fmt.Sprintf("shard-%d", rand.Int63n(db.cfg.LogicalShardCount))
	_, err = statsClient.UpdateOne(
		ctx,
		bson.M{"_id": shardId},
		bson.M{"$inc": increments},
		options.Update().SetUpsert(true),
	)
	return err
}

// IncrementXlpStats applies the given increments to one XLP's stats read
// model, guarded by the request's stats lock.
func (db *Database) IncrementXlpStats(ctx context.Context, requestId, state, xlp string, increments bson.M) error {
	lockClient := db.Client.Database(db.DbName).Collection(model.StatsLockCollection)
	statsClient := db.Client.Database(db.DbName).Collection(model.XlpStatsCollection)

	lockId := fmt.Sprintf("%s:%s", requestId, state)
	result, err := lockClient.UpdateOne(
		ctx,
		bson.M{"_id": lockId, "xlp_stats": false},
		bson.M{"$set": bson.M{"xlp_stats": true}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return &NotFoundError{Key: lockId, Message: "XLP stats already counted for this step"}
	}

	_, err = statsClient.UpdateOne(
		ctx,
		bson.M{"_id": xlp},
		bson.M{"$inc": increments},
		options.Update().SetUpsert(true),
	)
	return err
}

// GetOverallStats sums all logical shards into a single view.
func (db *Database) GetOverallStats(ctx context.Context) (*model.OverallStatsDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.OverallStatsCollection)

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":                nil,
			"total_requests":     bson.M{"$sum": "$total_requests"},
			"active_vouchers":    bson.M{"$sum": "$active_vouchers"},
			"fulfilled_vouchers": bson.M{"$sum": "$fulfilled_vouchers"},
			"refunded_requests":  bson.M{"$sum": "$refunded_requests"},
			"total_volume":       bson.M{"$sum": "$total_volume"},
			"total_fees_paid":    bson.M{"$sum": "$total_fees_paid"},
		}}},
	}

	cursor, err := client.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []model.OverallStatsDocument
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &model.OverallStatsDocument{}, nil
	}
	return &results[0], nil
}

func (db *Database) GetXlpStats(ctx context.Context, xlp string) (*model.XlpStatsDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.XlpStatsCollection)

	var stats model.XlpStatsDocument
	err := client.FindOne(ctx, bson.M{"_id": xlp}).Decode(&stats)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, &NotFoundError{Key: xlp, Message: "no stats recorded for XLP"}
		}
		return nil, err
	}
	return &stats, nil
}
