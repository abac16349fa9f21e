package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crosslane/voucher-api-service/internal/db/model"
)

func (db *Database) GetRelayCheckpoint(ctx context.Context, chainId uint64) (*model.RelayCheckpointDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.RelayCheckpointCollection)

	var checkpoint model.RelayCheckpointDocument
	err := client.FindOne(ctx, bson.M{"_id": chainId}).Decode(&checkpoint)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{Message: "no relay checkpoint for chain"}
		}
		return nil, err
	}
	return &checkpoint, nil
}

func (db *Database) SaveRelayCheckpoint(ctx context.Context, chainId uint64, lastProcessedBlock uint64) error {
	client := db.Client.Database(db.DbName).Collection(model.RelayCheckpointCollection)

	filter := bson.M{"_id": chainId}
	update := bson.M{"$set": bson.M{
		"last_processed_block": lastProcessedBlock,
		"updated_at":           time.Now().Unix(),
	}}

	_, err := client.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}
