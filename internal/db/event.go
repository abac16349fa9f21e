package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crosslane/voucher-api-service/internal/db/model"
	"github.com/crosslane/voucher-api-service/internal/types"
)

// nextEventSeq allocates the next per-chain sequence number. Called inside
// the same transaction as the state change emitting the event, so the log
// order per chain matches the commit order.
func (db *Database) nextEventSeq(ctx context.Context, chainId uint64) (int64, error) {
	client := db.Client.Database(db.DbName).Collection(model.EventCounterCollection)

	filter := bson.M{"_id": chainId}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter model.EventCounterDocument
	if err := client.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

// appendProtocolEvent writes one entry into the append-only event log.
func (db *Database) appendProtocolEvent(
	ctx context.Context, chainId uint64, eventType types.ProtocolEventType,
	requestId, voucherId, xlp string, payload interface{},
) error {
	seq, err := db.nextEventSeq(ctx, chainId)
	if err != nil {
		return err
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := db.Client.Database(db.DbName).Collection(model.ProtocolEventCollection)
	document := model.ProtocolEventDocument{
		EventId:   uuid.NewString(),
		Seq:       seq,
		ChainId:   chainId,
		EventType: eventType,
		RequestId: requestId,
		VoucherId: voucherId,
		Xlp:       xlp,
		Payload:   string(payloadBytes),
		CreatedAt: time.Now().Unix(),
	}
	_, err = client.InsertOne(ctx, document)
	return err
}

func (db *Database) FindProtocolEventsByRequestId(ctx context.Context, requestId string) ([]model.ProtocolEventDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.ProtocolEventCollection)

	filter := bson.M{"request_id": requestId}
	opts := options.Find().SetSort(bson.D{{Key: "chain_id", Value: 1}, {Key: "seq", Value: 1}})

	cursor, err := client.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []model.ProtocolEventDocument
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
