package db

import (
	"context"

	"github.com/crosslane/voucher-api-service/internal/db/model"
	"go.mongodb.org/mongo-driver/bson"
)

func (db *Database) SaveUnprocessableMessage(ctx context.Context, messageBody, receipt string) error {
	client := db.Client.Database(db.DbName).Collection(model.UnprocessableMsgCollection)

	_, err := client.InsertOne(ctx, model.NewUnprocessableMessageDocument(messageBody, receipt))
	return err
}

func (db *Database) FindUnprocessableMessages(ctx context.Context) ([]model.UnprocessableMessageDocument, error) {
	client := db.Client.Database(db.DbName).Collection(model.UnprocessableMsgCollection)

	cursor, err := client.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []model.UnprocessableMessageDocument
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (db *Database) DeleteUnprocessableMessage(ctx context.Context, receipt string) error {
	client := db.Client.Database(db.DbName).Collection(model.UnprocessableMsgCollection)

	_, err := client.DeleteOne(ctx, bson.M{"receipt": receipt})
	return err
}
