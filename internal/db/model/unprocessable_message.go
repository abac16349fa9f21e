package model

import "time"

const UnprocessableMsgCollection = "unprocessable_messages"

// UnprocessableMessageDocument parks queue messages the handlers repeatedly
// failed on, so they can be inspected and replayed out of band.
type UnprocessableMessageDocument struct {
	MessageBody string `bson:"message_body"`
	Receipt     string `bson:"receipt"`
	ReceivedAt  int64  `bson:"received_at"`
}

func NewUnprocessableMessageDocument(messageBody, receipt string) UnprocessableMessageDocument {
	return UnprocessableMessageDocument{
		MessageBody: messageBody,
		Receipt:     receipt,
		ReceivedAt:  time.Now().Unix(),
	}
}
