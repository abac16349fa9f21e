package client

import "context"

type QueueMessage struct {
	Body    string
	Receipt string
	// RetryAttempts counts how many times the message has been redelivered
	// after a processing failure.
	RetryAttempts int32
}

// QueueClient abstracts one named queue on the message broker.
type QueueClient interface {
	SendMessage(ctx context.Context, messageBody string) error
	ReceiveMessages() (<-chan QueueMessage, error)
	DeleteMessage(receipt string) error
	ReQueueMessage(ctx context.Context, message QueueMessage) error
	Ping() error
	Stop() error
	GetQueueName() string
}

func NewQueueClient(queueURL, user, pass, queueName string) (QueueClient, error) {
	return NewRabbitMqClient(queueURL, user, pass, queueName)
}
