package client

import (
	"context"
	"fmt"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
)

const retryAttemptHeader = "x-retry-attempts"

// RabbitMqClient is a QueueClient backed by one durable RabbitMQ queue. One
// channel consumes, a second one publishes; amqp channels are not safe for
// concurrent use across those two roles.
type RabbitMqClient struct {
	connection     *amqp.Connection
	consumeChannel *amqp.Channel
	publishChannel *amqp.Channel
	queueName      string
	stopCh         chan struct{}
}

func NewRabbitMqClient(queueURL, user, pass, queueName string) (*RabbitMqClient, error) {
	amqpURI := fmt.Sprintf("amqp://%s:%s@%s", user, pass, queueURL)
	conn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, err
	}

	consumeCh, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	publishCh, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	_, err = consumeCh.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &RabbitMqClient{
		connection:     conn,
		consumeChannel: consumeCh,
		publishChannel: publishCh,
		queueName:      queueName,
		stopCh:         make(chan struct{}),
	}, nil
}

func (c *RabbitMqClient) SendMessage(ctx context.Context, messageBody string) error {
	return c.publish(ctx, messageBody, 0)
}

func (c *RabbitMqClient) publish(ctx context.Context, messageBody string, retryAttempts int32) error {
	return c.publishChannel.PublishWithContext(
		ctx,
		"",          // default exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         []byte(messageBody),
			DeliveryMode: amqp.Persistent,
			Headers: amqp.Table{
				retryAttemptHeader: retryAttempts,
			},
		},
	)
}

// ReceiveMessages starts a manual-ack consumer and exposes deliveries as
// QueueMessages. The channel closes when Stop is called or the broker
// connection drops.
func (c *RabbitMqClient) ReceiveMessages() (<-chan QueueMessage, error) {
	deliveries, err := c.consumeChannel.Consume(
		c.queueName,
		"",    // consumer tag
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, err
	}

	out := make(chan QueueMessage)
	go func() {
		defer close(out)
		for {
			select {
			case <-c.stopCh:
				return
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}
				out <- QueueMessage{
					Body:          string(delivery.Body),
					Receipt:       strconv.FormatUint(delivery.DeliveryTag, 10),
					RetryAttempts: retryAttemptsFromHeaders(delivery.Headers),
				}
			}
		}
	}()
	return out, nil
}

func retryAttemptsFromHeaders(headers amqp.Table) int32 {
	raw, ok := headers[retryAttemptHeader]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

func (c *RabbitMqClient) DeleteMessage(receipt string) error {
	deliveryTag, err := strconv.ParseUint(receipt, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid receipt %q: %w", receipt, err)
	}
	return c.consumeChannel.Ack(deliveryTag, false)
}

// ReQueueMessage publishes a fresh copy of the message with the retry counter
// bumped and acks the original delivery. Re-publishing instead of nacking puts
// the message at the back of the queue and preserves the counter.
func (c *RabbitMqClient) ReQueueMessage(ctx context.Context, message QueueMessage) error {
	if err := c.publish(ctx, message.Body, message.RetryAttempts+1); err != nil {
		return err
	}
	return c.DeleteMessage(message.Receipt)
}

func (c *RabbitMqClient) Ping() error {
	if c.connection.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	if c.consumeChannel.IsClosed() || c.publishChannel.IsClosed() {
		return fmt.Errorf("rabbitmq channel is closed")
	}
	return nil
}

func (c *RabbitMqClient) Stop() error {
	close(c.stopCh)
	if err := c.consumeChannel.Close(); err != nil {
		return err
	}
	if err := c.publishChannel.Close(); err != nil {
		return err
	}
	return c.connection.Close()
}

func (c *RabbitMqClient) GetQueueName() string {
	return c.queueName
}
