package queue

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/voucher-api-service/internal/db"
	"github.com/crosslane/voucher-api-service/internal/db/model"
	"github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/queue/handlers"
	"github.com/crosslane/voucher-api-service/internal/services"
	"github.com/crosslane/voucher-api-service/internal/types"
)

type fakeQueueClient struct {
	mu       sync.Mutex
	messages chan client.QueueMessage
	deleted  []string
	requeued []client.QueueMessage
}

func newFakeQueueClient(messages ...client.QueueMessage) *fakeQueueClient {
	ch := make(chan client.QueueMessage, len(messages))
	for _, m := range messages {
		ch <- m
	}
	close(ch)
	return &fakeQueueClient{messages: ch}
}

func (c *fakeQueueClient) SendMessage(ctx context.Context, messageBody string) error { return nil }

func (c *fakeQueueClient) ReceiveMessages() (<-chan client.QueueMessage, error) {
	return c.messages, nil
}

func (c *fakeQueueClient) DeleteMessage(receipt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, receipt)
	return nil
}

func (c *fakeQueueClient) ReQueueMessage(ctx context.Context, message client.QueueMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	message.RetryAttempts++
	c.requeued = append(c.requeued, message)
	return nil
}

func (c *fakeQueueClient) Ping() error          { return nil }
func (c *fakeQueueClient) Stop() error          { return nil }
func (c *fakeQueueClient) GetQueueName() string { return "test_queue" }

func (c *fakeQueueClient) deletedReceipts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

func (c *fakeQueueClient) requeuedMessages() []client.QueueMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]client.QueueMessage(nil), c.requeued...)
}

// unprocessableStore satisfies db.DBClient through embedding; only the
// unprocessable message sink is reached from the consumer loop.
type unprocessableStore struct {
	db.DBClient
	mu     sync.Mutex
	parked []model.UnprocessableMessageDocument
}

func (s *unprocessableStore) SaveUnprocessableMessage(ctx context.Context, messageBody, receipt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parked = append(s.parked, model.NewUnprocessableMessageDocument(messageBody, receipt))
	return nil
}

func (s *unprocessableStore) parkedMessages() []model.UnprocessableMessageDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.UnprocessableMessageDocument(nil), s.parked...)
}

func newTestQueues(store *unprocessableStore) *Queues {
	return &Queues{
		Handlers:          handlers.NewQueueHandler(&services.Services{DbClient: store}),
		processingTimeout: 5 * time.Second,
		maxRetryAttempts:  2,
	}
}

func TestConsumerAcksProcessedMessages(t *testing.T) {
	queueClient := newFakeQueueClient(
		client.QueueMessage{Body: "a", Receipt: "1"},
		client.QueueMessage{Body: "b", Receipt: "2"},
	)
	q := newTestQueues(&unprocessableStore{})

	var handled []string
	var mu sync.Mutex
	handler := func(ctx context.Context, messageBody string) *types.Error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, messageBody)
		return nil
	}

	q.startQueueMessageProcessing(queueClient, handler, log.Logger)

	require.Eventually(t, func() bool {
		return len(queueClient.deletedReceipts()) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, handled)
	assert.Empty(t, queueClient.requeuedMessages())
}

func TestConsumerRequeuesFailedMessages(t *testing.T) {
	queueClient := newFakeQueueClient(client.QueueMessage{Body: "bad", Receipt: "1", RetryAttempts: 1})
	q := newTestQueues(&unprocessableStore{})

	handler := func(ctx context.Context, messageBody string) *types.Error {
		return types.NewErrorWithMsg(http.StatusInternalServerError, types.InternalServiceError, "boom")
	}

	q.startQueueMessageProcessing(queueClient, handler, log.Logger)

	require.Eventually(t, func() bool {
		return len(queueClient.requeuedMessages()) == 1
	}, time.Second, 10*time.Millisecond)

	requeued := queueClient.requeuedMessages()
	assert.Equal(t, int32(2), requeued[0].RetryAttempts, "the retry counter must travel with the message")
	assert.Empty(t, queueClient.deletedReceipts(), "a failed message stays in flight until requeued")
}

func TestConsumerParksPoisonMessages(t *testing.T) {
	queueClient := newFakeQueueClient(client.QueueMessage{Body: "poison", Receipt: "1", RetryAttempts: 3})
	store := &unprocessableStore{}
	q := newTestQueues(store)

	handlerCalled := false
	handler := func(ctx context.Context, messageBody string) *types.Error {
		handlerCalled = true
		return nil
	}

	q.startQueueMessageProcessing(queueClient, handler, log.Logger)

	require.Eventually(t, func() bool {
		return len(store.parkedMessages()) == 1
	}, time.Second, 10*time.Millisecond)

	parked := store.parkedMessages()
	assert.Equal(t, "poison", parked[0].MessageBody)
	assert.Equal(t, []string{"1"}, queueClient.deletedReceipts(), "a parked message is acked off the queue")
	assert.False(t, handlerCalled, "a poison message must not reach the handler again")
}
