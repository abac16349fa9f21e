package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/config"
	"github.com/crosslane/voucher-api-service/internal/observability/metrics"
	"github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/queue/handlers"
	"github.com/crosslane/voucher-api-service/internal/services"
)

type Queues struct {
	VoucherRequestedQueueClient client.QueueClient
	FulfillmentProofQueueClient client.QueueClient
	VoucherStatsQueueClient     client.QueueClient
	Handlers                    *handlers.QueueHandler
	processingTimeout           time.Duration
	maxRetryAttempts            int32
}

func New(cfg *config.QueueConfig, service *services.Services) *Queues {
	voucherRequestedQueueClient, err := client.NewQueueClient(
		cfg.Url, cfg.QueueUser, cfg.QueuePassword, client.VoucherRequestedQueueName,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating VoucherRequestedQueueClient")
	}

	fulfillmentProofQueueClient, err := client.NewQueueClient(
		cfg.Url, cfg.QueueUser, cfg.QueuePassword, client.FulfillmentProofQueueName,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating FulfillmentProofQueueClient")
	}

	voucherStatsQueueClient, err := client.NewQueueClient(
		cfg.Url, cfg.QueueUser, cfg.QueuePassword, client.VoucherStatsQueueName,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating VoucherStatsQueueClient")
	}

	handlers := handlers.NewQueueHandler(service)
	return &Queues{
		VoucherRequestedQueueClient: voucherRequestedQueueClient,
		FulfillmentProofQueueClient: fulfillmentProofQueueClient,
		VoucherStatsQueueClient:     voucherStatsQueueClient,
		Handlers:                    handlers,
		processingTimeout:           time.Duration(cfg.QueueProcessingTimeout) * time.Second,
		maxRetryAttempts:            cfg.MsgMaxRetryAttempts,
	}
}

// StartReceivingMessages starts one consumer goroutine per queue.
func (q *Queues) StartReceivingMessages() {
	q.startQueueMessageProcessing(q.VoucherRequestedQueueClient, q.Handlers.VoucherRequestedHandler, log.Logger)
	q.startQueueMessageProcessing(q.FulfillmentProofQueueClient, q.Handlers.FulfillmentProofHandler, log.Logger)
	q.startQueueMessageProcessing(q.VoucherStatsQueueClient, q.Handlers.StatsHandler, log.Logger)
}

// StopReceivingMessages turns off all message processing.
func (q *Queues) StopReceivingMessages() {
	if err := q.VoucherRequestedQueueClient.Stop(); err != nil {
		log.Error().Err(err).Str("queueName", q.VoucherRequestedQueueClient.GetQueueName()).Msg("error while stopping queue")
	}
	if err := q.FulfillmentProofQueueClient.Stop(); err != nil {
		log.Error().Err(err).Str("queueName", q.FulfillmentProofQueueClient.GetQueueName()).Msg("error while stopping queue")
	}
	if err := q.VoucherStatsQueueClient.Stop(); err != nil {
		log.Error().Err(err).Str("queueName", q.VoucherStatsQueueClient.GetQueueName()).Msg("error while stopping queue")
	}
}

// IsConnectionHealthy pings every queue client. Used by the periodic
// healthcheck to surface a dead broker connection.
func (q *Queues) IsConnectionHealthy() error {
	for _, queueClient := range []client.QueueClient{
		q.VoucherRequestedQueueClient,
		q.FulfillmentProofQueueClient,
		q.VoucherStatsQueueClient,
	} {
		if err := queueClient.Ping(); err != nil {
			return fmt.Errorf("queue %s is unhealthy: %w", queueClient.GetQueueName(), err)
		}
	}
	return nil
}

func (q *Queues) startQueueMessageProcessing(
	queueClient client.QueueClient, handler handlers.MessageHandler, logger zerolog.Logger,
) {
	messagesChan, err := queueClient.ReceiveMessages()
	if err != nil {
		logger.Fatal().Err(err).Str("queueName", queueClient.GetQueueName()).Msg("error setting up message channel from queue")
	}

	go func() {
		for message := range messagesChan {
			attempts := message.RetryAttempts
			// For each message, create a new context with a deadline or timeout
			ctx, cancel := context.WithTimeout(context.Background(), q.processingTimeout)

			// Park messages that keep failing so the queue is not wedged by a
			// poison message; they can be replayed once the cause is fixed.
			if attempts > q.maxRetryAttempts {
				logger.Error().
					Str("queueName", queueClient.GetQueueName()).
					Str("message", message.Body).
					Msg("message exceeded the max retry attempts, parking it as unprocessable")
				saveErr := q.Handlers.Services.SaveUnprocessableMessages(ctx, message.Body, message.Receipt)
				if saveErr != nil {
					logger.Error().Err(saveErr).Str("queueName", queueClient.GetQueueName()).Msg("error while saving unprocessable message")
					cancel()
					continue
				}
				delErr := queueClient.DeleteMessage(message.Receipt)
				if delErr != nil {
					logger.Error().Err(delErr).Str("queueName", queueClient.GetQueueName()).Msg("error while deleting message from queue")
				}
				metrics.RecordQueueUnprocessableMessage(queueClient.GetQueueName())
				cancel()
				continue
			}

			err := handler(ctx, message.Body)
			if err != nil {
				logger.Error().Err(err).
					Str("queueName", queueClient.GetQueueName()).
					Int32("retryAttempts", attempts).
					Msg("error while processing message from queue")
				requeueErr := queueClient.ReQueueMessage(ctx, message)
				if requeueErr != nil {
					logger.Error().Err(requeueErr).Str("queueName", queueClient.GetQueueName()).Msg("error while requeuing message")
				}
				metrics.RecordQueueMessageProcessingFailure(queueClient.GetQueueName())
				cancel()
				continue
			}

			delErr := queueClient.DeleteMessage(message.Receipt)
			if delErr != nil {
				logger.Error().Err(delErr).Str("queueName", queueClient.GetQueueName()).Msg("error while deleting message from queue")
			}
			cancel()
		}
	}()
}
