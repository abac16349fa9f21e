package scripts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/config"
	"github.com/crosslane/voucher-api-service/internal/db"
	"github.com/crosslane/voucher-api-service/internal/queue"
)

// genericEvent probes the message body for the fields that distinguish the
// three message schemas, since parked messages do not record their queue.
type genericEvent struct {
	EscrowTxHash string `json:"escrow_tx_hash"`
	GasDelivered uint64 `json:"gas_delivered"`
	TxHash       string `json:"tx_hash"`
	State        string `json:"state"`
}

func ReplayUnprocessableMessages(ctx context.Context, cfg *config.Config, queues *queue.Queues, db db.DBClient) (err error) {
	// Fetch unprocessable messages
	unprocessableMessages, err := db.FindUnprocessableMessages(ctx)
	if err != nil {
		return errors.New("failed to retrieve unprocessable messages")
	}

	messageCount := len(unprocessableMessages)

	fmt.Printf("There are %d unprocessable messages.\n", messageCount)
	if messageCount == 0 {
		return errors.New("no unprocessable messages to replay")
	}

	for _, msg := range unprocessableMessages {
		var event genericEvent
		if err := json.Unmarshal([]byte(msg.MessageBody), &event); err != nil {
			fmt.Printf("Failed to unmarshal event message: %v", err)
			return errors.New("failed to unmarshal event message")
		}

		if err := processEventMessage(ctx, queues, event, msg.MessageBody); err != nil {
			return errors.New("failed to process message")
		}

		// Delete the processed message from the database
		if err := db.DeleteUnprocessableMessage(ctx, msg.Receipt); err != nil {
			return errors.New("failed to delete unprocessable message")
		}
	}

	log.Info().Msg("Reprocessing of unprocessable messages completed.")
	return
}

// processEventMessage routes the message back onto the queue it came from.
func processEventMessage(ctx context.Context, queues *queue.Queues, event genericEvent, messageBody string) error {
	switch {
	case event.EscrowTxHash != "":
		return queues.VoucherRequestedQueueClient.SendMessage(ctx, messageBody)
	case event.TxHash != "":
		return queues.FulfillmentProofQueueClient.SendMessage(ctx, messageBody)
	case event.State != "":
		return queues.VoucherStatsQueueClient.SendMessage(ctx, messageBody)
	default:
		return fmt.Errorf("unrecognized message schema: %s", messageBody)
	}
}
