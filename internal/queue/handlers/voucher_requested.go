package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/types"
)

// VoucherRequestedHandler ingests escrow events observed on a source chain.
// Idempotent: duplicate deliveries of the same escrow are dropped downstream.
func (h *QueueHandler) VoucherRequestedHandler(ctx context.Context, messageBody string) *types.Error {
	var event queueclient.VoucherRequestedMessage
	err := json.Unmarshal([]byte(messageBody), &event)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal message body into VoucherRequestedMessage")
		return types.NewError(http.StatusBadRequest, types.BadRequest, err)
	}

	return h.Services.CreateVoucherRequestFromEvent(ctx, event)
}
