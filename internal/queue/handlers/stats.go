package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/types"
)

func (h *QueueHandler) StatsHandler(ctx context.Context, messageBody string) *types.Error {
	var statsEvent queueclient.VoucherStatsMessage
	err := json.Unmarshal([]byte(messageBody), &statsEvent)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal message body into VoucherStatsMessage")
		return types.NewError(http.StatusBadRequest, types.BadRequest, err)
	}

	return h.Services.ProcessVoucherStats(ctx, statsEvent)
}
