package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/types"
)

// FulfillmentProofHandler ingests destination-chain payout events and settles
// the matching voucher.
func (h *QueueHandler) FulfillmentProofHandler(ctx context.Context, messageBody string) *types.Error {
	var proof queueclient.FulfillmentProofMessage
	err := json.Unmarshal([]byte(messageBody), &proof)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal message body into FulfillmentProofMessage")
		return types.NewError(http.StatusBadRequest, types.BadRequest, err)
	}

	return h.Services.ProcessFulfillmentProof(ctx, proof)
}
