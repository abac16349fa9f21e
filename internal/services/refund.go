package services

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/db"
	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/types"
)

// RefundVoucherRequest returns the escrow to the requester once the deadline
// has passed without a fulfillment. Anyone may trigger it; the funds only
// ever move back to the original requester. If a voucher was issued but never
// honored, its liquidity lock is released here.
func (s *Services) RefundVoucherRequest(ctx context.Context, requestId string) *types.Error {
	now := time.Now().Unix()
	err := s.DbClient.RefundVoucherRequest(ctx, requestId, now)
	if err != nil {
		switch {
		case db.IsNotFoundError(err):
			return types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "voucher request not found")
		case db.IsStaleStatusError(err):
			return types.NewErrorWithMsg(http.StatusConflict, types.StaleStatus, "voucher request is already settled")
		case db.IsDeadlineExceededError(err):
			return types.NewErrorWithMsg(
				http.StatusConflict, types.DeadlineExceeded, "voucher request deadline has not passed yet",
			)
		}
		log.Ctx(ctx).Error().Err(err).Str("requestId", requestId).Msg("failed to refund voucher request")
		return types.NewInternalServiceError(err)
	}

	log.Ctx(ctx).Info().Str("requestId", requestId).Msg("voucher request refunded")

	statsMsg := queueclient.VoucherStatsMessage{
		RequestId: requestId,
		State:     types.Refunded.ToString(),
	}
	if request, findErr := s.DbClient.FindVoucherRequestById(ctx, requestId); findErr == nil {
		statsMsg.Amount = request.Amount
	}
	s.emitStatsEvent(ctx, statsMsg)
	return nil
}
