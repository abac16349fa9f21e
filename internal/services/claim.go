package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/db"
	"github.com/crosslane/voucher-api-service/internal/db/model"
	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

type VoucherPublic struct {
	VoucherId string `json:"voucher_id"`
	RequestId string `json:"request_id"`
	Xlp       string `json:"xlp"`
	Fee       uint64 `json:"fee"`
	IssuedAt  int64  `json:"issued_at"`
}

func fromVoucherDocument(d *model.VoucherDocument) *VoucherPublic {
	return &VoucherPublic{
		VoucherId: d.VoucherId,
		RequestId: d.RequestId,
		Xlp:       d.Xlp,
		Fee:       d.Fee,
		IssuedAt:  d.IssuedAt,
	}
}

// ClaimVoucherRequest races the caller against every other XLP for the
// exclusive right to fulfill a request. The fee is fixed at the auction value
// observed here; it does not keep escalating for the winner. Exactly one
// caller can win: the status compare-and-set and the liquidity lock commit in
// one transaction, losers get ALREADY_CLAIMED.
func (s *Services) ClaimVoucherRequest(ctx context.Context, requestId, xlp string) (*VoucherPublic, *types.Error) {
	if !utils.IsValidAddress(xlp) {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "invalid xlp address")
	}
	// Stake and liquidity documents are keyed by the lowercased address.
	xlp = strings.ToLower(xlp)

	request, err := s.DbClient.FindVoucherRequestById(ctx, requestId)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "voucher request not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to find voucher request")
		return nil, types.NewInternalServiceError(err)
	}

	stake, err := s.DbClient.FindXLPStake(ctx, xlp)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewErrorWithMsg(http.StatusForbidden, types.Forbidden, "xlp is not registered")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to find xlp stake")
		return nil, types.NewInternalServiceError(err)
	}
	if !stake.IsActive {
		return nil, types.NewErrorWithMsg(http.StatusForbidden, types.Forbidden, "xlp stake is not active")
	}
	if !utils.Contains(stake.SupportedChains, request.DestinationChainId) {
		return nil, types.NewErrorWithMsg(
			http.StatusForbidden, types.Forbidden, "xlp does not support the destination chain",
		)
	}

	now := time.Now()
	voucher := model.VoucherDocument{
		VoucherId: uuid.NewString(),
		RequestId: requestId,
		Xlp:       xlp,
		Fee:       s.currentFee(request, now),
		IssuedAt:  now.Unix(),
	}

	err = s.DbClient.ClaimVoucherRequest(ctx, requestId, voucher, request.Amount, now.Unix())
	if err != nil {
		var staleErr *db.StaleStatusError
		switch {
		case errors.As(err, &staleErr):
			// A lost claim race reads as ALREADY_CLAIMED; a request that
			// already settled or refunded is stale, not contested.
			if current, parseErr := types.FromStringToVoucherRequestStatus(staleErr.CurrentStatus); parseErr == nil && current.IsTerminal() {
				return nil, types.NewErrorWithMsg(http.StatusConflict, types.StaleStatus, "voucher request is already settled")
			}
			return nil, types.NewErrorWithMsg(http.StatusConflict, types.AlreadyClaimed, "voucher request is no longer open")
		case db.IsDuplicateKeyError(err):
			return nil, types.NewErrorWithMsg(http.StatusConflict, types.AlreadyClaimed, "voucher request is no longer open")
		case db.IsDeadlineExceededError(err):
			return nil, types.NewErrorWithMsg(http.StatusConflict, types.DeadlineExceeded, "voucher request deadline has passed")
		case db.IsInsufficientBalanceError(err):
			return nil, types.NewErrorWithMsg(
				http.StatusConflict, types.InsufficientLiquidity,
				"insufficient unlocked liquidity on the destination chain",
			)
		case db.IsNotFoundError(err):
			return nil, types.NewErrorWithMsg(
				http.StatusConflict, types.InsufficientLiquidity,
				"no liquidity balance on the destination chain",
			)
		}
		log.Ctx(ctx).Error().Err(err).Str("requestId", requestId).Msg("failed to claim voucher request")
		return nil, types.NewInternalServiceError(err)
	}

	log.Ctx(ctx).Info().
		Str("requestId", requestId).
		Str("xlp", xlp).
		Uint64("fee", voucher.Fee).
		Msg("voucher issued")

	s.emitStatsEvent(ctx, queueclient.VoucherStatsMessage{
		RequestId: requestId,
		Xlp:       xlp,
		State:     types.Claimed.ToString(),
		Amount:    request.Amount,
		Fee:       voucher.Fee,
	})
	return fromVoucherDocument(&voucher), nil
}

func (s *Services) GetVoucherByRequestId(ctx context.Context, requestId string) (*VoucherPublic, *types.Error) {
	voucher, err := s.DbClient.FindVoucherByRequestId(ctx, requestId)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "voucher not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to find voucher")
		return nil, types.NewInternalServiceError(err)
	}
	return fromVoucherDocument(voucher), nil
}
