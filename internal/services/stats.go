package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/crosslane/voucher-api-service/internal/db"
	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/types"
)

type OverallStatsPublic struct {
	TotalRequests     int64 `json:"total_requests"`
	ActiveVouchers    int64 `json:"active_vouchers"`
	FulfilledVouchers int64 `json:"fulfilled_vouchers"`
	RefundedRequests  int64 `json:"refunded_requests"`
	TotalVolume       int64 `json:"total_volume"`
	TotalFeesPaid     int64 `json:"total_fees_paid"`
}

type XlpStatsPublic struct {
	Xlp               string `json:"xlp"`
	ActiveVouchers    int64  `json:"active_vouchers"`
	FulfilledVouchers int64  `json:"fulfilled_vouchers"`
	ExpiredClaims     int64  `json:"expired_claims"`
	TotalVolume       int64  `json:"total_volume"`
	TotalFeesEarned   int64  `json:"total_fees_earned"`
}

// ProcessVoucherStats projects one lifecycle step into the overall and
// per-XLP read models. Redeliveries are safe: each (request, state) pair is
// counted at most once through the stats lock document.
func (s *Services) ProcessVoucherStats(ctx context.Context, msg queueclient.VoucherStatsMessage) *types.Error {
	state, err := types.FromStringToVoucherRequestStatus(msg.State)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("requestId", msg.RequestId).Msg("stats event with unknown state, dropping")
		return nil
	}

	overall, xlpIncrements := statsIncrementsForState(state, msg.Amount, msg.Fee)
	if overall == nil {
		return nil
	}

	lock, lockErr := s.DbClient.GetOrCreateStatsLock(ctx, msg.RequestId, msg.State)
	if lockErr != nil {
		log.Ctx(ctx).Error().Err(lockErr).Str("requestId", msg.RequestId).Msg("failed to fetch stats lock")
		return types.NewInternalServiceError(lockErr)
	}

	if !lock.OverallStats {
		if dbErr := s.DbClient.IncrementOverallStats(ctx, msg.RequestId, msg.State, overall); dbErr != nil {
			if !db.IsNotFoundError(dbErr) {
				log.Ctx(ctx).Error().Err(dbErr).Str("requestId", msg.RequestId).Msg("failed to update overall stats")
				return types.NewInternalServiceError(dbErr)
			}
			// lost the race to another delivery, already counted
		}
	}

	xlp := msg.Xlp
	if state == types.Refunded && xlp == "" {
		// A refund can strand a claimed-but-unfulfilled voucher; attribute the
		// miss to its holder.
		voucher, findErr := s.DbClient.FindVoucherByRequestId(ctx, msg.RequestId)
		if findErr != nil {
			if !db.IsNotFoundError(findErr) {
				return types.NewInternalServiceError(findErr)
			}
		} else {
			xlp = voucher.Xlp
		}
	}
	if xlp == "" || xlpIncrements == nil || lock.XlpStats {
		return nil
	}

	if dbErr := s.DbClient.IncrementXlpStats(ctx, msg.RequestId, msg.State, xlp, xlpIncrements); dbErr != nil {
		if !db.IsNotFoundError(dbErr) {
			log.Ctx(ctx).Error().Err(dbErr).Str("requestId", msg.RequestId).Msg("failed to update xlp stats")
			return types.NewInternalServiceError(dbErr)
		}
	}
	return nil
}

// statsIncrementsForState maps one lifecycle step onto counter deltas. The
// second map is nil when the step carries no per-XLP meaning.
func statsIncrementsForState(state types.VoucherRequestStatus, amount, fee uint64) (bson.M, bson.M) {
	switch state {
	case types.Open:
		return bson.M{
			"total_requests": int64(1),
			"total_volume":   int64(amount),
		}, nil
	case types.Claimed:
		return bson.M{
				"active_vouchers": int64(1),
			}, bson.M{
				"active_vouchers": int64(1),
			}
	case types.Fulfilled:
		return bson.M{
				"active_vouchers":    int64(-1),
				"fulfilled_vouchers": int64(1),
				"total_fees_paid":    int64(fee),
			}, bson.M{
				"active_vouchers":    int64(-1),
				"fulfilled_vouchers": int64(1),
				"total_volume":       int64(amount),
				"total_fees_earned":  int64(fee),
			}
	case types.Refunded:
		return bson.M{
				"refunded_requests": int64(1),
			}, bson.M{
				"active_vouchers": int64(-1),
				"expired_claims":  int64(1),
			}
	default:
		return nil, nil
	}
}

func (s *Services) GetOverallStats(ctx context.Context) (*OverallStatsPublic, *types.Error) {
	stats, err := s.DbClient.GetOverallStats(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to fetch overall stats")
		return nil, types.NewInternalServiceError(err)
	}
	return &OverallStatsPublic{
		TotalRequests:     stats.TotalRequests,
		ActiveVouchers:    stats.ActiveVouchers,
		FulfilledVouchers: stats.FulfilledVouchers,
		RefundedRequests:  stats.RefundedRequests,
		TotalVolume:       stats.TotalVolume,
		TotalFeesPaid:     stats.TotalFeesPaid,
	}, nil
}

func (s *Services) GetXlpStats(ctx context.Context, xlp string) (*XlpStatsPublic, *types.Error) {
	xlp = strings.ToLower(xlp)
	stats, err := s.DbClient.GetXlpStats(ctx, xlp)
	if err != nil {
		if db.IsNotFoundError(err) {
			// An XLP with no projected activity yet reads as all zeroes.
			return &XlpStatsPublic{Xlp: xlp}, nil
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to fetch xlp stats")
		return nil, types.NewInternalServiceError(err)
	}
	return &XlpStatsPublic{
		Xlp:               stats.Xlp,
		ActiveVouchers:    stats.ActiveVouchers,
		FulfilledVouchers: stats.FulfilledVouchers,
		ExpiredClaims:     stats.ExpiredClaims,
		TotalVolume:       stats.TotalVolume,
		TotalFeesEarned:   stats.TotalFeesEarned,
	}, nil
}
