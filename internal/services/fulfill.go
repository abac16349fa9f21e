package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/db"
	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

// ProcessFulfillmentProof verifies a destination-chain payout observed by the
// watcher against the voucher it settles and flips the request to fulfilled.
// A proof mined before the deadline is honored even if this service processes
// it after the deadline has passed; the deadline bounds when the payout must
// land on chain, not when the proof arrives here.
//
// Returns a types.Error only for failures worth retrying the message for.
// Proofs that can never become valid are logged and dropped.
func (s *Services) ProcessFulfillmentProof(ctx context.Context, proof queueclient.FulfillmentProofMessage) *types.Error {
	logger := log.Ctx(ctx).With().Str("requestId", proof.RequestId).Str("xlp", proof.Xlp).Logger()

	request, err := s.DbClient.FindVoucherRequestById(ctx, proof.RequestId)
	if err != nil {
		if db.IsNotFoundError(err) {
			// The watcher can outrun the escrow ingestion path; retry so the
			// request has a chance to appear.
			return types.NewInternalServiceError(err)
		}
		logger.Error().Err(err).Msg("failed to find voucher request for fulfillment proof")
		return types.NewInternalServiceError(err)
	}

	if utils.Contains(utils.OutdatedStatesForFulfillment(), request.Status) {
		logger.Info().Str("status", request.Status.ToString()).Msg("fulfillment proof for a settled request, skipping")
		return nil
	}

	voucher, err := s.DbClient.FindVoucherByRequestId(ctx, proof.RequestId)
	if err != nil {
		if db.IsNotFoundError(err) {
			logger.Warn().Msg("fulfillment proof for an unclaimed request, dropping")
			return nil
		}
		logger.Error().Err(err).Msg("failed to find voucher for fulfillment proof")
		return types.NewInternalServiceError(err)
	}

	if insufficient := s.verifyFulfillmentProof(request.DestinationChainId, request.DestinationToken, request.Recipient,
		request.Amount, request.GasOnDestination, request.Deadline, voucher.Xlp, &proof); insufficient != "" {
		logger.Warn().Str("reason", insufficient).Msg("invalid fulfillment proof, dropping")
		return nil
	}

	settledAmount := request.Amount + voucher.Fee + request.GasOnDestination
	err = s.DbClient.FulfillVoucherRequest(ctx, proof.RequestId, request.Amount, settledAmount, proof.TxHash)
	if err != nil {
		if db.IsStaleStatusError(err) {
			logger.Info().Msg("request already settled concurrently, skipping")
			return nil
		}
		logger.Error().Err(err).Msg("failed to fulfill voucher request")
		return types.NewInternalServiceError(err)
	}

	logger.Info().Uint64("settledAmount", settledAmount).Msg("voucher request fulfilled")

	s.emitStatsEvent(ctx, queueclient.VoucherStatsMessage{
		RequestId: proof.RequestId,
		Xlp:       voucher.Xlp,
		State:     types.Fulfilled.ToString(),
		Amount:    request.Amount,
		Fee:       voucher.Fee,
	})
	return nil
}

// verifyFulfillmentProof returns a non-empty rejection reason when the payout
// does not discharge the voucher's obligation.
func (s *Services) verifyFulfillmentProof(
	chainId uint64, token, recipient string, amount, gasOnDestination uint64,
	deadline int64, voucherXlp string, proof *queueclient.FulfillmentProofMessage,
) string {
	if proof.ChainId != chainId {
		return "wrong destination chain"
	}
	if !strings.EqualFold(proof.Token, token) {
		return "wrong destination token"
	}
	if !strings.EqualFold(proof.Recipient, recipient) {
		return "wrong recipient"
	}
	if !strings.EqualFold(proof.Xlp, voucherXlp) {
		return "payout from an xlp other than the voucher holder"
	}
	if proof.Amount < amount {
		return "payout amount below requested amount"
	}
	if proof.GasDelivered < gasOnDestination {
		return "delivered gas below requested gas"
	}
	if proof.MinedAt >= deadline {
		return "payout mined after the deadline"
	}
	if !utils.IsValidHash(proof.TxHash) {
		return "malformed payout transaction hash"
	}
	return ""
}
