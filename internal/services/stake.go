package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/db"
	"github.com/crosslane/voucher-api-service/internal/db/model"
	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

type XLPStakePublic struct {
	Xlp                string   `json:"xlp"`
	StakedAmount       uint64   `json:"staked_amount"`
	UnbondingAmount    uint64   `json:"unbonding_amount,omitempty"`
	UnbondingStartTime *int64   `json:"unbonding_start_time,omitempty"`
	SlashedAmount      uint64   `json:"slashed_amount,omitempty"`
	IsActive           bool     `json:"is_active"`
	SupportedChains    []uint64 `json:"supported_chains"`
	RegisteredAt       int64    `json:"registered_at"`
}

func fromXLPStakeDocument(d *model.XLPStakeDocument) *XLPStakePublic {
	return &XLPStakePublic{
		Xlp:                d.Xlp,
		StakedAmount:       d.StakedAmount,
		UnbondingAmount:    d.UnbondingAmount,
		UnbondingStartTime: d.UnbondingStartTime,
		SlashedAmount:      d.SlashedAmount,
		IsActive:           d.IsActive,
		SupportedChains:    d.SupportedChains,
		RegisteredAt:       d.RegisteredAt,
	}
}

func (s *Services) validateStakeRegistration(xlp string, chains []uint64, stakeAmount uint64) *types.Error {
	if !utils.IsValidAddress(xlp) {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "invalid xlp address")
	}
	if stakeAmount < s.params.MinStakeAmount {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "stake amount below protocol minimum")
	}
	if len(chains) == 0 {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "at least one supported chain is required")
	}
	for _, chainId := range chains {
		if !s.params.IsChainSupported(chainId) {
			return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "unsupported chain in registration")
		}
	}
	return nil
}

// RegisterXLP records a new XLP stake. Registering an address that was
// previously registered and fully unbonded reactivates it with the new stake
// and chain set; re-registering an active XLP is rejected.
func (s *Services) RegisterXLP(ctx context.Context, xlp string, chains []uint64, stakeAmount uint64) *types.Error {
	if err := s.validateStakeRegistration(xlp, chains, stakeAmount); err != nil {
		return err
	}

	now := time.Now().Unix()
	stake := model.XLPStakeDocument{
		Xlp:             strings.ToLower(xlp),
		StakedAmount:    stakeAmount,
		IsActive:        true,
		SupportedChains: chains,
		RegisteredAt:    now,
	}

	err := s.DbClient.SaveXLPStake(ctx, stake)
	if err != nil {
		if db.IsDuplicateKeyError(err) {
			reactivateErr := s.DbClient.ReactivateXLPStake(ctx, stake.Xlp, chains, stakeAmount, now)
			if reactivateErr != nil {
				if db.IsDuplicateKeyError(reactivateErr) {
					return types.NewErrorWithMsg(http.StatusConflict, types.BadRequest, "xlp is already registered")
				}
				log.Ctx(ctx).Error().Err(reactivateErr).Str("xlp", xlp).Msg("failed to reactivate xlp stake")
				return types.NewInternalServiceError(reactivateErr)
			}
			log.Ctx(ctx).Info().Str("xlp", xlp).Msg("xlp stake reactivated")
			return nil
		}
		log.Ctx(ctx).Error().Err(err).Str("xlp", xlp).Msg("failed to save xlp stake")
		return types.NewInternalServiceError(err)
	}

	log.Ctx(ctx).Info().Str("xlp", xlp).Uint64("stakeAmount", stakeAmount).Msg("xlp registered")
	return nil
}

func (s *Services) AddStake(ctx context.Context, xlp string, amount uint64) *types.Error {
	if amount == 0 {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "amount must be positive")
	}
	err := s.DbClient.AddStake(ctx, strings.ToLower(xlp), amount)
	if err != nil {
		if db.IsNotFoundError(err) {
			return types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "xlp is not registered")
		}
		log.Ctx(ctx).Error().Err(err).Str("xlp", xlp).Msg("failed to add stake")
		return types.NewInternalServiceError(err)
	}
	return nil
}

// StartUnbonding begins withdrawing part or all of the stake. Only one
// unbonding may be in flight per XLP; the stake stays slashable for the whole
// unbonding period.
func (s *Services) StartUnbonding(ctx context.Context, xlp string, amount uint64) *types.Error {
	if amount == 0 {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "amount must be positive")
	}
	err := s.DbClient.StartUnbonding(ctx, strings.ToLower(xlp), amount, time.Now().Unix())
	if err != nil {
		switch {
		case db.IsNotFoundError(err):
			return types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "xlp is not registered")
		case db.IsUnbondingInProgressError(err):
			return types.NewErrorWithMsg(http.StatusConflict, types.BadRequest, "an unbonding is already in progress")
		case db.IsInsufficientBalanceError(err):
			return types.NewErrorWithMsg(
				http.StatusConflict, types.InsufficientLiquidity, "unbonding amount exceeds staked amount",
			)
		}
		log.Ctx(ctx).Error().Err(err).Str("xlp", xlp).Msg("failed to start unbonding")
		return types.NewInternalServiceError(err)
	}
	return nil
}

// CompleteUnbonding releases the unbonding amount once the unbonding period
// has elapsed. The payout reflects any slashing applied while unbonding, so
// it can be lower than the amount originally requested.
func (s *Services) CompleteUnbonding(ctx context.Context, xlp string) (uint64, *types.Error) {
	payout, err := s.DbClient.CompleteUnbonding(
		ctx, strings.ToLower(xlp), time.Now().Unix(),
		s.params.UnbondingPeriodSeconds, s.params.MinStakeAmount,
	)
	if err != nil {
		switch {
		case db.IsNotFoundError(err):
			return 0, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "no unbonding in progress")
		case db.IsUnbondingNotReadyError(err):
			return 0, types.NewErrorWithMsg(
				http.StatusConflict, types.UnbondingNotReady, "unbonding period has not elapsed yet",
			)
		}
		log.Ctx(ctx).Error().Err(err).Str("xlp", xlp).Msg("failed to complete unbonding")
		return 0, types.NewInternalServiceError(err)
	}
	log.Ctx(ctx).Info().Str("xlp", xlp).Uint64("payout", payout).Msg("unbonding completed")
	return payout, nil
}

// SlashXLPStake burns up to amount from the XLP's stake for a protocol
// violation. The actual burned amount is capped at the remaining stake and
// returned; every slash leaves an audit record and a hub-chain event.
func (s *Services) SlashXLPStake(ctx context.Context, xlp string, amount uint64, reason string) (uint64, *types.Error) {
	if amount == 0 {
		return 0, types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "amount must be positive")
	}
	if strings.TrimSpace(reason) == "" {
		return 0, types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "a slash reason is required")
	}

	slashed, err := s.DbClient.SlashXLPStake(
		ctx, strings.ToLower(xlp), amount, reason,
		s.params.HubChainId, s.params.MinStakeAmount,
	)
	if err != nil {
		if db.IsNotFoundError(err) {
			return 0, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "xlp is not registered")
		}
		log.Ctx(ctx).Error().Err(err).Str("xlp", xlp).Msg("failed to slash xlp stake")
		return 0, types.NewInternalServiceError(err)
	}

	log.Ctx(ctx).Warn().
		Str("xlp", xlp).
		Uint64("requestedAmount", amount).
		Uint64("slashedAmount", slashed).
		Str("reason", reason).
		Msg("xlp stake slashed")
	return slashed, nil
}

func (s *Services) GetXLPStake(ctx context.Context, xlp string) (*XLPStakePublic, *types.Error) {
	stake, err := s.DbClient.FindXLPStake(ctx, strings.ToLower(xlp))
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "xlp is not registered")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to find xlp stake")
		return nil, types.NewInternalServiceError(err)
	}
	return fromXLPStakeDocument(stake), nil
}

// GetXLPChains returns the chains the XLP has registered to serve. Only
// meaningful while the stake is active.
func (s *Services) GetXLPChains(ctx context.Context, xlp string) ([]uint64, *types.Error) {
	stake, publicErr := s.GetXLPStake(ctx, xlp)
	if publicErr != nil {
		return nil, publicErr
	}
	return stake.SupportedChains, nil
}

// GetUnbondingTimeRemaining returns the seconds until the in-flight unbonding
// can be completed, zero when it is already completable.
func (s *Services) GetUnbondingTimeRemaining(ctx context.Context, xlp string) (int64, *types.Error) {
	stake, err := s.DbClient.FindXLPStake(ctx, strings.ToLower(xlp))
	if err != nil {
		if db.IsNotFoundError(err) {
			return 0, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "xlp is not registered")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to find xlp stake")
		return 0, types.NewInternalServiceError(err)
	}
	if stake.UnbondingStartTime == nil {
		return 0, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "no unbonding in progress")
	}
	readyAt := *stake.UnbondingStartTime + s.params.UnbondingPeriodSeconds
	remaining := readyAt - time.Now().Unix()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *Services) GetSlashRecords(ctx context.Context, xlp string) ([]model.SlashRecordDocument, *types.Error) {
	records, err := s.DbClient.FindSlashRecordsByXLP(ctx, strings.ToLower(xlp))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to find slash records")
		return nil, types.NewInternalServiceError(err)
	}
	return records, nil
}
