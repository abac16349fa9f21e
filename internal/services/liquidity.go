package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/db"
	"github.com/crosslane/voucher-api-service/internal/db/model"
	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

type LiquidityBalancePublic struct {
	Xlp             string `json:"xlp"`
	ChainId         uint64 `json:"chain_id"`
	Token           string `json:"token"`
	Amount          uint64 `json:"amount"`
	LockedAmount    uint64 `json:"locked_amount"`
	AvailableAmount uint64 `json:"available_amount"`
}

func fromXLPLiquidityDocument(d model.XLPLiquidityDocument) LiquidityBalancePublic {
	return LiquidityBalancePublic{
		Xlp:             d.Xlp,
		ChainId:         d.ChainId,
		Token:           d.Token,
		Amount:          d.Amount,
		LockedAmount:    d.LockedAmount,
		AvailableAmount: d.Amount - d.LockedAmount,
	}
}

func (s *Services) validateLiquidityParams(xlp string, chainId uint64, token string, amount uint64) *types.Error {
	if !utils.IsValidAddress(xlp) {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "invalid xlp address")
	}
	if amount == 0 {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "amount must be positive")
	}
	if !s.params.IsChainSupported(chainId) {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "unsupported chain")
	}
	if !s.params.IsTokenSupported(chainId, token) {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "unsupported token")
	}
	return nil
}

// DepositLiquidity credits an XLP's fulfillment balance on a chain. Requires
// an active stake; liquidity from inactive XLPs cannot back vouchers.
func (s *Services) DepositLiquidity(
	ctx context.Context, xlp string, chainId uint64, token string, amount uint64,
) *types.Error {
	if err := s.validateLiquidityParams(xlp, chainId, token, amount); err != nil {
		return err
	}

	xlp = strings.ToLower(xlp)
	stake, err := s.DbClient.FindXLPStake(ctx, xlp)
	if err != nil {
		if db.IsNotFoundError(err) {
			return types.NewErrorWithMsg(http.StatusForbidden, types.Forbidden, "xlp is not registered")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to find xlp stake")
		return types.NewInternalServiceError(err)
	}
	if !stake.IsActive {
		return types.NewErrorWithMsg(http.StatusForbidden, types.Forbidden, "xlp stake is not active")
	}

	err = s.DbClient.DepositLiquidity(ctx, xlp, chainId, strings.ToLower(token), amount)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("xlp", xlp).Msg("failed to deposit liquidity")
		return types.NewInternalServiceError(err)
	}

	log.Ctx(ctx).Info().
		Str("xlp", xlp).
		Uint64("chainId", chainId).
		Uint64("amount", amount).
		Msg("liquidity deposited")
	return nil
}

// WithdrawLiquidity debits unlocked balance only. Funds locked behind an
// outstanding voucher stay locked until the voucher settles or is refunded.
func (s *Services) WithdrawLiquidity(
	ctx context.Context, xlp string, chainId uint64, token string, amount uint64,
) *types.Error {
	if err := s.validateLiquidityParams(xlp, chainId, token, amount); err != nil {
		return err
	}

	err := s.DbClient.WithdrawLiquidity(ctx, strings.ToLower(xlp), chainId, strings.ToLower(token), amount)
	if err != nil {
		switch {
		case db.IsNotFoundError(err):
			return types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "no liquidity balance found")
		case db.IsInsufficientBalanceError(err):
			return types.NewErrorWithMsg(
				http.StatusConflict, types.InsufficientUnlocked, "withdrawal exceeds unlocked balance",
			)
		}
		log.Ctx(ctx).Error().Err(err).Str("xlp", xlp).Msg("failed to withdraw liquidity")
		return types.NewInternalServiceError(err)
	}

	log.Ctx(ctx).Info().
		Str("xlp", xlp).
		Uint64("chainId", chainId).
		Uint64("amount", amount).
		Msg("liquidity withdrawn")
	return nil
}

func (s *Services) GetLiquidityBalances(ctx context.Context, xlp string) ([]LiquidityBalancePublic, *types.Error) {
	documents, err := s.DbClient.FindLiquidityBalancesByXLP(ctx, strings.ToLower(xlp))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to find liquidity balances")
		return nil, types.NewInternalServiceError(err)
	}
	balances := make([]LiquidityBalancePublic, 0, len(documents))
	for _, d := range documents {
		balances = append(balances, fromXLPLiquidityDocument(d))
	}
	return balances, nil
}
