package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

type LiquidityPayload struct {
	Xlp     string `json:"xlp"`
	ChainId uint64 `json:"chain_id"`
	Token   string `json:"token"`
	Amount  uint64 `json:"amount"`
}

func parseLiquidityPayload(request *http.Request) (*LiquidityPayload, *types.Error) {
	payload := &LiquidityPayload{}
	err := json.NewDecoder(request.Body).Decode(payload)
	if err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if !utils.IsValidAddress(payload.Xlp) {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid xlp address")
	}
	if !utils.IsValidAddress(payload.Token) {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid token address")
	}
	return payload, nil
}

// DepositLiquidity godoc
// @Summary Deposit fulfillment liquidity
// @Description Credits an XLP's liquidity balance for one token on one chain.
// @Accept json
// @Produce json
// @Param payload body LiquidityPayload true "Deposit Payload"
// @Success 200 "Liquidity deposited"
// @Failure 403 {object} types.Error "XLP not registered or inactive"
// @Router /v1/liquidity/deposit [post]
func (h *Handler) DepositLiquidity(request *http.Request) (*Result, *types.Error) {
	payload, err := parseLiquidityPayload(request)
	if err != nil {
		return nil, err
	}
	depositErr := h.services.DepositLiquidity(
		request.Context(), payload.Xlp, payload.ChainId, payload.Token, payload.Amount,
	)
	if depositErr != nil {
		return nil, depositErr
	}
	return &Result{Status: http.StatusOK}, nil
}

// WithdrawLiquidity godoc
// @Summary Withdraw unlocked liquidity
// @Description Debits an XLP's unlocked liquidity balance. Funds locked behind outstanding vouchers cannot be withdrawn.
// @Accept json
// @Produce json
// @Param payload body LiquidityPayload true "Withdraw Payload"
// @Success 200 "Liquidity withdrawn"
// @Failure 409 {object} types.Error "Withdrawal exceeds unlocked balance"
// @Router /v1/liquidity/withdraw [post]
func (h *Handler) WithdrawLiquidity(request *http.Request) (*Result, *types.Error) {
	payload, err := parseLiquidityPayload(request)
	if err != nil {
		return nil, err
	}
	withdrawErr := h.services.WithdrawLiquidity(
		request.Context(), payload.Xlp, payload.ChainId, payload.Token, payload.Amount,
	)
	if withdrawErr != nil {
		return nil, withdrawErr
	}
	return &Result{Status: http.StatusOK}, nil
}

// GetLiquidityBalances godoc
// @Summary Get an XLP's liquidity balances
// @Produce json
// @Param xlp query string true "XLP address"
// @Success 200 {object} PublicResponse[[]services.LiquidityBalancePublic] "Balances across chains and tokens"
// @Failure 400 {object} types.Error "Error: Bad Request"
// @Router /v1/liquidity [get]
func (h *Handler) GetLiquidityBalances(request *http.Request) (*Result, *types.Error) {
	xlp, err := parseAddressQuery(request, "xlp")
	if err != nil {
		return nil, err
	}
	balances, getErr := h.services.GetLiquidityBalances(request.Context(), xlp)
	if getErr != nil {
		return nil, getErr
	}
	return NewResult(balances), nil
}
