package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

type RegisterXLPPayload struct {
	Xlp             string   `json:"xlp"`
	SupportedChains []uint64 `json:"supported_chains"`
	StakeAmount     uint64   `json:"stake_amount"`
}

type StakeAmountPayload struct {
	Xlp    string `json:"xlp"`
	Amount uint64 `json:"amount"`
}

type CompleteUnbondingPayload struct {
	Xlp string `json:"xlp"`
}

type SlashXLPPayload struct {
	Xlp    string `json:"xlp"`
	Amount uint64 `json:"amount"`
	Reason string `json:"reason"`
}

func parseStakeAmountPayload(request *http.Request) (*StakeAmountPayload, *types.Error) {
	payload := &StakeAmountPayload{}
	err := json.NewDecoder(request.Body).Decode(payload)
	if err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if !utils.IsValidAddress(payload.Xlp) {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid xlp address")
	}
	return payload, nil
}

// RegisterXLP godoc
// @Summary Register an XLP
// @Description Registers a new XLP with its stake and the chains it serves. Reactivates a fully unbonded XLP.
// @Accept json
// @Produce json
// @Param payload body RegisterXLPPayload true "Registration Payload"
// @Success 201 "XLP registered"
// @Failure 400 {object} types.Error "Stake below minimum or unsupported chain"
// @Router /v1/stake/register [post]
func (h *Handler) RegisterXLP(request *http.Request) (*Result, *types.Error) {
	payload := &RegisterXLPPayload{}
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}

	registerErr := h.services.RegisterXLP(
		request.Context(), payload.Xlp, payload.SupportedChains, payload.StakeAmount,
	)
	if registerErr != nil {
		return nil, registerErr
	}
	return &Result{Status: http.StatusCreated}, nil
}

// AddStake godoc
// @Summary Add stake
// @Accept json
// @Produce json
// @Param payload body StakeAmountPayload true "Stake Payload"
// @Success 200 "Stake added"
// @Failure 404 {object} types.Error "XLP not registered"
// @Router /v1/stake/add [post]
func (h *Handler) AddStake(request *http.Request) (*Result, *types.Error) {
	payload, err := parseStakeAmountPayload(request)
	if err != nil {
		return nil, err
	}
	if addErr := h.services.AddStake(request.Context(), payload.Xlp, payload.Amount); addErr != nil {
		return nil, addErr
	}
	return &Result{Status: http.StatusOK}, nil
}

// StartUnbonding godoc
// @Summary Start unbonding stake
// @Description Begins withdrawing stake. The stake remains slashable for the whole unbonding period.
// @Accept json
// @Produce json
// @Param payload body StakeAmountPayload true "Unbonding Payload"
// @Success 202 "Unbonding started"
// @Failure 409 {object} types.Error "Unbonding already in progress or amount exceeds stake"
// @Router /v1/stake/unbonding [post]
func (h *Handler) StartUnbonding(request *http.Request) (*Result, *types.Error) {
	payload, err := parseStakeAmountPayload(request)
	if err != nil {
		return nil, err
	}
	if unbondErr := h.services.StartUnbonding(request.Context(), payload.Xlp, payload.Amount); unbondErr != nil {
		return nil, unbondErr
	}
	return &Result{Status: http.StatusAccepted}, nil
}

// CompleteUnbonding godoc
// @Summary Complete unbonding
// @Description Releases the unbonding stake once the unbonding period has elapsed. The payout reflects slashing applied while unbonding.
// @Accept json
// @Produce json
// @Param payload body CompleteUnbondingPayload true "Complete Unbonding Payload"
// @Success 200 {object} PublicResponse[uint64] "The released amount"
// @Failure 409 {object} types.Error "Unbonding period not elapsed"
// @Router /v1/stake/unbonding/complete [post]
func (h *Handler) CompleteUnbonding(request *http.Request) (*Result, *types.Error) {
	payload := &CompleteUnbondingPayload{}
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if !utils.IsValidAddress(payload.Xlp) {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid xlp address")
	}

	payout, completeErr := h.services.CompleteUnbonding(request.Context(), payload.Xlp)
	if completeErr != nil {
		return nil, completeErr
	}
	return NewResult(payout), nil
}

// SlashXLP godoc
// @Summary Slash an XLP's stake
// @Description Burns up to the given amount from the XLP's stake for a protocol violation. A reason is mandatory; every slash is audited.
// @Accept json
// @Produce json
// @Param payload body SlashXLPPayload true "Slash Payload"
// @Success 200 {object} PublicResponse[uint64] "The actual slashed amount"
// @Failure 400 {object} types.Error "Missing reason or invalid amount"
// @Router /v1/stake/slash [post]
func (h *Handler) SlashXLP(request *http.Request) (*Result, *types.Error) {
	payload := &SlashXLPPayload{}
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if !utils.IsValidAddress(payload.Xlp) {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid xlp address")
	}

	slashed, slashErr := h.services.SlashXLPStake(request.Context(), payload.Xlp, payload.Amount, payload.Reason)
	if slashErr != nil {
		return nil, slashErr
	}
	return NewResult(slashed), nil
}

// GetXLPStake godoc
// @Summary Get an XLP's stake
// @Produce json
// @Param xlp query string true "XLP address"
// @Success 200 {object} PublicResponse[services.XLPStakePublic] "The stake"
// @Failure 404 {object} types.Error "XLP not registered"
// @Router /v1/stake [get]
func (h *Handler) GetXLPStake(request *http.Request) (*Result, *types.Error) {
	xlp, err := parseAddressQuery(request, "xlp")
	if err != nil {
		return nil, err
	}
	stake, getErr := h.services.GetXLPStake(request.Context(), xlp)
	if getErr != nil {
		return nil, getErr
	}
	return NewResult(stake), nil
}

// GetXLPChains godoc
// @Summary Get the chains an XLP serves
// @Produce json
// @Param xlp query string true "XLP address"
// @Success 200 {object} PublicResponse[[]uint64] "Supported chain ids"
// @Router /v1/stake/chains [get]
func (h *Handler) GetXLPChains(request *http.Request) (*Result, *types.Error) {
	xlp, err := parseAddressQuery(request, "xlp")
	if err != nil {
		return nil, err
	}
	chains, getErr := h.services.GetXLPChains(request.Context(), xlp)
	if getErr != nil {
		return nil, getErr
	}
	return NewResult(chains), nil
}

// GetUnbondingTimeRemaining godoc
// @Summary Get seconds until the in-flight unbonding is completable
// @Produce json
// @Param xlp query string true "XLP address"
// @Success 200 {object} PublicResponse[int64] "Seconds remaining, zero when completable"
// @Failure 404 {object} types.Error "No unbonding in progress"
// @Router /v1/stake/unbonding/remaining [get]
func (h *Handler) GetUnbondingTimeRemaining(request *http.Request) (*Result, *types.Error) {
	xlp, err := parseAddressQuery(request, "xlp")
	if err != nil {
		return nil, err
	}
	remaining, getErr := h.services.GetUnbondingTimeRemaining(request.Context(), xlp)
	if getErr != nil {
		return nil, getErr
	}
	return NewResult(remaining), nil
}

// GetSlashRecords godoc
// @Summary Get an XLP's slash audit records
// @Produce json
// @Param xlp query string true "XLP address"
// @Success 200 {object} PublicResponse[[]model.SlashRecordDocument] "Slash records"
// @Router /v1/stake/slashes [get]
func (h *Handler) GetSlashRecords(request *http.Request) (*Result, *types.Error) {
	xlp, err := parseAddressQuery(request, "xlp")
	if err != nil {
		return nil, err
	}
	records, getErr := h.services.GetSlashRecords(request.Context(), xlp)
	if getErr != nil {
		return nil, getErr
	}
	return NewResult(records), nil
}
