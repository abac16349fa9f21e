package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

type ClaimVoucherRequestPayload struct {
	RequestId string `json:"request_id"`
	Xlp       string `json:"xlp"`
}

func parseClaimVoucherRequestPayload(request *http.Request) (*ClaimVoucherRequestPayload, *types.Error) {
	payload := &ClaimVoucherRequestPayload{}
	err := json.NewDecoder(request.Body).Decode(payload)
	if err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if !utils.IsValidHash(payload.RequestId) {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request id")
	}
	if !utils.IsValidAddress(payload.Xlp) {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid xlp address")
	}
	return payload, nil
}

// ClaimVoucherRequest godoc
// @Summary Claim a voucher request
// @Description Lets an XLP claim exclusive fulfillment rights on an open request. The fee is fixed at claim time.
// @Accept json
// @Produce json
// @Param payload body ClaimVoucherRequestPayload true "Claim Payload"
// @Success 201 {object} PublicResponse[services.VoucherPublic] "The issued voucher"
// @Failure 400 {object} types.Error "Invalid request payload"
// @Failure 409 {object} types.Error "Request already claimed, expired, or insufficient liquidity"
// @Router /v1/claims [post]
func (h *Handler) ClaimVoucherRequest(request *http.Request) (*Result, *types.Error) {
	payload, err := parseClaimVoucherRequestPayload(request)
	if err != nil {
		return nil, err
	}

	voucher, claimErr := h.services.ClaimVoucherRequest(request.Context(), payload.RequestId, payload.Xlp)
	if claimErr != nil {
		return nil, claimErr
	}

	res := &PublicResponse[any]{Data: voucher}
	return &Result{Data: res, Status: http.StatusCreated}, nil
}

// GetVoucher godoc
// @Summary Get the voucher issued for a request
// @Produce json
// @Param request_id query string true "Request Id"
// @Success 200 {object} PublicResponse[services.VoucherPublic] "The voucher"
// @Failure 404 {object} types.Error "No voucher issued for the request"
// @Router /v1/claims [get]
func (h *Handler) GetVoucher(request *http.Request) (*Result, *types.Error) {
	requestId, err := parseRequestIdQuery(request, "request_id")
	if err != nil {
		return nil, err
	}
	voucher, getErr := h.services.GetVoucherByRequestId(request.Context(), requestId)
	if getErr != nil {
		return nil, getErr
	}
	return NewResult(voucher), nil
}
