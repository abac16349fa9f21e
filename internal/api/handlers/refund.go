package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

type RefundVoucherRequestPayload struct {
	RequestId string `json:"request_id"`
}

// RefundVoucherRequest godoc
// @Summary Refund an expired voucher request
// @Description Returns the escrow to the requester after the deadline has passed unfulfilled. Anyone may call this.
// @Accept json
// @Produce json
// @Param payload body RefundVoucherRequestPayload true "Refund Payload"
// @Success 200 "Request refunded"
// @Failure 409 {object} types.Error "Request already settled or deadline not reached"
// @Router /v1/refunds [post]
func (h *Handler) RefundVoucherRequest(request *http.Request) (*Result, *types.Error) {
	payload := &RefundVoucherRequestPayload{}
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}
	if !utils.IsValidHash(payload.RequestId) {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request id")
	}

	if refundErr := h.services.RefundVoucherRequest(request.Context(), payload.RequestId); refundErr != nil {
		return nil, refundErr
	}
	return &Result{Status: http.StatusOK}, nil
}
