package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/crosslane/voucher-api-service/internal/services"
	"github.com/crosslane/voucher-api-service/internal/types"
)

type CreateVoucherRequestPayload struct {
	Requester          string `json:"requester"`
	Nonce              uint64 `json:"nonce"`
	SourceChainId      uint64 `json:"source_chain_id"`
	DestinationChainId uint64 `json:"destination_chain_id"`
	SourceToken        string `json:"source_token"`
	DestinationToken   string `json:"destination_token"`
	Amount             uint64 `json:"amount"`
	Recipient          string `json:"recipient"`
	GasOnDestination   uint64 `json:"gas_on_destination"`
	MaxFee             uint64 `json:"max_fee"`
	FeeIncrement       uint64 `json:"fee_increment"`
	Deadline           int64  `json:"deadline"`
	EscrowTxHash       string `json:"escrow_tx_hash"`
}

// CreateVoucherRequest godoc
// @Summary Create a voucher request
// @Description Records a source-chain escrow as an open voucher request. Idempotent for duplicate escrows.
// @Accept json
// @Produce json
// @Param payload body CreateVoucherRequestPayload true "Voucher Request Payload"
// @Success 201 {object} PublicResponse[string] "The deterministic request id"
// @Failure 400 {object} types.Error "Invalid request payload"
// @Router /v1/voucher-requests [post]
func (h *Handler) CreateVoucherRequest(request *http.Request) (*Result, *types.Error) {
	payload := &CreateVoucherRequestPayload{}
	if err := json.NewDecoder(request.Body).Decode(payload); err != nil {
		return nil, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request payload")
	}

	requestId, err := h.services.CreateVoucherRequest(request.Context(), services.CreateVoucherRequestParams{
		Requester:          payload.Requester,
		Nonce:              payload.Nonce,
		SourceChainId:      payload.SourceChainId,
		DestinationChainId: payload.DestinationChainId,
		SourceToken:        payload.SourceToken,
		DestinationToken:   payload.DestinationToken,
		Amount:             payload.Amount,
		Recipient:          payload.Recipient,
		GasOnDestination:   payload.GasOnDestination,
		MaxFee:             payload.MaxFee,
		FeeIncrement:       payload.FeeIncrement,
		Deadline:           payload.Deadline,
		EscrowTxHash:       payload.EscrowTxHash,
	})
	if err != nil {
		return nil, err
	}

	res := &PublicResponse[string]{Data: requestId}
	return &Result{Data: res, Status: http.StatusCreated}, nil
}

// GetVoucherRequests godoc
// @Summary Get voucher requests
// @Description Retrieves a single voucher request by request_id, or pages through a requester's requests.
// @Produce json
// @Param request_id query string false "Request Id"
// @Param requester query string false "Requester address"
// @Param pagination_key query string false "Pagination key to fetch the next page"
// @Success 200 {object} PublicResponse[[]services.VoucherRequestPublic] "List of voucher requests and pagination token"
// @Failure 400 {object} types.Error "Error: Bad Request"
// @Router /v1/voucher-requests [get]
func (h *Handler) GetVoucherRequests(request *http.Request) (*Result, *types.Error) {
	if requestId := request.URL.Query().Get("request_id"); requestId != "" {
		voucherRequest, err := h.services.GetVoucherRequest(request.Context(), requestId)
		if err != nil {
			return nil, err
		}
		return NewResult(voucherRequest), nil
	}

	requester, err := parseAddressQuery(request, "requester")
	if err != nil {
		return nil, err
	}
	paginationKey := request.URL.Query().Get("pagination_key")

	requests, newPaginationKey, err := h.services.VoucherRequestsByRequester(request.Context(), requester, paginationKey)
	if err != nil {
		return nil, err
	}
	return NewResultWithPagination(requests, newPaginationKey), nil
}

// GetCurrentFee godoc
// @Summary Get the current auction fee
// @Description Returns the fee an XLP would earn for claiming the request right now.
// @Produce json
// @Param request_id query string true "Request Id"
// @Success 200 {object} PublicResponse[uint64] "Current fee"
// @Failure 400 {object} types.Error "Error: Bad Request"
// @Router /v1/voucher-requests/fee [get]
func (h *Handler) GetCurrentFee(request *http.Request) (*Result, *types.Error) {
	requestId, err := parseRequestIdQuery(request, "request_id")
	if err != nil {
		return nil, err
	}
	fee, err := h.services.GetCurrentFee(request.Context(), requestId)
	if err != nil {
		return nil, err
	}
	return NewResult(fee), nil
}

// GetFulfillmentEligibility godoc
// @Summary Check fulfillment eligibility
// @Description Checks whether the given XLP could claim and fulfill the request right now.
// @Produce json
// @Param request_id query string true "Request Id"
// @Param xlp query string true "XLP address"
// @Success 200 {object} PublicResponse[bool] "Eligibility"
// @Failure 400 {object} types.Error "Error: Bad Request"
// @Router /v1/voucher-requests/eligibility [get]
func (h *Handler) GetFulfillmentEligibility(request *http.Request) (*Result, *types.Error) {
	requestId, err := parseRequestIdQuery(request, "request_id")
	if err != nil {
		return nil, err
	}
	xlp, err := parseAddressQuery(request, "xlp")
	if err != nil {
		return nil, err
	}

	eligible, err := h.services.CanFulfillRequest(request.Context(), requestId, xlp)
	if err != nil {
		return nil, err
	}
	return NewResult(eligible), nil
}

// GetVoucherRequestEvents godoc
// @Summary Get the event history of a voucher request
// @Description Returns the ordered protocol events recorded for a request.
// @Produce json
// @Param request_id query string true "Request Id"
// @Success 200 {object} PublicResponse[[]model.ProtocolEventDocument] "Event history"
// @Failure 400 {object} types.Error "Error: Bad Request"
// @Router /v1/voucher-requests/events [get]
func (h *Handler) GetVoucherRequestEvents(request *http.Request) (*Result, *types.Error) {
	requestId, err := parseRequestIdQuery(request, "request_id")
	if err != nil {
		return nil, err
	}
	events, err := h.services.GetRequestEvents(request.Context(), requestId)
	if err != nil {
		return nil, err
	}
	return NewResult(events), nil
}
