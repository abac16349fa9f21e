package handlers

import (
	"net/http"

	"github.com/crosslane/voucher-api-service/internal/types"
)

// GetOverallStats godoc
// @Summary Get protocol-wide stats
// @Description Overall voucher protocol statistics projected from the event log.
// @Produce json
// @Success 200 {object} PublicResponse[services.OverallStatsPublic] "Overall stats"
// @Router /v1/stats [get]
func (h *Handler) GetOverallStats(request *http.Request) (*Result, *types.Error) {
	stats, err := h.services.GetOverallStats(request.Context())
	if err != nil {
		return nil, err
	}
	return NewResult(stats), nil
}

// GetXlpStats godoc
// @Summary Get per-XLP stats
// @Description Fulfillment track record of one XLP.
// @Produce json
// @Param xlp query string true "XLP address"
// @Success 200 {object} PublicResponse[services.XlpStatsPublic] "XLP stats"
// @Router /v1/stats/xlp [get]
func (h *Handler) GetXlpStats(request *http.Request) (*Result, *types.Error) {
	xlp, err := parseAddressQuery(request, "xlp")
	if err != nil {
		return nil, err
	}
	stats, getErr := h.services.GetXlpStats(request.Context(), xlp)
	if getErr != nil {
		return nil, getErr
	}
	return NewResult(stats), nil
}
