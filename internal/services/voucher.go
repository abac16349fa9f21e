package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/auction"
	"github.com/crosslane/voucher-api-service/internal/db"
	"github.com/crosslane/voucher-api-service/internal/db/model"
	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/types"
	"github.com/crosslane/voucher-api-service/internal/utils"
)

type VoucherRequestPublic struct {
	RequestId          string `json:"request_id"`
	Requester          string `json:"requester"`
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
	Status             string `json:"status"`
	CurrentFee         uint64 `json:"current_fee"`
	CreatedAt          int64  `json:"created_at"`
	SettledAmount      uint64 `json:"settled_amount,omitempty"`
}

func (s *Services) fromVoucherRequestDocument(d model.VoucherRequestDocument, now time.Time) VoucherRequestPublic {
	status := d.Status
	// A request past its deadline that nobody refunded yet is observably
	// expired even though the funds have not moved.
	if !status.IsTerminal() && now.Unix() >= d.Deadline {
		status = types.Expired
	}
	return VoucherRequestPublic{
		RequestId:          d.RequestId,
		Requester:          d.Requester,
		SourceChainId:      d.SourceChainId,
		DestinationChainId: d.DestinationChainId,
		SourceToken:        d.SourceToken,
		DestinationToken:   d.DestinationToken,
		Amount:             d.Amount,
		Recipient:          d.Recipient,
		GasOnDestination:   d.GasOnDestination,
		MaxFee:             d.MaxFee,
		FeeIncrement:       d.FeeIncrement,
		Deadline:           d.Deadline,
		Status:             status.ToString(),
		CurrentFee:         s.currentFee(&d, now),
		CreatedAt:          d.CreatedAt,
		SettledAmount:      d.SettledAmount,
	}
}

func (s *Services) currentFee(d *model.VoucherRequestDocument, now time.Time) uint64 {
	return auction.CurrentFee(
		d.MaxFee, d.FeeIncrement,
		time.Unix(d.CreatedAt, 0), now,
		s.params.FeeTickInterval(),
	)
}

type CreateVoucherRequestParams struct {
	Requester          string
	Nonce              uint64
	SourceChainId      uint64
	DestinationChainId uint64
	SourceToken        string
	DestinationToken   string
	Amount             uint64
	Recipient          string
	GasOnDestination   uint64
	MaxFee             uint64
	FeeIncrement       uint64
	Deadline           int64
	EscrowTxHash       string
}

func (s *Services) validateCreateParams(p *CreateVoucherRequestParams, now time.Time) *types.Error {
	if p.Amount == 0 {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "amount must be positive")
	}
	if p.Deadline <= now.Unix() {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "deadline must be in the future")
	}
	if p.SourceChainId == p.DestinationChainId {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "source and destination chains must differ")
	}
	if !s.params.IsChainSupported(p.SourceChainId) || !s.params.IsChainSupported(p.DestinationChainId) {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "unsupported chain")
	}
	if !s.params.IsTokenSupported(p.SourceChainId, p.SourceToken) {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "unsupported source token")
	}
	if !s.params.IsTokenSupported(p.DestinationChainId, p.DestinationToken) {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "unsupported destination token")
	}
	if !utils.IsValidAddress(p.Requester) || !utils.IsValidAddress(p.Recipient) {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "invalid address")
	}
	if p.FeeIncrement == 0 && p.MaxFee > 0 {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "fee increment must be positive when max fee is set")
	}
	return nil
}

// CreateVoucherRequest validates the transfer parameters, records the escrow
// as an open request and appends the VoucherRequested event. The request id
// is derived deterministically, so the same escrow observed later by the
// source-chain watcher converges on the same document.
func (s *Services) CreateVoucherRequest(ctx context.Context, p CreateVoucherRequestParams) (string, *types.Error) {
	now := time.Now()
	if err := s.validateCreateParams(&p, now); err != nil {
		return "", err
	}

	requestId := utils.ComputeRequestId(
		p.Requester, p.Nonce, p.SourceChainId, p.DestinationChainId,
		p.SourceToken, p.DestinationToken, p.Amount, p.Recipient,
	)

	// Addresses and tokens are stored lowercased so lookups and liquidity
	// keys match regardless of the casing callers or chain events use.
	document := model.VoucherRequestDocument{
		RequestId:          requestId,
		Requester:          strings.ToLower(p.Requester),
		Nonce:              p.Nonce,
		SourceChainId:      p.SourceChainId,
		DestinationChainId: p.DestinationChainId,
		SourceToken:        strings.ToLower(p.SourceToken),
		DestinationToken:   strings.ToLower(p.DestinationToken),
		Amount:             p.Amount,
		Recipient:          strings.ToLower(p.Recipient),
		GasOnDestination:   p.GasOnDestination,
		MaxFee:             p.MaxFee,
		FeeIncrement:       p.FeeIncrement,
		Deadline:           p.Deadline,
		Status:             types.Open,
		CreatedAt:          now.Unix(),
		EscrowTxHash:       p.EscrowTxHash,
	}

	err := s.DbClient.SaveVoucherRequest(ctx, document)
	if err != nil {
		if db.IsDuplicateKeyError(err) {
			log.Ctx(ctx).Warn().Str("requestId", requestId).Msg("voucher request already exists, skipping")
			return requestId, nil
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to save voucher request")
		return "", types.NewInternalServiceError(err)
	}

	s.emitStatsEvent(ctx, queueclient.VoucherStatsMessage{
		RequestId: requestId,
		State:     types.Open.ToString(),
		Amount:    p.Amount,
	})
	return requestId, nil
}

// CreateVoucherRequestFromEvent records an escrow the source-chain watcher
// observed. Designed to be idempotent: redelivered escrow events for a known
// request are dropped.
func (s *Services) CreateVoucherRequestFromEvent(ctx context.Context, msg queueclient.VoucherRequestedMessage) *types.Error {
	// The decoder emits checksummed mixed-case addresses; store them
	// lowercased like the API path does.
	document := model.VoucherRequestDocument{
		RequestId:          msg.RequestId,
		Requester:          strings.ToLower(msg.Requester),
		Nonce:              msg.Nonce,
		SourceChainId:      msg.SourceChainId,
		DestinationChainId: msg.DestinationChainId,
		SourceToken:        strings.ToLower(msg.SourceToken),
		DestinationToken:   strings.ToLower(msg.DestinationToken),
		Amount:             msg.Amount,
		Recipient:          strings.ToLower(msg.Recipient),
		GasOnDestination:   msg.GasOnDestination,
		MaxFee:             msg.MaxFee,
		FeeIncrement:       msg.FeeIncrement,
		Deadline:           msg.Deadline,
		Status:             types.Open,
		CreatedAt:          msg.EscrowedAt,
		EscrowTxHash:       msg.EscrowTxHash,
	}
	if document.Amount == 0 || document.Deadline <= document.CreatedAt {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.InvalidParameters, "malformed escrow event")
	}

	err := s.DbClient.SaveVoucherRequest(ctx, document)
	if err != nil {
		if db.IsDuplicateKeyError(err) {
			// The API path or an earlier delivery already recorded this escrow.
			return nil
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to save voucher request from escrow event")
		return types.NewInternalServiceError(err)
	}

	s.emitStatsEvent(ctx, queueclient.VoucherStatsMessage{
		RequestId: msg.RequestId,
		State:     types.Open.ToString(),
		Amount:    msg.Amount,
	})
	return nil
}

func (s *Services) GetVoucherRequest(ctx context.Context, requestId string) (*VoucherRequestPublic, *types.Error) {
	request, err := s.DbClient.FindVoucherRequestById(ctx, requestId)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "voucher request not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to find voucher request")
		return nil, types.NewInternalServiceError(err)
	}
	public := s.fromVoucherRequestDocument(*request, time.Now())
	return &public, nil
}

func (s *Services) VoucherRequestsByRequester(
	ctx context.Context, requester string, pageToken string,
) ([]VoucherRequestPublic, string, *types.Error) {
	resultMap, err := s.DbClient.FindVoucherRequestsByRequester(ctx, strings.ToLower(requester), pageToken)
	if err != nil {
		if db.IsInvalidPaginationTokenError(err) {
			log.Ctx(ctx).Warn().Err(err).Msg("invalid pagination token when fetching voucher requests")
			return nil, "", types.NewError(http.StatusBadRequest, types.BadRequest, err)
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to find voucher requests by requester")
		return nil, "", types.NewInternalServiceError(err)
	}

	now := time.Now()
	var requests []VoucherRequestPublic
	for _, d := range resultMap.Data {
		requests = append(requests, s.fromVoucherRequestDocument(d, now))
	}
	return requests, resultMap.PaginationToken, nil
}

// GetCurrentFee returns the fee claimable for the request right now. Defined
// for expired requests as well; it is a display value, claims past the
// deadline are rejected regardless.
func (s *Services) GetCurrentFee(ctx context.Context, requestId string) (uint64, *types.Error) {
	request, err := s.DbClient.FindVoucherRequestById(ctx, requestId)
	if err != nil {
		if db.IsNotFoundError(err) {
			return 0, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "voucher request not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to find voucher request")
		return 0, types.NewInternalServiceError(err)
	}
	return s.currentFee(request, time.Now()), nil
}

// CanFulfillRequest is the read-only eligibility probe for an XLP sizing up a
// claim: open status, live deadline, active stake covering the destination
// chain and enough unlocked destination liquidity.
func (s *Services) CanFulfillRequest(ctx context.Context, requestId, xlp string) (bool, *types.Error) {
	xlp = strings.ToLower(xlp)
	request, err := s.DbClient.FindVoucherRequestById(ctx, requestId)
	if err != nil {
		if db.IsNotFoundError(err) {
			return false, types.NewErrorWithMsg(http.StatusNotFound, types.NotFound, "voucher request not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to find voucher request")
		return false, types.NewInternalServiceError(err)
	}

	if request.Status != types.Open || time.Now().Unix() >= request.Deadline {
		return false, nil
	}

	stake, err := s.DbClient.FindXLPStake(ctx, xlp)
	if err != nil {
		if db.IsNotFoundError(err) {
			return false, nil
		}
		return false, types.NewInternalServiceError(err)
	}
	if !stake.IsActive || !utils.Contains(stake.SupportedChains, request.DestinationChainId) {
		return false, nil
	}

	liquidity, err := s.DbClient.FindXLPLiquidity(ctx, xlp, request.DestinationChainId, strings.ToLower(request.DestinationToken))
	if err != nil {
		if db.IsNotFoundError(err) {
			return false, nil
		}
		return false, types.NewInternalServiceError(err)
	}
	return liquidity.Amount-liquidity.LockedAmount >= request.Amount, nil
}

func (s *Services) GetRequestEvents(ctx context.Context, requestId string) ([]model.ProtocolEventDocument, *types.Error) {
	events, err := s.DbClient.FindProtocolEventsByRequestId(ctx, requestId)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to find protocol events")
		return nil, types.NewInternalServiceError(err)
	}
	return events, nil
}
