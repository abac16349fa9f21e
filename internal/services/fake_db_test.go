package services

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/crosslane/voucher-api-service/internal/db"
	"github.com/crosslane/voucher-api-service/internal/db/model"
	"github.com/crosslane/voucher-api-service/internal/types"
)

// fakeDB is an in-memory db.DBClient with the same compare-and-set semantics
// as the mongo implementation, so the one-winner and idempotency properties
// can be exercised without a database.
type fakeDB struct {
	mu sync.Mutex

	requests       map[string]model.VoucherRequestDocument
	vouchers       map[string]model.VoucherDocument // keyed by request id
	stakes         map[string]model.XLPStakeDocument
	slashRecords   []model.SlashRecordDocument
	liquidity      map[string]model.XLPLiquidityDocument
	events         []model.ProtocolEventDocument
	eventSeq       map[uint64]int64
	statsLocks     map[string]*model.StatsLockDocument
	overallStats   model.OverallStatsDocument
	xlpStats       map[string]*model.XlpStatsDocument
	unprocessable  []model.UnprocessableMessageDocument
	checkpoints    map[uint64]uint64
	overallApplied int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		requests:   make(map[string]model.VoucherRequestDocument),
		vouchers:   make(map[string]model.VoucherDocument),
		stakes:     make(map[string]model.XLPStakeDocument),
		liquidity:  make(map[string]model.XLPLiquidityDocument),
		eventSeq:   make(map[uint64]int64),
		statsLocks: make(map[string]*model.StatsLockDocument),
		xlpStats:   make(map[string]*model.XlpStatsDocument),
		checkpoints: make(map[uint64]uint64),
	}
}

func (f *fakeDB) appendEvent(chainId uint64, eventType types.ProtocolEventType, requestId, voucherId, xlp string) {
	f.eventSeq[chainId]++
	f.events = append(f.events, model.ProtocolEventDocument{
		EventId:   uuid.NewString(),
		Seq:       f.eventSeq[chainId],
		ChainId:   chainId,
		EventType: eventType,
		RequestId: requestId,
		VoucherId: voucherId,
		Xlp:       xlp,
	})
}

func (f *fakeDB) Ping(ctx context.Context) error { return nil }

func (f *fakeDB) SaveVoucherRequest(ctx context.Context, request model.VoucherRequestDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[request.RequestId]; ok {
		return &db.DuplicateKeyError{Key: request.RequestId, Message: "request already exists"}
	}
	f.requests[request.RequestId] = request
	f.appendEvent(request.SourceChainId, types.EventVoucherRequested, request.RequestId, "", "")
	return nil
}

func (f *fakeDB) FindVoucherRequestById(ctx context.Context, requestId string) (*model.VoucherRequestDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[requestId]
	if !ok {
		return nil, &db.NotFoundError{Key: requestId, Message: "request not found"}
	}
	return &request, nil
}

func (f *fakeDB) FindVoucherRequestsByRequester(
	ctx context.Context, requester string, paginationToken string,
) (*db.DbResultMap[model.VoucherRequestDocument], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.VoucherRequestDocument
	for _, request := range f.requests {
		if request.Requester == requester {
			result = append(result, request)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt > result[j].CreatedAt })
	return &db.DbResultMap[model.VoucherRequestDocument]{Data: result}, nil
}

func (f *fakeDB) ClaimVoucherRequest(
	ctx context.Context, requestId string, voucher model.VoucherDocument, outputAmount uint64, now int64,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	request, ok := f.requests[requestId]
	if !ok {
		return &db.NotFoundError{Key: requestId, Message: "request not found"}
	}
	if request.Status != types.Open {
		return &db.StaleStatusError{Key: requestId, CurrentStatus: request.Status.ToString(), Message: "request is not open"}
	}
	if now >= request.Deadline {
		return &db.DeadlineExceededError{Key: requestId, Message: "deadline has passed"}
	}

	liquidityId := model.LiquidityId(voucher.Xlp, request.DestinationChainId, request.DestinationToken)
	balance, ok := f.liquidity[liquidityId]
	if !ok {
		return &db.NotFoundError{Key: liquidityId, Message: "no liquidity balance"}
	}
	if balance.Amount-balance.LockedAmount < outputAmount {
		return &db.InsufficientBalanceError{Key: liquidityId, Message: "insufficient unlocked liquidity"}
	}
	if _, ok := f.vouchers[requestId]; ok {
		return &db.DuplicateKeyError{Key: requestId, Message: "voucher already issued"}
	}

	request.Status = types.Claimed
	f.requests[requestId] = request
	balance.LockedAmount += outputAmount
	f.liquidity[liquidityId] = balance
	f.vouchers[requestId] = voucher
	f.appendEvent(request.SourceChainId, types.EventVoucherIssued, requestId, voucher.VoucherId, voucher.Xlp)
	return nil
}

func (f *fakeDB) FulfillVoucherRequest(
	ctx context.Context, requestId string, outputAmount, settledAmount uint64, fulfillmentTxHash string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	request, ok := f.requests[requestId]
	if !ok {
		return &db.NotFoundError{Key: requestId, Message: "request not found"}
	}
	if request.Status != types.Claimed {
		return &db.StaleStatusError{Key: requestId, CurrentStatus: request.Status.ToString(), Message: "request is not claimed"}
	}
	voucher := f.vouchers[requestId]

	request.Status = types.Fulfilled
	request.SettledAmount = settledAmount
	request.FulfillmentTxHash = fulfillmentTxHash
	f.requests[requestId] = request

	liquidityId := model.LiquidityId(voucher.Xlp, request.DestinationChainId, request.DestinationToken)
	balance := f.liquidity[liquidityId]
	balance.Amount -= outputAmount
	balance.LockedAmount -= outputAmount
	f.liquidity[liquidityId] = balance

	f.appendEvent(request.DestinationChainId, types.EventVoucherFulfilled, requestId, voucher.VoucherId, voucher.Xlp)
	return nil
}

func (f *fakeDB) RefundVoucherRequest(ctx context.Context, requestId string, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	request, ok := f.requests[requestId]
	if !ok {
		return &db.NotFoundError{Key: requestId, Message: "request not found"}
	}
	if request.Status.IsTerminal() {
		return &db.StaleStatusError{Key: requestId, CurrentStatus: request.Status.ToString(), Message: "request is settled"}
	}
	if now < request.Deadline {
		return &db.DeadlineExceededError{Key: requestId, Message: "deadline has not passed"}
	}

	if voucher, ok := f.vouchers[requestId]; ok {
		liquidityId := model.LiquidityId(voucher.Xlp, request.DestinationChainId, request.DestinationToken)
		balance := f.liquidity[liquidityId]
		balance.LockedAmount -= request.Amount
		f.liquidity[liquidityId] = balance
	}

	request.Status = types.Refunded
	request.RefundedAt = now
	f.requests[requestId] = request
	f.appendEvent(request.SourceChainId, types.EventVoucherRefunded, requestId, "", "")
	return nil
}

func (f *fakeDB) FindVoucherByRequestId(ctx context.Context, requestId string) (*model.VoucherDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	voucher, ok := f.vouchers[requestId]
	if !ok {
		return nil, &db.NotFoundError{Key: requestId, Message: "voucher not found"}
	}
	return &voucher, nil
}

func (f *fakeDB) FindVoucherByVoucherId(ctx context.Context, voucherId string) (*model.VoucherDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, voucher := range f.vouchers {
		if voucher.VoucherId == voucherId {
			return &voucher, nil
		}
	}
	return nil, &db.NotFoundError{Key: voucherId, Message: "voucher not found"}
}

func (f *fakeDB) FindProtocolEventsByRequestId(ctx context.Context, requestId string) ([]model.ProtocolEventDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.ProtocolEventDocument
	for _, event := range f.events {
		if event.RequestId == requestId {
			result = append(result, event)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ChainId != result[j].ChainId {
			return result[i].ChainId < result[j].ChainId
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

func (f *fakeDB) SaveXLPStake(ctx context.Context, stake model.XLPStakeDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stakes[stake.Xlp]; ok {
		return &db.DuplicateKeyError{Key: stake.Xlp, Message: "stake already exists"}
	}
	f.stakes[stake.Xlp] = stake
	return nil
}

func (f *fakeDB) ReactivateXLPStake(ctx context.Context, xlp string, chains []uint64, stakeAmount uint64, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stake, ok := f.stakes[xlp]
	if !ok || stake.IsActive {
		return &db.DuplicateKeyError{Key: xlp, Message: "XLP already registered"}
	}
	stake.StakedAmount += stakeAmount
	stake.SupportedChains = chains
	stake.IsActive = true
	stake.RegisteredAt = now
	f.stakes[xlp] = stake
	return nil
}

func (f *fakeDB) AddStake(ctx context.Context, xlp string, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stake, ok := f.stakes[xlp]
	if !ok {
		return &db.NotFoundError{Key: xlp, Message: "stake not found"}
	}
	stake.StakedAmount += amount
	f.stakes[xlp] = stake
	return nil
}

func (f *fakeDB) StartUnbonding(ctx context.Context, xlp string, amount uint64, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stake, ok := f.stakes[xlp]
	if !ok {
		return &db.NotFoundError{Key: xlp, Message: "stake not found"}
	}
	if stake.UnbondingStartTime != nil {
		return &db.UnbondingInProgressError{Key: xlp, Message: "unbonding already in progress"}
	}
	if stake.StakedAmount < amount {
		return &db.InsufficientBalanceError{Key: xlp, Message: "unbonding amount exceeds stake"}
	}
	stake.UnbondingAmount = amount
	stake.UnbondingStartTime = &now
	f.stakes[xlp] = stake
	return nil
}

func (f *fakeDB) CompleteUnbonding(
	ctx context.Context, xlp string, now int64, unbondingPeriodSeconds int64, minStakeAmount uint64,
) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stake, ok := f.stakes[xlp]
	if !ok {
		return 0, &db.NotFoundError{Key: xlp, Message: "stake not found"}
	}
	if stake.UnbondingStartTime == nil {
		return 0, &db.NotFoundError{Key: xlp, Message: "no unbonding in progress"}
	}
	if now < *stake.UnbondingStartTime+unbondingPeriodSeconds {
		return 0, &db.UnbondingNotReadyError{Key: xlp, Message: "unbonding period has not elapsed"}
	}

	payout := stake.UnbondingAmount
	if payout > stake.StakedAmount {
		payout = stake.StakedAmount
	}
	stake.StakedAmount -= payout
	stake.UnbondingAmount = 0
	stake.UnbondingStartTime = nil
	stake.IsActive = stake.StakedAmount >= minStakeAmount
	f.stakes[xlp] = stake
	return payout, nil
}

func (f *fakeDB) SlashXLPStake(
	ctx context.Context, xlp string, amount uint64, reason string, hubChainId uint64, minStakeAmount uint64,
) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stake, ok := f.stakes[xlp]
	if !ok {
		return 0, &db.NotFoundError{Key: xlp, Message: "stake not found"}
	}

	slashed := amount
	if slashed > stake.StakedAmount {
		slashed = stake.StakedAmount
	}
	stake.StakedAmount -= slashed
	if stake.UnbondingAmount > stake.StakedAmount {
		stake.UnbondingAmount = stake.StakedAmount
	}
	stake.SlashedAmount += slashed
	stake.IsActive = stake.StakedAmount >= minStakeAmount && stake.IsActive
	f.stakes[xlp] = stake

	f.slashRecords = append(f.slashRecords, model.SlashRecordDocument{
		Id:              uuid.NewString(),
		Xlp:             xlp,
		RequestedAmount: amount,
		SlashedAmount:   slashed,
		Reason:          reason,
	})
	f.appendEvent(hubChainId, types.EventXLPSlashed, "", "", xlp)
	return slashed, nil
}

func (f *fakeDB) FindXLPStake(ctx context.Context, xlp string) (*model.XLPStakeDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stake, ok := f.stakes[xlp]
	if !ok {
		return nil, &db.NotFoundError{Key: xlp, Message: "stake not found"}
	}
	return &stake, nil
}

func (f *fakeDB) FindSlashRecordsByXLP(ctx context.Context, xlp string) ([]model.SlashRecordDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.SlashRecordDocument
	for _, record := range f.slashRecords {
		if record.Xlp == xlp {
			result = append(result, record)
		}
	}
	return result, nil
}

func (f *fakeDB) DepositLiquidity(ctx context.Context, xlp string, chainId uint64, token string, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	liquidityId := model.LiquidityId(xlp, chainId, token)
	balance, ok := f.liquidity[liquidityId]
	if !ok {
		balance = model.XLPLiquidityDocument{Id: liquidityId, Xlp: xlp, ChainId: chainId, Token: token}
	}
	balance.Amount += amount
	f.liquidity[liquidityId] = balance
	return nil
}

func (f *fakeDB) WithdrawLiquidity(ctx context.Context, xlp string, chainId uint64, token string, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	liquidityId := model.LiquidityId(xlp, chainId, token)
	balance, ok := f.liquidity[liquidityId]
	if !ok {
		return &db.NotFoundError{Key: liquidityId, Message: "no liquidity balance"}
	}
	if balance.Amount-balance.LockedAmount < amount {
		return &db.InsufficientBalanceError{Key: liquidityId, Message: "insufficient unlocked balance"}
	}
	balance.Amount -= amount
	f.liquidity[liquidityId] = balance
	return nil
}

func (f *fakeDB) FindXLPLiquidity(ctx context.Context, xlp string, chainId uint64, token string) (*model.XLPLiquidityDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.liquidity[model.LiquidityId(xlp, chainId, token)]
	if !ok {
		return nil, &db.NotFoundError{Key: model.LiquidityId(xlp, chainId, token), Message: "no liquidity balance"}
	}
	return &balance, nil
}

func (f *fakeDB) FindLiquidityBalancesByXLP(ctx context.Context, xlp string) ([]model.XLPLiquidityDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []model.XLPLiquidityDocument
	for _, balance := range f.liquidity {
		if balance.Xlp == xlp {
			result = append(result, balance)
		}
	}
	return result, nil
}

func (f *fakeDB) GetOrCreateStatsLock(ctx context.Context, requestId string, state string) (*model.StatsLockDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := requestId + ":" + state
	lock, ok := f.statsLocks[id]
	if !ok {
		lock = &model.StatsLockDocument{Id: id}
		f.statsLocks[id] = lock
	}
	copied := *lock
	return &copied, nil
}

func applyIncrements(target map[string]*int64, increments bson.M) {
	for field, value := range increments {
		if counter, ok := target[field]; ok {
			*counter += value.(int64)
		}
	}
}

func (f *fakeDB) IncrementOverallStats(ctx context.Context, requestId, state string, increments bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := requestId + ":" + state
	lock, ok := f.statsLocks[id]
	if !ok || lock.OverallStats {
		return &db.NotFoundError{Key: id, Message: "already counted"}
	}
	lock.OverallStats = true
	applyIncrements(map[string]*int64{
		"total_requests":     &f.overallStats.TotalRequests,
		"active_vouchers":    &f.overallStats.ActiveVouchers,
		"fulfilled_vouchers": &f.overallStats.FulfilledVouchers,
		"refunded_requests":  &f.overallStats.RefundedRequests,
		"total_volume":       &f.overallStats.TotalVolume,
		"total_fees_paid":    &f.overallStats.TotalFeesPaid,
	}, increments)
	f.overallApplied++
	return nil
}

func (f *fakeDB) IncrementXlpStats(ctx context.Context, requestId, state, xlp string, increments bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := requestId + ":" + state
	lock, ok := f.statsLocks[id]
	if !ok || lock.XlpStats {
		return &db.NotFoundError{Key: id, Message: "already counted"}
	}
	lock.XlpStats = true
	stats, ok := f.xlpStats[xlp]
	if !ok {
		stats = &model.XlpStatsDocument{Xlp: xlp}
		f.xlpStats[xlp] = stats
	}
	applyIncrements(map[string]*int64{
		"active_vouchers":    &stats.ActiveVouchers,
		"fulfilled_vouchers": &stats.FulfilledVouchers,
		"expired_claims":     &stats.ExpiredClaims,
		"total_volume":       &stats.TotalVolume,
		"total_fees_earned":  &stats.TotalFeesEarned,
	}, increments)
	return nil
}

func (f *fakeDB) GetOverallStats(ctx context.Context) (*model.OverallStatsDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := f.overallStats
	return &stats, nil
}

func (f *fakeDB) GetXlpStats(ctx context.Context, xlp string) (*model.XlpStatsDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats, ok := f.xlpStats[xlp]
	if !ok {
		return nil, &db.NotFoundError{Key: xlp, Message: "no stats"}
	}
	copied := *stats
	return &copied, nil
}

func (f *fakeDB) SaveUnprocessableMessage(ctx context.Context, messageBody, receipt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unprocessable = append(f.unprocessable, model.NewUnprocessableMessageDocument(messageBody, receipt))
	return nil
}

func (f *fakeDB) FindUnprocessableMessages(ctx context.Context) ([]model.UnprocessableMessageDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.UnprocessableMessageDocument(nil), f.unprocessable...), nil
}

func (f *fakeDB) DeleteUnprocessableMessage(ctx context.Context, receipt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, msg := range f.unprocessable {
		if msg.Receipt == receipt {
			f.unprocessable = append(f.unprocessable[:i], f.unprocessable[i+1:]...)
			return nil
		}
	}
	return &db.NotFoundError{Key: receipt, Message: "message not found"}
}

func (f *fakeDB) GetRelayCheckpoint(ctx context.Context, chainId uint64) (*model.RelayCheckpointDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	block, ok := f.checkpoints[chainId]
	if !ok {
		return nil, &db.NotFoundError{Key: "checkpoint", Message: "checkpoint not found"}
	}
	return &model.RelayCheckpointDocument{ChainId: chainId, LastProcessedBlock: block}, nil
}

func (f *fakeDB) SaveRelayCheckpoint(ctx context.Context, chainId uint64, lastProcessedBlock uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkpoints[chainId] = lastProcessedBlock
	return nil
}
