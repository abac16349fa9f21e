package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/crosslane/voucher-api-service/internal/db/model"
)

type DBClient interface {
	Ping(ctx context.Context) error

	// Voucher lifecycle
	SaveVoucherRequest(ctx context.Context, request model.VoucherRequestDocument) error
	FindVoucherRequestById(ctx context.Context, requestId string) (*model.VoucherRequestDocument, error)
	FindVoucherRequestsByRequester(
		ctx context.Context, requester string, paginationToken string,
	) (*DbResultMap[model.VoucherRequestDocument], error)
	ClaimVoucherRequest(
		ctx context.Context, requestId string, voucher model.VoucherDocument, outputAmount uint64, now int64,
	) error
	FulfillVoucherRequest(
		ctx context.Context, requestId string, outputAmount, settledAmount uint64, fulfillmentTxHash string,
	) error
	RefundVoucherRequest(ctx context.Context, requestId string, now int64) error
	FindVoucherByRequestId(ctx context.Context, requestId string) (*model.VoucherDocument, error)
	FindVoucherByVoucherId(ctx context.Context, voucherId string) (*model.VoucherDocument, error)
	FindProtocolEventsByRequestId(ctx context.Context, requestId string) ([]model.ProtocolEventDocument, error)

	// Stake ledger
	SaveXLPStake(ctx context.Context, stake model.XLPStakeDocument) error
	ReactivateXLPStake(ctx context.Context, xlp string, chains []uint64, stakeAmount uint64, now int64) error
	AddStake(ctx context.Context, xlp string, amount uint64) error
	StartUnbonding(ctx context.Context, xlp string, amount uint64, now int64) error
	CompleteUnbonding(
		ctx context.Context, xlp string, now int64, unbondingPeriodSeconds int64, minStakeAmount uint64,
	) (uint64, error)
	SlashXLPStake(
		ctx context.Context, xlp string, amount uint64, reason string, hubChainId uint64, minStakeAmount uint64,
	) (uint64, error)
	FindXLPStake(ctx context.Context, xlp string) (*model.XLPStakeDocument, error)
	FindSlashRecordsByXLP(ctx context.Context, xlp string) ([]model.SlashRecordDocument, error)

	// Liquidity ledger
	DepositLiquidity(ctx context.Context, xlp string, chainId uint64, token string, amount uint64) error
	WithdrawLiquidity(ctx context.Context, xlp string, chainId uint64, token string, amount uint64) error
	FindXLPLiquidity(ctx context.Context, xlp string, chainId uint64, token string) (*model.XLPLiquidityDocument, error)
	FindLiquidityBalancesByXLP(ctx context.Context, xlp string) ([]model.XLPLiquidityDocument, error)

	// Projected read models
	GetOrCreateStatsLock(ctx context.Context, requestId string, state string) (*model.StatsLockDocument, error)
	IncrementOverallStats(ctx context.Context, requestId, state string, increments bson.M) error
	IncrementXlpStats(ctx context.Context, requestId, state, xlp string, increments bson.M) error
	GetOverallStats(ctx context.Context) (*model.OverallStatsDocument, error)
	GetXlpStats(ctx context.Context, xlp string) (*model.XlpStatsDocument, error)

	// Operational
	SaveUnprocessableMessage(ctx context.Context, messageBody, receipt string) error
	FindUnprocessableMessages(ctx context.Context) ([]model.UnprocessableMessageDocument, error)
	DeleteUnprocessableMessage(ctx context.Context, receipt string) error
	GetRelayCheckpoint(ctx context.Context, chainId uint64) (*model.RelayCheckpointDocument, error)
	SaveRelayCheckpoint(ctx context.Context, chainId uint64, lastProcessedBlock uint64) error
}
