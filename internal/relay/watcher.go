package relay

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/config"
	"github.com/crosslane/voucher-api-service/internal/db"
	"github.com/crosslane/voucher-api-service/internal/observability/metrics"
)

// EthClient is the slice of ethclient.Client the watcher needs.
type EthClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	Close()
}

// MessagePublisher is the slice of the queue client the watcher needs.
type MessagePublisher interface {
	SendMessage(ctx context.Context, messageBody string) error
}

// ChainWatcher tails the escrow contract logs on one chain and turns them
// into queue messages. Progress is checkpointed per chain, so a restarted
// watcher resumes where it left off and redelivers at-least-once.
type ChainWatcher struct {
	cfg            config.RelayChainConfig
	client         EthClient
	dbClient       db.DBClient
	requestedQueue MessagePublisher
	proofQueue     MessagePublisher
	pollInterval   time.Duration
	confirmations  uint64
}

func NewChainWatcher(
	cfg config.RelayChainConfig,
	client EthClient,
	dbClient db.DBClient,
	requestedQueue, proofQueue MessagePublisher,
	pollInterval time.Duration,
	confirmations uint64,
) *ChainWatcher {
	return &ChainWatcher{
		cfg:            cfg,
		client:         client,
		dbClient:       dbClient,
		requestedQueue: requestedQueue,
		proofQueue:     proofQueue,
		pollInterval:   pollInterval,
		confirmations:  confirmations,
	}
}

// Start polls until the context is cancelled.
func (w *ChainWatcher) Start(ctx context.Context) {
	logger := log.With().Uint64("chainId", w.cfg.ChainId).Logger()
	logger.Info().Str("escrowContract", w.cfg.EscrowContract).Msg("starting chain watcher")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer w.client.Close()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("stopping chain watcher")
			return
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				logger.Error().Err(err).Msg("chain watcher poll failed")
			}
		}
	}
}

// poll processes every confirmed block since the checkpoint.
func (w *ChainWatcher) poll(ctx context.Context) error {
	head, err := w.client.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if head < w.confirmations {
		return nil
	}
	safeBlock := head - w.confirmations

	fromBlock := w.cfg.StartBlock
	checkpoint, err := w.dbClient.GetRelayCheckpoint(ctx, w.cfg.ChainId)
	if err != nil {
		if !db.IsNotFoundError(err) {
			return err
		}
	} else if checkpoint.LastProcessedBlock >= fromBlock {
		fromBlock = checkpoint.LastProcessedBlock + 1
	}
	if fromBlock > safeBlock {
		return nil
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(safeBlock),
		Addresses: []common.Address{common.HexToAddress(w.cfg.EscrowContract)},
		Topics:    [][]common.Hash{{VoucherRequestedTopic, VoucherFulfilledTopic}},
	}
	logs, err := w.client.FilterLogs(ctx, query)
	if err != nil {
		return err
	}

	blockTimes := make(map[uint64]uint64)
	for _, eventLog := range logs {
		blockTime, err := w.blockTime(ctx, eventLog.BlockNumber, blockTimes)
		if err != nil {
			return err
		}
		if err := w.relayLog(ctx, eventLog, blockTime); err != nil {
			return err
		}
	}

	if err := w.dbClient.SaveRelayCheckpoint(ctx, w.cfg.ChainId, safeBlock); err != nil {
		return err
	}
	metrics.RecordRelayBlockHeight(w.cfg.ChainId, safeBlock)
	return nil
}

func (w *ChainWatcher) blockTime(ctx context.Context, blockNumber uint64, cache map[uint64]uint64) (uint64, error) {
	if blockTime, ok := cache[blockNumber]; ok {
		return blockTime, nil
	}
	header, err := w.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return 0, err
	}
	cache[blockNumber] = header.Time
	return header.Time, nil
}

func (w *ChainWatcher) relayLog(ctx context.Context, eventLog ethtypes.Log, blockTime uint64) error {
	if len(eventLog.Topics) == 0 {
		return nil
	}

	switch eventLog.Topics[0] {
	case VoucherRequestedTopic:
		message, err := decodeVoucherRequestedLog(eventLog, w.cfg.ChainId, blockTime)
		if err != nil {
			log.Warn().Err(err).
				Uint64("chainId", w.cfg.ChainId).
				Str("txHash", eventLog.TxHash.Hex()).
				Msg("skipping malformed voucher requested log")
			return nil
		}
		if err := sendJSONMessage(ctx, w.requestedQueue, message); err != nil {
			return err
		}
		metrics.RecordRelayEvent(w.cfg.ChainId, "voucher_requested")
	case VoucherFulfilledTopic:
		message, err := decodeVoucherFulfilledLog(eventLog, w.cfg.ChainId, blockTime)
		if err != nil {
			log.Warn().Err(err).
				Uint64("chainId", w.cfg.ChainId).
				Str("txHash", eventLog.TxHash.Hex()).
				Msg("skipping malformed voucher fulfilled log")
			return nil
		}
		if err := sendJSONMessage(ctx, w.proofQueue, message); err != nil {
			return err
		}
		metrics.RecordRelayEvent(w.cfg.ChainId, "voucher_fulfilled")
	}
	return nil
}
