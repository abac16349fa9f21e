package relay

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/voucher-api-service/internal/config"
	"github.com/crosslane/voucher-api-service/internal/db"
	"github.com/crosslane/voucher-api-service/internal/db/model"
	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
)

const testEscrowContract = "0x7777777777777777777777777777777777777777"

type fakeEthClient struct {
	head      uint64
	blockTime uint64
	logs      []ethtypes.Log
	queries   []ethereum.FilterQuery
}

func (c *fakeEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.head, nil
}

func (c *fakeEthClient) HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error) {
	return &ethtypes.Header{Time: c.blockTime}, nil
}

func (c *fakeEthClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	c.queries = append(c.queries, q)
	var matched []ethtypes.Log
	for _, eventLog := range c.logs {
		if eventLog.BlockNumber >= q.FromBlock.Uint64() && eventLog.BlockNumber <= q.ToBlock.Uint64() {
			matched = append(matched, eventLog)
		}
	}
	return matched, nil
}

func (c *fakeEthClient) Close() {}

type capturePublisher struct {
	messages []string
}

func (p *capturePublisher) SendMessage(ctx context.Context, messageBody string) error {
	p.messages = append(p.messages, messageBody)
	return nil
}

// checkpointStore satisfies db.DBClient through embedding; only the two
// checkpoint methods are ever reached from the watcher.
type checkpointStore struct {
	db.DBClient
	checkpoints map[uint64]uint64
}

func newCheckpointStore() *checkpointStore {
	return &checkpointStore{checkpoints: make(map[uint64]uint64)}
}

func (s *checkpointStore) GetRelayCheckpoint(ctx context.Context, chainId uint64) (*model.RelayCheckpointDocument, error) {
	block, ok := s.checkpoints[chainId]
	if !ok {
		return nil, &db.NotFoundError{Key: "checkpoint", Message: "checkpoint not found"}
	}
	return &model.RelayCheckpointDocument{ChainId: chainId, LastProcessedBlock: block}, nil
}

func (s *checkpointStore) SaveRelayCheckpoint(ctx context.Context, chainId uint64, lastProcessedBlock uint64) error {
	s.checkpoints[chainId] = lastProcessedBlock
	return nil
}

func newTestWatcher(client *fakeEthClient, store *checkpointStore, startBlock uint64) (*ChainWatcher, *capturePublisher, *capturePublisher) {
	requested := &capturePublisher{}
	proofs := &capturePublisher{}
	watcher := NewChainWatcher(
		config.RelayChainConfig{
			ChainId:        10,
			RpcUrl:         "http://localhost:8545",
			EscrowContract: testEscrowContract,
			StartBlock:     startBlock,
		},
		client, store, requested, proofs,
		time.Second, 3,
	)
	return watcher, requested, proofs
}

func requestedLog(blockNumber uint64) ethtypes.Log {
	return ethtypes.Log{
		Address: common.HexToAddress(testEscrowContract),
		Topics: []common.Hash{
			VoucherRequestedTopic,
			testRequestId,
			common.BytesToHash(testRequester.Bytes()),
		},
		Data: packWords(
			uintWord(7), uintWord(1),
			addressWord(testToken), addressWord(testToken),
			uintWord(1000), addressWord(testRecipient),
			uintWord(21), uintWord(50), uintWord(5), uintWord(1_800_000),
		),
		TxHash:      testTxHash,
		BlockNumber: blockNumber,
	}
}

func fulfilledLog(blockNumber uint64) ethtypes.Log {
	return ethtypes.Log{
		Address: common.HexToAddress(testEscrowContract),
		Topics: []common.Hash{
			VoucherFulfilledTopic,
			testRequestId,
			common.BytesToHash(testXlp.Bytes()),
		},
		Data: packWords(
			addressWord(testToken), addressWord(testRecipient),
			uintWord(1025), uintWord(21),
		),
		TxHash:      testTxHash,
		BlockNumber: blockNumber,
	}
}

func TestWatcherRelaysConfirmedLogs(t *testing.T) {
	client := &fakeEthClient{
		head:      103,
		blockTime: 1_700_000,
		logs:      []ethtypes.Log{requestedLog(80), fulfilledLog(90)},
	}
	store := newCheckpointStore()
	watcher, requested, proofs := newTestWatcher(client, store, 50)

	require.NoError(t, watcher.poll(context.Background()))

	require.Len(t, requested.messages, 1)
	var requestedMsg queueclient.VoucherRequestedMessage
	require.NoError(t, json.Unmarshal([]byte(requested.messages[0]), &requestedMsg))
	assert.Equal(t, testRequestId.Hex(), requestedMsg.RequestId)
	assert.Equal(t, int64(1_700_000), requestedMsg.EscrowedAt)

	require.Len(t, proofs.messages, 1)
	var proofMsg queueclient.FulfillmentProofMessage
	require.NoError(t, json.Unmarshal([]byte(proofs.messages[0]), &proofMsg))
	assert.Equal(t, testXlp.Hex(), proofMsg.Xlp)
	assert.Equal(t, int64(1_700_000), proofMsg.MinedAt)

	// Checkpointed at head minus confirmations.
	assert.Equal(t, uint64(100), store.checkpoints[10])

	require.Len(t, client.queries, 1)
	assert.Equal(t, uint64(50), client.queries[0].FromBlock.Uint64())
	assert.Equal(t, uint64(100), client.queries[0].ToBlock.Uint64())
}

func TestWatcherResumesFromCheckpoint(t *testing.T) {
	client := &fakeEthClient{head: 103, blockTime: 1_700_000}
	store := newCheckpointStore()
	store.checkpoints[10] = 95
	watcher, _, _ := newTestWatcher(client, store, 50)

	require.NoError(t, watcher.poll(context.Background()))
	require.Len(t, client.queries, 1)
	assert.Equal(t, uint64(96), client.queries[0].FromBlock.Uint64())

	// Nothing new once the checkpoint has caught up to the safe block.
	require.NoError(t, watcher.poll(context.Background()))
	require.Len(t, client.queries, 1, "a caught-up watcher must not query again")
}

func TestWatcherWaitsForConfirmations(t *testing.T) {
	client := &fakeEthClient{head: 2}
	store := newCheckpointStore()
	watcher, _, _ := newTestWatcher(client, store, 0)

	require.NoError(t, watcher.poll(context.Background()))
	assert.Empty(t, client.queries)
	assert.Empty(t, store.checkpoints)
}

func TestWatcherSkipsMalformedLogs(t *testing.T) {
	truncated := requestedLog(80)
	truncated.Data = truncated.Data[:64]

	client := &fakeEthClient{
		head:      103,
		blockTime: 1_700_000,
		logs:      []ethtypes.Log{truncated, fulfilledLog(90)},
	}
	store := newCheckpointStore()
	watcher, requested, proofs := newTestWatcher(client, store, 50)

	// A malformed log is logged and skipped; the rest of the batch proceeds.
	require.NoError(t, watcher.poll(context.Background()))
	assert.Empty(t, requested.messages)
	assert.Len(t, proofs.messages, 1)
	assert.Equal(t, uint64(100), store.checkpoints[10])
}
