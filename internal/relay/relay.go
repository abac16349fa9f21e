package relay

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/config"
	"github.com/crosslane/voucher-api-service/internal/db"
	"github.com/crosslane/voucher-api-service/internal/queue"
)

// Relay runs one ChainWatcher per configured chain, feeding the escrow and
// fulfillment queues the same way an external event publisher would.
type Relay struct {
	watchers []*ChainWatcher
	cancel   context.CancelFunc
}

func New(ctx context.Context, cfg *config.RelayConfig, dbClient db.DBClient, queues *queue.Queues) (*Relay, error) {
	relay := &Relay{}
	for _, chainCfg := range cfg.Chains {
		client, err := ethclient.DialContext(ctx, chainCfg.RpcUrl)
		if err != nil {
			return nil, err
		}
		relay.watchers = append(relay.watchers, NewChainWatcher(
			chainCfg,
			client,
			dbClient,
			queues.VoucherRequestedQueueClient,
			queues.FulfillmentProofQueueClient,
			cfg.PollInterval,
			cfg.Confirmations,
		))
	}
	return relay, nil
}

func (r *Relay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for _, watcher := range r.watchers {
		go watcher.Start(ctx)
	}
	log.Info().Int("chains", len(r.watchers)).Msg("relay started")
}

func (r *Relay) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func sendJSONMessage(ctx context.Context, publisher MessagePublisher, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return publisher.SendMessage(ctx, string(body))
}
