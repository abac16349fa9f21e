package services

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/internal/config"
	"github.com/crosslane/voucher-api-service/internal/db"
	queueclient "github.com/crosslane/voucher-api-service/internal/queue/client"
	"github.com/crosslane/voucher-api-service/internal/types"
)

// StatsEmitter publishes projection events onto the stats queue. Wired in
// after queue construction; a nil emitter downgrades projection to a no-op,
// which only read models notice.
type StatsEmitter interface {
	SendMessage(ctx context.Context, messageBody string) error
}

// Service layer contains the coordinator and ledger business logic and is
// used to interact with the database and the queues.
type Services struct {
	DbClient     db.DBClient
	cfg          *config.Config
	params       *types.ProtocolParams
	statsEmitter StatsEmitter
}

func New(ctx context.Context, cfg *config.Config, params *types.ProtocolParams) (*Services, error) {
	dbClient, err := db.New(ctx, cfg.Db)
	if err != nil {
		log.Ctx(ctx).Fatal().Err(err).Msg("error while creating db client")
		return nil, err
	}
	return &Services{
		DbClient: dbClient,
		cfg:      cfg,
		params:   params,
	}, nil
}

// SetStatsEmitter attaches the stats queue client once queues exist.
func (s *Services) SetStatsEmitter(emitter StatsEmitter) {
	s.statsEmitter = emitter
}

func (s *Services) ProtocolParams() *types.ProtocolParams {
	return s.params
}

// DoHealthCheck checks the health of the services by ping the database.
func (s *Services) DoHealthCheck(ctx context.Context) error {
	return s.DbClient.Ping(ctx)
}

func (s *Services) SaveUnprocessableMessages(ctx context.Context, messageBody, receipt string) *types.Error {
	err := s.DbClient.SaveUnprocessableMessage(ctx, messageBody, receipt)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("error while saving unprocessable message")
		return types.NewErrorWithMsg(http.StatusInternalServerError, types.InternalServiceError, "error while saving unprocessable message")
	}
	return nil
}

// emitStatsEvent publishes a projection event. Emission failures are logged
// and swallowed: the event log in the database is the source of truth and the
// projector can always be rebuilt from it.
func (s *Services) emitStatsEvent(ctx context.Context, msg queueclient.VoucherStatsMessage) {
	if s.statsEmitter == nil {
		return
	}
	body, err := json.Marshal(msg)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to marshal stats event")
		return
	}
	if err := s.statsEmitter.SendMessage(ctx, string(body)); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("requestId", msg.RequestId).Msg("failed to emit stats event")
	}
}
