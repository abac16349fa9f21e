package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/crosslane/voucher-api-service/cmd/voucher-api-service/cli"
	"github.com/crosslane/voucher-api-service/cmd/voucher-api-service/scripts"
	"github.com/crosslane/voucher-api-service/internal/api"
	"github.com/crosslane/voucher-api-service/internal/config"
	"github.com/crosslane/voucher-api-service/internal/db/model"
	"github.com/crosslane/voucher-api-service/internal/observability/healthcheck"
	"github.com/crosslane/voucher-api-service/internal/observability/metrics"
	"github.com/crosslane/voucher-api-service/internal/queue"
	"github.com/crosslane/voucher-api-service/internal/relay"
	"github.com/crosslane/voucher-api-service/internal/services"
	"github.com/crosslane/voucher-api-service/internal/types"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("failed to load .env file")
	}
}

func main() {
	ctx := context.Background()

	// setup cli commands and flags
	if err := cli.Setup(); err != nil {
		log.Fatal().Err(err).Msg("error while setting up cli")
	}

	// load config
	cfgPath := cli.GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	paramsPath := cli.GetProtocolParamsPath()
	params, err := types.NewProtocolParams(paramsPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading protocol params file: %s", paramsPath))
	}

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	err = model.Setup(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up voucher db model")
	}
	services, err := services.New(ctx, cfg, params)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up voucher services layer")
	}
	// Start the event queue processing
	queues := queue.New(&cfg.Queue, services)
	services.SetStatsEmitter(queues.VoucherStatsQueueClient)

	// Check if the replay flag is set
	if cli.GetReplayFlag() {
		log.Info().Msg("Replay flag is set. Starting replay of unprocessable messages.")
		err := scripts.ReplayUnprocessableMessages(ctx, cfg, queues, services.DbClient)
		if err != nil {
			log.Fatal().Err(err).Msg("error while replaying unprocessable messages")
		}
		return
	}

	queues.StartReceivingMessages()

	if cfg.Relay.Enabled {
		chainRelay, err := relay.New(ctx, &cfg.Relay, services.DbClient, queues)
		if err != nil {
			log.Fatal().Err(err).Msg("error while setting up chain relay")
		}
		chainRelay.Start(ctx)
	}

	err = healthcheck.StartHealthCheckCron(ctx, queues, cfg.Server.HealthCheckInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("error while starting health check cron")
	}

	apiServer, err := api.New(ctx, cfg, services)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up voucher api service")
	}
	if err = apiServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("error while starting voucher api service")
	}
}
