package handlers

import (
	"context"

	"github.com/crosslane/voucher-api-service/internal/services"
	"github.com/crosslane/voucher-api-service/internal/types"
)

type QueueHandler struct {
	Services *services.Services
}

type MessageHandler func(ctx context.Context, messageBody string) *types.Error

func NewQueueHandler(services *services.Services) *QueueHandler {
	return &QueueHandler{
		Services: services,
	}
}
