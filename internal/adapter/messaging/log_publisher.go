package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/order-reservation/internal/core/domain"
)

// LogPublisher stands in for Kafka when no brokers are configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.OrderEvent) error {
	p.logger.Info("order event",
		zap.String("type", string(event.Type)),
		zap.String("order_id", event.OrderID),
		zap.String("product_id", event.ProductID),
		zap.Int("quantity", event.Quantity),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
