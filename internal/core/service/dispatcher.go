package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/port"
)

const publishTimeout = 5 * time.Second

// EventDispatcher publishes committed order events from a bounded queue with a
// fixed pool of workers. Publishing never feeds back into stock decisions.
type EventDispatcher struct {
	publisher port.EventPublisher
	queue     chan domain.OrderEvent
	logger    *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewEventDispatcher(publisher port.EventPublisher, queueSize int, logger *zap.Logger) *EventDispatcher {
	return &EventDispatcher{
		publisher: publisher,
		queue:     make(chan domain.OrderEvent, queueSize),
		logger:    logger,
	}
}

func (d *EventDispatcher) Start(workers int) {
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
}

// Enqueue blocks while the queue is full, until ctx is done.
func (d *EventDispatcher) Enqueue(ctx context.Context, ev domain.OrderEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("dispatcher closed, event dropped", zap.String("type", string(ev.Type)), zap.String("order_id", ev.OrderID))
		return
	}

	select {
	case d.queue <- ev:
	case <-ctx.Done():
		d.logger.Warn("event dropped", zap.String("type", string(ev.Type)), zap.String("order_id", ev.OrderID), zap.Error(ctx.Err()))
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (d *EventDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *EventDispatcher) workerLoop(id int) {
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

		if err := d.publisher.Publish(ctx, ev); err != nil {
			d.logger.Error("failed to publish order event",
				zap.Int("worker", id),
				zap.String("type", string(ev.Type)),
				zap.String("order_id", ev.OrderID),
				zap.Error(err),
			)
		} else {
			d.logger.Debug("published order event",
				zap.Int("worker", id),
				zap.String("type", string(ev.Type)),
				zap.String("order_id", ev.OrderID),
			)
		}

		cancel()
	}
}
