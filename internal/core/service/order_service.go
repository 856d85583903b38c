package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/port"
)

const idempotencyKeyPrefix = "idempotency:order:"

var tracer = otel.Tracer("github.com/rl1809/order-reservation/internal/core/service")

type Option func(*OrderService)

// WithCache enables request-ID idempotency for CreateOrder.
func WithCache(cache port.CacheRepository) Option {
	return func(s *OrderService) { s.cache = cache }
}

func WithEventDispatcher(d *EventDispatcher) Option {
	return func(s *OrderService) { s.events = d }
}

func WithConfig(cfg Config) Option {
	return func(s *OrderService) { s.runner.cfg = cfg }
}

// OrderService is the entry point for order mutations. Every order change is
// committed in the same unit of work as its matching stock ledger change.
type OrderService struct {
	runner    txRunner
	ledger    *StockLedger
	validator *ReservationValidator
	cache     port.CacheRepository
	events    *EventDispatcher
	logger    *zap.Logger
	now       func() time.Time
}

func NewOrderService(factory port.UnitOfWorkFactory, catalog port.Catalog, logger *zap.Logger, opts ...Option) *OrderService {
	ledger := NewStockLedger()
	s := &OrderService{
		runner:    txRunner{factory: factory, cfg: DefaultConfig(), logger: logger},
		ledger:    ledger,
		validator: NewReservationValidator(catalog, ledger),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OrderService) CreateOrder(ctx context.Context, cmd domain.CreateOrderCommand) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.String("customer.id", cmd.CustomerID),
		attribute.String("product.id", cmd.ProductID),
		attribute.Int("order.quantity", cmd.Quantity),
	))
	defer span.End()

	if err := cmd.Validate(); err != nil {
		return nil, s.fail(span, "create order rejected", err)
	}

	idempotencyKey := ""
	if cmd.RequestID != "" && s.cache != nil {
		idempotencyKey = idempotencyKeyPrefix + cmd.RequestID
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return nil, s.fail(span, "idempotency check failed", err)
		}
		if !ok {
			return nil, s.fail(span, "create order rejected", domain.ErrDuplicateRequest)
		}
	}

	var order domain.Order
	err := s.runner.run(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		if err := s.validator.ValidateCreate(ctx, uow, cmd); err != nil {
			return err
		}
		if err := s.ledger.TryReserve(ctx, uow, cmd.ProductID, cmd.Quantity); err != nil {
			return err
		}
		order = domain.NewOrder(cmd.CustomerID, cmd.ProductID, cmd.Quantity, s.now())
		return uow.Orders().Create(ctx, order)
	})
	if err != nil {
		if idempotencyKey != "" {
			if clearErr := s.cache.ClearIdempotency(context.WithoutCancel(ctx), idempotencyKey); clearErr != nil {
				s.logger.Error("failed to clear idempotency key", zap.String("key", idempotencyKey), zap.Error(clearErr))
			}
		}
		return nil, s.fail(span, "create order failed", err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("product_id", order.ProductID),
		zap.Int("quantity", order.Quantity),
	)
	s.publish(ctx, domain.NewOrderEvent(domain.OrderEventCreated, order, s.now()))
	return &order, nil
}

// UpdateOrder releases the order's current reservation and reserves the new
// one. If the new reservation is rejected the release is rolled back with it.
func (s *OrderService) UpdateOrder(ctx context.Context, cmd domain.UpdateOrderCommand) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.UpdateOrder", trace.WithAttributes(
		attribute.String("order.id", cmd.OrderID),
		attribute.String("product.id", cmd.ProductID),
		attribute.Int("order.quantity", cmd.Quantity),
	))
	defer span.End()

	var previous, updated domain.Order
	err := s.runner.run(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		if _, err := uow.Orders().GetForUpdate(ctx, cmd.OrderID); err != nil {
			return err
		}

		current, err := s.validator.ValidateUpdate(ctx, uow, cmd)
		if err != nil {
			return err
		}

		if err := s.ledger.LockInOrder(ctx, uow, current.ProductID, cmd.ProductID); err != nil {
			return err
		}
		if err := s.ledger.Release(ctx, uow, current.ProductID, current.Quantity); err != nil {
			return err
		}
		if err := s.ledger.TryReserve(ctx, uow, cmd.ProductID, cmd.Quantity); err != nil {
			return err
		}

		previous = *current
		updated = *current
		updated.ProductID = cmd.ProductID
		updated.Quantity = cmd.Quantity
		updated.UpdatedAt = s.now()
		if err := uow.Orders().Update(ctx, updated); err != nil {
			return err
		}
		updated.Version++
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "update order failed", err)
	}

	s.logger.Info("order updated",
		zap.String("order_id", updated.ID),
		zap.String("previous_product_id", previous.ProductID),
		zap.Int("previous_quantity", previous.Quantity),
		zap.String("product_id", updated.ProductID),
		zap.Int("quantity", updated.Quantity),
	)
	ev := domain.NewOrderEvent(domain.OrderEventUpdated, updated, s.now())
	ev.PreviousProductID = previous.ProductID
	ev.PreviousQuantity = previous.Quantity
	s.publish(ctx, ev)
	return &updated, nil
}

// DeleteOrder cancels the order and returns its reservation to stock exactly once.
func (s *OrderService) DeleteOrder(ctx context.Context, cmd domain.DeleteOrderCommand) error {
	ctx, span := tracer.Start(ctx, "OrderService.DeleteOrder", trace.WithAttributes(
		attribute.String("order.id", cmd.OrderID),
	))
	defer span.End()

	var cancelled domain.Order
	err := s.runner.run(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		if _, err := uow.Orders().GetForUpdate(ctx, cmd.OrderID); err != nil {
			return err
		}

		order, err := s.validator.ValidateDelete(ctx, uow, cmd)
		if err != nil {
			return err
		}

		if err := s.ledger.Release(ctx, uow, order.ProductID, order.Quantity); err != nil {
			return err
		}

		cancelled = *order
		cancelled.Status = domain.OrderStatusCancelled
		cancelled.UpdatedAt = s.now()
		return uow.Orders().Update(ctx, cancelled)
	})
	if err != nil {
		return s.fail(span, "delete order failed", err)
	}

	s.logger.Info("order cancelled",
		zap.String("order_id", cancelled.ID),
		zap.String("product_id", cancelled.ProductID),
		zap.Int("released", cancelled.Quantity),
	)
	s.publish(ctx, domain.NewOrderEvent(domain.OrderEventCancelled, cancelled, s.now()))
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order *domain.Order
	err := s.runner.read(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		var err error
		order, err = uow.Orders().Get(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetAvailability reads the committed stock level; nothing is cached.
func (s *OrderService) GetAvailability(ctx context.Context, productID string) (domain.Availability, error) {
	var avail domain.Availability
	err := s.runner.read(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		var err error
		avail, err = s.ledger.ReadAvailable(ctx, uow.Inventory(), productID)
		return err
	})
	return avail, err
}

func (s *OrderService) publish(ctx context.Context, ev domain.OrderEvent) {
	if s.events == nil {
		return
	}
	s.events.Enqueue(ctx, ev)
}

func (s *OrderService) fail(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	if IsRejection(err) {
		s.logger.Info(msg, zap.Error(err))
	} else {
		s.logger.Error(msg, zap.Error(err))
	}
	return err
}

// IsRejection reports whether err is a domain outcome rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrInsufficientStock,
		domain.ErrNotAvailableForSale,
		domain.ErrInvalidQuantity,
		domain.ErrConcurrencyConflict,
		domain.ErrAlreadyCancelled,
		domain.ErrAlreadyExists,
		domain.ErrDuplicateRequest,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return domain.IsMissingField(err)
}
