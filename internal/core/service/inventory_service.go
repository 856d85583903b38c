package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/port"
)

// InventoryService covers the administrative side of stock records: opening a
// record for a product, setting its level, retiring it and reporting.
type InventoryService struct {
	runner  txRunner
	ledger  *StockLedger
	catalog port.Catalog
	logger  *zap.Logger
}

func NewInventoryService(factory port.UnitOfWorkFactory, catalog port.Catalog, logger *zap.Logger, cfg Config) *InventoryService {
	return &InventoryService{
		runner:  txRunner{factory: factory, cfg: cfg, logger: logger},
		ledger:  NewStockLedger(),
		catalog: catalog,
		logger:  logger,
	}
}

func (s *InventoryService) OpenInventory(ctx context.Context, cmd domain.OpenInventoryCommand) (*domain.InventoryRecord, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.catalog.ProductExists(ctx, cmd.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return nil, domain.NewNotFound("product", cmd.ProductID)
	}

	var rec *domain.InventoryRecord
	err = s.runner.run(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		var err error
		rec, err = s.ledger.Open(ctx, uow, cmd.ProductID, cmd.QuantityOnHand, cmd.IsAvailableForSale)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("inventory opened",
		zap.String("product_id", rec.ProductID),
		zap.Int("quantity_on_hand", rec.QuantityOnHand),
		zap.Bool("available_for_sale", rec.IsAvailableForSale),
	)
	return rec, nil
}

// SetStock changes the administrative stock level. Active orders keep their
// reservations; the new level is what remains available on top of them.
func (s *InventoryService) SetStock(ctx context.Context, cmd domain.SetStockCommand) (*domain.InventoryRecord, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var rec *domain.InventoryRecord
	err := s.runner.run(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		var err error
		rec, err = s.ledger.SetLevel(ctx, uow, cmd.ProductID, cmd.QuantityOnHand, cmd.IsAvailableForSale)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("inventory level set",
		zap.String("product_id", rec.ProductID),
		zap.Int("quantity_on_hand", rec.QuantityOnHand),
		zap.Bool("available_for_sale", rec.IsAvailableForSale),
	)
	return rec, nil
}

func (s *InventoryService) RetireInventory(ctx context.Context, productID string) error {
	err := s.runner.run(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		return s.ledger.Retire(ctx, uow, productID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("inventory retired", zap.String("product_id", productID))
	return nil
}

func (s *InventoryService) GetAvailability(ctx context.Context, productID string) (domain.Availability, error) {
	var avail domain.Availability
	err := s.runner.read(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		var err error
		avail, err = s.ledger.ReadAvailable(ctx, uow.Inventory(), productID)
		return err
	})
	return avail, err
}

// Report lists every live record with the quantity held by active orders.
func (s *InventoryService) Report(ctx context.Context) (domain.InventoryReport, error) {
	report := domain.InventoryReport{Items: []domain.InventoryReportItem{}}
	err := s.runner.read(ctx, func(ctx context.Context, uow port.UnitOfWork) error {
		records, err := uow.Inventory().List(ctx)
		if err != nil {
			return fmt.Errorf("list inventory: %w", err)
		}

		for _, rec := range records {
			reserved, err := uow.Orders().ActiveQuantity(ctx, rec.ProductID)
			if err != nil {
				return fmt.Errorf("active quantity %s: %w", rec.ProductID, err)
			}
			report.Items = append(report.Items, domain.InventoryReportItem{
				ProductID:          rec.ProductID,
				QuantityOnHand:     rec.QuantityOnHand,
				IsAvailableForSale: rec.IsAvailableForSale,
				ReservedByOrders:   reserved,
			})
			if rec.QuantityOnHand <= 0 {
				report.OutOfStock++
			}
		}
		report.TotalProducts = len(report.Items)
		return nil
	})
	if err != nil {
		return domain.InventoryReport{}, err
	}
	return report, nil
}
