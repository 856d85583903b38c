package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/order-reservation/internal/adapter/storage"
	"github.com/rl1809/order-reservation/internal/core/domain"
	"github.com/rl1809/order-reservation/internal/core/service"
)

const (
	productID     = "stress-item"
	totalRequests = 50
	initialStock  = totalRequests - 1
)

func main() {
	ctx := context.Background()

	store := storage.NewMemoryAdapter()
	store.PutInventory(domain.InventoryRecord{
		ProductID:          productID,
		QuantityOnHand:     initialStock,
		IsAvailableForSale: true,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	})

	catalog := storage.NewMemoryCatalog()
	catalog.AddProduct(productID)
	for i := 0; i < totalRequests; i++ {
		catalog.AddCustomer(fmt.Sprintf("customer-%d", i))
	}

	cfg := service.DefaultConfig()
	cfg.MaxRetries = 10
	orderService := service.NewOrderService(store, catalog, zap.NewNop(), service.WithConfig(cfg))

	var successCount, rejectedCount, errorCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := orderService.CreateOrder(ctx, domain.CreateOrderCommand{
				CustomerID: fmt.Sprintf("customer-%d", n),
				ProductID:  productID,
				Quantity:   1,
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejectedCount.Add(1)
			default:
				errorCount.Add(1)
				log.Printf("request %d: %v", n, err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	rejected := rejectedCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", rejected)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false
	if success == initialStock && rejected == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d rejected, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, rejected)
		failed = true
	}

	avail, err := orderService.GetAvailability(ctx, productID)
	if err != nil {
		log.Fatalf("failed to read availability: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", avail.QuantityOnHand)

	if avail.QuantityOnHand == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", avail.QuantityOnHand)
		failed = true
	}

	if failed {
		os.Exit(1)
	}
}
