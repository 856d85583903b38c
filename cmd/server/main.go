package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/rl1809/order-reservation/config"
	"github.com/rl1809/order-reservation/internal/adapter/handler"
	"github.com/rl1809/order-reservation/internal/adapter/messaging"
	"github.com/rl1809/order-reservation/internal/adapter/storage"
	"github.com/rl1809/order-reservation/internal/core/service"
	"github.com/rl1809/order-reservation/internal/platform/logger"
	"github.com/rl1809/order-reservation/internal/platform/observability"
	"github.com/rl1809/order-reservation/internal/port"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Otel)
	if err != nil {
		appLogger.Fatal("failed to set up tracing", zap.Error(err))
	}

	// Storage
	var (
		factory port.UnitOfWorkFactory
		catalog port.Catalog
		db      *sqlx.DB
	)
	switch cfg.Reservation.Storage {
	case config.StorageMySQL:
		db, err = sqlx.Open("mysql", cfg.MySQL.DSN())
		if err != nil {
			appLogger.Fatal("failed to open mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			appLogger.Fatal("failed to ping mysql", zap.Error(err))
		}
		if err := storage.RunMigrations(db.DB); err != nil {
			appLogger.Fatal("failed to migrate mysql", zap.Error(err))
		}
		appLogger.Info("connected to mysql", zap.String("db_name", cfg.MySQL.DBName))

		factory = storage.NewMySQLAdapter(db)
		catalog = storage.NewMySQLCatalog(db)
	case config.StorageMemory:
		memCatalog := storage.NewMemoryCatalog()
		for _, id := range cfg.Reservation.SeedProducts {
			memCatalog.AddProduct(id)
		}
		for _, id := range cfg.Reservation.SeedCustomers {
			memCatalog.AddCustomer(id)
		}
		appLogger.Info("using in-memory storage",
			zap.Strings("products", cfg.Reservation.SeedProducts),
			zap.Strings("customers", cfg.Reservation.SeedCustomers),
		)

		factory = storage.NewMemoryAdapter()
		catalog = memCatalog
	default:
		appLogger.Fatal("unknown storage driver", zap.String("driver", cfg.Reservation.Storage))
	}

	svcCfg := service.Config{
		TxTimeout:            cfg.Reservation.TxTimeout,
		MaxRetries:           cfg.Reservation.MaxRetries,
		RetryInitialInterval: cfg.Reservation.RetryInitialInterval,
	}

	// Event publishing
	var publisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = messaging.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		appLogger.Info("publishing to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		publisher = messaging.NewLogPublisher(appLogger)
	}
	dispatcher := service.NewEventDispatcher(publisher, cfg.Reservation.EventQueueSize, appLogger)
	dispatcher.Start(cfg.Reservation.EventWorkers)
	appLogger.Info("started event workers", zap.Int("workers", cfg.Reservation.EventWorkers))

	opts := []service.Option{service.WithConfig(svcCfg), service.WithEventDispatcher(dispatcher)}

	// Idempotency keys
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("failed to connect redis", zap.Error(err))
		}
		appLogger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		opts = append(opts, service.WithCache(storage.NewRedisAdapter(rdb)))
	}

	orderService := service.NewOrderService(factory, catalog, appLogger, opts...)
	inventoryService := service.NewInventoryService(factory, catalog, appLogger, svcCfg)

	// HTTP server
	httpHandler := handler.NewHTTPHandler(orderService, inventoryService, appLogger)
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPPort,
		Handler:      otelhttp.NewHandler(httpHandler.Routes(), "order-reservation"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server listening", zap.String("addr", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown", zap.Error(err))
	}
	appLogger.Info("HTTP server stopped")

	// Drain events committed before shutdown
	dispatcher.Close()
	if err := publisher.Close(); err != nil {
		appLogger.Error("failed to close publisher", zap.Error(err))
	}
	appLogger.Info("event workers stopped")

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		appLogger.Error("failed to shut down tracing", zap.Error(err))
	}
	appLogger.Info("connections closed")
}
