package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/idempotent-order/internal/clock"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/postgres"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/rabbitmq"
	outboxrepo "github.com/corray333/backend-labs/idempotent-order/internal/dal/repositories/outbox/sqlrepo"
	"github.com/corray333/backend-labs/idempotent-order/internal/dal/sqlite"
	"github.com/corray333/backend-labs/idempotent-order/internal/otel"
	"github.com/corray333/backend-labs/idempotent-order/internal/service/services/ordersvc"
	httptransport "github.com/corray333/backend-labs/idempotent-order/internal/transport/http"
	outboxworker "github.com/corray333/backend-labs/idempotent-order/internal/worker/outbox"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// store is an opened database owned by the App.
type store interface {
	DB() *sqlx.DB
	Close() error
}

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	transport      *httptransport.HTTPTransport
	store          store
	outboxWorker   *outboxworker.Worker
	rabbitMqClient *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	db := mustOpenStore()

	opts := []ordersvc.Option{
		ordersvc.WithDatabase(db),
		ordersvc.WithMaxCreateAttempts(viper.GetInt("orders.max_create_attempts")),
	}

	var (
		rabbitMqClient *rabbitmq.Client
		outboxWorker   *outboxworker.Worker
	)
	if viper.GetBool("outbox.enabled") {
		rabbitMqClient = rabbitmq.MustNewClient()
		exchange := viper.GetString("outbox.exchange")
		if err := rabbitMqClient.DeclareExchange(rabbitmq.DeclareExchangeConfig{
			Name:    exchange,
			Durable: true,
		}); err != nil {
			panic(fmt.Sprintf("failed to declare exchange %q: %v", exchange, err))
		}

		opts = append(opts, ordersvc.WithOutbox(ordersvc.OutboxConfig{
			ExchangeName: exchange,
			RoutingKey:   viper.GetString("outbox.routing_key"),
			MaxRetries:   viper.GetInt("outbox.max_retries"),
		}))
		outboxWorker = outboxworker.NewWorker(
			outboxrepo.NewOutboxRepository(db.DB()),
			rabbitMqClient,
			clock.NewSystem(),
		)
	}

	orderSvc := ordersvc.MustNewOrderService(opts...)

	transport := httptransport.NewHTTPTransport(orderSvc)
	transport.RegisterRoutes()

	return &App{
		orderSvc:       orderSvc,
		transport:      transport,
		store:          db,
		outboxWorker:   outboxWorker,
		rabbitMqClient: rabbitMqClient,
		otelController: otelController,
	}
}

func mustOpenStore() store {
	switch driver := viper.GetString("storage.driver"); driver {
	case "postgres":
		slog.Info("Using Postgres storage")
		return postgres.MustNewClient()
	case "sqlite", "":
		slog.Info("Using SQLite storage", "path", viper.GetString("storage.sqlite.path"))
		return sqlite.MustNewClient()
	default:
		panic(fmt.Sprintf("unknown storage driver %q", driver))
	}
}

// Run starts the application and blocks until SIGINT or SIGTERM, or until
// a component fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.outboxWorker != nil {
		g.Go(func() error {
			slog.Info("Starting outbox worker")
			a.outboxWorker.Start(ctx)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutdown signal received")
		a.gracefulShutdown()
		return nil
	})

	err := g.Wait()
	a.closeResources()

	return err
}

// gracefulShutdown stops the components that serve traffic.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}
}

// closeResources releases connections once nothing uses them.
func (a *App) closeResources() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.rabbitMqClient != nil {
		if err := a.rabbitMqClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	if err := a.store.Close(); err != nil {
		slog.Error("Database connection close error", "error", err)
	} else {
		slog.Info("Database connection closed gracefully")
	}

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	slog.Info("Application shutdown complete")
}
