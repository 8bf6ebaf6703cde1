package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/mejaqr/mejaqr/internal/adapter/auth"
	"github.com/mejaqr/mejaqr/internal/adapter/bus"
	"github.com/mejaqr/mejaqr/internal/adapter/logger"
	"github.com/mejaqr/mejaqr/internal/adapter/postgres"
	"github.com/mejaqr/mejaqr/internal/adapter/rabbitmq"
	"github.com/mejaqr/mejaqr/internal/app/display"
	"github.com/mejaqr/mejaqr/internal/app/lifecycle"
	"github.com/mejaqr/mejaqr/internal/app/planlimit"
	"github.com/mejaqr/mejaqr/internal/app/tenantdir"
	"github.com/mejaqr/mejaqr/internal/config"
	"github.com/mejaqr/mejaqr/internal/interfaces"

	httpAdapter "github.com/mejaqr/mejaqr/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "api", "Service mode: api, display")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	tenantFlag := flag.String("tenant", "", "Tenant id (for display mode)")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	lgr := logger.New(*mode)

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	switch *mode {
	case "api":
		runAPI(ctx, cfg, db, mqConn, lgr)
	case "display":
		if *tenantFlag == "" {
			log.Fatal("--tenant is required for display mode")
		}
		tenantID, err := uuid.Parse(*tenantFlag)
		if err != nil {
			log.Fatalf("Invalid tenant id: %v", err)
		}
		runDisplay(ctx, cfg, db, mqConn, lgr, tenantID)
	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, db postgres.DB, mqConn rabbitmq.Connection, lgr logger.Logger) {
	orderRepo := postgres.NewOrderRepository(db)
	tenantRepo := postgres.NewTenantRepository(db)

	// Committed transitions fan out twice: in-process for websocket
	// clients, RabbitMQ for everything else.
	localBus := bus.New(64)
	publisher := bus.Fanout{localBus, rabbitmq.NewPublisher(mqConn)}

	orderService := lifecycle.NewService(orderRepo, tenantRepo, publisher, lgr)
	limitService := planlimit.NewService(tenantRepo, lgr)
	directory := tenantdir.NewService(tenantRepo)
	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer)

	orderHandler := httpAdapter.NewOrderHandler(orderService, directory, lgr)
	limitHandler := httpAdapter.NewLimitHandler(limitService, lgr)
	streamHandler := httpAdapter.NewStreamHandler(localBus, lgr)

	authed := httpAdapter.AuthMiddleware(tokens, directory, lgr)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", orderHandler.CreateOrder)
	mux.Handle("GET /orders", authed(http.HandlerFunc(orderHandler.ListOrders)))
	mux.Handle("GET /orders/{id}", authed(http.HandlerFunc(orderHandler.GetOrder)))
	mux.Handle("GET /orders/{id}/history", authed(http.HandlerFunc(orderHandler.GetHistory)))
	mux.Handle("PATCH /orders/{id}/status", authed(http.HandlerFunc(orderHandler.TransitionStatus)))
	mux.Handle("PATCH /orders/{id}/kitchen-status", authed(http.HandlerFunc(orderHandler.UpdateKitchenStatus)))
	mux.Handle("PATCH /orders/{id}/payment", authed(http.HandlerFunc(orderHandler.UpdatePayment)))
	mux.Handle("POST /orders/{id}/invoice-printed", authed(http.HandlerFunc(orderHandler.MarkInvoicePrinted)))
	mux.Handle("GET /limits/{kind}", authed(http.HandlerFunc(limitHandler.CheckLimit)))
	mux.Handle("GET /ws", authed(http.HandlerFunc(streamHandler.Stream)))

	handler := httpAdapter.LoggingMiddleware(lgr)(mux)
	handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("API started on port %d", cfg.HTTP.Port), "startup", map[string]interface{}{
		"port": cfg.HTTP.Port,
	})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down API", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runDisplay(ctx context.Context, cfg *config.Config, db postgres.DB, mqConn rabbitmq.Connection, lgr logger.Logger, tenantID uuid.UUID) {
	orderRepo := postgres.NewOrderRepository(db)
	tenantRepo := postgres.NewTenantRepository(db)

	orderService := lifecycle.NewService(orderRepo, tenantRepo, noopPublisher{}, lgr)
	consumer := rabbitmq.NewConsumer(mqConn, tenantID, lgr)

	svc := display.NewService(orderService, consumer, tenantID,
		time.Duration(cfg.Display.PollIntervalSeconds)*time.Second, lgr)

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint
		lgr.Info("shutdown_initiated", "Shutting down display", "shutdown", nil)
		cancel()
	}()

	lgr.Info("service_started", "Kitchen display started", "startup", map[string]interface{}{
		"tenant_id": tenantID.String(),
	})

	if err := svc.Run(runCtx); err != nil && runCtx.Err() == nil {
		lgr.Error("display_stopped", "Display stopped unexpectedly", "runtime", nil, err)
	}
}

// noopPublisher: the display process only reads; it never emits events.
type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, interfaces.Event) error { return nil }
