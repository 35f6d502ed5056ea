package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qms/kiosk-service/internal/bridge"
	"qms/kiosk-service/internal/config"
	"qms/kiosk-service/internal/events"
	"qms/kiosk-service/internal/httpapi"
	"qms/kiosk-service/internal/queueapi"
	"qms/kiosk-service/internal/session"
	"qms/kiosk-service/internal/store"
	"qms/kiosk-service/internal/store/postgres"
	"qms/kiosk-service/internal/store/stub"
	"qms/kiosk-service/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()

	if len(os.Args) > 1 && os.Args[1] == "create-operator" {
		if err := createOperator(cfg, os.Args[2:]); err != nil {
			log.Fatalf("create operator: %v", err)
		}
		return
	}

	flagSet := pflag.NewFlagSet("kiosk-service", pflag.ContinueOnError)
	cfg.AddFlags(flagSet)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		log.Fatalf("flags: %v", err)
	}

	shutdownTelemetry := telemetry.Setup("kiosk-service", cfg.Location)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	categories, err := config.LoadCategories(cfg.CategoriesFile)
	if err != nil {
		log.Fatalf("categories: %v", err)
	}

	queueClient := queueapi.New(cfg.QueueAPIURL, cfg.QueueAPIToken)
	if queueClient == nil {
		log.Printf("queue api disabled")
	}

	var operators store.OperatorStore
	switch {
	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()
		operators = postgres.NewStore(pool)
		log.Printf("operator store=postgres")
	case queueClient != nil && cfg.QueueAPIURL != "":
		operators = queueapi.NewOperatorStore(queueClient)
		log.Printf("operator store=queue-api url=%s", cfg.QueueAPIURL)
	default:
		operators = stub.NewStore()
		log.Printf("operator store=stub")
	}

	publisher := events.NewLogPublisher()
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("amqp unavailable, publishing events to log: %v", err)
		} else {
			publisher = amqpPublisher
		}
	}
	defer publisher.Close()

	printBridge := bridge.New(cfg.Bridge, cfg.BridgeToken)
	manager := session.NewManager(operators, bridge.NewClient(printBridge), cfg.SessionTTL, session.Options{
		Categories: categories,
		Location:   cfg.Location,
		NumberMin:  cfg.TicketMin,
		NumberMax:  cfg.TicketMax,
		Publisher:  publisher,
		QueueAPI:   queueClient,
	})
	handler := httpapi.NewHandler(manager, httpapi.Options{QRSize: cfg.QRSize})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:      cfg.RateLimitPerMinute,
		IPBurst:          cfg.RateLimitBurst,
		SessionPerMinute: cfg.SessionRateLimitPerMinute,
		SessionBurst:     cfg.SessionRateLimitBurst,
	})

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(handler.Routes())), "kiosk-service")
	// WriteTimeout stays generous: a print request waits on the bridge,
	// which applies its own timeout.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("kiosk-service listening on %s bridge=%s", server.Addr, bridgeKind(cfg.Bridge))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	go func() {
		if cfg.SessionSweepInterval <= 0 {
			return
		}
		ticker := time.NewTicker(cfg.SessionSweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if count := manager.Sweep(); count > 0 {
				log.Printf("session sweep expired %d sessions", count)
			}
			limiter.Prune(10 * time.Minute)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// createOperator provisions an operator account in the postgres store.
func createOperator(cfg config.Config, args []string) error {
	var username, password, role string
	flagSet := pflag.NewFlagSet("create-operator", pflag.ContinueOnError)
	flagSet.StringVar(&username, "username", "", "operator username")
	flagSet.StringVar(&password, "password", "", "operator password")
	flagSet.StringVar(&role, "role", "operator", "operator role")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if username == "" || password == "" {
		return store.ErrEmptyInput
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	operator, err := postgres.NewStore(pool).CreateOperator(ctx, username, password, role)
	if err != nil {
		return err
	}
	log.Printf("operator created id=%s username=%s role=%s", operator.OperatorID, operator.Username, operator.Role)
	return nil
}

func bridgeKind(kind string) string {
	if kind == "" {
		return "log"
	}
	return kind
}
