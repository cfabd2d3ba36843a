package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	apihttp "pos-backoffice/internal/api/http"
	"pos-backoffice/internal/audit"
	"pos-backoffice/internal/auth"
	"pos-backoffice/internal/eventing"
	"pos-backoffice/internal/eventing/eventbus"
	eventingkafka "pos-backoffice/internal/eventing/infrastructure/kafka"
	eventingrepo "pos-backoffice/internal/eventing/infrastructure/postgres"
	"pos-backoffice/internal/gateway"
	"pos-backoffice/internal/idempotency"
	idemrepo "pos-backoffice/internal/idempotency/infrastructure/postgres"
	invoiceapp "pos-backoffice/internal/invoice/application"
	invoicerepo "pos-backoffice/internal/invoice/infrastructure/postgres"
	invoicehttp "pos-backoffice/internal/invoice/interfaces/http"
	ledgerapp "pos-backoffice/internal/ledger/application"
	ledger "pos-backoffice/internal/ledger/domain"
	ledgerrepo "pos-backoffice/internal/ledger/infrastructure/postgres"
	ledgerhttp "pos-backoffice/internal/ledger/interfaces/http"
	"pos-backoffice/internal/observability/metrics"
	orderrepo "pos-backoffice/internal/order/infrastructure/postgres"
	reconcileapp "pos-backoffice/internal/reconcile/application"
	reconcilerepo "pos-backoffice/internal/reconcile/infrastructure/postgres"
	reconcilehttp "pos-backoffice/internal/reconcile/interfaces/http"
	"pos-backoffice/internal/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"
)

func main() {
	_ = godotenv.Load()

	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	reconcileCfg, err := reconcileapp.LoadConfig()
	if err != nil {
		logger.Fatalf("reconcile config error: %v", err)
	}

	db, err := sql.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		logger.Fatalf("migrate error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	// Storage.
	orderStore := orderrepo.NewOrderStore(db)
	journalRepo := ledgerrepo.NewJournalRepository(db)
	invoiceRepo := invoicerepo.NewRepository(db)
	transactionRepo := reconcilerepo.NewTransactionRepository(db)
	reviewRepo := reconcilerepo.NewReviewRepository(db)

	keyStore := idemrepo.NewStore(db)
	guard, err := idempotency.NewGuard(keyStore)
	if err != nil {
		logger.Fatalf("idempotency guard error: %v", err)
	}
	go sweepStaleKeys(guard, cfg.StaleKeyTTL(), logger)

	engine, err := ledgerapp.NewEngine(journalRepo)
	if err != nil {
		logger.Fatalf("ledger engine error: %v", err)
	}
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := journalRepo.SeedAccounts(seedCtx, ledger.DefaultChart(reconcileCfg.Currency)); err != nil {
		cancel()
		logger.Fatalf("seed accounts error: %v", err)
	}
	cancel()

	// Eventing: transactional outbox feeding an in-process bus, with an
	// optional Kafka relay for downstream consumers.
	baseBus := eventbus.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(reconcileapp.PaymentConfirmed{})
	registry.Register(reconcileapp.PaymentFailed{})
	registry.Register(reconcileapp.TransactionReversed{})
	registry.Register(reconcileapp.ManualReviewOpened{})

	outboxStore := eventingrepo.NewOutboxStore(db)
	processedStore := eventingrepo.NewProcessedStore(db)
	dlqStore := eventingrepo.NewDLQStore(db)
	dispatcher := eventing.NewDispatcher(baseBus, outboxStore, registry, dlqStore)
	dispatcher.Logger = logger
	publisher := eventing.NewPublisher(outboxStore, dispatcher, cfg.TenantID, baseBus)

	if reconcileCfg.Kafka.Enabled() {
		relay := eventingkafka.NewPublisher(reconcileCfg.Kafka.Brokers, reconcileCfg.Kafka.Topic)
		defer relay.Close()
		relayHandler := func(ctx context.Context, _ any) error {
			env, ok := eventing.EnvelopeFromContext(ctx)
			if !ok {
				return nil
			}
			return relay.Relay(ctx, env)
		}
		for _, eventType := range []string{
			eventbus.EventTypeOf[reconcileapp.PaymentConfirmed](),
			eventbus.EventTypeOf[reconcileapp.PaymentFailed](),
			eventbus.EventTypeOf[reconcileapp.TransactionReversed](),
			eventbus.EventTypeOf[reconcileapp.ManualReviewOpened](),
		} {
			eventing.Subscribe(baseBus, eventType, "kafka-relay", relayHandler, processedStore)
		}
		logger.Printf("kafka relay enabled topic=%s", reconcileCfg.Kafka.Topic)
	}

	// Payment gateway adapter.
	gatewayClient, err := gateway.NewClient(reconcileCfg.Gateway.BaseURL, reconcileCfg.Gateway.APIKey)
	if err != nil {
		logger.Fatalf("gateway client error: %v", err)
	}
	gatewayAdapter, err := gateway.NewAdapter(gatewayClient,
		gateway.WithMaxAttempts(reconcileCfg.Gateway.MaxAttempts),
		gateway.WithBackoffBase(reconcileCfg.Gateway.Backoff()),
	)
	if err != nil {
		logger.Fatalf("gateway adapter error: %v", err)
	}

	uow, err := reconcilerepo.NewUnitOfWork(db)
	if err != nil {
		logger.Fatalf("unit of work error: %v", err)
	}

	orchestrator, err := reconcileapp.NewOrchestrator(
		reconcileCfg,
		guard,
		gatewayAdapter,
		orderStore,
		transactionRepo,
		invoiceRepo,
		engine,
		uow,
		reviewRepo,
		publisher,
		logger,
	)
	if err != nil {
		logger.Fatalf("orchestrator error: %v", err)
	}

	invoiceService, err := invoiceapp.NewService(invoiceRepo, logger)
	if err != nil {
		logger.Fatalf("invoice service error: %v", err)
	}

	// HTTP surface.
	reconcileHandler, err := reconcilehttp.NewHandler(orchestrator, auditRepo)
	if err != nil {
		logger.Fatalf("reconcile handler error: %v", err)
	}
	webhookHandler, err := reconcilehttp.NewWebhookHandler(orchestrator, logger)
	if err != nil {
		logger.Fatalf("webhook handler error: %v", err)
	}
	invoiceHandler, err := invoicehttp.NewHandler(invoiceService)
	if err != nil {
		logger.Fatalf("invoice handler error: %v", err)
	}
	ledgerHandler, err := ledgerhttp.NewHandler(engine, reconcileCfg.Currency)
	if err != nil {
		logger.Fatalf("ledger handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy(
		[]string{"/healthz", "/metrics"},
		[]string{"/webhooks/"},
	)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	webhookAuth := auth.NewWebhookAuthMiddleware(
		[]byte(cfg.WebhookSecret),
		time.Duration(cfg.WebhookSkewSeconds)*time.Second,
	)

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Reconcile:         reconcileHandler,
		Invoices:          invoiceHandler,
		Ledger:            ledgerHandler,
		Webhook:           webhookHandler,
		AuthMiddleware:    authMiddleware,
		WebhookMiddleware: webhookAuth,
		DB:                db,
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

// sweepStaleKeys periodically frees idempotency reservations left behind
// by a crash between acquire and commit. Without it those intents stay
// wedged in in_progress forever.
func sweepStaleKeys(guard *idempotency.Guard, ttl time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		released, err := guard.SweepStale(ctx, time.Now().Add(-ttl))
		cancel()
		if err != nil {
			logger.Printf("stale key sweep error: %v", err)
			continue
		}
		if released > 0 {
			logger.Printf("released %d stale idempotency keys", released)
		}
	}
}

type config struct {
	DatabaseURL        string
	DBDriver           string
	HTTPAddr           string
	TenantID           string
	JWTSecret          string
	WebhookSecret      string
	WebhookSkewSeconds int
	StaleKeySeconds    int
}

// StaleKeyTTL is how long an in-progress reservation may sit before the
// sweeper treats its owner as crashed.
func (c config) StaleKeyTTL() time.Duration {
	return time.Duration(c.StaleKeySeconds) * time.Second
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:        getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		DBDriver:           getenvDefault("DB_DRIVER", "pgx"),
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		TenantID:           getenvDefault("TENANT_ID", "tenant-demo"),
		JWTSecret:          getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		WebhookSecret:      getenvDefault("WEBHOOK_HMAC_SECRET", ""),
		WebhookSkewSeconds: getenvIntDefault("WEBHOOK_MAX_SKEW_SECONDS", 300),
		StaleKeySeconds:    getenvIntDefault("IDEMPOTENCY_STALE_SECONDS", 900),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
