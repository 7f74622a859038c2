package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	appcheckout "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/application/checkout"
	apporder "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/application/order"
	apppromo "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/application/promo"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/config"
	dominv "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/inventory"
	domorder "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/order"
	domoutbox "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/outbox"
	dompayment "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/payment"
	dompromo "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/domain/promo"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/infrastructure/gateway"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/infrastructure/id"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/infrastructure/kafka"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/infrastructure/memory"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/infrastructure/notifier"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/infrastructure/outbox"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/infrastructure/postgres"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/infrastructure/queue"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/notify"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/pkg/logging"
	"github.com/AravinthSankar1/Serra-Fashion-sub000/internal/pkg/metrics"
	httpapi "github.com/AravinthSankar1/Serra-Fashion-sub000/internal/presentation/http"
)

// fanoutPublisher forwards each event to every sink. The in-process bus
// drives notifications; Kafka, when configured, exports the same stream
// for downstream consumers.
type fanoutPublisher []domoutbox.Publisher

func (f fanoutPublisher) Publish(ctx context.Context, e domoutbox.Event) error {
	var firstErr error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	met := metrics.New(prometheus.DefaultRegisterer)

	var (
		orderRepo domorder.Repository
		ledger    dominv.Ledger
		promoRepo dompromo.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(context.Background(), pool); err != nil {
			logger.Fatal("postgres_schema_failed", zap.Error(err))
		}
		orderRepo = postgres.NewOrderRepository(pool)
		ledger = postgres.NewInventoryRepository(pool)
		promoRepo = postgres.NewPromoRepository(pool)
		logger.Info("storage_ready", zap.String("backend", "postgres"))
	} else {
		orderRepo = memory.NewOrderRepository()
		ledger = memory.NewInventoryRepository()
		promoRepo = memory.NewPromoRepository()
		logger.Info("storage_ready", zap.String("backend", "memory"))
	}

	bus := outbox.NewBus(logger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	var pub domoutbox.Publisher = bus
	if kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic); kp != nil {
		defer func() { _ = kp.Close() }()
		pub = fanoutPublisher{bus, kp}
		logger.Info("kafka_publisher_ready", zap.String("topic", cfg.KafkaTopic))
	}

	var jobQueue notify.Queue
	if cfg.RedisURL != "" {
		rq, err := queue.NewRedisQueue(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis_connect_failed", zap.Error(err))
		}
		jobQueue = rq
		logger.Info("notify_queue_ready", zap.String("backend", "redis"))
	} else {
		jobQueue = notify.NewMemoryQueue(256)
		logger.Info("notify_queue_ready", zap.String("backend", "memory"))
	}
	defer func() { _ = jobQueue.Close() }()

	notify.NewBridge(jobQueue).Register(bus)

	channels := []notify.Notifier{
		notifier.NewEmailNotifier(orderRepo, &notifier.LogEmailSender{Log: logger}, logger),
	}
	if cfg.NotifyWebhookURL != "" {
		channels = append(channels, notifier.NewWebhookNotifier(cfg.NotifyWebhookURL, 10*time.Second))
	}

	dispatcher := notify.NewDispatcher(jobQueue, channels, notify.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
	}, cfg.WorkerCount, logger, met)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	payGateway := gateway.NewHTTPGateway(cfg.GatewayURL, cfg.GatewayKey, cfg.GatewayTimeout)
	verifier := dompayment.NewSignatureVerifier(cfg.WebhookSecret)

	checkoutUC := appcheckout.NewUseCase(orderRepo, ledger, promoRepo, payGateway, verifier, pub, id.NewUUIDGenerator(), met)
	orderService := apporder.NewService(orderRepo, ledger, pub)
	promoService := apppromo.NewService(promoRepo)

	handler := httpapi.NewHandler(checkoutUC, orderService, promoService, met)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}
