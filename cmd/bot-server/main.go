// cmd/bot-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"forbill-bot/internal/audit"
	"forbill-bot/internal/bot"
	"forbill-bot/internal/common/aws"
	"forbill-bot/internal/common/config"
	"forbill-bot/internal/common/database"
	"forbill-bot/internal/common/logger"
	"forbill-bot/internal/common/observability"
	"forbill-bot/internal/intent"
	"forbill-bot/internal/notify"
	"forbill-bot/internal/payment"
	"forbill-bot/internal/replies"
	"forbill-bot/internal/session"
	"forbill-bot/internal/store"
	"forbill-bot/internal/vtu"
	"forbill-bot/internal/webhook"
	"forbill-bot/internal/whatsapp"
	"forbill-bot/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting bot server...",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rds *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rds, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rds.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rds.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var es *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping()
	}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		// Audit trail is best-effort; the bot serves without it.
		zapLog.Warn("elasticsearch unavailable, audit disabled", zap.Error(err))
		es = nil
	} else {
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Intent classifier: misconfigured limits refuse to start ---
	classifier, err := intent.NewClassifier(cfg.Limits, log)
	if err != nil {
		zapLog.Fatal("classifier construction failed", zap.Error(err))
	}

	// --- Reply registry: fail fast on a malformed file ---
	if _, err := registry.Load(cfg.Templates.RegistryPath); err != nil {
		zapLog.Fatal("reply registry load failed", zap.Error(err))
	}
	reg := registry.New(cfg.Templates.RegistryPath)
	builder := replies.NewBuilder(reg, cfg.Limits, log)

	// --- Notifications (AWS) ---
	var notifier *notify.Notifier
	if cfg.Notifications.AWS.SES.Enabled || cfg.Notifications.AWS.SNS.Enabled {
		sesClient, sesErr := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		snsClient, snsErr := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if sesErr != nil || snsErr != nil {
			zapLog.Warn("AWS clients unavailable, notifications disabled",
				zap.NamedError("ses", sesErr), zap.NamedError("sns", snsErr))
		} else {
			notifier = notify.NewNotifier(cfg.Notifications, sesClient, snsClient, log)
		}
	}

	// --- Wiring ---
	st := store.NewStore(pg.DB, log)
	sender := whatsapp.NewClient(cfg.WhatsApp, log)
	vender := vtu.NewClient(cfg.Vending, log)
	gateway := payment.NewClient(cfg.Payment, log)
	limiter := session.NewRateLimiter(rds.Client, cfg.RateLimit, log)
	deduper := session.NewDeduper(rds.Client, log)

	var auditor *audit.Auditor
	if es != nil {
		auditor = audit.New(es.Client, cfg.Database.Elasticsearch.AuditIndex, log)
	}

	dispatcher := bot.NewDispatcher(st, vender, sender, builder, notifier, cfg.Referral, obs, log)

	server := webhook.NewServer(webhook.ServerConfig{
		Config:     *cfg,
		Store:      st,
		Classifier: classifier,
		Dispatcher: dispatcher,
		Sender:     sender,
		Auditor:    auditor,
		Limiter:    limiter,
		Deduper:    deduper,
		Gateway:    gateway,
		Replies:    builder,
		Logger:     log,
	})

	httpServer := server.HTTPServer()
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown error", zap.Error(err))
	}
	zapLog.Info("Bot server stopped")
}
