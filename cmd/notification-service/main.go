// cmd/notification-service/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"reminder-workers/internal/common/audit"
	"reminder-workers/internal/common/aws"
	"reminder-workers/internal/common/bus"
	"reminder-workers/internal/common/config"
	"reminder-workers/internal/common/database"
	"reminder-workers/internal/common/delivery"
	"reminder-workers/internal/common/logger"
	"reminder-workers/internal/common/observability"
	"reminder-workers/internal/store"

	cn "reminder-workers/internal/workers/comments/notify"
	dd "reminder-workers/internal/workers/notifications/dispatch-due"
	cr "reminder-workers/internal/workers/rsvp/cancel-reminders"
	si "reminder-workers/internal/workers/rsvp/schedule-interested"
	sr "reminder-workers/internal/workers/rsvp/schedule-reminders"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification service...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (audit trail only, optional) ---
	var auditor dd.Auditor
	if cfg.Audit.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		auditor = audit.NewIndexer(esClient.GetClient(), cfg.Audit.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init Delivery Channels ---
	var push delivery.PushSender
	if cfg.Delivery.Push.Enabled {
		client, err := delivery.NewPushClient(ctx, cfg.Delivery.Push.ProjectID, cfg.Delivery.Push.CredentialsFile)
		if err != nil {
			zapLog.Fatal("fcm client failed", zap.Error(err))
		}
		push = client
	}

	var email delivery.EmailSender
	if cfg.Delivery.Email.Enabled {
		client, err := aws.NewSESClient(ctx, cfg.Delivery.AWS.Region, cfg.Delivery.Email.FromEmail)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		email = client
	}

	var sms delivery.SMSSender
	if cfg.Delivery.SMS.Enabled {
		client, err := aws.NewSNSClient(ctx, cfg.Delivery.AWS.Region, cfg.Delivery.SMS.SenderID)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		sms = client
	}
	zapLog.Info("Delivery channels initialized",
		zap.Bool("push", cfg.Delivery.Push.Enabled),
		zap.Bool("email", cfg.Delivery.Email.Enabled),
		zap.Bool("sms", cfg.Delivery.SMS.Enabled),
	)

	// --- Stores & Gateway ---
	notifications := store.NewNotificationStore(pg.GetDB())
	rsvps := store.NewRSVPStore(pg.GetDB())
	contacts := store.NewContactStore(pg.GetDB())
	mutes := store.NewMuteStore(pg.GetDB(), redis.GetClient())

	gateway := delivery.NewGateway(
		delivery.Config{
			PushEnabled:  cfg.Delivery.Push.Enabled,
			EmailEnabled: cfg.Delivery.Email.Enabled,
			SMSEnabled:   cfg.Delivery.SMS.Enabled,
		},
		contacts, push, email, sms, log,
	)

	// --- Event Bus Consumer: register all 4 handlers ---
	consumer, err := bus.NewConsumer(cfg.Bus, log)
	if err != nil {
		zapLog.Fatal("event bus connection failed", zap.Error(err))
	}
	defer consumer.Close()

	consumer.Register(sr.NewHandler(sr.LoadConfig(), notifications, rsvps, log))
	consumer.Register(si.NewHandler(si.LoadConfig(), notifications, log))
	consumer.Register(cr.NewHandler(cr.LoadConfig(), notifications, log))
	consumer.Register(cn.NewHandler(cn.LoadConfig(), mutes, gateway, log))

	go func() {
		if err := consumer.Start(ctx); err != nil {
			zapLog.Fatal("event bus consumer stopped", zap.Error(err))
		}
	}()
	zapLog.Info("All 4 event handlers registered successfully")

	// --- Due-Notification Dispatcher ---
	dispatcher := dd.NewHandler(
		&dd.Config{
			BatchSize: cfg.Dispatcher.BatchSize,
			Timeout:   time.Duration(cfg.Dispatcher.IntervalSeconds)*time.Second - 5*time.Second,
		},
		notifications, rsvps, gateway, auditor, log,
	)

	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Dispatcher.IntervalSeconds) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				started := time.Now()
				if _, err := dispatcher.Run(ctx); err != nil {
					obs.RecordTick(ctx, "error")
					log.WithError(err).Error("dispatch tick failed", nil)
					continue
				}
				obs.RecordTick(ctx, "ok")
				obs.RecordTickDuration(ctx, time.Since(started), "ok")
			}
		}
	}()
	zapLog.Info("Dispatcher started", zap.Int("intervalSeconds", cfg.Dispatcher.IntervalSeconds))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		zapLog.Info("Health/Metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	cancel()

	// Give in-flight gateway calls a moment to finish before the deferred
	// closes tear down connections.
	time.Sleep(2 * time.Second)

	zapLog.Info("Notification service stopped gracefully")
}
