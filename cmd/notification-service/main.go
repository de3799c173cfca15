// cmd/notification-service/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"formative-notifications/internal/common/config"
	"formative-notifications/internal/common/database"
	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/common/observability"
	"formative-notifications/internal/notify"
	"formative-notifications/internal/notify/email"
	"formative-notifications/internal/notify/inapp"
	"formative-notifications/internal/notify/intake"
	"formative-notifications/internal/notify/prefs"
	"formative-notifications/internal/notify/push"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zapLog := logger.New("info", "console")
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting notification service",
		zap.String("name", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := pg.Ping(pingCtx); err != nil {
		cancel()
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}
	cancel()

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis init failed", zap.Error(err))
	}
	defer rdb.Close()

	// --- Email channel (SES), active only with credentials present ---
	var sesClient email.SESService
	if cfg.Email.Configured() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Email.AWSRegion))
		if err != nil {
			zapLog.Fatal("AWS config load failed", zap.Error(err))
		}
		sesClient = ses.NewFromConfig(awsCfg)
		zapLog.Info("email channel active", zap.String("from", cfg.Email.FromEmail))
	} else {
		zapLog.Warn("email channel not configured, queued jobs will not be dispatched")
	}

	dispatcher := email.NewDispatcher(sesClient, cfg.Email, log)
	queue := email.NewQueue(pg.GetDB(), dispatcher, log, cfg.Queue.BatchSize, cfg.Queue.MaxAttempts)

	// The processor exists only when the provider does. Unconfigured email is
	// a deliberate disablement, not an error.
	var processor *email.Processor
	if dispatcher.Configured() {
		processor = email.NewProcessor(queue, log, obs, time.Duration(cfg.Queue.IntervalSeconds)*time.Second)
		processor.Start(ctx)
	}

	// --- Push channel (Web Push), active only with VAPID keys present ---
	registry := push.NewRegistry(pg.GetDB(), log)
	var webPush push.WebPushService
	if cfg.Push.Configured() {
		webPush = push.NewWebPushClient()
		zapLog.Info("push channel active")
	} else {
		zapLog.Warn("push channel not configured, sends will be no-ops")
	}
	pushDispatcher := push.NewDispatcher(webPush, registry, cfg.Push, log)

	// --- Preferences, in-app feed, facade, and the event intake ---
	prefStore := prefs.NewCachedStore(
		prefs.NewStore(pg.GetDB(), log),
		rdb,
		time.Duration(cfg.Prefs.CacheTTLSeconds)*time.Second,
		log,
	)
	feed := inapp.NewStore(pg.GetDB(), log)
	notifier := notify.NewNotifier(prefStore, feed, queue, pushDispatcher, log)

	consumer := intake.NewConsumer(rdb.Client, notifier, log)
	consumer.Start(ctx)

	// --- Metrics endpoint ---
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			zapLog.Info("metrics endpoint listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				zapLog.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	zapLog.Info("shutting down")

	consumer.Stop()
	if processor != nil {
		processor.Stop()
	}
}
