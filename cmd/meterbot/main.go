package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/rentalops/meterbot/pkg/bot"
	"github.com/rentalops/meterbot/pkg/bot/state"
	"github.com/rentalops/meterbot/pkg/config"
	"github.com/rentalops/meterbot/pkg/observability"
	"github.com/rentalops/meterbot/pkg/reminder"
	"github.com/rentalops/meterbot/pkg/storage/receipts"
	"github.com/rentalops/meterbot/pkg/storage/sheets"
)

var remindNow = flag.Bool("remind-now", false, "Send due reading and payment reminders once and exit (for testing)")

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize opentelemetry")
	}

	repo, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		CredentialsJSON: cfg.Sheets.CredentialsJSON,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize sheets repository")
	}

	receiptStore, err := receipts.New(ctx, cfg.Receipts)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize receipt store")
	}

	checks := map[string]observability.Checker{
		"sheets":   repo,
		"receipts": receiptStore,
	}

	var sessions state.Store
	if cfg.State.RedisURL != "" {
		redisStore, err := state.NewRedisStore(cfg.State.RedisURL, cfg.State.TTL)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize redis session store")
		}
		sessions = redisStore
		checks["redis"] = redisStore
		log.Info("using redis session store")
	} else {
		sessions = state.NewMemoryStore()
		log.Info("using in-memory session store, conversations will not survive a restart")
	}

	gateway, err := bot.NewTelegramGateway(cfg.Telegram.Token, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize telegram gateway")
	}

	sender := reminder.NewSender(repo, gateway, metrics, log)

	if *remindNow {
		readingsSent, readingsFailed := sender.SendReadingReminders(ctx)
		paymentSent, paymentFailed := sender.SendPaymentReminders(ctx)
		log.WithFields(map[string]interface{}{
			"readings_sent":   readingsSent,
			"readings_failed": readingsFailed,
			"payment_sent":    paymentSent,
			"payment_failed":  paymentFailed,
		}).Info("one-shot reminder run complete")
		return
	}

	controller := bot.NewController(
		repo, receiptStore, sessions, gateway, sender, metrics, log, cfg.Telegram.OwnerID)

	scheduler := cron.New()
	_, err = scheduler.AddFunc(fmt.Sprintf("0 %d * * *", cfg.Reminders.Hour), func() {
		sender.RunDaily(context.Background())
	})
	if err != nil {
		log.WithError(err).Fatal("failed to schedule daily reminders")
	}
	scheduler.Start()
	log.WithField("hour", cfg.Reminders.Hour).Info("daily reminder schedule registered")

	checker := observability.NewHealthChecker(checks)
	healthServer := observability.NewHealthServer(":"+cfg.Observability.HealthPort, checker, registry)
	go func() {
		log.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("health server failed")
		}
	}()

	shutdown := observability.NewShutdownManager(log, healthServer, 30*time.Second)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		cancel()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(stopCtx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-stopCtx.Done():
			return stopCtx.Err()
		}
	})
	shutdown.RegisterShutdownFunc(func(stopCtx context.Context) error {
		return observability.ShutdownOTel(stopCtx, otelProviders, log)
	})

	go func() {
		if err := gateway.Run(ctx, controller.HandleUpdate); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("update loop exited")
		}
	}()

	log.Info("meterbot started")
	if err := shutdown.WaitForShutdown(); err != nil {
		log.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
}
