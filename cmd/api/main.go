package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/chainspend/internal/api"
	"github.com/baharkarakas/chainspend/internal/config"
	"github.com/baharkarakas/chainspend/internal/delivery"
	"github.com/baharkarakas/chainspend/internal/explorer"
	"github.com/baharkarakas/chainspend/internal/logger"
	"github.com/baharkarakas/chainspend/internal/metrics"
	"github.com/baharkarakas/chainspend/internal/normalize"
	"github.com/baharkarakas/chainspend/internal/scheduler"
	"github.com/baharkarakas/chainspend/internal/services"
	"github.com/baharkarakas/chainspend/internal/store"
	"github.com/baharkarakas/chainspend/internal/synclock"
	"github.com/baharkarakas/chainspend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Error("open store", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}

	wp := worker.NewPool(cfg.Workers)

	notifySvc := services.NewNotificationService(st.Notifications, st.Budgets, deliverers(cfg, log), wp, log)
	budgetSvc := services.NewBudgetService(st.Budgets, st.Transactions, notifySvc, log)
	txnSvc := services.NewTransactionService(st.Transactions, budgetSvc, log)
	lock, closeLock := syncLocker(ctx, cfg, log)
	syncSvc := services.NewSyncService(st.Transactions, normalize.New(nil, log), budgetSvc, lock, log)

	// Explorer stays a nil interface when unconfigured so the API answers 503.
	var fetcher services.Fetcher
	if cfg.EtherscanAPIKey != "" {
		c, err := explorer.New(cfg.EtherscanAPIKey, cfg.EtherscanNetwork, cfg.EtherscanBaseURL, cfg.SyncBatchSize)
		if err != nil {
			log.Error("explorer", "err", err)
			os.Exit(1)
		}
		fetcher = c
		log.Info("explorer enabled", "network", cfg.EtherscanNetwork)
	}

	var sched *scheduler.Scheduler
	if cfg.SyncSchedule != "" && fetcher != nil && cfg.WalletAddress != "" {
		sched, err = scheduler.New(cfg.SyncSchedule, cfg.DefaultUserID, cfg.WalletAddress, fetcher, syncSvc.Sync, log)
		if err != nil {
			log.Error("scheduler", "err", err)
			os.Exit(1)
		}
		sched.Start()
		log.Info("scheduled sync enabled", "schedule", cfg.SyncSchedule, "wallet", cfg.WalletAddress)
	}

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		RateRPS:         cfg.RateRPS,
		DefaultUserID:   cfg.DefaultUserID,
		DefaultAccount:  cfg.WalletAddress,
		SyncSvc:         syncSvc,
		TxnSvc:          txnSvc,
		BudgetSvc:       budgetSvc,
		NotificationSvc: notifySvc,
		Explorer:        fetcher,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	wp.Stop()
	if err := closeLock(); err != nil {
		log.Error("close redis", "err", err)
	}
	if st.Close != nil {
		if err := st.Close(shutdownCtx); err != nil {
			log.Error("close store", "err", err)
		}
	}
	log.Info("bye")
}

// deliverers builds the outbound alert channels that have credentials configured.
func deliverers(cfg config.Config, log *slog.Logger) delivery.Deliverer {
	var out delivery.Multi
	if cfg.NotifyEmail != "" {
		out = append(out, delivery.NewEmail(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.NotifyEmail))
	}
	if cfg.DiscordBotToken != "" && cfg.DiscordChannelID != "" {
		d, err := delivery.NewDiscord(cfg.DiscordBotToken, cfg.DiscordChannelID)
		if err != nil {
			log.Warn("discord disabled", "err", err)
		} else {
			out = append(out, d)
		}
	}
	switch len(out) {
	case 0:
		return delivery.Noop{}
	case 1:
		return out[0]
	}
	return out
}

// syncLocker uses redis when configured so several instances share one lock per user.
func syncLocker(ctx context.Context, cfg config.Config, log *slog.Logger) (synclock.Locker, func() error) {
	noop := func() error { return nil }
	if cfg.RedisAddr == "" {
		return synclock.NewLocal(), noop
	}
	rdb, err := synclock.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		log.Warn("redis unavailable, using in-process sync lock", "addr", cfg.RedisAddr, "err", err)
		return synclock.NewLocal(), noop
	}
	log.Info("redis sync lock enabled", "addr", cfg.RedisAddr)
	return synclock.NewRedis(rdb, time.Minute), rdb.Close
}
