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

	"dialer-platform/internal/audit"
	"dialer-platform/internal/auth"
	"dialer-platform/internal/billing"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
	"dialer-platform/internal/config"
	"dialer-platform/internal/httpapi"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/ledger"
	"dialer-platform/internal/payments"
	"dialer-platform/internal/pricing"
	"dialer-platform/internal/reporting"
	"dialer-platform/pkg/logger"
	"dialer-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Service graph
	ledgerStore := ledger.NewPostgresStore(db)
	ledgerSvc := ledger.NewService(ledgerStore)

	campStore := campaign.NewPostgresStore(db)
	campaignSvc := campaign.NewLifecycle(campStore, ledgerSvc).
		WithDefaultMaxAttempts(cfg.Billing.DefaultMaxAttempts)

	leadStore := leads.NewPostgresStore(db)
	leadSvc := leads.NewWorkflow(leadStore, campStore)

	callStore := calls.NewPostgresStore(db)

	billingSvc := billing.NewService(ledgerSvc, campStore, leadStore, billing.NewPostgresBackend(db))
	if cfg.Billing.MaxConcurrentCalls > 0 {
		billingSvc.WithLimiter(billing.NewRedisLimiter(rdb, cfg.Billing.MaxConcurrentCalls, cfg.Billing.CallCapTTL))
	}

	reportSvc := reporting.NewService(reporting.NewPostgresRepo(db), reporting.NewRedisCache(rdb)).
		WithTTL(cfg.Report.CacheTTL)

	h := httpapi.Handlers{
		Auth:      authManager,
		Ledger:    ledgerSvc,
		Campaigns: campaignSvc,
		CampStore: campStore,
		Leads:     leadSvc,
		LeadStore: leadStore,
		Calls:     callStore,
		Billing:   billingSvc,
		Payments:  payments.NewService(ledgerSvc),
		Reports:   reportSvc,
		Rates:     pricing.NewService(pricing.NewPostgresRepo(db)),
		Audit:     audit.NewService(audit.NewPostgresRepo(db)),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
