package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"twopc_backend/internal/chain"
	"twopc_backend/internal/config"
	"twopc_backend/internal/db"
	httpServer "twopc_backend/internal/http"
	"twopc_backend/internal/http/handlers"
	"twopc_backend/internal/logger"
	"twopc_backend/internal/repository"
	"twopc_backend/internal/repository/memstore"
	"twopc_backend/internal/service"
	"twopc_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

var version = "dev"

// stores is the storage backend selected by STORAGE
type stores struct {
	wallets     service.WalletStore
	commissions service.CommissionStore
	purchases   service.PurchaseStore
	plans       service.PlanStore
	stakes      service.StakeStore
	stages      service.StageStore
	transfers   service.TransferStore
	audit       service.AuditStore
	stats       service.StatsStore
}

func postgresStores(pool *pgxpool.Pool) stores {
	staking := repository.NewStakingRepository(pool)
	return stores{
		wallets:     repository.NewWalletRepository(pool),
		commissions: repository.NewCommissionRepository(pool),
		purchases:   repository.NewPurchaseRepository(pool),
		plans:       staking,
		stakes:      staking,
		stages:      repository.NewStageRepository(pool),
		transfers:   repository.NewTransactionRepository(pool),
		audit:       repository.NewAuditRepository(pool),
		stats:       repository.NewStatsRepository(pool),
	}
}

func memoryStores() stores {
	m := memstore.New()
	return stores{
		wallets:     m,
		commissions: m,
		purchases:   m,
		plans:       m,
		stakes:      m,
		stages:      m,
		transfers:   m,
		audit:       m,
		stats:       m,
	}
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Pinger{}

	var st stores
	if cfg.Storage == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		st = memoryStores()
	} else {
		pool := db.Connect(cfg.DatabaseURL)
		defer pool.Close()
		st = postgresStores(pool)
		checks["database"] = handlers.PingFunc(pool.Ping)
	}

	rdb := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	// chain checks are optional; nil interfaces disable them
	var verifier service.TxVerifier
	var balances service.BalanceSource
	if cfg.ChainRPCURL != "" {
		client, err := chain.Dial(ctx, chain.Config{
			RPCURL:        cfg.ChainRPCURL,
			TokenAddress:  cfg.TokenAddress,
			TokenDecimals: cfg.TokenDecimals,
			Timeout:       cfg.ChainTimeout,
		})
		if err != nil {
			logger.Fatal("chain dial failed", "error", err)
		}
		verifier = client
		if cfg.BalanceCheckEnabled && client.HasToken() {
			balances = client
		}
		logger.Info("chain verification enabled", "balance_check", balances != nil)
	}

	hub := ws.NewHub()
	var publisher service.Publisher = ws.NewLocalPublisher(hub)
	if rdb != nil {
		broker := ws.NewRedisBroker(rdb, hub)
		go broker.Run(ctx)
		publisher = broker
	}

	audit := service.NewAuditService(st.audit)
	tokens := service.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	referrals := service.NewReferralService(st.wallets, audit, tokens, service.ReferralConfig{
		RequireReferrer:  cfg.RequireReferrer,
		RequireSignature: cfg.RequireLoginSignature,
		TreeMaxDepth:     cfg.TreeMaxDepth,
		AdminWallets:     cfg.AdminWallets,
	})
	commissions := service.NewCommissionService(st.wallets, st.commissions, publisher, cfg.LedgerDecimals)
	purchases := service.NewPurchaseService(st.purchases, st.stages, commissions, verifier, audit, service.PurchaseConfig{
		LevelPercents: cfg.PurchaseLevelPercents,
		BasePaid:      cfg.CommissionBase == config.BasePaid,
	})
	ico := service.NewIcoService(st.stages, audit)
	staking := service.NewStakingService(st.plans, st.stakes, commissions, verifier, balances, audit, service.StakingConfig{
		LevelPercents: cfg.StakeLevelPercents,
		Places:        cfg.LedgerDecimals,
	})
	admin := service.NewAdminService(st.transfers, st.stats, audit)

	h := handlers.NewHandler(referrals, commissions, purchases, ico, staking, admin)
	health := handlers.NewHealthHandler(version, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	httpServer.RegisterRoutes(r, h, health, httpServer.RouteConfig{
		Tokens:        tokens,
		Hub:           hub,
		Redis:         rdb,
		AllowedOrigin: cfg.AllowedOrigin,
		RateLimit:     cfg.APIRateLimit,
		RateWindow:    cfg.APIRateWindow,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "storage", cfg.Storage, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
