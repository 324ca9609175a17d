package http

import (
	"time"

	"twopc_backend/internal/http/handlers"
	"twopc_backend/internal/http/middleware"
	"twopc_backend/internal/service"
	"twopc_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

// RouteConfig holds what the router needs besides the handlers
type RouteConfig struct {
	Tokens        *service.JWTManager
	Hub           *ws.Hub
	Redis         *redis.Client // nil: in-memory rate limiting
	AllowedOrigin string
	RateLimit     int
	RateWindow    time.Duration
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, cfg RouteConfig) {
	r.Use(middleware.RequestLogger(), middleware.Metrics(), middleware.CORS(cfg.AllowedOrigin))

	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Earnings feed
	r.GET("/ws/earnings", ws.HandleWS(cfg.Hub, cfg.AllowedOrigin))

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 60
	}
	window := cfg.RateWindow
	if window <= 0 {
		window = time.Minute
	}
	api := r.Group("")
	api.Use(middleware.RateLimit(cfg.Redis, limit, window))

	auth := middleware.JWT(cfg.Tokens)
	admin := middleware.RequireAdmin()

	user := api.Group("/user")
	{
		user.POST("/register", h.Register)
		user.POST("/wallet-login", h.Login)
		user.GET("", auth, admin, h.ListUsers)
		user.GET("/referral-tree", h.ReferralTree)
		user.GET("/referral-earnings", h.ReferralEarnings)
		user.GET("/referral-summary/:wallet", h.ReferralSummary)
	}

	ico := api.Group("/ico")
	{
		ico.POST("/create", auth, admin, h.CreateStage)
		ico.GET("/all", h.AllStages)
		ico.GET("/active", h.ActiveStages)
		ico.POST("/purchase-complete", h.PurchaseComplete)
	}

	tx := api.Group("/transaction")
	{
		tx.GET("/all", h.AllPurchases)
		tx.GET("/transactions", h.WalletTransactions)
	}

	staking := api.Group("/staking")
	{
		staking.GET("/plans", h.Plans)
		staking.POST("/plan/create", auth, admin, h.CreatePlan)
		staking.PATCH("/plan/:id/active", auth, admin, h.SetPlanActive)
		staking.POST("/stake", h.Stake)
		staking.POST("/withdraw", h.Withdraw)
		staking.POST("/emergency-withdraw", h.EmergencyWithdraw)
		staking.GET("/user-stakes", h.UserStakes)
		staking.GET("/rewards", h.Rewards)
		staking.POST("/TokenSend", auth, admin, h.TokenSend)
		staking.GET("/userlist", auth, admin, h.TokenSends)
	}

	adm := api.Group("/admin", auth, admin)
	{
		adm.GET("/stats", h.Stats)
		adm.GET("/audit", h.Audit)
	}
}
