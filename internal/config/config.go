package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"twopc_backend/internal/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// CommissionBase selects which purchase amount commissions are computed on
type CommissionBase string

const (
	BaseTokens CommissionBase = "tokens"
	BasePaid   CommissionBase = "paid"
)

type Config struct {
	AppPort       string
	Storage       string // "postgres" or "memory"
	DatabaseURL   string
	JWTSecret     string
	JWTTTL        time.Duration
	AllowedOrigin string
	AdminWallets  []string // bootstrap admins, lowercased

	LogLevel string
	LogJSON  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIRateLimit  int
	APIRateWindow time.Duration

	// Ledger
	PurchaseLevelPercents []decimal.Decimal
	StakeLevelPercents    []decimal.Decimal
	CommissionBase        CommissionBase
	LedgerDecimals        int32
	TreeMaxDepth          int
	RequireReferrer       bool
	RequireLoginSignature bool

	// Chain
	ChainRPCURL         string
	ChainTimeout        time.Duration
	TokenAddress        string
	TokenDecimals       int32
	BalanceCheckEnabled bool
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	storage := os.Getenv("STORAGE")
	if storage == "" {
		storage = "postgres"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" && storage == "postgres" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "5000"
	}

	// admin wallets !! ЧЕРЕЗ ЗАПЯТУЮ В ENV !!
	var admins []string
	for _, a := range strings.Split(os.Getenv("ADMIN_WALLETS"), ",") {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			admins = append(admins, a)
		}
	}

	purchasePercents, err := ParsePercents(envOr("PURCHASE_LEVEL_PERCENTS", "5,3,1"))
	if err != nil {
		logger.Fatal("invalid PURCHASE_LEVEL_PERCENTS", "error", err)
	}
	stakePercents, err := ParsePercents(os.Getenv("STAKE_LEVEL_PERCENTS"))
	if err != nil {
		logger.Fatal("invalid STAKE_LEVEL_PERCENTS", "error", err)
	}

	base := CommissionBase(strings.ToLower(envOr("COMMISSION_BASE", string(BaseTokens))))
	if base != BaseTokens && base != BasePaid {
		logger.Fatal("COMMISSION_BASE must be tokens or paid", "value", base)
	}

	return &Config{
		AppPort:       port,
		Storage:       storage,
		DatabaseURL:   dbURL,
		JWTSecret:     jwtSecret,
		JWTTTL:        time.Duration(envInt("JWT_TTL_HOURS", 24)) * time.Hour,
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),
		AdminWallets:  admins,

		LogLevel: envOr("LOG_LEVEL", "info"),
		LogJSON:  os.Getenv("LOG_JSON") == "true",

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		APIRateLimit:  envInt("API_RATE_LIMIT", 60),
		APIRateWindow: time.Duration(envInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,

		PurchaseLevelPercents: purchasePercents,
		StakeLevelPercents:    stakePercents,
		CommissionBase:        base,
		LedgerDecimals:        int32(envInt("LEDGER_DECIMALS", 18)),
		TreeMaxDepth:          envInt("TREE_MAX_DEPTH", 10),
		RequireReferrer:       os.Getenv("REQUIRE_REFERRER") != "false",
		RequireLoginSignature: os.Getenv("LOGIN_SIGNATURE_REQUIRED") == "true",

		ChainRPCURL:         os.Getenv("CHAIN_RPC_URL"),
		ChainTimeout:        time.Duration(envInt("CHAIN_TIMEOUT_SECONDS", 10)) * time.Second,
		TokenAddress:        os.Getenv("TOKEN_ADDRESS"),
		TokenDecimals:       int32(envInt("TOKEN_DECIMALS", 18)),
		BalanceCheckEnabled: os.Getenv("BALANCE_CHECK_ENABLED") == "true",
	}
}

// ParsePercents parses a comma separated list of level percents such as
// "5,3,1" or "2.5, 1". An empty string yields no levels.
func ParsePercents(s string) ([]decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []decimal.Decimal
	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "%"))
		d, err := decimal.NewFromString(part)
		if err != nil {
			return nil, fmt.Errorf("level %d: %q is not a number", i+1, part)
		}
		if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("level %d: %s out of range 0..100", i+1, d)
		}
		out = append(out, d)
	}
	return out, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
