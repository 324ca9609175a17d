package db

import (
	"context"
	"time"

	"twopc_backend/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

func Connect(dsn string) *pgxpool.Pool {
	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Fatal("failed to create database pool", "error", err)
	}

	if err := db.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", "error", err)
	}

	logger.Info("database connected")
	return db
}

// ConnectRedis returns nil when addr is empty or Redis does not answer, so
// the server keeps running with in-process rate limiting and feed delivery.
func ConnectRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, continuing without it", "addr", addr, "error", err)
		_ = rdb.Close()
		return nil
	}
	logger.Info("redis connected", "addr", addr)
	return rdb
}
