package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"twopc_backend/internal/db"
	"twopc_backend/internal/repository"
	"twopc_backend/internal/service"
)

// Seeds an admin wallet and prints a session token for it.
func main() {
	wallet := flag.String("wallet", "0x00000000000000000000000000000000000000ad", "admin wallet address")
	name := flag.String("name", "admin", "display name")
	flag.Parse()

	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	ctx := context.Background()
	wallets := repository.NewWalletRepository(pool)
	tokens := service.NewJWTManager(secret, 24*time.Hour)
	referrals := service.NewReferralService(wallets, nil, tokens, service.ReferralConfig{
		RequireReferrer: true,
		AdminWallets:    []string{*wallet},
	})

	w, err := referrals.Register(ctx, service.RegisterInput{Wallet: *wallet, Name: *name})
	if err != nil {
		log.Fatalf("register admin: %v", err)
	}
	log.Printf("wallet=%s role=%s created_at=%v\n", w.Address, w.Role, w.CreatedAt)

	info, err := referrals.Login(ctx, service.LoginInput{Wallet: w.Address})
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	log.Printf("token=%s\n", info.Token)
}
