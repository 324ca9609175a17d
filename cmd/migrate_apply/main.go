package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"twopc_backend/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	apply := flag.Bool("apply", false, "apply migrations")
	flag.Parse()

	if !*apply {
		names, err := migrations.Names()
		if err != nil {
			log.Fatal(err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	version, err := migrations.Apply(context.Background(), db)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	fmt.Printf("schema at version %d\n", version)
}
