package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/arw/arw-api/infrastructure/adapter/postgres"
)

func main() {
	mode := flag.String("mode", "up", "migration command: up, down, status, version or reset")
	flag.Parse()

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, dsn, postgres.DefaultPoolConfig)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db, *mode); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("migration %s completed", *mode)
}
