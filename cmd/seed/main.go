package main

import (
	"context"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/arw/arw-api/domain/entity"
	"github.com/arw/arw-api/domain/valueobject"
	"github.com/arw/arw-api/infrastructure/adapter/postgres"
)

// seed upserts a directory user so refreshed sessions resolve in local setups.
func main() {
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	assertion := valueobject.NewIdentityAssertion(
		getenvDefault("SEED_USER_EMAIL", "demo@example.com"),
		getenvDefault("SEED_USER_NAME", "Demo User"),
		os.Getenv("SEED_USER_PICTURE"),
	)
	if err := assertion.Validate(); err != nil {
		log.Fatalf("invalid seed user: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, dsn, postgres.DefaultPoolConfig)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()

	user := entity.NewUser(uuid.NewString(), assertion.Email, assertion.Name, assertion.Picture)
	if err := postgres.NewUserRepositoryAdapter(db).Create(ctx, user); err != nil {
		log.Fatalf("failed to upsert user: %v", err)
	}
	log.Printf("Seeded user %s (%s)", user.Email, user.ID)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
