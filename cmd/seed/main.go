package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"botcraft/internal/config"
	"botcraft/internal/domain"
	"botcraft/internal/domain/models"
	"botcraft/internal/plans"
	"botcraft/internal/repository/postgres"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before creating the schema (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up the schema, don't create the test user")
	email := flag.String("email", "test@botcraft.local", "Email of the test user")
	name := flag.String("name", "Test User", "Name of the test user")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed dev session token")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: --drop-tables is not allowed in the prod environment")
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		logger.Info("dropping tables", "prefix", cfg.TablePrefix)
		if err := postgres.DropAll(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	logger.Info("ensuring schema", "prefix", cfg.TablePrefix, "dimensions", cfg.EmbeddingDimensions)
	if err := postgres.Migrate(ctx, pool, tables, cfg.TablePrefix, cfg.EmbeddingDimensions); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	if *schemaOnly {
		logger.Info("schema setup complete (schema-only mode)")
		return
	}

	registry, err := plans.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load plans: %v", err)
	}

	users := postgres.NewUserRepository(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})
	user, err := ensureUser(ctx, users, registry.Default(), *name, *email)
	if err != nil {
		log.Fatalf("Failed to create test user: %v", err)
	}
	logger.Info("test user ready",
		"user_id", user.ID,
		"email", user.Email,
		"plan", user.Plan,
		"requests_left", user.RequestsLeft,
	)

	if cfg.JWTSecret != "" {
		token, err := devToken(cfg.JWTSecret, user, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to sign dev token: %v", err)
		}
		fmt.Printf("\nDev session token (Authorization: Bearer ...):\n%s\n", token)
	}
}

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

func ensureUser(ctx context.Context, users userStore, plan plans.Plan, name, email string) (*models.User, error) {
	user := &models.User{
		Name:         name,
		Email:        email,
		Plan:         plan.ID,
		RequestsLeft: plan.RequestsLimit,
	}
	err := users.Create(ctx, user)
	if errors.Is(err, domain.ErrConflict) {
		return users.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// devToken signs a session the HMAC verifier accepts.
func devToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := models.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: user.Email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
