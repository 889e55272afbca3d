package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/internal/config"
	pgInfra "github.com/fastygo/greenbite/internal/infrastructure/postgres"
	"github.com/fastygo/greenbite/pkg/logger"
	"github.com/fastygo/greenbite/repository/postgres"
)

// create-admin seeds an administrator: a sign-in identity plus admins/{id}.
// Admins cannot sign up through the API.
func main() {
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	name := flag.String("name", "Administrator", "display name")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.UsesMemoryStore() {
		log.Fatal("create-admin needs STORE_DRIVER=postgres")
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.Logger.Level, Encoding: "console"})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}
	pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()

	normalized := domain.NormalizeEmail(*email)
	if normalized == "" || len(*password) < 8 {
		zapLogger.Fatal("an email and a password of at least 8 characters are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		zapLogger.Fatal("hash password", zap.Error(err))
	}

	identities := postgres.NewIdentityRepository(pool)
	cred := &domain.Credentials{
		ID:           uuid.NewString(),
		Email:        normalized,
		DisplayName:  *name,
		PasswordHash: string(hash),
	}
	if err := identities.Create(ctx, cred); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			zapLogger.Fatal("an identity with this email already exists", zap.String("email", normalized))
		}
		zapLogger.Fatal("create identity", zap.Error(err))
	}

	dir := postgres.NewDocumentRepository(pool)
	if err := dir.Set(ctx, domain.AdminPath(cred.ID), domain.AdminProfile{
		ID:        cred.ID,
		Name:      *name,
		Email:     normalized,
		Role:      domain.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		zapLogger.Fatal("create admin profile", zap.String("identity_id", cred.ID), zap.Error(err))
	}

	fmt.Printf("admin created\n  id:    %s\n  email: %s\n", cred.ID, normalized)
}
