// Command seed creates the bootstrap ADMIN account. Running it again is a
// no-op once the account exists.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/config"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"go.uber.org/zap"
)

const (
	defaultName     = "admin"
	defaultEmail    = "admin@mail.com"
	defaultPassword = "password"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	var repo *db.Repository
	if cfg.DBDriver == "sqlite" {
		repo, err = db.NewSQLiteRepository(cfg.SQLitePath)
	} else {
		repo, err = db.NewRepository(&db.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
	}
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin := &models.User{
		Name:  getenv("SEED_ADMIN_NAME", defaultName),
		Email: getenv("SEED_ADMIN_EMAIL", defaultEmail),
		Role:  models.RoleAdmin,
	}
	created, err := seedAdmin(ctx, repo, auth.NewBcryptHasher(cfg.BcryptCost), admin,
		getenv("SEED_ADMIN_PASSWORD", defaultPassword))
	if err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}
	if created {
		logger.Info("Admin created", zap.String("email", admin.Email), zap.String("user_id", admin.ID.String()))
		return
	}
	logger.Info("Admin already exists", zap.String("email", admin.Email))
}

type store interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user *models.User) error
}

type hasher interface {
	Hash(plaintext string) (string, error)
}

// seedAdmin creates admin unless its email is taken, including by a
// soft-deleted account.
func seedAdmin(ctx context.Context, repo store, h hasher, admin *models.User, password string) (bool, error) {
	exists, err := repo.EmailExists(ctx, admin.Email)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	digest, err := h.Hash(password)
	if err != nil {
		return false, err
	}
	admin.PasswordHash = digest
	if err := repo.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
