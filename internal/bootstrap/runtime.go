// Package bootstrap opens the stores shared by the server and the operator
// commands and prepares development data.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"snapverse/internal/cache"
	"snapverse/internal/config"
	"snapverse/internal/database"
	"snapverse/internal/middleware"
	"snapverse/internal/models"
	"snapverse/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultRootUsername = "snapverse_root"
	defaultRootEmail    = "root@snapverse.local"
)

// Options control runtime initialization behavior.
type Options struct {
	// ScenarioPath, when set, loads a seed scenario into an empty database.
	ScenarioPath string
}

// InitRuntime connects to the database and Redis. The Redis client is nil
// when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	cache.InitRedis(cfg.RedisURL)

	if err := ensureDevRoot(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("development root: %w", err)
	}
	if opts.ScenarioPath != "" {
		if err := loadScenario(db, opts.ScenarioPath); err != nil {
			return nil, nil, fmt.Errorf("scenario %s: %w", opts.ScenarioPath, err)
		}
	}
	return db, cache.GetClient(), nil
}

// loadScenario is a no-op once any account exists.
func loadScenario(db *gorm.DB, path string) error {
	log := middleware.Logger.With(slog.String("scenario", path))

	var existing int64
	if err := db.Model(&models.User{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		log.Info("scenario skipped; database is not empty", slog.Int64("users", existing))
		return nil
	}

	s, err := seed.LoadScenario(path)
	if err != nil {
		return err
	}
	users, err := s.Apply(db, seed.Options{})
	if err != nil {
		return err
	}
	log.Info("scenario loaded", slog.Int("users", len(users)))
	return nil
}

// ensureDevRoot makes user 1 a superuser in development when
// DEV_BOOTSTRAP_ROOT is set, creating the account if the table is empty.
func ensureDevRoot(cfg *config.Config, db *gorm.DB) error {
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}
	if cfg.DevRootPassword == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	root := models.User{
		Username: orDefault(cfg.DevRootUsername, defaultRootUsername),
		Email:    strings.ToLower(orDefault(cfg.DevRootEmail, defaultRootEmail)),
		Password: string(hash),
		IsActive: true,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where(models.User{ID: 1}).
			Attrs(root).
			Assign(map[string]any{"is_staff": true, "is_superuser": true}).
			FirstOrCreate(&root).Error
		if err != nil {
			return err
		}
		if tx.Dialector.Name() != "postgres" {
			return nil
		}
		// Inserting an explicit ID leaves the serial sequence behind.
		return tx.Exec(`SELECT setval(pg_get_serial_sequence('users', 'id'), GREATEST((SELECT MAX(id) FROM users), 1))`).Error
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root ready", slog.Uint64("user_id", uint64(root.ID)), slog.String("username", root.Username))
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
