package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"snapverse/internal/config"
	"snapverse/internal/middleware"
	"snapverse/internal/models"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// PersistentModels lists the AutoMigrate-managed models. A model follows
// every table it references.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.Comment{},
		&models.Reaction{},
	}
}

// SchemaStatus summarizes what ApplySchema would do and what is pending.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// schemaSteps is the resolved policy for one config.
type schemaSteps struct {
	mode        string
	sql         bool
	auto        bool
	destructive bool
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// resolveSchemaSteps maps the mode and environment onto the steps to run.
// The SQL migrations target PostgreSQL, so sqlite is always auto-migrated.
// Hybrid skips AutoMigrate in production-like envs; auto needs an explicit
// opt-in there.
func resolveSchemaSteps(cfg *config.Config) (schemaSteps, error) {
	s := schemaSteps{mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))}
	if s.mode == "" {
		s.mode = SchemaModeHybrid
	}

	if isSQLite(cfg) {
		if s.mode == SchemaModeSQL {
			return s, fmt.Errorf("DB_SCHEMA_MODE=sql requires DB_DRIVER=postgres")
		}
		s.auto = true
		return s, nil
	}

	prodLike := isProdLikeEnv(cfg.Env)
	switch s.mode {
	case SchemaModeSQL:
		s.sql = true
	case SchemaModeHybrid:
		s.sql, s.auto = true, !prodLike
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return s, fmt.Errorf("DB_SCHEMA_MODE=auto in %q needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		s.auto = true
		s.destructive = prodLike
	default:
		return s, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", s.mode)
	}
	return s, nil
}

// ApplySchema runs SQL migrations and/or AutoMigrate according to the schema mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	steps, err := resolveSchemaSteps(cfg)
	if err != nil {
		return err
	}

	if steps.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if !steps.auto {
		return nil
	}

	log := middleware.Logger.With(slog.String("mode", steps.mode), slog.String("env", cfg.Env))
	if steps.destructive {
		log.Warn("AutoMigrate enabled in a production-like environment")
	}
	log.Info("running AutoMigrate", slog.Int("models", len(PersistentModels())))
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema policy and, when SQL migrations are in
// play, the applied and pending versions.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	steps, err := resolveSchemaSteps(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               steps.mode,
		Environment:        cfg.Env,
		WillRunSQL:         steps.sql,
		WillRunAutoMigrate: steps.auto,
	}
	if steps.sql {
		status.AppliedVersions, status.PendingMigrations, err = NewMigrator(db, GetMigrations()).Status(ctx)
		if err != nil {
			return nil, err
		}
	}
	return status, nil
}
