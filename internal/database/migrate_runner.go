package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"snapverse/internal/middleware"

	"gorm.io/gorm"
)

// SchemaMigration is one row of the applied-migrations ledger.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null;default:''"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// Checksum fingerprints the up script so edits to shipped migrations are caught.
func (m *Migration) Checksum() string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(m.UpScript)))
	return hex.EncodeToString(sum[:])
}

// Migrator applies a fixed set of migrations against one database.
type Migrator struct {
	db         *gorm.DB
	registered []Migration
}

// NewMigrator sorts registered by version; the slice is copied.
func NewMigrator(db *gorm.DB, registered []Migration) *Migrator {
	sorted := append([]Migration(nil), registered...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Migrator{db: db, registered: sorted}
}

// migrationPlan is the diff between the ledger and the registered set.
type migrationPlan struct {
	applied []SchemaMigration
	pending []Migration
}

func (p *migrationPlan) appliedVersions() []int {
	out := make([]int, 0, len(p.applied))
	for _, row := range p.applied {
		out = append(out, row.Version)
	}
	return out
}

func (m *Migrator) ensureLedger(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) ledger(ctx context.Context) ([]SchemaMigration, error) {
	if !m.db.WithContext(ctx).Migrator().HasTable(&SchemaMigration{}) {
		return nil, nil
	}
	var rows []SchemaMigration
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return rows, nil
}

// plan fails when the ledger names a version this build does not ship or
// when a shipped script no longer matches the checksum it was applied with.
func (m *Migrator) plan(ctx context.Context) (*migrationPlan, error) {
	rows, err := m.ledger(ctx)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]*Migration, len(m.registered))
	for i := range m.registered {
		byVersion[m.registered[i].Version] = &m.registered[i]
	}

	var unknown, drifted []string
	done := make(map[int]bool, len(rows))
	for _, row := range rows {
		done[row.Version] = true
		mig, ok := byVersion[row.Version]
		switch {
		case !ok:
			unknown = append(unknown, fmt.Sprintf("%06d_%s", row.Version, row.Name))
		case row.Checksum != "" && row.Checksum != mig.Checksum():
			drifted = append(drifted, mig.String())
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("schema_migrations lists versions this build does not ship: %s", strings.Join(unknown, ", "))
	}
	if len(drifted) > 0 {
		return nil, fmt.Errorf("applied migrations were edited after release: %s", strings.Join(drifted, ", "))
	}

	p := &migrationPlan{applied: rows}
	for _, mig := range m.registered {
		if !done[mig.Version] {
			p.pending = append(p.pending, mig)
		}
	}
	return p, nil
}

// Up applies every pending migration in version order. Each script and its
// ledger row commit together.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureLedger(ctx); err != nil {
		return 0, err
	}
	p, err := m.plan(ctx)
	if err != nil {
		return 0, err
	}

	latest := 0
	if n := len(p.applied); n > 0 {
		latest = p.applied[n-1].Version
	}
	for i, mig := range p.pending {
		if mig.Version < latest {
			middleware.Logger.Warn("applying migration out of order",
				slog.String("migration", mig.String()), slog.Int("latest_applied", latest))
		}
		start := time.Now()
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{
				Version:  mig.Version,
				Name:     mig.Name,
				Checksum: mig.Checksum(),
			}).Error
		})
		if err != nil {
			return i, fmt.Errorf("migration %s: %w", mig.String(), err)
		}
		middleware.Logger.Info("migration applied",
			slog.String("migration", mig.String()), slog.Duration("took", time.Since(start)))
	}
	return len(p.pending), nil
}

// Down reverts the most recently applied migration, or version when it is
// non-zero. Only the newest version may be reverted.
func (m *Migrator) Down(ctx context.Context, version int) (*Migration, error) {
	p, err := m.plan(ctx)
	if err != nil {
		return nil, err
	}
	if len(p.applied) == 0 {
		return nil, fmt.Errorf("no migrations have been applied")
	}

	latest := p.applied[len(p.applied)-1].Version
	if version == 0 {
		version = latest
	}
	if version != latest {
		return nil, fmt.Errorf("migration %06d is not the latest applied (%06d)", version, latest)
	}

	var target *Migration
	for i := range m.registered {
		if m.registered[i].Version == version {
			target = &m.registered[i]
		}
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.DownScript).Error; err != nil {
			return err
		}
		return tx.Delete(&SchemaMigration{}, "version = ?", version).Error
	})
	if err != nil {
		return nil, fmt.Errorf("revert %s: %w", target.String(), err)
	}
	middleware.Logger.Info("migration reverted", slog.String("migration", target.String()))
	return target, nil
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	n, err := NewMigrator(db, GetMigrations()).Up(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		middleware.Logger.Debug("schema is up to date")
	}
	return nil
}

// RollbackMigration reverts the latest embedded migration; see Migrator.Down.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) (*Migration, error) {
	return NewMigrator(db, GetMigrations()).Down(ctx, version)
}

// Status reports applied versions and pending migrations without writing.
func (m *Migrator) Status(ctx context.Context) ([]int, []Migration, error) {
	p, err := m.plan(ctx)
	if err != nil {
		return nil, nil, err
	}
	return p.appliedVersions(), p.pending, nil
}
