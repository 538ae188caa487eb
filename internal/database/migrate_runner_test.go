package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var migratorDBSeq atomic.Int64

func migratorDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:migrator_%d?mode=memory&cache=shared", migratorDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func sampleMigrations() []Migration {
	return []Migration{
		{Version: 2, Name: "tags", UpScript: "CREATE TABLE tags (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE tags"},
		{Version: 1, Name: "albums", UpScript: "CREATE TABLE albums (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE albums"},
	}
}

func TestMigrator_UpIsIdempotent(t *testing.T) {
	db := migratorDB(t)
	ctx := context.Background()
	m := NewMigrator(db, sampleMigrations())

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, db.Migrator().HasTable("albums"))
	assert.True(t, db.Migrator().HasTable("tags"))

	n, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	applied, pending, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
	assert.Empty(t, pending)

	var rows []SchemaMigration
	require.NoError(t, db.Order("version").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "albums", rows[0].Name)
	assert.Len(t, rows[0].Checksum, 64)
}

func TestMigrator_StatusBeforeLedgerExists(t *testing.T) {
	m := NewMigrator(migratorDB(t), sampleMigrations())

	applied, pending, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].Version)
}

func TestMigrator_FailedScriptLeavesNoLedgerRow(t *testing.T) {
	db := migratorDB(t)
	ctx := context.Background()
	broken := append(sampleMigrations(), Migration{Version: 3, Name: "broken", UpScript: "CREATE TABLE", DownScript: "SELECT 1"})

	n, err := NewMigrator(db, broken).Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000003_broken")
	assert.Equal(t, 2, n)

	var count int64
	require.NoError(t, db.Model(&SchemaMigration{}).Where("version = ?", 3).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMigrator_RejectsUnknownAndEditedVersions(t *testing.T) {
	db := migratorDB(t)
	ctx := context.Background()
	_, err := NewMigrator(db, sampleMigrations()).Up(ctx)
	require.NoError(t, err)

	_, _, err = NewMigrator(db, sampleMigrations()[1:]).Status(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002_tags")

	edited := sampleMigrations()
	edited[1].UpScript = "CREATE TABLE albums (id INTEGER PRIMARY KEY, title TEXT)"
	_, err = NewMigrator(db, edited).Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edited after release")
}

func TestMigrator_DownRevertsNewestOnly(t *testing.T) {
	db := migratorDB(t)
	ctx := context.Background()
	m := NewMigrator(db, sampleMigrations())

	_, err := m.Down(ctx, 0)
	assert.Error(t, err, "nothing applied yet")

	_, err = m.Up(ctx)
	require.NoError(t, err)

	_, err = m.Down(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not the latest")

	reverted, err := m.Down(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, reverted.Version)
	assert.False(t, db.Migrator().HasTable("tags"))

	applied, pending, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
	require.Len(t, pending, 1)
	assert.Equal(t, "tags", pending[0].Name)
}
