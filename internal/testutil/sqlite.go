// Package testutil provides an in-process ledger database for tests.
package testutil

import (
	"testing"
	"time"

	"oficinapro/internal/infra"
	"oficinapro/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteDB opens a private in-memory SQLite database with the caixa
// schema applied. A single connection keeps the memory database alive and
// serializes transactions the way row locks do on PostgreSQL.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_busy_timeout=5000"), infra.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, infra.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// FastStoreOptions retries quickly so failure-path tests stay fast.
func FastStoreOptions() repository.StoreOptions {
	return repository.NewStoreOptions(
		infra.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		infra.CircuitBreakerConfig{FailureThreshold: 50, OpenTimeout: time.Second},
	)
}
