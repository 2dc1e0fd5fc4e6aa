package infra

import (
	"errors"
	"fmt"
	"time"

	"oficinapro/internal/model"
	"oficinapro/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormConfig is shared by every dialector: silent SQL logging, driver errors
// translated to gorm.ErrDuplicatedKey and friends, timestamps in UTC.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// NewDatabase opens a GORM connection backed by pgx. The schema is owned by
// the SQL migrations in migrations/; nothing is auto-migrated here.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// RunMigrations applies every pending up migration embedded in migrations/.
// ErrNoChange is not an error.
func RunMigrations(databaseURL string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("database migrations applied")
	return nil
}

// AutoMigrate builds the schema from the GORM models and then applies the
// partial unique indexes GORM cannot express. It is used for SQLite-backed
// tests and local throwaway databases; the statements are valid on both
// SQLite and PostgreSQL.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Caixa{},
		&model.TurnoCaixa{},
		&model.MovimentacaoCaixa{},
		&model.Venda{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot handle.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_turnos_caixa_um_aberto
		    ON turnos_caixa (empresa_id, caixa_id)
		    WHERE status = 'aberto'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_movimentacoes_caixa_venda
		    ON movimentacoes_caixa (empresa_id, venda_id)
		    WHERE venda_id IS NOT NULL`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
