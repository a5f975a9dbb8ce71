package infra

import (
	"fmt"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express (partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations applies the schema: AutoMigrate for tables and columns, then
// SQL patches for what AutoMigrate cannot express. Also used by integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.SesionCaja{},
		&model.MovimientoCaja{},
		&model.ArqueoCaja{},
		&model.Estadia{},
		&model.Tarifa{},
		&model.Cliente{},
		&model.Abono{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that GORM AutoMigrate cannot handle.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// At most one open session per user, enforced at the database so a
		// concurrent double-open cannot slip past the service check.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sesiones_caja_usuario_abierta
		    ON sesiones_caja (usuario_id)
		    WHERE NOT cerrada`,
		// Reminder cron scans only abonos still pending a notification.
		`CREATE INDEX IF NOT EXISTS idx_abonos_recordatorio_pendiente
		    ON abonos (vence_at)
		    WHERE recordatorio_enviado_at IS NULL`,
		// Plate lookups on the gate always target in-progress stays.
		`CREATE INDEX IF NOT EXISTS idx_estadias_patente_en_curso
		    ON estadias (patente)
		    WHERE estado = 'en_curso'`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
