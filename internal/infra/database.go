package infra

import (
	"fmt"

	"vestipos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express (sequences, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
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

// RunMigrations applies the full schema: AutoMigrate plus SQL patches.
// Called from NewDatabase; idempotent, so re-running against an existing
// schema is safe.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Cliente{},
		&model.Producto{},
		&model.Factura{},
		&model.FacturaItem{},
		&model.Pago{},
		&model.HistorialEstado{},
		&model.RegistroAuditoria{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Atomic invoice numbering (see FacturaRepository.NextNumero).
		{"facturas numero sequence",
			`CREATE SEQUENCE IF NOT EXISTS facturas_numero_seq START 1`},
		// Partial index backing the booking-conflict query: only active rentals
		// with a booking interval participate in overlap checks.
		{"partial index on active rentals", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_facturas_reserva_activa') THEN
    CREATE INDEX idx_facturas_reserva_activa
        ON facturas (fecha_retiro, fecha_devolucion)
        WHERE estado IN ('reservada', 'entregada')
          AND tipo_operacion IN ('alquiler', 'confeccion_alquiler')
          AND deleted_at IS NULL;
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
