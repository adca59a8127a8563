package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro de pagos.
const (
	PagoTipoPago      = "pago"
	PagoTipoReembolso = "reembolso"
	PagoTipoPenalidad = "penalidad"
)

// Pago is an entry in the per-factura payment ledger.
// Tipo: "pago" | "reembolso" | "penalidad"
// Entries are NEVER modified — corrections create inverse entries; only a
// supervisor/administrador may delete one, and that is audited.
type Pago struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FacturaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Monto     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tipo      string          `gorm:"type:varchar(20);not null"`
	// Metodo: "efectivo" | "transferencia" | "tarjeta"
	Metodo string `gorm:"type:varchar(20);not null"`
	// FechaPago is a calendar date; for entries materialized from the legacy
	// seña it is backdated to the fecha de la factura.
	FechaPago time.Time `gorm:"type:date;not null"`
	// MigradoDeSena marks the single entry per factura that materializes the
	// legacy seña field. At most one such entry may exist per factura.
	MigradoDeSena bool `gorm:"not null;default:false"`
	Notas         *string
	CreadoPor     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time
}
