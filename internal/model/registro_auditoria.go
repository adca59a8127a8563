package model

import (
	"time"

	"github.com/google/uuid"
)

// RegistroAuditoria is one structured audit event. Rows are written
// asynchronously by the audit worker (best-effort sink) and never mutated.
type RegistroAuditoria struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// Accion: "cambio_estado" | "entrega" | "devolucion" | "cierre" |
	// "anulacion" | "pago_registrado" | "pago_eliminado" | "sena_migrada"
	Accion      string     `gorm:"type:varchar(40);not null;index"`
	ActorID     *uuid.UUID `gorm:"type:uuid;index"`
	EntidadTipo string     `gorm:"type:varchar(30);not null"`
	EntidadID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Descripcion string     `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName overrides GORM's default pluralization.
func (RegistroAuditoria) TableName() string { return "registros_auditoria" }
