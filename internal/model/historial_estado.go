package model

import (
	"time"

	"github.com/google/uuid"
)

// HistorialEstado registra cada transición de estado de una factura.
// Los registros son inmutables — nunca se eliminan ni modifican. Se crea
// exactamente uno por transición exitosa, dentro de la misma transacción.
type HistorialEstado struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FacturaID uuid.UUID `gorm:"type:uuid;not null;index"`

	EstadoAnterior     string `gorm:"type:varchar(20);not null"`
	EstadoNuevo        string `gorm:"type:varchar(20);not null"`
	EstadoPagoAnterior string `gorm:"type:varchar(20);not null"`
	EstadoPagoNuevo    string `gorm:"type:varchar(20);not null"`

	ActorID uuid.UUID `gorm:"type:uuid;not null"`
	Notas   *string

	CreatedAt time.Time
}

// TableName overrides GORM's default pluralization.
func (HistorialEstado) TableName() string { return "historial_estados" }
