package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estado físico de una prenda del inventario.
const (
	ProductoDisponible = "disponible"
	ProductoAlquilado  = "alquilado"
	ProductoSinStock   = "sin_stock" // en limpieza, dañada o con piezas faltantes
)

// Producto represents a garment in the rental/sale inventory.
// EstaBloqueado=true means the product is committed to an active factura and
// cannot be booked again; Estado tracks where the garment physically is.
// Both fields are mutated only by the lifecycle transitions (entrega,
// devolución, cierre, anulación).
type Producto struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Codigo      string    `gorm:"uniqueIndex;not null"`
	Nombre      string    `gorm:"index;not null"`
	Descripcion *string
	Categoria   string `gorm:"not null"`
	// Talle: "xs" … "xxl" | "a_medida"
	Talle          string          `gorm:"type:varchar(10);not null;default:'a_medida'"`
	PrecioAlquiler decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PrecioVenta    decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Estado        string `gorm:"type:varchar(20);not null;default:'disponible'"`
	EstaBloqueado bool   `gorm:"not null;default:false"`

	Activo    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
