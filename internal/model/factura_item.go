package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de ítem de factura.
const (
	ItemVestido   = "vestido" // prenda confeccionada/alquilada — referencia un Producto
	ItemAccesorio = "accesorio"
)

// Medidas del cliente tomadas en el taller, embebidas en el ítem.
type Medidas struct {
	Busto   *decimal.Decimal `gorm:"type:decimal(5,1)"`
	Cintura *decimal.Decimal `gorm:"type:decimal(5,1)"`
	Cadera  *decimal.Decimal `gorm:"type:decimal(5,1)"`
	Largo   *decimal.Decimal `gorm:"type:decimal(5,1)"`
}

// FacturaItem is one line of a factura. Los accesorios no referencian un
// Producto del inventario (ProductoID nil); los vestidos sí, y mientras la
// factura está activa ese Producto queda bloqueado para nuevas reservas.
type FacturaItem struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FacturaID  uuid.UUID  `gorm:"type:uuid;index;not null"`
	ProductoID *uuid.UUID `gorm:"type:uuid;index"`
	TipoItem   string     `gorm:"type:varchar(20);not null"`

	Descripcion    string          `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Medidas Medidas `gorm:"embedded;embeddedPrefix:medida_"`

	CreatedAt time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}
