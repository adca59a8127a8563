package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Estados del ciclo de vida de una factura.
// "cerrada" y "anulada" son terminales — no admiten más transiciones.
const (
	EstadoBorrador  = "borrador"
	EstadoReservada = "reservada"
	EstadoEntregada = "entregada" // prenda en poder del cliente
	EstadoDevuelta  = "devuelta"
	EstadoCerrada   = "cerrada"
	EstadoAnulada   = "anulada"
)

// Tipos de operación.
const (
	OperacionVenta              = "venta"
	OperacionAlquiler           = "alquiler"
	OperacionConfeccion         = "confeccion"
	OperacionConfeccionVenta    = "confeccion_venta"
	OperacionConfeccionAlquiler = "confeccion_alquiler"
)

// Estado de pago derivado del libro de pagos.
const (
	PagoImpago  = "impago"
	PagoParcial = "parcial"
	PagoPagado  = "pagado"
)

// Condición de la prenda al registrar la devolución.
const (
	CondicionExcelente        = "excelente"
	CondicionBuena            = "bueno"
	CondicionNecesitaLimpieza = "necesita_limpieza"
	CondicionDanada           = "danado"
	CondicionFaltanPiezas     = "faltan_piezas"
)

// EsAlquiler reporta si el tipo de operación bloquea prendas por intervalo de fechas.
func EsAlquiler(tipoOperacion string) bool {
	return tipoOperacion == OperacionAlquiler || tipoOperacion == OperacionConfeccionAlquiler
}

// Factura is the header of a single sale/rental transaction.
// Estado: see Estado* constants. Mutations happen ONLY through CicloService —
// never cancel/close a factura by updating the row directly.
type Factura struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero int       `gorm:"uniqueIndex;not null"`

	ClienteID uuid.UUID `gorm:"type:uuid;not null;index"`

	TipoOperacion string `gorm:"type:varchar(30);not null;index"`
	Estado        string `gorm:"type:varchar(20);not null;default:'borrador';index"`
	EstadoPago    string `gorm:"type:varchar(20);not null;default:'impago'"`

	PrecioTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Sena is the legacy single-deposit field ("seña"). Deprecated: authoritative
	// only while the factura has zero ledger entries; materialized into pagos on
	// the first ledger write (see PagoService).
	Sena decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;column:sena"`
	// SaldoPendiente is a denormalized cache of the reconciliation output —
	// recomputed after every ledger mutation, never edited by hand.
	SaldoPendiente decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	FechaFactura time.Time `gorm:"type:date;not null"`
	// FechaEvento: fecha del casamiento/evento del cliente (informativa).
	FechaEvento *time.Time `gorm:"type:date"`
	// [FechaRetiro, FechaDevolucion) es el intervalo de reserva de las prendas
	// para operaciones de alquiler. Semántica semiabierta.
	FechaRetiro     *time.Time `gorm:"type:date"`
	FechaDevolucion *time.Time `gorm:"type:date"`

	EntregadaAt  *time.Time
	EntregadaPor *uuid.UUID `gorm:"type:uuid"`
	DevueltaAt   *time.Time
	DevueltaPor  *uuid.UUID `gorm:"type:uuid"`
	// CondicionDevolucion: see Condicion* constants; set only on devolución.
	CondicionDevolucion *string `gorm:"type:varchar(30)"`

	// AnuladaAt is the soft-delete marker stamped by Anular. The row stays
	// visible so a later Cerrar/Anular can answer "ya es terminal" instead of
	// "no existe"; queries filter anuladas by estado.
	AnuladaAt       *time.Time
	MotivoAnulacion *string
	CreadaPor       *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
	// DeletedAt is only ever stamped by the administrative hard-hide operation,
	// outside this service layer.
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Cliente *Cliente      `gorm:"foreignKey:ClienteID"`
	Items   []FacturaItem `gorm:"foreignKey:FacturaID"`
	Pagos   []Pago        `gorm:"foreignKey:FacturaID"`
}

// EsTerminal reporta si el estado actual no admite más transiciones.
func (f *Factura) EsTerminal() bool {
	return f.Estado == EstadoCerrada || f.Estado == EstadoAnulada
}
