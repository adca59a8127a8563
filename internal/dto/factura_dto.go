package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// FacturaFilter is bound from query string of GET /v1/facturas.
type FacturaFilter struct {
	Fecha         string `form:"fecha"`  // YYYY-MM-DD (fecha_factura)
	Estado        string `form:"estado"` // borrador | reservada | entregada | devuelta | cerrada | all
	TipoOperacion string `form:"tipo_operacion"`
	ClienteID     string `form:"cliente_id"`
	Page          int    `form:"page,default=1"   validate:"min=1"`
	Limit         int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type MedidasRequest struct {
	Busto   *decimal.Decimal `json:"busto"   validate:"omitempty,min=0"`
	Cintura *decimal.Decimal `json:"cintura" validate:"omitempty,min=0"`
	Cadera  *decimal.Decimal `json:"cadera"  validate:"omitempty,min=0"`
	Largo   *decimal.Decimal `json:"largo"   validate:"omitempty,min=0"`
}

type ItemFacturaRequest struct {
	// ProductoID is required for vestidos and absent for accesorios.
	ProductoID     *string         `json:"producto_id"     validate:"omitempty,uuid"`
	TipoItem       string          `json:"tipo_item"       validate:"required,oneof=vestido accesorio"`
	Descripcion    string          `json:"descripcion"     validate:"required,min=2"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" validate:"min=0"`
	Medidas        *MedidasRequest `json:"medidas"`
}

type CrearFacturaRequest struct {
	ClienteID     string `json:"cliente_id"     validate:"required,uuid"`
	TipoOperacion string `json:"tipo_operacion" validate:"required,oneof=venta alquiler confeccion confeccion_venta confeccion_alquiler"`
	// Fechas en formato YYYY-MM-DD. Retiro/devolución son obligatorias para
	// operaciones de alquiler.
	FechaFactura    string `json:"fecha_factura"    validate:"omitempty,datetime=2006-01-02"`
	FechaEvento     string `json:"fecha_evento"     validate:"omitempty,datetime=2006-01-02"`
	FechaRetiro     string `json:"fecha_retiro"     validate:"omitempty,datetime=2006-01-02"`
	FechaDevolucion string `json:"fecha_devolucion" validate:"omitempty,datetime=2006-01-02"`

	Items []ItemFacturaRequest `json:"items" validate:"required,min=1,dive"`

	// Sena preserves the legacy deposit when importing historical facturas.
	Sena decimal.Decimal `json:"sena" validate:"min=0"`
}

type CambiarEstadoRequest struct {
	Estado string  `json:"estado" validate:"required,oneof=borrador reservada entregada devuelta cerrada anulada"`
	Notas  *string `json:"notas"`
}

type EntregaRequest struct {
	Notas *string `json:"notas"`
}

type DevolucionRequest struct {
	Condicion string  `json:"condicion" validate:"required"`
	Notas     *string `json:"notas"`
}

type CierreRequest struct {
	Notas *string `json:"notas"`
}

type AnulacionRequest struct {
	Motivo string `json:"motivo" validate:"required,min=5"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemFacturaResponse struct {
	ID             string          `json:"id"`
	ProductoID     *string         `json:"producto_id"`
	Producto       string          `json:"producto"`
	TipoItem       string          `json:"tipo_item"`
	Descripcion    string          `json:"descripcion"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
}

type FacturaResponse struct {
	ID            string `json:"id"`
	Numero        int    `json:"numero"`
	ClienteID     string `json:"cliente_id"`
	Cliente       string `json:"cliente"`
	TipoOperacion string `json:"tipo_operacion"`
	Estado        string `json:"estado"`
	EstadoPago    string `json:"estado_pago"`

	PrecioTotal    decimal.Decimal `json:"precio_total"`
	SaldoPendiente decimal.Decimal `json:"saldo_pendiente"`

	FechaFactura    string  `json:"fecha_factura"`
	FechaEvento     *string `json:"fecha_evento"`
	FechaRetiro     *string `json:"fecha_retiro"`
	FechaDevolucion *string `json:"fecha_devolucion"`

	EntregadaAt         *string `json:"entregada_at"`
	DevueltaAt          *string `json:"devuelta_at"`
	CondicionDevolucion *string `json:"condicion_devolucion"`

	Items []ItemFacturaResponse `json:"items"`
	Pagos []PagoResponse        `json:"pagos"`

	CreatedAt string `json:"created_at"`
}

type FacturaListResponse struct {
	Data  []FacturaResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// CambioEstadoResponse reports the result of a lifecycle transition.
type CambioEstadoResponse struct {
	FacturaID      string `json:"factura_id"`
	EstadoAnterior string `json:"estado_anterior"`
	EstadoNuevo    string `json:"estado_nuevo"`
}

type HistorialEstadoResponse struct {
	EstadoAnterior     string  `json:"estado_anterior"`
	EstadoNuevo        string  `json:"estado_nuevo"`
	EstadoPagoAnterior string  `json:"estado_pago_anterior"`
	EstadoPagoNuevo    string  `json:"estado_pago_nuevo"`
	ActorID            string  `json:"actor_id"`
	Notas              *string `json:"notas"`
	Fecha              string  `json:"fecha"`
}
