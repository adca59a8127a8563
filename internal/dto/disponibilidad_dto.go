package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// DisponibilidadFilter is bound from query string of GET /v1/disponibilidad.
type DisponibilidadFilter struct {
	ProductoID       string `form:"producto_id" validate:"required,uuid"`
	Desde            string `form:"desde"       validate:"required,datetime=2006-01-02"`
	Hasta            string `form:"hasta"       validate:"required,datetime=2006-01-02"`
	ExcluirFacturaID string `form:"excluir_factura_id" validate:"omitempty,uuid"`
}

// ValidarFacturaFilter is bound from query string of
// GET /v1/facturas/{id}/disponibilidad (re-validation on date edits).
type ValidarFacturaFilter struct {
	Desde string `form:"desde" validate:"required,datetime=2006-01-02"`
	Hasta string `form:"hasta" validate:"required,datetime=2006-01-02"`
}

type ConsultaVariosRequest struct {
	ProductoIDs      []string `json:"producto_ids" validate:"required,min=1,dive,uuid"`
	Desde            string   `json:"desde"        validate:"required,datetime=2006-01-02"`
	Hasta            string   `json:"hasta"        validate:"required,datetime=2006-01-02"`
	ExcluirFacturaID *string  `json:"excluir_factura_id" validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// ConflictoResponse describes one factura that blocks the proposed interval.
type ConflictoResponse struct {
	FacturaID       string `json:"factura_id"`
	Numero          int    `json:"numero"`
	Estado          string `json:"estado"`
	FechaRetiro     string `json:"fecha_retiro"`
	FechaDevolucion string `json:"fecha_devolucion"`
	Cliente         string `json:"cliente"`
}

type DisponibilidadResponse struct {
	ProductoID string              `json:"producto_id"`
	Disponible bool                `json:"disponible"`
	Mensaje    string              `json:"mensaje,omitempty"`
	Conflictos []ConflictoResponse `json:"conflictos"`
}

type ConsultaVariosResponse struct {
	TodosDisponibles bool                              `json:"todos_disponibles"`
	Productos        map[string]DisponibilidadResponse `json:"productos"`
}

// DiaCalendario is one day of the monthly availability projection.
type DiaCalendario struct {
	Disponible    bool    `json:"disponible"`
	FacturaNumero *int    `json:"factura_numero,omitempty"`
	Cliente       *string `json:"cliente,omitempty"`
	Estado        *string `json:"estado,omitempty"`
}

type CalendarioResponse struct {
	ProductoID string                   `json:"producto_id"`
	Anio       int                      `json:"anio"`
	Mes        int                      `json:"mes"`
	// Dias is keyed by ISO date (YYYY-MM-DD), one entry per day of the month.
	Dias map[string]DiaCalendario `json:"dias"`
}
