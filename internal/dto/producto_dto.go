package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

type ProductoFilter struct {
	Codigo    string `form:"codigo"`
	Nombre    string `form:"nombre"`
	Categoria string `form:"categoria"`
	Estado    string `form:"estado"` // disponible | alquilado | sin_stock
	Activo    string `form:"activo"` // "false" | "all" | default activos
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	Codigo         string          `json:"codigo"          validate:"required,min=1,max=50"`
	Nombre         string          `json:"nombre"          validate:"required,min=2,max=150"`
	Descripcion    *string         `json:"descripcion"`
	Categoria      string          `json:"categoria"       validate:"required"`
	Talle          string          `json:"talle"           validate:"omitempty,oneof=xs s m l xl xxl a_medida"`
	PrecioAlquiler decimal.Decimal `json:"precio_alquiler" validate:"min=0"`
	PrecioVenta    decimal.Decimal `json:"precio_venta"    validate:"min=0"`
}

type ActualizarProductoRequest struct {
	Nombre         string           `json:"nombre"          validate:"omitempty,min=2,max=150"`
	Descripcion    *string          `json:"descripcion"`
	Categoria      string           `json:"categoria"`
	Talle          string           `json:"talle"           validate:"omitempty,oneof=xs s m l xl xxl a_medida"`
	PrecioAlquiler *decimal.Decimal `json:"precio_alquiler" validate:"omitempty,min=0"`
	PrecioVenta    *decimal.Decimal `json:"precio_venta"    validate:"omitempty,min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID             string          `json:"id"`
	Codigo         string          `json:"codigo"`
	Nombre         string          `json:"nombre"`
	Descripcion    *string         `json:"descripcion"`
	Categoria      string          `json:"categoria"`
	Talle          string          `json:"talle"`
	PrecioAlquiler decimal.Decimal `json:"precio_alquiler"`
	PrecioVenta    decimal.Decimal `json:"precio_venta"`
	Estado         string          `json:"estado"`
	EstaBloqueado  bool            `json:"esta_bloqueado"`
	Activo         bool            `json:"activo"`
}

type ProductoListResponse struct {
	Data  []ProductoResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
