package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegistrarPagoRequest struct {
	Monto  decimal.Decimal `json:"monto"  validate:"required"`
	Metodo string          `json:"metodo" validate:"required,oneof=efectivo transferencia tarjeta"`
	Notas  *string         `json:"notas"`
	// EmailRecibo: cuando está presente se envía el recibo por email (asíncrono).
	EmailRecibo *string `json:"email_recibo" validate:"omitempty,email"`
}

type RegistrarPenalidadRequest struct {
	Monto  decimal.Decimal `json:"monto"  validate:"required"`
	Metodo string          `json:"metodo" validate:"omitempty,oneof=efectivo transferencia tarjeta"`
	Notas  *string         `json:"notas"`
}

type RegistrarReembolsoRequest struct {
	Monto  decimal.Decimal `json:"monto"  validate:"required"`
	Metodo string          `json:"metodo" validate:"required,oneof=efectivo transferencia tarjeta"`
	Notas  *string         `json:"notas"`
}

type EliminarPagoRequest struct {
	Motivo string `json:"motivo" validate:"required,min=5"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PagoResponse struct {
	ID            string          `json:"id"`
	FacturaID     string          `json:"factura_id"`
	Monto         decimal.Decimal `json:"monto"`
	Tipo          string          `json:"tipo"`
	Metodo        string          `json:"metodo"`
	FechaPago     string          `json:"fecha_pago"`
	MigradoDeSena bool            `json:"migrado_de_sena"`
	Notas         *string         `json:"notas"`
}

// EstadoCuentaResponse is the reconciled money view for one factura.
type EstadoCuentaResponse struct {
	FacturaID        string          `json:"factura_id"`
	PrecioTotal      decimal.Decimal `json:"precio_total"`
	TotalPagado      decimal.Decimal `json:"total_pagado"`
	TotalPenalidades decimal.Decimal `json:"total_penalidades"`
	SaldoPendiente   decimal.Decimal `json:"saldo_pendiente"`
	EstadoPago       string          `json:"estado_pago"`
	Pagos            []PagoResponse  `json:"pagos"`
}
