package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearClienteRequest struct {
	Nombre    string  `json:"nombre"    validate:"required,min=2,max=150"`
	Telefono  *string `json:"telefono"  validate:"omitempty,min=6,max=30"`
	Email     *string `json:"email"     validate:"omitempty,email"`
	Direccion *string `json:"direccion"`
	Notas     *string `json:"notas"`
}

type ActualizarClienteRequest struct {
	Nombre    string  `json:"nombre"    validate:"omitempty,min=2,max=150"`
	Telefono  *string `json:"telefono"  validate:"omitempty,min=6,max=30"`
	Email     *string `json:"email"     validate:"omitempty,email"`
	Direccion *string `json:"direccion"`
	Notas     *string `json:"notas"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ClienteResponse struct {
	ID        string  `json:"id"`
	Nombre    string  `json:"nombre"`
	Telefono  *string `json:"telefono"`
	Email     *string `json:"email"`
	Direccion *string `json:"direccion"`
	Notas     *string `json:"notas"`
}
