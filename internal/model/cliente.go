package model

import (
	"time"

	"github.com/google/uuid"
)

// Cliente stores the customer attached to each factura.
type Cliente struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre    string    `gorm:"index;not null"`
	Telefono  *string   `gorm:"type:varchar(30)"`
	Email     *string
	Direccion *string
	Notas     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
