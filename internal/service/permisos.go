package service

import "github.com/google/uuid"

// Roles del sistema.
const (
	RolVendedor      = "vendedor"
	RolSupervisor    = "supervisor"
	RolAdministrador = "administrador"
)

// Actor identifies who performs an operation; every mutation records it.
type Actor struct {
	ID  uuid.UUID
	Rol string
}

// Permisos resolves role-gated actions. Lifecycle transitions and payments
// are open to every authenticated role; destructive corrections are not.
type Permisos interface {
	PuedeEliminarPago(actor Actor) bool
	PuedeAnularFactura(actor Actor) bool
	PuedeAdministrarUsuarios(actor Actor) bool
}

type permisosPorRol struct{}

func NewPermisos() Permisos { return permisosPorRol{} }

func (permisosPorRol) PuedeEliminarPago(actor Actor) bool {
	return actor.Rol == RolSupervisor || actor.Rol == RolAdministrador
}

func (permisosPorRol) PuedeAnularFactura(actor Actor) bool {
	return actor.Rol == RolSupervisor || actor.Rol == RolAdministrador
}

func (permisosPorRol) PuedeAdministrarUsuarios(actor Actor) bool {
	return actor.Rol == RolAdministrador
}
