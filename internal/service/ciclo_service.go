package service

import (
	"context"
	"fmt"
	"time"

	"vestipos/internal/bizerr"
	"vestipos/internal/dto"
	"vestipos/internal/model"
	"vestipos/internal/repository"
	"vestipos/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CicloService drives the factura lifecycle:
//
//	borrador → reservada → entregada → devuelta → cerrada
//	                ↘          ↘    ↖      ↙
//	              anulada    anulada  (re-entrega)
//
// Every successful transition runs in one ACID transaction that also mutates
// the linked productos and appends a HistorialEstado row.
type CicloService interface {
	CambiarEstado(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.CambiarEstadoRequest) (*dto.CambioEstadoResponse, error)
	Entregar(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.EntregaRequest) (*dto.CambioEstadoResponse, error)
	RegistrarDevolucion(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.DevolucionRequest) (*dto.CambioEstadoResponse, error)
	Cerrar(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.CierreRequest) (*dto.CambioEstadoResponse, error)
	Anular(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.AnulacionRequest) (*dto.CambioEstadoResponse, error)
	Historial(ctx context.Context, facturaID uuid.UUID) ([]dto.HistorialEstadoResponse, error)
}

type cicloService struct {
	facturaRepo   repository.FacturaRepository
	productoRepo  repository.ProductoRepository
	historialRepo repository.HistorialRepository
	pagos         PagoService
	permisos      Permisos
	dispatcher    *worker.Dispatcher
}

func NewCicloService(
	facturaRepo repository.FacturaRepository,
	productoRepo repository.ProductoRepository,
	historialRepo repository.HistorialRepository,
	pagos PagoService,
	permisos Permisos,
	dispatcher *worker.Dispatcher,
) CicloService {
	return &cicloService{
		facturaRepo:   facturaRepo,
		productoRepo:  productoRepo,
		historialRepo: historialRepo,
		pagos:         pagos,
		permisos:      permisos,
		dispatcher:    dispatcher,
	}
}

// transicionesPermitidas is the single source of truth for generic status
// changes. Cierre y anulación tienen reglas propias por tipo de operación y
// se validan en Cerrar/Anular, no contra esta tabla.
var transicionesPermitidas = map[string][]string{
	model.EstadoBorrador:  {model.EstadoReservada, model.EstadoAnulada},
	model.EstadoReservada: {model.EstadoEntregada, model.EstadoAnulada},
	model.EstadoEntregada: {model.EstadoDevuelta},
	// devuelta → entregada: re-entrega cuando el cliente retira de nuevo
	model.EstadoDevuelta: {model.EstadoCerrada, model.EstadoEntregada},
	model.EstadoCerrada:  {},
	model.EstadoAnulada:  {},
}

func transicionPermitida(desde, hacia string) bool {
	for _, e := range transicionesPermitidas[desde] {
		if e == hacia {
			return true
		}
	}
	return false
}

// ── CambiarEstado ─────────────────────────────────────────────────────────────

// CambiarEstado applies a generic transition validated against the table.
// Targets with their own invariants delegate to the dedicated operation so the
// side effects are identical no matter which endpoint fired the change.
func (s *cicloService) CambiarEstado(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.CambiarEstadoRequest) (*dto.CambioEstadoResponse, error) {
	switch req.Estado {
	case model.EstadoDevuelta:
		return nil, bizerr.New(bizerr.InvalidArgument,
			"la devolución requiere la condición de la prenda: usar la operación de devolución")
	case model.EstadoCerrada:
		return s.Cerrar(ctx, facturaID, actor, dto.CierreRequest{Notas: req.Notas})
	case model.EstadoAnulada:
		if req.Notas == nil || len(*req.Notas) < 5 {
			return nil, bizerr.New(bizerr.InvalidArgument, "la anulación requiere un motivo en las notas")
		}
		return s.Anular(ctx, facturaID, actor, dto.AnulacionRequest{Motivo: *req.Notas})
	}

	var resp *dto.CambioEstadoResponse
	txErr := runTx(ctx, s.facturaRepo.DB(), func(tx *gorm.DB) error {
		f, err := s.facturaRepo.FindByIDTx(tx, facturaID, true)
		if err != nil {
			return notFound(err, "factura no encontrada")
		}
		if !transicionPermitida(f.Estado, req.Estado) {
			return bizerr.New(bizerr.InvalidTransition,
				fmt.Sprintf("transición inválida: %s → %s", f.Estado, req.Estado))
		}

		estadoAnterior := f.Estado
		campos := map[string]interface{}{}
		switch req.Estado {
		case model.EstadoReservada:
			if err := s.validarReservaTx(tx, f); err != nil {
				return err
			}
			if err := s.bloquearProductosTx(tx, f); err != nil {
				return err
			}
		case model.EstadoEntregada:
			// cubre reservada → entregada y la re-entrega devuelta → entregada
			ahora := time.Now().UTC()
			campos["entregada_at"] = ahora
			campos["entregada_por"] = actor.ID
			if err := s.marcarProductosTx(tx, f, model.ProductoAlquilado, true); err != nil {
				return err
			}
		}

		if err := s.registrarTransicionTx(tx, f, req.Estado, actor, req.Notas, campos); err != nil {
			return err
		}
		resp = &dto.CambioEstadoResponse{
			FacturaID:      f.ID.String(),
			EstadoAnterior: estadoAnterior,
			EstadoNuevo:    req.Estado,
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.auditar(ctx, actor, "cambio_estado", facturaID,
		fmt.Sprintf("Factura %s: %s → %s", facturaID, resp.EstadoAnterior, resp.EstadoNuevo))
	return resp, nil
}

// ── Entregar ──────────────────────────────────────────────────────────────────

// Entregar stamps the handoff to the customer and marks the garments rented.
func (s *cicloService) Entregar(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.EntregaRequest) (*dto.CambioEstadoResponse, error) {
	var resp *dto.CambioEstadoResponse
	txErr := runTx(ctx, s.facturaRepo.DB(), func(tx *gorm.DB) error {
		f, err := s.facturaRepo.FindByIDTx(tx, facturaID, true)
		if err != nil {
			return notFound(err, "factura no encontrada")
		}
		if f.Estado != model.EstadoReservada {
			return bizerr.New(bizerr.PreconditionFailed,
				fmt.Sprintf("solo una factura reservada puede entregarse (estado actual: %s)", f.Estado))
		}

		estadoAnterior := f.Estado
		ahora := time.Now().UTC()
		campos := map[string]interface{}{
			"entregada_at":  ahora,
			"entregada_por": actor.ID,
		}
		if err := s.marcarProductosTx(tx, f, model.ProductoAlquilado, true); err != nil {
			return err
		}
		if err := s.registrarTransicionTx(tx, f, model.EstadoEntregada, actor, req.Notas, campos); err != nil {
			return err
		}
		resp = &dto.CambioEstadoResponse{
			FacturaID:      f.ID.String(),
			EstadoAnterior: estadoAnterior,
			EstadoNuevo:    model.EstadoEntregada,
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.auditar(ctx, actor, "entrega", facturaID, fmt.Sprintf("Factura %s entregada", facturaID))
	return resp, nil
}

// ── RegistrarDevolucion ───────────────────────────────────────────────────────

// RegistrarDevolucion takes the garments back and records their condition.
// Prendas en buen estado vuelven al stock disponible; el resto queda sin_stock
// hasta que el taller las recupere.
func (s *cicloService) RegistrarDevolucion(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.DevolucionRequest) (*dto.CambioEstadoResponse, error) {
	if !condicionValida(req.Condicion) {
		return nil, bizerr.New(bizerr.InvalidArgument, "condición inválida: "+req.Condicion)
	}

	var resp *dto.CambioEstadoResponse
	txErr := runTx(ctx, s.facturaRepo.DB(), func(tx *gorm.DB) error {
		f, err := s.facturaRepo.FindByIDTx(tx, facturaID, true)
		if err != nil {
			return notFound(err, "factura no encontrada")
		}
		if f.Estado != model.EstadoEntregada {
			return bizerr.New(bizerr.PreconditionFailed,
				fmt.Sprintf("solo una factura entregada admite devolución (estado actual: %s)", f.Estado))
		}

		estadoAnterior := f.Estado
		estadoProducto := model.ProductoSinStock
		if req.Condicion == model.CondicionExcelente || req.Condicion == model.CondicionBuena {
			estadoProducto = model.ProductoDisponible
		}
		// bloqueado sigue en true: la factura permanece activa hasta el cierre
		if err := s.marcarProductosTx(tx, f, estadoProducto, true); err != nil {
			return err
		}

		ahora := time.Now().UTC()
		campos := map[string]interface{}{
			"devuelta_at":          ahora,
			"devuelta_por":         actor.ID,
			"condicion_devolucion": req.Condicion,
		}
		if err := s.registrarTransicionTx(tx, f, model.EstadoDevuelta, actor, req.Notas, campos); err != nil {
			return err
		}
		resp = &dto.CambioEstadoResponse{
			FacturaID:      f.ID.String(),
			EstadoAnterior: estadoAnterior,
			EstadoNuevo:    model.EstadoDevuelta,
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.auditar(ctx, actor, "devolucion", facturaID,
		fmt.Sprintf("Factura %s devuelta en condición %s", facturaID, req.Condicion))
	return resp, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────

// Cerrar finishes the factura. Requires the cuenta saldada and, for rentals,
// the garments back in the store. Liberación de productos: todo tipo de
// operación excepto la venta pura, donde la prenda salió definitivamente.
func (s *cicloService) Cerrar(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.CierreRequest) (*dto.CambioEstadoResponse, error) {
	var resp *dto.CambioEstadoResponse
	txErr := runTx(ctx, s.facturaRepo.DB(), func(tx *gorm.DB) error {
		f, err := s.facturaRepo.FindByIDTx(tx, facturaID, true)
		if err != nil {
			return notFound(err, "factura no encontrada")
		}
		if f.EsTerminal() {
			return bizerr.New(bizerr.AlreadyTerminal, "la factura ya está "+f.Estado)
		}
		if f.Estado == model.EstadoBorrador {
			return bizerr.New(bizerr.InvalidTransition, "transición inválida: borrador → cerrada")
		}
		if model.EsAlquiler(f.TipoOperacion) && f.Estado != model.EstadoDevuelta {
			if f.Estado == model.EstadoEntregada {
				return bizerr.New(bizerr.PreconditionFailed,
					"la prenda todavía está en poder del cliente: registrar la devolución antes de cerrar")
			}
			return bizerr.New(bizerr.PreconditionFailed,
				fmt.Sprintf("un alquiler solo se cierra después de la devolución (estado actual: %s)", f.Estado))
		}

		saldo, err := s.pagos.SaldoPendienteTx(tx, f)
		if err != nil {
			return err
		}
		if saldo.GreaterThan(epsilonSaldo) {
			return bizerr.New(bizerr.OutstandingBalance,
				"no se puede cerrar con saldo pendiente de $"+saldo.StringFixed(2))
		}

		estadoAnterior := f.Estado
		if f.TipoOperacion != model.OperacionVenta {
			if err := s.liberarProductosTx(tx, f); err != nil {
				return err
			}
		}
		if err := s.registrarTransicionTx(tx, f, model.EstadoCerrada, actor, req.Notas, map[string]interface{}{}); err != nil {
			return err
		}
		resp = &dto.CambioEstadoResponse{
			FacturaID:      f.ID.String(),
			EstadoAnterior: estadoAnterior,
			EstadoNuevo:    model.EstadoCerrada,
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.auditar(ctx, actor, "cierre", facturaID, fmt.Sprintf("Factura %s cerrada", facturaID))
	return resp, nil
}

// ── Anular ────────────────────────────────────────────────────────────────────

// Anular cancels the factura with a mandatory motivo and releases its
// garments unconditionally. El libro de pagos queda intacto para el historial.
func (s *cicloService) Anular(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.AnulacionRequest) (*dto.CambioEstadoResponse, error) {
	if !s.permisos.PuedeAnularFactura(actor) {
		return nil, bizerr.New(bizerr.Unauthorized, "solo un supervisor o administrador puede anular facturas")
	}

	var resp *dto.CambioEstadoResponse
	txErr := runTx(ctx, s.facturaRepo.DB(), func(tx *gorm.DB) error {
		f, err := s.facturaRepo.FindByIDTx(tx, facturaID, true)
		if err != nil {
			return notFound(err, "factura no encontrada")
		}
		if f.Estado == model.EstadoAnulada {
			return bizerr.New(bizerr.AlreadyTerminal, "la factura ya está anulada")
		}
		if f.Estado == model.EstadoCerrada {
			return bizerr.New(bizerr.AlreadyTerminal, "una factura cerrada no puede anularse")
		}

		estadoAnterior := f.Estado
		if err := s.liberarProductosTx(tx, f); err != nil {
			return err
		}
		ahora := time.Now().UTC()
		campos := map[string]interface{}{
			"anulada_at":       ahora,
			"motivo_anulacion": req.Motivo,
		}
		if err := s.registrarTransicionTx(tx, f, model.EstadoAnulada, actor, &req.Motivo, campos); err != nil {
			return err
		}
		resp = &dto.CambioEstadoResponse{
			FacturaID:      f.ID.String(),
			EstadoAnterior: estadoAnterior,
			EstadoNuevo:    model.EstadoAnulada,
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.auditar(ctx, actor, "anulacion", facturaID,
		fmt.Sprintf("Factura %s anulada: %s", facturaID, req.Motivo))
	return resp, nil
}

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *cicloService) Historial(ctx context.Context, facturaID uuid.UUID) ([]dto.HistorialEstadoResponse, error) {
	if _, err := s.facturaRepo.FindByID(ctx, facturaID); err != nil {
		return nil, notFound(err, "factura no encontrada")
	}
	entradas, err := s.historialRepo.ListByFactura(ctx, facturaID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.HistorialEstadoResponse, 0, len(entradas))
	for _, e := range entradas {
		out = append(out, dto.HistorialEstadoResponse{
			EstadoAnterior:     e.EstadoAnterior,
			EstadoNuevo:        e.EstadoNuevo,
			EstadoPagoAnterior: e.EstadoPagoAnterior,
			EstadoPagoNuevo:    e.EstadoPagoNuevo,
			ActorID:            e.ActorID.String(),
			Notas:              e.Notas,
			Fecha:              e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

// ── Internals ─────────────────────────────────────────────────────────────────

func condicionValida(c string) bool {
	switch c {
	case model.CondicionExcelente, model.CondicionBuena, model.CondicionNecesitaLimpieza,
		model.CondicionDanada, model.CondicionFaltanPiezas:
		return true
	}
	return false
}

// validarReservaTx enforces the booking invariant for rentals: the interval
// must be well formed and every garment free of overlapping active rentals.
// Corre con FOR UPDATE sobre las facturas en conflicto, así dos reservas
// concurrentes del mismo producto se serializan en vez de duplicarse.
func (s *cicloService) validarReservaTx(tx *gorm.DB, f *model.Factura) error {
	if !model.EsAlquiler(f.TipoOperacion) {
		return nil
	}
	if f.FechaRetiro == nil || f.FechaDevolucion == nil {
		return bizerr.New(bizerr.PreconditionFailed,
			"la reserva de un alquiler requiere fechas de retiro y devolución")
	}
	if !f.FechaDevolucion.After(*f.FechaRetiro) {
		return bizerr.New(bizerr.InvalidArgument,
			"la fecha de devolución debe ser posterior a la de retiro")
	}

	for _, pid := range productosDe(f) {
		conflictos, err := s.facturaRepo.BuscarConflictosTx(tx, repository.ConflictoQuery{
			ProductoID:       pid,
			Desde:            *f.FechaRetiro,
			Hasta:            *f.FechaDevolucion,
			ExcluirFacturaID: &f.ID,
		})
		if err != nil {
			return err
		}
		if len(conflictos) > 0 {
			return bizerr.New(bizerr.PreconditionFailed,
				fmt.Sprintf("el producto ya está reservado en esas fechas (factura #%d)", conflictos[0].Numero))
		}
	}
	return nil
}

// productosDe returns the distinct productos referenced by the items.
func productosDe(f *model.Factura) []uuid.UUID {
	vistos := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, item := range f.Items {
		if item.ProductoID == nil || vistos[*item.ProductoID] {
			continue
		}
		vistos[*item.ProductoID] = true
		ids = append(ids, *item.ProductoID)
	}
	return ids
}

// bloquearProductosTx flags the garments as committed without touching their
// physical estado.
func (s *cicloService) bloquearProductosTx(tx *gorm.DB, f *model.Factura) error {
	for _, pid := range productosDe(f) {
		p, err := s.productoRepo.FindByIDTx(tx, pid)
		if err != nil {
			return notFound(err, "producto no encontrado")
		}
		if err := s.productoRepo.ActualizarEstadoTx(tx, pid, p.Estado, true); err != nil {
			return err
		}
	}
	return nil
}

// marcarProductosTx sets every linked garment to estado with the given lock flag.
func (s *cicloService) marcarProductosTx(tx *gorm.DB, f *model.Factura, estado string, bloqueado bool) error {
	for _, pid := range productosDe(f) {
		if err := s.productoRepo.ActualizarEstadoTx(tx, pid, estado, bloqueado); err != nil {
			return err
		}
	}
	return nil
}

// liberarProductosTx clears the lock flag. Prendas alquiladas vuelven a
// disponible; una prenda en sin_stock (dañada, en limpieza) conserva ese
// estado hasta que el taller la recupere.
func (s *cicloService) liberarProductosTx(tx *gorm.DB, f *model.Factura) error {
	for _, pid := range productosDe(f) {
		p, err := s.productoRepo.FindByIDTx(tx, pid)
		if err != nil {
			return notFound(err, "producto no encontrado")
		}
		estado := p.Estado
		if estado == model.ProductoAlquilado {
			estado = model.ProductoDisponible
		}
		if err := s.productoRepo.ActualizarEstadoTx(tx, pid, estado, false); err != nil {
			return err
		}
	}
	return nil
}

// registrarTransicionTx appends the history row and persists the new estado
// plus any op-specific stamps, all inside the caller's transaction.
func (s *cicloService) registrarTransicionTx(tx *gorm.DB, f *model.Factura, nuevoEstado string, actor Actor, notas *string, campos map[string]interface{}) error {
	h := &model.HistorialEstado{
		FacturaID:          f.ID,
		EstadoAnterior:     f.Estado,
		EstadoNuevo:        nuevoEstado,
		EstadoPagoAnterior: f.EstadoPago,
		EstadoPagoNuevo:    f.EstadoPago,
		ActorID:            actor.ID,
		Notas:              notas,
	}
	if err := s.historialRepo.CreateTx(tx, h); err != nil {
		return err
	}
	campos["estado"] = nuevoEstado
	return s.facturaRepo.UpdateCamposTx(tx, f.ID, campos)
}

func (s *cicloService) auditar(ctx context.Context, actor Actor, accion string, facturaID uuid.UUID, descripcion string) {
	if s.dispatcher == nil {
		return
	}
	actorID := actor.ID.String()
	// fire & forget — un evento perdido nunca revierte la transición
	_ = s.dispatcher.EnqueueAuditoria(ctx, worker.AuditoriaJobPayload{
		Accion:      accion,
		ActorID:     &actorID,
		EntidadTipo: "factura",
		EntidadID:   facturaID.String(),
		Descripcion: descripcion,
	})
}
