package service

import (
	"context"
	"fmt"

	"vestipos/internal/bizerr"
	"vestipos/internal/dto"
	"vestipos/internal/model"
	"vestipos/internal/repository"
	"vestipos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PagoService owns the payment ledger and its reconciliation. The ledger is
// the single source of truth for money: saldo_pendiente y estado_pago en la
// factura son caches recalculados después de cada movimiento.
//
// Legacy: facturas importadas traen una seña única en la cabecera. La primera
// escritura al libro la materializa como entrada marcada migrado_de_sena, con
// fecha retrodatada a la fecha de la factura, así el total pagado nunca
// retrocede al pasar del esquema viejo al libro.
type PagoService interface {
	RegistrarPago(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.RegistrarPagoRequest) (*dto.PagoResponse, error)
	RegistrarReembolso(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.RegistrarReembolsoRequest) (*dto.PagoResponse, error)
	RegistrarPenalidad(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.RegistrarPenalidadRequest) (*dto.PagoResponse, error)
	EliminarPago(ctx context.Context, pagoID uuid.UUID, actor Actor, req dto.EliminarPagoRequest) error

	EstadoCuenta(ctx context.Context, facturaID uuid.UUID) (*dto.EstadoCuentaResponse, error)
	TotalPagado(ctx context.Context, facturaID uuid.UUID) (decimal.Decimal, error)
	TotalPenalidades(ctx context.Context, facturaID uuid.UUID) (decimal.Decimal, error)
	SaldoPendiente(ctx context.Context, facturaID uuid.UUID) (decimal.Decimal, error)

	// SaldoPendienteTx computes the saldo inside the caller's transaction
	// (used by the cierre de factura).
	SaldoPendienteTx(tx *gorm.DB, f *model.Factura) (decimal.Decimal, error)
}

type pagoService struct {
	pagoRepo    repository.PagoRepository
	facturaRepo repository.FacturaRepository
	permisos    Permisos
	dispatcher  *worker.Dispatcher
}

func NewPagoService(
	pagoRepo repository.PagoRepository,
	facturaRepo repository.FacturaRepository,
	permisos Permisos,
	dispatcher *worker.Dispatcher,
) PagoService {
	return &pagoService{
		pagoRepo:    pagoRepo,
		facturaRepo: facturaRepo,
		permisos:    permisos,
		dispatcher:  dispatcher,
	}
}

// ── Reconciliación ────────────────────────────────────────────────────────────

// totales is the reconciled money view of one factura.
type totales struct {
	pagado      decimal.Decimal // pagos − reembolsos (o la seña legacy)
	penalidades decimal.Decimal
	saldo       decimal.Decimal // max(0, precio_total + penalidades − pagado)
	estadoPago  string
}

// calcularTotales derives the money view from the per-tipo sums. Un libro
// vacío cae de vuelta a la seña legacy de la cabecera; un libro con al menos
// una entrada la ignora por completo (ya fue migrada).
func calcularTotales(f *model.Factura, sums map[string]decimal.Decimal) totales {
	pagado := sums[model.PagoTipoPago].Sub(sums[model.PagoTipoReembolso])
	if len(sums) == 0 && f.Sena.IsPositive() {
		pagado = f.Sena
	}
	penalidades := sums[model.PagoTipoPenalidad]

	saldo := f.PrecioTotal.Add(penalidades).Sub(pagado)
	if saldo.IsNegative() {
		saldo = decimal.Zero
	}

	var estadoPago string
	switch {
	case saldo.LessThanOrEqual(epsilonSaldo):
		estadoPago = model.PagoPagado
	case pagado.IsPositive():
		estadoPago = model.PagoParcial
	default:
		estadoPago = model.PagoImpago
	}

	return totales{pagado: pagado, penalidades: penalidades, saldo: saldo, estadoPago: estadoPago}
}

func (s *pagoService) totalesTx(tx *gorm.DB, f *model.Factura) (totales, error) {
	sums, err := s.pagoRepo.SumPorTipoTx(tx, f.ID)
	if err != nil {
		return totales{}, err
	}
	return calcularTotales(f, sums), nil
}

func (s *pagoService) SaldoPendienteTx(tx *gorm.DB, f *model.Factura) (decimal.Decimal, error) {
	t, err := s.totalesTx(tx, f)
	if err != nil {
		return decimal.Zero, err
	}
	return t.saldo, nil
}

// migrarSenaTx materializes the legacy seña as the factura's first ledger
// entry. Idempotente: solo actúa con el libro vacío, así nunca existe más de
// una entrada migrada por factura.
func (s *pagoService) migrarSenaTx(tx *gorm.DB, f *model.Factura, actor Actor) (bool, error) {
	if !f.Sena.IsPositive() {
		return false, nil
	}
	n, err := s.pagoRepo.CountByFacturaTx(tx, f.ID)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	notas := "Seña migrada del registro original"
	actorID := actor.ID
	entrada := &model.Pago{
		FacturaID:     f.ID,
		Monto:         f.Sena,
		Tipo:          model.PagoTipoPago,
		Metodo:        "efectivo",
		FechaPago:     f.FechaFactura,
		MigradoDeSena: true,
		Notas:         &notas,
		CreadoPor:     &actorID,
	}
	if err := s.pagoRepo.CreateTx(tx, entrada); err != nil {
		return false, err
	}

	log.Info().
		Str("factura_id", f.ID.String()).
		Str("monto", f.Sena.StringFixed(2)).
		Msg("seña legacy materializada en el libro de pagos")
	return true, nil
}

// ── Registro de movimientos ───────────────────────────────────────────────────

func (s *pagoService) RegistrarPago(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.RegistrarPagoRequest) (*dto.PagoResponse, error) {
	pago, f, err := s.registrarMovimiento(ctx, facturaID, actor, model.PagoTipoPago, req.Monto, req.Metodo, req.Notas)
	if err != nil {
		return nil, err
	}

	s.auditar(ctx, actor, "pago_registrado", facturaID,
		fmt.Sprintf("Pago de $%s sobre factura #%d", req.Monto.StringFixed(2), f.Numero))

	if req.EmailRecibo != nil && *req.EmailRecibo != "" && s.dispatcher != nil {
		_ = s.dispatcher.EnqueueEmail(ctx, worker.EmailJobPayload{
			ToEmail: *req.EmailRecibo,
			Subject: fmt.Sprintf("Recibo de pago — Factura #%d", f.Numero),
			Body: fmt.Sprintf(
				"Recibimos su pago de $%s (%s) sobre la factura #%d.\nSaldo pendiente: $%s.\n\nGracias por su confianza.",
				req.Monto.StringFixed(2), req.Metodo, f.Numero, f.SaldoPendiente.StringFixed(2)),
		})
	}
	return pagoToResponse(pago), nil
}

func (s *pagoService) RegistrarReembolso(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.RegistrarReembolsoRequest) (*dto.PagoResponse, error) {
	pago, f, err := s.registrarMovimiento(ctx, facturaID, actor, model.PagoTipoReembolso, req.Monto, req.Metodo, req.Notas)
	if err != nil {
		return nil, err
	}
	s.auditar(ctx, actor, "reembolso_registrado", facturaID,
		fmt.Sprintf("Reembolso de $%s sobre factura #%d", req.Monto.StringFixed(2), f.Numero))
	return pagoToResponse(pago), nil
}

func (s *pagoService) RegistrarPenalidad(ctx context.Context, facturaID uuid.UUID, actor Actor, req dto.RegistrarPenalidadRequest) (*dto.PagoResponse, error) {
	metodo := req.Metodo
	if metodo == "" {
		metodo = "efectivo"
	}
	pago, f, err := s.registrarMovimiento(ctx, facturaID, actor, model.PagoTipoPenalidad, req.Monto, metodo, req.Notas)
	if err != nil {
		return nil, err
	}
	s.auditar(ctx, actor, "penalidad_registrada", facturaID,
		fmt.Sprintf("Penalidad de $%s sobre factura #%d", req.Monto.StringFixed(2), f.Numero))
	return pagoToResponse(pago), nil
}

// registrarMovimiento is the single write path for the ledger. Orden dentro de
// la transacción: lock de la factura, migración de seña, validación de saldo,
// inserción y recálculo de los caches.
func (s *pagoService) registrarMovimiento(ctx context.Context, facturaID uuid.UUID, actor Actor, tipo string, monto decimal.Decimal, metodo string, notas *string) (*model.Pago, *model.Factura, error) {
	if !monto.IsPositive() {
		return nil, nil, bizerr.New(bizerr.InvalidArgument, "el monto debe ser mayor que cero")
	}

	var pago *model.Pago
	var factura *model.Factura
	txErr := runTx(ctx, s.pagoRepo.DB(), func(tx *gorm.DB) error {
		f, err := s.facturaRepo.FindByIDTx(tx, facturaID, true)
		if err != nil {
			return notFound(err, "factura no encontrada")
		}
		if f.Estado == model.EstadoAnulada {
			return bizerr.New(bizerr.Canceled, "no se registran movimientos sobre una factura anulada")
		}

		if _, err := s.migrarSenaTx(tx, f, actor); err != nil {
			return err
		}

		if tipo == model.PagoTipoPago {
			t, err := s.totalesTx(tx, f)
			if err != nil {
				return err
			}
			if monto.GreaterThan(t.saldo.Add(epsilonSaldo)) {
				return bizerr.New(bizerr.ExceedsBalance,
					fmt.Sprintf("el pago de $%s supera el saldo pendiente de $%s",
						monto.StringFixed(2), t.saldo.StringFixed(2)))
			}
		}

		actorID := actor.ID
		pago = &model.Pago{
			FacturaID: f.ID,
			Monto:     monto,
			Tipo:      tipo,
			Metodo:    metodo,
			FechaPago: hoy(),
			Notas:     notas,
			CreadoPor: &actorID,
		}
		if err := s.pagoRepo.CreateTx(tx, pago); err != nil {
			return err
		}

		if err := s.actualizarCachesTx(tx, f); err != nil {
			return err
		}
		factura = f
		return nil
	})
	if txErr != nil {
		return nil, nil, txErr
	}
	return pago, factura, nil
}

// actualizarCachesTx recomputes saldo_pendiente y estado_pago after a ledger
// mutation and writes them back. También refresca f en memoria para que el
// caller arme la respuesta sin releer.
func (s *pagoService) actualizarCachesTx(tx *gorm.DB, f *model.Factura) error {
	t, err := s.totalesTx(tx, f)
	if err != nil {
		return err
	}
	if err := s.facturaRepo.UpdateCamposTx(tx, f.ID, map[string]interface{}{
		"saldo_pendiente": t.saldo,
		"estado_pago":     t.estadoPago,
	}); err != nil {
		return err
	}
	f.SaldoPendiente = t.saldo
	f.EstadoPago = t.estadoPago
	return nil
}

// ── Eliminación (supervisores) ────────────────────────────────────────────────

// EliminarPago removes one ledger entry. Gated por rol y auditado con motivo:
// es la única mutación destructiva del libro.
func (s *pagoService) EliminarPago(ctx context.Context, pagoID uuid.UUID, actor Actor, req dto.EliminarPagoRequest) error {
	if !s.permisos.PuedeEliminarPago(actor) {
		return bizerr.New(bizerr.Unauthorized, "solo un supervisor o administrador puede eliminar pagos")
	}

	pago, err := s.pagoRepo.FindByID(ctx, pagoID)
	if err != nil {
		return notFound(err, "pago no encontrado")
	}

	txErr := runTx(ctx, s.pagoRepo.DB(), func(tx *gorm.DB) error {
		f, err := s.facturaRepo.FindByIDTx(tx, pago.FacturaID, true)
		if err != nil {
			return notFound(err, "factura no encontrada")
		}
		if err := s.pagoRepo.DeleteTx(tx, pagoID); err != nil {
			return err
		}
		return s.actualizarCachesTx(tx, f)
	})
	if txErr != nil {
		return txErr
	}

	s.auditar(ctx, actor, "pago_eliminado", pago.FacturaID,
		fmt.Sprintf("Eliminado %s de $%s: %s", pago.Tipo, pago.Monto.StringFixed(2), req.Motivo))
	return nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *pagoService) EstadoCuenta(ctx context.Context, facturaID uuid.UUID) (*dto.EstadoCuentaResponse, error) {
	f, err := s.facturaRepo.FindByID(ctx, facturaID)
	if err != nil {
		return nil, notFound(err, "factura no encontrada")
	}
	sums, err := s.pagoRepo.SumPorTipo(ctx, facturaID)
	if err != nil {
		return nil, err
	}
	t := calcularTotales(f, sums)

	pagos, err := s.pagoRepo.ListByFactura(ctx, facturaID)
	if err != nil {
		return nil, err
	}
	respPagos := make([]dto.PagoResponse, 0, len(pagos))
	for i := range pagos {
		respPagos = append(respPagos, *pagoToResponse(&pagos[i]))
	}

	return &dto.EstadoCuentaResponse{
		FacturaID:        f.ID.String(),
		PrecioTotal:      f.PrecioTotal,
		TotalPagado:      t.pagado,
		TotalPenalidades: t.penalidades,
		SaldoPendiente:   t.saldo,
		EstadoPago:       t.estadoPago,
		Pagos:            respPagos,
	}, nil
}

func (s *pagoService) TotalPagado(ctx context.Context, facturaID uuid.UUID) (decimal.Decimal, error) {
	t, err := s.totalesDe(ctx, facturaID)
	if err != nil {
		return decimal.Zero, err
	}
	return t.pagado, nil
}

func (s *pagoService) TotalPenalidades(ctx context.Context, facturaID uuid.UUID) (decimal.Decimal, error) {
	t, err := s.totalesDe(ctx, facturaID)
	if err != nil {
		return decimal.Zero, err
	}
	return t.penalidades, nil
}

func (s *pagoService) SaldoPendiente(ctx context.Context, facturaID uuid.UUID) (decimal.Decimal, error) {
	t, err := s.totalesDe(ctx, facturaID)
	if err != nil {
		return decimal.Zero, err
	}
	return t.saldo, nil
}

func (s *pagoService) totalesDe(ctx context.Context, facturaID uuid.UUID) (totales, error) {
	f, err := s.facturaRepo.FindByID(ctx, facturaID)
	if err != nil {
		return totales{}, notFound(err, "factura no encontrada")
	}
	sums, err := s.pagoRepo.SumPorTipo(ctx, facturaID)
	if err != nil {
		return totales{}, err
	}
	return calcularTotales(f, sums), nil
}

func (s *pagoService) auditar(ctx context.Context, actor Actor, accion string, facturaID uuid.UUID, descripcion string) {
	if s.dispatcher == nil {
		return
	}
	actorID := actor.ID.String()
	_ = s.dispatcher.EnqueueAuditoria(ctx, worker.AuditoriaJobPayload{
		Accion:      accion,
		ActorID:     &actorID,
		EntidadTipo: "factura",
		EntidadID:   facturaID.String(),
		Descripcion: descripcion,
	})
}

func pagoToResponse(p *model.Pago) *dto.PagoResponse {
	return &dto.PagoResponse{
		ID:            p.ID.String(),
		FacturaID:     p.FacturaID.String(),
		Monto:         p.Monto,
		Tipo:          p.Tipo,
		Metodo:        p.Metodo,
		FechaPago:     fechaStr(p.FechaPago),
		MigradoDeSena: p.MigradoDeSena,
		Notas:         p.Notas,
	}
}
