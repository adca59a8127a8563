package service_test

import (
	"context"
	"time"

	"vestipos/internal/dto"
	"vestipos/internal/model"
	"vestipos/internal/repository"
	"vestipos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubFacturaRepo is an in-memory FacturaRepository. Transactions are a no-op
// (DB() returns nil so runTx calls the closure directly).
type stubFacturaRepo struct {
	facturas  map[uuid.UUID]*model.Factura
	numeroSeq int
}

func newStubFacturaRepo() *stubFacturaRepo {
	return &stubFacturaRepo{facturas: make(map[uuid.UUID]*model.Factura)}
}

func (r *stubFacturaRepo) DB() *gorm.DB { return nil }

func (r *stubFacturaRepo) Create(_ context.Context, _ *gorm.DB, f *model.Factura) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	r.facturas[f.ID] = f
	return nil
}

func (r *stubFacturaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Factura, error) {
	f, ok := r.facturas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (r *stubFacturaRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID, _ bool) (*model.Factura, error) {
	f, ok := r.facturas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (r *stubFacturaRepo) List(_ context.Context, _ dto.FacturaFilter) ([]model.Factura, int64, error) {
	var out []model.Factura
	for _, f := range r.facturas {
		out = append(out, *f)
	}
	return out, int64(len(out)), nil
}

func (r *stubFacturaRepo) NextNumero(_ context.Context, _ *gorm.DB) (int, error) {
	r.numeroSeq++
	return r.numeroSeq, nil
}

// UpdateCamposTx mirrors the column-map write of the real repository onto the
// in-memory struct so later reads observe the mutation.
func (r *stubFacturaRepo) UpdateCamposTx(_ *gorm.DB, id uuid.UUID, campos map[string]interface{}) error {
	f, ok := r.facturas[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range campos {
		switch k {
		case "estado":
			f.Estado = v.(string)
		case "estado_pago":
			f.EstadoPago = v.(string)
		case "saldo_pendiente":
			f.SaldoPendiente = v.(decimal.Decimal)
		case "entregada_at":
			t := v.(time.Time)
			f.EntregadaAt = &t
		case "entregada_por":
			u := v.(uuid.UUID)
			f.EntregadaPor = &u
		case "devuelta_at":
			t := v.(time.Time)
			f.DevueltaAt = &t
		case "devuelta_por":
			u := v.(uuid.UUID)
			f.DevueltaPor = &u
		case "condicion_devolucion":
			c := v.(string)
			f.CondicionDevolucion = &c
		case "anulada_at":
			t := v.(time.Time)
			f.AnuladaAt = &t
		case "motivo_anulacion":
			m := v.(string)
			f.MotivoAnulacion = &m
		}
	}
	return nil
}

func (r *stubFacturaRepo) SoftDeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.facturas, id)
	return nil
}

// buscarConflictos replicates the half-open overlap predicate of the SQL
// repository: estados activos, tipos de alquiler y
// fecha_retiro < Hasta AND fecha_devolucion > Desde.
func (r *stubFacturaRepo) buscarConflictos(q repository.ConflictoQuery) []model.Factura {
	var out []model.Factura
	for _, f := range r.facturas {
		if q.ExcluirFacturaID != nil && f.ID == *q.ExcluirFacturaID {
			continue
		}
		if f.Estado != model.EstadoReservada && f.Estado != model.EstadoEntregada {
			continue
		}
		if !model.EsAlquiler(f.TipoOperacion) {
			continue
		}
		if f.FechaRetiro == nil || f.FechaDevolucion == nil {
			continue
		}
		referencia := false
		for _, item := range f.Items {
			if item.ProductoID != nil && *item.ProductoID == q.ProductoID {
				referencia = true
				break
			}
		}
		if !referencia {
			continue
		}
		if f.FechaRetiro.Before(q.Hasta) && f.FechaDevolucion.After(q.Desde) {
			out = append(out, *f)
		}
	}
	return out
}

func (r *stubFacturaRepo) BuscarConflictos(_ context.Context, q repository.ConflictoQuery) ([]model.Factura, error) {
	return r.buscarConflictos(q), nil
}

func (r *stubFacturaRepo) BuscarConflictosTx(_ *gorm.DB, q repository.ConflictoQuery) ([]model.Factura, error) {
	return r.buscarConflictos(q), nil
}

var _ repository.FacturaRepository = (*stubFacturaRepo)(nil)

// stubProductoRepo is an in-memory ProductoRepository.
type stubProductoRepo struct {
	productos map[uuid.UUID]*model.Producto
}

func newStubProductoRepo() *stubProductoRepo {
	return &stubProductoRepo{productos: make(map[uuid.UUID]*model.Producto)}
}

func (r *stubProductoRepo) DB() *gorm.DB { return nil }

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.productos[p.ID] = p
	return nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductoRepo) FindByCodigo(_ context.Context, codigo string) (*model.Producto, error) {
	for _, p := range r.productos {
		if p.Codigo == codigo && p.Activo {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductoRepo) List(_ context.Context, _ dto.ProductoFilter) ([]model.Producto, int64, error) {
	var out []model.Producto
	for _, p := range r.productos {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubProductoRepo) Update(_ context.Context, p *model.Producto) error {
	r.productos[p.ID] = p
	return nil
}

func (r *stubProductoRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if p, ok := r.productos[id]; ok {
		p.Activo = false
	}
	return nil
}

func (r *stubProductoRepo) Reactivar(_ context.Context, id uuid.UUID) error {
	if p, ok := r.productos[id]; ok {
		p.Activo = true
	}
	return nil
}

func (r *stubProductoRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductoRepo) ActualizarEstadoTx(_ *gorm.DB, id uuid.UUID, estado string, bloqueado bool) error {
	p, ok := r.productos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Estado = estado
	p.EstaBloqueado = bloqueado
	return nil
}

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

// stubPagoRepo is an in-memory PagoRepository.
type stubPagoRepo struct {
	pagos map[uuid.UUID]*model.Pago
}

func newStubPagoRepo() *stubPagoRepo {
	return &stubPagoRepo{pagos: make(map[uuid.UUID]*model.Pago)}
}

func (r *stubPagoRepo) DB() *gorm.DB { return nil }

func (r *stubPagoRepo) CreateTx(_ *gorm.DB, p *model.Pago) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.pagos[p.ID] = p
	return nil
}

func (r *stubPagoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Pago, error) {
	p, ok := r.pagos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubPagoRepo) ListByFactura(_ context.Context, facturaID uuid.UUID) ([]model.Pago, error) {
	var out []model.Pago
	for _, p := range r.pagos {
		if p.FacturaID == facturaID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubPagoRepo) CountByFacturaTx(_ *gorm.DB, facturaID uuid.UUID) (int64, error) {
	var n int64
	for _, p := range r.pagos {
		if p.FacturaID == facturaID {
			n++
		}
	}
	return n, nil
}

func (r *stubPagoRepo) sumPorTipo(facturaID uuid.UUID) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, p := range r.pagos {
		if p.FacturaID == facturaID {
			sums[p.Tipo] = sums[p.Tipo].Add(p.Monto)
		}
	}
	return sums
}

func (r *stubPagoRepo) SumPorTipo(_ context.Context, facturaID uuid.UUID) (map[string]decimal.Decimal, error) {
	return r.sumPorTipo(facturaID), nil
}

func (r *stubPagoRepo) SumPorTipoTx(_ *gorm.DB, facturaID uuid.UUID) (map[string]decimal.Decimal, error) {
	return r.sumPorTipo(facturaID), nil
}

func (r *stubPagoRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.pagos, id)
	return nil
}

var _ repository.PagoRepository = (*stubPagoRepo)(nil)

// stubHistorialRepo captures transition records for assertion.
type stubHistorialRepo struct {
	entradas []model.HistorialEstado
}

func (r *stubHistorialRepo) CreateTx(_ *gorm.DB, h *model.HistorialEstado) error {
	r.entradas = append(r.entradas, *h)
	return nil
}

func (r *stubHistorialRepo) ListByFactura(_ context.Context, facturaID uuid.UUID) ([]model.HistorialEstado, error) {
	var out []model.HistorialEstado
	for _, h := range r.entradas {
		if h.FacturaID == facturaID {
			out = append(out, h)
		}
	}
	return out, nil
}

var _ repository.HistorialRepository = (*stubHistorialRepo)(nil)

// ── Seed helpers ──────────────────────────────────────────────────────────────

func fecha(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fechaPtr(s string) *time.Time {
	t := fecha(s)
	return &t
}

func seedProducto(repo *stubProductoRepo, nombre string) *model.Producto {
	p := &model.Producto{
		ID:             uuid.New(),
		Codigo:         "V-" + uuid.NewString()[:8],
		Nombre:         nombre,
		Categoria:      "vestido_novia",
		Talle:          "m",
		PrecioAlquiler: decimal.NewFromInt(30000),
		PrecioVenta:    decimal.NewFromInt(90000),
		Estado:         model.ProductoDisponible,
		Activo:         true,
	}
	repo.productos[p.ID] = p
	return p
}

func seedFactura(repo *stubFacturaRepo, tipo, estado string, total decimal.Decimal, productoIDs ...uuid.UUID) *model.Factura {
	repo.numeroSeq++
	f := &model.Factura{
		ID:            uuid.New(),
		Numero:        repo.numeroSeq,
		ClienteID:     uuid.New(),
		TipoOperacion: tipo,
		Estado:        estado,
		EstadoPago:    model.PagoImpago,
		PrecioTotal:   total,
		FechaFactura:  fecha("2026-05-01"),
	}
	for _, pid := range productoIDs {
		id := pid
		f.Items = append(f.Items, model.FacturaItem{
			ID:             uuid.New(),
			FacturaID:      f.ID,
			ProductoID:     &id,
			TipoItem:       model.ItemVestido,
			Descripcion:    "Vestido",
			PrecioUnitario: total,
		})
	}
	repo.facturas[f.ID] = f
	return f
}

// ── Service factories ─────────────────────────────────────────────────────────

type entorno struct {
	facturaRepo   *stubFacturaRepo
	productoRepo  *stubProductoRepo
	pagoRepo      *stubPagoRepo
	historialRepo *stubHistorialRepo
	pagos         service.PagoService
	ciclo         service.CicloService
}

func nuevoEntorno() *entorno {
	e := &entorno{
		facturaRepo:   newStubFacturaRepo(),
		productoRepo:  newStubProductoRepo(),
		pagoRepo:      newStubPagoRepo(),
		historialRepo: &stubHistorialRepo{},
	}
	permisos := service.NewPermisos()
	e.pagos = service.NewPagoService(e.pagoRepo, e.facturaRepo, permisos, nil)
	e.ciclo = service.NewCicloService(e.facturaRepo, e.productoRepo, e.historialRepo, e.pagos, permisos, nil)
	return e
}

func vendedor() service.Actor {
	return service.Actor{ID: uuid.New(), Rol: service.RolVendedor}
}

func supervisor() service.Actor {
	return service.Actor{ID: uuid.New(), Rol: service.RolSupervisor}
}
