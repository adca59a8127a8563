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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FacturaService interface {
	CrearFactura(ctx context.Context, actor Actor, req dto.CrearFacturaRequest) (*dto.FacturaResponse, error)
	ObtenerFactura(ctx context.Context, id uuid.UUID) (*dto.FacturaResponse, error)
	ListFacturas(ctx context.Context, filter dto.FacturaFilter) (*dto.FacturaListResponse, error)
}

type facturaService struct {
	facturaRepo  repository.FacturaRepository
	clienteRepo  repository.ClienteRepository
	productoRepo repository.ProductoRepository
	dispatcher   *worker.Dispatcher
}

func NewFacturaService(
	facturaRepo repository.FacturaRepository,
	clienteRepo repository.ClienteRepository,
	productoRepo repository.ProductoRepository,
	dispatcher *worker.Dispatcher,
) FacturaService {
	return &facturaService{
		facturaRepo:  facturaRepo,
		clienteRepo:  clienteRepo,
		productoRepo: productoRepo,
		dispatcher:   dispatcher,
	}
}

// ── CrearFactura ──────────────────────────────────────────────────────────────
// Pre-flight outside the TX (cliente, productos, fechas, precios), then an
// ACID block for numbering + insert. La factura nace en borrador: el chequeo
// de solapamiento con lock recién corre al pasar a reservada.

func (s *facturaService) CrearFactura(ctx context.Context, actor Actor, req dto.CrearFacturaRequest) (*dto.FacturaResponse, error) {
	clienteID, err := uuid.Parse(req.ClienteID)
	if err != nil {
		return nil, bizerr.New(bizerr.InvalidArgument, "cliente_id inválido")
	}
	cliente, err := s.clienteRepo.FindByID(ctx, clienteID)
	if err != nil {
		return nil, notFound(err, "cliente no encontrado")
	}

	fechaFactura := hoy()
	if req.FechaFactura != "" {
		fechaFactura, err = parseFecha(req.FechaFactura)
		if err != nil {
			return nil, err
		}
	}
	fechaEvento, err := parseFechaOpcional(req.FechaEvento)
	if err != nil {
		return nil, err
	}
	fechaRetiro, err := parseFechaOpcional(req.FechaRetiro)
	if err != nil {
		return nil, err
	}
	fechaDevolucion, err := parseFechaOpcional(req.FechaDevolucion)
	if err != nil {
		return nil, err
	}

	if model.EsAlquiler(req.TipoOperacion) {
		if fechaRetiro == nil || fechaDevolucion == nil {
			return nil, bizerr.New(bizerr.InvalidArgument,
				"un alquiler requiere fecha de retiro y de devolución")
		}
		if !fechaDevolucion.After(*fechaRetiro) {
			return nil, bizerr.New(bizerr.InvalidArgument,
				"la fecha de devolución debe ser posterior a la de retiro")
		}
	}

	// Resolve items and calculate the total (pre-flight, outside TX)
	var items []model.FacturaItem
	total := decimal.Zero
	for _, item := range req.Items {
		resolved := model.FacturaItem{
			TipoItem:       item.TipoItem,
			Descripcion:    item.Descripcion,
			PrecioUnitario: item.PrecioUnitario,
		}
		if item.Medidas != nil {
			resolved.Medidas = model.Medidas{
				Busto:   item.Medidas.Busto,
				Cintura: item.Medidas.Cintura,
				Cadera:  item.Medidas.Cadera,
				Largo:   item.Medidas.Largo,
			}
		}

		if item.TipoItem == model.ItemVestido {
			if item.ProductoID == nil {
				return nil, bizerr.New(bizerr.InvalidArgument,
					"un ítem vestido debe referenciar un producto del inventario")
			}
		}
		if item.ProductoID != nil {
			pid, err := uuid.Parse(*item.ProductoID)
			if err != nil {
				return nil, bizerr.New(bizerr.InvalidArgument, "producto_id inválido: "+*item.ProductoID)
			}
			p, err := s.productoRepo.FindByID(ctx, pid)
			if err != nil {
				return nil, notFound(err, fmt.Sprintf("producto %s no encontrado", *item.ProductoID))
			}
			if !p.Activo {
				return nil, bizerr.New(bizerr.InvalidArgument,
					fmt.Sprintf("el producto %s está inactivo", p.Nombre))
			}
			resolved.ProductoID = &pid
			if resolved.Descripcion == "" {
				resolved.Descripcion = p.Nombre
			}
			// Sin precio explícito, toma el del inventario según la operación
			if resolved.PrecioUnitario.IsZero() {
				if model.EsAlquiler(req.TipoOperacion) {
					resolved.PrecioUnitario = p.PrecioAlquiler
				} else {
					resolved.PrecioUnitario = p.PrecioVenta
				}
			}
		}

		total = total.Add(resolved.PrecioUnitario)
		items = append(items, resolved)
	}

	// Estado de pago inicial: derivado de la seña legacy (si la hay) contra
	// un libro todavía vacío.
	actorID := actor.ID
	factura := model.Factura{
		ClienteID:       clienteID,
		TipoOperacion:   req.TipoOperacion,
		Estado:          model.EstadoBorrador,
		PrecioTotal:     total,
		Sena:            req.Sena,
		FechaFactura:    fechaFactura,
		FechaEvento:     fechaEvento,
		FechaRetiro:     fechaRetiro,
		FechaDevolucion: fechaDevolucion,
		CreadaPor:       &actorID,
		Items:           items,
	}
	t := calcularTotales(&factura, map[string]decimal.Decimal{})
	factura.SaldoPendiente = t.saldo
	factura.EstadoPago = t.estadoPago

	txErr := runTx(ctx, s.facturaRepo.DB(), func(tx *gorm.DB) error {
		numero, err := s.facturaRepo.NextNumero(ctx, tx)
		if err != nil {
			return err
		}
		factura.Numero = numero
		return s.facturaRepo.Create(ctx, tx, &factura)
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.dispatcher != nil {
		actorStr := actor.ID.String()
		_ = s.dispatcher.EnqueueAuditoria(ctx, worker.AuditoriaJobPayload{
			Accion:      "factura_creada",
			ActorID:     &actorStr,
			EntidadTipo: "factura",
			EntidadID:   factura.ID.String(),
			Descripcion: fmt.Sprintf("Factura #%d (%s) creada para %s por $%s",
				factura.Numero, factura.TipoOperacion, cliente.Nombre, total.StringFixed(2)),
		})
	}

	factura.Cliente = cliente
	return facturaToResponse(&factura), nil
}

func (s *facturaService) ObtenerFactura(ctx context.Context, id uuid.UUID) (*dto.FacturaResponse, error) {
	f, err := s.facturaRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "factura no encontrada")
	}
	return facturaToResponse(f), nil
}

func (s *facturaService) ListFacturas(ctx context.Context, filter dto.FacturaFilter) (*dto.FacturaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	facturas, totalCount, err := s.facturaRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.FacturaResponse, 0, len(facturas))
	for i := range facturas {
		data = append(data, *facturaToResponse(&facturas[i]))
	}
	return &dto.FacturaListResponse{
		Data:  data,
		Total: totalCount,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func facturaToResponse(f *model.Factura) *dto.FacturaResponse {
	resp := &dto.FacturaResponse{
		ID:                  f.ID.String(),
		Numero:              f.Numero,
		ClienteID:           f.ClienteID.String(),
		TipoOperacion:       f.TipoOperacion,
		Estado:              f.Estado,
		EstadoPago:          f.EstadoPago,
		PrecioTotal:         f.PrecioTotal,
		SaldoPendiente:      f.SaldoPendiente,
		FechaFactura:        fechaStr(f.FechaFactura),
		FechaEvento:         fechaPtrStr(f.FechaEvento),
		FechaRetiro:         fechaPtrStr(f.FechaRetiro),
		FechaDevolucion:     fechaPtrStr(f.FechaDevolucion),
		EntregadaAt:         timestampPtrStr(f.EntregadaAt),
		DevueltaAt:          timestampPtrStr(f.DevueltaAt),
		CondicionDevolucion: f.CondicionDevolucion,
		Items:               []dto.ItemFacturaResponse{},
		Pagos:               []dto.PagoResponse{},
		CreatedAt:           f.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if f.Cliente != nil {
		resp.Cliente = f.Cliente.Nombre
	}
	for i := range f.Items {
		item := &f.Items[i]
		itemResp := dto.ItemFacturaResponse{
			ID:             item.ID.String(),
			TipoItem:       item.TipoItem,
			Descripcion:    item.Descripcion,
			PrecioUnitario: item.PrecioUnitario,
		}
		if item.ProductoID != nil {
			pid := item.ProductoID.String()
			itemResp.ProductoID = &pid
		}
		if item.Producto != nil {
			itemResp.Producto = item.Producto.Nombre
		}
		resp.Items = append(resp.Items, itemResp)
	}
	for i := range f.Pagos {
		resp.Pagos = append(resp.Pagos, *pagoToResponse(&f.Pagos[i]))
	}
	return resp
}
