package service

import (
	"context"

	"vestipos/internal/bizerr"
	"vestipos/internal/dto"
	"vestipos/internal/model"
	"vestipos/internal/repository"

	"github.com/google/uuid"
)

// ProductoService defines the business logic contract for the garment catalog.
type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	ObtenerPorCodigo(ctx context.Context, codigo string) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error
	Reactivar(ctx context.Context, id uuid.UUID) error
}

type productoService struct {
	repo repository.ProductoRepository
}

func NewProductoService(repo repository.ProductoRepository) ProductoService {
	return &productoService{repo: repo}
}

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if _, err := s.repo.FindByCodigo(ctx, req.Codigo); err == nil {
		return nil, bizerr.New(bizerr.InvalidArgument, "ya existe un producto con el código "+req.Codigo)
	}

	talle := req.Talle
	if talle == "" {
		talle = "a_medida"
	}
	p := &model.Producto{
		Codigo:         req.Codigo,
		Nombre:         req.Nombre,
		Descripcion:    req.Descripcion,
		Categoria:      req.Categoria,
		Talle:          talle,
		PrecioAlquiler: req.PrecioAlquiler,
		PrecioVenta:    req.PrecioVenta,
		Estado:         model.ProductoDisponible,
		Activo:         true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return productoToResponse(p), nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "producto no encontrado")
	}
	return productoToResponse(p), nil
}

func (s *productoService) ObtenerPorCodigo(ctx context.Context, codigo string) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByCodigo(ctx, codigo)
	if err != nil {
		return nil, notFound(err, "producto no encontrado")
	}
	return productoToResponse(p), nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	productos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		data = append(data, *productoToResponse(&productos[i]))
	}
	return &dto.ProductoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *productoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "producto no encontrado")
	}
	if req.Nombre != "" {
		p.Nombre = req.Nombre
	}
	if req.Descripcion != nil {
		p.Descripcion = req.Descripcion
	}
	if req.Categoria != "" {
		p.Categoria = req.Categoria
	}
	if req.Talle != "" {
		p.Talle = req.Talle
	}
	if req.PrecioAlquiler != nil {
		p.PrecioAlquiler = *req.PrecioAlquiler
	}
	if req.PrecioVenta != nil {
		p.PrecioVenta = *req.PrecioVenta
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return productoToResponse(p), nil
}

func (s *productoService) Desactivar(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "producto no encontrado")
	}
	if p.EstaBloqueado {
		return bizerr.New(bizerr.PreconditionFailed,
			"el producto está comprometido en una factura activa y no puede desactivarse")
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *productoService) Reactivar(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFound(err, "producto no encontrado")
	}
	return s.repo.Reactivar(ctx, id)
}

func productoToResponse(p *model.Producto) *dto.ProductoResponse {
	return &dto.ProductoResponse{
		ID:             p.ID.String(),
		Codigo:         p.Codigo,
		Nombre:         p.Nombre,
		Descripcion:    p.Descripcion,
		Categoria:      p.Categoria,
		Talle:          p.Talle,
		PrecioAlquiler: p.PrecioAlquiler,
		PrecioVenta:    p.PrecioVenta,
		Estado:         p.Estado,
		EstaBloqueado:  p.EstaBloqueado,
		Activo:         p.Activo,
	}
}
