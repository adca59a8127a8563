package service

import (
	"context"

	"vestipos/internal/dto"
	"vestipos/internal/model"
	"vestipos/internal/repository"

	"github.com/google/uuid"
)

type ClienteService interface {
	Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error)
	Buscar(ctx context.Context, nombre string, limit int) ([]dto.ClienteResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarClienteRequest) (*dto.ClienteResponse, error)
}

type clienteService struct {
	repo repository.ClienteRepository
}

func NewClienteService(repo repository.ClienteRepository) ClienteService {
	return &clienteService{repo: repo}
}

func (s *clienteService) Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error) {
	c := &model.Cliente{
		Nombre:    req.Nombre,
		Telefono:  req.Telefono,
		Email:     req.Email,
		Direccion: req.Direccion,
		Notas:     req.Notas,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return clienteToResponse(c), nil
}

func (s *clienteService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "cliente no encontrado")
	}
	return clienteToResponse(c), nil
}

func (s *clienteService) Buscar(ctx context.Context, nombre string, limit int) ([]dto.ClienteResponse, error) {
	clientes, err := s.repo.Buscar(ctx, nombre, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ClienteResponse, 0, len(clientes))
	for i := range clientes {
		out = append(out, *clienteToResponse(&clientes[i]))
	}
	return out, nil
}

func (s *clienteService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarClienteRequest) (*dto.ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "cliente no encontrado")
	}
	if req.Nombre != "" {
		c.Nombre = req.Nombre
	}
	if req.Telefono != nil {
		c.Telefono = req.Telefono
	}
	if req.Email != nil {
		c.Email = req.Email
	}
	if req.Direccion != nil {
		c.Direccion = req.Direccion
	}
	if req.Notas != nil {
		c.Notas = req.Notas
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return clienteToResponse(c), nil
}

func clienteToResponse(c *model.Cliente) *dto.ClienteResponse {
	return &dto.ClienteResponse{
		ID:        c.ID.String(),
		Nombre:    c.Nombre,
		Telefono:  c.Telefono,
		Email:     c.Email,
		Direccion: c.Direccion,
		Notas:     c.Notas,
	}
}
