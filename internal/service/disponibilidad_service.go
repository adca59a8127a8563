package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vestipos/internal/bizerr"
	"vestipos/internal/dto"
	"vestipos/internal/model"
	"vestipos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const calendarioCacheTTL = 5 * time.Minute

// DisponibilidadService answers "¿está libre esta prenda en estas fechas?".
// Las consultas son advisory (sin lock): la verificación definitiva corre
// dentro de la transacción de reserva en CicloService. Intervalos semiabiertos
// [retiro, devolución) — devolver y retirar el mismo día no choca.
type DisponibilidadService interface {
	Consultar(ctx context.Context, filter dto.DisponibilidadFilter) (*dto.DisponibilidadResponse, error)
	ConsultarVarios(ctx context.Context, req dto.ConsultaVariosRequest) (*dto.ConsultaVariosResponse, error)
	ValidarFactura(ctx context.Context, facturaID uuid.UUID, filter dto.ValidarFacturaFilter) (*dto.ConsultaVariosResponse, error)
	CalendarioMensual(ctx context.Context, productoID uuid.UUID, anio, mes int) (*dto.CalendarioResponse, error)
}

type disponibilidadService struct {
	facturaRepo  repository.FacturaRepository
	productoRepo repository.ProductoRepository
	rdb          *redis.Client
}

func NewDisponibilidadService(
	facturaRepo repository.FacturaRepository,
	productoRepo repository.ProductoRepository,
	rdb *redis.Client,
) DisponibilidadService {
	return &disponibilidadService{facturaRepo: facturaRepo, productoRepo: productoRepo, rdb: rdb}
}

func (s *disponibilidadService) Consultar(ctx context.Context, filter dto.DisponibilidadFilter) (*dto.DisponibilidadResponse, error) {
	pid, err := uuid.Parse(filter.ProductoID)
	if err != nil {
		return nil, bizerr.New(bizerr.InvalidArgument, "producto_id inválido")
	}
	desde, err := parseFecha(filter.Desde)
	if err != nil {
		return nil, err
	}
	hasta, err := parseFecha(filter.Hasta)
	if err != nil {
		return nil, err
	}

	var excluir *uuid.UUID
	if filter.ExcluirFacturaID != "" {
		id, err := uuid.Parse(filter.ExcluirFacturaID)
		if err != nil {
			return nil, bizerr.New(bizerr.InvalidArgument, "excluir_factura_id inválido")
		}
		excluir = &id
	}
	return s.consultarUno(ctx, pid, desde, hasta, excluir)
}

func (s *disponibilidadService) ConsultarVarios(ctx context.Context, req dto.ConsultaVariosRequest) (*dto.ConsultaVariosResponse, error) {
	desde, err := parseFecha(req.Desde)
	if err != nil {
		return nil, err
	}
	hasta, err := parseFecha(req.Hasta)
	if err != nil {
		return nil, err
	}
	var excluir *uuid.UUID
	if req.ExcluirFacturaID != nil {
		id, err := uuid.Parse(*req.ExcluirFacturaID)
		if err != nil {
			return nil, bizerr.New(bizerr.InvalidArgument, "excluir_factura_id inválido")
		}
		excluir = &id
	}

	resp := &dto.ConsultaVariosResponse{
		TodosDisponibles: true,
		Productos:        make(map[string]dto.DisponibilidadResponse, len(req.ProductoIDs)),
	}
	for _, raw := range req.ProductoIDs {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return nil, bizerr.New(bizerr.InvalidArgument, "producto_id inválido: "+raw)
		}
		uno, err := s.consultarUno(ctx, pid, desde, hasta, excluir)
		if err != nil {
			return nil, err
		}
		resp.Productos[raw] = *uno
		if !uno.Disponible {
			resp.TodosDisponibles = false
		}
	}
	return resp, nil
}

// ValidarFactura re-checks every prenda of an existing factura against a
// proposed date range, excluding the factura itself. Se usa al editar las
// fechas de una reserva ya tomada: los choques con otras facturas se
// reportan, el choque consigo misma no.
func (s *disponibilidadService) ValidarFactura(ctx context.Context, facturaID uuid.UUID, filter dto.ValidarFacturaFilter) (*dto.ConsultaVariosResponse, error) {
	f, err := s.facturaRepo.FindByID(ctx, facturaID)
	if err != nil {
		return nil, notFound(err, "factura no encontrada")
	}
	desde, err := parseFecha(filter.Desde)
	if err != nil {
		return nil, err
	}
	hasta, err := parseFecha(filter.Hasta)
	if err != nil {
		return nil, err
	}

	resp := &dto.ConsultaVariosResponse{
		TodosDisponibles: true,
		Productos:        make(map[string]dto.DisponibilidadResponse),
	}
	for _, pid := range productosDe(f) {
		uno, err := s.consultarUno(ctx, pid, desde, hasta, &f.ID)
		if err != nil {
			return nil, err
		}
		resp.Productos[pid.String()] = *uno
		if !uno.Disponible {
			resp.TodosDisponibles = false
		}
	}
	return resp, nil
}

// consultarUno is the shared advisory check. Un rango mal formado responde
// "no disponible" con mensaje en vez de error: el frontend lo muestra inline
// mientras el usuario sigue tipeando fechas.
func (s *disponibilidadService) consultarUno(ctx context.Context, productoID uuid.UUID, desde, hasta time.Time, excluir *uuid.UUID) (*dto.DisponibilidadResponse, error) {
	if _, err := s.productoRepo.FindByID(ctx, productoID); err != nil {
		return nil, notFound(err, "producto no encontrado")
	}

	resp := &dto.DisponibilidadResponse{
		ProductoID: productoID.String(),
		Conflictos: []dto.ConflictoResponse{},
	}
	if !hasta.After(desde) {
		resp.Disponible = false
		resp.Mensaje = "rango de fechas inválido: la devolución debe ser posterior al retiro"
		return resp, nil
	}

	conflictos, err := s.facturaRepo.BuscarConflictos(ctx, repository.ConflictoQuery{
		ProductoID:       productoID,
		Desde:            desde,
		Hasta:            hasta,
		ExcluirFacturaID: excluir,
	})
	if err != nil {
		return nil, err
	}

	for i := range conflictos {
		resp.Conflictos = append(resp.Conflictos, conflictoToResponse(&conflictos[i]))
	}
	resp.Disponible = len(conflictos) == 0
	if !resp.Disponible {
		resp.Mensaje = "el producto no está disponible en el rango solicitado"
	}
	return resp, nil
}

// CalendarioMensual projects the month day by day for the booking calendar.
// Cache-aside en Redis con TTL corto: el calendario se consulta mucho más de
// lo que cambia y una lectura levemente vieja no compromete nada — la reserva
// real siempre valida con lock.
func (s *disponibilidadService) CalendarioMensual(ctx context.Context, productoID uuid.UUID, anio, mes int) (*dto.CalendarioResponse, error) {
	if mes < 1 || mes > 12 {
		return nil, bizerr.New(bizerr.InvalidArgument, fmt.Sprintf("mes inválido: %d", mes))
	}
	if _, err := s.productoRepo.FindByID(ctx, productoID); err != nil {
		return nil, notFound(err, "producto no encontrado")
	}

	cacheKey := fmt.Sprintf("calendario:%s:%04d-%02d", productoID, anio, mes)
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var cached dto.CalendarioResponse
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	inicio := time.Date(anio, time.Month(mes), 1, 0, 0, 0, 0, time.UTC)
	fin := inicio.AddDate(0, 1, 0)

	conflictos, err := s.facturaRepo.BuscarConflictos(ctx, repository.ConflictoQuery{
		ProductoID: productoID,
		Desde:      inicio,
		Hasta:      fin,
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.CalendarioResponse{
		ProductoID: productoID.String(),
		Anio:       anio,
		Mes:        mes,
		Dias:       make(map[string]dto.DiaCalendario),
	}
	for dia := inicio; dia.Before(fin); dia = dia.AddDate(0, 0, 1) {
		siguiente := dia.AddDate(0, 0, 1)
		entrada := dto.DiaCalendario{Disponible: true}
		for i := range conflictos {
			c := &conflictos[i]
			if c.FechaRetiro.Before(siguiente) && c.FechaDevolucion.After(dia) {
				entrada.Disponible = false
				entrada.FacturaNumero = &c.Numero
				entrada.Estado = &c.Estado
				if c.Cliente != nil {
					entrada.Cliente = &c.Cliente.Nombre
				}
				break
			}
		}
		resp.Dias[fechaStr(dia)] = entrada
	}

	if s.rdb != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, data, calendarioCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Str("key", cacheKey).Msg("calendario: cache write failed")
			}
		}
	}
	return resp, nil
}

func conflictoToResponse(f *model.Factura) dto.ConflictoResponse {
	c := dto.ConflictoResponse{
		FacturaID: f.ID.String(),
		Numero:    f.Numero,
		Estado:    f.Estado,
	}
	if f.FechaRetiro != nil {
		c.FechaRetiro = fechaStr(*f.FechaRetiro)
	}
	if f.FechaDevolucion != nil {
		c.FechaDevolucion = fechaStr(*f.FechaDevolucion)
	}
	if f.Cliente != nil {
		c.Cliente = f.Cliente.Nombre
	}
	return c
}
