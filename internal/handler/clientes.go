package handler

import (
	"net/http"
	"strconv"

	"vestipos/internal/apierror"
	"vestipos/internal/dto"
	"vestipos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ClientesHandler struct {
	clientes service.ClienteService
}

func NewClientesHandler(clientes service.ClienteService) *ClientesHandler {
	return &ClientesHandler{clientes: clientes}
}

// Crear godoc
// @Summary      Crear cliente
// @Tags         clientes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearClienteRequest true "Datos del cliente"
// @Success      201  {object} dto.ClienteResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/clientes [post]
func (h *ClientesHandler) Crear(c *gin.Context) {
	var req dto.CrearClienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.clientes.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary      Obtener cliente
// @Tags         clientes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del cliente"
// @Success      200 {object} dto.ClienteResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/clientes/{id} [get]
func (h *ClientesHandler) Obtener(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.clientes.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Buscar godoc
// @Summary      Buscar clientes
// @Description  Búsqueda por nombre (coincidencia parcial, insensible a mayúsculas).
// @Tags         clientes
// @Produce      json
// @Security     BearerAuth
// @Param        nombre query string true  "Texto a buscar"
// @Param        limit  query int    false "Máximo de resultados (default 20)"
// @Success      200 {array} dto.ClienteResponse
// @Router       /v1/clientes [get]
func (h *ClientesHandler) Buscar(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	resp, err := h.clientes.Buscar(c.Request.Context(), c.Query("nombre"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary      Actualizar cliente
// @Tags         clientes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                      true "UUID del cliente"
// @Param        body body dto.ActualizarClienteRequest true "Campos a modificar"
// @Success      200  {object} dto.ClienteResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/clientes/{id} [put]
func (h *ClientesHandler) Actualizar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.ActualizarClienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.clientes.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
