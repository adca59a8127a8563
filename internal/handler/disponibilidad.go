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

type DisponibilidadHandler struct {
	disponibilidad service.DisponibilidadService
}

func NewDisponibilidadHandler(disponibilidad service.DisponibilidadService) *DisponibilidadHandler {
	return &DisponibilidadHandler{disponibilidad: disponibilidad}
}

// Consultar godoc
// @Summary      Consultar disponibilidad
// @Description  Verifica si un producto está libre en un rango de fechas retiro/devolución.
// @Tags         disponibilidad
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id        query string true  "UUID del producto"
// @Param        desde              query string true  "Fecha de retiro YYYY-MM-DD"
// @Param        hasta              query string true  "Fecha de devolución YYYY-MM-DD"
// @Param        excluir_factura_id query string false "Factura a excluir de la verificación"
// @Success      200 {object} dto.DisponibilidadResponse
// @Failure      400 {object} apierror.APIError
// @Failure      404 {object} apierror.APIError
// @Router       /v1/disponibilidad [get]
func (h *DisponibilidadHandler) Consultar(c *gin.Context) {
	var filter dto.DisponibilidadFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if err := validate.Struct(&filter); err != nil {
		respondValidation(c, err)
		return
	}
	resp, err := h.disponibilidad.Consultar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConsultarVarios godoc
// @Summary      Consultar varios productos
// @Description  Verifica la disponibilidad de un conjunto de productos en el mismo rango de fechas.
// @Tags         disponibilidad
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ConsultaVariosRequest true "Productos y rango"
// @Success      200 {object} dto.ConsultaVariosResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/disponibilidad/consulta [post]
func (h *DisponibilidadHandler) ConsultarVarios(c *gin.Context) {
	var req dto.ConsultaVariosRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.disponibilidad.ConsultarVarios(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ValidarFactura godoc
// @Summary      Revalidar fechas de una factura
// @Description  Verifica cada prenda de la factura contra un rango de fechas propuesto, excluyendo la propia factura. Para ediciones de fechas de reservas ya tomadas.
// @Tags         disponibilidad
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string true "UUID de la factura"
// @Param        desde query string true "Fecha de retiro propuesta YYYY-MM-DD"
// @Param        hasta query string true "Fecha de devolución propuesta YYYY-MM-DD"
// @Success      200 {object} dto.ConsultaVariosResponse
// @Failure      400 {object} apierror.APIError
// @Failure      404 {object} apierror.APIError
// @Router       /v1/facturas/{id}/disponibilidad [get]
func (h *DisponibilidadHandler) ValidarFactura(c *gin.Context) {
	facturaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var filter dto.ValidarFacturaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if err := validate.Struct(&filter); err != nil {
		respondValidation(c, err)
		return
	}
	resp, err := h.disponibilidad.ValidarFactura(c.Request.Context(), facturaID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Calendario godoc
// @Summary      Calendario mensual
// @Description  Proyección día a día del mes para un producto, con la factura que lo ocupa en cada fecha.
// @Tags         disponibilidad
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id path  string true "UUID del producto"
// @Param        anio        query int    true "Año (ej: 2026)"
// @Param        mes         query int    true "Mes 1-12"
// @Success      200 {object} dto.CalendarioResponse
// @Failure      400 {object} apierror.APIError
// @Failure      404 {object} apierror.APIError
// @Router       /v1/disponibilidad/{producto_id}/calendario [get]
func (h *DisponibilidadHandler) Calendario(c *gin.Context) {
	productoID, err := uuid.Parse(c.Param("producto_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	anio, err := strconv.Atoi(c.Query("anio"))
	if err != nil || anio < 2000 || anio > 2100 {
		c.JSON(http.StatusBadRequest, apierror.New("anio invalido"))
		return
	}
	mes, err := strconv.Atoi(c.Query("mes"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("mes invalido"))
		return
	}
	resp, err := h.disponibilidad.CalendarioMensual(c.Request.Context(), productoID, anio, mes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
