package handler

import (
	"net/http"

	"vestipos/internal/apierror"
	"vestipos/internal/dto"
	"vestipos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FacturasHandler struct {
	facturas service.FacturaService
	ciclo    service.CicloService
}

func NewFacturasHandler(facturas service.FacturaService, ciclo service.CicloService) *FacturasHandler {
	return &FacturasHandler{facturas: facturas, ciclo: ciclo}
}

// CrearFactura godoc
// @Summary      Crear factura
// @Description  Crea una factura en borrador con sus ítems. El total se calcula de los precios unitarios (o del inventario si no se indican).
// @Tags         facturas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearFacturaRequest true "Detalle de la factura"
// @Success      201  {object} dto.FacturaResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/facturas [post]
func (h *FacturasHandler) CrearFactura(c *gin.Context) {
	var req dto.CrearFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.facturas.CrearFactura(c.Request.Context(), actorDe(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ObtenerFactura godoc
// @Summary      Obtener factura
// @Description  Retorna la factura con ítems, pagos y cliente.
// @Tags         facturas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la factura"
// @Success      200 {object} dto.FacturaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/facturas/{id} [get]
func (h *FacturasHandler) ObtenerFactura(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.facturas.ObtenerFactura(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarFacturas godoc
// @Summary      Listar facturas
// @Description  Lista paginada filtrada por estado, tipo de operación, cliente y fecha.
// @Tags         facturas
// @Produce      json
// @Security     BearerAuth
// @Param        estado         query string false "borrador | reservada | entregada | devuelta | cerrada | all"
// @Param        tipo_operacion query string false "venta | alquiler | confeccion | confeccion_venta | confeccion_alquiler"
// @Param        cliente_id     query string false "UUID del cliente"
// @Param        fecha          query string false "Fecha YYYY-MM-DD"
// @Param        page           query int    false "Página (default 1)"
// @Param        limit          query int    false "Registros por página (default 50)"
// @Success      200 {object} dto.FacturaListResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/facturas [get]
func (h *FacturasHandler) ListarFacturas(c *gin.Context) {
	var filter dto.FacturaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.facturas.ListFacturas(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CambiarEstado godoc
// @Summary      Cambiar estado
// @Description  Aplica una transición genérica del ciclo de vida validada contra la tabla de transiciones.
// @Tags         facturas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                  true "UUID de la factura"
// @Param        body body dto.CambiarEstadoRequest true "Estado destino y notas"
// @Success      200  {object} dto.CambioEstadoResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/facturas/{id}/estado [put]
func (h *FacturasHandler) CambiarEstado(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.CambiarEstadoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.ciclo.CambiarEstado(c.Request.Context(), id, actorDe(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Entregar godoc
// @Summary      Registrar entrega
// @Description  Marca la factura como entregada y las prendas como alquiladas. Requiere estado reservada.
// @Tags         facturas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string             true "UUID de la factura"
// @Param        body body dto.EntregaRequest false "Notas"
// @Success      200  {object} dto.CambioEstadoResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/facturas/{id}/entrega [post]
func (h *FacturasHandler) Entregar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.EntregaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.ciclo.Entregar(c.Request.Context(), id, actorDe(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarDevolucion godoc
// @Summary      Registrar devolución
// @Description  Registra la devolución de las prendas con su condición. Requiere estado entregada.
// @Tags         facturas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                true "UUID de la factura"
// @Param        body body dto.DevolucionRequest true "Condición de la prenda y notas"
// @Success      200  {object} dto.CambioEstadoResponse
// @Failure      400  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/facturas/{id}/devolucion [post]
func (h *FacturasHandler) RegistrarDevolucion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.DevolucionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.ciclo.RegistrarDevolucion(c.Request.Context(), id, actorDe(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar godoc
// @Summary      Cerrar factura
// @Description  Cierra la factura. Requiere cuenta saldada y, para alquileres, prendas devueltas.
// @Tags         facturas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string            true "UUID de la factura"
// @Param        body body dto.CierreRequest false "Notas"
// @Success      200  {object} dto.CambioEstadoResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/facturas/{id}/cierre [post]
func (h *FacturasHandler) Cerrar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.CierreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.ciclo.Cerrar(c.Request.Context(), id, actorDe(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Anular godoc
// @Summary      Anular factura
// @Description  Anula la factura con motivo obligatorio y libera las prendas. Solo supervisores/administradores.
// @Tags         facturas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string               true "UUID de la factura"
// @Param        body body dto.AnulacionRequest true "Motivo de anulación"
// @Success      200  {object} dto.CambioEstadoResponse
// @Failure      403  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/facturas/{id} [delete]
func (h *FacturasHandler) Anular(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.AnulacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.ciclo.Anular(c.Request.Context(), id, actorDe(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial godoc
// @Summary      Historial de estados
// @Description  Retorna el historial inmutable de transiciones de la factura, en orden cronológico.
// @Tags         facturas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la factura"
// @Success      200 {array}  dto.HistorialEstadoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/facturas/{id}/historial [get]
func (h *FacturasHandler) Historial(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.ciclo.Historial(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
