package handler

import (
	"net/http"

	"vestipos/internal/apierror"
	"vestipos/internal/dto"
	"vestipos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PagosHandler struct {
	pagos service.PagoService
}

func NewPagosHandler(pagos service.PagoService) *PagosHandler {
	return &PagosHandler{pagos: pagos}
}

// RegistrarPago godoc
// @Summary      Registrar pago
// @Description  Registra un pago contra la factura y recalcula saldo y estado de pago. Rechaza montos que superen el saldo pendiente.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "UUID de la factura"
// @Param        body body dto.RegistrarPagoRequest true "Monto, método y notas"
// @Success      201  {object} dto.PagoResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/facturas/{id}/pagos [post]
func (h *PagosHandler) RegistrarPago(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.RegistrarPagoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.pagos.RegistrarPago(c.Request.Context(), id, actorDe(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarReembolso godoc
// @Summary      Registrar reembolso
// @Description  Registra una devolución de dinero al cliente. Aumenta el saldo pendiente.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                        true "UUID de la factura"
// @Param        body body dto.RegistrarReembolsoRequest true "Monto, método y notas"
// @Success      201  {object} dto.PagoResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/facturas/{id}/reembolsos [post]
func (h *PagosHandler) RegistrarReembolso(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.RegistrarReembolsoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.pagos.RegistrarReembolso(c.Request.Context(), id, actorDe(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarPenalidad godoc
// @Summary      Registrar penalidad
// @Description  Registra un cargo por daño o demora. Se suma al total adeudado de la factura.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                        true "UUID de la factura"
// @Param        body body dto.RegistrarPenalidadRequest true "Monto y motivo"
// @Success      201  {object} dto.PagoResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/facturas/{id}/penalidades [post]
func (h *PagosHandler) RegistrarPenalidad(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.RegistrarPenalidadRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.pagos.RegistrarPenalidad(c.Request.Context(), id, actorDe(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// EliminarPago godoc
// @Summary      Eliminar movimiento
// @Description  Elimina un pago mal cargado y recalcula el saldo. Solo supervisores/administradores; requiere motivo.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        pago_id path string                  true "UUID del pago"
// @Param        body    body dto.EliminarPagoRequest true "Motivo"
// @Success      204  "Sin contenido"
// @Failure      403  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/pagos/{pago_id} [delete]
func (h *PagosHandler) EliminarPago(c *gin.Context) {
	id, err := uuid.Parse(c.Param("pago_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.EliminarPagoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.pagos.EliminarPago(c.Request.Context(), id, actorDe(c), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EstadoCuenta godoc
// @Summary      Estado de cuenta
// @Description  Retorna los totales de la factura: pagado, penalidades, saldo pendiente y detalle de movimientos.
// @Tags         pagos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la factura"
// @Success      200 {object} dto.EstadoCuentaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/facturas/{id}/cuenta [get]
func (h *PagosHandler) EstadoCuenta(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.pagos.EstadoCuenta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
