package handler

import (
	"net/http"

	"vestipos/internal/apierror"
	"vestipos/internal/dto"
	"vestipos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProductosHandler struct {
	productos service.ProductoService
}

func NewProductosHandler(productos service.ProductoService) *ProductosHandler {
	return &ProductosHandler{productos: productos}
}

// Crear godoc
// @Summary      Crear producto
// @Description  Da de alta una prenda en el catálogo. El código debe ser único.
// @Tags         productos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearProductoRequest true "Detalle de la prenda"
// @Success      201  {object} dto.ProductoResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/productos [post]
func (h *ProductosHandler) Crear(c *gin.Context) {
	var req dto.CrearProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.productos.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary      Obtener producto
// @Tags         productos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del producto"
// @Success      200 {object} dto.ProductoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/productos/{id} [get]
func (h *ProductosHandler) Obtener(c *gin.Context) {
	raw := c.Param("id")
	if id, err := uuid.Parse(raw); err == nil {
		resp, err := h.productos.ObtenerPorID(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	// Fallback: lookup by código for barcode-scanner clients.
	resp, err := h.productos.ObtenerPorCodigo(c.Request.Context(), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary      Listar productos
// @Tags         productos
// @Produce      json
// @Security     BearerAuth
// @Param        estado    query string false "disponible | alquilado | sin_stock"
// @Param        categoria query string false "Categoría"
// @Param        buscar    query string false "Texto de búsqueda por nombre o código"
// @Param        page      query int    false "Página (default 1)"
// @Param        limit     query int    false "Registros por página (default 50)"
// @Success      200 {object} dto.ProductoListResponse
// @Router       /v1/productos [get]
func (h *ProductosHandler) Listar(c *gin.Context) {
	var filter dto.ProductoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.productos.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary      Actualizar producto
// @Description  Actualización parcial: solo los campos presentes se modifican.
// @Tags         productos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                       true "UUID del producto"
// @Param        body body dto.ActualizarProductoRequest true "Campos a modificar"
// @Success      200  {object} dto.ProductoResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/productos/{id} [put]
func (h *ProductosHandler) Actualizar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.ActualizarProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.productos.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Desactivar godoc
// @Summary      Desactivar producto
// @Description  Retira la prenda del catálogo. Rechazado si está comprometida en una factura activa.
// @Tags         productos
// @Security     BearerAuth
// @Param        id path string true "UUID del producto"
// @Success      204 "Sin contenido"
// @Failure      409 {object} apierror.APIError
// @Router       /v1/productos/{id} [delete]
func (h *ProductosHandler) Desactivar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	if err := h.productos.Desactivar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reactivar godoc
// @Summary      Reactivar producto
// @Tags         productos
// @Security     BearerAuth
// @Param        id path string true "UUID del producto"
// @Success      204 "Sin contenido"
// @Failure      404 {object} apierror.APIError
// @Router       /v1/productos/{id}/reactivar [post]
func (h *ProductosHandler) Reactivar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	if err := h.productos.Reactivar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
