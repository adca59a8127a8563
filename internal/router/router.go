package router

import (
	"time"

	"vestipos/internal/config"
	"vestipos/internal/handler"
	"vestipos/internal/infra"
	"vestipos/internal/middleware"
	"vestipos/internal/repository"
	"vestipos/internal/service"
	"vestipos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	clienteRepo := repository.NewClienteRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	facturaRepo := repository.NewFacturaRepository(db)
	pagoRepo := repository.NewPagoRepository(db)
	historialRepo := repository.NewHistorialRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	permisos := service.NewPermisos()
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	clienteSvc := service.NewClienteService(clienteRepo)
	productoSvc := service.NewProductoService(productoRepo)
	facturaSvc := service.NewFacturaService(facturaRepo, clienteRepo, productoRepo, dispatcher)
	pagoSvc := service.NewPagoService(pagoRepo, facturaRepo, permisos, dispatcher)
	cicloSvc := service.NewCicloService(facturaRepo, productoRepo, historialRepo, pagoSvc, permisos, dispatcher)
	disponibilidadSvc := service.NewDisponibilidadService(facturaRepo, productoRepo, rdb)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	clientesH := handler.NewClientesHandler(clienteSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	facturasH := handler.NewFacturasHandler(facturaSvc, cicloSvc)
	pagosH := handler.NewPagosHandler(pagoSvc)
	disponibilidadH := handler.NewDisponibilidadHandler(disponibilidadSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		todos := middleware.RequireRole("vendedor", "supervisor", "administrador")

		// Facturas — todo el ciclo de vida
		v1.POST("/facturas", todos, facturasH.CrearFactura)
		v1.GET("/facturas", todos, facturasH.ListarFacturas)
		v1.GET("/facturas/:id", todos, facturasH.ObtenerFactura)
		v1.PUT("/facturas/:id/estado", todos, facturasH.CambiarEstado)
		v1.POST("/facturas/:id/entrega", todos, facturasH.Entregar)
		v1.POST("/facturas/:id/devolucion", todos, facturasH.RegistrarDevolucion)
		v1.POST("/facturas/:id/cierre", todos, facturasH.Cerrar)
		v1.GET("/facturas/:id/historial", todos, facturasH.Historial)
		// La anulación verifica el rol en el servicio; el middleware corta antes
		// para no tocar la factura cuando el vendedor no tiene permiso.
		v1.DELETE("/facturas/:id", middleware.RequireRole("supervisor", "administrador"), facturasH.Anular)

		// Pagos y cuenta corriente
		v1.POST("/facturas/:id/pagos", todos, pagosH.RegistrarPago)
		v1.POST("/facturas/:id/reembolsos", todos, pagosH.RegistrarReembolso)
		v1.POST("/facturas/:id/penalidades", todos, pagosH.RegistrarPenalidad)
		v1.GET("/facturas/:id/cuenta", todos, pagosH.EstadoCuenta)
		v1.GET("/facturas/:id/disponibilidad", todos, disponibilidadH.ValidarFactura)
		v1.DELETE("/pagos/:pago_id", middleware.RequireRole("supervisor", "administrador"), pagosH.EliminarPago)

		// Disponibilidad
		v1.GET("/disponibilidad", todos, disponibilidadH.Consultar)
		v1.POST("/disponibilidad/consulta", todos, disponibilidadH.ConsultarVarios)
		v1.GET("/disponibilidad/:producto_id/calendario", todos, disponibilidadH.Calendario)

		// Clientes
		v1.POST("/clientes", todos, clientesH.Crear)
		v1.GET("/clientes", todos, clientesH.Buscar)
		v1.GET("/clientes/:id", todos, clientesH.Obtener)
		v1.PUT("/clientes/:id", todos, clientesH.Actualizar)

		// Productos — lectura para todos, escritura para administrador
		v1.GET("/productos", todos, productosH.Listar)
		v1.GET("/productos/:id", todos, productosH.Obtener)
		prods := v1.Group("/productos", middleware.RequireRole("administrador"))
		{
			prods.POST("", productosH.Crear)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Desactivar)
			prods.POST("/:id/reactivar", productosH.Reactivar)
		}

		usuarios := v1.Group("/usuarios", middleware.RequireRole("administrador"))
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
			usuarios.PATCH("/:id/reactivar", usuariosH.Reactivar)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
