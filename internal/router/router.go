package router

import (
	"time"

	"github.com/kfonsecah/E-Parking2.0-sub000/internal/chatbot"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/config"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/handler"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/infra"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/middleware"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/repository"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/service"
	"github.com/kfonsecah/E-Parking2.0-sub000/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker, dispatcher *worker.Dispatcher) *gin.Engine {
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
	cajaRepo := repository.NewCajaRepository(db)
	estadiaRepo := repository.NewEstadiaRepository(db)
	abonoRepo := repository.NewAbonoRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	cajaSvc := service.NewCajaService(cajaRepo)
	estadiaSvc := service.NewEstadiaService(estadiaRepo, cajaRepo, abonoRepo, cajaSvc, dispatcher)
	abonoSvc := service.NewAbonoService(abonoRepo, cajaRepo, cajaSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	estadiasH := handler.NewEstadiasHandler(estadiaSvc)
	abonosH := handler.NewAbonosHandler(abonoSvc)

	botStore := chatbot.NewRedisStore(rdb)
	botH := handler.NewBotHandler(chatbot.NewResponder(estadiaSvc, botStore), cfg.BotWebhookSecret)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Bot webhook — authenticated by shared secret, not JWT
	r.POST("/v1/bot/webhook", botH.Webhook)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		operarios := middleware.RequireRole("cajero", "supervisor", "administrador")
		supervision := middleware.RequireRole("supervisor", "administrador")

		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", operarios, cajaH.Abrir)
			caja.POST("/pago", operarios, cajaH.RegistrarPago)
			caja.GET("/estado", operarios, cajaH.Estado)
			caja.POST("/cerrar", operarios, cajaH.Cerrar)
			caja.GET("/:id/arqueo", supervision, cajaH.Arqueo)
			caja.GET("/historial", supervision, cajaH.Historial)
		}

		estadias := v1.Group("/estadias")
		{
			estadias.POST("/ingreso", operarios, estadiasH.Ingreso)
			estadias.POST("/egreso", operarios, estadiasH.Egreso)
			estadias.GET("", operarios, estadiasH.EnCurso)
			estadias.GET("/:patente", operarios, estadiasH.PorPatente)
		}

		v1.GET("/tarifas", operarios, estadiasH.Tarifas)
		v1.PUT("/tarifas", middleware.RequireRole("administrador"), estadiasH.GuardarTarifa)

		clientes := v1.Group("/clientes")
		{
			clientes.POST("", operarios, abonosH.CrearCliente)
			clientes.GET("", operarios, abonosH.ListarClientes)
		}

		abonos := v1.Group("/abonos")
		{
			abonos.POST("", operarios, abonosH.CrearAbono)
			abonos.POST("/:id/renovar", operarios, abonosH.RenovarAbono)
			abonos.GET("/patente/:patente", operarios, abonosH.PorPatente)
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
