package router

import (
	"time"

	"oficinapro/internal/config"
	"oficinapro/internal/handler"
	"oficinapro/internal/infra"
	"oficinapro/internal/middleware"
	"oficinapro/internal/repository"
	"oficinapro/internal/service"
	"oficinapro/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))

	// ── Infrastructure ───────────────────────────────────────────────────────
	storeOpts := repository.NewStoreOptions(cfg.RetryPolicy(), cfg.BreakerConfig())
	idempotency := infra.NewRedisIdempotencyStore(rdb, "")
	dispatcher := worker.NewDispatcher(rdb)

	// ── Repositories ─────────────────────────────────────────────────────────
	caixaRepo := repository.NewCaixaRepository(db, storeOpts)
	vendaRepo := repository.NewVendaRepository(db, storeOpts)

	// ── Services ─────────────────────────────────────────────────────────────
	turnoCfg := service.TurnoConfig{
		NomeCaixaPadrao: cfg.CaixaPadraoNome,
		Location:        cfg.Location(),
	}
	turnoSvc := service.NewTurnoService(caixaRepo, dispatcher, turnoCfg)
	movSvc := service.NewMovimentacaoService(caixaRepo, vendaRepo, idempotency, cfg.IdempotencyTTL(), turnoCfg)
	relatorioSvc := service.NewRelatorioService(caixaRepo, turnoCfg)

	// ── Handlers ─────────────────────────────────────────────────────────────
	caixaH := handler.NewCaixaHandler(turnoSvc, movSvc, relatorioSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, storeOpts.Breaker))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: operador, gerente, admin
		todos := middleware.RequireRole(middleware.RolOperador, middleware.RolGerente, middleware.RolAdmin)
		gestao := middleware.RequireRole(middleware.RolGerente, middleware.RolAdmin)

		caixa := v1.Group("/caixa")
		{
			caixa.POST("/turnos/abrir", todos, caixaH.Abrir)
			caixa.POST("/turnos/:id/fechar", todos, caixaH.Fechar)
			caixa.GET("/turno-atual", todos, caixaH.TurnoAtual)
			caixa.GET("/saldo", todos, caixaH.Saldo)
			caixa.GET("/ultimo-troco", todos, caixaH.UltimoTroco)
			caixa.GET("/turnos/:id", todos, caixaH.ObterTurno)
			caixa.GET("/turnos/:id/movimentacoes", todos, caixaH.ListarMovimentacoes)
			caixa.POST("/movimentacoes", todos, caixaH.RegistrarMovimentacao)
			caixa.POST("/vendas", todos, caixaH.RegistrarVenda)

			// Reporting UI
			caixa.GET("/turnos", gestao, caixaH.Historial)
			caixa.GET("/turnos/:id/auditoria", gestao, caixaH.Auditoria)
			caixa.GET("/relatorio", gestao, caixaH.Relatorio)
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
