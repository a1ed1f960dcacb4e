package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Abastecimiento-api/docs"
	"github.com/jhoicas/Abastecimiento-api/internal/application/inventory"
	"github.com/jhoicas/Abastecimiento-api/internal/application/purchasing"
	"github.com/jhoicas/Abastecimiento-api/internal/application/usecase"
	"github.com/jhoicas/Abastecimiento-api/internal/infrastructure/memory"
	"github.com/jhoicas/Abastecimiento-api/internal/infrastructure/metrics"
	"github.com/jhoicas/Abastecimiento-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Abastecimiento-api/internal/interfaces/http"
	"github.com/jhoicas/Abastecimiento-api/pkg/config"
	"github.com/jhoicas/Abastecimiento-api/pkg/logger"
)

// store es el almacén transaccional elegido por STORAGE_DRIVER.
type store interface {
	inventory.TxRunner
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	var txRunner store
	switch cfg.DB.Driver {
	case config.StorageMemory:
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		txRunner = memory.NewStore()
	default:
		var pool *pgxpool.Pool
		pool, err = postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migrar esquema")
			}
		}
		txRunner = postgres.NewTxRunner(pool)
	}

	collector := metrics.New(prometheus.DefaultRegisterer, cfg.Metrics.Prefix)
	perms := usecase.NewModulePermissionService(cfg.Procurement.ViewRoles, cfg.Procurement.EditRoles)
	trigger := purchasing.NewReplenishmentTrigger(collector, log)
	ledgerUC := inventory.NewLedgerUseCase(txRunner, trigger, log)
	ordersUC := purchasing.NewPurchaseOrderUseCase(txRunner, log)
	receivingUC := purchasing.NewReceivingUseCase(txRunner, ledgerUC, collector, log)
	suggestionsUC := purchasing.NewSuggestionUseCase(
		txRunner, ordersUC, perms, cfg.Procurement.SuggestionModules, collector, log,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(collector.Middleware())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    docs.SwaggerInfo.Title,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := txRunner.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("health: almacenamiento no disponible")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:         ledgerUC,
		Orders:         ordersUC,
		Receiving:      receivingUC,
		Suggestions:    suggestionsUC,
		Permissions:    perms,
		JWTSecret:      cfg.JWT.Secret,
		DefaultSiteKey: cfg.Procurement.DefaultSiteKey,
		RetryDelay:     cfg.Procurement.RetryDelay,
		Log:            log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
