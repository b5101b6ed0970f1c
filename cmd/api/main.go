package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/dedup"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/reports"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/stock"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/infrastructure/postgres"
	httpRouter "github.com/WhosAnder/ImaMonorepo-sub000/internal/interfaces/http"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/config"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/logger"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/metrics"
)

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
		Msg("iniciando aplicación")

	ctx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	m := metrics.New(nil)

	itemRepo := postgres.NewStockItemRepository(pool)
	adjRepo := postgres.NewAdjustmentRepository(pool)
	reportRepo := postgres.NewReportRepository(pool)
	dedupRepo := postgres.NewDedupRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	ledgerUC := stock.NewLedgerUseCase(txRunner, itemRepo, adjRepo)
	reconciler := reports.NewReconciler(ledgerUC, log, m)
	reportUC := reports.NewReportUseCase(reportRepo, reconciler, log)

	guard := dedup.NewGuard(dedupRepo, time.Duration(cfg.Dedup.TTLHours)*time.Hour, log, m)
	guard.StartPurgeLoop(ctx, time.Duration(cfg.Dedup.PurgeIntervalMins)*time.Minute)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Ima Almacén API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:            ledgerUC,
		Reports:           reportUC,
		Guard:             guard,
		DedupEnabled:      cfg.Dedup.Enabled,
		RetryAfterSeconds: cfg.Dedup.RetryAfterSeconds,
		JWTSecret:         cfg.JWT.Secret,
		Log:               log,
		Metrics:           m,
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
	stopPurge()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
