package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/dedup"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/reports"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/stock"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/logger"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger            *stock.LedgerUseCase
	Reports           *reports.ReportUseCase
	Guard             *dedup.Guard
	DedupEnabled      bool
	RetryAfterSeconds int
	JWTSecret         string
	Log               *logger.Logger
	Metrics           *metrics.Metrics
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Métricas Prometheus (público)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token del servicio de autenticación)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Inventario (protegido)
	stockHandler := NewStockHandler(deps.Ledger)
	items := protected.Group("/stock/items")
	items.Post("/", stockHandler.CreateItem)
	items.Get("/", stockHandler.ListItems)
	items.Get("/low", stockHandler.ListLowStock)
	items.Get("/:id", stockHandler.GetItem)
	items.Patch("/:id/status", stockHandler.SetStatus)
	items.Post("/:id/adjustments", stockHandler.Adjust)
	items.Get("/:id/adjustments", stockHandler.ListAdjustments)

	// Reportes de almacén (protegido). Solo la creación pasa por la guardia de
	// idempotencia; la devolución es reinvocable por diseño y el ajuste directo
	// es iniciado por un operador, no reintentado automáticamente.
	reportHandler := NewReportHandler(deps.Reports)
	reportsGroup := protected.Group("/reports")
	reportsGroup.Post("/", IdempotencyMiddleware(IdempotencyConfig{
		Guard:             deps.Guard,
		Enabled:           deps.DedupEnabled,
		RetryAfterSeconds: deps.RetryAfterSeconds,
		Log:               deps.Log,
		Metrics:           deps.Metrics,
	}), reportHandler.Create)
	reportsGroup.Get("/", reportHandler.List)
	reportsGroup.Get("/:id", reportHandler.GetByID)
	reportsGroup.Post("/:id/return", reportHandler.ProcessReturn)
}
