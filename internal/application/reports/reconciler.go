package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/stock"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/logger"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/metrics"
)

// Razones de falla por partida del resumen de conciliación.
const (
	FailureInsufficientStock = "INSUFFICIENT_STOCK"
	FailureMissingSku        = "MISSING_SKU"
	FailureUnknown           = "UNKNOWN_ADJUSTMENT_FAILURE"
)

// StockAdjuster es la capacidad del libro mayor que consume la conciliación.
type StockAdjuster interface {
	AdjustBySku(ctx context.Context, sku string, input stock.AdjustInput) (*entity.Adjustment, error)
}

// ItemFailure falla de una partida individual.
type ItemFailure struct {
	ItemID string `json:"item_id,omitempty"`
	Sku    string `json:"sku"`
	Reason string `json:"reason"`
}

// Summary resumen de una conciliación por lotes. Es informativo: la verdad
// durable es el libro mayor de ajustes, no este resumen.
type Summary struct {
	Processed int           `json:"processed"`
	Failed    []ItemFailure `json:"failed"`
	Warnings  []string      `json:"warnings"`
}

// Reconciler traduce las partidas de un reporte en ajustes del libro mayor.
// La falla de una partida nunca bloquea a las demás: siempre intenta todas y
// agrega los resultados.
type Reconciler struct {
	ledger  StockAdjuster
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewReconciler construye la conciliación reporte-a-stock.
func NewReconciler(ledger StockAdjuster, log *logger.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{ledger: ledger, log: log, metrics: m}
}

// ProcessDelivery debita del stock cada partida con SKU del reporte
// (delta = -units, reason=decrease, nota con el folio). Partidas sin SKU se
// omiten con advertencia; stock insuficiente o SKU desconocido se registran como
// falla por partida y el lote continúa.
func (r *Reconciler) ProcessDelivery(ctx context.Context, report *entity.WarehouseReport, actor entity.Actor) Summary {
	summary := Summary{Failed: []ItemFailure{}, Warnings: []string{}}
	for _, item := range report.LineItems() {
		r.reconcileItem(ctx, report, actor, item, item.Units.Neg(), entity.AdjustmentReasonDecrease, &summary)
	}
	return summary
}

// ProcessReturn acredita al stock cada partida con SKU (delta = +units,
// reason=increase), omitiendo las partidas cuyo ID ya figura en
// ReturnProcessedItemIDs: una partida acreditada nunca se vuelve a acreditar,
// lo que hace la devolución segura de reinvocar. Devuelve, además del resumen,
// el conjunto de IDs procesados fusionado (no reemplazado) con el previo.
func (r *Reconciler) ProcessReturn(ctx context.Context, report *entity.WarehouseReport, actor entity.Actor) (Summary, []string) {
	summary := Summary{Failed: []ItemFailure{}, Warnings: []string{}}

	already := make(map[string]struct{}, len(report.ReturnProcessedItemIDs))
	for _, id := range report.ReturnProcessedItemIDs {
		already[id] = struct{}{}
	}

	processed := append([]string(nil), report.ReturnProcessedItemIDs...)
	for _, item := range report.LineItems() {
		if _, done := already[item.ID]; done {
			continue
		}
		before := summary.Processed
		r.reconcileItem(ctx, report, actor, item, item.Units, entity.AdjustmentReasonIncrease, &summary)
		if summary.Processed > before {
			processed = append(processed, item.ID)
			already[item.ID] = struct{}{}
		}
	}
	return summary, processed
}

// reconcileItem intenta un ajuste para una partida y acumula el resultado en el
// resumen. Los errores del libro mayor se convierten en entradas por partida;
// nunca se propagan fuera del procesamiento del reporte.
func (r *Reconciler) reconcileItem(ctx context.Context, report *entity.WarehouseReport, actor entity.Actor, item entity.ReportItem, delta decimal.Decimal, reason string, summary *Summary) {
	if item.Sku == "" {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("partida %q sin SKU: no se puede ligar a inventario", item.Name))
		r.metrics.RecordReconcileOutcome(report.ReportType, "skipped")
		return
	}
	if item.Units.IsZero() {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("partida %q con cantidad cero: omitida", item.Sku))
		r.metrics.RecordReconcileOutcome(report.ReportType, "skipped")
		return
	}

	_, err := r.ledger.AdjustBySku(ctx, item.Sku, stock.AdjustInput{
		Delta:  delta,
		Reason: reason,
		Note:   fmt.Sprintf("reporte %s", report.Folio),
		Actor:  actor,
	})
	if err != nil {
		summary.Failed = append(summary.Failed, ItemFailure{ItemID: item.ID, Sku: item.Sku, Reason: failureReason(err)})
		r.metrics.RecordReconcileOutcome(report.ReportType, "failed")
		r.log.Warn().Err(err).
			Str("folio", report.Folio).
			Str("sku", item.Sku).
			Msg("ajuste de stock fallido para partida del reporte")
		return
	}
	summary.Processed++
	r.metrics.RecordReconcileOutcome(report.ReportType, "processed")
}

// failureReason mapea el conjunto cerrado de errores del libro mayor a la razón
// por partida del resumen.
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNegativeQuantity), errors.Is(err, domain.ErrInsufficientStock):
		return FailureInsufficientStock
	case errors.Is(err, domain.ErrItemNotFound):
		return FailureMissingSku
	default:
		return FailureUnknown
	}
}
