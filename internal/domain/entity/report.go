package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de reporte de almacén.
const (
	ReportTypeDelivery = "delivery"
	ReportTypeReturn   = "return"
)

// ReportItem es una partida de un reporte de almacén (herramienta o refacción).
// Units siempre es positiva en el reporte; el sentido (débito/crédito) lo da la
// operación (entrega vs. devolución).
type ReportItem struct {
	ID    string
	Sku   string // vacío = no ligado a inventario (se omite con advertencia)
	Name  string
	Units decimal.Decimal
	Note  string
}

// WarehouseReport es un evento de entrega/devolución de materiales con dos
// colecciones de partidas (herramientas y refacciones), tratadas de forma
// uniforme por la conciliación de stock.
type WarehouseReport struct {
	ID           string
	Folio        string
	ReportType   string
	Herramientas []ReportItem
	Refacciones  []ReportItem
	Note         string

	// ReturnProcessedItemIDs contiene los IDs de partidas ya conciliadas en
	// devolución; una partida acreditada nunca se vuelve a acreditar.
	ReturnProcessedItemIDs []string
	DeliveryAdjustedAt     *time.Time
	ReturnAdjustedAt       *time.Time

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItems devuelve herramientas y refacciones como una sola lista para conciliación.
func (r *WarehouseReport) LineItems() []ReportItem {
	items := make([]ReportItem, 0, len(r.Herramientas)+len(r.Refacciones))
	items = append(items, r.Herramientas...)
	items = append(items, r.Refacciones...)
	return items
}
