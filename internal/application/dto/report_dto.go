package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/reports"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
)

// ReportItemRequest partida de un reporte (herramienta o refacción).
type ReportItemRequest struct {
	Sku   string          `json:"sku,omitempty"`
	Name  string          `json:"name"`
	Units decimal.Decimal `json:"units"`
	Note  string          `json:"note,omitempty"`
}

// CreateReportRequest creación de un reporte de entrega de almacén.
type CreateReportRequest struct {
	ReportType   string              `json:"report_type"`
	Herramientas []ReportItemRequest `json:"herramientas,omitempty"`
	Refacciones  []ReportItemRequest `json:"refacciones,omitempty"`
	Note         string              `json:"note,omitempty"`
}

// ReturnReportRequest acción de devolución sobre un reporte existente.
type ReturnReportRequest struct {
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// ReportItemResponse partida en respuestas HTTP.
type ReportItemResponse struct {
	ID    string          `json:"id"`
	Sku   string          `json:"sku,omitempty"`
	Name  string          `json:"name"`
	Units decimal.Decimal `json:"units"`
	Note  string          `json:"note,omitempty"`
}

// ReportResponse representación HTTP de un reporte de almacén.
// StockAdjustments es el resumen transitorio de conciliación; la verdad durable
// vive en el libro mayor de ajustes.
type ReportResponse struct {
	ID                     string               `json:"id"`
	Folio                  string               `json:"folio"`
	ReportType             string               `json:"report_type"`
	Herramientas           []ReportItemResponse `json:"herramientas"`
	Refacciones            []ReportItemResponse `json:"refacciones"`
	Note                   string               `json:"note,omitempty"`
	ReturnProcessedItemIDs []string             `json:"return_processed_item_ids"`
	DeliveryAdjustedAt     *time.Time           `json:"delivery_adjusted_at,omitempty"`
	ReturnAdjustedAt       *time.Time           `json:"return_adjusted_at,omitempty"`
	StockAdjustments       *reports.Summary     `json:"stock_adjustments,omitempty"`
	CreatedBy              string               `json:"created_by"`
	CreatedAt              time.Time            `json:"created_at"`
}

// ReportToResponse mapea el reporte a su representación HTTP; summary puede ser nil.
func ReportToResponse(report *entity.WarehouseReport, summary *reports.Summary) ReportResponse {
	return ReportResponse{
		ID:                     report.ID,
		Folio:                  report.Folio,
		ReportType:             report.ReportType,
		Herramientas:           itemsToResponse(report.Herramientas),
		Refacciones:            itemsToResponse(report.Refacciones),
		Note:                   report.Note,
		ReturnProcessedItemIDs: report.ReturnProcessedItemIDs,
		DeliveryAdjustedAt:     report.DeliveryAdjustedAt,
		ReturnAdjustedAt:       report.ReturnAdjustedAt,
		StockAdjustments:       summary,
		CreatedBy:              report.CreatedBy,
		CreatedAt:              report.CreatedAt,
	}
}

func itemsToResponse(items []entity.ReportItem) []ReportItemResponse {
	out := make([]ReportItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ReportItemResponse{
			ID:    it.ID,
			Sku:   it.Sku,
			Name:  it.Name,
			Units: it.Units,
			Note:  it.Note,
		})
	}
	return out
}
