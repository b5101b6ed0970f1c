package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
)

// CreateStockItemRequest alta de artículo de inventario.
type CreateStockItemRequest struct {
	Sku             string           `json:"sku"`
	Name            string           `json:"name"`
	InitialQuantity decimal.Decimal  `json:"initial_quantity"`
	MinQuantity     *decimal.Decimal `json:"min_quantity,omitempty"`
	MaxQuantity     *decimal.Decimal `json:"max_quantity,omitempty"`
	ReorderPoint    *decimal.Decimal `json:"reorder_point,omitempty"`
	AllowNegative   bool             `json:"allow_negative"`
}

// AdjustStockRequest ajuste directo de existencia iniciado por un operador.
type AdjustStockRequest struct {
	Delta  decimal.Decimal `json:"delta"`
	Reason string          `json:"reason"`
	Note   string          `json:"note,omitempty"`
}

// StockItemResponse representación HTTP de un artículo.
// Los campos derivados se recalculan siempre del estado actual.
type StockItemResponse struct {
	ID               string           `json:"id"`
	Sku              string           `json:"sku"`
	Name             string           `json:"name"`
	QuantityOnHand   decimal.Decimal  `json:"quantity_on_hand"`
	MinQuantity      *decimal.Decimal `json:"min_quantity,omitempty"`
	MaxQuantity      *decimal.Decimal `json:"max_quantity,omitempty"`
	ReorderPoint     *decimal.Decimal `json:"reorder_point,omitempty"`
	AllowNegative    bool             `json:"allow_negative"`
	Status           string           `json:"status"`
	IsBelowMinimum   bool             `json:"is_below_minimum"`
	IsAboveMaximum   bool             `json:"is_above_maximum"`
	NeedsReorder     bool             `json:"needs_reorder"`
	LastAdjustmentAt *time.Time       `json:"last_adjustment_at,omitempty"`
	LastAdjustmentBy string           `json:"last_adjustment_by,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// StockItemToResponse mapea la entidad a su representación HTTP.
func StockItemToResponse(item *entity.StockItem) StockItemResponse {
	return StockItemResponse{
		ID:               item.ID,
		Sku:              item.Sku,
		Name:             item.Name,
		QuantityOnHand:   item.QuantityOnHand,
		MinQuantity:      item.MinQuantity,
		MaxQuantity:      item.MaxQuantity,
		ReorderPoint:     item.ReorderPoint,
		AllowNegative:    item.AllowNegative,
		Status:           item.Status,
		IsBelowMinimum:   item.IsBelowMinimum(),
		IsAboveMaximum:   item.IsAboveMaximum(),
		NeedsReorder:     item.NeedsReorder(),
		LastAdjustmentAt: item.LastAdjustmentAt,
		LastAdjustmentBy: item.LastAdjustmentBy,
		CreatedAt:        item.CreatedAt,
	}
}

// AdjustmentResponse asiento del libro mayor en respuestas HTTP.
type AdjustmentResponse struct {
	ID                string          `json:"id"`
	ItemID            string          `json:"item_id"`
	Delta             decimal.Decimal `json:"delta"`
	Reason            string          `json:"reason"`
	Note              string          `json:"note,omitempty"`
	ActorID           string          `json:"actor_id"`
	ActorName         string          `json:"actor_name,omitempty"`
	ResultingQuantity decimal.Decimal `json:"resulting_quantity"`
	CreatedAt         time.Time       `json:"created_at"`
}

// AdjustmentToResponse mapea el asiento a su representación HTTP.
func AdjustmentToResponse(adj *entity.Adjustment) AdjustmentResponse {
	return AdjustmentResponse{
		ID:                adj.ID,
		ItemID:            adj.ItemID,
		Delta:             adj.Delta,
		Reason:            adj.Reason,
		Note:              adj.Note,
		ActorID:           adj.ActorID,
		ActorName:         adj.ActorName,
		ResultingQuantity: adj.ResultingQuantity,
		CreatedAt:         adj.CreatedAt,
	}
}

// SetStatusRequest cambio de estado de un artículo.
type SetStatusRequest struct {
	Status string `json:"status"` // active | inactive
}
