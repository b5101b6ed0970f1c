package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados posibles de un artículo de inventario.
const (
	ItemStatusActive   = "active"
	ItemStatusInactive = "inactive"
)

// StockItem representa un artículo de inventario identificado por SKU.
// QuantityOnHand solo se modifica a través de un Adjustment (nunca directamente
// desde la lógica de reportes); puede ser negativa únicamente si AllowNegative.
type StockItem struct {
	ID               string
	Sku              string // único e inmutable después de la creación
	Name             string
	QuantityOnHand   decimal.Decimal
	MinQuantity      *decimal.Decimal
	MaxQuantity      *decimal.Decimal
	ReorderPoint     *decimal.Decimal
	AllowNegative    bool
	Status           string // active | inactive
	LastAdjustmentAt *time.Time
	LastAdjustmentBy string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsBelowMinimum indica si la existencia está por debajo del mínimo configurado.
// Siempre se calcula sobre el estado actual, nunca se almacena.
func (s *StockItem) IsBelowMinimum() bool {
	return s.MinQuantity != nil && s.QuantityOnHand.LessThan(*s.MinQuantity)
}

// IsAboveMaximum indica si la existencia supera el máximo configurado.
func (s *StockItem) IsAboveMaximum() bool {
	return s.MaxQuantity != nil && s.QuantityOnHand.GreaterThan(*s.MaxQuantity)
}

// NeedsReorder indica si la existencia alcanzó el punto de reorden.
func (s *StockItem) NeedsReorder() bool {
	return s.ReorderPoint != nil && s.QuantityOnHand.LessThanOrEqual(*s.ReorderPoint)
}
