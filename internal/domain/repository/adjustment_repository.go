package repository

import (
	"github.com/shopspring/decimal"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
)

// AdjustmentRepository puerto de persistencia del libro mayor de ajustes.
// El libro es append-only: no hay Update ni Delete.
type AdjustmentRepository interface {
	Create(adj *entity.Adjustment) error
	// ListByItem devuelve los ajustes de un artículo, más recientes primero.
	ListByItem(itemID string, limit int) ([]*entity.Adjustment, error)
	// SumDeltas suma todos los deltas de un artículo (reconstrucción de saldo para auditoría).
	SumDeltas(itemID string) (decimal.Decimal, error)
}
