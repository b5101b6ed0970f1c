package stock

import (
	"context"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios
// atados a esa tx. Garantiza que la actualización de existencia y el asiento en el
// libro mayor se apliquen como una sola unidad atómica.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		itemRepo repository.StockItemRepository,
		adjRepo repository.AdjustmentRepository,
	) error) error
}
