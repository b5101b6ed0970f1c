package repository

import "github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"

// StockItemRepository puerto de persistencia para artículos de inventario.
type StockItemRepository interface {
	Create(item *entity.StockItem) error
	GetByID(id string) (*entity.StockItem, error)
	GetBySku(sku string) (*entity.StockItem, error)
	// GetByIDForUpdate obtiene el artículo bloqueando la fila (SELECT FOR UPDATE);
	// solo tiene sentido dentro de una transacción.
	GetByIDForUpdate(id string) (*entity.StockItem, error)
	GetBySkuForUpdate(sku string) (*entity.StockItem, error)
	// UpdateQuantity escribe la nueva existencia y los metadatos del último ajuste.
	UpdateQuantity(item *entity.StockItem) error
	SetStatus(id, status string) error
	List(status string, limit, offset int) ([]*entity.StockItem, error)
	ListNeedingReorder() ([]*entity.StockItem, error)
}
