package stock

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/repository"
)

// LedgerUseCase administra artículos de inventario y su libro mayor de ajustes.
// Toda mutación de existencia pasa por Adjust/AdjustBySku dentro de una transacción
// con bloqueo de fila (SELECT FOR UPDATE) y Commit/Rollback.
type LedgerUseCase struct {
	txRunner TxRunner
	itemRepo repository.StockItemRepository
	adjRepo  repository.AdjustmentRepository
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(txRunner TxRunner, itemRepo repository.StockItemRepository, adjRepo repository.AdjustmentRepository) *LedgerUseCase {
	return &LedgerUseCase{txRunner: txRunner, itemRepo: itemRepo, adjRepo: adjRepo}
}

// CreateItemInput entrada para crear un artículo de inventario.
type CreateItemInput struct {
	Sku             string
	Name            string
	InitialQuantity decimal.Decimal
	MinQuantity     *decimal.Decimal
	MaxQuantity     *decimal.Decimal
	ReorderPoint    *decimal.Decimal
	AllowNegative   bool
}

// CreateItem crea un artículo con status=active. Si la cantidad inicial es mayor a
// cero registra un ajuste inicial (reason=initial) en la misma transacción.
// Devuelve domain.ErrDuplicateSku si el SKU ya existe.
func (uc *LedgerUseCase) CreateItem(ctx context.Context, input CreateItemInput, actor entity.Actor) (*entity.StockItem, error) {
	input.Sku = strings.TrimSpace(input.Sku)
	input.Name = strings.TrimSpace(input.Name)
	if input.Sku == "" || input.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	if input.InitialQuantity.IsNegative() {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now()
	item := &entity.StockItem{
		ID:             uuid.New().String(),
		Sku:            input.Sku,
		Name:           input.Name,
		QuantityOnHand: input.InitialQuantity,
		MinQuantity:    input.MinQuantity,
		MaxQuantity:    input.MaxQuantity,
		ReorderPoint:   input.ReorderPoint,
		AllowNegative:  input.AllowNegative,
		Status:         entity.ItemStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := uc.txRunner.Run(ctx, func(itemRepo repository.StockItemRepository, adjRepo repository.AdjustmentRepository) error {
		if err := itemRepo.Create(item); err != nil {
			return err
		}
		if input.InitialQuantity.IsZero() {
			return nil
		}
		adj := &entity.Adjustment{
			ID:                uuid.New().String(),
			ItemID:            item.ID,
			Delta:             input.InitialQuantity,
			Reason:            entity.AdjustmentReasonInitial,
			Note:              "existencia inicial",
			ActorID:           actor.ID,
			ActorName:         actor.Name,
			ActorRole:         actor.Role,
			ResultingQuantity: input.InitialQuantity,
			CreatedAt:         now,
		}
		return adjRepo.Create(adj)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// AdjustInput entrada para un ajuste de existencia.
type AdjustInput struct {
	Delta  decimal.Decimal // con signo, distinta de cero
	Reason string
	Note   string
	Actor  entity.Actor
}

// Adjust aplica un ajuste al artículo identificado por ID. Dentro de una sola
// transacción: bloquea la fila, calcula la nueva existencia, rechaza con
// domain.ErrNegativeQuantity si quedaría negativa y el artículo no lo permite
// (sin tocar artículo ni libro mayor), y en caso contrario escribe la nueva
// cantidad y agrega el asiento inmutable con el saldo resultante.
func (uc *LedgerUseCase) Adjust(ctx context.Context, itemID string, input AdjustInput) (*entity.Adjustment, error) {
	if itemID == "" || input.Delta.IsZero() || !entity.ValidAdjustmentReason(input.Reason) {
		return nil, domain.ErrInvalidInput
	}

	var adj *entity.Adjustment
	err := uc.txRunner.Run(ctx, func(itemRepo repository.StockItemRepository, adjRepo repository.AdjustmentRepository) error {
		item, err := itemRepo.GetByIDForUpdate(itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}
		adj, err = applyAdjustment(itemRepo, adjRepo, item, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// AdjustBySku aplica un ajuste localizando el artículo por SKU. Lo usa la
// conciliación de reportes, cuyas partidas referencian inventario por SKU.
func (uc *LedgerUseCase) AdjustBySku(ctx context.Context, sku string, input AdjustInput) (*entity.Adjustment, error) {
	if sku == "" || input.Delta.IsZero() || !entity.ValidAdjustmentReason(input.Reason) {
		return nil, domain.ErrInvalidInput
	}

	var adj *entity.Adjustment
	err := uc.txRunner.Run(ctx, func(itemRepo repository.StockItemRepository, adjRepo repository.AdjustmentRepository) error {
		item, err := itemRepo.GetBySkuForUpdate(sku)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}
		adj, err = applyAdjustment(itemRepo, adjRepo, item, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// applyAdjustment ejecuta la escritura existencia+asiento sobre una fila ya bloqueada.
// La verificación de negativo ocurre bajo el mismo bloqueo: dos sobregiros
// concurrentes no pueden pasar ambos la verificación.
func applyAdjustment(itemRepo repository.StockItemRepository, adjRepo repository.AdjustmentRepository, item *entity.StockItem, input AdjustInput) (*entity.Adjustment, error) {
	newQty := item.QuantityOnHand.Add(input.Delta)
	if newQty.IsNegative() && !item.AllowNegative {
		return nil, domain.ErrNegativeQuantity
	}

	now := time.Now()
	item.QuantityOnHand = newQty
	item.LastAdjustmentAt = &now
	item.LastAdjustmentBy = input.Actor.ID
	item.UpdatedAt = now
	if err := itemRepo.UpdateQuantity(item); err != nil {
		return nil, err
	}

	adj := &entity.Adjustment{
		ID:                uuid.New().String(),
		ItemID:            item.ID,
		Delta:             input.Delta,
		Reason:            input.Reason,
		Note:              input.Note,
		ActorID:           input.Actor.ID,
		ActorName:         input.Actor.Name,
		ActorRole:         input.Actor.Role,
		ResultingQuantity: newQty,
		CreatedAt:         now,
	}
	if err := adjRepo.Create(adj); err != nil {
		return nil, err
	}
	return adj, nil
}

// GetItem obtiene un artículo por ID.
func (uc *LedgerUseCase) GetItem(ctx context.Context, itemID string) (*entity.StockItem, error) {
	item, err := uc.itemRepo.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}

// ListItems lista artículos con filtro opcional por status.
func (uc *LedgerUseCase) ListItems(ctx context.Context, status string, limit, offset int) ([]*entity.StockItem, error) {
	if status != "" && status != entity.ItemStatusActive && status != entity.ItemStatusInactive {
		return nil, domain.ErrInvalidInput
	}
	return uc.itemRepo.List(status, limit, offset)
}

// ListNeedingReorder devuelve los artículos activos en o bajo su punto de reorden.
func (uc *LedgerUseCase) ListNeedingReorder(ctx context.Context) ([]*entity.StockItem, error) {
	return uc.itemRepo.ListNeedingReorder()
}

// ListAdjustments devuelve los ajustes de un artículo, más recientes primero.
// Solo lectura; para auditoría.
func (uc *LedgerUseCase) ListAdjustments(ctx context.Context, itemID string, limit int) ([]*entity.Adjustment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	item, err := uc.itemRepo.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	return uc.adjRepo.ListByItem(itemID, limit)
}

// SetStatus activa o desactiva un artículo; no afecta existencia ni libro mayor.
func (uc *LedgerUseCase) SetStatus(ctx context.Context, itemID, status string) error {
	if status != entity.ItemStatusActive && status != entity.ItemStatusInactive {
		return domain.ErrInvalidInput
	}
	item, err := uc.itemRepo.GetByID(itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrItemNotFound
	}
	return uc.itemRepo.SetStatus(itemID, status)
}
