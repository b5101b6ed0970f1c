package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/repository"
)

var _ repository.StockItemRepository = (*StockItemRepo)(nil)

const stockItemColumns = `id, sku, name, quantity_on_hand, min_quantity, max_quantity, reorder_point,
		allow_negative, status, last_adjustment_at, last_adjustment_by, created_at, updated_at`

// StockItemRepo implementación de StockItemRepository sobre PostgreSQL (usable con pool o tx).
type StockItemRepo struct {
	q Querier
}

// NewStockItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockItemRepository(q Querier) *StockItemRepo {
	return &StockItemRepo{q: q}
}

// Create persiste un artículo nuevo. Una violación del índice único de sku se
// traduce a domain.ErrDuplicateSku.
func (r *StockItemRepo) Create(item *entity.StockItem) error {
	query := `
		INSERT INTO stock_items (id, sku, name, quantity_on_hand, min_quantity, max_quantity, reorder_point,
			allow_negative, status, last_adjustment_at, last_adjustment_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.Sku, item.Name, item.QuantityOnHand, item.MinQuantity, item.MaxQuantity,
		item.ReorderPoint, item.AllowNegative, item.Status, item.LastAdjustmentAt,
		nullIfEmpty(item.LastAdjustmentBy), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSku
		}
		return fmt.Errorf("create stock item: %w", err)
	}
	return nil
}

// GetByID obtiene un artículo por ID; nil si no existe.
func (r *StockItemRepo) GetByID(id string) (*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE id = $1`
	return r.scanOne(query, id)
}

// GetBySku obtiene un artículo por SKU; nil si no existe.
func (r *StockItemRepo) GetBySku(sku string) (*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE sku = $1`
	return r.scanOne(query, sku)
}

// GetByIDForUpdate obtiene el artículo bloqueando la fila (SELECT FOR UPDATE).
// Solo dentro de una transacción.
func (r *StockItemRepo) GetByIDForUpdate(id string) (*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE id = $1 FOR UPDATE`
	return r.scanOne(query, id)
}

// GetBySkuForUpdate obtiene el artículo por SKU bloqueando la fila.
func (r *StockItemRepo) GetBySkuForUpdate(sku string) (*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE sku = $1 FOR UPDATE`
	return r.scanOne(query, sku)
}

// UpdateQuantity escribe la nueva existencia y los metadatos del último ajuste.
// Se asume fila bloqueada por GetByIDForUpdate/GetBySkuForUpdate en la misma tx.
func (r *StockItemRepo) UpdateQuantity(item *entity.StockItem) error {
	query := `
		UPDATE stock_items
		SET quantity_on_hand = $2, last_adjustment_at = $3, last_adjustment_by = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(context.Background(), query,
		item.ID, item.QuantityOnHand, item.LastAdjustmentAt, nullIfEmpty(item.LastAdjustmentBy), item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update stock item quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// SetStatus cambia el estado del artículo; no toca existencia ni libro mayor.
func (r *StockItemRepo) SetStatus(id, status string) error {
	query := `UPDATE stock_items SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(context.Background(), query, id, status)
	if err != nil {
		return fmt.Errorf("set stock item status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// List lista artículos con filtro opcional por status, ordenados por sku.
func (r *StockItemRepo) List(status string, limit, offset int) ([]*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY sku LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY sku LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// ListNeedingReorder devuelve artículos activos en o bajo su punto de reorden.
// Cálculo siempre sobre el estado actual, nunca cacheado.
func (r *StockItemRepo) ListNeedingReorder() ([]*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + `
		FROM stock_items
		WHERE status = 'active' AND reorder_point IS NOT NULL AND quantity_on_hand <= reorder_point
		ORDER BY sku`
	rows, err := r.q.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("list items needing reorder: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *StockItemRepo) scanOne(query string, arg any) (*entity.StockItem, error) {
	item, err := scanItem(r.q.QueryRow(context.Background(), query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock item: %w", err)
	}
	return item, nil
}

type pgxScanner interface {
	Scan(dest ...any) error
}

func scanItem(row pgxScanner) (*entity.StockItem, error) {
	var item entity.StockItem
	var lastBy *string
	err := row.Scan(
		&item.ID, &item.Sku, &item.Name, &item.QuantityOnHand,
		&item.MinQuantity, &item.MaxQuantity, &item.ReorderPoint,
		&item.AllowNegative, &item.Status, &item.LastAdjustmentAt, &lastBy,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastBy != nil {
		item.LastAdjustmentBy = *lastBy
	}
	return &item, nil
}

func scanItems(rows pgx.Rows) ([]*entity.StockItem, error) {
	items := []*entity.StockItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
