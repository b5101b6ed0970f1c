package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/repository"
)

var _ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)

// AdjustmentRepo implementación de AdjustmentRepository sobre PostgreSQL.
// La tabla es append-only: este adaptador no expone UPDATE ni DELETE.
type AdjustmentRepo struct {
	q Querier
}

// NewAdjustmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAdjustmentRepository(q Querier) *AdjustmentRepo {
	return &AdjustmentRepo{q: q}
}

// Create agrega un asiento inmutable al libro mayor.
func (r *AdjustmentRepo) Create(adj *entity.Adjustment) error {
	query := `
		INSERT INTO stock_adjustments (id, item_id, delta, reason, note, actor_id, actor_name, actor_role,
			resulting_quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(context.Background(), query,
		adj.ID, adj.ItemID, adj.Delta, adj.Reason, adj.Note,
		adj.ActorID, adj.ActorName, adj.ActorRole, adj.ResultingQuantity, adj.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create adjustment: %w", err)
	}
	return nil
}

// ListByItem devuelve los ajustes de un artículo, más recientes primero.
func (r *AdjustmentRepo) ListByItem(itemID string, limit int) ([]*entity.Adjustment, error) {
	query := `
		SELECT id, item_id, delta, reason, note, actor_id, actor_name, actor_role, resulting_quantity, created_at
		FROM stock_adjustments
		WHERE item_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := r.q.Query(context.Background(), query, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	adjs := []*entity.Adjustment{}
	for rows.Next() {
		var a entity.Adjustment
		if err := rows.Scan(
			&a.ID, &a.ItemID, &a.Delta, &a.Reason, &a.Note,
			&a.ActorID, &a.ActorName, &a.ActorRole, &a.ResultingQuantity, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		adjs = append(adjs, &a)
	}
	return adjs, rows.Err()
}

// SumDeltas suma todos los deltas de un artículo (reconstrucción de saldo).
func (r *AdjustmentRepo) SumDeltas(itemID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(delta), 0) FROM stock_adjustments WHERE item_id = $1`
	var sum decimal.Decimal
	if err := r.q.QueryRow(context.Background(), query, itemID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum adjustment deltas: %w", err)
	}
	return sum, nil
}
