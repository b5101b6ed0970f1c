package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/repository"
)

var _ repository.DedupRepository = (*DedupRepo)(nil)

// DedupRepo implementación de DedupRepository sobre PostgreSQL.
// La unicidad por (request_hash, endpoint, method) la garantiza un índice único;
// la aplicación nunca hace check-then-insert.
type DedupRepo struct {
	q Querier
}

// NewDedupRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDedupRepository(q Querier) *DedupRepo {
	return &DedupRepo{q: q}
}

// Get devuelve el registro vigente o nil. El filtro expires_at > now() implementa
// la expiración en lectura: un registro vencido es invisible aunque la purga
// fuera de banda aún no lo elimine.
func (r *DedupRepo) Get(requestHash, endpoint, method string) (*entity.DeduplicationRecord, error) {
	query := `
		SELECT id, request_hash, endpoint, method, status, result_id, result_data, error, created_at, expires_at
		FROM dedup_records
		WHERE request_hash = $1 AND endpoint = $2 AND method = $3 AND expires_at > now()`
	var rec entity.DeduplicationRecord
	var resultID, errMsg *string
	err := r.q.QueryRow(context.Background(), query, requestHash, endpoint, method).Scan(
		&rec.ID, &rec.RequestHash, &rec.Endpoint, &rec.Method, &rec.Status,
		&resultID, &rec.ResultData, &errMsg, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dedup record: %w", err)
	}
	if resultID != nil {
		rec.ResultID = *resultID
	}
	if errMsg != nil {
		rec.Error = *errMsg
	}
	return &rec, nil
}

// Begin registra el intento como in_progress en una sola sentencia atómica:
// el INSERT gana la fila nueva; en conflicto, el UPDATE condicional solo
// reutiliza filas failed o expiradas. Si la condición no aplica (hay un intento
// vigente in_progress o completed) no vuelve fila alguna y el que llamó perdió
// la carrera: domain.ErrDuplicateInProgress.
func (r *DedupRepo) Begin(rec *entity.DeduplicationRecord) error {
	query := `
		INSERT INTO dedup_records (id, request_hash, endpoint, method, status, result_id, result_data, error, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, NULL, NULL, NULL, $6, $7)
		ON CONFLICT (request_hash, endpoint, method) DO UPDATE
		SET status = EXCLUDED.status,
			result_id = NULL,
			result_data = NULL,
			error = NULL,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE dedup_records.status = 'failed' OR dedup_records.expires_at <= EXCLUDED.created_at
		RETURNING id`
	var id string
	err := r.q.QueryRow(context.Background(), query,
		rec.ID, rec.RequestHash, rec.Endpoint, rec.Method, rec.Status, rec.CreatedAt, rec.ExpiresAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrDuplicateInProgress
		}
		// Dos upserts concurrentes sobre una clave inexistente aún pueden chocar
		// en el índice único; el perdedor también observa duplicado.
		if isUniqueViolation(err) {
			return domain.ErrDuplicateInProgress
		}
		return fmt.Errorf("begin dedup record: %w", err)
	}
	rec.ID = id
	return nil
}

// MarkCompleted transiciona in_progress -> completed cacheando el resultado.
func (r *DedupRepo) MarkCompleted(requestHash, endpoint, method, resultID string, resultData []byte) error {
	query := `
		UPDATE dedup_records
		SET status = 'completed', result_id = $4, result_data = $5, error = NULL
		WHERE request_hash = $1 AND endpoint = $2 AND method = $3 AND status = 'in_progress'`
	tag, err := r.q.Exec(context.Background(), query, requestHash, endpoint, method, resultID, resultData)
	if err != nil {
		return fmt.Errorf("mark dedup completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed transiciona in_progress -> failed conservando el error.
func (r *DedupRepo) MarkFailed(requestHash, endpoint, method, errMsg string) error {
	query := `
		UPDATE dedup_records
		SET status = 'failed', error = $4
		WHERE request_hash = $1 AND endpoint = $2 AND method = $3 AND status = 'in_progress'`
	tag, err := r.q.Exec(context.Background(), query, requestHash, endpoint, method, errMsg)
	if err != nil {
		return fmt.Errorf("mark dedup failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteExpired purga registros vencidos (barrido fuera de banda).
func (r *DedupRepo) DeleteExpired(now time.Time) (int64, error) {
	tag, err := r.q.Exec(context.Background(), `DELETE FROM dedup_records WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired dedup records: %w", err)
	}
	return tag.RowsAffected(), nil
}
