package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/repository"
)

var _ repository.ReportRepository = (*ReportRepo)(nil)

// ReportRepo implementación de ReportRepository sobre PostgreSQL. Las colecciones
// de partidas y el conjunto de IDs procesados en devolución viajan como JSONB.
type ReportRepo struct {
	q Querier
}

// NewReportRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReportRepository(q Querier) *ReportRepo {
	return &ReportRepo{q: q}
}

// Create persiste un reporte nuevo.
func (r *ReportRepo) Create(report *entity.WarehouseReport) error {
	herramientas, err := json.Marshal(report.Herramientas)
	if err != nil {
		return fmt.Errorf("marshal herramientas: %w", err)
	}
	refacciones, err := json.Marshal(report.Refacciones)
	if err != nil {
		return fmt.Errorf("marshal refacciones: %w", err)
	}
	processed, err := json.Marshal(report.ReturnProcessedItemIDs)
	if err != nil {
		return fmt.Errorf("marshal processed ids: %w", err)
	}

	query := `
		INSERT INTO warehouse_reports (id, folio, report_type, herramientas, refacciones, note,
			return_processed_item_ids, delivery_adjusted_at, return_adjusted_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.q.Exec(context.Background(), query,
		report.ID, report.Folio, report.ReportType, herramientas, refacciones, report.Note,
		processed, report.DeliveryAdjustedAt, report.ReturnAdjustedAt,
		report.CreatedBy, report.CreatedAt, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetByID obtiene un reporte por ID; nil si no existe.
func (r *ReportRepo) GetByID(id string) (*entity.WarehouseReport, error) {
	query := `
		SELECT id, folio, report_type, herramientas, refacciones, note,
			return_processed_item_ids, delivery_adjusted_at, return_adjusted_at, created_by, created_at, updated_at
		FROM warehouse_reports WHERE id = $1`
	report, err := scanReport(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// UpdateReconciliation persiste las marcas de conciliación y el conjunto fusionado
// de partidas procesadas en devolución. El resto del reporte no se toca.
func (r *ReportRepo) UpdateReconciliation(report *entity.WarehouseReport) error {
	processed, err := json.Marshal(report.ReturnProcessedItemIDs)
	if err != nil {
		return fmt.Errorf("marshal processed ids: %w", err)
	}
	query := `
		UPDATE warehouse_reports
		SET return_processed_item_ids = $2, delivery_adjusted_at = $3, return_adjusted_at = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(context.Background(), query,
		report.ID, processed, report.DeliveryAdjustedAt, report.ReturnAdjustedAt, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update report reconciliation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update report reconciliation: reporte %s no existe", report.ID)
	}
	return nil
}

// List lista reportes con filtro opcional por tipo, más recientes primero.
func (r *ReportRepo) List(reportType string, limit, offset int) ([]*entity.WarehouseReport, error) {
	query := `
		SELECT id, folio, report_type, herramientas, refacciones, note,
			return_processed_item_ids, delivery_adjusted_at, return_adjusted_at, created_by, created_at, updated_at
		FROM warehouse_reports`
	args := []any{}
	if reportType != "" {
		query += ` WHERE report_type = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, reportType, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := []*entity.WarehouseReport{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanReport(row pgxScanner) (*entity.WarehouseReport, error) {
	var report entity.WarehouseReport
	var herramientas, refacciones, processed []byte
	err := row.Scan(
		&report.ID, &report.Folio, &report.ReportType, &herramientas, &refacciones, &report.Note,
		&processed, &report.DeliveryAdjustedAt, &report.ReturnAdjustedAt,
		&report.CreatedBy, &report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(herramientas, &report.Herramientas); err != nil {
		return nil, fmt.Errorf("unmarshal herramientas: %w", err)
	}
	if err := json.Unmarshal(refacciones, &report.Refacciones); err != nil {
		return nil, fmt.Errorf("unmarshal refacciones: %w", err)
	}
	if err := json.Unmarshal(processed, &report.ReturnProcessedItemIDs); err != nil {
		return nil, fmt.Errorf("unmarshal processed ids: %w", err)
	}
	return &report, nil
}
