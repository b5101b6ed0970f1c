package reports

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/repository"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/logger"
)

// ReportUseCase crea reportes de almacén, dispara la conciliación de entrega al
// crearlos y procesa la acción de devolución (reinvocable sin doble crédito).
type ReportUseCase struct {
	reportRepo repository.ReportRepository
	reconciler *Reconciler
	log        *logger.Logger
}

// NewReportUseCase construye el caso de uso.
func NewReportUseCase(reportRepo repository.ReportRepository, reconciler *Reconciler, log *logger.Logger) *ReportUseCase {
	return &ReportUseCase{reportRepo: reportRepo, reconciler: reconciler, log: log}
}

// LineItemInput partida de entrada de un reporte.
type LineItemInput struct {
	Sku   string
	Name  string
	Units decimal.Decimal // magnitud, siempre positiva; el sentido lo da la operación
	Note  string
}

// CreateReportInput entrada para crear un reporte de almacén.
type CreateReportInput struct {
	ReportType   string
	Herramientas []LineItemInput
	Refacciones  []LineItemInput
	Note         string
}

// CreateResult reporte persistido más el resumen transitorio de conciliación.
type CreateResult struct {
	Report           *entity.WarehouseReport
	StockAdjustments Summary
}

// CreateReport persiste el reporte y ejecuta la conciliación de entrega
// exactamente una vez (en el momento de creación). Un reporte con fallas
// parciales de stock sigue considerándose creado: el resumen es informativo y
// se entrega al actor para corrección manual.
func (uc *ReportUseCase) CreateReport(ctx context.Context, input CreateReportInput, actor entity.Actor) (*CreateResult, error) {
	if input.ReportType != entity.ReportTypeDelivery {
		return nil, domain.ErrInvalidInput
	}
	if len(input.Herramientas) == 0 && len(input.Refacciones) == 0 {
		return nil, domain.ErrInvalidInput
	}
	herramientas, err := buildItems(input.Herramientas)
	if err != nil {
		return nil, err
	}
	refacciones, err := buildItems(input.Refacciones)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	report := &entity.WarehouseReport{
		ID:                     uuid.New().String(),
		Folio:                  newFolio(),
		ReportType:             input.ReportType,
		Herramientas:           herramientas,
		Refacciones:            refacciones,
		Note:                   strings.TrimSpace(input.Note),
		ReturnProcessedItemIDs: []string{},
		CreatedBy:              actor.ID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := uc.reportRepo.Create(report); err != nil {
		return nil, err
	}

	summary := uc.reconciler.ProcessDelivery(ctx, report, actor)
	adjustedAt := time.Now()
	report.DeliveryAdjustedAt = &adjustedAt
	if err := uc.reportRepo.UpdateReconciliation(report); err != nil {
		// El reporte ya existe y el stock ya se ajustó; perder la marca solo
		// se registra, no invalida la operación.
		uc.log.Warn().Err(err).Str("folio", report.Folio).Msg("no se pudo persistir la marca de conciliación de entrega")
	}
	return &CreateResult{Report: report, StockAdjustments: summary}, nil
}

// ReturnResult resultado de procesar la devolución de un reporte.
type ReturnResult struct {
	Report           *entity.WarehouseReport
	StockAdjustments Summary
}

// ProcessReturn acredita al stock las partidas aún no conciliadas del reporte.
// Reinvocable: las partidas ya presentes en ReturnProcessedItemIDs se omiten y
// el conjunto persistido se fusiona con el previo.
func (uc *ReportUseCase) ProcessReturn(ctx context.Context, reportID string, actor entity.Actor, returnedAt *time.Time) (*ReturnResult, error) {
	report, err := uc.reportRepo.GetByID(reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, domain.ErrReportNotFound
	}

	summary, processedIDs := uc.reconciler.ProcessReturn(ctx, report, actor)
	report.ReturnProcessedItemIDs = processedIDs
	when := time.Now()
	if returnedAt != nil {
		when = *returnedAt
	}
	report.ReturnAdjustedAt = &when
	report.UpdatedAt = time.Now()
	if err := uc.reportRepo.UpdateReconciliation(report); err != nil {
		// Si no persiste el conjunto procesado, una reinvocación podría volver a
		// acreditar: esto sí es un error duro para el caller.
		return nil, err
	}
	return &ReturnResult{Report: report, StockAdjustments: summary}, nil
}

// GetReport obtiene un reporte por ID.
func (uc *ReportUseCase) GetReport(ctx context.Context, reportID string) (*entity.WarehouseReport, error) {
	report, err := uc.reportRepo.GetByID(reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, domain.ErrReportNotFound
	}
	return report, nil
}

// ListReports lista reportes con filtro opcional por tipo.
func (uc *ReportUseCase) ListReports(ctx context.Context, reportType string, limit, offset int) ([]*entity.WarehouseReport, error) {
	if reportType != "" && reportType != entity.ReportTypeDelivery && reportType != entity.ReportTypeReturn {
		return nil, domain.ErrInvalidInput
	}
	return uc.reportRepo.List(reportType, limit, offset)
}

// buildItems valida y materializa partidas con ID propio.
func buildItems(inputs []LineItemInput) ([]entity.ReportItem, error) {
	items := make([]entity.ReportItem, 0, len(inputs))
	for _, in := range inputs {
		if in.Units.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		items = append(items, entity.ReportItem{
			ID:    uuid.New().String(),
			Sku:   strings.TrimSpace(in.Sku),
			Name:  strings.TrimSpace(in.Name),
			Units: in.Units,
			Note:  strings.TrimSpace(in.Note),
		})
	}
	return items, nil
}

// newFolio genera un folio corto legible a partir de un UUID.
func newFolio() string {
	return "RPT-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
