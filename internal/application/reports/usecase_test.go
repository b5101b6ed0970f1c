package reports

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"
	"github.com/WhosAnder/ImaMonorepo-sub000/pkg/logger"
)

type fakeReportRepo struct {
	reports        map[string]*entity.WarehouseReport
	failUpdate     error
	updateRecCalls int
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[string]*entity.WarehouseReport)}
}

func (r *fakeReportRepo) Create(report *entity.WarehouseReport) error {
	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

func (r *fakeReportRepo) GetByID(id string) (*entity.WarehouseReport, error) {
	rep, ok := r.reports[id]
	if !ok {
		return nil, nil
	}
	cp := *rep
	cp.ReturnProcessedItemIDs = append([]string(nil), rep.ReturnProcessedItemIDs...)
	return &cp, nil
}

func (r *fakeReportRepo) UpdateReconciliation(report *entity.WarehouseReport) error {
	r.updateRecCalls++
	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.reports[report.ID]; !ok {
		return domain.ErrReportNotFound
	}
	cp := *report
	cp.ReturnProcessedItemIDs = append([]string(nil), report.ReturnProcessedItemIDs...)
	r.reports[report.ID] = &cp
	return nil
}

func (r *fakeReportRepo) List(reportType string, limit, offset int) ([]*entity.WarehouseReport, error) {
	var out []*entity.WarehouseReport
	for _, rep := range r.reports {
		if reportType != "" && rep.ReportType != reportType {
			continue
		}
		cp := *rep
		out = append(out, &cp)
	}
	return out, nil
}

func newReportFixture() (*ReportUseCase, *fakeReportRepo, *fakeLedger) {
	repo := newFakeReportRepo()
	ledger := &fakeLedger{}
	rec := NewReconciler(ledger, logger.Nop(), nil)
	return NewReportUseCase(repo, rec, logger.Nop()), repo, ledger
}

func entradaDePrueba() CreateReportInput {
	return CreateReportInput{
		ReportType: entity.ReportTypeDelivery,
		Herramientas: []LineItemInput{
			{Sku: "TAL-001", Name: "Taladro", Units: dec("2")},
		},
		Refacciones: []LineItemInput{
			{Sku: "BAL-220", Name: "Balero", Units: dec("4")},
		},
		Note: "obra poniente",
	}
}

// ─────────────────────────────────────────────────────────────
// Creación
// ─────────────────────────────────────────────────────────────

func TestCreateReport_PersisteYConciliaEntrega(t *testing.T) {
	uc, repo, ledger := newReportFixture()

	result, err := uc.CreateReport(context.Background(), entradaDePrueba(), supervisor)
	require.NoError(t, err)

	rep := result.Report
	assert.True(t, strings.HasPrefix(rep.Folio, "RPT-"))
	assert.Len(t, rep.Folio, 12)
	assert.NotNil(t, rep.DeliveryAdjustedAt, "la entrega se concilia al crear")
	assert.Nil(t, rep.ReturnAdjustedAt)
	assert.Equal(t, supervisor.ID, rep.CreatedBy)
	for _, it := range rep.LineItems() {
		assert.NotEmpty(t, it.ID, "cada partida recibe ID propio")
	}

	assert.Equal(t, 2, result.StockAdjustments.Processed)
	assert.Len(t, ledger.calls, 2)
	assert.True(t, ledger.calls[0].Input.Delta.IsNegative())

	persistido, err := repo.GetByID(rep.ID)
	require.NoError(t, err)
	require.NotNil(t, persistido)
	assert.NotNil(t, persistido.DeliveryAdjustedAt)
}

// Fallas parciales de stock no invalidan la creación del reporte.
func TestCreateReport_FallaParcialSigueCreando(t *testing.T) {
	uc, repo, ledger := newReportFixture()
	ledger.failSku = map[string]error{"TAL-001": domain.ErrNegativeQuantity}

	result, err := uc.CreateReport(context.Background(), entradaDePrueba(), supervisor)
	require.NoError(t, err, "el reporte se crea aunque una partida falle")

	assert.Equal(t, 1, result.StockAdjustments.Processed)
	require.Len(t, result.StockAdjustments.Failed, 1)
	assert.Equal(t, FailureInsufficientStock, result.StockAdjustments.Failed[0].Reason)

	persistido, _ := repo.GetByID(result.Report.ID)
	assert.NotNil(t, persistido)
}

// Perder la marca de conciliación se tolera: el stock ya se ajustó.
func TestCreateReport_MarcaDeConciliacionMejorEsfuerzo(t *testing.T) {
	uc, repo, _ := newReportFixture()
	repo.failUpdate = errors.New("conexión perdida")

	result, err := uc.CreateReport(context.Background(), entradaDePrueba(), supervisor)
	require.NoError(t, err)
	assert.Equal(t, 2, result.StockAdjustments.Processed)
}

func TestCreateReport_EntradaInvalida(t *testing.T) {
	uc, _, _ := newReportFixture()
	ctx := context.Background()

	_, err := uc.CreateReport(ctx, CreateReportInput{ReportType: entity.ReportTypeReturn}, supervisor)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "solo se crean reportes de entrega")

	_, err = uc.CreateReport(ctx, CreateReportInput{ReportType: entity.ReportTypeDelivery}, supervisor)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "un reporte sin partidas no tiene sentido")

	_, err = uc.CreateReport(ctx, CreateReportInput{
		ReportType:   entity.ReportTypeDelivery,
		Herramientas: []LineItemInput{{Sku: "X", Name: "X", Units: dec("-1")}},
	}, supervisor)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "las partidas llevan magnitud, nunca signo")
}

// ─────────────────────────────────────────────────────────────
// Devolución
// ─────────────────────────────────────────────────────────────

func TestProcessReturn_UseCase_AcreditaYPersisteElConjunto(t *testing.T) {
	uc, repo, ledger := newReportFixture()
	created, err := uc.CreateReport(context.Background(), entradaDePrueba(), supervisor)
	require.NoError(t, err)
	debitos := len(ledger.calls)

	result, err := uc.ProcessReturn(context.Background(), created.Report.ID, supervisor, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.StockAdjustments.Processed)
	assert.NotNil(t, result.Report.ReturnAdjustedAt)
	assert.Len(t, ledger.calls, debitos+2)

	persistido, _ := repo.GetByID(created.Report.ID)
	assert.Len(t, persistido.ReturnProcessedItemIDs, 2)
}

// Reinvocar la devolución del mismo reporte no produce doble crédito.
func TestProcessReturn_UseCase_Reinvocable(t *testing.T) {
	uc, repo, ledger := newReportFixture()
	created, err := uc.CreateReport(context.Background(), entradaDePrueba(), supervisor)
	require.NoError(t, err)

	_, err = uc.ProcessReturn(context.Background(), created.Report.ID, supervisor, nil)
	require.NoError(t, err)
	llamadas := len(ledger.calls)
	conjunto, _ := repo.GetByID(created.Report.ID)

	result2, err := uc.ProcessReturn(context.Background(), created.Report.ID, supervisor, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result2.StockAdjustments.Processed)
	assert.Len(t, ledger.calls, llamadas, "ninguna partida debe acreditarse de nuevo")

	despues, _ := repo.GetByID(created.Report.ID)
	assert.ElementsMatch(t, conjunto.ReturnProcessedItemIDs, despues.ReturnProcessedItemIDs)
}

func TestProcessReturn_UseCase_FechaExplicita(t *testing.T) {
	uc, _, _ := newReportFixture()
	created, err := uc.CreateReport(context.Background(), entradaDePrueba(), supervisor)
	require.NoError(t, err)

	cuando := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	result, err := uc.ProcessReturn(context.Background(), created.Report.ID, supervisor, &cuando)
	require.NoError(t, err)
	require.NotNil(t, result.Report.ReturnAdjustedAt)
	assert.True(t, cuando.Equal(*result.Report.ReturnAdjustedAt))
}

// Si el conjunto procesado no puede persistirse el error sí es duro: una
// reinvocación podría acreditar dos veces.
func TestProcessReturn_UseCase_PersistenciaDelConjuntoEsObligatoria(t *testing.T) {
	uc, repo, _ := newReportFixture()
	created, err := uc.CreateReport(context.Background(), entradaDePrueba(), supervisor)
	require.NoError(t, err)

	repo.failUpdate = errors.New("conexión perdida")
	_, err = uc.ProcessReturn(context.Background(), created.Report.ID, supervisor, nil)
	assert.Error(t, err)
}

func TestProcessReturn_UseCase_ReporteInexistente(t *testing.T) {
	uc, _, _ := newReportFixture()

	_, err := uc.ProcessReturn(context.Background(), "no-existe", supervisor, nil)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

// ─────────────────────────────────────────────────────────────
// Lecturas
// ─────────────────────────────────────────────────────────────

func TestGetReport(t *testing.T) {
	uc, _, _ := newReportFixture()
	created, err := uc.CreateReport(context.Background(), entradaDePrueba(), supervisor)
	require.NoError(t, err)

	got, err := uc.GetReport(context.Background(), created.Report.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Report.Folio, got.Folio)

	_, err = uc.GetReport(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestListReports_FiltroInvalido(t *testing.T) {
	uc, _, _ := newReportFixture()

	_, err := uc.ListReports(context.Background(), "inventario", 20, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
