package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/dto"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/reports"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
)

// ReportHandler maneja las peticiones HTTP de reportes de almacén (protegido).
type ReportHandler struct {
	uc *reports.ReportUseCase
}

// NewReportHandler construye el handler.
func NewReportHandler(uc *reports.ReportUseCase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

// Create godoc
// @Summary      Crear reporte de entrega de almacén
// @Description  Persiste el reporte y ejecuta la conciliación de entrega contra el libro mayor. Fallas parciales de stock no rechazan el reporte: se devuelven en stock_adjustments para corrección manual.
// @Tags         reports
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReportRequest  true  "report_type, herramientas, refacciones"
// @Success      201   {object}  dto.ReportResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reports [post]
func (h *ReportHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReportRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.CreateReport(c.Context(), reports.CreateReportInput{
		ReportType:   in.ReportType,
		Herramientas: itemInputs(in.Herramientas),
		Refacciones:  itemInputs(in.Refacciones),
		Note:         in.Note,
	}, GetActor(c))
	if err != nil {
		return reportError(c, err)
	}
	// El middleware de idempotencia asocia este ID al resultado cacheado.
	c.Locals(LocalResultID, result.Report.ID)
	return c.Status(fiber.StatusCreated).JSON(dto.ReportToResponse(result.Report, &result.StockAdjustments))
}

// ProcessReturn godoc
// @Summary      Marcar devolución de un reporte
// @Description  Acredita al stock las partidas aún no conciliadas. Reinvocable: las partidas ya acreditadas se omiten.
// @Tags         reports
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true   "ID del reporte"
// @Param        body  body  dto.ReturnReportRequest  false  "returned_at opcional"
// @Success      200   {object}  dto.ReportResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/reports/{id}/return [post]
func (h *ReportHandler) ProcessReturn(c *fiber.Ctx) error {
	var in dto.ReturnReportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	result, err := h.uc.ProcessReturn(c.Context(), c.Params("id"), GetActor(c), in.ReturnedAt)
	if err != nil {
		return reportError(c, err)
	}
	return c.JSON(dto.ReportToResponse(result.Report, &result.StockAdjustments))
}

// GetByID godoc
// @Summary      Obtener reporte por ID
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del reporte"
// @Success      200  {object}  dto.ReportResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reports/{id} [get]
func (h *ReportHandler) GetByID(c *fiber.Ctx) error {
	report, err := h.uc.GetReport(c.Context(), c.Params("id"))
	if err != nil {
		return reportError(c, err)
	}
	return c.JSON(dto.ReportToResponse(report, nil))
}

// List godoc
// @Summary      Listar reportes
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        report_type  query  string  false  "delivery | return"
// @Success      200  {array}  dto.ReportResponse
// @Router       /api/reports [get]
func (h *ReportHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	list, err := h.uc.ListReports(c.Context(), c.Query("report_type"), page.Limit, page.Offset)
	if err != nil {
		return reportError(c, err)
	}
	out := make([]dto.ReportResponse, 0, len(list))
	for _, report := range list {
		out = append(out, dto.ReportToResponse(report, nil))
	}
	return c.JSON(fiber.Map{"total": len(out), "reports": out})
}

func itemInputs(in []dto.ReportItemRequest) []reports.LineItemInput {
	out := make([]reports.LineItemInput, 0, len(in))
	for _, it := range in {
		out = append(out, reports.LineItemInput{
			Sku:   it.Sku,
			Name:  it.Name,
			Units: it.Units,
			Note:  it.Note,
		})
	}
	return out
}

func reportError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrReportNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "REPORT_NOT_FOUND", Message: "reporte no encontrado"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
