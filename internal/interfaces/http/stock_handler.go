package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/dto"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/application/stock"
	"github.com/WhosAnder/ImaMonorepo-sub000/internal/domain"
)

// StockHandler maneja las peticiones HTTP de inventario (protegido).
type StockHandler struct {
	ledger *stock.LedgerUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(ledger *stock.LedgerUseCase) *StockHandler {
	return &StockHandler{ledger: ledger}
}

// CreateItem godoc
// @Summary      Crear artículo de inventario
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateStockItemRequest  true  "sku, name, initial_quantity, umbrales opcionales"
// @Success      201   {object}  dto.StockItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/items [post]
func (h *StockHandler) CreateItem(c *fiber.Ctx) error {
	var in dto.CreateStockItemRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	item, err := h.ledger.CreateItem(c.Context(), stock.CreateItemInput{
		Sku:             in.Sku,
		Name:            in.Name,
		InitialQuantity: in.InitialQuantity,
		MinQuantity:     in.MinQuantity,
		MaxQuantity:     in.MaxQuantity,
		ReorderPoint:    in.ReorderPoint,
		AllowNegative:   in.AllowNegative,
	}, GetActor(c))
	if err != nil {
		return stockError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.StockItemToResponse(item))
}

// GetItem godoc
// @Summary      Obtener artículo por ID
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del artículo"
// @Success      200  {object}  dto.StockItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/items/{id} [get]
func (h *StockHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.ledger.GetItem(c.Context(), c.Params("id"))
	if err != nil {
		return stockError(c, err)
	}
	return c.JSON(dto.StockItemToResponse(item))
}

// ListItems godoc
// @Summary      Listar artículos
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "active | inactive"
// @Success      200  {array}  dto.StockItemResponse
// @Router       /api/stock/items [get]
func (h *StockHandler) ListItems(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	items, err := h.ledger.ListItems(c.Context(), c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		return stockError(c, err)
	}
	out := make([]dto.StockItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.StockItemToResponse(item))
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}

// ListLowStock godoc
// @Summary      Artículos en o bajo su punto de reorden
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.StockItemResponse
// @Router       /api/stock/items/low [get]
func (h *StockHandler) ListLowStock(c *fiber.Ctx) error {
	items, err := h.ledger.ListNeedingReorder(c.Context())
	if err != nil {
		return stockError(c, err)
	}
	out := make([]dto.StockItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.StockItemToResponse(item))
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}

// Adjust godoc
// @Summary      Ajuste directo de existencia (iniciado por operador)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del artículo"
// @Param        body  body  dto.AdjustStockRequest  true  "delta (con signo, != 0), reason, note"
// @Success      201   {object}  dto.AdjustmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/items/{id}/adjustments [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	adj, err := h.ledger.Adjust(c.Context(), c.Params("id"), stock.AdjustInput{
		Delta:  in.Delta,
		Reason: in.Reason,
		Note:   in.Note,
		Actor:  GetActor(c),
	})
	if err != nil {
		return stockError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AdjustmentToResponse(adj))
}

// ListAdjustments godoc
// @Summary      Libro mayor de un artículo (más recientes primero)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "ID del artículo"
// @Param        limit  query  int     false  "máximo de asientos (default 50)"
// @Success      200  {array}  dto.AdjustmentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/items/{id}/adjustments [get]
func (h *StockHandler) ListAdjustments(c *fiber.Ctx) error {
	adjs, err := h.ledger.ListAdjustments(c.Context(), c.Params("id"), c.QueryInt("limit"))
	if err != nil {
		return stockError(c, err)
	}
	out := make([]dto.AdjustmentResponse, 0, len(adjs))
	for _, adj := range adjs {
		out = append(out, dto.AdjustmentToResponse(adj))
	}
	return c.JSON(fiber.Map{"total": len(out), "adjustments": out})
}

// SetStatus godoc
// @Summary      Activar o desactivar artículo
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Param        id    path  string                true  "ID del artículo"
// @Param        body  body  dto.SetStatusRequest  true  "status: active | inactive"
// @Success      200   {object}  map[string]string
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/items/{id}/status [patch]
func (h *StockHandler) SetStatus(c *fiber.Ctx) error {
	var in dto.SetStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.ledger.SetStatus(c.Context(), c.Params("id"), in.Status); err != nil {
		return stockError(c, err)
	}
	return c.JSON(fiber.Map{"message": "estado actualizado"})
}

// stockError mapea el conjunto cerrado de errores del libro mayor a HTTP.
func stockError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "ITEM_NOT_FOUND", Message: "artículo no encontrado"})
	case errors.Is(err, domain.ErrDuplicateSku):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE_SKU", Message: "el SKU ya está registrado"})
	case errors.Is(err, domain.ErrNegativeQuantity):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NEGATIVE_QUANTITY", Message: "la existencia resultante sería negativa"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
