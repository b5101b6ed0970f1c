package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrItemNotFound        = errors.New("artículo de inventario no encontrado")
	ErrReportNotFound      = errors.New("reporte no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicateSku        = errors.New("el SKU ya está registrado")
	ErrNegativeQuantity    = errors.New("la cantidad resultante sería negativa")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrDuplicateInProgress = errors.New("petición duplicada en proceso")
	ErrUnauthorized        = errors.New("no autorizado")
)
