package repository

import "github.com/WhosAnder/ImaMonorepo-sub000/internal/domain/entity"

// ReportRepository puerto de persistencia para reportes de almacén.
type ReportRepository interface {
	Create(report *entity.WarehouseReport) error
	GetByID(id string) (*entity.WarehouseReport, error)
	// UpdateReconciliation persiste marcas de conciliación (DeliveryAdjustedAt,
	// ReturnAdjustedAt y ReturnProcessedItemIDs). El resto del reporte es inmutable.
	UpdateReconciliation(report *entity.WarehouseReport) error
	List(reportType string, limit, offset int) ([]*entity.WarehouseReport, error)
}
