package ports

import (
	"context"
	"errors"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
)

var ErrNotFound = errors.New("purchase order not found")

// Repository persists purchase orders. Update methods report false when no row matched.
// UpdateStatus never moves an order out of a terminal status and reports false instead.
type Repository interface {
	Save(ctx context.Context, order *domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	FindByID(ctx context.Context, id int64) (*domain.PurchaseOrder, error)
	FindByShipmentID(ctx context.Context, shipmentID string) (*domain.PurchaseOrder, error)
	FindByStatuses(ctx context.Context, statuses []domain.Status) ([]*domain.PurchaseOrder, error)
	List(ctx context.Context) ([]*domain.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) (bool, error)
	UpdateShipmentID(ctx context.Context, id int64, shipmentID string) (bool, error)
	UpdateShippingDetails(ctx context.Context, id int64, bankAccount string, price float64) (bool, error)
	// RecordDelivery atomically adds quantity to an order awaiting delivery and marks it Delivered once the
	// ordered quantity arrived. It fails with ErrNotFound for an unknown id and domain.ErrInvalidTransition
	// when the order is not awaiting delivery.
	RecordDelivery(ctx context.Context, id int64, quantity int64) (*domain.PurchaseOrder, error)
}
