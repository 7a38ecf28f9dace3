package ports

import (
	"context"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
)

// PlaceOrderInput carries the fields the purchasing logic supplies for a new order.
type PlaceOrderInput struct {
	ExternalRef       string
	Quantity          int64
	UnitPrice         float64
	Origin            string
	SellerBankAccount string
	IsEquipmentOrder  bool
	Material          *domain.RawMaterial
	// IdempotencyKey makes retried placements return the first order instead of creating another.
	IdempotencyKey string
}

// Service exposes purchase order use cases to adapters.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.PurchaseOrder, error)
	GetOrder(ctx context.Context, id int64) (*domain.PurchaseOrder, error)
	ListOrders(ctx context.Context) ([]*domain.PurchaseOrder, error)
	RecordDelivery(ctx context.Context, shipmentID string, quantity int64) (*domain.PurchaseOrder, error)
}
