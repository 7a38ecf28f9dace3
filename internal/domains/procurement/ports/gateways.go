package ports

import (
	"context"
	"errors"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
)

// ErrPermanent marks failures that retrying cannot fix (rejected requests, malformed data).
var ErrPermanent = errors.New("permanent failure")

// PaymentRequest describes one transfer through the bank.
type PaymentRequest struct {
	FromAccount    string
	ToAccount      string
	Amount         float64
	Memo           string
	IdempotencyKey string
}

// PaymentGateway moves money between bank accounts. A false result without error is a declined transfer.
type PaymentGateway interface {
	MakePayment(ctx context.Context, req PaymentRequest) (bool, error)
}

// PickupRequest asks the logistics provider to collect goods from a supplier.
type PickupRequest struct {
	OriginID      string
	DestinationID string
	ExternalRef   string
	Items         []domain.PickupItem
}

// PickupConfirmation is the logistics provider's answer to a pickup request.
type PickupConfirmation struct {
	ShipmentID  string
	BankAccount string
	Price       float64
}

// ShippingGateway requests pickups from the logistics provider.
type ShippingGateway interface {
	RequestPickup(ctx context.Context, req PickupRequest) (*PickupConfirmation, error)
}

// EquipmentCatalog looks up declared equipment weights from supplier catalogs.
type EquipmentCatalog interface {
	EquipmentWeight(ctx context.Context, supplier string) (float64, error)
}
