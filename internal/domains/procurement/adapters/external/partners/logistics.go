package partners

import (
	"context"
	"errors"

	"github.com/Apurer/procurement-engine/internal/clients/http/jsonapi"
	logisticsclient "github.com/Apurer/procurement-engine/internal/clients/http/logistics"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// Logistics implements the shipping gateway port over the bulk logistics API.
type Logistics struct {
	client *logisticsclient.Client
}

func NewLogistics(client *logisticsclient.Client) *Logistics {
	return &Logistics{client: client}
}

func (l *Logistics) RequestPickup(ctx context.Context, req ports.PickupRequest) (*ports.PickupConfirmation, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("logistics gateway not configured")
	}
	items := make([]logisticsclient.PickupItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, logisticsclient.PickupItem{Name: item.Name, Quantity: item.Quantity, Unit: item.Unit})
	}
	resp, err := l.client.RequestPickup(ctx, logisticsclient.PickupRequest{
		OriginCompanyID:      req.OriginID,
		DestinationCompanyID: req.DestinationID,
		ExternalReference:    req.ExternalRef,
		Items:                items,
	}, jsonapi.WithIdempotencyKey("pickup/"+req.ExternalRef))
	if err != nil {
		return nil, classify(err)
	}
	return &ports.PickupConfirmation{
		ShipmentID:  resp.ShipmentID,
		BankAccount: resp.BankAccount,
		Price:       resp.Price,
	}, nil
}

var _ ports.ShippingGateway = (*Logistics)(nil)
