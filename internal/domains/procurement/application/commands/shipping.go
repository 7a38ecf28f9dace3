package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

const RequestShippingName = "RequestShipping"

// RequestShipping books a pickup at the supplier and records the shipment on the order.
type RequestShipping struct {
	order     *domain.PurchaseOrder
	repo      ports.Repository
	shipping  ports.ShippingGateway
	catalog   ports.EquipmentCatalog
	companyID string
}

func NewRequestShipping(order *domain.PurchaseOrder, repo ports.Repository, shipping ports.ShippingGateway, catalog ports.EquipmentCatalog, companyID string) *RequestShipping {
	return &RequestShipping{order: order, repo: repo, shipping: shipping, catalog: catalog, companyID: companyID}
}

func (c *RequestShipping) Name() string { return RequestShippingName }

func (c *RequestShipping) Execute(ctx context.Context) Result {
	if !c.order.HasValidClassification() {
		return FailedWith(RequestShippingName, domain.ErrInvalidClassification)
	}
	var weight float64
	if c.order.IsEquipmentOrder {
		if c.catalog == nil {
			return Failed(true, RequestShippingName+": equipment catalog not configured")
		}
		w, err := c.catalog.EquipmentWeight(ctx, c.order.Origin)
		if err != nil {
			return Failed(true, fmt.Sprintf("%s: equipment weight lookup: %v", RequestShippingName, err))
		}
		weight = w
	}
	items, err := domain.PickupItems(c.order, weight)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidClassification) {
			return FailedWith(RequestShippingName, err)
		}
		return Failed(true, fmt.Sprintf("%s: %v", RequestShippingName, err))
	}

	confirmation, err := c.shipping.RequestPickup(ctx, ports.PickupRequest{
		OriginID:      c.order.Origin,
		DestinationID: c.companyID,
		ExternalRef:   c.order.ExternalRef,
		Items:         items,
	})
	if err != nil {
		return Failed(true, fmt.Sprintf("%s: request pickup: %v", RequestShippingName, err))
	}
	if confirmation == nil || strings.TrimSpace(confirmation.ShipmentID) == "" {
		return Failed(true, RequestShippingName+": logistics returned no shipment id")
	}

	if _, err := c.repo.UpdateShipmentID(ctx, c.order.ID, confirmation.ShipmentID); err != nil {
		return FailedWith(RequestShippingName, fmt.Errorf("record shipment id: %w", err))
	}
	if _, err := c.repo.UpdateShippingDetails(ctx, c.order.ID, confirmation.BankAccount, confirmation.Price); err != nil {
		return FailedWith(RequestShippingName, fmt.Errorf("record shipping details: %w", err))
	}
	return advance(ctx, c.repo, c.order.ID, RequestShippingName, domain.StatusRequiresPaymentToLogistics)
}
