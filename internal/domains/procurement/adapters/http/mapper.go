package http

import (
	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
	"github.com/Apurer/procurement-engine/internal/platform/settings"
)

type Material struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PlaceOrderRequest struct {
	ExternalRef       string    `json:"externalRef"`
	Quantity          int64     `json:"quantity"`
	UnitPrice         float64   `json:"unitPrice"`
	Origin            string    `json:"origin"`
	SellerBankAccount string    `json:"sellerBankAccount"`
	IsEquipmentOrder  bool      `json:"isEquipmentOrder"`
	Material          *Material `json:"material,omitempty"`
}

type Shipping struct {
	ShipmentID  string  `json:"shipmentId,omitempty"`
	BankAccount string  `json:"bankAccount,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

type Order struct {
	ID                int64     `json:"id"`
	ExternalRef       string    `json:"externalRef"`
	Quantity          int64     `json:"quantity"`
	QuantityDelivered int64     `json:"quantityDelivered"`
	UnitPrice         float64   `json:"unitPrice"`
	Total             float64   `json:"total"`
	Origin            string    `json:"origin"`
	SellerBankAccount string    `json:"sellerBankAccount"`
	IsEquipmentOrder  bool      `json:"isEquipmentOrder"`
	Material          *Material `json:"material,omitempty"`
	Shipping          *Shipping `json:"shipping,omitempty"`
	Status            string    `json:"status"`
}

type DeliveryRequest struct {
	ShipmentID string `json:"shipmentId"`
	Quantity   int64  `json:"quantity"`
}

type QueueStatus struct {
	Pending           int  `json:"pending"`
	ProcessingEnabled bool `json:"processingEnabled"`
	IntervalSeconds   int  `json:"intervalSeconds"`
	MaxRetries        int  `json:"maxRetries"`
	MaxConcurrency    int  `json:"maxConcurrency"`
}

// SettingsPatch mirrors settings.Patch; omitted fields are left unchanged.
type SettingsPatch struct {
	ProcessingEnabled *bool `json:"processingEnabled,omitempty"`
	IntervalSeconds   *int  `json:"intervalSeconds,omitempty"`
	MaxRetries        *int  `json:"maxRetries,omitempty"`
	MaxConcurrency    *int  `json:"maxConcurrency,omitempty"`
}

func toPlaceOrderInput(req PlaceOrderRequest) ports.PlaceOrderInput {
	input := ports.PlaceOrderInput{
		ExternalRef:       req.ExternalRef,
		Quantity:          req.Quantity,
		UnitPrice:         req.UnitPrice,
		Origin:            req.Origin,
		SellerBankAccount: req.SellerBankAccount,
		IsEquipmentOrder:  req.IsEquipmentOrder,
	}
	if req.Material != nil {
		input.Material = &domain.RawMaterial{ID: req.Material.ID, Name: req.Material.Name}
	}
	return input
}

func fromDomainOrder(o *domain.PurchaseOrder) Order {
	out := Order{
		ID:                o.ID,
		ExternalRef:       o.ExternalRef,
		Quantity:          o.Quantity,
		QuantityDelivered: o.QuantityDelivered,
		UnitPrice:         o.UnitPrice,
		Total:             o.Total(),
		Origin:            o.Origin,
		SellerBankAccount: o.SellerBankAccount,
		IsEquipmentOrder:  o.IsEquipmentOrder,
		Status:            string(o.Status),
	}
	if o.Material != nil {
		out.Material = &Material{ID: o.Material.ID, Name: o.Material.Name}
	}
	if o.Shipping != (domain.Shipping{}) {
		out.Shipping = &Shipping{
			ShipmentID:  o.Shipping.ShipmentID,
			BankAccount: o.Shipping.BankAccount,
			Price:       o.Shipping.Price,
		}
	}
	return out
}

func fromDomainOrders(orders []*domain.PurchaseOrder) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, fromDomainOrder(o))
	}
	return out
}

func toQueueStatus(pending int, s ports.Settings) QueueStatus {
	return QueueStatus{
		Pending:           pending,
		ProcessingEnabled: s.ProcessingEnabled,
		IntervalSeconds:   s.IntervalSeconds,
		MaxRetries:        s.MaxRetries,
		MaxConcurrency:    s.MaxConcurrency,
	}
}

func toSettingsPatch(p SettingsPatch) settings.Patch {
	return settings.Patch{
		ProcessingEnabled: p.ProcessingEnabled,
		IntervalSeconds:   p.IntervalSeconds,
		MaxRetries:        p.MaxRetries,
		MaxConcurrency:    p.MaxConcurrency,
	}
}
