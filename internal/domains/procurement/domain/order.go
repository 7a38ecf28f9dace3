package domain

import (
	"errors"
	"math"
	"strings"
)

// Status enumerates the purchase order workflow states.
type Status string

const (
	StatusRequiresPaymentToSupplier  Status = "RequiresPaymentToSupplier"
	StatusRequiresDelivery           Status = "RequiresDelivery"
	StatusRequiresPaymentToLogistics Status = "RequiresPaymentToLogistics"
	StatusWaitingForDelivery         Status = "WaitingForDelivery"
	StatusDelivered                  Status = "Delivered"
	StatusAbandoned                  Status = "Abandoned"
)

var (
	ErrInvalidQuantity       = errors.New("quantity must be greater than zero")
	ErrInvalidUnitPrice      = errors.New("unit price must be greater than zero")
	ErrInvalidAmount         = errors.New("payment amount must be greater than zero")
	ErrInvalidClassification = errors.New("order must be either an equipment order or reference a raw material")
	ErrMissingSellerAccount  = errors.New("seller bank account is required")
	ErrMissingReference      = errors.New("external order reference is required")
	ErrMissingOrigin         = errors.New("order origin is required")
	ErrInvalidStatus         = errors.New("order status is invalid")
	ErrInvalidTransition     = errors.New("order status transition is not allowed")
)

// NonTerminalStatuses lists the states recovered from storage on startup.
func NonTerminalStatuses() []Status {
	return []Status{
		StatusRequiresPaymentToSupplier,
		StatusRequiresDelivery,
		StatusRequiresPaymentToLogistics,
		StatusWaitingForDelivery,
	}
}

// IsTerminal reports whether no command will ever run for the status again.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusAbandoned
}

// RequiresAction reports whether the workflow engine has a step to run for the status.
func (s Status) RequiresAction() bool {
	switch s {
	case StatusRequiresPaymentToSupplier, StatusRequiresDelivery, StatusRequiresPaymentToLogistics:
		return true
	default:
		return false
	}
}

// Valid reports whether the status belongs to the closed workflow set.
func (s Status) Valid() bool {
	switch s {
	case StatusRequiresPaymentToSupplier, StatusRequiresDelivery, StatusRequiresPaymentToLogistics,
		StatusWaitingForDelivery, StatusDelivered, StatusAbandoned:
		return true
	default:
		return false
	}
}

var validNext = map[Status]map[Status]bool{
	StatusRequiresPaymentToSupplier:  {StatusRequiresDelivery: true, StatusAbandoned: true},
	StatusRequiresDelivery:           {StatusRequiresPaymentToLogistics: true, StatusAbandoned: true},
	StatusRequiresPaymentToLogistics: {StatusWaitingForDelivery: true, StatusAbandoned: true},
	StatusWaitingForDelivery:         {StatusDelivered: true, StatusAbandoned: true},
	StatusDelivered:                  {},
	StatusAbandoned:                  {},
}

// CanTransition reports whether moving from one status to another is part of the workflow.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// RawMaterial references the kind of raw material an order buys.
type RawMaterial struct {
	ID   int64
	Name string
}

// Shipping holds the logistics details recorded once pickup has been requested.
type Shipping struct {
	ShipmentID  string
	BankAccount string
	Price       float64
}

// PurchaseOrder is the aggregate driven through the procurement workflow.
type PurchaseOrder struct {
	ID                int64
	ExternalRef       string
	Quantity          int64
	QuantityDelivered int64
	UnitPrice         float64
	Origin            string
	SellerBankAccount string
	IsEquipmentOrder  bool
	Material          *RawMaterial
	Shipping          Shipping
	Status            Status
}

// Total is the amount owed to the supplier.
func (o *PurchaseOrder) Total() float64 {
	return roundCents(float64(o.Quantity) * o.UnitPrice)
}

// HasValidClassification enforces that exactly one of equipment flag or material reference is set.
func (o *PurchaseOrder) HasValidClassification() bool {
	return o.IsEquipmentOrder != (o.Material != nil)
}

// Validate enforces the invariants required before an order enters the workflow.
func (o *PurchaseOrder) Validate() error {
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if o.UnitPrice <= 0 {
		return ErrInvalidUnitPrice
	}
	if !o.HasValidClassification() {
		return ErrInvalidClassification
	}
	if strings.TrimSpace(o.SellerBankAccount) == "" {
		return ErrMissingSellerAccount
	}
	if strings.TrimSpace(o.ExternalRef) == "" {
		return ErrMissingReference
	}
	if strings.TrimSpace(o.Origin) == "" {
		return ErrMissingOrigin
	}
	if !o.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// RecordDelivery adds a delivered quantity and reports the status the order should move to.
func (o *PurchaseOrder) RecordDelivery(quantity int64) (Status, error) {
	if quantity <= 0 {
		return o.Status, ErrInvalidQuantity
	}
	if !CanTransition(o.Status, StatusDelivered) {
		return o.Status, ErrInvalidTransition
	}
	o.QuantityDelivered += quantity
	if o.QuantityDelivered >= o.Quantity {
		o.Status = StatusDelivered
	}
	return o.Status, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
