package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

const (
	PaySupplierName  = "PaySupplier"
	PayLogisticsName = "PayLogistics"
)

// paymentNamespace scopes idempotency keys handed to the bank.
var paymentNamespace = uuid.MustParse("8f0c9a51-5d3e-4d8e-9f3b-6f1c2b7a4e10")

// PaySupplier transfers the order total to the supplier.
type PaySupplier struct {
	order          *domain.PurchaseOrder
	repo           ports.Repository
	payments       ports.PaymentGateway
	companyAccount string
}

func NewPaySupplier(order *domain.PurchaseOrder, repo ports.Repository, payments ports.PaymentGateway, companyAccount string) *PaySupplier {
	return &PaySupplier{order: order, repo: repo, payments: payments, companyAccount: companyAccount}
}

func (c *PaySupplier) Name() string { return PaySupplierName }

func (c *PaySupplier) Execute(ctx context.Context) Result {
	total := c.order.Total()
	if total <= 0 {
		return FailedWith(PaySupplierName, fmt.Errorf("%w: total %.2f", domain.ErrInvalidAmount, total))
	}
	if strings.TrimSpace(c.order.SellerBankAccount) == "" {
		return FailedWith(PaySupplierName, domain.ErrMissingSellerAccount)
	}
	ok, err := c.payments.MakePayment(ctx, ports.PaymentRequest{
		FromAccount:    c.companyAccount,
		ToAccount:      c.order.SellerBankAccount,
		Amount:         total,
		Memo:           c.order.ExternalRef,
		IdempotencyKey: PaymentIdempotencyKey(c.order.ID, PaySupplierName),
	})
	if err != nil {
		return FailedWith(PaySupplierName, err)
	}
	if !ok {
		return Failed(true, fmt.Sprintf("%s: payment of %.2f to %s declined", PaySupplierName, total, c.order.SellerBankAccount))
	}
	return advance(ctx, c.repo, c.order.ID, PaySupplierName, domain.StatusRequiresDelivery)
}

// PayLogistics settles the shipping price recorded by the shipping step.
type PayLogistics struct {
	order          *domain.PurchaseOrder
	repo           ports.Repository
	payments       ports.PaymentGateway
	companyAccount string
}

func NewPayLogistics(order *domain.PurchaseOrder, repo ports.Repository, payments ports.PaymentGateway, companyAccount string) *PayLogistics {
	return &PayLogistics{order: order, repo: repo, payments: payments, companyAccount: companyAccount}
}

func (c *PayLogistics) Name() string { return PayLogisticsName }

func (c *PayLogistics) Execute(ctx context.Context) Result {
	shipping := c.order.Shipping
	if shipping.Price <= 0 {
		return FailedWith(PayLogisticsName, fmt.Errorf("%w: shipping price %.2f", domain.ErrInvalidAmount, shipping.Price))
	}
	if strings.TrimSpace(shipping.BankAccount) == "" {
		return FailedWith(PayLogisticsName, fmt.Errorf("%w: shipping bank account", domain.ErrMissingSellerAccount))
	}
	ok, err := c.payments.MakePayment(ctx, ports.PaymentRequest{
		FromAccount:    c.companyAccount,
		ToAccount:      shipping.BankAccount,
		Amount:         shipping.Price,
		Memo:           shipping.ShipmentID,
		IdempotencyKey: PaymentIdempotencyKey(c.order.ID, PayLogisticsName),
	})
	if err != nil {
		return FailedWith(PayLogisticsName, err)
	}
	if !ok {
		return Failed(true, fmt.Sprintf("%s: payment of %.2f to %s declined", PayLogisticsName, shipping.Price, shipping.BankAccount))
	}
	return advance(ctx, c.repo, c.order.ID, PayLogisticsName, domain.StatusWaitingForDelivery)
}

// PaymentIdempotencyKey is stable per order and step so a repeated transfer is deduplicated by the bank.
func PaymentIdempotencyKey(orderID int64, step string) string {
	return uuid.NewSHA1(paymentNamespace, []byte(fmt.Sprintf("%d/%s", orderID, step))).String()
}
