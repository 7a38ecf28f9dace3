package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/adapters/memory"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

type fakePayments struct {
	ok       bool
	err      error
	requests []ports.PaymentRequest
}

func (f *fakePayments) MakePayment(_ context.Context, req ports.PaymentRequest) (bool, error) {
	f.requests = append(f.requests, req)
	return f.ok, f.err
}

type fakeShipping struct {
	confirmation *ports.PickupConfirmation
	err          error
	requests     []ports.PickupRequest
}

func (f *fakeShipping) RequestPickup(_ context.Context, req ports.PickupRequest) (*ports.PickupConfirmation, error) {
	f.requests = append(f.requests, req)
	return f.confirmation, f.err
}

type fakeCatalog struct {
	weight float64
	err    error
}

func (f fakeCatalog) EquipmentWeight(context.Context, string) (float64, error) {
	return f.weight, f.err
}

var testSettings = ports.StaticSettings{CompanyID: "sumsang", CompanyBankAccount: "COMPANY-ACC", MaxRetries: 3}

func seedOrder(t *testing.T, repo *memory.Repository, mutate func(*domain.PurchaseOrder)) *domain.PurchaseOrder {
	t.Helper()
	order := &domain.PurchaseOrder{
		ID:                7,
		ExternalRef:       "PO-7",
		Quantity:          100,
		UnitPrice:         50,
		Origin:            "thoh",
		SellerBankAccount: "ACC-1",
		Material:          &domain.RawMaterial{ID: 1, Name: "copper"},
		Status:            domain.StatusRequiresPaymentToSupplier,
	}
	if mutate != nil {
		mutate(order)
	}
	saved, err := repo.Save(context.Background(), order)
	require.NoError(t, err)
	return saved
}

func currentStatus(t *testing.T, repo *memory.Repository, id int64) domain.Status {
	t.Helper()
	order, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return order.Status
}

func TestPaySupplier_Success(t *testing.T) {
	repo := memory.NewRepository()
	order := seedOrder(t, repo, nil)
	payments := &fakePayments{ok: true}

	result := NewPaySupplier(order, repo, payments, "COMPANY-ACC").Execute(context.Background())

	require.True(t, result.Success)
	require.True(t, result.Requeue)
	require.Equal(t, domain.StatusRequiresDelivery, result.NextStatus)
	require.Equal(t, domain.StatusRequiresDelivery, currentStatus(t, repo, order.ID))
	require.Len(t, payments.requests, 1)
	require.Equal(t, ports.PaymentRequest{
		FromAccount:    "COMPANY-ACC",
		ToAccount:      "ACC-1",
		Amount:         5000,
		Memo:           "PO-7",
		IdempotencyKey: PaymentIdempotencyKey(7, PaySupplierName),
	}, payments.requests[0])
}

func TestPaySupplier_DeclinedIsRetryable(t *testing.T) {
	repo := memory.NewRepository()
	order := seedOrder(t, repo, nil)

	result := NewPaySupplier(order, repo, &fakePayments{ok: false}, "COMPANY-ACC").Execute(context.Background())

	require.False(t, result.Success)
	require.True(t, result.ShouldRetry)
	require.Equal(t, domain.StatusRequiresPaymentToSupplier, currentStatus(t, repo, order.ID))
}

func TestPaySupplier_InvalidAmountIsNotRetryable(t *testing.T) {
	repo := memory.NewRepository()
	order := seedOrder(t, repo, func(o *domain.PurchaseOrder) { o.UnitPrice = 0 })
	payments := &fakePayments{ok: true}

	result := NewPaySupplier(order, repo, payments, "COMPANY-ACC").Execute(context.Background())

	require.False(t, result.Success)
	require.False(t, result.ShouldRetry)
	require.Empty(t, payments.requests)
}

func TestPaySupplier_ErrorClassification(t *testing.T) {
	repo := memory.NewRepository()
	order := seedOrder(t, repo, nil)

	transient := NewPaySupplier(order, repo, &fakePayments{err: errors.New("timeout")}, "C").Execute(context.Background())
	require.False(t, transient.Success)
	require.True(t, transient.ShouldRetry)
	require.Contains(t, transient.ErrorMessage, "timeout")

	permanent := NewPaySupplier(order, repo, &fakePayments{err: fmt.Errorf("bank rejected: %w", ports.ErrPermanent)}, "C").Execute(context.Background())
	require.False(t, permanent.Success)
	require.False(t, permanent.ShouldRetry)
}

func TestPaySupplier_MissingOrderIsNotRetryable(t *testing.T) {
	repo := memory.NewRepository()
	order := &domain.PurchaseOrder{ID: 99, Quantity: 1, UnitPrice: 1, SellerBankAccount: "A", ExternalRef: "X"}

	result := NewPaySupplier(order, repo, &fakePayments{ok: true}, "C").Execute(context.Background())

	require.False(t, result.Success)
	require.False(t, result.ShouldRetry)
}

func TestRequestShipping_MaterialOrder(t *testing.T) {
	repo := memory.NewRepository()
	order := seedOrder(t, repo, func(o *domain.PurchaseOrder) { o.Status = domain.StatusRequiresDelivery })
	shipping := &fakeShipping{confirmation: &ports.PickupConfirmation{ShipmentID: "SHIP-99", BankAccount: "LOG-ACC", Price: 300}}

	result := NewRequestShipping(order, repo, shipping, nil, "sumsang").Execute(context.Background())

	require.True(t, result.Success)
	require.Equal(t, domain.StatusRequiresPaymentToLogistics, result.NextStatus)
	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Shipping{ShipmentID: "SHIP-99", BankAccount: "LOG-ACC", Price: 300}, stored.Shipping)
	require.Equal(t, ports.PickupRequest{
		OriginID:      "thoh",
		DestinationID: "sumsang",
		ExternalRef:   "PO-7",
		Items:         []domain.PickupItem{{Name: "copper", Quantity: 100, Unit: domain.UnitKilogram}},
	}, shipping.requests[0])
}

func TestRequestShipping_EquipmentOrderUsesCatalogWeight(t *testing.T) {
	repo := memory.NewRepository()
	order := seedOrder(t, repo, func(o *domain.PurchaseOrder) {
		o.Status = domain.StatusRequiresDelivery
		o.Material = nil
		o.IsEquipmentOrder = true
		o.Quantity = 2
	})
	shipping := &fakeShipping{confirmation: &ports.PickupConfirmation{ShipmentID: "SHIP-1", BankAccount: "LOG", Price: 10}}

	result := NewRequestShipping(order, repo, shipping, fakeCatalog{weight: 750}, "sumsang").Execute(context.Background())

	require.True(t, result.Success)
	require.Equal(t, []domain.PickupItem{{Name: "equipment", Quantity: 1500, Unit: domain.UnitEquipment}}, shipping.requests[0].Items)
}

func TestRequestShipping_Failures(t *testing.T) {
	repo := memory.NewRepository()
	equipment := seedOrder(t, repo, func(o *domain.PurchaseOrder) {
		o.Status = domain.StatusRequiresDelivery
		o.Material = nil
		o.IsEquipmentOrder = true
	})

	lookup := NewRequestShipping(equipment, repo, &fakeShipping{}, fakeCatalog{err: errors.New("catalog down")}, "c").Execute(context.Background())
	require.False(t, lookup.Success)
	require.True(t, lookup.ShouldRetry)

	call := NewRequestShipping(equipment, repo, &fakeShipping{err: errors.New("503")}, fakeCatalog{weight: 10}, "c").Execute(context.Background())
	require.False(t, call.Success)
	require.True(t, call.ShouldRetry)

	broken := *equipment
	broken.IsEquipmentOrder = false
	shipping := &fakeShipping{}
	integrity := NewRequestShipping(&broken, repo, shipping, fakeCatalog{weight: 10}, "c").Execute(context.Background())
	require.False(t, integrity.Success)
	require.False(t, integrity.ShouldRetry)
	require.Empty(t, shipping.requests)
	require.Equal(t, domain.StatusRequiresDelivery, currentStatus(t, repo, equipment.ID))
}

func TestPayLogistics(t *testing.T) {
	repo := memory.NewRepository()
	order := seedOrder(t, repo, func(o *domain.PurchaseOrder) {
		o.Status = domain.StatusRequiresPaymentToLogistics
		o.Shipping = domain.Shipping{ShipmentID: "SHIP-99", BankAccount: "LOG-ACC", Price: 300}
	})
	payments := &fakePayments{ok: true}

	result := NewPayLogistics(order, repo, payments, "COMPANY-ACC").Execute(context.Background())

	require.True(t, result.Success)
	require.False(t, result.Requeue)
	require.Equal(t, domain.StatusWaitingForDelivery, currentStatus(t, repo, order.ID))
	require.Equal(t, "LOG-ACC", payments.requests[0].ToAccount)
	require.Equal(t, 300.0, payments.requests[0].Amount)
	require.Equal(t, "SHIP-99", payments.requests[0].Memo)

	missingPrice := *order
	missingPrice.Shipping.Price = 0
	invalid := NewPayLogistics(&missingPrice, repo, payments, "COMPANY-ACC").Execute(context.Background())
	require.False(t, invalid.ShouldRetry)
}

func TestNoOp(t *testing.T) {
	result := NewNoOp(domain.StatusDelivered).Execute(context.Background())
	require.True(t, result.Success)
	require.False(t, result.Requeue)
}

func TestFactory_CreateCommand(t *testing.T) {
	factory := NewFactory(memory.NewRepository(), &fakePayments{}, &fakeShipping{}, fakeCatalog{}, testSettings)

	cases := map[domain.Status]string{
		domain.StatusRequiresPaymentToSupplier:  PaySupplierName,
		domain.StatusRequiresDelivery:           RequestShippingName,
		domain.StatusRequiresPaymentToLogistics: PayLogisticsName,
		domain.StatusWaitingForDelivery:         NoOpName,
		domain.StatusDelivered:                  NoOpName,
		domain.StatusAbandoned:                  NoOpName,
		domain.Status("Mystery"):                NoOpName,
	}
	for status, want := range cases {
		cmd := factory.CreateCommand(&domain.PurchaseOrder{ID: 1, Status: status})
		require.Equal(t, want, cmd.Name(), status)
	}
}

func TestPaymentIdempotencyKey_StablePerStep(t *testing.T) {
	require.Equal(t, PaymentIdempotencyKey(1, PaySupplierName), PaymentIdempotencyKey(1, PaySupplierName))
	require.NotEqual(t, PaymentIdempotencyKey(1, PaySupplierName), PaymentIdempotencyKey(1, PayLogisticsName))
	require.NotEqual(t, PaymentIdempotencyKey(1, PaySupplierName), PaymentIdempotencyKey(2, PaySupplierName))
}
