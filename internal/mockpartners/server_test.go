package mockpartners

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/procurement-engine/internal/clients/http/bank"
	"github.com/Apurer/procurement-engine/internal/clients/http/jsonapi"
	"github.com/Apurer/procurement-engine/internal/clients/http/logistics"
	"github.com/Apurer/procurement-engine/internal/clients/http/supplier"
)

func startServer(t *testing.T, opts ...Option) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewServer(opts...).Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestTransfer_IdempotentAndDeclines(t *testing.T) {
	url := startServer(t, WithDeclineAbove(1000))
	client, err := bank.NewBankClient(url, nil)
	require.NoError(t, err)
	ctx := context.Background()

	req := bank.TransferRequest{FromAccount: "sumsang-main", ToAccount: "ACC-1", Amount: 500, Reference: "PO-1"}
	first, err := client.Transfer(ctx, req, jsonapi.WithIdempotencyKey("k1"))
	require.NoError(t, err)
	assert.True(t, first.Success)
	again, err := client.Transfer(ctx, req, jsonapi.WithIdempotencyKey("k1"))
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, again.TransactionID)

	req.Amount = 5000
	declined, err := client.Transfer(ctx, req, jsonapi.WithIdempotencyKey("k2"))
	require.NoError(t, err)
	assert.False(t, declined.Success)

	req.Amount = 0
	_, err = client.Transfer(ctx, req)
	var statusErr *jsonapi.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 400, statusErr.StatusCode)
	assert.False(t, statusErr.Temporary())
}

func TestRequestPickup_PricesAndNumbersShipments(t *testing.T) {
	url := startServer(t)
	client, err := logistics.NewLogisticsClient(url, nil)
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := client.RequestPickup(ctx, logistics.PickupRequest{
		OriginCompanyID:      "thoh",
		DestinationCompanyID: "sumsang",
		ExternalReference:    "PO-1",
		Items:                []logistics.PickupItem{{Name: "copper", Quantity: 100, Unit: "kg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SHP-000001", resp.ShipmentID)
	assert.Equal(t, DefaultLogisticsAccount, resp.BankAccount)
	assert.Equal(t, 50.0, resp.Price)

	small, err := client.RequestPickup(ctx, logistics.PickupRequest{
		OriginCompanyID: "thoh",
		Items:           []logistics.PickupItem{{Name: "copper", Quantity: 1, Unit: "kg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SHP-000002", small.ShipmentID)
	assert.Equal(t, minimumPrice, small.Price)
}

func TestEquipmentWeight(t *testing.T) {
	url := startServer(t, WithEquipmentWeight("Thoh", 900))
	client, err := supplier.NewSupplierClient(url, nil)
	require.NoError(t, err)

	resp, err := client.EquipmentWeight(context.Background(), "thoh")
	require.NoError(t, err)
	assert.Equal(t, 900.0, resp.Weight)

	resp, err = client.EquipmentWeight(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, DefaultEquipmentWeight, resp.Weight)
}

func TestFailEvery_InjectsTemporaryFailures(t *testing.T) {
	url := startServer(t, WithFailEvery(2))
	client, err := supplier.NewSupplierClient(url, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.EquipmentWeight(ctx, "thoh")
	require.NoError(t, err)
	_, err = client.EquipmentWeight(ctx, "thoh")
	var statusErr *jsonapi.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.Temporary())
	assert.Equal(t, "partner temporarily unavailable", statusErr.Message)
}
