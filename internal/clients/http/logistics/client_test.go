package logistics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPickup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/logistics/pickup-requests", r.URL.Path)
		var req PickupRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "thoh", req.OriginCompanyID)
		assert.Equal(t, []PickupItem{{Name: "copper", Quantity: 100, Unit: "kg"}}, req.Items)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(PickupResponse{ShipmentID: "SHIP-99", BankAccount: "LOG-ACC", Price: 300})
	}))
	defer srv.Close()

	client, err := NewLogisticsClient(srv.URL, nil)
	require.NoError(t, err)
	resp, err := client.RequestPickup(context.Background(), PickupRequest{
		OriginCompanyID:      "thoh",
		DestinationCompanyID: "sumsang",
		ExternalReference:    "PO-7",
		Items:                []PickupItem{{Name: "copper", Quantity: 100, Unit: "kg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, &PickupResponse{ShipmentID: "SHIP-99", BankAccount: "LOG-ACC", Price: 300}, resp)
}

func TestRequestPickup_RequiresItems(t *testing.T) {
	client, err := NewLogisticsClient("http://logistics.invalid", nil)
	require.NoError(t, err)
	_, err = client.RequestPickup(context.Background(), PickupRequest{OriginCompanyID: "thoh"})
	require.Error(t, err)
}
