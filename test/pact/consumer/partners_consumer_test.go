//go:build pact
// +build pact

package consumer_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/procurement-engine/internal/clients/http/bank"
	"github.com/Apurer/procurement-engine/internal/clients/http/jsonapi"
	"github.com/Apurer/procurement-engine/internal/clients/http/logistics"
	"github.com/Apurer/procurement-engine/internal/clients/http/supplier"
	pacttest "github.com/Apurer/procurement-engine/test/pact"
)

func TestPartnerAPIsContract(t *testing.T) {
	t.Helper()
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	transfer := bank.TransferRequest{
		FromAccount: pacttest.CompanyAccount,
		ToAccount:   pacttest.SellerAccount,
		Amount:      5000,
		Reference:   pacttest.ExternalReference,
	}
	pickup := logistics.PickupRequest{
		OriginCompanyID:      pacttest.SupplierID,
		DestinationCompanyID: "sumsang",
		ExternalReference:    pacttest.ExternalReference,
		Items:                []logistics.PickupItem{{Name: "copper", Quantity: 100, Unit: "kg"}},
	}

	pact.AddInteraction().
		Given(pacttest.StatePartnersAvailable).
		UponReceiving("a transfer from the company account to a supplier").
		WithRequest("POST", "/bank/transfers", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("Idempotency-Key", matchers.Like(pacttest.IdempotencyKey))
			b.JSONBody(matchers.Map{
				"from_account": matchers.S(transfer.FromAccount),
				"to_account":   matchers.S(transfer.ToAccount),
				"amount":       matchers.Like(transfer.Amount),
				"reference":    matchers.S(transfer.Reference),
			})
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"success":        matchers.Like(true),
				"transaction_id": matchers.Like("b7f2d6c4-0a1e-4c3f-8d5b-9e6a2f1c0d34"),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StatePartnersAvailable).
		UponReceiving("a pickup request for a material order").
		WithRequest("POST", "/logistics/pickup-requests", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(matchers.Map{
				"origin_company_id":      matchers.S(pickup.OriginCompanyID),
				"destination_company_id": matchers.S(pickup.DestinationCompanyID),
				"external_reference":     matchers.S(pickup.ExternalReference),
				"items": matchers.EachLike(matchers.Map{
					"name":     matchers.Like("copper"),
					"quantity": matchers.Like(100.0),
					"unit":     matchers.Like("kg"),
				}, 1),
			})
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"shipment_id":  matchers.Like("SHP-000001"),
				"bank_account": matchers.Like("bulk-logistics-main"),
				"price":        matchers.Like(50.0),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateSupplierCatalog).
		UponReceiving("a request for a supplier's equipment weight").
		WithRequest("GET", fmt.Sprintf("/suppliers/%s/equipment/weight", pacttest.SupplierID)).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"supplier": matchers.S(pacttest.SupplierID),
				"weight":   matchers.Like(pacttest.EquipmentWeight),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		host := config.Host
		if host == "" {
			host = "localhost"
		}
		baseURL := fmt.Sprintf("http://%s:%d", host, config.Port)
		httpClient := &http.Client{Transport: &http.Transport{TLSClientConfig: config.TLSConfig}, Timeout: 10 * time.Second}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		bankClient, err := bank.NewBankClient(baseURL, httpClient)
		if err != nil {
			return err
		}
		paid, err := bankClient.Transfer(ctx, transfer, jsonapi.WithIdempotencyKey(pacttest.IdempotencyKey))
		if err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
		if !paid.Success {
			return fmt.Errorf("expected transfer to succeed, got %+v", paid)
		}

		logisticsClient, err := logistics.NewLogisticsClient(baseURL, httpClient)
		if err != nil {
			return err
		}
		booked, err := logisticsClient.RequestPickup(ctx, pickup)
		if err != nil {
			return fmt.Errorf("request pickup: %w", err)
		}
		if booked.ShipmentID == "" || booked.Price <= 0 {
			return fmt.Errorf("expected shipment id and price, got %+v", booked)
		}

		supplierClient, err := supplier.NewSupplierClient(baseURL, httpClient)
		if err != nil {
			return err
		}
		weight, err := supplierClient.EquipmentWeight(ctx, pacttest.SupplierID)
		if err != nil {
			return fmt.Errorf("equipment weight: %w", err)
		}
		if weight.Weight <= 0 {
			return fmt.Errorf("expected positive weight, got %v", weight.Weight)
		}
		return nil
	})
	require.NoError(t, err)
}
