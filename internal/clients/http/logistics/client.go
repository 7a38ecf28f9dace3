package logistics

import (
	"context"
	"errors"
	"net/http"

	"github.com/Apurer/procurement-engine/internal/clients/http/jsonapi"
)

// PickupItem is one line of a pickup request.
type PickupItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// PickupRequest is the body of POST /logistics/pickup-requests.
type PickupRequest struct {
	OriginCompanyID      string       `json:"origin_company_id"`
	DestinationCompanyID string       `json:"destination_company_id"`
	ExternalReference    string       `json:"external_reference"`
	Items                []PickupItem `json:"items"`
}

// PickupResponse identifies the booked shipment and what to pay for it.
type PickupResponse struct {
	ShipmentID  string  `json:"shipment_id"`
	BankAccount string  `json:"bank_account"`
	Price       float64 `json:"price"`
}

// Client calls the bulk logistics API.
type Client struct {
	api *jsonapi.Client
}

func NewLogisticsClient(baseURL string, httpClient *http.Client) (*Client, error) {
	api, err := jsonapi.New("logistics", baseURL, httpClient)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// RequestPickup books a pickup.
func (c *Client) RequestPickup(ctx context.Context, req PickupRequest, optFns ...jsonapi.RequestOption) (*PickupResponse, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("logistics client not configured")
	}
	if len(req.Items) == 0 {
		return nil, errors.New("pickup request needs at least one item")
	}
	var resp PickupResponse
	if err := c.api.Do(ctx, http.MethodPost, "/logistics/pickup-requests", req, &resp, optFns...); err != nil {
		return nil, err
	}
	return &resp, nil
}
