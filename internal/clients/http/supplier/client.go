package supplier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/Apurer/procurement-engine/internal/clients/http/jsonapi"
)

// EquipmentWeight is the body of GET /suppliers/{supplier}/equipment/weight.
type EquipmentWeight struct {
	Supplier string  `json:"supplier,omitempty"`
	Weight   float64 `json:"weight"`
}

// Client calls the equipment supplier catalog.
type Client struct {
	api *jsonapi.Client
}

func NewSupplierClient(baseURL string, httpClient *http.Client) (*Client, error) {
	api, err := jsonapi.New("supplier", baseURL, httpClient)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// EquipmentWeight returns the shipping weight of one unit of the supplier's equipment.
func (c *Client) EquipmentWeight(ctx context.Context, supplier string) (*EquipmentWeight, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("supplier client not configured")
	}
	supplier = strings.TrimSpace(supplier)
	if supplier == "" {
		return nil, errors.New("supplier is required")
	}
	pathParam, err := runtime.StyleParamWithLocation("simple", false, "supplier", runtime.ParamLocationPath, supplier)
	if err != nil {
		return nil, fmt.Errorf("encode supplier path parameter: %w", err)
	}
	var resp EquipmentWeight
	if err := c.api.Do(ctx, http.MethodGet, "/suppliers/"+pathParam+"/equipment/weight", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
