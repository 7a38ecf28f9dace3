package partners

import (
	"context"
	"errors"
	"fmt"

	supplierclient "github.com/Apurer/procurement-engine/internal/clients/http/supplier"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// Catalog implements the equipment catalog port over the supplier API.
type Catalog struct {
	client *supplierclient.Client
}

func NewCatalog(client *supplierclient.Client) *Catalog {
	return &Catalog{client: client}
}

func (c *Catalog) EquipmentWeight(ctx context.Context, supplier string) (float64, error) {
	if c == nil || c.client == nil {
		return 0, errors.New("supplier catalog not configured")
	}
	resp, err := c.client.EquipmentWeight(ctx, supplier)
	if err != nil {
		return 0, classify(err)
	}
	if resp.Weight <= 0 {
		return 0, fmt.Errorf("supplier %s reported non-positive equipment weight %v", supplier, resp.Weight)
	}
	return resp.Weight, nil
}

var _ ports.EquipmentCatalog = (*Catalog)(nil)
