package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

type placeOrderFingerprint struct {
	ExternalRef       string              `json:"externalRef"`
	Quantity          int64               `json:"quantity"`
	UnitPrice         float64             `json:"unitPrice"`
	Origin            string              `json:"origin"`
	SellerBankAccount string              `json:"sellerBankAccount"`
	IsEquipmentOrder  bool                `json:"isEquipmentOrder"`
	Material          *domain.RawMaterial `json:"material,omitempty"`
}

// FingerprintPlaceOrder hashes the placement payload, excluding the idempotency key.
func FingerprintPlaceOrder(input ports.PlaceOrderInput) (string, error) {
	payload, err := json.Marshal(placeOrderFingerprint{
		ExternalRef:       strings.TrimSpace(input.ExternalRef),
		Quantity:          input.Quantity,
		UnitPrice:         input.UnitPrice,
		Origin:            strings.TrimSpace(input.Origin),
		SellerBankAccount: strings.TrimSpace(input.SellerBankAccount),
		IsEquipmentOrder:  input.IsEquipmentOrder,
		Material:          input.Material,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// placeIdempotent replays the order bound to input.IdempotencyKey or places a new one and binds it.
func (s *Service) placeIdempotent(ctx context.Context, input ports.PlaceOrderInput) (*domain.PurchaseOrder, error) {
	hash, err := FingerprintPlaceOrder(input)
	if err != nil {
		return nil, fmt.Errorf("fingerprint purchase order: %w", err)
	}
	s.placing.Lock()
	defer s.placing.Unlock()

	existing, err := s.idempotency.Get(ctx, input.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}
	if existing != nil {
		return s.replay(ctx, existing, hash)
	}
	order, err := s.place(ctx, input)
	if err != nil {
		return nil, err
	}
	stored, err := s.idempotency.Save(ctx, ports.IdempotencyRecord{
		Key:         input.IdempotencyKey,
		RequestHash: hash,
		OrderID:     order.ID,
		CreatedAt:   s.now(),
	})
	if errors.Is(err, ports.ErrIdempotencyConflict) && stored != nil {
		// Another replica bound the key first; the order placed here stays in the workflow.
		return s.replay(ctx, stored, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("save idempotency key: %w", err)
	}
	return order, nil
}

func (s *Service) replay(ctx context.Context, record *ports.IdempotencyRecord, hash string) (*domain.PurchaseOrder, error) {
	if record.RequestHash != hash {
		return nil, fmt.Errorf("%w: %w", ErrConflict, ports.ErrIdempotencyConflict)
	}
	return s.repo.FindByID(ctx, record.OrderID)
}
