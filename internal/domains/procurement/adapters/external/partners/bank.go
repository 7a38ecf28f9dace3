package partners

import (
	"context"
	"errors"

	bankclient "github.com/Apurer/procurement-engine/internal/clients/http/bank"
	"github.com/Apurer/procurement-engine/internal/clients/http/jsonapi"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// Bank implements the payment gateway port over the bank API.
type Bank struct {
	client *bankclient.Client
}

func NewBank(client *bankclient.Client) *Bank {
	return &Bank{client: client}
}

func (b *Bank) MakePayment(ctx context.Context, req ports.PaymentRequest) (bool, error) {
	if b == nil || b.client == nil {
		return false, errors.New("bank gateway not configured")
	}
	resp, err := b.client.Transfer(ctx, bankclient.TransferRequest{
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      req.Amount,
		Reference:   req.Memo,
	}, jsonapi.WithIdempotencyKey(req.IdempotencyKey))
	if err != nil {
		return false, classify(err)
	}
	return resp.Success, nil
}

var _ ports.PaymentGateway = (*Bank)(nil)
