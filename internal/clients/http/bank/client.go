package bank

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Apurer/procurement-engine/internal/clients/http/jsonapi"
)

// TransferRequest is the body of POST /bank/transfers.
type TransferRequest struct {
	FromAccount string  `json:"from_account"`
	ToAccount   string  `json:"to_account"`
	Amount      float64 `json:"amount"`
	Reference   string  `json:"reference,omitempty"`
}

// TransferResponse reports whether the bank accepted the transfer.
type TransferResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Client calls the commercial bank API.
type Client struct {
	api *jsonapi.Client
}

func NewBankClient(baseURL string, httpClient *http.Client) (*Client, error) {
	api, err := jsonapi.New("bank", baseURL, httpClient)
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

// Transfer moves money between accounts. A declined transfer is returned with Success false and no error.
func (c *Client) Transfer(ctx context.Context, req TransferRequest, optFns ...jsonapi.RequestOption) (*TransferResponse, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("bank client not configured")
	}
	if strings.TrimSpace(req.ToAccount) == "" {
		return nil, errors.New("bank transfer destination account is required")
	}
	var resp TransferResponse
	if err := c.api.Do(ctx, http.MethodPost, "/bank/transfers", req, &resp, optFns...); err != nil {
		return nil, err
	}
	return &resp, nil
}
