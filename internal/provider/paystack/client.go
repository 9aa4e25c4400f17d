package paystack

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edgelog/internal/provider"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const providerName = "paystack"

// ErrNotSuccessful is returned for references that exist but did not settle
var ErrNotSuccessful = errors.New("paystack transaction not successful")

// Transaction is the verified state of a Paystack charge
type Transaction struct {
	Reference string
	Status    string
	Amount    decimal.Decimal // major currency units
	Currency  string
	PaidAt    *time.Time
	Email     string
	Metadata  map[string]interface{}
	Raw       []byte
}

// Client verifies Paystack transactions
type Client struct {
	client    *resty.Client
	secretKey string
	logger    *zap.Logger
}

// NewClient creates a Paystack client
func NewClient(baseURL, secretKey string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(20 * time.Second)
	if secretKey != "" {
		client.SetAuthToken(secretKey)
	}
	return &Client{client: client, secretKey: secretKey, logger: logger}
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string                 `json:"status"`
		Reference string                 `json:"reference"`
		Amount    int64                  `json:"amount"` // subunits
		Currency  string                 `json:"currency"`
		PaidAt    *time.Time             `json:"paid_at"`
		Metadata  map[string]interface{} `json:"metadata"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// Verify fetches the transaction for reference. Transactions whose status
// is not "success" are returned together with ErrNotSuccessful.
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	if c.secretKey == "" {
		return nil, provider.ErrNotConfigured
	}

	r := c.client.R().SetResult(&verifyResponse{})
	resp, err := provider.Do(ctx, providerName, c.logger, 2, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), r)
	if err != nil {
		return nil, err
	}

	out := resp.Result().(*verifyResponse)
	if !out.Status {
		return nil, &provider.Error{Provider: providerName, StatusCode: http.StatusBadRequest, Message: out.Message}
	}

	tx := &Transaction{
		Reference: out.Data.Reference,
		Status:    out.Data.Status,
		Amount:    decimal.New(out.Data.Amount, -2),
		Currency:  strings.ToUpper(out.Data.Currency),
		PaidAt:    out.Data.PaidAt,
		Email:     out.Data.Customer.Email,
		Metadata:  out.Data.Metadata,
		Raw:       resp.Body(),
	}
	if tx.Status != "success" {
		return tx, ErrNotSuccessful
	}
	return tx, nil
}
