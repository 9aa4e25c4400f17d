package nowpayments

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/edgelog/internal/provider"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const providerName = "nowpayments"

// InvoiceRequest creates a hosted crypto checkout
type InvoiceRequest struct {
	PriceAmount      float64 `json:"price_amount"`
	PriceCurrency    string  `json:"price_currency"`
	OrderID          string  `json:"order_id"`
	OrderDescription string  `json:"order_description"`
	IPNCallbackURL   string  `json:"ipn_callback_url,omitempty"`
	SuccessURL       string  `json:"success_url,omitempty"`
	CancelURL        string  `json:"cancel_url,omitempty"`
}

// Invoice is the hosted checkout created for an order
type Invoice struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	InvoiceURL string `json:"invoice_url"`
}

// Client creates NOWPayments invoices
type Client struct {
	client *resty.Client
	apiKey string
	logger *zap.Logger
}

// NewClient creates a NOWPayments client
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(20*time.Second).
		SetHeader("x-api-key", apiKey).
		SetHeader("Content-Type", "application/json")
	return &Client{client: client, apiKey: apiKey, logger: logger}
}

// Configured reports whether invoices can be created
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// CreateInvoice registers an invoice for req.OrderID
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	if !c.Configured() {
		return nil, provider.ErrNotConfigured
	}
	r := c.client.R().SetBody(req).SetResult(&Invoice{})
	resp, err := provider.Do(ctx, providerName, c.logger, 2, http.MethodPost, "/invoice", r)
	if err != nil {
		return nil, err
	}
	return resp.Result().(*Invoice), nil
}
