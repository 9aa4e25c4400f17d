package nowpayments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edgelog/pkg/crypto"
	"github.com/shopspring/decimal"
)

// SignatureHeader carries the IPN HMAC
const SignatureHeader = "x-nowpayments-sig"

var (
	ErrInvalidSignature = errors.New("invalid nowpayments signature")
	ErrMalformedIPN     = errors.New("malformed nowpayments notification")
)

// Payment statuses reported by IPN callbacks
const (
	StatusWaiting       = "waiting"
	StatusConfirming    = "confirming"
	StatusConfirmed     = "confirmed"
	StatusSending       = "sending"
	StatusPartiallyPaid = "partially_paid"
	StatusFinished      = "finished"
	StatusFailed        = "failed"
	StatusRefunded      = "refunded"
	StatusExpired       = "expired"
)

// IPN is an instant payment notification
type IPN struct {
	PaymentID     json.Number `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	PriceAmount   json.Number `json:"price_amount"`
	PriceCurrency string      `json:"price_currency"`
	PayAmount     json.Number `json:"pay_amount"`
	PayCurrency   string      `json:"pay_currency"`
	ActuallyPaid  json.Number `json:"actually_paid"`
	OrderID       string      `json:"order_id"`
	InvoiceID     json.Number `json:"invoice_id"`
}

// Settled reports whether the payment should activate a plan
func (n *IPN) Settled() bool {
	return n.PaymentStatus == StatusFinished || n.PaymentStatus == StatusConfirmed
}

// Failed reports whether the payment can no longer settle
func (n *IPN) Failed() bool {
	switch n.PaymentStatus {
	case StatusFailed, StatusRefunded, StatusExpired:
		return true
	}
	return false
}

// Amount returns the fiat price of the payment
func (n *IPN) Amount() decimal.Decimal {
	d, err := decimal.NewFromString(n.PriceAmount.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SortedJSON re-encodes a JSON object with keys sorted at every level and no
// insignificant whitespace. NOWPayments signs this form of the body.
func SortedJSON(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIPN, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// encoding/json writes map keys in sorted order
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Sign computes the IPN signature of body
func Sign(body []byte, secret string) (string, error) {
	sorted, err := SortedJSON(body)
	if err != nil {
		return "", err
	}
	return crypto.SignHMACSHA512(sorted, secret), nil
}

// VerifyAndParse checks the HMAC-SHA512 signature of body and decodes it
func VerifyAndParse(body []byte, signature, secret string) (*IPN, error) {
	sorted, err := SortedJSON(body)
	if err != nil {
		return nil, err
	}
	if !crypto.VerifyHMACSHA512(sorted, secret, signature) {
		return nil, ErrInvalidSignature
	}

	var ipn IPN
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&ipn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIPN, err)
	}
	if ipn.PaymentID.String() == "" || ipn.OrderID == "" {
		return nil, fmt.Errorf("%w: missing payment_id or order_id", ErrMalformedIPN)
	}
	return &ipn, nil
}
