package nowpayments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "ipn-secret"

func TestSortedJSON(t *testing.T) {
	out, err := SortedJSON([]byte(`{"b": 1, "a": {"d": "x<y", "c": 1.50}}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"c":1.50,"d":"x<y"},"b":1}`, string(out))
}

func TestVerifyAndParse(t *testing.T) {
	body := []byte(`{"payment_status":"finished","payment_id":5077125051,"order_id":"7:elite:abc","price_amount":49,"price_currency":"usd"}`)
	sig, err := Sign(body, secret)
	require.NoError(t, err)

	ipn, err := VerifyAndParse(body, sig, secret)
	require.NoError(t, err)
	assert.Equal(t, "5077125051", ipn.PaymentID.String())
	assert.True(t, ipn.Settled())
	assert.False(t, ipn.Failed())
	assert.True(t, decimal.NewFromInt(49).Equal(ipn.Amount()))

	// key order in the delivered body does not matter
	reordered := []byte(`{"order_id":"7:elite:abc","price_currency":"usd","payment_id":5077125051,"price_amount":49,"payment_status":"finished"}`)
	_, err = VerifyAndParse(reordered, sig, secret)
	assert.NoError(t, err)

	_, err = VerifyAndParse(body, sig, "wrong")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	tampered := []byte(`{"payment_status":"finished","payment_id":5077125051,"order_id":"7:elite:abc","price_amount":1,"price_currency":"usd"}`)
	_, err = VerifyAndParse(tampered, sig, secret)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = VerifyAndParse([]byte(`not json`), sig, secret)
	assert.ErrorIs(t, err, ErrMalformedIPN)
}

func TestCreateInvoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoice", r.URL.Path)
		assert.Equal(t, "np-key", r.Header.Get("x-api-key"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "7:pro:n1", body["order_id"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"4522625843","order_id":"7:pro:n1","invoice_url":"https://nowpayments.io/payment/?iid=4522625843"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "np-key", zap.NewNop())
	inv, err := client.CreateInvoice(context.Background(), InvoiceRequest{
		PriceAmount:   19,
		PriceCurrency: "USD",
		OrderID:       "7:pro:n1",
	})
	require.NoError(t, err)
	assert.Equal(t, "4522625843", inv.ID)
	assert.Contains(t, inv.InvoiceURL, "iid=")
}
