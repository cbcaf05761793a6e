// internal/services/flutterwave_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"abiahub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlutterwaveTestService(handler http.HandlerFunc) (*FlutterwaveService, *httptest.Server) {
	server := httptest.NewServer(handler)
	cfg := &config.Config{
		FlutterwaveBaseURL:   server.URL,
		FlutterwaveSecretKey: "FLWSECK_TEST",
	}
	return NewFlutterwaveService(cfg), server
}

func TestInitializePayment(t *testing.T) {
	svc, server := newFlutterwaveTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer FLWSECK_TEST", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "NGN", body["currency"], "currency must default to NGN")
		assert.NotEmpty(t, body["tx_ref"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "success",
			"message": "Hosted Link",
			"data":    map[string]string{"link": "https://checkout.flutterwave.com/v3/hosted/pay/abc"},
		})
	})
	defer server.Close()

	req := PaymentInitRequest{
		TxRef:  NewTxRef(),
		Amount: 5000,
	}
	req.Customer.Email = "ada@example.com"
	req.Customer.Name = "Ada Obi"

	link, err := svc.InitializePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.flutterwave.com/v3/hosted/pay/abc", link)
}

func TestInitializePaymentRejected(t *testing.T) {
	svc, server := newFlutterwaveTestService(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "Invalid currency",
		})
	})
	defer server.Close()

	_, err := svc.InitializePayment(context.Background(), PaymentInitRequest{TxRef: "abiahub_1"})
	assert.Error(t, err)
}

func TestVerifyPayment(t *testing.T) {
	svc, server := newFlutterwaveTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transactions/12345/verify", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"id":       12345,
				"tx_ref":   "abiahub_42",
				"amount":   5000.0,
				"currency": "NGN",
				"status":   "successful",
			},
		})
	})
	defer server.Close()

	v, err := svc.VerifyPayment(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", v.TransactionID)
	assert.Equal(t, "abiahub_42", v.TxRef)
	assert.Equal(t, 5000.0, v.Amount)
	assert.Equal(t, "NGN", v.Currency)
	assert.Equal(t, "successful", v.Status)
}

func TestVerifyPaymentNotFound(t *testing.T) {
	svc, server := newFlutterwaveTestService(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "No transaction was found for this id",
		})
	})
	defer server.Close()

	_, err := svc.VerifyPayment(context.Background(), "99999")
	assert.Error(t, err)
}

func TestRefundPayment(t *testing.T) {
	svc, server := newFlutterwaveTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions/12345/refund", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	})
	defer server.Close()

	assert.NoError(t, svc.RefundPayment(context.Background(), "12345"))
}

func TestNewTxRef(t *testing.T) {
	a := NewTxRef()
	b := NewTxRef()
	assert.True(t, strings.HasPrefix(a, "abiahub_"))
	assert.NotEqual(t, a, b)
}
