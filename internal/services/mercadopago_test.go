package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePreferenceRequestShape(t *testing.T) {
	var got PreferenceRequest
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/checkout/preferences", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Preference{
			ID:        "pref-123",
			InitPoint: "https://mp.example.com/checkout/pref-123",
		})
	}))
	defer server.Close()

	client, err := NewMercadoPagoClient("TEST-token")
	require.NoError(t, err)
	client = client.WithBaseURL(server.URL)

	pref, err := client.CreatePreference(context.Background(), &PreferenceRequest{
		Items: []PreferenceItem{{
			Title:     "Corte - João - Barbearia Central",
			Quantity:  1,
			UnitPrice: 50.0,
		}},
		ExternalReference: "temp_1700000000000000000",
		NotificationURL:   "https://agendia.example.com/webhook/mercadopago",
		PaymentMethods: PreferencePaymentMethods{
			ExcludedPaymentTypes: []ExcludedPaymentType{{ID: "ticket"}},
			Installments:         1,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://mp.example.com/checkout/pref-123", pref.InitPoint)
	assert.Equal(t, "Bearer TEST-token", auth)
	assert.Equal(t, "temp_1700000000000000000", got.ExternalReference)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 50.0, got.Items[0].UnitPrice)
	require.Len(t, got.PaymentMethods.ExcludedPaymentTypes, 1)
	assert.Equal(t, "ticket", got.PaymentMethods.ExcludedPaymentTypes[0].ID)
}

func TestCreatePreferenceMissingInitPoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pref-123"}`))
	}))
	defer server.Close()

	client, _ := NewMercadoPagoClient("TEST-token")
	client = client.WithBaseURL(server.URL)

	_, err := client.CreatePreference(context.Background(), &PreferenceRequest{})
	assert.ErrorContains(t, err, "init_point")
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid access token"}`))
	}))
	defer server.Close()

	client, _ := NewMercadoPagoClient("bad-token")
	client = client.WithBaseURL(server.URL)

	_, err := client.GetPayment(context.Background(), "12345")
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "4xx must fail immediately, not retry")
}

func TestClientRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Payment{
			ID:                12345,
			Status:            MPStatusApproved,
			ExternalReference: "temp_42",
			TransactionAmount: 50.0,
		})
	}))
	defer server.Close()

	client, _ := NewMercadoPagoClient("TEST-token")
	client = client.WithBaseURL(server.URL)

	payment, err := client.GetPayment(context.Background(), "12345")
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, MPStatusApproved, payment.Status)
	assert.Equal(t, "temp_42", payment.ExternalReference)
}

func TestNewMercadoPagoClientRequiresToken(t *testing.T) {
	_, err := NewMercadoPagoClient("")
	assert.Error(t, err)
}
