package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// MercadoPagoClient talks to the Mercado Pago REST API for checkout
// preference creation and payment lookups.
type MercadoPagoClient struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client

	maxAttempts int
}

// NewMercadoPagoClient creates a client with the account access token
func NewMercadoPagoClient(accessToken string) (*MercadoPagoClient, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("missing Mercado Pago access token")
	}
	return &MercadoPagoClient{
		accessToken: accessToken,
		baseURL:     "https://api.mercadopago.com",
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		maxAttempts: 3,
	}, nil
}

// WithBaseURL overrides the API URL (for testing)
func (c *MercadoPagoClient) WithBaseURL(baseURL string) *MercadoPagoClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// PreferenceItem is a line item in a checkout preference
type PreferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ExcludedPaymentType names a payment method class to disallow
type ExcludedPaymentType struct {
	ID string `json:"id"`
}

// PreferencePaymentMethods restricts which payment methods the checkout
// accepts
type PreferencePaymentMethods struct {
	ExcludedPaymentTypes []ExcludedPaymentType `json:"excluded_payment_types,omitempty"`
	Installments         int                   `json:"installments,omitempty"`
}

// PreferenceRequest is the checkout preference creation payload
type PreferenceRequest struct {
	Items             []PreferenceItem         `json:"items"`
	ExternalReference string                   `json:"external_reference"`
	NotificationURL   string                   `json:"notification_url"`
	PaymentMethods    PreferencePaymentMethods `json:"payment_methods"`
}

// Preference is the created checkout preference
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// Payment is the authoritative payment record fetched from the provider.
// Webhook bodies are never trusted for status; this is.
type Payment struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
}

// Mercado Pago payment status values
const (
	MPStatusApproved  = "approved"
	MPStatusPending   = "pending"
	MPStatusRejected  = "rejected"
	MPStatusCancelled = "cancelled"
	MPStatusRefunded  = "refunded"
)

// CreatePreference creates a checkout preference and returns the redirect
// URL. The preference is single-use per external reference.
func (c *MercadoPagoClient) CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preference: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/checkout/preferences", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout preference: %w", err)
	}

	var pref Preference
	if err := json.Unmarshal(data, &pref); err != nil {
		return nil, fmt.Errorf("failed to decode preference response: %w", err)
	}
	if pref.InitPoint == "" {
		return nil, fmt.Errorf("preference response missing init_point")
	}
	return &pref, nil
}

// GetPayment fetches a payment by its provider id
func (c *MercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	data, err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}

	var payment Payment
	if err := json.Unmarshal(data, &payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}
	return &payment, nil
}

// do performs an authenticated request with bounded retries on transport
// errors and 5xx responses. 4xx responses (bad credentials, bad payload)
// fail immediately so the caller can surface them.
func (c *MercadoPagoClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else if resp.StatusCode < 300 {
				return respBody, nil
			} else if resp.StatusCode < 500 {
				return nil, fmt.Errorf("mercadopago returned %d: %s", resp.StatusCode, string(respBody))
			} else {
				lastErr = fmt.Errorf("mercadopago returned %d: %s", resp.StatusCode, string(respBody))
			}
		}

		if attempt < c.maxAttempts {
			log.Printf("⚠️  Mercado Pago %s %s attempt %d/%d failed: %v", method, path, attempt, c.maxAttempts, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}
	return nil, lastErr
}
