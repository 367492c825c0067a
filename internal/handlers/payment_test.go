package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendia-app/agendia-backend/internal/cache"
	"github.com/agendia-app/agendia-backend/internal/models"
	"github.com/agendia-app/agendia-backend/internal/services"
	"github.com/agendia-app/agendia-backend/internal/storage"
)

// nullGateway swallows outbound messages
type nullGateway struct {
	mu   sync.Mutex
	sent int
}

func (g *nullGateway) SendText(ctx context.Context, instance, to, body string) error {
	g.mu.Lock()
	g.sent++
	g.mu.Unlock()
	return nil
}

type webhookFixture struct {
	app     *fiber.App
	store   *storage.MemoryStore
	pending *cache.PendingCache
	gateway *nullGateway
	company *models.Company

	mu       sync.Mutex
	mpStatus string
	mpRef    string
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	f := &webhookFixture{mpStatus: services.MPStatusApproved}

	mpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/v1/payments/") {
			f.mu.Lock()
			json.NewEncoder(w).Encode(map[string]any{
				"id":                 777001,
				"status":             f.mpStatus,
				"external_reference": f.mpRef,
			})
			f.mu.Unlock()
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(mpServer.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f.pending = cache.NewPendingCache(rdb, cache.DefaultTTL)

	f.store = storage.NewMemoryStore()
	company, err := f.store.CreateCompany(&models.Company{
		Name:            "Barbearia Central",
		GatewayInstance: "barber-1",
		IsActive:        true,
	})
	require.NoError(t, err)
	f.company = company

	mpClient, err := services.NewMercadoPagoClient("TEST-token")
	require.NoError(t, err)
	mpClient = mpClient.WithBaseURL(mpServer.URL)

	f.gateway = &nullGateway{}
	payments, err := services.NewPaymentService(f.store, f.pending, mpClient, f.gateway, "https://agendia.example.com")
	require.NoError(t, err)

	handler := NewPaymentHandler(payments)
	f.app = fiber.New()
	f.app.Post("/webhook/mercadopago", handler.HandleWebhook)
	return f
}

func (f *webhookFixture) setPayment(status, reference string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mpStatus = status
	f.mpRef = reference
}

func TestWebhookIgnoresNonPaymentTopics(t *testing.T) {
	f := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/mercadopago?topic=merchant_order&id=123", nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookRejectsMissingPaymentID(t *testing.T) {
	f := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookQueryParamsDriveFinalization(t *testing.T) {
	f := newWebhookFixture(t)

	// Cache a pending booking and point the fake provider at it
	require.NoError(t, f.pending.Put(context.Background(), "temp_555", &cache.PendingBooking{
		CompanyID:   f.company.ID,
		ClientName:  "Maria",
		ClientPhone: "5511999990000",
		Date:        "2026-09-01",
		StartTime:   "14:00",
		Price:       80.0,
		Instance:    "barber-1",
	}))
	f.setPayment(services.MPStatusApproved, "temp_555")

	req := httptest.NewRequest(http.MethodPost, "/webhook/mercadopago?type=payment&data.id=777001", nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	appts, err := f.store.GetAppointmentsByCompany(f.company.ID)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, models.StatusConfirmed, appts[0].Status)
	assert.Equal(t, 80.0, appts[0].Price)
}

func TestWebhookJSONBodyDrivesFinalization(t *testing.T) {
	f := newWebhookFixture(t)

	require.NoError(t, f.pending.Put(context.Background(), "temp_556", &cache.PendingBooking{
		CompanyID:   f.company.ID,
		ClientName:  "Maria",
		ClientPhone: "5511999990000",
		Date:        "2026-09-02",
		StartTime:   "14:00",
		Price:       80.0,
	}))
	f.setPayment(services.MPStatusApproved, "temp_556")

	body := `{"type":"payment","action":"payment.updated","data":{"id":"777001"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	appts, err := f.store.GetAppointmentsByCompany(f.company.ID)
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}

func TestWebhookDuplicateDeliveryIsIdempotent(t *testing.T) {
	f := newWebhookFixture(t)

	require.NoError(t, f.pending.Put(context.Background(), "temp_557", &cache.PendingBooking{
		CompanyID:   f.company.ID,
		ClientName:  "Maria",
		ClientPhone: "5511999990000",
		Date:        "2026-09-03",
		StartTime:   "14:00",
		Price:       80.0,
	}))
	f.setPayment(services.MPStatusApproved, "temp_557")

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook/mercadopago?type=payment&data.id=777001", nil)
		resp, err := f.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	appts, err := f.store.GetAppointmentsByCompany(f.company.ID)
	require.NoError(t, err)
	assert.Len(t, appts, 1, "three deliveries, one appointment")
	assert.Equal(t, 1, f.gateway.sent, "three deliveries, one confirmation message")
}
