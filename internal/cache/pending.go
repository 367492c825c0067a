package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrExpired is returned when a pending booking is no longer in the cache,
// either because the TTL elapsed or the reference never existed.
var ErrExpired = errors.New("pending booking not found or expired")

// PendingBooking is everything the payment webhook needs to create the
// appointment once the provider reports approval. Stored at link-issuance
// time under the temp external reference.
type PendingBooking struct {
	CompanyID      uint      `json:"company_id"`
	ProfessionalID uint      `json:"professional_id"`
	ServiceID      uint      `json:"service_id"`
	ClientName     string    `json:"client_name"`
	ClientPhone    string    `json:"client_phone"`
	Date           string    `json:"date"`
	StartTime      string    `json:"start_time"`
	DurationMin    int       `json:"duration_min"`
	Price          float64   `json:"price"`
	Instance       string    `json:"instance"`
	CreatedAt      time.Time `json:"created_at"`
}

// PendingCache stores pending bookings and webhook idempotency markers in Redis
type PendingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// DefaultTTL matches the payment link's practical lifetime; after this the
// payment is flagged for manual reconciliation instead of auto-created.
const DefaultTTL = 24 * time.Hour

// NewPendingCache creates a cache around an existing Redis client
func NewPendingCache(rdb *redis.Client, ttl time.Duration) *PendingCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PendingCache{rdb: rdb, ttl: ttl}
}

func pendingKey(reference string) string {
	return "pending_booking:" + reference
}

// Put stores the pending booking under its temp reference
func (c *PendingCache) Put(ctx context.Context, reference string, booking *PendingBooking) error {
	booking.CreatedAt = time.Now()
	data, err := json.Marshal(booking)
	if err != nil {
		return fmt.Errorf("failed to encode pending booking: %w", err)
	}
	if err := c.rdb.Set(ctx, pendingKey(reference), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache pending booking: %w", err)
	}
	return nil
}

// Get fetches the pending booking for a temp reference
func (c *PendingCache) Get(ctx context.Context, reference string) (*PendingBooking, error) {
	data, err := c.rdb.Get(ctx, pendingKey(reference)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending booking: %w", err)
	}

	var booking PendingBooking
	if err := json.Unmarshal(data, &booking); err != nil {
		return nil, fmt.Errorf("failed to decode pending booking: %w", err)
	}
	return &booking, nil
}

// Delete removes a consumed reference so it cannot produce a second appointment
func (c *PendingCache) Delete(ctx context.Context, reference string) error {
	return c.rdb.Del(ctx, pendingKey(reference)).Err()
}

// MarkProcessed records that a provider payment id has been handled.
// Returns true the first time, false on every replay. SET NX makes the
// check-and-set atomic across concurrent webhook deliveries.
func (c *PendingCache) MarkProcessed(ctx context.Context, provider, paymentID string) (bool, error) {
	key := fmt.Sprintf("processed:%s:%s", provider, paymentID)
	ok, err := c.rdb.SetNX(ctx, key, time.Now().Format(time.RFC3339), 7*24*time.Hour).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark payment processed: %w", err)
	}
	return ok, nil
}

// ClearProcessed removes the processed marker so the provider's retry can
// re-run a finalization that failed after the marker was taken
func (c *PendingCache) ClearProcessed(ctx context.Context, provider, paymentID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("processed:%s:%s", provider, paymentID)).Err()
}
