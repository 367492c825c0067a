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

	"github.com/agendia-app/agendia-backend/internal/models"
)

// EvolutionGateway sends WhatsApp messages through an Evolution-style
// instance gateway: one named instance per company, authenticated with an
// apikey header.
type EvolutionGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	maxAttempts int
}

// NewEvolutionGateway creates a gateway client
func NewEvolutionGateway(baseURL, apiKey string) (*EvolutionGateway, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("missing gateway base URL")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing gateway API key")
	}
	return &EvolutionGateway{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		maxAttempts: 3,
	}, nil
}

// WithBaseURL overrides the gateway URL (for testing)
func (g *EvolutionGateway) WithBaseURL(baseURL string) *EvolutionGateway {
	if baseURL != "" {
		g.baseURL = strings.TrimRight(baseURL, "/")
	}
	return g
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendText sends a plain text WhatsApp message via the company's instance.
// Transient failures are retried with doubling backoff; a lost confirmation
// message would leave the user unaware their booking succeeded.
func (g *EvolutionGateway) SendText(ctx context.Context, instance, to, body string) error {
	payload, err := json.Marshal(sendTextRequest{
		Number: models.NormalizePhone(to),
		Text:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", g.baseURL, instance)

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build gateway request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", g.apiKey)

		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			if resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(respBody))
			if resp.StatusCode < 500 {
				// Client errors won't heal on retry
				return fmt.Errorf("failed to send message via instance %s: %w", instance, lastErr)
			}
		}

		if attempt < g.maxAttempts {
			log.Printf("⚠️  Gateway send attempt %d/%d failed for %s: %v", attempt, g.maxAttempts, instance, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("failed to send message via instance %s after %d attempts: %w", instance, g.maxAttempts, lastErr)
}
