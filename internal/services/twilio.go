package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/agendia-app/agendia-backend/internal/models"
)

// TwilioGateway sends WhatsApp messages via Twilio. Alternative transport
// for deployments without an instance gateway; Twilio routes everything
// through a single configured number, so the instance argument is unused.
type TwilioGateway struct {
	client *twilio.RestClient
	from   string // Format: "whatsapp:+14155238886"
}

// NewTwilioGateway creates a new Twilio gateway instance
func NewTwilioGateway() (*TwilioGateway, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_WHATSAPP_FROM")

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioGateway{
		client: client,
		from:   from,
	}, nil
}

// SendText sends a WhatsApp message via Twilio
func (t *TwilioGateway) SendText(ctx context.Context, instance, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", models.NormalizePhone(to)))
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}

	log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	return nil
}
