package services

import "context"

// Gateway sends WhatsApp messages through whichever provider the deployment
// is configured for. The instance identifies the company's WhatsApp line on
// providers that multiplex instances; Twilio ignores it.
type Gateway interface {
	SendText(ctx context.Context, instance, to, body string) error
}
