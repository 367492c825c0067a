package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/agendia-app/agendia-backend/internal/cache"
	"github.com/agendia-app/agendia-backend/internal/models"
	"github.com/agendia-app/agendia-backend/internal/storage"
)

// historyWindow is how many conversation turns feed the LLM context
const historyWindow = 20

// ConversationService orchestrates inbound WhatsApp messages: it persists
// the turn, detects the confirmation handshake, and otherwise lets the
// assistant reply.
type ConversationService struct {
	store     storage.Store
	assistant *Assistant
	payments  *PaymentService
	gateway   Gateway
}

// NewConversationService creates the orchestrator
func NewConversationService(store storage.Store, assistant *Assistant, payments *PaymentService, gateway Gateway) *ConversationService {
	return &ConversationService{
		store:     store,
		assistant: assistant,
		payments:  payments,
		gateway:   gateway,
	}
}

// HandleInbound processes one user message arriving on a gateway instance.
// Errors that only concern one conversation are handled here (logged and
// answered with a fallback message); the webhook handler always acks.
func (s *ConversationService) HandleInbound(ctx context.Context, instance, phone, text string) error {
	company, err := s.store.GetCompanyByInstance(instance)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("Message for unknown instance %q ignored", instance)
		return nil
	}
	if err != nil {
		return err
	}
	if !company.IsActive {
		log.Printf("Company %d inactive, ignoring message", company.ID)
		return nil
	}
	if !company.Plan.HasFeature(models.FeatureWhatsApp) {
		log.Printf("Company %d plan lacks WhatsApp, ignoring message", company.ID)
		return nil
	}

	phone = models.NormalizePhone(phone)

	// History is read before the new turn is appended: the confirmation
	// check needs the previous assistant message, not the current user one
	history, err := s.store.GetRecentMessages(company.ID, phone, historyWindow)
	if err != nil {
		return err
	}

	userTurn := &models.Message{
		CompanyID: company.ID,
		Instance:  instance,
		Phone:     phone,
		Role:      models.RoleUser,
		Content:   text,
		SentAt:    time.Now(),
	}
	if _, err := s.store.AppendMessage(userTurn); err != nil {
		return err
	}

	if lastAssistant := lastAssistantMessage(history); lastAssistant != nil && IsAffirmative(text) {
		summary, err := ParseConfirmationSummary(lastAssistant.Content)
		switch {
		case err == nil:
			return s.confirmBooking(ctx, company, phone, summary)
		case errors.Is(err, ErrPartialSummary):
			// The assistant produced a summary the parser couldn't fully
			// read: the output format has drifted. Alert and re-prompt
			// instead of guessing.
			log.Printf("🚨 Partial confirmation summary for company %d: %v", company.ID, err)
			return s.reply(ctx, company, phone, RepromptMessage())
		}
		// Not a confirmation: the "sim" was an ordinary answer, fall through
	}

	history = append(history, userTurn)
	reply, err := s.assistant.Reply(ctx, company, history)
	if err != nil {
		log.Printf("Assistant reply failed for company %d: %v", company.ID, err)
		return s.reply(ctx, company, phone, GenericErrorMessage())
	}
	return s.reply(ctx, company, phone, reply)
}

// confirmBooking resolves the extracted summary against the catalog and
// either issues a payment link or, on plans without online payments,
// confirms the appointment directly.
func (s *ConversationService) confirmBooking(ctx context.Context, company *models.Company, phone string, summary *ConfirmationSummary) error {
	if !company.Plan.HasFeature(models.FeatureAIAgent) {
		log.Printf("Company %d plan lacks AI agent, ignoring confirmation", company.ID)
		return nil
	}

	svc, err := s.store.GetServiceByName(company.ID, summary.ServiceName)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("Confirmation names unknown service %q for company %d, re-prompting", summary.ServiceName, company.ID)
		return s.reply(ctx, company, phone, RepromptMessage())
	}
	if err != nil {
		return err
	}

	pro, err := s.store.GetProfessionalByName(company.ID, summary.ProfessionalName)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("Confirmation names unknown professional %q for company %d, re-prompting", summary.ProfessionalName, company.ID)
		return s.reply(ctx, company, phone, RepromptMessage())
	}
	if err != nil {
		return err
	}

	if !company.Plan.HasFeature(models.FeatureOnlinePayments) {
		return s.confirmWithoutPayment(ctx, company, phone, summary, svc, pro)
	}

	booking := &cache.PendingBooking{
		ClientName:  summary.ClientName,
		ClientPhone: phone,
		Date:        summary.Date,
		StartTime:   summary.Time,
	}
	link, err := s.payments.CreateTempPaymentLink(ctx, company, pro, svc, booking)
	if err != nil {
		log.Printf("❌ Payment link generation failed for company %d: %v", company.ID, err)
		return s.reply(ctx, company, phone, PaymentFailedMessage())
	}

	// Note: svc.Price, not summary.Price - the chat text never sets the amount
	return s.reply(ctx, company, phone, PaymentLinkMessage(svc.Name, svc.Price, link))
}

// confirmWithoutPayment books the slot immediately for plans without the
// online-payments feature
func (s *ConversationService) confirmWithoutPayment(ctx context.Context, company *models.Company, phone string, summary *ConfirmationSummary, svc *models.Service, pro *models.Professional) error {
	now := time.Now()
	appt := &models.Appointment{
		CompanyID:      company.ID,
		ProfessionalID: pro.ID,
		ServiceID:      svc.ID,
		ClientName:     summary.ClientName,
		ClientPhone:    phone,
		Date:           summary.Date,
		StartTime:      summary.Time,
		DurationMin:    svc.DurationMin,
		Price:          svc.Price,
		Status:         models.StatusConfirmed,
		ConfirmedAt:    &now,
	}

	created, err := s.store.CreateAppointment(appt)
	if errors.Is(err, storage.ErrSlotTaken) {
		return s.reply(ctx, company, phone, SlotTakenMessage())
	}
	if err != nil {
		return err
	}

	log.Printf("✅ Appointment %d confirmed without payment for company %d", created.ID, company.ID)
	return s.reply(ctx, company, phone, DirectConfirmationMessage(created, svc.Name, pro.Name, company.Name))
}

// reply sends a message to the client and records it in the conversation log
func (s *ConversationService) reply(ctx context.Context, company *models.Company, phone, body string) error {
	if err := s.gateway.SendText(ctx, company.GatewayInstance, phone, body); err != nil {
		log.Printf("❌ Failed to send reply to %s: %v", phone, err)
		return err
	}
	if _, err := s.store.AppendMessage(&models.Message{
		CompanyID: company.ID,
		Instance:  company.GatewayInstance,
		Phone:     phone,
		Role:      models.RoleAssistant,
		Content:   body,
	}); err != nil {
		log.Printf("Failed to log assistant message for %s: %v", phone, err)
	}
	return nil
}

// lastAssistantMessage returns the most recent assistant turn in the window
func lastAssistantMessage(history []*models.Message) *models.Message {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleAssistant {
			return history[i]
		}
	}
	return nil
}
