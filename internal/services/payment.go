package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agendia-app/agendia-backend/internal/cache"
	"github.com/agendia-app/agendia-backend/internal/config"
	"github.com/agendia-app/agendia-backend/internal/models"
	"github.com/agendia-app/agendia-backend/internal/storage"
)

const mpProvider = "mercadopago"

// PaymentService issues Mercado Pago checkout links for appointments and
// finalizes appointments when the payment webhook reports approval.
type PaymentService struct {
	store           storage.Store
	pending         *cache.PendingCache
	mp              *MercadoPagoClient
	gateway         Gateway
	notificationURL string
}

// NewPaymentService creates a new payment service. The notification URL is
// derived from the deployment's public base URL; a loopback base is refused
// because the provider could never deliver callbacks to it.
func NewPaymentService(store storage.Store, pending *cache.PendingCache, mp *MercadoPagoClient, gateway Gateway, publicBaseURL string) (*PaymentService, error) {
	if publicBaseURL == "" {
		return nil, fmt.Errorf("missing public base URL for payment notifications")
	}
	if config.IsLoopbackURL(publicBaseURL) {
		return nil, fmt.Errorf("payment notification URL cannot be a loopback address: %s", publicBaseURL)
	}
	return &PaymentService{
		store:           store,
		pending:         pending,
		mp:              mp,
		gateway:         gateway,
		notificationURL: strings.TrimRight(publicBaseURL, "/") + "/webhook/mercadopago",
	}, nil
}

// checkoutPreference builds the provider request for one appointment-worth
// of payment. Offline vouchers (boleto/"ticket") are excluded: they cannot
// be reconciled automatically.
func (p *PaymentService) checkoutPreference(reference, description string, amount float64) *PreferenceRequest {
	return &PreferenceRequest{
		Items: []PreferenceItem{{
			Title:     description,
			Quantity:  1,
			UnitPrice: amount,
		}},
		ExternalReference: reference,
		NotificationURL:   p.notificationURL,
		PaymentMethods: PreferencePaymentMethods{
			ExcludedPaymentTypes: []ExcludedPaymentType{{ID: "ticket"}},
			Installments:         1,
		},
	}
}

// CreateTempPaymentLink issues a checkout link for a booking that does not
// exist yet. The full pending payload is cached under a fresh temp reference
// so the webhook can reconstruct exactly this booking - no guessing by phone
// number. The amount always comes from the service catalog.
func (p *PaymentService) CreateTempPaymentLink(ctx context.Context, company *models.Company, pro *models.Professional, svc *models.Service, booking *cache.PendingBooking) (string, error) {
	reference := "temp_" + uuid.NewString()

	booking.CompanyID = company.ID
	booking.ProfessionalID = pro.ID
	booking.ServiceID = svc.ID
	booking.Price = svc.Price
	booking.DurationMin = svc.DurationMin
	booking.Instance = company.GatewayInstance

	if err := p.pending.Put(ctx, reference, booking); err != nil {
		return "", err
	}

	description := fmt.Sprintf("%s - %s - %s", svc.Name, pro.Name, company.Name)
	pref, err := p.mp.CreatePreference(ctx, p.checkoutPreference(reference, description, svc.Price))
	if err != nil {
		// Don't leave an orphaned pending entry behind
		_ = p.pending.Delete(ctx, reference)
		return "", err
	}

	log.Printf("💳 Payment link issued: reference=%s company=%d amount=%.2f", reference, company.ID, svc.Price)
	return pref.InitPoint, nil
}

// CreateAppointmentPaymentLink issues a checkout link for an appointment
// that already exists (manual booking awaiting payment). The appointment id
// is the external reference.
func (p *PaymentService) CreateAppointmentPaymentLink(ctx context.Context, company *models.Company, appt *models.Appointment) (string, error) {
	svc, err := p.store.GetService(appt.ServiceID)
	if err != nil {
		return "", fmt.Errorf("service %d not found: %w", appt.ServiceID, err)
	}
	pro, err := p.store.GetProfessional(appt.ProfessionalID)
	if err != nil {
		return "", fmt.Errorf("professional %d not found: %w", appt.ProfessionalID, err)
	}

	reference := strconv.FormatUint(uint64(appt.ID), 10)
	description := fmt.Sprintf("%s - %s - %s", svc.Name, pro.Name, company.Name)

	pref, err := p.mp.CreatePreference(ctx, p.checkoutPreference(reference, description, svc.Price))
	if err != nil {
		return "", err
	}

	appt.ExternalReference = reference
	if err := p.store.UpdateAppointment(appt); err != nil {
		return "", err
	}
	if appt.Status == models.StatusScheduled {
		if _, err := p.store.UpdateAppointmentStatusIf(appt.ID, models.StatusScheduled, models.StatusPendingPayment); err != nil {
			return "", err
		}
	}

	log.Printf("💳 Payment link issued: reference=%s company=%d amount=%.2f", reference, company.ID, svc.Price)
	return pref.InitPoint, nil
}

// ProcessPaymentWebhook handles a provider callback for a payment id. The
// callback body is never trusted: the authoritative status is fetched from
// the provider. Returns an error only for conditions the provider should
// retry (provider/storage unavailable); reconciliation cases are logged and
// swallowed so the provider stops retrying.
func (p *PaymentService) ProcessPaymentWebhook(ctx context.Context, paymentID string) error {
	payment, err := p.mp.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to fetch payment status: %w", err)
	}

	log.Printf("Processing payment webhook: id=%s status=%s reference=%s",
		paymentID, payment.Status, payment.ExternalReference)

	switch payment.Status {
	case MPStatusApproved:
		return p.handleApproved(ctx, paymentID, payment)
	case MPStatusRejected, MPStatusCancelled, MPStatusRefunded:
		log.Printf("Payment %s terminal without approval (%s), no appointment side effects", paymentID, payment.Status)
		return nil
	default:
		// pending / in_process: wait for the next callback
		return nil
	}
}

// handleApproved finalizes the appointment for an approved payment exactly
// once. The SET NX processed marker plus the conditional status update make
// replayed callbacks no-ops.
func (p *PaymentService) handleApproved(ctx context.Context, paymentID string, payment *Payment) error {
	first, err := p.pending.MarkProcessed(ctx, mpProvider, paymentID)
	if err != nil {
		return err
	}
	if !first {
		log.Printf("Payment %s already processed, ignoring duplicate callback", paymentID)
		return nil
	}

	reference := payment.ExternalReference
	if reference == "" {
		log.Printf("🚨 Payment %s approved but carries no external reference - manual reconciliation required", paymentID)
		return nil
	}

	var procErr error
	if strings.HasPrefix(reference, "temp_") {
		procErr = p.finalizePendingBooking(ctx, paymentID, reference)
	} else {
		procErr = p.finalizeExistingAppointment(ctx, paymentID, reference)
	}
	if procErr != nil {
		// Release the marker so the provider's retry can finish the job
		_ = p.pending.ClearProcessed(ctx, mpProvider, paymentID)
		return procErr
	}
	return nil
}

// finalizePendingBooking creates the appointment from the payload cached at
// link-issuance time
func (p *PaymentService) finalizePendingBooking(ctx context.Context, paymentID, reference string) error {
	booking, err := p.pending.Get(ctx, reference)
	if errors.Is(err, cache.ErrExpired) {
		log.Printf("🚨 Payment %s approved but pending booking %s expired - manual reconciliation required", paymentID, reference)
		return nil
	}
	if err != nil {
		return err
	}

	now := time.Now()
	appt := &models.Appointment{
		CompanyID:         booking.CompanyID,
		ProfessionalID:    booking.ProfessionalID,
		ServiceID:         booking.ServiceID,
		ClientName:        booking.ClientName,
		ClientPhone:       booking.ClientPhone,
		Date:              booking.Date,
		StartTime:         booking.StartTime,
		DurationMin:       booking.DurationMin,
		Price:             booking.Price, // catalog price captured at issuance
		Status:            models.StatusConfirmed,
		PaymentID:         paymentID,
		ExternalReference: reference,
		ConfirmedAt:       &now,
	}

	created, err := p.store.CreateAppointment(appt)
	if errors.Is(err, storage.ErrSlotTaken) {
		log.Printf("🚨 Payment %s approved but slot %s is taken - manual reconciliation required", paymentID, appt.SlotKey())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create appointment for %s: %w", reference, err)
	}

	// Reference consumed; it must never produce a second appointment
	_ = p.pending.Delete(ctx, reference)

	log.Printf("✅ Appointment %d created from payment %s (%s)", created.ID, paymentID, reference)
	p.sendConfirmation(ctx, created)
	return nil
}

// finalizeExistingAppointment flips a pre-created appointment to confirmed
func (p *PaymentService) finalizeExistingAppointment(ctx context.Context, paymentID, reference string) error {
	id, err := strconv.ParseUint(reference, 10, 64)
	if err != nil {
		log.Printf("🚨 Payment %s approved with unparseable reference %q - manual reconciliation required", paymentID, reference)
		return nil
	}

	flipped, err := p.store.UpdateAppointmentStatusIf(uint(id), models.StatusPendingPayment, models.StatusConfirmed)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("🚨 Payment %s approved but appointment %d does not exist - manual reconciliation required", paymentID, id)
		return nil
	}
	if err != nil {
		return err
	}
	if !flipped {
		// Direct bookings may still be in scheduled
		flipped, err = p.store.UpdateAppointmentStatusIf(uint(id), models.StatusScheduled, models.StatusConfirmed)
		if err != nil {
			return err
		}
	}
	if !flipped {
		log.Printf("Appointment %d already in a terminal state, ignoring duplicate finalization for payment %s", id, paymentID)
		return nil
	}

	appt, err := p.store.GetAppointment(uint(id))
	if err != nil {
		return err
	}
	appt.PaymentID = paymentID
	if err := p.store.UpdateAppointment(appt); err != nil {
		return err
	}

	log.Printf("✅ Appointment %d confirmed by payment %s", appt.ID, paymentID)
	p.sendConfirmation(ctx, appt)
	return nil
}

// sendConfirmation notifies the client over WhatsApp. A send failure is
// logged, not propagated: the appointment is already finalized and the
// webhook must not be retried for it.
func (p *PaymentService) sendConfirmation(ctx context.Context, appt *models.Appointment) {
	company, err := p.store.GetCompany(appt.CompanyID)
	if err != nil {
		log.Printf("Failed to load company %d for confirmation message: %v", appt.CompanyID, err)
		return
	}

	serviceName := ""
	if svc, err := p.store.GetService(appt.ServiceID); err == nil {
		serviceName = svc.Name
	}
	professionalName := ""
	if pro, err := p.store.GetProfessional(appt.ProfessionalID); err == nil {
		professionalName = pro.Name
	}

	msg := ConfirmationMessage(appt, serviceName, professionalName, company.Name)
	if err := p.gateway.SendText(ctx, company.GatewayInstance, appt.ClientPhone, msg); err != nil {
		log.Printf("❌ Failed to send confirmation for appointment %d: %v", appt.ID, err)
		return
	}

	if _, err := p.store.AppendMessage(&models.Message{
		CompanyID: company.ID,
		Instance:  company.GatewayInstance,
		Phone:     appt.ClientPhone,
		Role:      models.RoleAssistant,
		Content:   msg,
	}); err != nil {
		log.Printf("Failed to log confirmation message for appointment %d: %v", appt.ID, err)
	}
}
