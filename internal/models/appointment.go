package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Appointment represents a booked service instance for a company
type Appointment struct {
	// gorm.Model gives us ID (uint), CreatedAt, UpdatedAt, DeletedAt automatically
	gorm.Model

	CompanyID      uint `json:"company_id" gorm:"index;not null"`
	ProfessionalID uint `json:"professional_id" gorm:"index"`
	ServiceID      uint `json:"service_id" gorm:"index"`

	// Client details are denormalized: walk-in clients booked over WhatsApp
	// may not have a CRM row yet
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone" gorm:"index"`
	ClientEmail string `json:"client_email"`

	Date        string `json:"date" gorm:"index"` // YYYY-MM-DD
	StartTime   string `json:"start_time"`        // HH:MM
	DurationMin int    `json:"duration_min"`

	// Price is copied from the service catalog at booking time, never from chat text
	Price float64 `json:"price"`

	Status string `json:"status" gorm:"size:20;default:'scheduled';index"`
	Notes  string `json:"notes" gorm:"size:500"`

	ReminderSent bool `json:"reminder_sent" gorm:"default:false"`

	// Payment correlation (Mercado Pago)
	PaymentID         string `json:"payment_id"`
	ExternalReference string `json:"external_reference" gorm:"index"`

	ConfirmedAt *time.Time `json:"confirmed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

// Appointment status constants - the only values the Status column may hold
const (
	StatusScheduled      = "scheduled"
	StatusPendingPayment = "pending_payment"
	StatusConfirmed      = "confirmed"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
	StatusNoShow         = "no_show"
)

// statusTransitions is the closed transition table. Terminal states
// (completed, cancelled, no_show) have no outgoing edges.
var statusTransitions = map[string][]string{
	StatusScheduled:      {StatusPendingPayment, StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusPendingPayment: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusCompleted, StatusCancelled, StatusNoShow},
}

// ValidStatus reports whether s is one of the known status labels
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusPendingPayment, StatusConfirmed,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// CanTransition reports whether an appointment may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether the status admits no further transitions
func IsTerminalStatus(s string) bool {
	return ValidStatus(s) && len(statusTransitions[s]) == 0
}

// BeforeCreate normalizes client data and validates the status label
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	a.ClientPhone = NormalizePhone(a.ClientPhone)
	a.ClientName = strings.TrimSpace(a.ClientName)

	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !ValidStatus(a.Status) {
		return fmt.Errorf("invalid appointment status: %s", a.Status)
	}
	return nil
}

// SlotKey identifies the professional/date/time combination used for
// double-booking checks
func (a *Appointment) SlotKey() string {
	return fmt.Sprintf("%d:%d:%s:%s", a.CompanyID, a.ProfessionalID, a.Date, a.StartTime)
}

// NormalizePhone strips WhatsApp prefixes and formatting from a phone number
func NormalizePhone(phone string) string {
	phone = strings.TrimPrefix(phone, "whatsapp:")
	phone = strings.TrimSuffix(phone, "@s.whatsapp.net")
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return replacer.Replace(phone)
}
