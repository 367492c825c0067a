package jobs

import (
	"context"
	"log"
	"time"

	"github.com/agendia-app/agendia-backend/internal/services"
	"github.com/agendia-app/agendia-backend/internal/storage"
)

// ReminderJob sends next-day WhatsApp reminders for confirmed appointments
type ReminderJob struct {
	store     storage.Store
	gateway   services.Gateway
	isRunning bool
}

// NewReminderJob creates a new reminder job scheduler
func NewReminderJob(store storage.Store, gateway services.Gateway) *ReminderJob {
	return &ReminderJob{
		store:   store,
		gateway: gateway,
	}
}

// Start begins the scheduled reminder job
func (r *ReminderJob) Start() {
	if r.isRunning {
		log.Println("Reminder job already running")
		return
	}
	r.isRunning = true
	log.Println("Starting appointment reminder job...")
	go r.scheduleDailyReminders()
}

// Stop halts the scheduled job
func (r *ReminderJob) Stop() {
	r.isRunning = false
	log.Println("Stopping appointment reminder job...")
}

// scheduleDailyReminders runs every day at 18:00 local time
func (r *ReminderJob) scheduleDailyReminders() {
	for r.isRunning {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())
		if now.After(next) {
			next = next.Add(24 * time.Hour)
		}

		duration := next.Sub(now)
		log.Printf("Next reminder run in %v", duration)
		time.Sleep(duration)

		if !r.isRunning {
			break
		}
		r.SendReminders()
	}
}

// SendReminders notifies clients with a confirmed appointment tomorrow that
// hasn't been reminded yet
func (r *ReminderJob) SendReminders() {
	tomorrow := time.Now().Add(24 * time.Hour).Format("2006-01-02")

	appts, err := r.store.GetConfirmedAppointmentsForDate(tomorrow)
	if err != nil {
		log.Printf("Failed to load appointments for %s: %v", tomorrow, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	remindersSent := 0
	for _, appt := range appts {
		if appt.ReminderSent || appt.ClientPhone == "" {
			continue
		}

		company, err := r.store.GetCompany(appt.CompanyID)
		if err != nil {
			log.Printf("Failed to load company %d: %v", appt.CompanyID, err)
			continue
		}

		serviceName := ""
		if svc, err := r.store.GetService(appt.ServiceID); err == nil {
			serviceName = svc.Name
		}

		msg := services.ReminderMessage(appt, serviceName, company.Name)
		if err := r.gateway.SendText(ctx, company.GatewayInstance, appt.ClientPhone, msg); err != nil {
			log.Printf("Failed to send reminder for appointment %d: %v", appt.ID, err)
			continue
		}

		appt.ReminderSent = true
		if err := r.store.UpdateAppointment(appt); err != nil {
			log.Printf("Failed to flag reminder for appointment %d: %v", appt.ID, err)
			continue
		}

		remindersSent++
		log.Printf("Reminder sent for appointment %d", appt.ID)
	}

	log.Printf("Sent %d appointment reminders for %s", remindersSent, tomorrow)
}
