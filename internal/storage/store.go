package storage

import (
	"errors"

	"github.com/agendia-app/agendia-backend/internal/models"
)

// Sentinel errors callers branch on
var (
	ErrNotFound  = errors.New("record not found")
	ErrSlotTaken = errors.New("professional already booked for this slot")
)

// Store defines the interface for storage operations
type Store interface {
	// Company operations
	CreateCompany(company *models.Company) (*models.Company, error)
	GetCompany(id uint) (*models.Company, error)
	GetCompanyByInstance(instance string) (*models.Company, error)
	UpdateCompany(company *models.Company) error

	// Plan operations
	CreatePlan(plan *models.Plan) (*models.Plan, error)
	GetPlan(id uint) (*models.Plan, error)

	// Professional operations
	CreateProfessional(pro *models.Professional) (*models.Professional, error)
	GetProfessional(id uint) (*models.Professional, error)
	GetProfessionalByName(companyID uint, name string) (*models.Professional, error)
	GetProfessionalsByCompany(companyID uint) ([]*models.Professional, error)

	// Service catalog operations
	CreateService(svc *models.Service) (*models.Service, error)
	GetService(id uint) (*models.Service, error)
	GetServiceByName(companyID uint, name string) (*models.Service, error)
	GetServicesByCompany(companyID uint) ([]*models.Service, error)

	// Client operations
	CreateClient(client *models.Client) (*models.Client, error)
	GetClient(id uint) (*models.Client, error)
	GetClientByPhone(companyID uint, phone string) (*models.Client, error)
	GetClientsByCompany(companyID uint) ([]*models.Client, error)
	UpdateClient(client *models.Client) error

	// Appointment operations
	CreateAppointment(appt *models.Appointment) (*models.Appointment, error)
	GetAppointment(id uint) (*models.Appointment, error)
	GetAppointmentsByCompany(companyID uint) ([]*models.Appointment, error)
	GetAppointmentsByDateRange(companyID uint, from, to string) ([]*models.Appointment, error)
	GetAppointmentsByPhone(companyID uint, phone string) ([]*models.Appointment, error)
	GetConfirmedAppointmentsForDate(date string) ([]*models.Appointment, error)
	UpdateAppointment(appt *models.Appointment) error

	// UpdateAppointmentStatusIf flips the status only if it currently equals
	// from. Returns false when the row was not in the expected state, which is
	// how webhook double-deliveries are detected.
	UpdateAppointmentStatusIf(id uint, from, to string) (bool, error)

	// Message operations (append-only conversation log)
	AppendMessage(msg *models.Message) (*models.Message, error)
	GetRecentMessages(companyID uint, phone string, limit int) ([]*models.Message, error)
}
