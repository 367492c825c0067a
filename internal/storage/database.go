package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agendia-app/agendia-backend/internal/models"
)

// DatabaseStore implements Store on top of GORM/PostgreSQL
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Company operations

func (s *DatabaseStore) CreateCompany(company *models.Company) (*models.Company, error) {
	if err := s.db.Create(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}

func (s *DatabaseStore) GetCompany(id uint) (*models.Company, error) {
	var company models.Company
	if err := s.db.Preload("Plan").First(&company, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &company, nil
}

func (s *DatabaseStore) GetCompanyByInstance(instance string) (*models.Company, error) {
	var company models.Company
	err := s.db.Preload("Plan").Where("gateway_instance = ?", instance).First(&company).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &company, nil
}

func (s *DatabaseStore) UpdateCompany(company *models.Company) error {
	return s.db.Save(company).Error
}

// Plan operations

func (s *DatabaseStore) CreatePlan(plan *models.Plan) (*models.Plan, error) {
	if err := s.db.Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *DatabaseStore) GetPlan(id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := s.db.First(&plan, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &plan, nil
}

// Professional operations

func (s *DatabaseStore) CreateProfessional(pro *models.Professional) (*models.Professional, error) {
	if err := s.db.Create(pro).Error; err != nil {
		return nil, err
	}
	return pro, nil
}

func (s *DatabaseStore) GetProfessional(id uint) (*models.Professional, error) {
	var pro models.Professional
	if err := s.db.First(&pro, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &pro, nil
}

func (s *DatabaseStore) GetProfessionalByName(companyID uint, name string) (*models.Professional, error) {
	var pro models.Professional
	err := s.db.Where("company_id = ? AND is_active = ? AND LOWER(name) = LOWER(?)",
		companyID, true, name).First(&pro).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &pro, nil
}

func (s *DatabaseStore) GetProfessionalsByCompany(companyID uint) ([]*models.Professional, error) {
	var pros []*models.Professional
	err := s.db.Where("company_id = ?", companyID).Order("id").Find(&pros).Error
	return pros, err
}

// Service catalog operations

func (s *DatabaseStore) CreateService(svc *models.Service) (*models.Service, error) {
	if err := s.db.Create(svc).Error; err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *DatabaseStore) GetService(id uint) (*models.Service, error) {
	var svc models.Service
	if err := s.db.First(&svc, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &svc, nil
}

func (s *DatabaseStore) GetServiceByName(companyID uint, name string) (*models.Service, error) {
	var svc models.Service
	err := s.db.Where("company_id = ? AND is_active = ? AND LOWER(name) = LOWER(?)",
		companyID, true, name).First(&svc).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &svc, nil
}

func (s *DatabaseStore) GetServicesByCompany(companyID uint) ([]*models.Service, error) {
	var svcs []*models.Service
	err := s.db.Where("company_id = ?", companyID).Order("id").Find(&svcs).Error
	return svcs, err
}

// Client operations

func (s *DatabaseStore) CreateClient(client *models.Client) (*models.Client, error) {
	if err := s.db.Create(client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

func (s *DatabaseStore) GetClient(id uint) (*models.Client, error) {
	var client models.Client
	if err := s.db.First(&client, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &client, nil
}

func (s *DatabaseStore) GetClientByPhone(companyID uint, phone string) (*models.Client, error) {
	var client models.Client
	err := s.db.Where("company_id = ? AND phone = ?", companyID, models.NormalizePhone(phone)).
		First(&client).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &client, nil
}

func (s *DatabaseStore) GetClientsByCompany(companyID uint) ([]*models.Client, error) {
	var clients []*models.Client
	err := s.db.Where("company_id = ?", companyID).Order("id").Find(&clients).Error
	return clients, err
}

func (s *DatabaseStore) UpdateClient(client *models.Client) error {
	return s.db.Save(client).Error
}

// Appointment operations

// CreateAppointment inserts a new appointment after checking the slot is
// free. The check and insert run in one transaction with the professional
// row locked, so two concurrent bookings for the same slot serialize and
// the loser sees the winner's row.
func (s *DatabaseStore) CreateAppointment(appt *models.Appointment) (*models.Appointment, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if appt.ProfessionalID != 0 {
			var pro models.Professional
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&pro, appt.ProfessionalID).Error
			if err != nil {
				return translateErr(err)
			}

			var conflicts int64
			err = tx.Model(&models.Appointment{}).
				Where("company_id = ? AND professional_id = ? AND date = ? AND start_time = ? AND status <> ?",
					appt.CompanyID, appt.ProfessionalID, appt.Date, appt.StartTime, models.StatusCancelled).
				Count(&conflicts).Error
			if err != nil {
				return err
			}
			if conflicts > 0 {
				return ErrSlotTaken
			}
		}

		return tx.Create(appt).Error
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *DatabaseStore) GetAppointment(id uint) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.db.First(&appt, id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &appt, nil
}

func (s *DatabaseStore) GetAppointmentsByCompany(companyID uint) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := s.db.Where("company_id = ?", companyID).
		Order("date, start_time, id").Find(&appts).Error
	return appts, err
}

func (s *DatabaseStore) GetAppointmentsByDateRange(companyID uint, from, to string) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := s.db.Where("company_id = ? AND date BETWEEN ? AND ?", companyID, from, to).
		Order("date, start_time, id").Find(&appts).Error
	return appts, err
}

func (s *DatabaseStore) GetAppointmentsByPhone(companyID uint, phone string) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := s.db.Where("company_id = ? AND client_phone = ?", companyID, models.NormalizePhone(phone)).
		Order("date, start_time, id").Find(&appts).Error
	return appts, err
}

func (s *DatabaseStore) GetConfirmedAppointmentsForDate(date string) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := s.db.Where("date = ? AND status = ?", date, models.StatusConfirmed).
		Order("start_time, id").Find(&appts).Error
	return appts, err
}

func (s *DatabaseStore) UpdateAppointment(appt *models.Appointment) error {
	return s.db.Save(appt).Error
}

// UpdateAppointmentStatusIf is a single conditional UPDATE: the WHERE clause
// carries the expected current status, so a second webhook delivery for the
// same reference matches zero rows instead of re-running the transition.
func (s *DatabaseStore) UpdateAppointmentStatusIf(id uint, from, to string) (bool, error) {
	updates := map[string]interface{}{"status": to}
	now := time.Now()
	switch to {
	case models.StatusConfirmed:
		updates["confirmed_at"] = &now
	case models.StatusCancelled:
		updates["cancelled_at"] = &now
	}

	res := s.db.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish "wrong state" from "no such row"
		var count int64
		if err := s.db.Model(&models.Appointment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

// Message operations

func (s *DatabaseStore) AppendMessage(msg *models.Message) (*models.Message, error) {
	if err := s.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *DatabaseStore) GetRecentMessages(companyID uint, phone string, limit int) ([]*models.Message, error) {
	var msgs []*models.Message
	q := s.db.Where("company_id = ? AND phone = ?", companyID, models.NormalizePhone(phone)).
		Order("sent_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order for the LLM context window
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
