package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agendia-app/agendia-backend/internal/models"
)

// MemoryStore holds all data in memory, for tests and local development
type MemoryStore struct {
	companies     map[uint]*models.Company
	plans         map[uint]*models.Plan
	professionals map[uint]*models.Professional
	services      map[uint]*models.Service
	clients       map[uint]*models.Client
	appointments  map[uint]*models.Appointment
	messages      []*models.Message

	// Mutexes for thread safety
	companyMu sync.RWMutex
	planMu    sync.RWMutex
	proMu     sync.RWMutex
	serviceMu sync.RWMutex
	clientMu  sync.RWMutex
	apptMu    sync.RWMutex
	messageMu sync.RWMutex

	// Counters for ID generation
	companyCounter uint
	planCounter    uint
	proCounter     uint
	serviceCounter uint
	clientCounter  uint
	apptCounter    uint
	messageCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		companies:     make(map[uint]*models.Company),
		plans:         make(map[uint]*models.Plan),
		professionals: make(map[uint]*models.Professional),
		services:      make(map[uint]*models.Service),
		clients:       make(map[uint]*models.Client),
		appointments:  make(map[uint]*models.Appointment),
	}
}

// Company operations

func (m *MemoryStore) CreateCompany(company *models.Company) (*models.Company, error) {
	m.companyMu.Lock()
	defer m.companyMu.Unlock()

	m.companyCounter++
	company.ID = m.companyCounter
	company.CreatedAt = time.Now()
	company.UpdatedAt = time.Now()
	m.companies[company.ID] = company
	return company, nil
}

func (m *MemoryStore) GetCompany(id uint) (*models.Company, error) {
	m.companyMu.RLock()
	company, exists := m.companies[id]
	m.companyMu.RUnlock()
	if !exists {
		return nil, ErrNotFound
	}

	// Attach the plan the way the database store preloads it
	if company.Plan == nil && company.PlanID != 0 {
		if plan, err := m.GetPlan(company.PlanID); err == nil {
			company.Plan = plan
		}
	}
	return company, nil
}

func (m *MemoryStore) GetCompanyByInstance(instance string) (*models.Company, error) {
	m.companyMu.RLock()
	var found *models.Company
	for _, company := range m.companies {
		if company.GatewayInstance == instance {
			found = company
			break
		}
	}
	m.companyMu.RUnlock()
	if found == nil {
		return nil, ErrNotFound
	}
	return m.GetCompany(found.ID)
}

func (m *MemoryStore) UpdateCompany(company *models.Company) error {
	m.companyMu.Lock()
	defer m.companyMu.Unlock()

	if _, exists := m.companies[company.ID]; !exists {
		return ErrNotFound
	}
	company.UpdatedAt = time.Now()
	m.companies[company.ID] = company
	return nil
}

// Plan operations

func (m *MemoryStore) CreatePlan(plan *models.Plan) (*models.Plan, error) {
	m.planMu.Lock()
	defer m.planMu.Unlock()

	m.planCounter++
	plan.ID = m.planCounter
	plan.CreatedAt = time.Now()
	m.plans[plan.ID] = plan
	return plan, nil
}

func (m *MemoryStore) GetPlan(id uint) (*models.Plan, error) {
	m.planMu.RLock()
	defer m.planMu.RUnlock()

	plan, exists := m.plans[id]
	if !exists {
		return nil, ErrNotFound
	}
	return plan, nil
}

// Professional operations

func (m *MemoryStore) CreateProfessional(pro *models.Professional) (*models.Professional, error) {
	m.proMu.Lock()
	defer m.proMu.Unlock()

	m.proCounter++
	pro.ID = m.proCounter
	pro.CreatedAt = time.Now()
	pro.IsActive = true
	m.professionals[pro.ID] = pro
	return pro, nil
}

func (m *MemoryStore) GetProfessional(id uint) (*models.Professional, error) {
	m.proMu.RLock()
	defer m.proMu.RUnlock()

	pro, exists := m.professionals[id]
	if !exists {
		return nil, ErrNotFound
	}
	return pro, nil
}

func (m *MemoryStore) GetProfessionalByName(companyID uint, name string) (*models.Professional, error) {
	m.proMu.RLock()
	defer m.proMu.RUnlock()

	for _, pro := range m.professionals {
		if pro.CompanyID == companyID && pro.IsActive && strings.EqualFold(pro.Name, strings.TrimSpace(name)) {
			return pro, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetProfessionalsByCompany(companyID uint) ([]*models.Professional, error) {
	m.proMu.RLock()
	defer m.proMu.RUnlock()

	var pros []*models.Professional
	for _, pro := range m.professionals {
		if pro.CompanyID == companyID {
			pros = append(pros, pro)
		}
	}
	sort.Slice(pros, func(i, j int) bool { return pros[i].ID < pros[j].ID })
	return pros, nil
}

// Service catalog operations

func (m *MemoryStore) CreateService(svc *models.Service) (*models.Service, error) {
	m.serviceMu.Lock()
	defer m.serviceMu.Unlock()

	m.serviceCounter++
	svc.ID = m.serviceCounter
	svc.CreatedAt = time.Now()
	svc.IsActive = true
	m.services[svc.ID] = svc
	return svc, nil
}

func (m *MemoryStore) GetService(id uint) (*models.Service, error) {
	m.serviceMu.RLock()
	defer m.serviceMu.RUnlock()

	svc, exists := m.services[id]
	if !exists {
		return nil, ErrNotFound
	}
	return svc, nil
}

func (m *MemoryStore) GetServiceByName(companyID uint, name string) (*models.Service, error) {
	m.serviceMu.RLock()
	defer m.serviceMu.RUnlock()

	for _, svc := range m.services {
		if svc.CompanyID == companyID && svc.IsActive && strings.EqualFold(svc.Name, strings.TrimSpace(name)) {
			return svc, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetServicesByCompany(companyID uint) ([]*models.Service, error) {
	m.serviceMu.RLock()
	defer m.serviceMu.RUnlock()

	var svcs []*models.Service
	for _, svc := range m.services {
		if svc.CompanyID == companyID {
			svcs = append(svcs, svc)
		}
	}
	sort.Slice(svcs, func(i, j int) bool { return svcs[i].ID < svcs[j].ID })
	return svcs, nil
}

// Client operations

func (m *MemoryStore) CreateClient(client *models.Client) (*models.Client, error) {
	m.clientMu.Lock()
	defer m.clientMu.Unlock()

	m.clientCounter++
	client.ID = m.clientCounter
	client.Phone = models.NormalizePhone(client.Phone)
	client.CreatedAt = time.Now()
	client.UpdatedAt = time.Now()
	m.clients[client.ID] = client
	return client, nil
}

func (m *MemoryStore) GetClient(id uint) (*models.Client, error) {
	m.clientMu.RLock()
	defer m.clientMu.RUnlock()

	client, exists := m.clients[id]
	if !exists {
		return nil, ErrNotFound
	}
	return client, nil
}

func (m *MemoryStore) GetClientByPhone(companyID uint, phone string) (*models.Client, error) {
	m.clientMu.RLock()
	defer m.clientMu.RUnlock()

	phone = models.NormalizePhone(phone)
	for _, client := range m.clients {
		if client.CompanyID == companyID && client.Phone == phone {
			return client, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetClientsByCompany(companyID uint) ([]*models.Client, error) {
	m.clientMu.RLock()
	defer m.clientMu.RUnlock()

	var clients []*models.Client
	for _, client := range m.clients {
		if client.CompanyID == companyID {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients, nil
}

func (m *MemoryStore) UpdateClient(client *models.Client) error {
	m.clientMu.Lock()
	defer m.clientMu.Unlock()

	if _, exists := m.clients[client.ID]; !exists {
		return ErrNotFound
	}
	client.UpdatedAt = time.Now()
	m.clients[client.ID] = client
	return nil
}

// Appointment operations

func (m *MemoryStore) CreateAppointment(appt *models.Appointment) (*models.Appointment, error) {
	// Check + insert under one lock so concurrent bookings for the same
	// slot cannot both pass the conflict check
	m.apptMu.Lock()
	defer m.apptMu.Unlock()

	if appt.Status == "" {
		appt.Status = models.StatusScheduled
	}
	if !models.ValidStatus(appt.Status) {
		return nil, fmt.Errorf("invalid appointment status: %s", appt.Status)
	}

	for _, existing := range m.appointments {
		if existing.CompanyID == appt.CompanyID &&
			existing.ProfessionalID == appt.ProfessionalID &&
			existing.Date == appt.Date &&
			existing.StartTime == appt.StartTime &&
			existing.Status != models.StatusCancelled {
			return nil, ErrSlotTaken
		}
	}

	m.apptCounter++
	appt.ID = m.apptCounter
	appt.ClientPhone = models.NormalizePhone(appt.ClientPhone)
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = time.Now()
	m.appointments[appt.ID] = appt
	return appt, nil
}

func (m *MemoryStore) GetAppointment(id uint) (*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	appt, exists := m.appointments[id]
	if !exists {
		return nil, ErrNotFound
	}
	return appt, nil
}

func (m *MemoryStore) GetAppointmentsByCompany(companyID uint) ([]*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	var appts []*models.Appointment
	for _, appt := range m.appointments {
		if appt.CompanyID == companyID {
			appts = append(appts, appt)
		}
	}
	sortAppointments(appts)
	return appts, nil
}

func (m *MemoryStore) GetAppointmentsByDateRange(companyID uint, from, to string) ([]*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	var appts []*models.Appointment
	for _, appt := range m.appointments {
		if appt.CompanyID == companyID && appt.Date >= from && appt.Date <= to {
			appts = append(appts, appt)
		}
	}
	sortAppointments(appts)
	return appts, nil
}

func (m *MemoryStore) GetAppointmentsByPhone(companyID uint, phone string) ([]*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	phone = models.NormalizePhone(phone)
	var appts []*models.Appointment
	for _, appt := range m.appointments {
		if appt.CompanyID == companyID && appt.ClientPhone == phone {
			appts = append(appts, appt)
		}
	}
	sortAppointments(appts)
	return appts, nil
}

func (m *MemoryStore) GetConfirmedAppointmentsForDate(date string) ([]*models.Appointment, error) {
	m.apptMu.RLock()
	defer m.apptMu.RUnlock()

	var appts []*models.Appointment
	for _, appt := range m.appointments {
		if appt.Date == date && appt.Status == models.StatusConfirmed {
			appts = append(appts, appt)
		}
	}
	sortAppointments(appts)
	return appts, nil
}

func (m *MemoryStore) UpdateAppointment(appt *models.Appointment) error {
	m.apptMu.Lock()
	defer m.apptMu.Unlock()

	if _, exists := m.appointments[appt.ID]; !exists {
		return ErrNotFound
	}
	appt.UpdatedAt = time.Now()
	m.appointments[appt.ID] = appt
	return nil
}

func (m *MemoryStore) UpdateAppointmentStatusIf(id uint, from, to string) (bool, error) {
	m.apptMu.Lock()
	defer m.apptMu.Unlock()

	appt, exists := m.appointments[id]
	if !exists {
		return false, ErrNotFound
	}
	if appt.Status != from {
		return false, nil
	}

	now := time.Now()
	appt.Status = to
	switch to {
	case models.StatusConfirmed:
		appt.ConfirmedAt = &now
	case models.StatusCancelled:
		appt.CancelledAt = &now
	}
	appt.UpdatedAt = now
	return true, nil
}

// Message operations

func (m *MemoryStore) AppendMessage(msg *models.Message) (*models.Message, error) {
	m.messageMu.Lock()
	defer m.messageMu.Unlock()

	m.messageCounter++
	msg.ID = m.messageCounter
	msg.Phone = models.NormalizePhone(msg.Phone)
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	msg.CreatedAt = msg.SentAt
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *MemoryStore) GetRecentMessages(companyID uint, phone string, limit int) ([]*models.Message, error) {
	m.messageMu.RLock()
	defer m.messageMu.RUnlock()

	phone = models.NormalizePhone(phone)
	var msgs []*models.Message
	for _, msg := range m.messages {
		if msg.CompanyID == companyID && msg.Phone == phone {
			msgs = append(msgs, msg)
		}
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func sortAppointments(appts []*models.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		if appts[i].StartTime != appts[j].StartTime {
			return appts[i].StartTime < appts[j].StartTime
		}
		return appts[i].ID < appts[j].ID
	})
}
