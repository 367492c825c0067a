package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendia-app/agendia-backend/internal/models"
)

func seedStore(t *testing.T) (*MemoryStore, *models.Company, *models.Professional, *models.Service) {
	store := NewMemoryStore()

	plan, err := store.CreatePlan(&models.Plan{Name: "pro", FeatureWhatsApp: true})
	require.NoError(t, err)

	company, err := store.CreateCompany(&models.Company{
		Name:            "Barbearia Central",
		PlanID:          plan.ID,
		GatewayInstance: "barber-1",
		IsActive:        true,
	})
	require.NoError(t, err)

	pro, err := store.CreateProfessional(&models.Professional{CompanyID: company.ID, Name: "João"})
	require.NoError(t, err)

	svc, err := store.CreateService(&models.Service{CompanyID: company.ID, Name: "Corte", Price: 80.0, DurationMin: 30})
	require.NoError(t, err)

	return store, company, pro, svc
}

func TestGetCompanyByInstanceAttachesPlan(t *testing.T) {
	store, company, _, _ := seedStore(t)

	got, err := store.GetCompanyByInstance("barber-1")
	require.NoError(t, err)
	assert.Equal(t, company.ID, got.ID)
	require.NotNil(t, got.Plan)
	assert.True(t, got.Plan.FeatureWhatsApp)

	_, err = store.GetCompanyByInstance("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlotConflictDetection(t *testing.T) {
	store, company, pro, svc := seedStore(t)

	appt := func(client string) *models.Appointment {
		return &models.Appointment{
			CompanyID:      company.ID,
			ProfessionalID: pro.ID,
			ServiceID:      svc.ID,
			ClientName:     client,
			Date:           "2026-09-01",
			StartTime:      "14:00",
			Status:         models.StatusConfirmed,
		}
	}

	_, err := store.CreateAppointment(appt("Maria"))
	require.NoError(t, err)

	_, err = store.CreateAppointment(appt("Pedro"))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// A different time on the same day is fine
	other := appt("Pedro")
	other.StartTime = "15:00"
	_, err = store.CreateAppointment(other)
	assert.NoError(t, err)
}

func TestCancelledAppointmentFreesSlot(t *testing.T) {
	store, company, pro, svc := seedStore(t)

	first, err := store.CreateAppointment(&models.Appointment{
		CompanyID:      company.ID,
		ProfessionalID: pro.ID,
		ServiceID:      svc.ID,
		ClientName:     "Maria",
		Date:           "2026-09-01",
		StartTime:      "14:00",
		Status:         models.StatusConfirmed,
	})
	require.NoError(t, err)

	flipped, err := store.UpdateAppointmentStatusIf(first.ID, models.StatusConfirmed, models.StatusCancelled)
	require.NoError(t, err)
	require.True(t, flipped)

	_, err = store.CreateAppointment(&models.Appointment{
		CompanyID:      company.ID,
		ProfessionalID: pro.ID,
		ServiceID:      svc.ID,
		ClientName:     "Pedro",
		Date:           "2026-09-01",
		StartTime:      "14:00",
		Status:         models.StatusConfirmed,
	})
	assert.NoError(t, err)
}

func TestConcurrentBookingsOnlyOneWins(t *testing.T) {
	store, company, pro, svc := seedStore(t)

	const racers = 10
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.CreateAppointment(&models.Appointment{
				CompanyID:      company.ID,
				ProfessionalID: pro.ID,
				ServiceID:      svc.ID,
				ClientName:     fmt.Sprintf("Cliente %d", i),
				Date:           "2026-09-01",
				StartTime:      "14:00",
				Status:         models.StatusConfirmed,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrSlotTaken)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestCreateAppointmentRejectsInvalidStatus(t *testing.T) {
	store, company, pro, svc := seedStore(t)

	_, err := store.CreateAppointment(&models.Appointment{
		CompanyID:      company.ID,
		ProfessionalID: pro.ID,
		ServiceID:      svc.ID,
		Date:           "2026-09-01",
		StartTime:      "14:00",
		Status:         "paid",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "a bad status is a validation failure, not a lookup miss")
	assert.Contains(t, err.Error(), "invalid appointment status")
}

func TestUpdateAppointmentStatusIf(t *testing.T) {
	store, company, pro, svc := seedStore(t)

	appt, err := store.CreateAppointment(&models.Appointment{
		CompanyID:      company.ID,
		ProfessionalID: pro.ID,
		ServiceID:      svc.ID,
		Date:           "2026-09-01",
		StartTime:      "14:00",
		Status:         models.StatusPendingPayment,
	})
	require.NoError(t, err)

	flipped, err := store.UpdateAppointmentStatusIf(appt.ID, models.StatusPendingPayment, models.StatusConfirmed)
	require.NoError(t, err)
	assert.True(t, flipped)

	got, err := store.GetAppointment(appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.NotNil(t, got.ConfirmedAt)

	// Second flip from the same precondition: the row moved on, so no-op
	flipped, err = store.UpdateAppointmentStatusIf(appt.ID, models.StatusPendingPayment, models.StatusConfirmed)
	require.NoError(t, err)
	assert.False(t, flipped)

	// Unknown id is an error, not a silent false
	_, err = store.UpdateAppointmentStatusIf(9999, models.StatusPendingPayment, models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupsByNameAreCaseInsensitiveAndTenantScoped(t *testing.T) {
	store, company, _, _ := seedStore(t)

	svc, err := store.GetServiceByName(company.ID, "  corte ")
	require.NoError(t, err)
	assert.Equal(t, "Corte", svc.Name)

	pro, err := store.GetProfessionalByName(company.ID, "joão")
	require.NoError(t, err)
	assert.Equal(t, "João", pro.Name)

	// Another tenant must not see them
	other, err := store.CreateCompany(&models.Company{Name: "Outra", GatewayInstance: "other-1"})
	require.NoError(t, err)
	_, err = store.GetServiceByName(other.ID, "Corte")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRecentMessagesWindow(t *testing.T) {
	store, company, _, _ := seedStore(t)
	phone := "5511999990000"

	for i := 0; i < 30; i++ {
		_, err := store.AppendMessage(&models.Message{
			CompanyID: company.ID,
			Phone:     phone,
			Role:      models.RoleUser,
			Content:   fmt.Sprintf("mensagem %d", i),
			SentAt:    time.Now().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	msgs, err := store.GetRecentMessages(company.ID, phone, 20)
	require.NoError(t, err)
	require.Len(t, msgs, 20)
	assert.Equal(t, "mensagem 10", msgs[0].Content, "window keeps the most recent turns in order")
	assert.Equal(t, "mensagem 29", msgs[19].Content)

	// WhatsApp JID and bare number address the same conversation
	msgs, err = store.GetRecentMessages(company.ID, phone+"@s.whatsapp.net", 5)
	require.NoError(t, err)
	assert.Len(t, msgs, 5)
}

func TestGetAppointmentsByDateRange(t *testing.T) {
	store, company, pro, svc := seedStore(t)

	for i, date := range []string{"2026-09-01", "2026-09-05", "2026-09-10"} {
		_, err := store.CreateAppointment(&models.Appointment{
			CompanyID:      company.ID,
			ProfessionalID: pro.ID,
			ServiceID:      svc.ID,
			Date:           date,
			StartTime:      fmt.Sprintf("1%d:00", i),
			Status:         models.StatusConfirmed,
		})
		require.NoError(t, err)
	}

	appts, err := store.GetAppointmentsByDateRange(company.ID, "2026-09-02", "2026-09-09")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "2026-09-05", appts[0].Date)
}
