package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusScheduled, StatusPendingPayment},
		{StatusScheduled, StatusConfirmed},
		{StatusScheduled, StatusCancelled},
		{StatusScheduled, StatusNoShow},
		{StatusPendingPayment, StatusConfirmed},
		{StatusPendingPayment, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusNoShow},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	denied := []struct{ from, to string }{
		{StatusCompleted, StatusScheduled},
		{StatusCancelled, StatusConfirmed},
		{StatusNoShow, StatusScheduled},
		{StatusConfirmed, StatusScheduled},
		{StatusConfirmed, StatusPendingPayment},
		{StatusPendingPayment, StatusCompleted},
		{"bogus", StatusConfirmed},
	}
	for _, tt := range denied {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s should be denied", tt.from, tt.to)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{
		StatusScheduled, StatusPendingPayment, StatusConfirmed,
		StatusCompleted, StatusCancelled, StatusNoShow,
	} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("paid"))
	assert.False(t, ValidStatus(""))
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.True(t, IsTerminalStatus(StatusCancelled))
	assert.True(t, IsTerminalStatus(StatusNoShow))

	assert.False(t, IsTerminalStatus(StatusScheduled))
	assert.False(t, IsTerminalStatus(StatusPendingPayment))
	assert.False(t, IsTerminalStatus(StatusConfirmed))
	assert.False(t, IsTerminalStatus("bogus"))
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"whatsapp:+5511999990000":      "+5511999990000",
		"5511999990000@s.whatsapp.net": "5511999990000",
		"+55 (11) 99999-0000":          "+5511999990000",
		"5511999990000":                "5511999990000",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), "input: %s", in)
	}
}

func TestSlotKey(t *testing.T) {
	a := &Appointment{CompanyID: 1, ProfessionalID: 2, Date: "2026-09-01", StartTime: "14:00"}
	b := &Appointment{CompanyID: 1, ProfessionalID: 2, Date: "2026-09-01", StartTime: "14:00"}
	c := &Appointment{CompanyID: 1, ProfessionalID: 3, Date: "2026-09-01", StartTime: "14:00"}

	assert.Equal(t, a.SlotKey(), b.SlotKey())
	assert.NotEqual(t, a.SlotKey(), c.SlotKey())
}

func TestPlanHasFeature(t *testing.T) {
	plan := &Plan{FeatureWhatsApp: true, FeatureOnlinePayments: true}

	assert.True(t, plan.HasFeature(FeatureWhatsApp))
	assert.True(t, plan.HasFeature(FeatureOnlinePayments))
	assert.False(t, plan.HasFeature(FeatureAIAgent))
	assert.False(t, plan.HasFeature("unknown_feature"), "unknown names are denied")

	var nilPlan *Plan
	assert.False(t, nilPlan.HasFeature(FeatureWhatsApp), "missing plan denies everything")
}
