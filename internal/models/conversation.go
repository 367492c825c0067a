package models

import (
	"time"

	"gorm.io/gorm"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a WhatsApp conversation. The log is append-only
// and scoped to a phone number and gateway instance.
type Message struct {
	gorm.Model

	CompanyID uint      `json:"company_id" gorm:"index;not null"`
	Instance  string    `json:"instance" gorm:"index"`
	Phone     string    `json:"phone" gorm:"index;not null"`
	Role      string    `json:"role" gorm:"size:12;not null"`
	Content   string    `json:"content" gorm:"type:text"`
	SentAt    time.Time `json:"sent_at"`
}

// BeforeCreate normalizes the phone and stamps SentAt if the caller didn't
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	m.Phone = NormalizePhone(m.Phone)
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	return nil
}
