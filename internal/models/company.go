package models

import (
	"gorm.io/gorm"
)

// Company is a tenant. Every domain row is scoped by CompanyID.
type Company struct {
	gorm.Model

	Name  string `json:"name" gorm:"not null"`
	Email string `json:"email" gorm:"uniqueIndex"`
	Phone string `json:"phone"`
	Slug  string `json:"slug" gorm:"uniqueIndex"` // public booking page identifier

	PlanID uint  `json:"plan_id" gorm:"index"`
	Plan   *Plan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`

	// WhatsApp gateway instance owned by this company
	GatewayInstance string `json:"gateway_instance" gorm:"uniqueIndex"`
	GatewayToken    string `json:"-"`

	// AI receptionist settings, resolved per request instead of a global
	// settings row
	AIPrompt      string  `json:"ai_prompt" gorm:"type:text"`
	AIModel       string  `json:"ai_model" gorm:"default:'gpt-4o-mini'"`
	AITemperature float64 `json:"ai_temperature" gorm:"default:0.7"`
	AIMaxTokens   int     `json:"ai_max_tokens" gorm:"default:600"`

	IsActive bool `json:"is_active" gorm:"default:true"`
}

// Professional is a staff member who delivers services. Referenced by
// appointments but owned by the company.
type Professional struct {
	gorm.Model

	CompanyID uint   `json:"company_id" gorm:"index;not null"`
	Name      string `json:"name" gorm:"not null"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active" gorm:"default:true"`
}

// Service is a catalog entry: what a company sells, at what price,
// taking how long
type Service struct {
	gorm.Model

	CompanyID   uint    `json:"company_id" gorm:"index;not null"`
	Name        string  `json:"name" gorm:"not null"`
	Description string  `json:"description" gorm:"size:500"`
	DurationMin int     `json:"duration_min" gorm:"default:30"`
	Price       float64 `json:"price" gorm:"not null"`
	IsActive    bool    `json:"is_active" gorm:"default:true"`
}

// Client is a CRM row for a returning customer
type Client struct {
	gorm.Model

	CompanyID uint   `json:"company_id" gorm:"index;not null"`
	Name      string `json:"name" gorm:"not null"`
	Phone     string `json:"phone" gorm:"index"`
	Email     string `json:"email"`
	Notes     string `json:"notes" gorm:"size:500"`
}

// BeforeCreate normalizes the client phone so WhatsApp lookups match
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	c.Phone = NormalizePhone(c.Phone)
	return nil
}
