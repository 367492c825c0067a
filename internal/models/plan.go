package models

import "gorm.io/gorm"

// Plan is a subscription tier. Feature flags gate API and WhatsApp behavior
// for every company on the plan; the flags are read-only at request time.
type Plan struct {
	gorm.Model

	Name         string  `json:"name" gorm:"uniqueIndex"`
	MonthlyPrice float64 `json:"monthly_price"`

	FeatureWhatsApp       bool `json:"feature_whatsapp" gorm:"default:false"`
	FeatureAIAgent        bool `json:"feature_ai_agent" gorm:"default:false"`
	FeatureOnlinePayments bool `json:"feature_online_payments" gorm:"default:false"`
	FeatureAPIAccess      bool `json:"feature_api_access" gorm:"default:true"`
	FeatureReminders      bool `json:"feature_reminders" gorm:"default:true"`

	MaxProfessionals int `json:"max_professionals" gorm:"default:1"`
}

// Plan feature names used by the gating middleware
const (
	FeatureWhatsApp       = "whatsapp"
	FeatureAIAgent        = "ai_agent"
	FeatureOnlinePayments = "online_payments"
	FeatureAPIAccess      = "api_access"
	FeatureReminders      = "reminders"
)

// HasFeature resolves a feature name against the plan's flags.
// Unknown names are denied.
func (p *Plan) HasFeature(name string) bool {
	if p == nil {
		return false
	}
	switch name {
	case FeatureWhatsApp:
		return p.FeatureWhatsApp
	case FeatureAIAgent:
		return p.FeatureAIAgent
	case FeatureOnlinePayments:
		return p.FeatureOnlinePayments
	case FeatureAPIAccess:
		return p.FeatureAPIAccess
	case FeatureReminders:
		return p.FeatureReminders
	}
	return false
}
