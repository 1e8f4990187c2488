package models

import (
	"github.com/google/uuid"
)

type Client struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	OrgID uuid.UUID `gorm:"type:uuid;index;not null" json:"orgId"`

	Name  string `gorm:"not null" json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}
