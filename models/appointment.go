package models

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentScheduled  AppointmentStatus = "scheduled"
	AppointmentInProgress AppointmentStatus = "in_progress"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentCancelled  AppointmentStatus = "cancelled"
)

// Terminal states accept no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

// Appointment is owned by the scheduling side; this service only moves it to completed.
type Appointment struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	OrgID       uuid.UUID         `gorm:"type:uuid;index;not null" json:"orgId"`
	ClientID    *uuid.UUID        `gorm:"type:uuid;index" json:"clientId,omitempty"`
	Status      AppointmentStatus `gorm:"type:varchar(20);not null" json:"status"`
	ServiceName string            `json:"serviceName,omitempty"`
	ScheduledAt time.Time         `json:"scheduledAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
