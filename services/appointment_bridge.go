package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"salonpro-pos/models"
	"salonpro-pos/repository"
)

var completableFrom = []models.AppointmentStatus{
	models.AppointmentScheduled,
	models.AppointmentInProgress,
}

// AppointmentBridge is the one place a sale may change an appointment: it
// moves scheduled or in_progress appointments to completed.
type AppointmentBridge struct {
	appointments repository.AppointmentRepository
}

func NewAppointmentBridge(appointments repository.AppointmentRepository) *AppointmentBridge {
	return &AppointmentBridge{appointments: appointments}
}

// CanComplete reports ErrInvalidTransition for completed or cancelled appointments.
func (b *AppointmentBridge) CanComplete(ctx context.Context, orgID, appointmentID uuid.UUID) error {
	a, err := b.appointments.GetAppointment(ctx, orgID, appointmentID)
	if err != nil {
		return fmt.Errorf("appointment %s: %w", appointmentID, err)
	}
	if a.Status.Terminal() {
		return fmt.Errorf("%w: appointment %s is %s", ErrInvalidTransition, appointmentID, a.Status)
	}
	return nil
}

func (b *AppointmentBridge) Complete(ctx context.Context, orgID, appointmentID uuid.UUID) (*models.Appointment, error) {
	if err := b.CanComplete(ctx, orgID, appointmentID); err != nil {
		return nil, err
	}
	a, err := b.appointments.TransitionAppointment(ctx, orgID, appointmentID, completableFrom, models.AppointmentCompleted)
	if errors.Is(err, repository.ErrStateMismatch) {
		return nil, fmt.Errorf("%w: appointment %s changed concurrently", ErrInvalidTransition, appointmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("complete appointment %s: %w", appointmentID, err)
	}
	return a, nil
}
