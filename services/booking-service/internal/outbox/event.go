package outbox

import (
	"encoding/json"
	"time"

	"github.com/slotline/slotline/services/booking-service/internal/model"
)

// Topic per event type; the Kafka topic name equals EventType.
const (
	TopicAppointmentBooked      = "booking.appointment.booked.v1"
	TopicAppointmentRescheduled = "booking.appointment.rescheduled.v1"
	TopicAppointmentCancelled   = "booking.appointment.cancelled.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type appointmentPayload struct {
	AppointmentID string     `json:"appointment_id"`
	BusinessID    string     `json:"business_id"`
	AccountID     string     `json:"account_id"`
	ServiceID     string     `json:"service_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Status        string     `json:"status"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

func AppointmentBooked(appt model.Appointment) (Event, error) {
	return appointmentEvent(TopicAppointmentBooked, appt)
}

func AppointmentRescheduled(appt model.Appointment) (Event, error) {
	return appointmentEvent(TopicAppointmentRescheduled, appt)
}

func AppointmentCancelled(appt model.Appointment) (Event, error) {
	return appointmentEvent(TopicAppointmentCancelled, appt)
}

func appointmentEvent(eventType string, appt model.Appointment) (Event, error) {
	payload, err := json.Marshal(appointmentPayload{
		AppointmentID: appt.ID,
		BusinessID:    appt.BusinessID,
		AccountID:     appt.AccountID,
		ServiceID:     appt.ServiceID,
		StartTime:     appt.StartTime,
		EndTime:       appt.EndTime,
		Status:        appt.Status,
		CancelledAt:   appt.CancelledAt,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
