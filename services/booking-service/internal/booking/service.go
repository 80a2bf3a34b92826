package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

// CatalogRepository resolves a business's hours and services. Reads are
// plain joins performed by the store; entities carry ids, not
// back-references.
type CatalogRepository interface {
	// GetBusinessHours returns nil (not an error) when the business has no
	// hours configured, so the default-open policy applies downstream.
	GetBusinessHours(ctx context.Context, businessID string) ([]schedule.DayHours, error)
	// GetService wraps ErrServiceNotFound when the id is unknown.
	GetService(ctx context.Context, serviceID string) (model.Service, error)
}

// AppointmentRepository persists appointments. ListForBusiness must return
// every booked appointment whose interval touches [from, to] inclusively;
// a superset is acceptable. Insert and Reschedule wrap
// ErrSchedulingConflict when the store's overlap constraint fires.
type AppointmentRepository interface {
	ListForBusiness(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error)
	Get(ctx context.Context, appointmentID string) (model.Appointment, error)
	Insert(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	Reschedule(ctx context.Context, appointmentID, serviceID string, start, end time.Time) (model.Appointment, error)
	Cancel(ctx context.Context, appointmentID string) (model.Appointment, error)
}

// AppointmentPatch lists the only fields a reschedule may change.
type AppointmentPatch struct {
	NewStartTime *time.Time
	NewServiceID *string
}

// How many times a check-and-insert is retried after the store reports an
// overlap that the in-process check missed.
const storeConflictRetries = 2

// Service is the booking orchestrator. The slot and conflict math is pure;
// the only stateful concern is serializing check-and-insert per business,
// done with a striped in-process lock backed by the store's overlap
// constraint for multi-instance deployments.
type Service struct {
	catalog CatalogRepository
	appts   AppointmentRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(catalog CatalogRepository, appts AppointmentRepository) *Service {
	return &Service{
		catalog: catalog,
		appts:   appts,
		locks:   map[string]*sync.Mutex{},
	}
}

// GetFreeSlots classifies every candidate slot in [from, to) for the
// business. An inverted or empty interval yields an empty list, not an
// error; a non-positive duration is a caller bug and is rejected.
func (s *Service) GetFreeSlots(ctx context.Context, businessID string, from, to time.Time, slotMinutes int) ([]schedule.Slot, error) {
	if slotMinutes <= 0 {
		return nil, ErrInvalidSlotDuration
	}
	if !to.After(from) {
		return []schedule.Slot{}, nil
	}

	week, err := s.catalog.GetBusinessHours(ctx, businessID)
	if err != nil {
		return nil, err
	}
	appts, err := s.appts.ListForBusiness(ctx, businessID, from, to)
	if err != nil {
		return nil, err
	}

	slots := schedule.GenerateSlots(week, bookedIntervals(appts, ""), from, to, slotMinutes)
	if slots == nil {
		slots = []schedule.Slot{}
	}
	return slots, nil
}

// CreateAppointment books serviceID at start for the account. The end time
// is snapshotted from the service duration. Exactly one of N concurrent
// requests for colliding windows succeeds.
func (s *Service) CreateAppointment(ctx context.Context, serviceID, accountID string, start time.Time) (model.Appointment, error) {
	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return model.Appointment{}, err
	}
	end := start.Add(time.Duration(svc.DurationMinutes) * time.Minute)

	unlock := s.lockBusiness(svc.BusinessID)
	defer unlock()

	return s.checkAndWrite(ctx, svc.BusinessID, start, end, "", func(ctx context.Context) (model.Appointment, error) {
		return s.appts.Insert(ctx, model.Appointment{
			BusinessID: svc.BusinessID,
			AccountID:  accountID,
			ServiceID:  serviceID,
			StartTime:  start,
			EndTime:    end,
			Status:     model.StatusBooked,
		})
	})
}

// UpdateAppointment reschedules an appointment to a new start time and/or
// service, re-running the conflict check against all other appointments of
// the business. A new service must belong to the same business.
func (s *Service) UpdateAppointment(ctx context.Context, appointmentID string, patch AppointmentPatch) (model.Appointment, error) {
	if patch.NewStartTime == nil && patch.NewServiceID == nil {
		return model.Appointment{}, ErrEmptyPatch
	}

	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.Status != model.StatusBooked {
		return model.Appointment{}, ErrNotActive
	}

	serviceID := appt.ServiceID
	if patch.NewServiceID != nil {
		serviceID = *patch.NewServiceID
	}
	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return model.Appointment{}, err
	}
	if svc.BusinessID != appt.BusinessID {
		return model.Appointment{}, ErrServiceNotFound
	}

	start := appt.StartTime
	if patch.NewStartTime != nil {
		start = *patch.NewStartTime
	}
	end := start.Add(time.Duration(svc.DurationMinutes) * time.Minute)

	unlock := s.lockBusiness(appt.BusinessID)
	defer unlock()

	return s.checkAndWrite(ctx, appt.BusinessID, start, end, appt.ID, func(ctx context.Context) (model.Appointment, error) {
		return s.appts.Reschedule(ctx, appt.ID, serviceID, start, end)
	})
}

// CancelAppointment releases the appointment's window. Cancelling an
// already-cancelled appointment is idempotent.
func (s *Service) CancelAppointment(ctx context.Context, appointmentID string) (model.Appointment, error) {
	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.Status == model.StatusCancelled {
		return appt, nil
	}
	if appt.Status != model.StatusBooked {
		return model.Appointment{}, ErrNotActive
	}
	return s.appts.Cancel(ctx, appointmentID)
}

// GetAppointment exposes a single appointment to the API layer.
func (s *Service) GetAppointment(ctx context.Context, appointmentID string) (model.Appointment, error) {
	return s.appts.Get(ctx, appointmentID)
}

// checkAndWrite runs the conflict check and the write under the caller-held
// business lock. If the store still reports an overlap (another instance
// raced us), the check is re-run against fresh data a bounded number of
// times before the conflict is surfaced.
func (s *Service) checkAndWrite(ctx context.Context, businessID string, start, end time.Time, excludeID string, write func(context.Context) (model.Appointment, error)) (model.Appointment, error) {
	for attempt := 0; ; attempt++ {
		existing, err := s.appts.ListForBusiness(ctx, businessID, start, end)
		if err != nil {
			return model.Appointment{}, err
		}
		if schedule.HasConflict(bookedIntervals(existing, excludeID), start, end) {
			return model.Appointment{}, ErrSchedulingConflict
		}

		appt, err := write(ctx)
		if err == nil {
			return appt, nil
		}
		if !errors.Is(err, ErrSchedulingConflict) || attempt >= storeConflictRetries {
			return model.Appointment{}, err
		}
	}
}

func (s *Service) lockBusiness(businessID string) func() {
	s.mu.Lock()
	l := s.locks[businessID]
	if l == nil {
		l = &sync.Mutex{}
		s.locks[businessID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func bookedIntervals(appts []model.Appointment, excludeID string) []schedule.Interval {
	out := make([]schedule.Interval, 0, len(appts))
	for _, a := range appts {
		if a.Status != model.StatusBooked {
			continue
		}
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		out = append(out, schedule.Interval{Start: a.StartTime, End: a.EndTime})
	}
	return out
}
