package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

type fakeCatalog struct {
	hours    []schedule.DayHours
	services map[string]model.Service
}

func (f *fakeCatalog) GetBusinessHours(ctx context.Context, businessID string) ([]schedule.DayHours, error) {
	return f.hours, nil
}

func (f *fakeCatalog) GetService(ctx context.Context, serviceID string) (model.Service, error) {
	svc, ok := f.services[serviceID]
	if !ok {
		return model.Service{}, fmt.Errorf("get service %s: %w", serviceID, ErrServiceNotFound)
	}
	return svc, nil
}

// fakeAppts keeps appointments in memory. insertErrs lets a test inject
// store-level conflict responses before inserts start succeeding.
type fakeAppts struct {
	mu         sync.Mutex
	appts      map[string]model.Appointment
	nextID     int
	inserts    int
	lists      int
	insertErrs []error
}

func newFakeAppts() *fakeAppts {
	return &fakeAppts{appts: map[string]model.Appointment{}}
}

func (f *fakeAppts) ListForBusiness(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	var out []model.Appointment
	for _, a := range f.appts {
		if a.BusinessID != businessID || a.Status != model.StatusBooked {
			continue
		}
		if a.EndTime.Before(from) || a.StartTime.After(to) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAppts) Get(ctx context.Context, appointmentID string) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[appointmentID]
	if !ok {
		return model.Appointment{}, fmt.Errorf("get appointment %s: %w", appointmentID, ErrAppointmentNotFound)
	}
	return a, nil
}

func (f *fakeAppts) Insert(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		return model.Appointment{}, err
	}
	f.nextID++
	appt.ID = fmt.Sprintf("appt-%d", f.nextID)
	appt.CreatedAt = time.Now()
	f.appts[appt.ID] = appt
	return appt, nil
}

func (f *fakeAppts) Reschedule(ctx context.Context, appointmentID, serviceID string, start, end time.Time) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[appointmentID]
	if !ok {
		return model.Appointment{}, fmt.Errorf("reschedule %s: %w", appointmentID, ErrAppointmentNotFound)
	}
	a.ServiceID = serviceID
	a.StartTime = start
	a.EndTime = end
	f.appts[appointmentID] = a
	return a, nil
}

func (f *fakeAppts) Cancel(ctx context.Context, appointmentID string) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[appointmentID]
	if !ok {
		return model.Appointment{}, fmt.Errorf("cancel %s: %w", appointmentID, ErrAppointmentNotFound)
	}
	now := time.Now()
	a.Status = model.StatusCancelled
	a.CancelledAt = &now
	f.appts[appointmentID] = a
	return a, nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		services: map[string]model.Service{
			"svc-cut": {ID: "svc-cut", BusinessID: "biz-1", Name: "Haircut", DurationMinutes: 45},
			"svc-dye": {ID: "svc-dye", BusinessID: "biz-1", Name: "Coloring", DurationMinutes: 90},
			"svc-spa": {ID: "svc-spa", BusinessID: "biz-2", Name: "Massage", DurationMinutes: 60},
		},
	}
}

func slotAt(hour, min int) time.Time {
	return time.Date(2026, 2, 2, hour, min, 0, 0, time.UTC)
}

func TestCreateAppointmentSnapshotsEndTime(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)

	appt, err := svc.CreateAppointment(context.Background(), "svc-cut", "acct-1", slotAt(10, 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !appt.EndTime.Equal(slotAt(10, 45)) {
		t.Fatalf("expected end 10:45, got %s", appt.EndTime.Format("15:04"))
	}
	if appt.Status != model.StatusBooked {
		t.Fatalf("expected status booked, got %s", appt.Status)
	}
	if appt.BusinessID != "biz-1" {
		t.Fatalf("expected business from service, got %s", appt.BusinessID)
	}
}

func TestCreateAppointmentUnknownServiceWritesNothing(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)

	_, err := svc.CreateAppointment(context.Background(), "svc-missing", "acct-1", slotAt(10, 0))
	if !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
	if appts.inserts != 0 {
		t.Fatalf("expected no insert attempts, got %d", appts.inserts)
	}
}

func TestCreateAppointmentRejectsConflict(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)
	ctx := context.Background()

	if _, err := svc.CreateAppointment(ctx, "svc-cut", "acct-1", slotAt(14, 0)); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Starts exactly at the existing end; still refused.
	_, err := svc.CreateAppointment(ctx, "svc-cut", "acct-2", slotAt(14, 45))
	if !errors.Is(err, ErrSchedulingConflict) {
		t.Fatalf("expected ErrSchedulingConflict, got %v", err)
	}
	if len(appts.appts) != 1 {
		t.Fatalf("expected 1 stored appointment, got %d", len(appts.appts))
	}
}

func TestCreateAppointmentRetriesOnStoreConflict(t *testing.T) {
	appts := newFakeAppts()
	appts.insertErrs = []error{
		fmt.Errorf("insert: %w", ErrSchedulingConflict),
	}
	svc := NewService(testCatalog(), appts)

	appt, err := svc.CreateAppointment(context.Background(), "svc-cut", "acct-1", slotAt(10, 0))
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if appt.ID == "" {
		t.Fatal("expected stored appointment after retry")
	}
	if appts.inserts != 2 {
		t.Fatalf("expected 2 insert attempts, got %d", appts.inserts)
	}
}

func TestCreateAppointmentGivesUpAfterBoundedRetries(t *testing.T) {
	appts := newFakeAppts()
	for i := 0; i < storeConflictRetries+1; i++ {
		appts.insertErrs = append(appts.insertErrs, fmt.Errorf("insert: %w", ErrSchedulingConflict))
	}
	svc := NewService(testCatalog(), appts)

	_, err := svc.CreateAppointment(context.Background(), "svc-cut", "acct-1", slotAt(10, 0))
	if !errors.Is(err, ErrSchedulingConflict) {
		t.Fatalf("expected ErrSchedulingConflict, got %v", err)
	}
	if appts.inserts != storeConflictRetries+1 {
		t.Fatalf("expected %d insert attempts, got %d", storeConflictRetries+1, appts.inserts)
	}
}

func TestConcurrentCreatesExactlyOneWins(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateAppointment(context.Background(), "svc-cut", fmt.Sprintf("acct-%d", i), slotAt(10, 0))
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSchedulingConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("expected exactly 1 winner and %d conflicts, got %d and %d", n-1, ok, conflicts)
	}
	if len(appts.appts) != 1 {
		t.Fatalf("expected 1 stored appointment, got %d", len(appts.appts))
	}
}

func TestUpdateAppointmentExcludesItself(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)
	ctx := context.Background()

	appt, err := svc.CreateAppointment(ctx, "svc-cut", "acct-1", slotAt(10, 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Shift by 15 minutes; the new window overlaps the old one, which must
	// not count against the appointment being moved.
	newStart := slotAt(10, 15)
	updated, err := svc.UpdateAppointment(ctx, appt.ID, AppointmentPatch{NewStartTime: &newStart})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.StartTime.Equal(newStart) || !updated.EndTime.Equal(slotAt(11, 0)) {
		t.Fatalf("unexpected window %s-%s", updated.StartTime.Format("15:04"), updated.EndTime.Format("15:04"))
	}
}

func TestUpdateAppointmentNewServiceRederivesEnd(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)
	ctx := context.Background()

	appt, err := svc.CreateAppointment(ctx, "svc-cut", "acct-1", slotAt(10, 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newService := "svc-dye"
	updated, err := svc.UpdateAppointment(ctx, appt.ID, AppointmentPatch{NewServiceID: &newService})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.EndTime.Equal(slotAt(11, 30)) {
		t.Fatalf("expected end re-derived to 11:30, got %s", updated.EndTime.Format("15:04"))
	}
}

func TestUpdateAppointmentRejectsCrossBusinessService(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)
	ctx := context.Background()

	appt, err := svc.CreateAppointment(ctx, "svc-cut", "acct-1", slotAt(10, 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := "svc-spa"
	_, err = svc.UpdateAppointment(ctx, appt.ID, AppointmentPatch{NewServiceID: &other})
	if !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound for other business's service, got %v", err)
	}
}

func TestUpdateAppointmentConflictsWithOthers(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)
	ctx := context.Background()

	first, err := svc.CreateAppointment(ctx, "svc-cut", "acct-1", slotAt(10, 0))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.CreateAppointment(ctx, "svc-cut", "acct-2", slotAt(12, 0)); err != nil {
		t.Fatalf("create second: %v", err)
	}

	collide := slotAt(12, 15)
	_, err = svc.UpdateAppointment(ctx, first.ID, AppointmentPatch{NewStartTime: &collide})
	if !errors.Is(err, ErrSchedulingConflict) {
		t.Fatalf("expected ErrSchedulingConflict, got %v", err)
	}
}

func TestUpdateAppointmentEmptyPatch(t *testing.T) {
	svc := NewService(testCatalog(), newFakeAppts())
	_, err := svc.UpdateAppointment(context.Background(), "appt-1", AppointmentPatch{})
	if !errors.Is(err, ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}
}

func TestCancelAppointmentIdempotent(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)
	ctx := context.Background()

	appt, err := svc.CreateAppointment(ctx, "svc-cut", "acct-1", slotAt(10, 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := svc.CancelAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.StatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancelled state %+v", cancelled)
	}

	again, err := svc.CancelAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if again.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", again.Status)
	}
}

func TestCancelledAppointmentFreesWindow(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)
	ctx := context.Background()

	appt, err := svc.CreateAppointment(ctx, "svc-cut", "acct-1", slotAt(10, 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CancelAppointment(ctx, appt.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.CreateAppointment(ctx, "svc-cut", "acct-2", slotAt(10, 0)); err != nil {
		t.Fatalf("expected rebooking over cancelled window to succeed, got %v", err)
	}
}

func TestGetFreeSlotsMarksBookedAndRejectsBadDuration(t *testing.T) {
	appts := newFakeAppts()
	svc := NewService(testCatalog(), appts)
	ctx := context.Background()

	if _, err := svc.CreateAppointment(ctx, "svc-cut", "acct-1", slotAt(10, 0)); err != nil {
		t.Fatalf("create: %v", err)
	}

	slots, err := svc.GetFreeSlots(ctx, "biz-1", slotAt(9, 0), slotAt(12, 0), 30)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	var sawBookedStart bool
	for _, s := range slots {
		if s.Start.Equal(slotAt(10, 0)) {
			sawBookedStart = true
			if s.Free {
				t.Fatal("expected 10:00 slot to be marked booked")
			}
		}
	}
	if !sawBookedStart {
		t.Fatal("expected a candidate slot at 10:00")
	}

	if _, err := svc.GetFreeSlots(ctx, "biz-1", slotAt(9, 0), slotAt(12, 0), 0); !errors.Is(err, ErrInvalidSlotDuration) {
		t.Fatalf("expected ErrInvalidSlotDuration, got %v", err)
	}

	empty, err := svc.GetFreeSlots(ctx, "biz-1", slotAt(12, 0), slotAt(9, 0), 45)
	if err != nil {
		t.Fatalf("inverted interval: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("inverted interval: expected empty list, got %d", len(empty))
	}
}
