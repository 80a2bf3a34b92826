package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

type capturingStore struct {
	businessID string
	week       []schedule.DayHours
	calls      int
	err        error
}

func (s *capturingStore) ReplaceBusinessHours(ctx context.Context, businessID string, week []schedule.DayHours) error {
	s.calls++
	s.businessID = businessID
	s.week = week
	return s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHoursUpdatedHandlerAppliesValidWeek(t *testing.T) {
	store := &capturingStore{}
	handler := NewHoursUpdatedHandler(discardLogger(), store)

	msg := kafka.Message{Value: []byte(`{
		"business_id": "biz-1",
		"hours": [
			{"weekday": 1, "open": "09:00", "close": "18:00"},
			{"weekday": 0, "open": "00:00", "close": "00:00", "closed": true}
		]
	}`)}
	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if store.calls != 1 || store.businessID != "biz-1" {
		t.Fatalf("expected one replace for biz-1, got %d for %q", store.calls, store.businessID)
	}
	if len(store.week) != 2 {
		t.Fatalf("expected 2 day entries, got %d", len(store.week))
	}
	if store.week[0].Open != "09:00" || store.week[1].Closed != true {
		t.Fatalf("unexpected week %+v", store.week)
	}
}

func TestHoursUpdatedHandlerDropsInvalidPayloads(t *testing.T) {
	store := &capturingStore{}
	handler := NewHoursUpdatedHandler(discardLogger(), store)

	cases := map[string]string{
		"malformed json":     `{`,
		"missing business":   `{"hours": []}`,
		"bad weekday":        `{"business_id": "biz-1", "hours": [{"weekday": 9, "open": "09:00", "close": "18:00"}]}`,
		"open after close":   `{"business_id": "biz-1", "hours": [{"weekday": 1, "open": "18:00", "close": "09:00"}]}`,
		"duplicate weekdays": `{"business_id": "biz-1", "hours": [{"weekday": 1, "open": "09:00", "close": "12:00"}, {"weekday": 1, "open": "13:00", "close": "18:00"}]}`,
	}
	for name, value := range cases {
		if err := handler(context.Background(), kafka.Message{Value: []byte(value)}); err != nil {
			t.Fatalf("%s: expected drop without error, got %v", name, err)
		}
	}
	if store.calls != 0 {
		t.Fatalf("expected no store writes, got %d", store.calls)
	}
}

func TestHoursUpdatedHandlerPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("db down")
	store := &capturingStore{err: storeErr}
	handler := NewHoursUpdatedHandler(discardLogger(), store)

	msg := kafka.Message{Value: []byte(`{
		"business_id": "biz-1",
		"hours": [{"weekday": 1, "open": "09:00", "close": "18:00"}]
	}`)}
	if err := handler(context.Background(), msg); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}
