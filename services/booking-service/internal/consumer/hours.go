package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

// TopicHoursUpdated carries weekly-hours changes pushed by the business
// management plane.
const TopicHoursUpdated = "business.hours.updated.v1"

type hoursUpdatedPayload struct {
	BusinessID string `json:"business_id"`
	Hours      []struct {
		Weekday int    `json:"weekday"`
		Open    string `json:"open"`
		Close   string `json:"close"`
		Closed  bool   `json:"closed"`
	} `json:"hours"`
}

// HoursStore is the slice of the catalog repository the hours handler
// needs.
type HoursStore interface {
	ReplaceBusinessHours(ctx context.Context, businessID string, week []schedule.DayHours) error
}

// NewHoursUpdatedHandler applies business.hours.updated.v1 events to the
// local hours table. Invalid payloads are logged and dropped rather than
// retried forever; the inbox has already recorded the event id.
func NewHoursUpdatedHandler(logger *slog.Logger, store HoursStore) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload hoursUpdatedPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("malformed hours event dropped", "err", err)
			return nil
		}
		if payload.BusinessID == "" {
			logger.Error("hours event missing business_id")
			return nil
		}

		week := make([]schedule.DayHours, 0, len(payload.Hours))
		for _, h := range payload.Hours {
			week = append(week, schedule.DayHours{
				Weekday: h.Weekday,
				Open:    h.Open,
				Close:   h.Close,
				Closed:  h.Closed,
			})
		}
		if err := schedule.ValidateWeek(week); err != nil {
			logger.Error("invalid hours event dropped", "business_id", payload.BusinessID, "err", err)
			return nil
		}

		if err := store.ReplaceBusinessHours(ctx, payload.BusinessID, week); err != nil {
			return fmt.Errorf("replace hours for %s: %w", payload.BusinessID, err)
		}
		logger.Info("business hours updated", "business_id", payload.BusinessID, "days", len(week))
		return nil
	}
}
