//go:build !protogen

package main

import (
	"context"
	"log/slog"

	"github.com/slotline/slotline/services/booking-service/internal/booking"
)

func startGrpcServer(_ context.Context, _ *slog.Logger, _ *booking.Service) error {
	return nil
}
