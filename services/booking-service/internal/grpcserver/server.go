//go:build protogen

package grpcserver

import (
	"context"
	"errors"

	availabilityv1 "github.com/slotline/slotline/protos/gen/availability/v1"
	"github.com/slotline/slotline/services/booking-service/internal/booking"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type server struct {
	availabilityv1.UnimplementedAvailabilityServiceServer
	svc *booking.Service
}

func Register(grpcServer *grpc.Server, svc *booking.Service) {
	availabilityv1.RegisterAvailabilityServiceServer(grpcServer, &server{svc: svc})
}

func (s *server) GetFreeSlots(ctx context.Context, req *availabilityv1.GetFreeSlotsRequest) (*availabilityv1.GetFreeSlotsResponse, error) {
	if req.GetBusinessId() == "" || req.GetFrom() == nil || req.GetTo() == nil {
		return nil, status.Error(codes.InvalidArgument, "business_id, from and to are required")
	}

	slotMinutes := int(req.GetSlotMinutes())
	if slotMinutes == 0 {
		slotMinutes = 30
	}

	slots, err := s.svc.GetFreeSlots(ctx, req.GetBusinessId(), req.GetFrom().AsTime(), req.GetTo().AsTime(), slotMinutes)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidSlotDuration) {
			return nil, status.Error(codes.InvalidArgument, "slot_minutes must be positive")
		}
		return nil, status.Error(codes.Internal, "failed to compute slots")
	}

	resp := &availabilityv1.GetFreeSlotsResponse{BusinessId: req.GetBusinessId()}
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, &availabilityv1.Slot{
			StartUtc: timestamppb.New(slot.Start),
			EndUtc:   timestamppb.New(slot.End),
			Free:     slot.Free,
		})
	}
	return resp, nil
}
