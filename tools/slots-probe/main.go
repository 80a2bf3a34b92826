//go:build protogen

// slots-probe queries the booking service's gRPC availability endpoint and
// prints the returned slots, one per line. Useful for smoke-testing a
// deployment without going through the HTTP gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/slotline/slotline/libs/grpcx"
	availabilityv1 "github.com/slotline/slotline/protos/gen/availability/v1"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func main() {
	var (
		addr        = flag.String("addr", getenv("BOOKING_GRPC_ADDR", "localhost:9090"), "booking service grpc address")
		businessID  = flag.String("business-id", getenv("BUSINESS_ID", ""), "business id to query")
		fromStr     = flag.String("from", "", "window start (RFC3339, default now)")
		toStr       = flag.String("to", "", "window end (RFC3339, default from+24h)")
		slotMinutes = flag.Int("slot-minutes", 30, "candidate slot duration in minutes")
		freeOnly    = flag.Bool("free-only", false, "print only free slots")
	)
	flag.Parse()

	if *businessID == "" {
		fatal("BUSINESS_ID is required")
	}

	from := time.Now().UTC().Truncate(time.Minute)
	if *fromStr != "" {
		t, err := time.Parse(time.RFC3339, *fromStr)
		if err != nil {
			fatal("invalid -from: " + err.Error())
		}
		from = t
	}
	to := from.Add(24 * time.Hour)
	if *toStr != "" {
		t, err := time.Parse(time.RFC3339, *toStr)
		if err != nil {
			fatal("invalid -to: " + err.Error())
		}
		to = t
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := grpcx.Dial(ctx, *addr, grpcx.DialOptions{})
	if err != nil {
		fatal("dial: " + err.Error())
	}
	defer conn.Close()

	client := availabilityv1.NewAvailabilityServiceClient(conn)
	resp, err := client.GetFreeSlots(ctx, &availabilityv1.GetFreeSlotsRequest{
		BusinessId:  *businessID,
		From:        timestamppb.New(from),
		To:          timestamppb.New(to),
		SlotMinutes: int32(*slotMinutes),
	})
	if err != nil {
		fatal("get free slots: " + err.Error())
	}

	for _, slot := range resp.GetSlots() {
		if *freeOnly && !slot.GetFree() {
			continue
		}
		state := "free"
		if !slot.GetFree() {
			state = "booked"
		}
		fmt.Printf("%s  %s  %s\n",
			slot.GetStartUtc().AsTime().Format(time.RFC3339),
			slot.GetEndUtc().AsTime().Format(time.RFC3339),
			state)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
