package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slotline/slotline/services/booking-service/internal/booking"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

// Booker is the orchestrator surface the HTTP layer depends on.
type Booker interface {
	GetFreeSlots(ctx context.Context, businessID string, from, to time.Time, slotMinutes int) ([]schedule.Slot, error)
	CreateAppointment(ctx context.Context, serviceID, accountID string, start time.Time) (model.Appointment, error)
	UpdateAppointment(ctx context.Context, appointmentID string, patch booking.AppointmentPatch) (model.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID string) (model.Appointment, error)
	GetAppointment(ctx context.Context, appointmentID string) (model.Appointment, error)
}

// AppointmentLister is the direct read path used by the management listing.
type AppointmentLister interface {
	ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error)
}

type BookingHandler struct {
	svc    Booker
	lister AppointmentLister
	logger *slog.Logger
}

func NewBookingHandler(svc Booker, lister AppointmentLister, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, lister: lister, logger: logger}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Free      bool   `json:"free"`
}

type appointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	AccountID     string `json:"account_id"`
	ServiceID     string `json:"service_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func appointmentToResponse(appt model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		AppointmentID: appt.ID,
		BusinessID:    appt.BusinessID,
		AccountID:     appt.AccountID,
		ServiceID:     appt.ServiceID,
		StartTime:     appt.StartTime.UTC().Format(time.RFC3339),
		EndTime:       appt.EndTime.UTC().Format(time.RFC3339),
		Status:        appt.Status,
		CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
	}
	if appt.CancelledAt != nil {
		resp.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	fromStr := strings.TrimSpace(r.URL.Query().Get("from"))
	toStr := strings.TrimSpace(r.URL.Query().Get("to"))
	if businessID == "" || fromStr == "" || toStr == "" {
		http.Error(w, "business_id, from and to are required", http.StatusBadRequest)
		return
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}

	slotMinutes := 30
	if raw := strings.TrimSpace(r.URL.Query().Get("slot_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 24*60 {
			http.Error(w, "invalid slot_minutes", http.StatusBadRequest)
			return
		}
		slotMinutes = n
	}

	slots, err := h.svc.GetFreeSlots(r.Context(), businessID, from, to, slotMinutes)
	if err != nil {
		if errors.Is(err, booking.ErrInvalidSlotDuration) {
			http.Error(w, "invalid slot_minutes", http.StatusBadRequest)
			return
		}
		h.logger.Error("slots query failed", "err", err, "business_id", businessID)
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.End.UTC().Format(time.RFC3339),
			Free:      s.Free,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type createAppointmentRequest struct {
	ServiceID string `json:"service_id"`
	AccountID string `json:"account_id"`
	StartTime string `json:"start_time"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.AccountID = strings.TrimSpace(req.AccountID)
	if req.ServiceID == "" || req.AccountID == "" {
		http.Error(w, "service_id and account_id required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.CreateAppointment(r.Context(), req.ServiceID, req.AccountID, start)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrServiceNotFound):
			http.Error(w, "service not found", http.StatusNotFound)
		case errors.Is(err, booking.ErrSchedulingConflict):
			http.Error(w, "time slot already booked", http.StatusConflict)
		default:
			h.logger.Error("create appointment failed", "err", err, "service_id", req.ServiceID)
			http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, appointmentToResponse(appt))
}

type rescheduleRequest struct {
	AppointmentID string  `json:"appointment_id"`
	NewStartTime  *string `json:"new_start_time"`
	NewServiceID  *string `json:"new_service_id"`
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	if !h.authorizeAppointment(w, r, req.AppointmentID) {
		return
	}

	var patch booking.AppointmentPatch
	if req.NewStartTime != nil {
		start, err := time.Parse(time.RFC3339, *req.NewStartTime)
		if err != nil {
			http.Error(w, "invalid new_start_time", http.StatusBadRequest)
			return
		}
		patch.NewStartTime = &start
	}
	if req.NewServiceID != nil {
		id := strings.TrimSpace(*req.NewServiceID)
		if id == "" {
			http.Error(w, "invalid new_service_id", http.StatusBadRequest)
			return
		}
		patch.NewServiceID = &id
	}

	appt, err := h.svc.UpdateAppointment(r.Context(), req.AppointmentID, patch)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrEmptyPatch):
			http.Error(w, "no fields to update", http.StatusBadRequest)
		case errors.Is(err, booking.ErrAppointmentNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, booking.ErrServiceNotFound):
			http.Error(w, "service not found", http.StatusNotFound)
		case errors.Is(err, booking.ErrNotActive):
			http.Error(w, "appointment is not active", http.StatusConflict)
		case errors.Is(err, booking.ErrSchedulingConflict):
			http.Error(w, "time slot already booked", http.StatusConflict)
		default:
			h.logger.Error("reschedule failed", "err", err, "appointment_id", req.AppointmentID)
			http.Error(w, "failed to reschedule appointment", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, appointmentToResponse(appt))
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	if !h.authorizeAppointment(w, r, req.AppointmentID) {
		return
	}

	appt, err := h.svc.CancelAppointment(r.Context(), req.AppointmentID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrAppointmentNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, booking.ErrNotActive):
			http.Error(w, "appointment cannot be cancelled", http.StatusConflict)
		default:
			h.logger.Error("cancel failed", "err", err, "appointment_id", req.AppointmentID)
			http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, appointmentToResponse(appt))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.lister.ListByBusiness(r.Context(), claims.BusinessID, limit)
	if err != nil {
		h.logger.Error("list appointments failed", "err", err, "business_id", claims.BusinessID)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentResponse, 0, len(appts))
	for _, appt := range appts {
		items = append(items, appointmentToResponse(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

// authorizeAppointment checks that the appointment belongs to the caller's
// business. Not-found and forbidden both answer 404 so ids cannot be probed.
func (h *BookingHandler) authorizeAppointment(w http.ResponseWriter, r *http.Request, appointmentID string) bool {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}

	appt, err := h.svc.GetAppointment(r.Context(), appointmentID)
	if err != nil {
		if errors.Is(err, booking.ErrAppointmentNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return false
		}
		h.logger.Error("load appointment failed", "err", err, "appointment_id", appointmentID)
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return false
	}
	if appt.BusinessID != claims.BusinessID {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return false
	}
	return true
}
