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

// Catalog is the management-plane surface over the catalog store.
type Catalog interface {
	CreateBusiness(ctx context.Context, name, timezone, managementKey string) (model.Business, error)
	CreateService(ctx context.Context, businessID, name string, durationMinutes int, price string) (model.Service, error)
	ListServices(ctx context.Context, businessID string, limit int) ([]model.Service, error)
	GetBusinessHours(ctx context.Context, businessID string) ([]schedule.DayHours, error)
	ReplaceBusinessHours(ctx context.Context, businessID string, week []schedule.DayHours) error
}

type BusinessHandler struct {
	catalog Catalog
	logger  *slog.Logger
}

func NewBusinessHandler(catalog Catalog, logger *slog.Logger) *BusinessHandler {
	return &BusinessHandler{catalog: catalog, logger: logger}
}

type createBusinessRequest struct {
	Name          string `json:"name"`
	Timezone      string `json:"timezone"`
	ManagementKey string `json:"management_key"`
}

type createBusinessResponse struct {
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Timezone   string `json:"timezone"`
}

func (h *BusinessHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Timezone = strings.TrimSpace(req.Timezone)
	req.ManagementKey = strings.TrimSpace(req.ManagementKey)
	if req.Name == "" || req.ManagementKey == "" {
		http.Error(w, "name and management_key required", http.StatusBadRequest)
		return
	}
	if len(req.ManagementKey) < 12 {
		http.Error(w, "management_key must be at least 12 characters", http.StatusBadRequest)
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}

	b, err := h.catalog.CreateBusiness(r.Context(), req.Name, req.Timezone, req.ManagementKey)
	if err != nil {
		h.logger.Error("create business failed", "err", err)
		http.Error(w, "failed to create business", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, createBusinessResponse{
		BusinessID: b.ID,
		Name:       b.Name,
		Timezone:   b.Timezone,
	})
}

type createServiceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
}

type serviceItem struct {
	ServiceID       string `json:"service_id"`
	BusinessID      string `json:"business_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
}

func (h *BusinessHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > 24*60 {
		http.Error(w, "duration_minutes must be between 1 and 1440", http.StatusBadRequest)
		return
	}
	if req.Price == "" {
		req.Price = "0"
	}

	svc, err := h.catalog.CreateService(r.Context(), claims.BusinessID, req.Name, req.DurationMinutes, req.Price)
	if err != nil {
		h.logger.Error("create service failed", "err", err, "business_id", claims.BusinessID)
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, serviceItem{
		ServiceID:       svc.ID,
		BusinessID:      svc.BusinessID,
		Name:            svc.Name,
		DurationMinutes: svc.DurationMinutes,
		Price:           svc.Price,
	})
}

func (h *BusinessHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}

	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	services, err := h.catalog.ListServices(r.Context(), businessID, limit)
	if err != nil {
		if errors.Is(err, booking.ErrServiceNotFound) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		h.logger.Error("list services failed", "err", err, "business_id", businessID)
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}

	items := make([]serviceItem, 0, len(services))
	for _, svc := range services {
		items = append(items, serviceItem{
			ServiceID:       svc.ID,
			BusinessID:      svc.BusinessID,
			Name:            svc.Name,
			DurationMinutes: svc.DurationMinutes,
			Price:           svc.Price,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type dayHoursItem struct {
	Weekday int    `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
	Closed  bool   `json:"closed"`
}

// Hours serves the weekly configuration on GET and replaces it wholesale on
// PUT. GET is public; PUT requires an owner token.
func (h *BusinessHandler) Hours(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getHours(w, r)
	case http.MethodPut:
		h.putHours(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BusinessHandler) getHours(w http.ResponseWriter, r *http.Request) {
	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			http.Error(w, "business_id required", http.StatusBadRequest)
			return
		}
		businessID = claims.BusinessID
	}

	week, err := h.catalog.GetBusinessHours(r.Context(), businessID)
	if err != nil {
		h.logger.Error("get hours failed", "err", err, "business_id", businessID)
		http.Error(w, "failed to load hours", http.StatusInternalServerError)
		return
	}

	items := make([]dayHoursItem, 0, len(week))
	for _, d := range week {
		items = append(items, dayHoursItem{Weekday: d.Weekday, Open: d.Open, Close: d.Close, Closed: d.Closed})
	}
	writeJSON(w, http.StatusOK, items)
}

type putHoursRequest struct {
	Hours []dayHoursItem `json:"hours"`
}

func (h *BusinessHandler) putHours(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req putHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	week := make([]schedule.DayHours, 0, len(req.Hours))
	for _, d := range req.Hours {
		week = append(week, schedule.DayHours{
			Weekday: d.Weekday,
			Open:    strings.TrimSpace(d.Open),
			Close:   strings.TrimSpace(d.Close),
			Closed:  d.Closed,
		})
	}
	if err := schedule.ValidateWeek(week); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.catalog.ReplaceBusinessHours(r.Context(), claims.BusinessID, week); err != nil {
		h.logger.Error("replace hours failed", "err", err, "business_id", claims.BusinessID)
		http.Error(w, "failed to update hours", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"days": len(week)})
}
