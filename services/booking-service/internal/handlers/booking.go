package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bookable-app/bookable/services/booking-service/internal/availability"
	"github.com/bookable-app/bookable/services/booking-service/internal/model"
	"github.com/bookable-app/bookable/services/booking-service/internal/outbox"
	"github.com/bookable-app/bookable/services/booking-service/internal/schedule"
	"github.com/bookable-app/bookable/services/booking-service/internal/storage"
	"github.com/jackc/pgx/v5"
)

const slotStepMinutes = 15

type BookingHandler struct {
	repo       *storage.BookingRepository
	outboxRepo *outbox.Repository
	sched      *schedule.Reader
	logger     *slog.Logger
}

func NewBookingHandler(repo *storage.BookingRepository, outboxRepo *outbox.Repository, sched *schedule.Reader, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		sched:      sched,
		logger:     logger,
	}
}

type createBookingRequest struct {
	BusinessID    string `json:"business_id"`
	ServiceID     string `json:"service_id"`
	StaffID       string `json:"staff_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	StartTime     string `json:"start_time"`
}

type bookingResponse struct {
	AppointmentID string            `json:"appointment_id"`
	ServiceName   string            `json:"service_name"`
	StartTime     string            `json:"start_time"`
	EndTime       string            `json:"end_time"`
	Status        string            `json:"status"`
	Team          []teamMemberBrief `json:"team"`
}

type teamMemberBrief struct {
	StaffID string `json:"staff_id"`
	Name    string `json:"name"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)

	if req.BusinessID == "" || req.ServiceID == "" || req.CustomerName == "" ||
		req.CustomerEmail == "" || req.CustomerPhone == "" || req.StartTime == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	svc, err := h.sched.GetService(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}
	endTime := startTime.Add(time.Duration(svc.DurationMins) * time.Minute)

	team, err := h.resolveTeam(ctx, svc, req.StaffID)
	if err != nil {
		http.Error(w, "failed to resolve team", http.StatusInternalServerError)
		return
	}
	if len(team) == 0 {
		http.Error(w, "no team members available for this service", http.StatusUnprocessableEntity)
		return
	}

	ok, err := h.withinAvailability(ctx, req.BusinessID, team, startTime, endTime)
	if err != nil {
		http.Error(w, "failed to check availability", http.StatusInternalServerError)
		return
	}

	appt := &model.Appointment{
		BusinessID:    req.BusinessID,
		ServiceID:     svc.ID,
		ServiceName:   svc.Name,
		DurationMins:  svc.DurationMins,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		StartTime:     startTime.UTC(),
		EndTime:       endTime.UTC(),
		Status:        "booked",
	}
	for _, m := range team {
		appt.Staff = append(appt.Staff, model.StaffAssignment{StaffID: m.ID, DisplayName: m.Name})
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, appt.BusinessID, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if exists && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	if !ok {
		if idempotencyKey != "" {
			if h.finalizeIdempotencyError(ctx, tx, appt.BusinessID, idempotencyKey, http.StatusUnprocessableEntity, "requested time is outside team availability") {
				_ = tx.Commit(ctx)
				return
			}
		}
		http.Error(w, "requested time is outside team availability", http.StatusUnprocessableEntity)
		return
	}

	id, err := h.repo.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}
	appt.ID = id

	if err := h.insertBookingEvent(ctx, tx, "booking.appointment.booked.v1", appt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	respBody, err := json.Marshal(h.buildResponse(appt))
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, appt.BusinessID, idempotencyKey, id, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

// Cancel deletes the appointment outright. The freed slots become bookable
// the moment the transaction commits, and a later cancel of the same id is a
// plain 404.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		BusinessID    string `json:"business_id"`
		AppointmentID string `json:"appointment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.BusinessID == "" || req.AppointmentID == "" {
		http.Error(w, "business_id and appointment_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, req.BusinessID, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	if err := h.repo.Delete(ctx, tx, req.BusinessID, appt.ID); err != nil {
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}
	if err := h.insertBookingEvent(ctx, tx, "booking.appointment.cancelled.v1", &appt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"appointment_id": appt.ID,
		"status":         "cancelled",
	})
}

// Reschedule overwrites an appointment's time, service, or team assignment.
// A new start keeps the (possibly new) service's duration; swapping the
// service or staff re-snapshots names and durations at reschedule time. The
// exclusion constraint re-checks the slot for every member that ends up
// assigned.
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		BusinessID    string `json:"business_id"`
		AppointmentID string `json:"appointment_id"`
		StartTime     string `json:"start_time"`
		ServiceID     string `json:"service_id"`
		StaffID       string `json:"staff_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	if req.BusinessID == "" || req.AppointmentID == "" {
		http.Error(w, "business_id and appointment_id required", http.StatusBadRequest)
		return
	}
	if req.StartTime == "" && req.ServiceID == "" && req.StaffID == "" {
		http.Error(w, "nothing to change: provide start_time, service_id, or staff_id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, req.BusinessID, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}

	startTime := appt.StartTime
	if req.StartTime != "" {
		startTime, err = time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			http.Error(w, "invalid start_time", http.StatusBadRequest)
			return
		}
	}

	// Re-resolve service and team only when asked to change them; otherwise
	// the booking-time snapshots stand.
	if req.ServiceID != "" || req.StaffID != "" {
		serviceID := appt.ServiceID
		if req.ServiceID != "" {
			serviceID = req.ServiceID
		}
		svc, err := h.sched.GetService(ctx, appt.BusinessID, serviceID)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "service not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load service", http.StatusInternalServerError)
			return
		}
		team, err := h.resolveTeam(ctx, svc, req.StaffID)
		if err != nil {
			http.Error(w, "failed to resolve team", http.StatusInternalServerError)
			return
		}
		if len(team) == 0 {
			http.Error(w, "no team members available for this service", http.StatusUnprocessableEntity)
			return
		}
		appt.ServiceID = svc.ID
		appt.ServiceName = svc.Name
		appt.DurationMins = svc.DurationMins
		appt.Staff = appt.Staff[:0]
		for _, m := range team {
			appt.Staff = append(appt.Staff, model.StaffAssignment{StaffID: m.ID, DisplayName: m.Name})
		}
	}

	endTime := startTime.Add(time.Duration(appt.DurationMins) * time.Minute)
	members := make([]schedule.StaffInfo, 0, len(appt.Staff))
	for _, s := range appt.Staff {
		members = append(members, schedule.StaffInfo{ID: s.StaffID, Name: s.DisplayName})
	}
	ok, err := h.withinAvailability(ctx, appt.BusinessID, members, startTime, endTime)
	if err != nil {
		http.Error(w, "failed to check availability", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "requested time is outside team availability", http.StatusUnprocessableEntity)
		return
	}

	appt.StartTime = startTime.UTC()
	appt.EndTime = endTime.UTC()
	if err := h.repo.Reassign(ctx, tx, &appt); err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to reschedule appointment", http.StatusInternalServerError)
		return
	}

	if err := h.insertBookingEvent(ctx, tx, "booking.appointment.rescheduled.v1", &appt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.buildResponse(&appt))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.Header.Get("X-Business-Id"))
	if businessID == "" {
		businessID = strings.TrimSpace(r.URL.Query().Get("business_id"))
	}
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	var appts []model.Appointment
	var err error
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	customerEmail := strings.TrimSpace(r.URL.Query().Get("customer_email"))
	switch {
	case staffID != "":
		appts, err = h.repo.ListByStaff(r.Context(), businessID, staffID, limit)
	case customerEmail != "":
		appts, err = h.repo.ListByCustomer(r.Context(), businessID, customerEmail, limit)
	default:
		appts, err = h.repo.ListByBusiness(r.Context(), businessID, limit)
	}
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]map[string]any, 0, len(appts))
	for i := range appts {
		a := &appts[i]
		team := make([]teamMemberBrief, 0, len(a.Staff))
		for _, s := range a.Staff {
			team = append(team, teamMemberBrief{StaffID: s.StaffID, Name: s.DisplayName})
		}
		items = append(items, map[string]any{
			"appointment_id": a.ID,
			"service_id":     a.ServiceID,
			"service_name":   a.ServiceName,
			"customer_name":  a.CustomerName,
			"customer_email": a.CustomerEmail,
			"start_time":     a.StartTime.UTC().Format(time.RFC3339),
			"end_time":       a.EndTime.UTC().Format(time.RFC3339),
			"status":         a.Status,
			"team":           team,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

// Slots returns the start times still open for a service on one date. For a
// whole-team service a slot is open only when every member is free.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if businessID == "" || serviceID == "" || dateStr == "" {
		http.Error(w, "business_id, service_id, and date are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	svc, err := h.sched.GetService(ctx, businessID, serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}

	team, err := h.resolveTeam(ctx, svc, staffID)
	if err != nil {
		http.Error(w, "failed to resolve team", http.StatusInternalServerError)
		return
	}

	loc, err := h.sched.Timezone(ctx, businessID)
	if err != nil {
		http.Error(w, "failed to load business timezone", http.StatusInternalServerError)
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	windows, busy, err := h.teamWindows(ctx, businessID, team, day, loc)
	if err != nil {
		http.Error(w, "failed to resolve availability", http.StatusInternalServerError)
		return
	}

	duration := time.Duration(svc.DurationMins) * time.Minute
	var resp []map[string]string
	for _, win := range windows {
		for _, s := range availability.AvailableSlots(win.Start, win.End, duration, slotStepMinutes*time.Minute, busy, time.Now()) {
			resp = append(resp, map[string]string{
				"start_time": s.UTC().Format(time.RFC3339),
				"end_time":   s.Add(duration).UTC().Format(time.RFC3339),
			})
		}
	}
	if resp == nil {
		resp = []map[string]string{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// resolveTeam turns the service's team selection into concrete assignments.
// A requested staff_id narrows a selection to that member, provided the
// member is eligible for the service.
func (h *BookingHandler) resolveTeam(ctx context.Context, svc schedule.ServiceInfo, staffID string) ([]schedule.StaffInfo, error) {
	eligible, err := h.sched.EligibleStaff(ctx, svc)
	if err != nil {
		return nil, err
	}
	if staffID == "" {
		return eligible, nil
	}
	for _, m := range eligible {
		if m.ID == staffID {
			return []schedule.StaffInfo{m}, nil
		}
	}
	return nil, nil
}

// withinAvailability checks that [start, end) fits inside every assigned
// member's resolved windows for that day.
func (h *BookingHandler) withinAvailability(ctx context.Context, businessID string, team []schedule.StaffInfo, start, end time.Time) (bool, error) {
	loc, err := h.sched.Timezone(ctx, businessID)
	if err != nil {
		return false, err
	}
	for _, m := range team {
		windows, err := h.sched.DayWindows(ctx, businessID, m.ID, start, loc)
		if err != nil {
			return false, err
		}
		if !availability.ContainedInAny(start, end, windows) {
			return false, nil
		}
	}
	return true, nil
}

// teamWindows resolves the joint bookable windows (intersection across the
// team) and the union of everyone's booked intervals for the day.
func (h *BookingHandler) teamWindows(ctx context.Context, businessID string, team []schedule.StaffInfo, day time.Time, loc *time.Location) ([]availability.Interval, []availability.Interval, error) {
	if len(team) == 0 {
		return nil, nil, nil
	}

	var windows []availability.Interval
	var busy []availability.Interval
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	for i, m := range team {
		wins, err := h.sched.DayWindows(ctx, businessID, m.ID, day, loc)
		if err != nil {
			return nil, nil, err
		}
		if len(wins) == 0 {
			return nil, nil, nil
		}
		if i == 0 {
			windows = wins
		} else {
			windows = availability.IntersectWindows(windows, wins)
		}

		booked, err := h.repo.ListBookedIntervals(ctx, m.ID, dayStart, dayEnd)
		if err != nil {
			return nil, nil, err
		}
		busy = append(busy, booked...)
	}
	return windows, busy, nil
}

func (h *BookingHandler) buildResponse(appt *model.Appointment) bookingResponse {
	team := make([]teamMemberBrief, 0, len(appt.Staff))
	for _, s := range appt.Staff {
		team = append(team, teamMemberBrief{StaffID: s.StaffID, Name: s.DisplayName})
	}
	return bookingResponse{
		AppointmentID: appt.ID,
		ServiceName:   appt.ServiceName,
		StartTime:     appt.StartTime.UTC().Format(time.RFC3339),
		EndTime:       appt.EndTime.UTC().Format(time.RFC3339),
		Status:        appt.Status,
		Team:          team,
	}
}

func (h *BookingHandler) insertBookingEvent(ctx context.Context, tx pgx.Tx, eventType string, appt *model.Appointment) error {
	staffNames := make([]string, 0, len(appt.Staff))
	staffIDs := make([]string, 0, len(appt.Staff))
	for _, s := range appt.Staff {
		staffNames = append(staffNames, s.DisplayName)
		staffIDs = append(staffIDs, s.StaffID)
	}
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"business_id":    appt.BusinessID,
		"service_id":     appt.ServiceID,
		"service_name":   appt.ServiceName,
		"customer_name":  appt.CustomerName,
		"customer_email": appt.CustomerEmail,
		"customer_phone": appt.CustomerPhone,
		"staff_ids":      staffIDs,
		"staff_names":    staffNames,
		"start_time":     appt.StartTime.UTC().Format(time.RFC3339),
		"end_time":       appt.EndTime.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

func (h *BookingHandler) finalizeIdempotencyError(ctx context.Context, tx pgx.Tx, businessID, key string, statusCode int, msg string) bool {
	body, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return false
	}
	if err := h.repo.FinalizeIdempotency(ctx, tx, businessID, key, "", statusCode, body); err != nil {
		h.logger.Error("failed to finalize idempotency (error)", "err", err)
		return false
	}
	return true
}
