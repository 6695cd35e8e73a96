package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bookable-app/bookable/services/business-service/internal/availability"
	"github.com/bookable-app/bookable/services/business-service/internal/storage"
)

func (h *Handler) ListBusinessHours(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	hours, err := h.repo.ListBusinessHours(r.Context(), businessID)
	if err != nil {
		http.Error(w, "failed to list business hours", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(hours))
	for _, bh := range hours {
		out = append(out, map[string]any{
			"weekday": bh.Weekday,
			"is_open": bh.IsOpen,
			"start":   availability.FormatClock(bh.StartMinute),
			"end":     availability.FormatClock(bh.EndMinute),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) UpsertBusinessHours(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		Weekday int    `json:"weekday"`
		IsOpen  bool   `json:"is_open"`
		Start   string `json:"start"`
		End     string `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		http.Error(w, "weekday must be between 0 and 6", http.StatusBadRequest)
		return
	}

	bh := storage.BusinessHours{Weekday: req.Weekday, IsOpen: req.IsOpen}
	if req.IsOpen {
		var err error
		if bh.StartMinute, err = availability.ParseClock(req.Start); err != nil {
			http.Error(w, "invalid start", http.StatusBadRequest)
			return
		}
		if bh.EndMinute, err = availability.ParseClock(req.End); err != nil {
			http.Error(w, "invalid end", http.StatusBadRequest)
			return
		}
		if bh.EndMinute <= bh.StartMinute {
			http.Error(w, "end must be after start", http.StatusUnprocessableEntity)
			return
		}
	}

	if err := h.repo.UpsertBusinessHours(r.Context(), businessID, bh); err != nil {
		http.Error(w, "failed to update business hours", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSchedule returns a team member's full weekly picture: day status, working
// hours, and breaks, keyed by weekday.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	if staffID == "" {
		http.Error(w, "staff_id is required", http.StatusBadRequest)
		return
	}
	if _, err := h.repo.GetStaff(r.Context(), businessID, staffID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "staff not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load staff", http.StatusInternalServerError)
		return
	}

	hours, err := h.repo.ListWorkingHours(r.Context(), businessID, staffID)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	hoursByDay := make(map[int]storage.WorkingHours, len(hours))
	for _, wh := range hours {
		hoursByDay[wh.Weekday] = wh
	}

	days := make([]map[string]any, 0, 7)
	for wd := 0; wd <= 6; wd++ {
		status, err := h.repo.GetDayStatus(r.Context(), businessID, staffID, wd)
		if err != nil {
			http.Error(w, "failed to load schedule", http.StatusInternalServerError)
			return
		}
		breaks, err := h.repo.ListBreaks(r.Context(), businessID, staffID, wd)
		if err != nil {
			http.Error(w, "failed to load schedule", http.StatusInternalServerError)
			return
		}

		day := map[string]any{
			"weekday": wd,
			"status":  status,
		}
		if wh, ok := hoursByDay[wd]; ok {
			day["start"] = availability.FormatClock(wh.StartMinute)
			day["end"] = availability.FormatClock(wh.EndMinute)
		}
		bs := make([]map[string]any, 0, len(breaks))
		for _, b := range breaks {
			bs = append(bs, map[string]any{
				"id":    b.ID,
				"start": availability.FormatClock(b.StartMinute),
				"end":   availability.FormatClock(b.EndMinute),
			})
		}
		day["breaks"] = bs
		days = append(days, day)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"staff_id": staffID,
		"days":     days,
	})
}

// SetDayStatus handles the three day-status actions: "set" marks the day with
// an explicit status, "toggle" flips it (an unset day becomes Available), and
// "clear" returns it to unset.
func (h *Handler) SetDayStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		StaffID string `json:"staff_id"`
		Weekday int    `json:"weekday"`
		Action  string `json:"action"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.StaffID == "" || req.Weekday < 0 || req.Weekday > 6 {
		http.Error(w, "staff_id and weekday (0-6) are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var next availability.Status
	switch req.Action {
	case "set":
		switch availability.Status(req.Status) {
		case availability.StatusAvailable, availability.StatusNotAvailable:
			next = availability.Status(req.Status)
		case availability.StatusUnset:
			next = availability.StatusAvailable
		default:
			http.Error(w, "status must be Available or NotAvailable", http.StatusBadRequest)
			return
		}
	case "toggle":
		current, err := h.repo.GetDayStatus(ctx, businessID, req.StaffID, req.Weekday)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "staff not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load day status", http.StatusInternalServerError)
			return
		}
		next = availability.Toggle(availability.Status(current))
	case "clear":
		if err := h.repo.ClearDayStatus(ctx, businessID, req.StaffID, req.Weekday); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "staff not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to clear day status", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": ""})
		return
	default:
		http.Error(w, "action must be set, toggle, or clear", http.StatusBadRequest)
		return
	}

	if err := h.repo.SetDayStatus(ctx, businessID, req.StaffID, req.Weekday, string(next)); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "staff not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to set day status", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": string(next)})
}

func (h *Handler) ListWorkingHours(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	if staffID == "" {
		http.Error(w, "staff_id is required", http.StatusBadRequest)
		return
	}

	hours, err := h.repo.ListWorkingHours(r.Context(), businessID, staffID)
	if err != nil {
		http.Error(w, "failed to list working hours", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(hours))
	for _, wh := range hours {
		out = append(out, map[string]any{
			"weekday": wh.Weekday,
			"start":   availability.FormatClock(wh.StartMinute),
			"end":     availability.FormatClock(wh.EndMinute),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// UpsertWorkingHours validates the requested hours against the business
// window for that weekday before saving.
func (h *Handler) UpsertWorkingHours(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		StaffID string `json:"staff_id"`
		Weekday int    `json:"weekday"`
		Start   string `json:"start"`
		End     string `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.StaffID == "" || req.Weekday < 0 || req.Weekday > 6 {
		http.Error(w, "staff_id and weekday (0-6) are required", http.StatusBadRequest)
		return
	}

	start, err := availability.ParseClock(req.Start)
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	end, err := availability.ParseClock(req.End)
	if err != nil {
		http.Error(w, "invalid end", http.StatusBadRequest)
		return
	}

	bh, err := h.repo.GetBusinessHours(r.Context(), businessID, req.Weekday)
	if err != nil {
		http.Error(w, "failed to load business hours", http.StatusInternalServerError)
		return
	}
	if !bh.IsOpen {
		http.Error(w, "business is closed on this day", http.StatusUnprocessableEntity)
		return
	}
	window := availability.Window{Start: bh.StartMinute, End: bh.EndMinute}
	if err := availability.ValidateWorkingHours(window, availability.Window{Start: start, End: end}); err != nil {
		if errors.Is(err, availability.ErrOutsideBusinessHours) {
			http.Error(w, "working hours must be within business hours ("+
				availability.FormatClock(bh.StartMinute)+"-"+availability.FormatClock(bh.EndMinute)+")",
				http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	err = h.repo.UpsertWorkingHours(r.Context(), businessID, storage.WorkingHours{
		StaffID:     req.StaffID,
		Weekday:     req.Weekday,
		StartMinute: start,
		EndMinute:   end,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "staff not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update working hours", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListBreaks(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	weekday, err := weekdayParam(r)
	if staffID == "" || err != nil {
		http.Error(w, "staff_id and weekday (0-6) are required", http.StatusBadRequest)
		return
	}

	breaks, err := h.repo.ListBreaks(r.Context(), businessID, staffID, weekday)
	if err != nil {
		http.Error(w, "failed to list breaks", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(breaks))
	for _, b := range breaks {
		out = append(out, map[string]any{
			"id":    b.ID,
			"start": availability.FormatClock(b.StartMinute),
			"end":   availability.FormatClock(b.EndMinute),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// AddBreak rejects a break that overlaps an existing one on the same day.
// Touching endpoints are allowed.
func (h *Handler) AddBreak(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		StaffID string `json:"staff_id"`
		Weekday int    `json:"weekday"`
		Start   string `json:"start"`
		End     string `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.StaffID == "" || req.Weekday < 0 || req.Weekday > 6 {
		http.Error(w, "staff_id and weekday (0-6) are required", http.StatusBadRequest)
		return
	}
	start, err := availability.ParseClock(req.Start)
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	end, err := availability.ParseClock(req.End)
	if err != nil {
		http.Error(w, "invalid end", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.ListBreaks(r.Context(), businessID, req.StaffID, req.Weekday)
	if err != nil {
		http.Error(w, "failed to load breaks", http.StatusInternalServerError)
		return
	}
	current := make([]availability.Break, 0, len(existing))
	for _, b := range existing {
		current = append(current, availability.Break{ID: b.ID, Start: b.StartMinute, End: b.EndMinute})
	}
	if err := availability.ValidateNewBreak(current, availability.Break{Start: start, End: end}); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	id, err := h.repo.AddBreak(r.Context(), businessID, storage.Break{
		StaffID:     req.StaffID,
		Weekday:     req.Weekday,
		StartMinute: start,
		EndMinute:   end,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "staff not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to add break", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
}

func (h *Handler) DeleteBreak(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteBreak(r.Context(), businessID, id); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "break not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete break", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var errInvalidWeekday = errors.New("weekday must be between 0 and 6")

func weekdayParam(r *http.Request) (int, error) {
	wd, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("weekday")))
	if err != nil || wd < 0 || wd > 6 {
		return 0, errInvalidWeekday
	}
	return wd, nil
}
