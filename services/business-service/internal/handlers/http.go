package handlers

import (
	"encoding/json"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/bookable-app/bookable/libs/blob"
	"github.com/bookable-app/bookable/services/business-service/internal/storage"
	"github.com/google/uuid"
)

const maxLogoBytes = 5 << 20

type Handler struct {
	repo  *storage.Repository
	logos blob.Store
}

func New(repo *storage.Repository, logos blob.Store) *Handler {
	return &Handler{repo: repo, logos: logos}
}

func businessIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Business-Id"))
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetOrCreateProfile(r.Context(), businessID)
	if err != nil {
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"business_id": p.BusinessID,
		"name":        p.Name,
		"category":    p.Category,
		"address":     p.Address,
		"phone":       p.Phone,
		"timezone":    p.Timezone,
		"logo_url":    p.LogoURL,
	})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		Name     string `json:"name"`
		Category string `json:"category"`
		Address  string `json:"address"`
		Phone    string `json:"phone"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Timezone = strings.TrimSpace(req.Timezone)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	err := h.repo.UpdateProfile(r.Context(), storage.BusinessProfile{
		BusinessID: businessID,
		Name:       req.Name,
		Category:   strings.TrimSpace(req.Category),
		Address:    strings.TrimSpace(req.Address),
		Phone:      strings.TrimSpace(req.Phone),
		Timezone:   req.Timezone,
	})
	if err != nil {
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteBusiness(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteBusiness(r.Context(), businessID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete business", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var logoContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// UploadLogo stores the image and records its public URL on the profile. If
// the profile update fails the stored object is orphaned; the next successful
// upload overwrites it.
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes)
	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		http.Error(w, "logo file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(path.Ext(header.Filename))
	contentType, ok := logoContentTypes[ext]
	if !ok {
		http.Error(w, "unsupported image type", http.StatusUnprocessableEntity)
		return
	}

	url, err := h.logos.Put(r.Context(), "logos/"+businessID+ext, contentType, file)
	if err != nil {
		http.Error(w, "failed to store logo", http.StatusInternalServerError)
		return
	}
	if err := h.repo.UpdateLogoURL(r.Context(), businessID, url); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"logo_url": url})
}

func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		Name   string `json:"name"`
		Email  string `json:"email"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.UserID != "" {
		if _, err := uuid.Parse(req.UserID); err != nil {
			http.Error(w, "user_id must be a uuid", http.StatusBadRequest)
			return
		}
	}

	id, err := h.repo.CreateStaff(r.Context(), businessID, req.UserID, req.Name, strings.TrimSpace(req.Email))
	if err != nil {
		http.Error(w, "failed to create staff", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
}

func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	staff, err := h.repo.ListStaff(r.Context(), businessID, 100)
	if err != nil {
		http.Error(w, "failed to list staff", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(staff))
	for _, s := range staff {
		out = append(out, map[string]any{
			"id":        s.ID,
			"name":      s.Name,
			"email":     s.Email,
			"is_active": s.IsActive,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) SetStaffActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		StaffID  string `json:"staff_id"`
		IsActive bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.StaffID == "" {
		http.Error(w, "staff_id is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.SetStaffActive(r.Context(), businessID, req.StaffID, req.IsActive); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "staff not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update staff", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// teamSelection is either the whole team or an explicit list of staff ids.
// The wire form is "all" or a JSON array.
type teamSelection struct {
	All      bool
	StaffIDs []string
}

func parseTeamSelection(raw json.RawMessage) (teamSelection, string) {
	if len(raw) == 0 {
		return teamSelection{All: true}, ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "all" {
			return teamSelection{All: true}, ""
		}
		return teamSelection{}, `team must be "all" or a list of staff ids`
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return teamSelection{}, `team must be "all" or a list of staff ids`
	}
	if len(ids) == 0 {
		return teamSelection{}, "team list must not be empty"
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return teamSelection{}, "team list must contain staff uuids"
		}
	}
	return teamSelection{StaffIDs: ids}, ""
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		Name         string          `json:"name"`
		Description  string          `json:"description"`
		DurationMins int             `json:"duration_minutes"`
		Price        float64         `json:"price"`
		Team         json.RawMessage `json:"team"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DurationMins <= 0 {
		http.Error(w, "name and duration_minutes required", http.StatusBadRequest)
		return
	}
	team, msg := parseTeamSelection(req.Team)
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	id, err := h.repo.CreateService(r.Context(), storage.BusinessService{
		BusinessID:   businessID,
		Name:         req.Name,
		Description:  strings.TrimSpace(req.Description),
		DurationMins: req.DurationMins,
		Price:        strconv.FormatFloat(req.Price, 'f', 2, 64),
		TeamAll:      team.All,
		StaffIDs:     team.StaffIDs,
	})
	if err != nil {
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}

	services, err := h.repo.ListServices(r.Context(), businessID, 100)
	if err != nil {
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(services))
	for _, s := range services {
		var team any = "all"
		if !s.TeamAll {
			team = s.StaffIDs
		}
		out = append(out, map[string]any{
			"id":               s.ID,
			"name":             s.Name,
			"description":      s.Description,
			"duration_minutes": s.DurationMins,
			"price":            s.Price,
			"team":             team,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
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
	if err := h.repo.DeleteService(r.Context(), businessID, id); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete service", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
