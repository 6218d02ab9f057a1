package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

// campaignRequest is the JSON body for creating a campaign. Delay is in
// seconds, scheduled_date is "2006-01-02".
type campaignRequest struct {
	Name            string `json:"name"`
	Subject         string `json:"subject"`
	HTMLTemplate    string `json:"html_template"`
	DailyLimit      int    `json:"daily_limit"`
	SendDelaySec    int    `json:"send_delay_seconds"`
	ScheduleEnabled bool   `json:"schedule_enabled"`
	ScheduleTime    string `json:"schedule_time"`
	ScheduledDate   string `json:"scheduled_date"`
}

type campaignResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Subject         string `json:"subject"`
	HTMLTemplate    string `json:"html_template"`
	Status          string `json:"status"`
	DailyLimit      int    `json:"daily_limit"`
	SendDelaySec    int    `json:"send_delay_seconds"`
	ScheduleEnabled bool   `json:"schedule_enabled"`
	ScheduleTime    string `json:"schedule_time"`
	ScheduledDate   string `json:"scheduled_date,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toCampaignResponse(c domain.Campaign) campaignResponse {
	resp := campaignResponse{
		ID:              c.ID.String(),
		Name:            c.Name,
		Subject:         c.Subject,
		HTMLTemplate:    c.HTMLTemplate,
		Status:          string(c.Status),
		DailyLimit:      c.DailyLimit,
		SendDelaySec:    int(c.SendDelay.Seconds()),
		ScheduleEnabled: c.ScheduleEnabled,
		ScheduleTime:    c.ScheduleTime,
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
	}
	if c.ScheduledDate != nil {
		resp.ScheduledDate = c.ScheduledDate.Format("2006-01-02")
	}
	return resp
}

func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	in := port.CreateCampaignInput{
		Name:            req.Name,
		Subject:         req.Subject,
		HTMLTemplate:    req.HTMLTemplate,
		DailyLimit:      req.DailyLimit,
		SendDelay:       time.Duration(req.SendDelaySec) * time.Second,
		ScheduleEnabled: req.ScheduleEnabled,
		ScheduleTime:    req.ScheduleTime,
	}
	if req.ScheduledDate != "" {
		d, err := time.ParseInLocation("2006-01-02", req.ScheduledDate, time.Local)
		if err != nil {
			http.Error(w, "invalid scheduled_date", http.StatusBadRequest)
			return
		}
		in.ScheduledDate = &d
	}
	c, err := h.svc.CreateCampaign(r.Context(), in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusCreated, toCampaignResponse(*c))
}

func (h *Handler) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.svc.ListCampaigns(r.Context())
	if err != nil {
		h.internalError(w, "list campaigns", err)
		return
	}
	out := make([]campaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toCampaignResponse(c))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetCampaign(r.Context(), id)
	if err != nil {
		h.campaignError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toCampaignResponse(*c))
}

// handleUpdateCampaign replaces the editable fields of a campaign,
// template included. Status is not editable here; the lifecycle endpoints
// own it.
func (h *Handler) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetCampaign(r.Context(), id)
	if err != nil {
		h.campaignError(w, err)
		return
	}
	var req campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name != "" {
		c.Name = req.Name
	}
	if req.Subject != "" {
		c.Subject = req.Subject
	}
	if req.HTMLTemplate != "" {
		c.HTMLTemplate = req.HTMLTemplate
	}
	if req.DailyLimit > 0 {
		c.DailyLimit = req.DailyLimit
	}
	if req.SendDelaySec > 0 {
		c.SendDelay = time.Duration(req.SendDelaySec) * time.Second
	}
	c.ScheduleEnabled = req.ScheduleEnabled
	if req.ScheduleTime != "" {
		c.ScheduleTime = req.ScheduleTime
	}
	if req.ScheduledDate != "" {
		d, err := time.ParseInLocation("2006-01-02", req.ScheduledDate, time.Local)
		if err != nil {
			http.Error(w, "invalid scheduled_date", http.StatusBadRequest)
			return
		}
		c.ScheduledDate = &d
	}
	if err := h.svc.UpdateCampaign(r.Context(), c); err != nil {
		h.campaignError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toCampaignResponse(*c))
}

func (h *Handler) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteCampaign(r.Context(), id); err != nil {
		h.campaignError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStartCampaign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.StartCampaign)
}

func (h *Handler) handlePauseCampaign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.PauseCampaign)
}

func (h *Handler) handleResumeCampaign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.ResumeCampaign)
}

// handleUploadLeads accepts a raw CSV body and ingests it into the
// campaign's recipient ledger.
func (h *Handler) handleUploadLeads(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.UploadLeads(r.Context(), id, r.Body)
	if err != nil {
		if errors.Is(err, port.ErrCampaignNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleAssignSenders(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	var req struct {
		Emails []string `json:"emails"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.svc.AssignSenders(r.Context(), id, req.Emails); err != nil {
		if errors.Is(err, port.ErrCampaignNotFound) || errors.Is(err, port.ErrSenderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCampaignStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(r.Context(), id)
	if err != nil {
		h.campaignError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"campaign":    toCampaignResponse(stats.Campaign),
		"total":       stats.Progress.Total,
		"sent":        stats.Progress.Sent,
		"failed":      stats.Progress.Failed,
		"in_flight":   stats.Progress.InFlight,
		"pending":     stats.Progress.Pending(),
		"quota_today": stats.QuotaToday,
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) error) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), id); err != nil {
		if errors.Is(err, port.ErrCampaignNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) campaignID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) campaignError(w http.ResponseWriter, err error) {
	if errors.Is(err, port.ErrCampaignNotFound) {
		http.Error(w, "campaign not found", http.StatusNotFound)
		return
	}
	h.internalError(w, "campaign request", err)
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// encoding should rarely fail; log and move on
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}
