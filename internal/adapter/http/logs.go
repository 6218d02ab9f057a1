package httpadapter

import (
	"net/http"
	"strconv"
	"time"
)

// handleRecentLogs returns the newest email log entries, capped at 1000.
// An optional `limit` query parameter narrows the window.
func (h *Handler) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	limit := 1000
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.svc.RecentLogs(r.Context(), limit)
	if err != nil {
		h.internalError(w, "recent logs", err)
		return
	}
	type logEntry struct {
		CampaignID string `json:"campaign_id"`
		Timestamp  string `json:"timestamp"`
		Sender     string `json:"sender"`
		Recipient  string `json:"recipient"`
		Subject    string `json:"subject"`
		Success    bool   `json:"success"`
		Error      string `json:"error,omitempty"`
	}
	out := make([]logEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntry{
			CampaignID: e.CampaignID.String(),
			Timestamp:  e.Timestamp.Format(time.RFC3339),
			Sender:     e.Sender,
			Recipient:  e.Recipient,
			Subject:    e.Subject,
			Success:    e.Success,
			Error:      e.Error,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}
