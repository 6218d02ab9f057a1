package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mailrun/internal/core/domain"
	"mailrun/internal/core/port"
)

type senderResponse struct {
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) handleAddSender(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	s := &domain.Sender{Email: req.Email, Password: req.Password}
	if err := h.svc.AddSender(r.Context(), s); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusCreated, senderResponse{Email: s.Email})
}

func (h *Handler) handleListSenders(w http.ResponseWriter, r *http.Request) {
	senders, err := h.svc.ListSenders(r.Context())
	if err != nil {
		h.internalError(w, "list senders", err)
		return
	}
	// credentials never leave the store through the API
	out := make([]senderResponse, 0, len(senders))
	for _, s := range senders {
		out = append(out, senderResponse{
			Email:     s.Email,
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDeleteSender(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if err := h.svc.DeleteSender(r.Context(), email); err != nil {
		if errors.Is(err, port.ErrSenderNotFound) {
			http.NotFound(w, r)
			return
		}
		h.internalError(w, "delete sender", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSenderHealth runs the advisory credential probe. The result does
// not change dispatch eligibility.
func (h *Handler) handleSenderHealth(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if err := h.svc.CheckSenderHealth(r.Context(), email); err != nil {
		if errors.Is(err, port.ErrSenderNotFound) {
			http.NotFound(w, r)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"healthy": false, "error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"healthy": true})
}
