package httpadapter

import (
	"mailrun/internal/core/port"
	"net/http"

	"github.com/go-chi/chi/v5"
	"log/slog"
)

// Handler contains dependencies and routes. It is the inbound adapter for
// the control API: campaign and sender management plus read-only
// observability. The dispatch runner exposes no port of its own;
// everything here reaches it indirectly through the shared store.
type Handler struct {
	svc    port.CampaignUseCase
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler with all routes configured. It accepts the
// campaign usecase and a logger and registers handlers for each endpoint
// on a new chi.Router.
func NewHandler(svc port.CampaignUseCase, logger *slog.Logger) *Handler {
	h := &Handler{svc: svc, logger: logger}
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", h.handleCreateCampaign)
			r.Get("/", h.handleListCampaigns)
			r.Get("/{id}", h.handleGetCampaign)
			r.Put("/{id}", h.handleUpdateCampaign)
			r.Delete("/{id}", h.handleDeleteCampaign)
			r.Post("/{id}/start", h.handleStartCampaign)
			r.Post("/{id}/pause", h.handlePauseCampaign)
			r.Post("/{id}/resume", h.handleResumeCampaign)
			r.Post("/{id}/leads", h.handleUploadLeads)
			r.Post("/{id}/senders", h.handleAssignSenders)
			r.Get("/{id}/stats", h.handleCampaignStats)
		})
		r.Route("/senders", func(r chi.Router) {
			r.Post("/", h.handleAddSender)
			r.Get("/", h.handleListSenders)
			r.Delete("/{email}", h.handleDeleteSender)
			r.Post("/{email}/health", h.handleSenderHealth)
		})
		r.Get("/logs", h.handleRecentLogs)
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}
