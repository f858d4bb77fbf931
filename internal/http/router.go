package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"quickpoll/internal/domain/poll"
	"quickpoll/internal/worker"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	pollSvc *poll.Service
	store   Pinger
	events  chan<- worker.PollEvent
}

func NewRouter(pollSvc *poll.Service, store Pinger, events chan<- worker.PollEvent) http.Handler {
	h := &Handler{
		pollSvc: pollSvc,
		store:   store,
		events:  events,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/polls", func(r chi.Router) {
		r.Use(LimitBody)
		r.Post("/", h.handleCreatePoll)
		r.Get("/{id}", h.handleGetPoll)
		r.Post("/{id}/vote", h.handleVote)
		r.Post("/{id}/edit", h.handleEditPoll)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) publish(kind worker.EventKind, pollID, detail string) {
	worker.Publish(h.events, worker.PollEvent{Kind: kind, PollID: pollID, Detail: detail})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"code":  "store_unavailable",
			"error": "store not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slogLogger.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"code":  "store_unavailable",
			"error": "store not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
