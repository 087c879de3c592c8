// Package notifications is the HTTP surface of the pipeline: push
// destination registration, the per-user live event stream, and
// notification history. Mount it under /api/notifications behind auth
// middleware that fulfills the WithUserID contract.
package notifications

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/practicedesk/notifier/pkg/destination"
	"github.com/practicedesk/notifier/pkg/logger"
	"github.com/practicedesk/notifier/pkg/notification"
	"github.com/practicedesk/notifier/pkg/realtime"
)

const defaultHistoryLimit = 50

type Service struct {
	registry destination.Registry
	store    notification.Store
	hub      realtime.Hub
	log      *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService wires the HTTP surface onto the pipeline's collaborators.
func NewService(registry destination.Registry, store notification.Store, hub realtime.Hub, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		store:    store,
		hub:      hub,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the module router.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.history)
	r.Get("/stream", s.stream)
	r.Get("/destinations", s.listDestinations)
	r.Post("/destinations", s.registerDestination)
	r.Delete("/destinations/{onesignalId}", s.disableDestination)

	return r
}

type registerDestinationRequest struct {
	OneSignalID string `json:"onesignalId"`
	Platform    string `json:"platform"`
}

func (s *Service) registerDestination(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req registerDestinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OneSignalID == "" {
		s.respondError(w, http.StatusBadRequest, "onesignalId is required")
		return
	}

	dest, err := s.registry.Upsert(r.Context(), destination.UpsertParams{
		UserID:         userID,
		ProviderID:     req.OneSignalID,
		Platform:       req.Platform,
		ExternalUserID: userID,
		UserAgent:      r.UserAgent(),
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to register destination",
			logger.UserID(userID),
			logger.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to register destination")
		return
	}

	s.respondJSON(w, http.StatusOK, dest)
}

func (s *Service) disableDestination(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	providerID := chi.URLParam(r, "onesignalId")
	count, err := s.registry.Disable(r.Context(), providerID, userID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to disable destination",
			logger.UserID(userID),
			logger.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to disable destination")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]int64{"disabled": count})
}

func (s *Service) listDestinations(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	dests, err := s.registry.ListEnabled(r.Context(), userID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to list destinations",
			logger.UserID(userID),
			logger.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list destinations")
		return
	}

	s.respondJSON(w, http.StatusOK, dests)
}

func (s *Service) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	opts := notification.ListOptions{Limit: defaultHistoryLimit}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Offset = n
		}
	}
	if v := r.URL.Query().Get("category"); v != "" {
		opts.Categories = []notification.Category{notification.Category(v)}
	}

	notifs, err := s.store.List(r.Context(), userID, opts)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to list notifications",
			logger.UserID(userID),
			logger.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	s.respondJSON(w, http.StatusOK, notifs)
}

func (s *Service) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", logger.Error(err))
	}
}

func (s *Service) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
