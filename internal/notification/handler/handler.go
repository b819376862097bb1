// Package handler exposes the notification inbox over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"desarquivamento/internal/notification/models"
	"desarquivamento/internal/platform/metrics"
	"desarquivamento/internal/platform/middleware"
	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
	"desarquivamento/pkg/platform/httputil"
	"desarquivamento/pkg/requestcontext"
)

// Service is the inbox the handler serves.
type Service interface {
	ListForUser(ctx context.Context, userID id.UserID, unreadOnly bool, limit int) (*models.ListResponse, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID, userID id.UserID) (*models.Notification, error)
	UnreadCount(ctx context.Context, userID id.UserID) (*models.UnreadCountResponse, error)
}

type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(service Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the inbox routes behind bearer authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger, h.metrics))
		r.Get("/", h.handleList)
		r.Get("/unread-count", h.handleUnreadCount)
		r.Post("/{id}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	values := r.URL.Query()

	unreadOnly := false
	if raw := values.Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unread must be true or false").With("field", "unread"))
			return
		}
		unreadOnly = v
	}
	limit := 0
	if raw := values.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be an integer").With("field", "limit"))
			return
		}
		limit = v
	}

	res, err := h.service.ListForUser(ctx, requestcontext.UserID(ctx), unreadOnly, limit)
	if err != nil {
		h.fail(ctx, w, "list notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.service.UnreadCount(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "count notifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notificationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid notification id"))
		return
	}

	res, err := h.service.MarkRead(ctx, notificationID, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "mark notification read", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "failed to "+action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
