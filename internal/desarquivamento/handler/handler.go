// Package handler exposes the request lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"desarquivamento/internal/desarquivamento/importer"
	"desarquivamento/internal/desarquivamento/models"
	"desarquivamento/internal/platform/metrics"
	"desarquivamento/internal/platform/middleware"
	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
	"desarquivamento/pkg/platform/httputil"
	"desarquivamento/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the set of use cases the handler drives.
type Service interface {
	Create(ctx context.Context, cmd *models.CreateCommand) (*models.RequestResponse, error)
	Update(ctx context.Context, cmd *models.UpdateCommand) (*models.RequestResponse, error)
	Delete(ctx context.Context, cmd *models.DeleteCommand) (*models.DeleteResponse, error)
	Restore(ctx context.Context, cmd *models.RestoreCommand) (*models.RequestResponse, error)
	FindByID(ctx context.Context, q *models.FindByIDQuery) (*models.RequestResponse, error)
	FindAll(ctx context.Context, q *models.FindAllQuery) (*models.PageResponse, error)
	GenerateDocument(ctx context.Context, cmd *models.GenerateDocumentCommand) (*models.Document, error)
	Import(ctx context.Context, cmd *models.ImportCommand) (*models.ImportResponse, error)
}

const (
	maxImportBytes = 10 << 20
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler serves /desarquivamentos.
type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a Handler. metrics may be nil.
func New(service Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the request routes behind bearer authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/desarquivamentos", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger, h.metrics))
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleFindAll)
		r.Post("/import", h.handleImport)
		r.Get("/import/template", h.handleImportTemplate)
		r.Get("/{id}", h.handleFindByID)
		r.Patch("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/restore", h.handleRestore)
		r.Get("/{id}/document", h.handleDocument)
	})
}

func actorFrom(ctx context.Context) models.Actor {
	return models.Actor{
		UserID:    requestcontext.UserID(ctx),
		UserRoles: requestcontext.Roles(ctx),
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	cmd, ok := httputil.DecodeAndPrepare[models.CreateCommand](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	cmd.Actor = actorFrom(ctx)

	res, err := h.service.Create(ctx, cmd)
	if err != nil {
		h.fail(ctx, w, "create request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleFindAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := parseFindAllQuery(r)
	if err != nil {
		h.fail(ctx, w, "list requests", err)
		return
	}
	q.Actor = actorFrom(ctx)

	res, err := h.service.FindAll(ctx, q)
	if err != nil {
		h.fail(ctx, w, "list requests", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleFindByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.FindByID(ctx, &models.FindByIDQuery{Actor: actorFrom(ctx), ID: requestID})
	if err != nil {
		h.fail(ctx, w, "find request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cmd, ok := httputil.DecodeAndPrepare[models.UpdateCommand](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cmd.Actor = actorFrom(ctx)
	cmd.ID = requestID

	res, err := h.service.Update(ctx, cmd)
	if err != nil {
		h.fail(ctx, w, "update request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	permanent, err := parseBoolParam(r.URL.Query().Get("permanent"), "permanent")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Delete(ctx, &models.DeleteCommand{
		Actor:     actorFrom(ctx),
		ID:        requestID,
		Permanent: permanent != nil && *permanent,
	})
	if err != nil {
		h.fail(ctx, w, "delete request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Restore(ctx, &models.RestoreCommand{Actor: actorFrom(ctx), ID: requestID})
	if err != nil {
		h.fail(ctx, w, "restore request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.service.GenerateDocument(ctx, &models.GenerateDocumentCommand{Actor: actorFrom(ctx), ID: requestID})
	if err != nil {
		h.fail(ctx, w, "generate document", err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

// handleImport accepts a multipart upload with the workbook in the "file"
// field. Rows rejected while parsing are reported next to the ones the
// service rejected.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "multipart field \"file\" is required").With("field", "file"))
		return
	}
	defer func() { _ = file.Close() }()

	parsed, err := importer.Parse(file)
	if err != nil {
		h.fail(ctx, w, "parse import", err)
		return
	}

	res := &models.ImportResponse{Created: []*models.RequestResponse{}, Failed: []models.ImportRowError{}}
	if len(parsed.Rows) > 0 {
		res, err = h.service.Import(ctx, &models.ImportCommand{Actor: actorFrom(ctx), Rows: parsed.Rows})
		if err != nil {
			h.fail(ctx, w, "import requests", err)
			return
		}
	}
	res.Failed = append(parsed.Errors, res.Failed...)

	status := http.StatusOK
	if len(res.Created) > 0 {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, res)
}

func (h *Handler) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	f, err := importer.Template()
	if err != nil {
		h.fail(r.Context(), w, "build import template", dErrors.Wrap(err, dErrors.CodeInternal, "failed to build template"))
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="desarquivamentos-template.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := f.WriteTo(w); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write import template", "error", err)
	}
}

// fail logs at a level matching the error class and writes the envelope.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	status := httputil.StatusFor(dErrors.CodeOf(err))
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.UserID(ctx).Int64(),
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "failed to "+action, attrs...)
	} else {
		h.logger.WarnContext(ctx, "rejected "+action, attrs...)
	}
	httputil.WriteError(w, err)
}

// -----------------------------------------------------------------------------
// Query string parsing
// -----------------------------------------------------------------------------

func parseFindAllQuery(r *http.Request) (*models.FindAllQuery, error) {
	values := r.URL.Query()
	q := &models.FindAllQuery{
		SortBy:        values.Get("sort_by"),
		SortOrder:     values.Get("sort_order"),
		DocumentType:  values.Get("document_type"),
		RequesterName: values.Get("requester_name"),
	}

	var err error
	if q.Page, err = parseIntParam(values.Get("page"), "page"); err != nil {
		return nil, err
	}
	if q.Limit, err = parseIntParam(values.Get("limit"), "limit"); err != nil {
		return nil, err
	}
	for _, raw := range values["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Statuses = append(q.Statuses, s)
			}
		}
	}
	if q.RequestedFrom, err = parseDateParam(values.Get("requested_from"), "requested_from", false); err != nil {
		return nil, err
	}
	if q.RequestedTo, err = parseDateParam(values.Get("requested_to"), "requested_to", true); err != nil {
		return nil, err
	}
	if q.Urgent, err = parseBoolParam(values.Get("urgent"), "urgent"); err != nil {
		return nil, err
	}
	includeDeleted, err := parseBoolParam(values.Get("include_deleted"), "include_deleted")
	if err != nil {
		return nil, err
	}
	q.IncludeDeleted = includeDeleted != nil && *includeDeleted
	if raw := values.Get("created_by"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return nil, invalidParam("created_by", "must be a positive user id")
		}
		v := userID.Int64()
		q.CreatedBy = &v
	}
	return q, nil
}

func parseIntParam(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalidParam(name, "must be an integer")
	}
	return &v, nil
}

func parseBoolParam(raw, name string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, invalidParam(name, "must be true or false")
	}
	return &v, nil
}

// parseDateParam accepts a calendar date or a full RFC 3339 timestamp. A bare
// date used as an inclusive upper bound covers that whole day.
func parseDateParam(raw, name string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		return nil, invalidParam(name, "must be a date like 2006-01-02")
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

func invalidParam(name, msg string) error {
	return dErrors.New(dErrors.CodeInvalidInput, name+" "+msg).With("field", name)
}
