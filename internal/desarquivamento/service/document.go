package service

import (
	"context"
	"time"

	"desarquivamento/internal/desarquivamento/models"
	dErrors "desarquivamento/pkg/domain-errors"
	"desarquivamento/pkg/requestcontext"
)

// GenerateDocument renders the delivery receipt of a request. Requests still
// in intake or not located have nothing to deliver; deleted ones are refused.
func (s *Service) GenerateDocument(ctx context.Context, cmd *models.GenerateDocumentCommand) (*models.Document, error) {
	start := time.Now()
	defer s.observe("generate_document", start)

	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	req, err := s.requests.FindByIDWithDeleted(ctx, cmd.ID)
	if err != nil {
		return nil, storeError(err, "failed to load request")
	}
	if !req.CanBeAccessedBy(cmd.UserID, cmd.UserRoles) {
		return nil, errRequestNotFound
	}
	if req.IsDeleted() {
		return nil, dErrors.New(dErrors.CodeAlreadyDeleted, "request is deleted").With("request_id", req.ID.Int64())
	}
	if req.Status == models.StatusRequested || req.Status == models.StatusNotLocated {
		return nil, dErrors.New(dErrors.CodeUnprocessable, "no delivery receipt for a request in this status").
			With("request_id", req.ID.Int64()).
			With("status", string(req.Status))
	}
	if s.renderer == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "document renderer is not configured")
	}

	receipt := models.NewDeliveryReceipt(req, cmd.UserID.Int64(), requestcontext.Now(ctx))
	doc, err := s.renderer.Render(ctx, receipt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render delivery receipt")
	}

	s.logAudit(ctx, "desarquivamento_document_generated",
		"desarquivamento_id", req.ID.Int64(),
		"user_id", cmd.UserID.Int64())
	if s.metrics != nil {
		s.metrics.IncrementDocumentGenerated()
	}
	return doc, nil
}

// Import creates one request per spreadsheet row on behalf of the caller.
// Row failures are collected and do not stop the remaining rows.
func (s *Service) Import(ctx context.Context, cmd *models.ImportCommand) (*models.ImportResponse, error) {
	start := time.Now()
	defer s.observe("import", start)

	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &models.ImportResponse{
		Created: make([]*models.RequestResponse, 0, len(cmd.Rows)),
		Failed:  []models.ImportRowError{},
	}
	for _, row := range cmd.Rows {
		create := row.Command
		create.Actor = cmd.Actor
		created, err := s.Create(ctx, &create)
		if err != nil {
			result.Failed = append(result.Failed, models.ImportRowError{
				Row:               row.Line,
				DocumentReference: create.DocumentReference,
				Code:              string(dErrors.CodeOf(err)),
				Message:           err.Error(),
			})
			if s.metrics != nil {
				s.metrics.IncrementImportRow("failed")
			}
			continue
		}
		result.Created = append(result.Created, created)
		if s.metrics != nil {
			s.metrics.IncrementImportRow("created")
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "spreadsheet import finished",
			"user_id", cmd.UserID.Int64(),
			"created", len(result.Created),
			"failed", len(result.Failed))
	}
	return result, nil
}
