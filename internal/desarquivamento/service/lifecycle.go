package service

import (
	"context"
	"time"

	"desarquivamento/internal/desarquivamento/models"
	"desarquivamento/pkg/requestcontext"
)

// Create registers a new request in the intake status with the caller as
// creator.
func (s *Service) Create(ctx context.Context, cmd *models.CreateCommand) (*models.RequestResponse, error) {
	start := time.Now()
	defer s.observe("create", start)

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	req, err := models.NewRequest(cmd.Params(), now)
	if err != nil {
		return nil, err
	}

	if err := s.requests.Save(ctx, req); err != nil {
		return nil, storeError(err, "failed to save request")
	}

	s.logAudit(ctx, "desarquivamento_created",
		"desarquivamento_id", req.ID.Int64(),
		"user_id", cmd.UserID.Int64(),
		"urgent", req.Urgent)
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	return models.ToResponse(req, now), nil
}

// Update applies detail edits, dates, assignment and a status change, in that
// order. A forced status change requires CanForceStatus and is checked before
// anything else is touched; every other edit requires CanBeEditedBy.
func (s *Service) Update(ctx context.Context, cmd *models.UpdateCommand) (*models.RequestResponse, error) {
	start := time.Now()
	defer s.observe("update", start)

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	target, changesStatus := cmd.TargetStatus()
	var previous models.Status
	var updated *models.Request

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.FindByID(txCtx, cmd.ID)
		if err != nil {
			return storeError(err, "failed to load request")
		}
		if !req.CanBeAccessedBy(cmd.UserID, cmd.UserRoles) {
			return errRequestNotFound
		}
		if cmd.Force {
			if !req.CanForceStatus(cmd.UserRoles) {
				return unauthorized("forcing a status change requires a privileged role", req.ID)
			}
		} else if !req.CanBeEditedBy(cmd.UserID, cmd.UserRoles) {
			return unauthorized("not allowed to edit this request", req.ID)
		}

		previous = req.Status
		if err := req.UpdateDetails(cmd.DetailsPatch(), now); err != nil {
			return err
		}
		if err := req.SetDates(cmd.RetrievedAt, cmd.ReturnedAt, now); err != nil {
			return err
		}
		if cmd.ChangesAssignee() {
			if err := req.AssignResponsible(cmd.Assignee(), now); err != nil {
				return err
			}
		}
		if changesStatus {
			if cmd.Force {
				err = req.ChangeStatusForce(target, now)
			} else {
				err = req.ChangeStatus(target, now)
			}
			if err != nil {
				return err
			}
		}

		if err := s.requests.Update(txCtx, req); err != nil {
			return storeError(err, "failed to update request")
		}
		updated = req
		return nil
	})
	if err != nil {
		return nil, storeError(err, "transaction failed")
	}

	if changesStatus && previous != updated.Status {
		s.logAudit(ctx, "desarquivamento_status_changed",
			"desarquivamento_id", updated.ID.Int64(),
			"user_id", cmd.UserID.Int64(),
			"from", string(previous),
			"to", string(updated.Status),
			"forced", cmd.Force)
		if s.metrics != nil {
			s.metrics.IncrementStatusChange(string(updated.Status), cmd.Force)
		}
	} else {
		s.logAudit(ctx, "desarquivamento_updated",
			"desarquivamento_id", updated.ID.Int64(),
			"user_id", cmd.UserID.Int64())
	}
	return models.ToResponse(updated, now), nil
}
