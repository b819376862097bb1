package service

import (
	"context"
	"time"

	"desarquivamento/internal/desarquivamento/models"
	"desarquivamento/pkg/requestcontext"
)

const (
	deleteModeSoft      = "soft"
	deleteModePermanent = "permanent"
	deleteModeRepeated  = "already_deleted"
)

// Delete removes a request. The soft mode is idempotent: deleting a request
// that is already deleted succeeds and reports the original timestamp. The
// permanent mode removes the row and is reserved to administrators.
func (s *Service) Delete(ctx context.Context, cmd *models.DeleteCommand) (*models.DeleteResponse, error) {
	start := time.Now()
	defer s.observe("delete", start)

	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	resp := &models.DeleteResponse{ID: cmd.ID.Int64(), Permanent: cmd.Permanent}
	mode := deleteModeSoft

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.FindByIDWithDeleted(txCtx, cmd.ID)
		if err != nil {
			return storeError(err, "failed to load request")
		}
		if !req.CanBeAccessedBy(cmd.UserID, cmd.UserRoles) {
			return errRequestNotFound
		}

		if cmd.Permanent {
			if !req.CanBeHardDeletedBy(cmd.UserRoles) {
				return unauthorized("permanent deletion requires the admin role", req.ID)
			}
			mode = deleteModePermanent
			if err := s.requests.Delete(txCtx, req.ID); err != nil {
				return storeError(err, "failed to delete request")
			}
			return nil
		}

		if !req.CanBeDeletedBy(cmd.UserID, cmd.UserRoles) {
			return unauthorized("not allowed to delete this request", req.ID)
		}
		deletedAt, already := req.MarkDeleted(now)
		resp.DeletedAt = &deletedAt
		if already {
			resp.AlreadyDeleted = true
			mode = deleteModeRepeated
			return nil
		}
		if err := s.requests.SoftDelete(txCtx, req.ID, deletedAt); err != nil {
			return storeError(err, "failed to delete request")
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "transaction failed")
	}

	s.logAudit(ctx, "desarquivamento_deleted",
		"desarquivamento_id", cmd.ID.Int64(),
		"user_id", cmd.UserID.Int64(),
		"mode", mode)
	if s.metrics != nil {
		s.metrics.IncrementDeleted(mode)
	}
	return resp, nil
}

// Restore clears the soft-delete timestamp. Only roles holding the restore
// permission (admin, operator) may call it.
func (s *Service) Restore(ctx context.Context, cmd *models.RestoreCommand) (*models.RequestResponse, error) {
	start := time.Now()
	defer s.observe("restore", start)

	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var restored *models.Request

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		req, err := s.requests.FindByIDWithDeleted(txCtx, cmd.ID)
		if err != nil {
			return storeError(err, "failed to load request")
		}
		if !req.CanBeRestoredBy(cmd.UserRoles) {
			return unauthorized("restoring a request requires the admin or operator role", req.ID)
		}
		if err := req.Restore(now); err != nil {
			return err
		}
		if err := s.requests.Restore(txCtx, req.ID, now); err != nil {
			return storeError(err, "failed to restore request")
		}
		restored = req
		return nil
	})
	if err != nil {
		return nil, storeError(err, "transaction failed")
	}

	s.logAudit(ctx, "desarquivamento_restored",
		"desarquivamento_id", restored.ID.Int64(),
		"user_id", cmd.UserID.Int64())
	if s.metrics != nil {
		s.metrics.IncrementRestored()
	}
	return models.ToResponse(restored, now), nil
}
