package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"desarquivamento/internal/desarquivamento/models"
	"desarquivamento/internal/desarquivamento/service/mocks"
	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
	"desarquivamento/pkg/platform/sentinel"
	"desarquivamento/pkg/requestcontext"
)

const (
	creatorID  id.UserID    = 10
	strangerID id.UserID    = 30
	adminID    id.UserID    = 1
	requestID  id.RequestID = 7
)

type ServiceSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockStore    *mocks.MockRequestStore
	mockRenderer *mocks.MockDocumentRenderer
	service      *Service
	now          time.Time
	ctx          context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockRequestStore(s.ctrl)
	s.mockRenderer = mocks.NewMockDocumentRenderer(s.ctrl)
	s.service = New(s.mockStore, s.mockRenderer)
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) request(status models.Status) *models.Request {
	return &models.Request{
		ID:                requestID,
		Status:            status,
		RequesterName:     "Maria Souza",
		DocumentReference: "DOC-001",
		DocumentType:      "process",
		Department:        "Civil Registry",
		RequestedAt:       s.now.Add(-48 * time.Hour),
		CreatedBy:         creatorID,
		CreatedAt:         s.now.Add(-48 * time.Hour),
		UpdatedAt:         s.now.Add(-48 * time.Hour),
	}
}

func (s *ServiceSuite) deleted(status models.Status) *models.Request {
	r := s.request(status)
	at := s.now.Add(-time.Hour)
	r.DeletedAt = &at
	return r
}

func actor(userID id.UserID, roles ...string) models.Actor {
	return models.Actor{UserID: userID, UserRoles: roles}
}

func strPtr(v string) *string { return &v }

// TestCreate verifies intake validation, persistence and conflict mapping.
func (s *ServiceSuite) TestCreate() {
	valid := func() *models.CreateCommand {
		return &models.CreateCommand{
			Actor:             actor(creatorID, "user"),
			RequesterName:     "Maria Souza",
			DocumentReference: "DOC-001",
			DocumentType:      "process",
			Department:        "Civil Registry",
		}
	}

	s.Run("creates in requested status with caller as creator", func() {
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, r *models.Request) error {
				r.ID = 42
				return nil
			})

		resp, err := s.service.Create(s.ctx, valid())
		s.Require().NoError(err)
		s.Equal(int64(42), resp.ID)
		s.Equal(string(models.StatusRequested), resp.Status)
		s.Equal(creatorID.Int64(), resp.CreatedBy)
		s.Equal(s.now, resp.RequestedAt)
		s.Equal(s.now.Add(models.ServiceLevelWindow), resp.Deadline)
	})

	s.Run("invalid fields never reach the store", func() {
		cmd := valid()
		cmd.Department = " "
		_, err := s.service.Create(s.ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("invalid role list is rejected", func() {
		cmd := valid()
		cmd.UserRoles = nil
		_, err := s.service.Create(s.ctx, cmd)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("duplicate document reference is a conflict", func() {
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)
		_, err := s.service.Create(s.ctx, valid())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("store failure is opaque", func() {
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))
		_, err := s.service.Create(s.ctx, valid())
		s.True(dErrors.HasCode(err, dErrors.CodePersistence))
	})
}

// TestUpdate covers the edit pipeline and the forced-status scenario.
func (s *ServiceSuite) TestUpdate() {
	s.Run("admin forces finalized back to requested", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), requestID).Return(s.request(models.StatusFinalized), nil)
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, r *models.Request) error {
				s.Equal(models.StatusRequested, r.Status)
				return nil
			})

		resp, err := s.service.Update(s.ctx, &models.UpdateCommand{
			Actor:  actor(adminID, "admin"),
			ID:     requestID,
			Status: strPtr("requested"),
			Force:  true,
		})
		s.Require().NoError(err)
		s.Equal(string(models.StatusRequested), resp.Status)
	})

	s.Run("creator force is unauthorized before the transition check", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), requestID).Return(s.request(models.StatusFinalized), nil)

		_, err := s.service.Update(s.ctx, &models.UpdateCommand{
			Actor:  actor(creatorID, "user"),
			ID:     requestID,
			Status: strPtr("requested"),
			Force:  true,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.False(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("transition outside the table is rejected and not persisted", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), requestID).Return(s.request(models.StatusRequested), nil)

		_, err := s.service.Update(s.ctx, &models.UpdateCommand{
			Actor:  actor(creatorID, "user"),
			ID:     requestID,
			Status: strPtr("finalized"),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("applies details, dates, assignee and status together", func() {
		retrieved := s.now.Add(-time.Hour)
		assignee := int64(20)
		s.mockStore.EXPECT().FindByID(gomock.Any(), requestID).Return(s.request(models.StatusRequested), nil)
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		resp, err := s.service.Update(s.ctx, &models.UpdateCommand{
			Actor:       actor(strangerID, "operator"),
			ID:          requestID,
			Purpose:     strPtr("Audit"),
			RetrievedAt: &retrieved,
			AssignedTo:  &assignee,
			Status:      strPtr("retrieved"),
		})
		s.Require().NoError(err)
		s.Equal("Audit", resp.Purpose)
		s.Equal(retrieved, *resp.RetrievedAt)
		s.Equal(assignee, *resp.AssignedTo)
		s.Equal(string(models.StatusRetrieved), resp.Status)
		s.Equal(s.now, resp.UpdatedAt)
	})

	s.Run("caller without access sees not found", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), requestID).Return(s.request(models.StatusRequested), nil)
		_, err := s.service.Update(s.ctx, &models.UpdateCommand{Actor: actor(strangerID, "user"), ID: requestID})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("viewer cannot edit", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), requestID).Return(s.request(models.StatusRequested), nil)
		_, err := s.service.Update(s.ctx, &models.UpdateCommand{Actor: actor(strangerID, "viewer"), ID: requestID, Purpose: strPtr("x")})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("deleted requests are invisible", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), requestID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Update(s.ctx, &models.UpdateCommand{Actor: actor(adminID, "admin"), ID: requestID})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("reference collision on edit is a conflict", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), requestID).Return(s.request(models.StatusRequested), nil)
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)
		_, err := s.service.Update(s.ctx, &models.UpdateCommand{
			Actor:             actor(creatorID, "user"),
			ID:                requestID,
			DocumentReference: strPtr("DOC-002"),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// TestDelete covers both modes and the idempotent soft delete.
func (s *ServiceSuite) TestDelete() {
	s.Run("creator soft-deletes own request in intake", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.request(models.StatusRequested), nil)
		s.mockStore.EXPECT().SoftDelete(gomock.Any(), requestID, s.now).Return(nil)

		resp, err := s.service.Delete(s.ctx, &models.DeleteCommand{Actor: actor(creatorID, "user"), ID: requestID})
		s.Require().NoError(err)
		s.False(resp.AlreadyDeleted)
		s.Equal(s.now, *resp.DeletedAt)
	})

	s.Run("deleting twice reports the prior timestamp", func() {
		r := s.deleted(models.StatusRequested)
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(r, nil)

		resp, err := s.service.Delete(s.ctx, &models.DeleteCommand{Actor: actor(creatorID, "user"), ID: requestID})
		s.Require().NoError(err)
		s.True(resp.AlreadyDeleted)
		s.Equal(s.now.Add(-time.Hour), *resp.DeletedAt)
	})

	s.Run("coordinator cannot delete in-progress requests", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.request(models.StatusRetrieved), nil)
		_, err := s.service.Delete(s.ctx, &models.DeleteCommand{Actor: actor(strangerID, "coordinator"), ID: requestID})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("permanent delete requires admin", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.request(models.StatusRequested), nil)
		_, err := s.service.Delete(s.ctx, &models.DeleteCommand{Actor: actor(strangerID, "operator"), ID: requestID, Permanent: true})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("admin deletes permanently", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.deleted(models.StatusFinalized), nil)
		s.mockStore.EXPECT().Delete(gomock.Any(), requestID).Return(nil)

		resp, err := s.service.Delete(s.ctx, &models.DeleteCommand{Actor: actor(adminID, "admin"), ID: requestID, Permanent: true})
		s.Require().NoError(err)
		s.True(resp.Permanent)
	})

	s.Run("missing request", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Delete(s.ctx, &models.DeleteCommand{Actor: actor(adminID, "admin"), ID: requestID})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid id never reaches the store", func() {
		_, err := s.service.Delete(s.ctx, &models.DeleteCommand{Actor: actor(adminID, "admin")})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestRestore verifies role gating and the not-deleted condition.
func (s *ServiceSuite) TestRestore() {
	s.Run("operator restores a deleted request", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.deleted(models.StatusRequested), nil)
		s.mockStore.EXPECT().Restore(gomock.Any(), requestID, s.now).Return(nil)

		resp, err := s.service.Restore(s.ctx, &models.RestoreCommand{Actor: actor(strangerID, "operator"), ID: requestID})
		s.Require().NoError(err)
		s.Nil(resp.DeletedAt)
	})

	s.Run("restoring a live request fails", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.request(models.StatusRequested), nil)
		_, err := s.service.Restore(s.ctx, &models.RestoreCommand{Actor: actor(adminID, "admin"), ID: requestID})
		s.True(dErrors.HasCode(err, dErrors.CodeNotDeleted))
	})

	s.Run("creator cannot restore", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.deleted(models.StatusRequested), nil)
		_, err := s.service.Restore(s.ctx, &models.RestoreCommand{Actor: actor(creatorID, "user"), ID: requestID})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("restore colliding with a live reference is a conflict", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.deleted(models.StatusRequested), nil)
		s.mockStore.EXPECT().Restore(gomock.Any(), requestID, s.now).Return(sentinel.ErrConflict)
		_, err := s.service.Restore(s.ctx, &models.RestoreCommand{Actor: actor(adminID, "admin"), ID: requestID})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// TestFind covers visibility rules on reads.
func (s *ServiceSuite) TestFind() {
	s.Run("assignee can read", func() {
		r := s.request(models.StatusRequested)
		assignee := strangerID
		r.AssignedTo = &assignee
		s.mockStore.EXPECT().FindByID(gomock.Any(), requestID).Return(r, nil)

		resp, err := s.service.FindByID(s.ctx, &models.FindByIDQuery{Actor: actor(strangerID, "user"), ID: requestID})
		s.Require().NoError(err)
		s.Equal(requestID.Int64(), resp.ID)
	})

	s.Run("inaccessible request looks missing", func() {
		s.mockStore.EXPECT().FindByID(gomock.Any(), requestID).Return(s.request(models.StatusRequested), nil)
		_, err := s.service.FindByID(s.ctx, &models.FindByIDQuery{Actor: actor(strangerID, "user"), ID: requestID})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("non-privileged caller is pinned to own requests", func() {
		foreign := int64(999)
		s.mockStore.EXPECT().FindAll(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, opts models.ListOptions) (models.Page, error) {
				s.Require().NotNil(opts.Filter.CreatedBy)
				s.Equal(creatorID, *opts.Filter.CreatedBy)
				s.False(opts.Filter.IncludeDeleted)
				return models.Page{Items: []*models.Request{s.request(models.StatusRequested)}, Total: 1, Page: 1, Limit: 10}, nil
			})

		page, err := s.service.FindAll(s.ctx, &models.FindAllQuery{
			Actor:          actor(creatorID, "user"),
			CreatedBy:      &foreign,
			IncludeDeleted: true,
		})
		s.Require().NoError(err)
		s.Len(page.Items, 1)
		s.Equal(1, page.TotalPages)
	})

	s.Run("viewer keeps explicit filters", func() {
		foreign := int64(999)
		s.mockStore.EXPECT().FindAll(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, opts models.ListOptions) (models.Page, error) {
				s.Equal(id.UserID(999), *opts.Filter.CreatedBy)
				s.True(opts.Filter.IncludeDeleted)
				return models.Page{Page: 1, Limit: 10}, nil
			})

		page, err := s.service.FindAll(s.ctx, &models.FindAllQuery{
			Actor:          actor(strangerID, "viewer"),
			CreatedBy:      &foreign,
			IncludeDeleted: true,
		})
		s.Require().NoError(err)
		s.Empty(page.Items)
		s.Equal(0, page.TotalPages)
	})

	s.Run("bad paging never reaches the store", func() {
		for _, limit := range []int{500, 0} {
			_, err := s.service.FindAll(s.ctx, &models.FindAllQuery{Actor: actor(creatorID, "user"), Limit: &limit})
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "limit=%d", limit)
		}
	})
}

// TestGenerateDocument verifies the status gate before rendering.
func (s *ServiceSuite) TestGenerateDocument() {
	s.Run("renders a retrieved request", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.request(models.StatusRetrieved), nil)
		s.mockRenderer.EXPECT().Render(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, receipt models.DeliveryReceipt) (*models.Document, error) {
				s.Equal(requestID.Int64(), receipt.RequestID)
				s.Equal(s.now, receipt.IssuedAt)
				s.Equal(creatorID.Int64(), receipt.IssuedBy)
				return &models.Document{Filename: "receipt.txt", Body: []byte("ok")}, nil
			})

		doc, err := s.service.GenerateDocument(s.ctx, &models.GenerateDocumentCommand{Actor: actor(creatorID, "user"), ID: requestID})
		s.Require().NoError(err)
		s.Equal("receipt.txt", doc.Filename)
	})

	for _, st := range []models.Status{models.StatusRequested, models.StatusNotLocated} {
		s.Run("refuses "+string(st), func() {
			s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.request(st), nil)
			_, err := s.service.GenerateDocument(s.ctx, &models.GenerateDocumentCommand{Actor: actor(creatorID, "user"), ID: requestID})
			s.True(dErrors.HasCode(err, dErrors.CodeUnprocessable))
		})
	}

	s.Run("refuses deleted", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.deleted(models.StatusFinalized), nil)
		_, err := s.service.GenerateDocument(s.ctx, &models.GenerateDocumentCommand{Actor: actor(adminID, "admin"), ID: requestID})
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyDeleted))
	})

	s.Run("renderer failure is internal", func() {
		s.mockStore.EXPECT().FindByIDWithDeleted(gomock.Any(), requestID).Return(s.request(models.StatusFinalized), nil)
		s.mockRenderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))
		_, err := s.service.GenerateDocument(s.ctx, &models.GenerateDocumentCommand{Actor: actor(adminID, "admin"), ID: requestID})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// TestImport verifies row failures are collected without aborting.
func (s *ServiceSuite) TestImport() {
	row := func(line int, ref string) models.ImportRow {
		return models.ImportRow{Line: line, Command: models.CreateCommand{
			RequesterName:     "Ana",
			DocumentReference: ref,
			DocumentType:      "deed",
			Department:        "Notary",
		}}
	}

	gomock.InOrder(
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict),
	)

	result, err := s.service.Import(s.ctx, &models.ImportCommand{
		Actor: actor(creatorID, "user"),
		Rows:  []models.ImportRow{row(2, "DOC-1"), row(3, "DOC-2"), row(4, "")},
	})
	s.Require().NoError(err)
	s.Len(result.Created, 1)
	s.Require().Len(result.Failed, 2)
	s.Equal(3, result.Failed[0].Row)
	s.Equal(string(dErrors.CodeConflict), result.Failed[0].Code)
	s.Equal(4, result.Failed[1].Row)
	s.Equal(string(dErrors.CodeInvalidInput), result.Failed[1].Code)
}
