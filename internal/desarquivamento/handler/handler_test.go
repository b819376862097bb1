package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"
	"go.uber.org/mock/gomock"

	"desarquivamento/internal/desarquivamento/handler/mocks"
	"desarquivamento/internal/desarquivamento/models"
	"desarquivamento/internal/platform/middleware"
	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
	"desarquivamento/pkg/platform/httputil"
	"desarquivamento/pkg/testutil"
)

const validToken = "valid-token"

type stubValidator struct {
	claims *middleware.JWTClaims
}

func (v stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != validToken {
		return nil, errors.New("bad token")
	}
	return v.claims, nil
}

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	handler *Handler
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := stubValidator{claims: &middleware.JWTClaims{UserID: 10, Roles: []string{"user"}}}

	s.handler = New(s.service, logger, nil, validator)
	s.router = chi.NewRouter()
	s.handler.Register(s.router)
}

func (s *HandlerSuite) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+validToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) decodeError(w *httptest.ResponseRecorder) httputil.ErrorResponse {
	var resp httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *HandlerSuite) TestRequiresBearerToken() {
	req := httptest.NewRequest(http.MethodGet, "/desarquivamentos/1", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(string(dErrors.CodeUnauthenticated), s.decodeError(w).Error)
}

func (s *HandlerSuite) TestCreate() {
	s.Run("fills the actor from the token and returns 201", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, cmd *models.CreateCommand) (*models.RequestResponse, error) {
				s.Equal(id.UserID(10), cmd.UserID)
				s.Equal([]string{"user"}, cmd.UserRoles)
				s.Equal("Maria Souza", cmd.RequesterName)
				return &models.RequestResponse{ID: 1, Status: "requested"}, nil
			})

		body := `{"requester_name":"  Maria Souza ","document_reference":"REF-1","document_type":"processo","department":"Cartório"}`
		w := s.do(http.MethodPost, "/desarquivamentos/", strings.NewReader(body), "application/json")

		s.Equal(http.StatusCreated, w.Code)
		var resp models.RequestResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(int64(1), resp.ID)
	})

	s.Run("rejects unknown fields", func() {
		w := s.do(http.MethodPost, "/desarquivamentos/", strings.NewReader(`{"created_by":99}`), "application/json")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("maps a duplicate reference to 409", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "document reference is already used by another request"))

		w := s.do(http.MethodPost, "/desarquivamentos/", strings.NewReader(`{"document_reference":"REF-1"}`), "application/json")
		s.Equal(http.StatusConflict, w.Code)
		s.Equal(string(dErrors.CodeConflict), s.decodeError(w).Error)
	})
}

func (s *HandlerSuite) TestCreateUsesContextPrincipal() {
	s.service.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, cmd *models.CreateCommand) (*models.RequestResponse, error) {
			s.Equal(id.UserID(77), cmd.UserID)
			s.Equal([]string{"operator"}, cmd.UserRoles)
			return &models.RequestResponse{ID: 2}, nil
		})

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/desarquivamentos", map[string]any{
		"requester_name":     "Ana",
		"document_reference": "REF-2",
	})
	req = testutil.WithPrincipal(req, 77, "operator")
	w := httptest.NewRecorder()
	s.handler.handleCreate(w, req)

	testutil.AssertStatus(s.T(), w, http.StatusCreated)
	s.Equal(int64(2), testutil.UnmarshalResponse[models.RequestResponse](s.T(), w).ID)
}

func (s *HandlerSuite) TestFindAll() {
	s.Run("parses filters and paging", func() {
		s.service.EXPECT().FindAll(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, q *models.FindAllQuery) (*models.PageResponse, error) {
				s.Require().NotNil(q.Page)
				s.Require().NotNil(q.Limit)
				s.Equal(2, *q.Page)
				s.Equal(5, *q.Limit)
				s.Equal([]string{"requested", "retrieved"}, q.Statuses)
				s.Require().NotNil(q.Urgent)
				s.True(*q.Urgent)
				s.True(q.IncludeDeleted)
				s.Require().NotNil(q.RequestedFrom)
				s.True(q.RequestedFrom.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
				s.Require().NotNil(q.CreatedBy)
				s.Equal(int64(7), *q.CreatedBy)
				return &models.PageResponse{Items: []*models.RequestResponse{}, Page: 2, Limit: 5}, nil
			})

		w := s.do(http.MethodGet,
			"/desarquivamentos/?page=2&limit=5&status=requested,retrieved&urgent=true&include_deleted=true&requested_from=2025-03-01&created_by=7",
			nil, "")
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("leaves absent paging unset and keeps an explicit zero", func() {
		s.service.EXPECT().FindAll(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, q *models.FindAllQuery) (*models.PageResponse, error) {
				s.Nil(q.Page)
				s.Require().NotNil(q.Limit)
				s.Zero(*q.Limit)
				return nil, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 100").With("field", "limit")
			})

		w := s.do(http.MethodGet, "/desarquivamentos/?limit=0", nil, "")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("a bare requested_to date covers the whole day", func() {
		s.service.EXPECT().FindAll(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, q *models.FindAllQuery) (*models.PageResponse, error) {
				s.Require().NotNil(q.RequestedFrom)
				s.Require().NotNil(q.RequestedTo)
				day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
				s.True(q.RequestedFrom.Equal(day))
				s.True(q.RequestedTo.Before(day.AddDate(0, 0, 1)))
				s.False(q.RequestedTo.Before(time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)))
				return &models.PageResponse{Items: []*models.RequestResponse{}}, nil
			})

		w := s.do(http.MethodGet, "/desarquivamentos/?requested_from=2025-03-10&requested_to=2025-03-10", nil, "")
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("a full requested_to timestamp is kept as sent", func() {
		s.service.EXPECT().FindAll(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, q *models.FindAllQuery) (*models.PageResponse, error) {
				s.Require().NotNil(q.RequestedTo)
				s.True(q.RequestedTo.Equal(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))
				return &models.PageResponse{Items: []*models.RequestResponse{}}, nil
			})

		w := s.do(http.MethodGet, "/desarquivamentos/?requested_to=2025-03-10T12:00:00Z", nil, "")
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("rejects a malformed parameter", func() {
		w := s.do(http.MethodGet, "/desarquivamentos/?requested_from=yesterday", nil, "")
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("requested_from", s.decodeError(w).Field)
	})
}

func (s *HandlerSuite) TestFindByID() {
	s.Run("rejects a non-numeric id", func() {
		w := s.do(http.MethodGet, "/desarquivamentos/abc", nil, "")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("maps not found to 404", func() {
		s.service.EXPECT().FindByID(gomock.Any(), &models.FindByIDQuery{
			Actor: models.Actor{UserID: 10, UserRoles: []string{"user"}},
			ID:    3,
		}).Return(nil, dErrors.New(dErrors.CodeNotFound, "request not found"))

		w := s.do(http.MethodGet, "/desarquivamentos/3", nil, "")
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *HandlerSuite) TestUpdate() {
	s.service.EXPECT().Update(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, cmd *models.UpdateCommand) (*models.RequestResponse, error) {
			s.Equal(id.RequestID(4), cmd.ID)
			s.Require().NotNil(cmd.Status)
			s.Equal("retrieved", *cmd.Status)
			return nil, dErrors.New(dErrors.CodeInvalidTransition, "cannot move from requested to returned")
		})

	w := s.do(http.MethodPatch, "/desarquivamentos/4", strings.NewReader(`{"status":" Retrieved "}`), "application/json")
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(string(dErrors.CodeInvalidTransition), s.decodeError(w).Error)
}

func (s *HandlerSuite) TestDelete() {
	s.Run("soft delete by default", func() {
		s.service.EXPECT().Delete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, cmd *models.DeleteCommand) (*models.DeleteResponse, error) {
				s.False(cmd.Permanent)
				return &models.DeleteResponse{ID: 4}, nil
			})
		w := s.do(http.MethodDelete, "/desarquivamentos/4", nil, "")
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("permanent on request", func() {
		s.service.EXPECT().Delete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, cmd *models.DeleteCommand) (*models.DeleteResponse, error) {
				s.True(cmd.Permanent)
				return nil, dErrors.New(dErrors.CodeUnauthorized, "permanent delete requires an administrator")
			})
		w := s.do(http.MethodDelete, "/desarquivamentos/4?permanent=true", nil, "")
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("rejects a malformed flag", func() {
		w := s.do(http.MethodDelete, "/desarquivamentos/4?permanent=maybe", nil, "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestRestore() {
	s.service.EXPECT().Restore(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotDeleted, "request is not deleted"))

	w := s.do(http.MethodPost, "/desarquivamentos/4/restore", nil, "")
	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlerSuite) TestDocument() {
	s.service.EXPECT().GenerateDocument(gomock.Any(), gomock.Any()).
		Return(&models.Document{Filename: "desarquivamento-4.txt", ContentType: "text/plain; charset=utf-8", Body: []byte("receipt")}, nil)

	w := s.do(http.MethodGet, "/desarquivamentos/4/document", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	s.Contains(w.Header().Get("Content-Disposition"), "desarquivamento-4.txt")
	s.Equal("receipt", w.Body.String())
}

func (s *HandlerSuite) upload(rows [][]any) (io.Reader, string) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for r, row := range rows {
		for c, v := range row {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			s.Require().NoError(err)
			s.Require().NoError(f.SetCellValue("Sheet1", ref, v))
		}
	}

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "import.xlsx")
	s.Require().NoError(err)
	s.Require().NoError(f.Write(part))
	s.Require().NoError(mw.Close())
	return body, mw.FormDataContentType()
}

func (s *HandlerSuite) TestImport() {
	s.Run("merges parse and service failures", func() {
		body, contentType := s.upload([][]any{
			{"requester_name", "document_reference", "document_type", "department", "urgent"},
			{"Maria", "REF-1", "processo", "Cartório", "sim"},
			{"Ana", "REF-2", "processo", "Cartório", "talvez"},
		})
		s.service.EXPECT().Import(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, cmd *models.ImportCommand) (*models.ImportResponse, error) {
				s.Require().Len(cmd.Rows, 1)
				s.Equal(2, cmd.Rows[0].Line)
				s.Equal(id.UserID(10), cmd.UserID)
				return &models.ImportResponse{
					Created: []*models.RequestResponse{{ID: 1}},
					Failed:  []models.ImportRowError{},
				}, nil
			})

		w := s.do(http.MethodPost, "/desarquivamentos/import", body, contentType)
		s.Equal(http.StatusCreated, w.Code)
		var resp models.ImportResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Len(resp.Created, 1)
		s.Require().Len(resp.Failed, 1)
		s.Equal(3, resp.Failed[0].Row)
	})

	s.Run("skips the service when no row parsed", func() {
		body, contentType := s.upload([][]any{
			{"requester_name", "document_reference", "document_type", "department", "urgent"},
			{"Ana", "REF-2", "processo", "Cartório", "talvez"},
		})
		w := s.do(http.MethodPost, "/desarquivamentos/import", body, contentType)
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("requires the file field", func() {
		w := s.do(http.MethodPost, "/desarquivamentos/import", strings.NewReader("x"), "text/plain")
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("file", s.decodeError(w).Field)
	})
}

func (s *HandlerSuite) TestImportTemplate() {
	w := s.do(http.MethodGet, "/desarquivamentos/import/template", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal(xlsxType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(w.Body)
	s.Require().NoError(err)
	defer func() { _ = f.Close() }()
	s.Equal([]string{"Desarquivamentos"}, f.GetSheetList())
}
