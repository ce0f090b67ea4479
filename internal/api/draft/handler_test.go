package draft

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/imagepipe"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/pkg/middleware"
)

type MockDraftService struct{ mock.Mock }

func (m *MockDraftService) draft(args mock.Arguments) (domain.TaskDraft, error) {
	return args.Get(0).(domain.TaskDraft), args.Error(1)
}

func (m *MockDraftService) OpenDraft(ctx context.Context, s domain.Session, taskID string) (domain.TaskDraft, error) {
	return m.draft(m.Called(ctx, s, taskID))
}
func (m *MockDraftService) GetDraft(ctx context.Context, s domain.Session, id string) (domain.TaskDraft, error) {
	return m.draft(m.Called(ctx, s, id))
}
func (m *MockDraftService) UpdateDraft(ctx context.Context, s domain.Session, id string, input domain.TaskInput) (domain.TaskDraft, error) {
	return m.draft(m.Called(ctx, s, id, input))
}
func (m *MockDraftService) AddSlot(ctx context.Context, s domain.Session, id string) (domain.TaskDraft, error) {
	return m.draft(m.Called(ctx, s, id))
}
func (m *MockDraftService) RemoveSlot(ctx context.Context, s domain.Session, id string, index int) (domain.TaskDraft, error) {
	return m.draft(m.Called(ctx, s, id, index))
}
func (m *MockDraftService) SetStartTime(ctx context.Context, s domain.Session, id string, index int, t domain.TimeOfDay) (domain.TaskDraft, error) {
	return m.draft(m.Called(ctx, s, id, index, t))
}
func (m *MockDraftService) SetEndTime(ctx context.Context, s domain.Session, id string, index int, t domain.TimeOfDay) (domain.TaskDraft, error) {
	return m.draft(m.Called(ctx, s, id, index, t))
}
func (m *MockDraftService) SetApproval(ctx context.Context, s domain.Session, id string, index int, approved bool) (domain.TaskDraft, error) {
	return m.draft(m.Called(ctx, s, id, index, approved))
}
func (m *MockDraftService) CommitDraft(ctx context.Context, s domain.Session, id string, files []imagepipe.File) (domain.Task, error) {
	args := m.Called(ctx, s, id, files)
	return args.Get(0).(domain.Task), args.Error(1)
}
func (m *MockDraftService) DiscardDraft(ctx context.Context, s domain.Session, id string) error {
	return m.Called(ctx, s, id).Error(0)
}

var session = domain.Session{UserID: "u1", Role: domain.RoleUser}

func request(method, target, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return r.WithContext(middleware.WithSession(r.Context(), session))
}

func TestOpenDraftHandler_EmptyBodyStartsNewTask(t *testing.T) {
	svc := new(MockDraftService)
	h := NewHandler(svc, 1<<20, logger.NewNop())
	svc.On("OpenDraft", mock.Anything, session, "").Return(domain.TaskDraft{ID: "d1"}, nil)

	rec := httptest.NewRecorder()
	h.OpenDraftHandler(rec, request(http.MethodPost, "/v1/drafts", ""))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestSetEndHandler_InvalidRange(t *testing.T) {
	svc := new(MockDraftService)
	h := NewHandler(svc, 1<<20, logger.NewNop())
	svc.On("SetEndTime", mock.Anything, session, "d1", 0, domain.MustTimeOfDay("08:00")).
		Return(domain.TaskDraft{}, apperror.NewScheduleError(apperror.ScheduleInvalidRange, 0, "O término deve ser depois do início."))

	req := request(http.MethodPut, "/v1/drafts/d1/slots/0/end", `{"time":"08:00"}`)
	req.SetPathValue("id", "d1")
	req.SetPathValue("index", "0")
	rec := httptest.NewRecorder()
	h.SetEndHandler(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"INVALID_RANGE"`)
}

func TestRemoveSlotHandler_BadIndex(t *testing.T) {
	h := NewHandler(new(MockDraftService), 1<<20, logger.NewNop())

	req := request(http.MethodDelete, "/v1/drafts/d1/slots/x", "")
	req.SetPathValue("id", "d1")
	req.SetPathValue("index", "x")
	rec := httptest.NewRecorder()
	h.RemoveSlotHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitDraftHandler_WithoutFiles(t *testing.T) {
	svc := new(MockDraftService)
	h := NewHandler(svc, 1<<20, logger.NewNop())
	svc.On("CommitDraft", mock.Anything, session, "d1", []imagepipe.File(nil)).Return(domain.Task{ID: "t1", Version: 1}, nil)

	req := request(http.MethodPost, "/v1/drafts/d1/commit", "")
	req.SetPathValue("id", "d1")
	rec := httptest.NewRecorder()
	h.CommitDraftHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"t1"`)
}
