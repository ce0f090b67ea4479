package task

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/imagepipe"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/pkg/middleware"
	"sitetrack/internal/query"
	"sitetrack/internal/scheduler"
)

type MockTaskService struct{ mock.Mock }

func (m *MockTaskService) CreateTask(ctx context.Context, s domain.Session, input domain.TaskInput, files []imagepipe.File) (domain.Task, error) {
	args := m.Called(ctx, s, input, files)
	return args.Get(0).(domain.Task), args.Error(1)
}
func (m *MockTaskService) UpdateTask(ctx context.Context, s domain.Session, id string, input domain.TaskInput, files []imagepipe.File) (domain.Task, error) {
	args := m.Called(ctx, s, id, input, files)
	return args.Get(0).(domain.Task), args.Error(1)
}
func (m *MockTaskService) DeleteTask(ctx context.Context, s domain.Session, id string) error {
	return m.Called(ctx, s, id).Error(0)
}
func (m *MockTaskService) GetTask(ctx context.Context, s domain.Session, id string) (domain.Task, error) {
	args := m.Called(ctx, s, id)
	return args.Get(0).(domain.Task), args.Error(1)
}
func (m *MockTaskService) SetTaskStatus(ctx context.Context, s domain.Session, id string, status domain.TaskStatus) (domain.Task, error) {
	args := m.Called(ctx, s, id, status)
	return args.Get(0).(domain.Task), args.Error(1)
}
func (m *MockTaskService) ListTasks(ctx context.Context, s domain.Session, params query.TaskParams) (query.Page[domain.Task], error) {
	args := m.Called(ctx, s, params)
	return args.Get(0).(query.Page[domain.Task]), args.Error(1)
}
func (m *MockTaskService) WatchTasks(ctx context.Context, s domain.Session, params query.TaskParams) (<-chan query.Page[domain.Task], error) {
	args := m.Called(ctx, s, params)
	ch, _ := args.Get(0).(<-chan query.Page[domain.Task])
	return ch, args.Error(1)
}
func (m *MockTaskService) StartTimeOptions() []domain.TimeOfDay {
	return m.Called().Get(0).([]domain.TimeOfDay)
}
func (m *MockTaskService) EndTimeOptions(start domain.TimeOfDay) ([]domain.TimeOfDay, error) {
	args := m.Called(start)
	out, _ := args.Get(0).([]domain.TimeOfDay)
	return out, args.Error(1)
}

type memViews map[string]query.ListState[query.TaskFilters]

func (v memViews) Load(_ context.Context, userID string) query.ListState[query.TaskFilters] {
	if s, ok := v[userID]; ok {
		return s
	}
	return query.NewListState[query.TaskFilters]()
}
func (v memViews) Save(_ context.Context, userID string, s query.ListState[query.TaskFilters]) {
	v[userID] = s
}

var worker = domain.Session{UserID: "22222222-2222-2222-2222-222222222222", Email: "joao@obra.com", Role: domain.RoleUser}

func TestCreateTaskHandler_ScheduleError(t *testing.T) {
	svc := new(MockTaskService)
	h := NewHandler(svc, memViews{}, 1<<20, logger.NewNop())
	svc.On("CreateTask", mock.Anything, worker, mock.Anything, []imagepipe.File(nil)).
		Return(domain.Task{}, apperror.NewScheduleError(apperror.ScheduleMissingStartTime, 0, "Informe o horário de início."))

	body := `{"title":"Concretagem","site":"Bloco A","time_slots":[{"date":"2025-03-10"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateTaskHandler(rec, req.WithContext(middleware.WithSession(req.Context(), worker)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "MISSING_START_TIME", resp.Kind)
	require.NotNil(t, resp.SlotIndex)
	assert.Equal(t, 0, *resp.SlotIndex)
}

func TestListTasksHandler_StatusFilter(t *testing.T) {
	svc := new(MockTaskService)
	h := NewHandler(svc, memViews{}, 1<<20, logger.NewNop())
	svc.On("ListTasks", mock.Anything, worker, mock.MatchedBy(func(p query.TaskParams) bool {
		return len(p.Filters.Statuses) == 1 && p.Filters.Statuses[0] == domain.TaskCompleted && p.Sort == query.SortKey("time")
	})).Return(query.Page[domain.Task]{Page: 1, PageSize: 10}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks?status=completed,arquivada&sort=time", nil)
	rec := httptest.NewRecorder()
	h.ListTasksHandler(rec, req.WithContext(middleware.WithSession(req.Context(), worker)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active_filters":1`)
	svc.AssertExpectations(t)
}

func TestStartOptionsHandler(t *testing.T) {
	svc := new(MockTaskService)
	h := NewHandler(svc, memViews{}, 1<<20, logger.NewNop())
	svc.On("StartTimeOptions").Return([]domain.TimeOfDay{domain.MustTimeOfDay("07:00"), domain.MustTimeOfDay("13:30")})

	rec := httptest.NewRecorder()
	h.StartOptionsHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/timeslots/start-options", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var opts []TimeOption
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	require.Len(t, opts, 2)
	assert.Equal(t, TimeOption{Value: "13:30", Label: domain.MustTimeOfDay("13:30").Format12h()}, opts[1])
}

func TestEndOptionsHandler_IncludesDuration(t *testing.T) {
	svc := new(MockTaskService)
	h := NewHandler(svc, memViews{}, 1<<20, logger.NewNop())
	start := domain.MustTimeOfDay("09:00")
	end := domain.MustTimeOfDay("13:30")
	svc.On("EndTimeOptions", start).Return([]domain.TimeOfDay{end}, nil)

	rec := httptest.NewRecorder()
	h.EndOptionsHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/timeslots/end-options?start=09:00", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var opts []TimeOption
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	require.Len(t, opts, 1)
	hours, minutes, err := scheduler.ComputeDuration(start, end)
	require.NoError(t, err)
	assert.Equal(t, "13:30", opts[0].Value)
	assert.Equal(t, scheduler.FormatDuration(hours, minutes), opts[0].Duration)
}

func TestEndOptionsHandler_InvalidStart(t *testing.T) {
	h := NewHandler(new(MockTaskService), memViews{}, 1<<20, logger.NewNop())

	rec := httptest.NewRecorder()
	h.EndOptionsHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/timeslots/end-options?start=meio-dia", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
