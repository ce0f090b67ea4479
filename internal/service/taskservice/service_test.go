package taskservice_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/imagepipe"
	"sitetrack/internal/pkg/events"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/query"
	"sitetrack/internal/service/taskservice"
)

// MockTaskRepository devolve em Create/Update a própria tarefa recebida.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	args := m.Called(ctx, t)
	return t, args.Error(0)
}

func (m *MockTaskRepository) FindByID(ctx context.Context, id string) (domain.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *MockTaskRepository) FindAll(ctx context.Context, scope domain.ListScope) ([]domain.Task, error) {
	args := m.Called(ctx, scope)
	return args.Get(0).([]domain.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, t domain.Task) (domain.Task, error) {
	args := m.Called(ctx, t)
	t.Version++
	return t, args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) FindAll(ctx context.Context) (domain.UserDirectory, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.UserDirectory), args.Error(1)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadAll(ctx context.Context, files []imagepipe.File, basePath string) ([]string, error) {
	args := m.Called(ctx, files, basePath)
	urls, _ := args.Get(0).([]string)
	return urls, args.Error(1)
}

// memDrafts é um DraftRepository em memória.
type memDrafts struct {
	mu     sync.Mutex
	drafts map[string]domain.TaskDraft
}

func (m *memDrafts) Save(_ context.Context, d domain.TaskDraft) (domain.TaskDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.ID] = d
	return d, nil
}

func (m *memDrafts) FindByID(_ context.Context, id string) (domain.TaskDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return domain.TaskDraft{}, apperror.NewNotFoundError("rascunho " + id)
	}
	return d, nil
}

func (m *memDrafts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
	return nil
}

var (
	owner = domain.Session{UserID: "u-1", Email: "ana@obra.com", Role: domain.RoleUser}
	other = domain.Session{UserID: "u-2", Email: "bia@obra.com", Role: domain.RoleUser}
	admin = domain.Session{UserID: "adm", Email: "chefe@obra.com", Role: domain.RoleAdmin}
)

type fixture struct {
	repo   *MockTaskRepository
	drafts *memDrafts
	users  *MockUserDirectory
	images *MockUploader
	broker *events.MemoryBroker
	svc    *taskservice.Service
}

func newFixture() fixture {
	f := fixture{
		repo:   new(MockTaskRepository),
		drafts: &memDrafts{drafts: map[string]domain.TaskDraft{}},
		users:  new(MockUserDirectory),
		images: new(MockUploader),
		broker: events.NewMemoryBroker(),
	}
	f.svc = taskservice.NewService(f.repo, f.drafts, f.users, f.images, f.broker, time.UTC, logger.NewNop())
	return f
}

func date(d int) domain.Date { return domain.Date{Year: 2024, Month: 5, Day: d} }

func slot(d int, start, end string, approved bool) domain.TimeSlot {
	s := domain.TimeSlot{Date: date(d), Approved: approved}
	if start != "" {
		s.StartTime = domain.MustTimeOfDay(start)
	}
	if end != "" {
		s.EndTime = domain.MustTimeOfDay(end)
	}
	return s
}

func storedTask(ownerID string, status domain.TaskStatus, slots ...domain.TimeSlot) domain.Task {
	return domain.Task{
		ID:          uuid.NewString(),
		Title:       "Pintura",
		Site:        "Bloco A",
		Description: "Pintar o hall",
		Status:      status,
		TimeSlots:   slots,
		Images:      []string{},
		UserID:      ownerID,
		Version:     2,
	}
}

func TestCreateTask_NonAdminForcedInProgress(t *testing.T) {
	f := newFixture()
	f.images.On("UploadAll", mock.Anything, mock.Anything, "tasks/u-1").Return(nil, nil)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(t domain.Task) bool {
		return t.Status == domain.TaskInProgress && t.UserID == "u-1"
	})).Return(nil)

	input := domain.TaskInput{
		Title:     "Pintura",
		Site:      "Bloco A",
		Status:    domain.TaskCompleted,
		TimeSlots: []domain.TimeSlot{slot(1, "08:00", "12:00", false)},
	}
	task, err := f.svc.CreateTask(context.Background(), owner, input, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, task.Status)
	assert.Equal(t, []string{}, task.Images)
	f.repo.AssertExpectations(t)
}

func TestCreateTask_ScheduleValidation(t *testing.T) {
	cases := map[string]struct {
		slots []domain.TimeSlot
		kind  apperror.ScheduleKind
	}{
		"sem horários":     {nil, apperror.ScheduleMissingSlot},
		"sem início":       {[]domain.TimeSlot{slot(1, "", "", false)}, apperror.ScheduleMissingStartTime},
		"término inválido": {[]domain.TimeSlot{slot(1, "10:00", "09:30", false)}, apperror.ScheduleInvalidRange},
		"data repetida":    {[]domain.TimeSlot{slot(1, "08:00", "", false), slot(1, "09:00", "", false)}, apperror.ScheduleDuplicateDate},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.CreateTask(context.Background(), owner,
				domain.TaskInput{Title: "T", Site: "S", TimeSlots: tc.slots}, nil)
			assert.True(t, apperror.IsScheduleKind(err, tc.kind), "erro: %v", err)
			f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateTask_NonAdminCannotPreApprove(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateTask(context.Background(), owner, domain.TaskInput{
		Title: "T", Site: "S", TimeSlots: []domain.TimeSlot{slot(1, "08:00", "", true)},
	}, nil)
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)
}

func TestCreateTask_RequiresTitleAndSite(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateTask(context.Background(), owner, domain.TaskInput{Title: "T"}, nil)
	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestUpdateTask_OwnerOfCompletedTaskEditsNotesAndSchedule(t *testing.T) {
	f := newFixture()
	current := storedTask("u-1", domain.TaskCompleted, slot(1, "08:00", "12:00", true))
	f.repo.On("FindByID", mock.Anything, current.ID).Return(current, nil)
	f.images.On("UploadAll", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	input := domain.TaskInput{
		Title:       current.Title,
		Site:        current.Site,
		Description: current.Description,
		Notes:       "Faltou tinta",
		TimeSlots:   []domain.TimeSlot{slot(1, "08:00", "12:00", true), slot(2, "13:00", "", false)},
		Version:     2,
	}
	task, err := f.svc.UpdateTask(context.Background(), owner, current.ID, input, nil)

	require.NoError(t, err)
	assert.Equal(t, "Faltou tinta", task.Notes)
	assert.Len(t, task.TimeSlots, 2)
	assert.Equal(t, domain.TaskCompleted, task.Status)
	assert.Equal(t, 3, task.Version)
}

func TestUpdateTask_OwnerOfCompletedTaskCannotChangeTitle(t *testing.T) {
	f := newFixture()
	current := storedTask("u-1", domain.TaskCompleted, slot(1, "08:00", "", false))
	f.repo.On("FindByID", mock.Anything, current.ID).Return(current, nil)

	input := domain.TaskInput{Title: "Outra", Site: current.Site, Description: current.Description}
	_, err := f.svc.UpdateTask(context.Background(), owner, current.ID, input, nil)

	assert.IsType(t, &apperror.PermissionDeniedError{}, err)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateTask_ApprovedSlotIsLockedForOwner(t *testing.T) {
	f := newFixture()
	current := storedTask("u-1", domain.TaskInProgress, slot(1, "08:00", "12:00", true))
	f.repo.On("FindByID", mock.Anything, current.ID).Return(current, nil)

	input := domain.TaskInput{
		Title: current.Title, Site: current.Site, Description: current.Description,
		TimeSlots: []domain.TimeSlot{slot(1, "09:00", "12:00", true)},
	}
	_, err := f.svc.UpdateTask(context.Background(), owner, current.ID, input, nil)

	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleLocked), "erro: %v", err)
}

func TestUpdateTask_StatusChangeRequiresAdmin(t *testing.T) {
	f := newFixture()
	current := storedTask("u-1", domain.TaskInProgress, slot(1, "08:00", "", false))
	f.repo.On("FindByID", mock.Anything, current.ID).Return(current, nil)

	input := domain.TaskInput{Title: current.Title, Site: current.Site, Description: current.Description, Status: domain.TaskCompleted}
	_, err := f.svc.UpdateTask(context.Background(), owner, current.ID, input, nil)
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)

	_, err = f.svc.UpdateTask(context.Background(), other, current.ID, input, nil)
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)
}

func TestDeleteTask(t *testing.T) {
	f := newFixture()
	current := storedTask("u-1", domain.TaskInProgress, slot(1, "08:00", "", true))
	f.repo.On("FindByID", mock.Anything, current.ID).Return(current, nil)
	f.repo.On("Delete", mock.Anything, current.ID).Return(nil)

	err := f.svc.DeleteTask(context.Background(), owner, current.ID)
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)

	require.NoError(t, f.svc.DeleteTask(context.Background(), admin, current.ID))
	f.repo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestSetTaskStatus(t *testing.T) {
	f := newFixture()
	current := storedTask("u-1", domain.TaskInProgress, slot(1, "08:00", "", false))

	_, err := f.svc.SetTaskStatus(context.Background(), owner, current.ID, domain.TaskCompleted)
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)

	f.repo.On("FindByID", mock.Anything, current.ID).Return(current, nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	task, err := f.svc.SetTaskStatus(context.Background(), admin, current.ID, domain.TaskCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, task.Status)
}

func TestListTasks_SortsByFirstSlot(t *testing.T) {
	f := newFixture()
	late := storedTask("u-1", domain.TaskInProgress, slot(1, "14:00", "", false))
	early := storedTask("u-1", domain.TaskInProgress, slot(1, "07:30", "", false))
	f.repo.On("FindAll", mock.Anything, domain.ListScope{OwnerID: "u-1"}).Return([]domain.Task{late, early}, nil)

	page, err := f.svc.ListTasks(context.Background(), owner, query.TaskParams{Sort: query.SortTime, Page: 1})

	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, early.ID, page.Items[0].ID)
}

func TestDraft_NewTaskFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	draft, err := f.svc.OpenDraft(ctx, owner, "")
	require.NoError(t, err)
	assert.Empty(t, draft.TaskID)

	draft, err = f.svc.AddSlot(ctx, owner, draft.ID)
	require.NoError(t, err)
	require.Len(t, draft.Input.TimeSlots, 1)
	assert.Equal(t, domain.DateOf(time.Now().UTC()), draft.Input.TimeSlots[0].Date)

	_, err = f.svc.AddSlot(ctx, owner, draft.ID)
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleDuplicateDate))

	_, err = f.svc.SetEndTime(ctx, owner, draft.ID, 0, domain.MustTimeOfDay("10:00"))
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleInvalidRange))

	draft, err = f.svc.SetStartTime(ctx, owner, draft.ID, 0, domain.MustTimeOfDay("09:00"))
	require.NoError(t, err)

	_, err = f.svc.SetEndTime(ctx, owner, draft.ID, 0, domain.MustTimeOfDay("08:30"))
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleInvalidRange))

	draft, err = f.svc.SetEndTime(ctx, owner, draft.ID, 0, domain.MustTimeOfDay("17:00"))
	require.NoError(t, err)
	assert.Equal(t, "17:00", draft.Input.TimeSlots[0].EndTime.String())

	_, err = f.svc.SetApproval(ctx, owner, draft.ID, 0, true)
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)

	_, err = f.svc.UpdateDraft(ctx, owner, draft.ID, domain.TaskInput{Title: "Elétrica", Site: "Casa 3"})
	require.NoError(t, err)

	f.images.On("UploadAll", mock.Anything, mock.Anything, "tasks/u-1").Return(nil, nil)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(t domain.Task) bool {
		return t.Title == "Elétrica" && len(t.TimeSlots) == 1
	})).Return(nil)

	task, err := f.svc.CommitDraft(ctx, owner, draft.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Casa 3", task.Site)

	_, err = f.svc.GetDraft(ctx, owner, draft.ID)
	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestDraft_FailedCommitKeepsDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	draft, err := f.svc.OpenDraft(ctx, owner, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateDraft(ctx, owner, draft.ID, domain.TaskInput{Title: "T", Site: "S"})
	require.NoError(t, err)

	_, err = f.svc.CommitDraft(ctx, owner, draft.ID, nil)
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleMissingSlot))

	_, err = f.svc.GetDraft(ctx, owner, draft.ID)
	assert.NoError(t, err)
}

func TestDraft_ExistingTaskAndOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	current := storedTask("u-1", domain.TaskInProgress, slot(1, "08:00", "12:00", true))
	f.repo.On("FindByID", mock.Anything, current.ID).Return(current, nil)

	_, err := f.svc.OpenDraft(ctx, other, current.ID)
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)

	draft, err := f.svc.OpenDraft(ctx, owner, current.ID)
	require.NoError(t, err)
	assert.Equal(t, current.Version, draft.Input.Version)
	assert.Equal(t, current.TimeSlots, draft.Input.TimeSlots)

	_, err = f.svc.RemoveSlot(ctx, owner, draft.ID, 0)
	assert.True(t, apperror.IsScheduleKind(err, apperror.ScheduleLocked))

	_, err = f.svc.GetDraft(ctx, admin, draft.ID)
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)

	require.NoError(t, f.svc.DiscardDraft(ctx, owner, draft.ID))
	_, err = f.svc.GetDraft(ctx, owner, draft.ID)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestTimeOptions(t *testing.T) {
	f := newFixture()

	assert.Len(t, f.svc.StartTimeOptions(), 48)

	ends, err := f.svc.EndTimeOptions(domain.MustTimeOfDay("22:30"))
	require.NoError(t, err)
	require.Len(t, ends, 2)
	assert.Equal(t, "23:00", ends[0].String())
	assert.Equal(t, "23:30", ends[1].String())

	_, err = f.svc.EndTimeOptions(domain.TimeOfDay{})
	assert.IsType(t, &apperror.ValidationError{}, err)
}
