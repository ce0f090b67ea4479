package taskservice

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/imagepipe"
	"sitetrack/internal/pkg/events"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/policy"
	"sitetrack/internal/query"
	"sitetrack/internal/scheduler"
	"sitetrack/internal/service/watch"
)

// TaskRepository define o contrato esperado da camada de persistência de tarefas.
type TaskRepository interface {
	Create(ctx context.Context, t domain.Task) (domain.Task, error)
	FindByID(ctx context.Context, id string) (domain.Task, error)
	FindAll(ctx context.Context, scope domain.ListScope) ([]domain.Task, error)
	Update(ctx context.Context, t domain.Task) (domain.Task, error)
	Delete(ctx context.Context, id string) error
}

// DraftRepository guarda os rascunhos abertos.
type DraftRepository interface {
	Save(ctx context.Context, d domain.TaskDraft) (domain.TaskDraft, error)
	FindByID(ctx context.Context, id string) (domain.TaskDraft, error)
	Delete(ctx context.Context, id string) error
}

type UserDirectory interface {
	FindAll(ctx context.Context) (domain.UserDirectory, error)
}

type ImageUploader interface {
	UploadAll(ctx context.Context, files []imagepipe.File, basePath string) ([]string, error)
}

// Service implementa as operações de tarefa e de rascunho.
type Service struct {
	repo     TaskRepository
	drafts   DraftRepository
	users    UserDirectory
	images   ImageUploader
	broker   events.Broker
	location *time.Location
	logger   logger.Logger
	now      func() time.Time
}

// NewService cria o serviço. loc define o fuso usado para "hoje" ao adicionar horários.
func NewService(repo TaskRepository, drafts DraftRepository, users UserDirectory, images ImageUploader, broker events.Broker, loc *time.Location, logger logger.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:     repo,
		drafts:   drafts,
		users:    users,
		images:   images,
		broker:   broker,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID da tarefa deve ser um UUID válido.")
	}
	return nil
}

func requireText(title, site string) error {
	if title == "" {
		return apperror.NewValidationError("O título da tarefa é obrigatório.")
	}
	if site == "" {
		return apperror.NewValidationError("O local da tarefa é obrigatório.")
	}
	return nil
}

func keptImages(current, keep []string) []string {
	if keep == nil {
		return slices.Clone(current)
	}
	out := make([]string, 0, len(current))
	for _, url := range current {
		if slices.Contains(keep, url) {
			out = append(out, url)
		}
	}
	return out
}

func (s *Service) publish(ctx context.Context, typ string, t domain.Task) {
	e := events.Event{Collection: events.CollectionTasks, Type: typ, ID: t.ID, OwnerID: t.UserID, At: s.now().UTC()}
	if err := s.broker.Publish(ctx, e); err != nil {
		s.logger.Warn("Falha ao publicar evento de tarefa.", map[string]interface{}{"task_id": t.ID, "type": typ, "error": err.Error()})
	}
}

// CreateTask valida e grava uma nova tarefa. Não administradores sempre criam
// tarefas em andamento, independentemente do status enviado.
func (s *Service) CreateTask(ctx context.Context, session domain.Session, input domain.TaskInput, files []imagepipe.File) (domain.Task, error) {
	title, site := strings.TrimSpace(input.Title), strings.TrimSpace(input.Site)
	if err := requireText(title, site); err != nil {
		return domain.Task{}, err
	}
	if len(files) > domain.MaxImagesPerEntity {
		return domain.Task{}, apperror.NewValidationError(fmt.Sprintf("No máximo %d imagens por tarefa.", domain.MaxImagesPerEntity))
	}

	status := domain.TaskInProgress
	if session.IsAdmin() && input.Status != "" {
		if !input.Status.Valid() {
			return domain.Task{}, apperror.NewValidationError(fmt.Sprintf("Status inválido: %q.", input.Status))
		}
		status = input.Status
	}

	// Reconcile contra uma agenda vazia aplica as mesmas regras de data única e de aprovação.
	slots, err := scheduler.Reconcile(nil, input.TimeSlots, session.IsAdmin())
	if err != nil {
		return domain.Task{}, err
	}
	if err := scheduler.ValidateSlots(slots); err != nil {
		return domain.Task{}, err
	}

	now := s.now().UTC()
	task := domain.Task{
		ID:            uuid.New().String(),
		Title:         title,
		Site:          site,
		Description:   strings.TrimSpace(input.Description),
		Notes:         input.Notes,
		Status:        status,
		TimeSlots:     slots,
		UserID:        session.UserID,
		UploaderEmail: session.Email,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	urls, err := s.images.UploadAll(ctx, files, "tasks/"+session.UserID)
	if err != nil {
		return domain.Task{}, err
	}
	task.Images = urls
	if task.Images == nil {
		task.Images = []string{}
	}

	created, err := s.repo.Create(context.WithoutCancel(ctx), task)
	if err != nil {
		return domain.Task{}, err
	}

	s.logger.Info("Tarefa criada.", map[string]interface{}{"task_id": created.ID, "user_id": session.UserID, "slots": len(slots)})
	s.publish(ctx, events.Created, created)
	return created, nil
}

// UpdateTask aplica a edição com permissões por campo: título, local, descrição e
// imagens exigem CanEditTask; status exige administrador; observações e agenda
// continuam editáveis pelo dono mesmo após a conclusão, respeitando os horários aprovados.
func (s *Service) UpdateTask(ctx context.Context, session domain.Session, id string, input domain.TaskInput, files []imagepipe.File) (domain.Task, error) {
	if err := validateID(id); err != nil {
		return domain.Task{}, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.RequireEditTaskNotes(session, current); err != nil {
		return domain.Task{}, err
	}

	title, site := strings.TrimSpace(input.Title), strings.TrimSpace(input.Site)
	description := strings.TrimSpace(input.Description)
	if err := requireText(title, site); err != nil {
		return domain.Task{}, err
	}

	images := keptImages(current.Images, input.ExistingImages)
	coreChanged := title != current.Title || site != current.Site || description != current.Description ||
		len(files) > 0 || !slices.Equal(images, current.Images)
	if coreChanged {
		if err := policy.RequireEditTask(session, current); err != nil {
			return domain.Task{}, err
		}
	}
	if len(images)+len(files) > domain.MaxImagesPerEntity {
		return domain.Task{}, apperror.NewValidationError(fmt.Sprintf("No máximo %d imagens por tarefa.", domain.MaxImagesPerEntity))
	}

	updated := current
	if input.Status != "" && input.Status != current.Status {
		if !session.IsAdmin() {
			return domain.Task{}, apperror.NewPermissionDeniedError("Apenas administradores podem alterar o status da tarefa.")
		}
		if !input.Status.Valid() {
			return domain.Task{}, apperror.NewValidationError(fmt.Sprintf("Status inválido: %q.", input.Status))
		}
		updated.Status = input.Status
	}

	if input.TimeSlots != nil {
		if err := policy.RequireEditTaskSchedule(session, current); err != nil {
			return domain.Task{}, err
		}
		slots, err := scheduler.Reconcile(current.TimeSlots, input.TimeSlots, session.IsAdmin())
		if err != nil {
			return domain.Task{}, err
		}
		updated.TimeSlots = slots
	}
	if err := scheduler.ValidateSlots(updated.TimeSlots); err != nil {
		return domain.Task{}, err
	}

	updated.Title = title
	updated.Site = site
	updated.Description = description
	updated.Notes = input.Notes
	updated.UpdatedAt = s.now().UTC()
	if input.Version > 0 {
		updated.Version = input.Version
	}

	urls, err := s.images.UploadAll(ctx, files, "tasks/"+current.UserID)
	if err != nil {
		return domain.Task{}, err
	}
	updated.Images = append(images, urls...)

	saved, err := s.repo.Update(context.WithoutCancel(ctx), updated)
	if err != nil {
		return domain.Task{}, err
	}

	s.logger.Info("Tarefa atualizada.", map[string]interface{}{"task_id": id, "user_id": session.UserID, "version": saved.Version})
	s.publish(ctx, events.Updated, saved)
	return saved, nil
}

func (s *Service) DeleteTask(ctx context.Context, session domain.Session, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.RequireDeleteTask(session, current); err != nil {
		return err
	}
	if err := s.repo.Delete(context.WithoutCancel(ctx), id); err != nil {
		return err
	}

	s.logger.Info("Tarefa excluída.", map[string]interface{}{"task_id": id, "user_id": session.UserID})
	s.publish(ctx, events.Deleted, current)
	return nil
}

func (s *Service) GetTask(ctx context.Context, session domain.Session, id string) (domain.Task, error) {
	if err := validateID(id); err != nil {
		return domain.Task{}, err
	}
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.RequireViewTask(session, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// SetTaskStatus conclui ou reabre uma tarefa (somente administradores).
func (s *Service) SetTaskStatus(ctx context.Context, session domain.Session, id string, status domain.TaskStatus) (domain.Task, error) {
	if !session.IsAdmin() {
		return domain.Task{}, apperror.NewPermissionDeniedError("Apenas administradores podem alterar o status da tarefa.")
	}
	if !status.Valid() {
		return domain.Task{}, apperror.NewValidationError(fmt.Sprintf("Status inválido: %q.", status))
	}
	if err := validateID(id); err != nil {
		return domain.Task{}, err
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if current.Status == status {
		return current, nil
	}

	current.Status = status
	current.UpdatedAt = s.now().UTC()
	saved, err := s.repo.Update(context.WithoutCancel(ctx), current)
	if err != nil {
		return domain.Task{}, err
	}

	s.logger.Info("Status da tarefa alterado.", map[string]interface{}{"task_id": id, "status": status, "admin_id": session.UserID})
	s.publish(ctx, events.Updated, saved)
	return saved, nil
}

func (s *Service) viewer(ctx context.Context, session domain.Session) query.Viewer {
	v := query.Viewer{IsAdmin: session.IsAdmin()}
	if !v.IsAdmin {
		return v
	}
	dir, err := s.users.FindAll(ctx)
	if err != nil {
		s.logger.Warn("Falha ao carregar diretório de usuários.", map[string]interface{}{"error": err.Error()})
		return v
	}
	v.Directory = dir
	return v
}

func (s *Service) ListTasks(ctx context.Context, session domain.Session, params query.TaskParams) (query.Page[domain.Task], error) {
	items, err := s.repo.FindAll(ctx, domain.ScopeFor(session))
	if err != nil {
		return query.Page[domain.Task]{}, err
	}
	return query.Tasks(items, params, s.viewer(ctx, session)), nil
}

// WatchTasks entrega a página atual e uma nova a cada alteração relevante.
func (s *Service) WatchTasks(ctx context.Context, session domain.Session, params query.TaskParams) (<-chan query.Page[domain.Task], error) {
	src := watch.Source[query.Page[domain.Task]]{
		Collection: events.CollectionTasks,
		Match: func(e events.Event) bool {
			return session.IsAdmin() || e.OwnerID == session.UserID
		},
		Fetch: func(ctx context.Context) (query.Page[domain.Task], error) {
			return s.ListTasks(ctx, session, params)
		},
	}
	return watch.Run(ctx, s.broker, src, s.logger)
}

// StartTimeOptions lista os horários de início oferecidos no formulário.
func (s *Service) StartTimeOptions() []domain.TimeOfDay {
	return scheduler.StartTimeOptions()
}

// EndTimeOptions lista os horários de término possíveis para start.
func (s *Service) EndTimeOptions(start domain.TimeOfDay) ([]domain.TimeOfDay, error) {
	if start.IsZero() {
		return nil, apperror.NewValidationError("Informe o horário de início.")
	}
	return slices.Collect(scheduler.AvailableEndTimes(start)), nil
}
