package task

import (
	"context"
	"net/http"
	"net/url"

	"sitetrack/internal/api/transport"
	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/imagepipe"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/pkg/middleware"
	"sitetrack/internal/query"
	"sitetrack/internal/scheduler"
)

// TaskService define o contrato que o Handler espera da camada de Serviço.
type TaskService interface {
	CreateTask(ctx context.Context, s domain.Session, input domain.TaskInput, files []imagepipe.File) (domain.Task, error)
	UpdateTask(ctx context.Context, s domain.Session, id string, input domain.TaskInput, files []imagepipe.File) (domain.Task, error)
	DeleteTask(ctx context.Context, s domain.Session, id string) error
	GetTask(ctx context.Context, s domain.Session, id string) (domain.Task, error)
	SetTaskStatus(ctx context.Context, s domain.Session, id string, status domain.TaskStatus) (domain.Task, error)
	ListTasks(ctx context.Context, s domain.Session, params query.TaskParams) (query.Page[domain.Task], error)
	WatchTasks(ctx context.Context, s domain.Session, params query.TaskParams) (<-chan query.Page[domain.Task], error)
	StartTimeOptions() []domain.TimeOfDay
	EndTimeOptions(start domain.TimeOfDay) ([]domain.TimeOfDay, error)
}

type ViewStore interface {
	Load(ctx context.Context, userID string) query.ListState[query.TaskFilters]
	Save(ctx context.Context, userID string, s query.ListState[query.TaskFilters])
}

// StatusRequest é o payload de PUT /v1/tasks/{id}/status.
type StatusRequest struct {
	Status domain.TaskStatus `json:"status" example:"completed"`
}

// TimeOption é uma opção dos seletores de horário.
type TimeOption struct {
	Value    string `json:"value" example:"13:30"`
	Label    string `json:"label" example:"1:30 PM"`
	Duration string `json:"duration,omitempty" example:"4h 30min"`
}

// ListResponse é a resposta de GET /v1/tasks.
type ListResponse = transport.ListResponse[domain.Task, query.TaskFilters]

type Handler struct {
	Service        TaskService
	Views          ViewStore
	MaxUploadBytes int64
	Logger         logger.Logger
}

func NewHandler(svc TaskService, views ViewStore, maxUploadBytes int64, log logger.Logger) *Handler {
	return &Handler{
		Service:        svc,
		Views:          views,
		MaxUploadBytes: maxUploadBytes,
		Logger:         log,
	}
}

var filterKeys = []string{"status", "has_images", "users"}

func parseFilters(q url.Values) query.TaskFilters {
	f := query.TaskFilters{
		HasImages: transport.TriState(q, "has_images"),
		Users:     transport.CSV(q, "users"),
	}
	for _, v := range transport.CSV(q, "status") {
		if st := domain.TaskStatus(v); st.Valid() {
			f.Statuses = append(f.Statuses, st)
		}
	}
	return f
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		transport.Respond(w, r, h.Logger, nil, apperror.NewUnauthorizedError("Sessão ausente."), 0)
	}
	return s, ok
}

func (h *Handler) listState(r *http.Request, s domain.Session) query.ListState[query.TaskFilters] {
	state := h.Views.Load(r.Context(), s.UserID)
	transport.ApplyListQuery(&state, r.URL.Query(), filterKeys, parseFilters)
	h.Views.Save(r.Context(), s.UserID, state)
	return state
}

// CreateTaskHandler lida com POST /v1/tasks.
// @Summary Cria uma tarefa
// @Description Aceita JSON ou multipart/form-data (parte "payload" e arquivos "images"). Exige ao menos um horário com início.
// @Tags tasks
// @Accept json,mpfd
// @Produce json
// @Param payload body domain.TaskInput true "Dados da tarefa"
// @Success 201 {object} domain.Task
// @Failure 400 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse "Erro de agenda (kind e slot_index)"
// @Security BearerAuth
// @Router /tasks [post]
func (h *Handler) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var input domain.TaskInput
	files, err := transport.DecodeEntity(w, r, h.MaxUploadBytes, &input)
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	task, err := h.Service.CreateTask(r.Context(), s, input, files)
	transport.Respond(w, r, h.Logger, task, err, http.StatusCreated)
}

// ListTasksHandler lida com GET /v1/tasks.
// @Summary Lista tarefas
// @Tags tasks
// @Produce json
// @Param search query string false "Texto de busca"
// @Param sort query string false "newest, oldest, title-asc, title-desc, time"
// @Param page query int false "Página (base 1)"
// @Param view query string false "grid ou list"
// @Param status query string false "in-progress,completed"
// @Param has_images query bool false "Com/sem imagens"
// @Param users query string false "IDs de usuários (admin)"
// @Success 200 {object} ListResponse
// @Security BearerAuth
// @Router /tasks [get]
func (h *Handler) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	state := h.listState(r, s)
	page, err := h.Service.ListTasks(r.Context(), s, state.Params)
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	transport.Respond(w, r, h.Logger, ListResponse{Page: page, State: state, ActiveFilters: state.Params.Filters.ActiveCount()}, nil, http.StatusOK)
}

// StreamTasksHandler lida com GET /v1/tasks/stream (Server-Sent Events).
// @Summary Acompanha a lista de tarefas
// @Tags tasks
// @Produce text/event-stream
// @Success 200 {object} query.Page[domain.Task]
// @Security BearerAuth
// @Router /tasks/stream [get]
func (h *Handler) StreamTasksHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	state := h.listState(r, s)
	snapshots, err := h.Service.WatchTasks(r.Context(), s, state.Params)
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	transport.StreamSSE(w, r, h.Logger, snapshots)
}

// GetTaskHandler lida com GET /v1/tasks/{id}.
// @Summary Busca uma tarefa
// @Tags tasks
// @Produce json
// @Param id path string true "ID da tarefa"
// @Success 200 {object} domain.Task
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *Handler) GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	task, err := h.Service.GetTask(r.Context(), s, r.PathValue("id"))
	transport.Respond(w, r, h.Logger, task, err, http.StatusOK)
}

// UpdateTaskHandler lida com PUT /v1/tasks/{id}.
// @Summary Edita uma tarefa
// @Description time_slots nulo mantém a agenda atual; horários aprovados só mudam por administradores.
// @Tags tasks
// @Accept json,mpfd
// @Produce json
// @Param id path string true "ID da tarefa"
// @Param payload body domain.TaskInput true "Dados da tarefa"
// @Success 200 {object} domain.Task
// @Failure 403 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *Handler) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var input domain.TaskInput
	files, err := transport.DecodeEntity(w, r, h.MaxUploadBytes, &input)
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	task, err := h.Service.UpdateTask(r.Context(), s, r.PathValue("id"), input, files)
	transport.Respond(w, r, h.Logger, task, err, http.StatusOK)
}

// DeleteTaskHandler lida com DELETE /v1/tasks/{id}.
// @Summary Exclui uma tarefa
// @Tags tasks
// @Param id path string true "ID da tarefa"
// @Success 204
// @Failure 403 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *Handler) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	err := h.Service.DeleteTask(r.Context(), s, r.PathValue("id"))
	transport.Respond(w, r, h.Logger, nil, err, http.StatusNoContent)
}

// SetStatusHandler lida com PUT /v1/tasks/{id}/status (admin).
// @Summary Conclui ou reabre uma tarefa
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "ID da tarefa"
// @Param status body StatusRequest true "Novo status"
// @Success 200 {object} domain.Task
// @Security BearerAuth
// @Router /tasks/{id}/status [put]
func (h *Handler) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	task, err := h.Service.SetTaskStatus(r.Context(), s, r.PathValue("id"), req.Status)
	transport.Respond(w, r, h.Logger, task, err, http.StatusOK)
}

// StartOptionsHandler lida com GET /v1/timeslots/start-options.
// @Summary Horários de início disponíveis
// @Tags timeslots
// @Produce json
// @Success 200 {array} TimeOption
// @Security BearerAuth
// @Router /timeslots/start-options [get]
func (h *Handler) StartOptionsHandler(w http.ResponseWriter, r *http.Request) {
	opts := h.Service.StartTimeOptions()
	out := make([]TimeOption, 0, len(opts))
	for _, t := range opts {
		out = append(out, TimeOption{Value: t.String(), Label: t.Format12h()})
	}
	transport.Respond(w, r, h.Logger, out, nil, http.StatusOK)
}

// EndOptionsHandler lida com GET /v1/timeslots/end-options?start=HH:mm.
// @Summary Horários de término disponíveis
// @Description Opções a cada 30 minutos após o início, com a duração resultante.
// @Tags timeslots
// @Produce json
// @Param start query string true "Início (HH:mm ou h:mm AM/PM)"
// @Success 200 {array} TimeOption
// @Failure 400 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /timeslots/end-options [get]
func (h *Handler) EndOptionsHandler(w http.ResponseWriter, r *http.Request) {
	start, err := domain.ParseTimeOfDay(r.URL.Query().Get("start"))
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, apperror.NewValidationError("Horário de início inválido."), 0)
		return
	}
	ends, err := h.Service.EndTimeOptions(start)
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}

	out := make([]TimeOption, 0, len(ends))
	for _, t := range ends {
		opt := TimeOption{Value: t.String(), Label: t.Format12h()}
		if hours, minutes, err := scheduler.ComputeDuration(start, t); err == nil {
			opt.Duration = scheduler.FormatDuration(hours, minutes)
		}
		out = append(out, opt)
	}
	transport.Respond(w, r, h.Logger, out, nil, http.StatusOK)
}
