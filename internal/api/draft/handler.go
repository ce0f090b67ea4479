// Package draft expõe os rascunhos de edição de tarefa: a agenda é montada
// horário a horário e só chega ao banco no commit.
package draft

import (
	"context"
	"net/http"

	"sitetrack/internal/api/transport"
	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/imagepipe"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/pkg/middleware"
)

type DraftService interface {
	OpenDraft(ctx context.Context, s domain.Session, taskID string) (domain.TaskDraft, error)
	GetDraft(ctx context.Context, s domain.Session, id string) (domain.TaskDraft, error)
	UpdateDraft(ctx context.Context, s domain.Session, id string, input domain.TaskInput) (domain.TaskDraft, error)
	AddSlot(ctx context.Context, s domain.Session, id string) (domain.TaskDraft, error)
	RemoveSlot(ctx context.Context, s domain.Session, id string, index int) (domain.TaskDraft, error)
	SetStartTime(ctx context.Context, s domain.Session, id string, index int, t domain.TimeOfDay) (domain.TaskDraft, error)
	SetEndTime(ctx context.Context, s domain.Session, id string, index int, t domain.TimeOfDay) (domain.TaskDraft, error)
	SetApproval(ctx context.Context, s domain.Session, id string, index int, approved bool) (domain.TaskDraft, error)
	CommitDraft(ctx context.Context, s domain.Session, id string, files []imagepipe.File) (domain.Task, error)
	DiscardDraft(ctx context.Context, s domain.Session, id string) error
}

// OpenRequest abre um rascunho; task_id vazio cria uma tarefa nova.
type OpenRequest struct {
	TaskID string `json:"task_id"`
}

// TimeRequest define início ou término de um horário. Vazio limpa o término.
type TimeRequest struct {
	Time domain.TimeOfDay `json:"time" swaggertype:"string" example:"09:00"`
}

type ApprovalRequest struct {
	Approved bool `json:"approved"`
}

// CommitRequest é a parte "payload" do commit multipart; hoje não carrega campos.
type CommitRequest struct{}

type Handler struct {
	Service        DraftService
	MaxUploadBytes int64
	Logger         logger.Logger
}

func NewHandler(svc DraftService, maxUploadBytes int64, log logger.Logger) *Handler {
	return &Handler{Service: svc, MaxUploadBytes: maxUploadBytes, Logger: log}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		transport.Respond(w, r, h.Logger, nil, apperror.NewUnauthorizedError("Sessão ausente."), 0)
	}
	return s, ok
}

// OpenDraftHandler lida com POST /v1/drafts.
// @Summary Abre um rascunho de tarefa
// @Tags drafts
// @Accept json
// @Produce json
// @Param request body OpenRequest true "Tarefa a editar (vazio para nova)"
// @Success 201 {object} domain.TaskDraft
// @Failure 403 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /drafts [post]
func (h *Handler) OpenDraftHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req OpenRequest
	if r.ContentLength != 0 {
		if err := transport.DecodeJSON(r, &req); err != nil {
			transport.Respond(w, r, h.Logger, nil, err, 0)
			return
		}
	}
	d, err := h.Service.OpenDraft(r.Context(), s, req.TaskID)
	transport.Respond(w, r, h.Logger, d, err, http.StatusCreated)
}

// GetDraftHandler lida com GET /v1/drafts/{id}.
// @Summary Busca um rascunho
// @Tags drafts
// @Produce json
// @Param id path string true "ID do rascunho"
// @Success 200 {object} domain.TaskDraft
// @Failure 404 {object} domain.ErrorResponse "Inexistente ou expirado"
// @Security BearerAuth
// @Router /drafts/{id} [get]
func (h *Handler) GetDraftHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	d, err := h.Service.GetDraft(r.Context(), s, r.PathValue("id"))
	transport.Respond(w, r, h.Logger, d, err, http.StatusOK)
}

// UpdateDraftHandler lida com PUT /v1/drafts/{id}.
// @Summary Atualiza os campos do rascunho
// @Tags drafts
// @Accept json
// @Produce json
// @Param id path string true "ID do rascunho"
// @Param input body domain.TaskInput true "Campos da tarefa"
// @Success 200 {object} domain.TaskDraft
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /drafts/{id} [put]
func (h *Handler) UpdateDraftHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var input domain.TaskInput
	if err := transport.DecodeJSON(r, &input); err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	d, err := h.Service.UpdateDraft(r.Context(), s, r.PathValue("id"), input)
	transport.Respond(w, r, h.Logger, d, err, http.StatusOK)
}

// DiscardDraftHandler lida com DELETE /v1/drafts/{id}.
// @Summary Descarta o rascunho
// @Tags drafts
// @Param id path string true "ID do rascunho"
// @Success 204
// @Security BearerAuth
// @Router /drafts/{id} [delete]
func (h *Handler) DiscardDraftHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	err := h.Service.DiscardDraft(r.Context(), s, r.PathValue("id"))
	transport.Respond(w, r, h.Logger, nil, err, http.StatusNoContent)
}

// AddSlotHandler lida com POST /v1/drafts/{id}/slots.
// @Summary Adiciona um horário para hoje
// @Tags drafts
// @Produce json
// @Param id path string true "ID do rascunho"
// @Success 200 {object} domain.TaskDraft
// @Failure 422 {object} domain.ErrorResponse "DUPLICATE_DATE"
// @Security BearerAuth
// @Router /drafts/{id}/slots [post]
func (h *Handler) AddSlotHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	d, err := h.Service.AddSlot(r.Context(), s, r.PathValue("id"))
	transport.Respond(w, r, h.Logger, d, err, http.StatusOK)
}

// RemoveSlotHandler lida com DELETE /v1/drafts/{id}/slots/{index}.
// @Summary Remove um horário
// @Tags drafts
// @Produce json
// @Param id path string true "ID do rascunho"
// @Param index path int true "Índice do horário"
// @Success 200 {object} domain.TaskDraft
// @Failure 422 {object} domain.ErrorResponse "LOCKED"
// @Security BearerAuth
// @Router /drafts/{id}/slots/{index} [delete]
func (h *Handler) RemoveSlotHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	idx, err := transport.PathIndex(r, "index")
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	d, err := h.Service.RemoveSlot(r.Context(), s, r.PathValue("id"), idx)
	transport.Respond(w, r, h.Logger, d, err, http.StatusOK)
}

// SetStartHandler lida com PUT /v1/drafts/{id}/slots/{index}/start.
// @Summary Define o início de um horário (limpa o término)
// @Tags drafts
// @Accept json
// @Produce json
// @Param id path string true "ID do rascunho"
// @Param index path int true "Índice do horário"
// @Param request body TimeRequest true "Horário"
// @Success 200 {object} domain.TaskDraft
// @Security BearerAuth
// @Router /drafts/{id}/slots/{index}/start [put]
func (h *Handler) SetStartHandler(w http.ResponseWriter, r *http.Request) {
	h.setTime(w, r, h.Service.SetStartTime)
}

// SetEndHandler lida com PUT /v1/drafts/{id}/slots/{index}/end.
// @Summary Define o término de um horário
// @Tags drafts
// @Accept json
// @Produce json
// @Param id path string true "ID do rascunho"
// @Param index path int true "Índice do horário"
// @Param request body TimeRequest true "Horário"
// @Success 200 {object} domain.TaskDraft
// @Failure 422 {object} domain.ErrorResponse "INVALID_RANGE ou MISSING_START_TIME"
// @Security BearerAuth
// @Router /drafts/{id}/slots/{index}/end [put]
func (h *Handler) SetEndHandler(w http.ResponseWriter, r *http.Request) {
	h.setTime(w, r, h.Service.SetEndTime)
}

type setTimeFunc func(ctx context.Context, s domain.Session, id string, index int, t domain.TimeOfDay) (domain.TaskDraft, error)

func (h *Handler) setTime(w http.ResponseWriter, r *http.Request, op setTimeFunc) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	idx, err := transport.PathIndex(r, "index")
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	var req TimeRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	d, err := op(r.Context(), s, r.PathValue("id"), idx, req.Time)
	transport.Respond(w, r, h.Logger, d, err, http.StatusOK)
}

// SetApprovalHandler lida com PUT /v1/drafts/{id}/slots/{index}/approval (admin).
// @Summary Aprova ou desaprova um horário
// @Tags drafts
// @Accept json
// @Produce json
// @Param id path string true "ID do rascunho"
// @Param index path int true "Índice do horário"
// @Param request body ApprovalRequest true "Aprovação"
// @Success 200 {object} domain.TaskDraft
// @Failure 403 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /drafts/{id}/slots/{index}/approval [put]
func (h *Handler) SetApprovalHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	idx, err := transport.PathIndex(r, "index")
	if err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	var req ApprovalRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.Respond(w, r, h.Logger, nil, err, 0)
		return
	}
	d, err := h.Service.SetApproval(r.Context(), s, r.PathValue("id"), idx, req.Approved)
	transport.Respond(w, r, h.Logger, d, err, http.StatusOK)
}

// CommitDraftHandler lida com POST /v1/drafts/{id}/commit.
// @Summary Grava o rascunho
// @Description Valida a agenda e cria ou atualiza a tarefa. Novas imagens vão em multipart ("images").
// @Tags drafts
// @Accept json,mpfd
// @Produce json
// @Param id path string true "ID do rascunho"
// @Success 200 {object} domain.Task
// @Failure 409 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /drafts/{id}/commit [post]
func (h *Handler) CommitDraftHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var files []imagepipe.File
	if r.ContentLength != 0 {
		var req CommitRequest
		var err error
		if files, err = transport.DecodeEntity(w, r, h.MaxUploadBytes, &req); err != nil {
			transport.Respond(w, r, h.Logger, nil, err, 0)
			return
		}
	}
	task, err := h.Service.CommitDraft(r.Context(), s, r.PathValue("id"), files)
	transport.Respond(w, r, h.Logger, task, err, http.StatusOK)
}
