package taskservice

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/imagepipe"
	"sitetrack/internal/policy"
	"sitetrack/internal/scheduler"
)

// OpenDraft abre um rascunho de edição. Com taskID vazio o rascunho é de uma
// tarefa nova; caso contrário parte do estado atual da tarefa.
func (s *Service) OpenDraft(ctx context.Context, session domain.Session, taskID string) (domain.TaskDraft, error) {
	draft := domain.TaskDraft{
		ID:        uuid.New().String(),
		OwnerID:   session.UserID,
		TaskID:    taskID,
		CreatedAt: s.now().UTC(),
		Input: domain.TaskInput{
			Status:    domain.TaskInProgress,
			TimeSlots: []domain.TimeSlot{},
		},
	}

	if taskID != "" {
		if err := validateID(taskID); err != nil {
			return domain.TaskDraft{}, err
		}
		task, err := s.repo.FindByID(ctx, taskID)
		if err != nil {
			return domain.TaskDraft{}, err
		}
		if err := policy.RequireEditTaskSchedule(session, task); err != nil {
			return domain.TaskDraft{}, err
		}
		draft.Input = domain.TaskInput{
			Title:          task.Title,
			Site:           task.Site,
			Description:    task.Description,
			Notes:          task.Notes,
			Status:         task.Status,
			TimeSlots:      slices.Clone(task.TimeSlots),
			ExistingImages: slices.Clone(task.Images),
			Version:        task.Version,
		}
	}

	saved, err := s.drafts.Save(ctx, draft)
	if err != nil {
		return domain.TaskDraft{}, err
	}
	s.logger.Debug("Rascunho aberto.", map[string]interface{}{"draft_id": saved.ID, "task_id": taskID, "user_id": session.UserID})
	return saved, nil
}

// GetDraft retorna um rascunho da sessão. Rascunhos são exclusivos de quem os abriu.
func (s *Service) GetDraft(ctx context.Context, session domain.Session, id string) (domain.TaskDraft, error) {
	draft, err := s.drafts.FindByID(ctx, id)
	if err != nil {
		return domain.TaskDraft{}, err
	}
	if draft.OwnerID != session.UserID {
		return domain.TaskDraft{}, apperror.NewPermissionDeniedError("este rascunho pertence a outra sessão")
	}
	return draft, nil
}

// mutateSlots aplica op aos horários do rascunho e grava. Em erro o rascunho fica como estava.
func (s *Service) mutateSlots(ctx context.Context, session domain.Session, id string, op func([]domain.TimeSlot) ([]domain.TimeSlot, error)) (domain.TaskDraft, error) {
	draft, err := s.GetDraft(ctx, session, id)
	if err != nil {
		return domain.TaskDraft{}, err
	}
	slots, err := op(draft.Input.TimeSlots)
	if err != nil {
		return domain.TaskDraft{}, err
	}
	draft.Input.TimeSlots = slots
	return s.drafts.Save(ctx, draft)
}

// UpdateDraft substitui os campos de texto do rascunho. Uma lista de horários
// não nula é conciliada com a atual sob as mesmas regras das operações de horário.
func (s *Service) UpdateDraft(ctx context.Context, session domain.Session, id string, input domain.TaskInput) (domain.TaskDraft, error) {
	draft, err := s.GetDraft(ctx, session, id)
	if err != nil {
		return domain.TaskDraft{}, err
	}
	if input.TimeSlots != nil {
		slots, err := scheduler.Reconcile(draft.Input.TimeSlots, input.TimeSlots, session.IsAdmin())
		if err != nil {
			return domain.TaskDraft{}, err
		}
		draft.Input.TimeSlots = slots
	}

	draft.Input.Title = input.Title
	draft.Input.Site = input.Site
	draft.Input.Description = input.Description
	draft.Input.Notes = input.Notes
	if input.Status != "" {
		draft.Input.Status = input.Status
	}
	if input.ExistingImages != nil {
		draft.Input.ExistingImages = input.ExistingImages
	}
	return s.drafts.Save(ctx, draft)
}

// AddSlot acrescenta um horário na data de hoje (no fuso configurado).
func (s *Service) AddSlot(ctx context.Context, session domain.Session, id string) (domain.TaskDraft, error) {
	today := domain.DateOf(s.now().In(s.location))
	return s.mutateSlots(ctx, session, id, func(slots []domain.TimeSlot) ([]domain.TimeSlot, error) {
		return scheduler.AddSlot(slots, today)
	})
}

func (s *Service) RemoveSlot(ctx context.Context, session domain.Session, id string, index int) (domain.TaskDraft, error) {
	return s.mutateSlots(ctx, session, id, func(slots []domain.TimeSlot) ([]domain.TimeSlot, error) {
		return scheduler.RemoveSlot(slots, index, session.IsAdmin())
	})
}

func (s *Service) SetStartTime(ctx context.Context, session domain.Session, id string, index int, t domain.TimeOfDay) (domain.TaskDraft, error) {
	return s.mutateSlots(ctx, session, id, func(slots []domain.TimeSlot) ([]domain.TimeSlot, error) {
		return scheduler.SetStartTime(slots, index, t, session.IsAdmin())
	})
}

func (s *Service) SetEndTime(ctx context.Context, session domain.Session, id string, index int, t domain.TimeOfDay) (domain.TaskDraft, error) {
	return s.mutateSlots(ctx, session, id, func(slots []domain.TimeSlot) ([]domain.TimeSlot, error) {
		return scheduler.SetEndTime(slots, index, t, session.IsAdmin())
	})
}

func (s *Service) SetApproval(ctx context.Context, session domain.Session, id string, index int, approved bool) (domain.TaskDraft, error) {
	return s.mutateSlots(ctx, session, id, func(slots []domain.TimeSlot) ([]domain.TimeSlot, error) {
		return scheduler.SetApproval(slots, index, approved, session.IsAdmin())
	})
}

// CommitDraft valida e grava o rascunho (criação ou edição) e o descarta em caso de sucesso.
// Em erro o rascunho permanece aberto para correção.
func (s *Service) CommitDraft(ctx context.Context, session domain.Session, id string, files []imagepipe.File) (domain.Task, error) {
	draft, err := s.GetDraft(ctx, session, id)
	if err != nil {
		return domain.Task{}, err
	}

	var task domain.Task
	if draft.TaskID == "" {
		task, err = s.CreateTask(ctx, session, draft.Input, files)
	} else {
		task, err = s.UpdateTask(ctx, session, draft.TaskID, draft.Input, files)
	}
	if err != nil {
		return domain.Task{}, err
	}

	if err := s.drafts.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Warn("Rascunho não removido após gravação.", map[string]interface{}{"draft_id": id, "error": err.Error()})
	}
	return task, nil
}

// DiscardDraft cancela a edição sem gravar nada.
func (s *Service) DiscardDraft(ctx context.Context, session domain.Session, id string) error {
	if _, err := s.GetDraft(ctx, session, id); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, id)
}
