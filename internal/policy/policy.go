// Package policy concentra as regras de quem pode editar, excluir ou aprovar
// produtos e tarefas. As funções são puras e não acessam persistência.
package policy

import (
	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
)

func isOwner(s domain.Session, ownerID string) bool {
	return s.UserID != "" && s.UserID == ownerID
}

// CanEditProduct: administradores sempre; donos apenas enquanto o produto não foi aprovado.
func CanEditProduct(s domain.Session, p domain.Product) bool {
	return s.IsAdmin() || (isOwner(s, p.UserID) && p.Status != domain.ProductApproved)
}

func CanDeleteProduct(s domain.Session, p domain.Product) bool {
	return CanEditProduct(s, p)
}

// CanEditTask: administradores sempre; donos enquanto a tarefa não foi concluída.
func CanEditTask(s domain.Session, t domain.Task) bool {
	return s.IsAdmin() || (isOwner(s, t.UserID) && t.Status != domain.TaskCompleted)
}

// CanDeleteTask: administradores sempre; donos apenas se nenhum horário foi aprovado.
func CanDeleteTask(s domain.Session, t domain.Task) bool {
	return s.IsAdmin() || (isOwner(s, t.UserID) && !t.HasApprovedSlot())
}

// CanEditTaskNotes vale mesmo para tarefas concluídas.
func CanEditTaskNotes(s domain.Session, t domain.Task) bool {
	return s.IsAdmin() || isOwner(s, t.UserID)
}

// CanEditTaskSchedule permite mexer na agenda; os bloqueios por horário aprovado
// são aplicados pelo scheduler.
func CanEditTaskSchedule(s domain.Session, t domain.Task) bool {
	return s.IsAdmin() || isOwner(s, t.UserID)
}

func CanSetApproval(s domain.Session) bool {
	return s.IsAdmin()
}

func CanViewProduct(s domain.Session, p domain.Product) bool {
	return s.IsAdmin() || isOwner(s, p.UserID)
}

func CanViewTask(s domain.Session, t domain.Task) bool {
	return s.IsAdmin() || isOwner(s, t.UserID)
}

// --- Helpers que traduzem a decisão em erro ---

func RequireEditProduct(s domain.Session, p domain.Product) error {
	if !CanEditProduct(s, p) {
		if p.Status == domain.ProductApproved {
			return apperror.NewPermissionDeniedError("produtos aprovados só podem ser alterados por administradores")
		}
		return apperror.NewPermissionDeniedError("você não pode alterar este produto")
	}
	return nil
}

func RequireDeleteProduct(s domain.Session, p domain.Product) error {
	if !CanDeleteProduct(s, p) {
		return apperror.NewPermissionDeniedError("você não pode excluir este produto")
	}
	return nil
}

func RequireEditTask(s domain.Session, t domain.Task) error {
	if !CanEditTask(s, t) {
		if t.Status == domain.TaskCompleted {
			return apperror.NewPermissionDeniedError("tarefas concluídas só podem ser alteradas por administradores")
		}
		return apperror.NewPermissionDeniedError("você não pode alterar esta tarefa")
	}
	return nil
}

func RequireDeleteTask(s domain.Session, t domain.Task) error {
	if !CanDeleteTask(s, t) {
		if t.HasApprovedSlot() {
			return apperror.NewPermissionDeniedError("tarefas com horários aprovados não podem ser excluídas")
		}
		return apperror.NewPermissionDeniedError("você não pode excluir esta tarefa")
	}
	return nil
}

func RequireEditTaskNotes(s domain.Session, t domain.Task) error {
	if !CanEditTaskNotes(s, t) {
		return apperror.NewPermissionDeniedError("você não pode alterar as observações desta tarefa")
	}
	return nil
}

func RequireEditTaskSchedule(s domain.Session, t domain.Task) error {
	if !CanEditTaskSchedule(s, t) {
		return apperror.NewPermissionDeniedError("você não pode alterar a agenda desta tarefa")
	}
	return nil
}

func RequireSetApproval(s domain.Session) error {
	if !CanSetApproval(s) {
		return apperror.NewPermissionDeniedError("apenas administradores podem aprovar")
	}
	return nil
}

func RequireViewProduct(s domain.Session, p domain.Product) error {
	if !CanViewProduct(s, p) {
		return apperror.NewPermissionDeniedError("você não pode visualizar este produto")
	}
	return nil
}

func RequireViewTask(s domain.Session, t domain.Task) error {
	if !CanViewTask(s, t) {
		return apperror.NewPermissionDeniedError("você não pode visualizar esta tarefa")
	}
	return nil
}
