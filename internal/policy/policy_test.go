package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/policy"
)

var (
	admin = domain.Session{UserID: "admin-1", Role: domain.RoleAdmin}
	owner = domain.Session{UserID: "u-1", Role: domain.RoleUser}
	other = domain.Session{UserID: "u-2", Role: domain.RoleUser}
)

func TestCanEditProduct(t *testing.T) {
	unapproved := domain.Product{UserID: "u-1", Status: domain.ProductUnapproved}
	approved := domain.Product{UserID: "u-1", Status: domain.ProductApproved}

	tests := []struct {
		name    string
		session domain.Session
		product domain.Product
		want    bool
	}{
		{"dono com produto não aprovado", owner, unapproved, true},
		{"dono com produto aprovado", owner, approved, false},
		{"outro usuário", other, unapproved, false},
		{"admin com produto aprovado", admin, approved, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.CanEditProduct(tt.session, tt.product))
			assert.Equal(t, tt.want, policy.CanDeleteProduct(tt.session, tt.product))
		})
	}
}

func TestCanEditTask(t *testing.T) {
	inProgress := domain.Task{UserID: "u-1", Status: domain.TaskInProgress}
	completed := domain.Task{UserID: "u-1", Status: domain.TaskCompleted}

	assert.True(t, policy.CanEditTask(owner, inProgress))
	assert.False(t, policy.CanEditTask(owner, completed))
	assert.False(t, policy.CanEditTask(other, inProgress))
	assert.True(t, policy.CanEditTask(admin, completed))

	// Observações e agenda continuam editáveis pelo dono após a conclusão.
	assert.True(t, policy.CanEditTaskNotes(owner, completed))
	assert.True(t, policy.CanEditTaskSchedule(owner, completed))
	assert.False(t, policy.CanEditTaskNotes(other, completed))
}

func TestCanDeleteTask(t *testing.T) {
	withApproved := domain.Task{
		UserID:    "u-1",
		Status:    domain.TaskInProgress,
		TimeSlots: []domain.TimeSlot{{Approved: false}, {Approved: true}},
	}
	withoutApproved := domain.Task{UserID: "u-1", TimeSlots: []domain.TimeSlot{{}}}

	assert.False(t, policy.CanDeleteTask(owner, withApproved))
	assert.True(t, policy.CanDeleteTask(owner, withoutApproved))
	assert.True(t, policy.CanDeleteTask(admin, withApproved))
	assert.False(t, policy.CanDeleteTask(other, withoutApproved))
}

func TestRequireHelpers_ReturnPermissionDenied(t *testing.T) {
	err := policy.RequireEditProduct(owner, domain.Product{UserID: "u-1", Status: domain.ProductApproved})
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)

	err = policy.RequireSetApproval(owner)
	assert.IsType(t, &apperror.PermissionDeniedError{}, err)

	assert.NoError(t, policy.RequireSetApproval(admin))
	assert.NoError(t, policy.RequireDeleteTask(owner, domain.Task{UserID: "u-1"}))
}

func TestEmptySessionIsNeverOwner(t *testing.T) {
	anonymous := domain.Session{}
	assert.False(t, policy.CanEditProduct(anonymous, domain.Product{UserID: ""}))
}
