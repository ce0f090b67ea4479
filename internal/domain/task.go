package domain

import "time"

// TaskStatus é o estado de uma tarefa.
type TaskStatus string

const (
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	return s == TaskInProgress || s == TaskCompleted
}

// TimeSlot é um intervalo de trabalho agendado em uma data.
// EndTime é opcional; quando presente, deve ser posterior a StartTime no mesmo dia.
type TimeSlot struct {
	Date      Date      `json:"date" swaggertype:"string" example:"2024-05-01"`
	StartTime TimeOfDay `json:"start_time" swaggertype:"string" example:"09:00"`
	EndTime   TimeOfDay `json:"end_time" swaggertype:"string" example:"17:30"`
	Approved  bool      `json:"approved"`
}

// Task é uma ordem de serviço em um local, com agenda e fotos.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Site          string     `json:"site"`
	Description   string     `json:"description"`
	Notes         string     `json:"notes,omitempty"`
	Status        TaskStatus `json:"status"`
	TimeSlots     []TimeSlot `json:"time_slots"`
	Images        []string   `json:"images"`
	UserID        string     `json:"user_id"`
	UploaderEmail string     `json:"uploader_email,omitempty"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasApprovedSlot informa se algum horário da tarefa já foi aprovado.
func (t Task) HasApprovedSlot() bool {
	for _, s := range t.TimeSlots {
		if s.Approved {
			return true
		}
	}
	return false
}

// TaskInput é o payload de criação/edição de tarefa.
type TaskInput struct {
	Title          string     `json:"title"`
	Site           string     `json:"site"`
	Description    string     `json:"description"`
	Notes          string     `json:"notes"`
	Status         TaskStatus `json:"status"`
	TimeSlots      []TimeSlot `json:"time_slots"`
	ExistingImages []string   `json:"existing_images"`
	Version        int        `json:"version"`
}

// TaskDraft é uma cópia em edição de uma tarefa (nova ou existente), mantida
// fora da persistência até ser confirmada ou descartada.
type TaskDraft struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	TaskID    string    `json:"task_id,omitempty"` // vazio para tarefas novas
	Input     TaskInput `json:"input"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
