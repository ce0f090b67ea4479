package taskrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"sitetrack/internal/domain"
	"sitetrack/internal/errors"
	"sitetrack/internal/pkg/cache"
	"sitetrack/internal/pkg/logger"
)

const taskCacheKey = "task:%s"

const taskColumns = `id, user_id, title, site, description, notes, status, time_slots,
	images, uploader_email, version, created_at, updated_at`

// TaskRepository persiste tarefas no PostgreSQL. Os horários ficam em uma coluna JSONB.
type TaskRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

func NewTaskRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *TaskRepository {
	return &TaskRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t     domain.Task
		slots []byte
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Site, &t.Description, &t.Notes, &t.Status, &slots,
		pq.Array(&t.Images), &t.UploaderEmail, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}
	if err := json.Unmarshal(slots, &t.TimeSlots); err != nil {
		return domain.Task{}, fmt.Errorf("horários inválidos na tarefa %s: %w", t.ID, err)
	}
	if t.TimeSlots == nil {
		t.TimeSlots = []domain.TimeSlot{}
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	return t, nil
}

func slotsArg(slots []domain.TimeSlot) (string, error) {
	if slots == nil {
		slots = []domain.TimeSlot{}
	}
	b, err := json.Marshal(slots)
	return string(b), err
}

func (r *TaskRepository) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	r.logger.Debug("Inserindo tarefa.", map[string]interface{}{"task_id": t.ID, "user_id": t.UserID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	slots, err := slotsArg(t.TimeSlots)
	if err != nil {
		return domain.Task{}, errors.NewInternalError("falha ao serializar horários", err)
	}

	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.DB.ExecContext(ctxTimeout, query,
		t.ID, t.UserID, t.Title, t.Site, t.Description, t.Notes, t.Status, slots,
		pq.Array(t.Images), t.UploaderEmail, t.Version, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir tarefa no DB.", err)
		return domain.Task{}, errors.NewDBError("Falha ao inserir tarefa", err)
	}

	r.logger.Info("Tarefa criada.", map[string]interface{}{"task_id": t.ID, "slots": len(t.TimeSlots)})
	return t, nil
}

// FindByID busca uma tarefa pelo ID (Cache-Aside).
func (r *TaskRepository) FindByID(ctx context.Context, id string) (domain.Task, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(taskCacheKey, id)
	if cachedData, err := r.Cache.Get(ctxTimeout, key); err == nil {
		var cached domain.Task
		if json.Unmarshal([]byte(cachedData), &cached) == nil {
			return cached, nil
		}
	} else if err != cache.ErrCacheMiss {
		r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"key": key, "error": err.Error()})
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.DB.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Task{}, errors.NewNotFoundError(fmt.Sprintf("Tarefa com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar tarefa no DB.", err)
		return domain.Task{}, errors.NewDBError("Falha ao buscar tarefa no DB", err)
	}

	if taskJSON, marshalErr := json.Marshal(task); marshalErr == nil {
		if err := r.Cache.Set(ctxTimeout, key, taskJSON, r.CacheTTL); err != nil {
			r.logger.Warn("Falha ao gravar tarefa no cache.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return task, nil
}

func (r *TaskRepository) FindAll(ctx context.Context, scope domain.ListScope) ([]domain.Task, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []any{}
	if !scope.All {
		query += ` WHERE user_id = $1`
		args = append(args, scope.OwnerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar tarefas.", err)
		return nil, errors.NewDBError("Falha ao listar tarefas", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			r.logger.Error("Falha ao ler tarefa da listagem.", err)
			return nil, errors.NewDBError("Falha ao ler tarefa", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar tarefas", err)
	}
	return tasks, nil
}

// Update grava a tarefa condicionada à versão (OCC) e retorna a nova versão.
func (r *TaskRepository) Update(ctx context.Context, t domain.Task) (domain.Task, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	slots, err := slotsArg(t.TimeSlots)
	if err != nil {
		return domain.Task{}, errors.NewInternalError("falha ao serializar horários", err)
	}

	query := `
		UPDATE tasks
		SET title = $1, site = $2, description = $3, notes = $4, status = $5, time_slots = $6,
		    images = $7, version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10
		RETURNING version`

	var newVersion int
	err = r.DB.QueryRowContext(ctxTimeout, query,
		t.Title, t.Site, t.Description, t.Notes, t.Status, slots,
		pq.Array(t.Images), t.UpdatedAt,
		t.ID, t.Version,
	).Scan(&newVersion)

	if err == sql.ErrNoRows {
		// Nenhuma linha: a tarefa não existe ou a versão mudou.
		var exists bool
		if err := r.DB.QueryRowContext(ctxTimeout, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
			return domain.Task{}, errors.NewDBError("Falha ao verificar tarefa", err)
		}
		if !exists {
			return domain.Task{}, errors.NewNotFoundError(fmt.Sprintf("Tarefa com ID %s não existe na base de dados.", t.ID))
		}
		r.logger.Warn("Conflito de versão na tarefa.", map[string]interface{}{"task_id": t.ID, "expected_version": t.Version})
		return domain.Task{}, errors.NewConflictError("A tarefa foi modificada por outra pessoa. Recarregue e tente novamente.")
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar tarefa.", err)
		return domain.Task{}, errors.NewDBError("Falha ao atualizar tarefa", err)
	}

	r.invalidate(ctx, t.ID)
	t.Version = newVersion
	r.logger.Info("Tarefa atualizada.", map[string]interface{}{"task_id": t.ID, "version": t.Version})
	return t, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao excluir tarefa.", err)
		return errors.NewDBError("Falha ao excluir tarefa", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Tarefa com ID %s não existe na base de dados.", id))
	}

	r.invalidate(ctx, id)
	r.logger.Info("Tarefa excluída.", map[string]interface{}{"task_id": id})
	return nil
}

func (r *TaskRepository) invalidate(ctx context.Context, id string) {
	key := fmt.Sprintf(taskCacheKey, id)
	if err := r.Cache.Delete(ctx, key); err != nil {
		r.logger.Warn("Falha ao invalidar cache da tarefa.", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
