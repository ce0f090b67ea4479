package draftrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sitetrack/internal/domain"
	"sitetrack/internal/errors"
	"sitetrack/internal/pkg/cache"
	"sitetrack/internal/pkg/logger"
)

const draftKey = "task-draft:%s"

// DraftRepository guarda rascunhos de tarefa no Redis. O TTL é renovado a cada gravação.
type DraftRepository struct {
	Cache        cache.Client
	TTL          time.Duration
	CacheTimeout time.Duration
	logger       logger.Logger
}

func NewDraftRepository(c cache.Client, ttl, cacheTimeout time.Duration, logger logger.Logger) *DraftRepository {
	return &DraftRepository{Cache: c, TTL: ttl, CacheTimeout: cacheTimeout, logger: logger}
}

func (r *DraftRepository) Save(ctx context.Context, d domain.TaskDraft) (domain.TaskDraft, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.CacheTimeout)
	defer cancel()

	d.ExpiresAt = time.Now().UTC().Add(r.TTL)
	payload, err := json.Marshal(d)
	if err != nil {
		return domain.TaskDraft{}, errors.NewInternalError("falha ao serializar rascunho", err)
	}
	if err := r.Cache.Set(ctxTimeout, fmt.Sprintf(draftKey, d.ID), payload, r.TTL); err != nil {
		r.logger.Error("Falha ao gravar rascunho no Redis.", err)
		return domain.TaskDraft{}, errors.NewInternalError("falha ao gravar rascunho", err)
	}
	r.logger.Debug("Rascunho gravado.", map[string]interface{}{"draft_id": d.ID, "slots": len(d.Input.TimeSlots)})
	return d, nil
}

func (r *DraftRepository) FindByID(ctx context.Context, id string) (domain.TaskDraft, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.CacheTimeout)
	defer cancel()

	raw, err := r.Cache.Get(ctxTimeout, fmt.Sprintf(draftKey, id))
	if err == cache.ErrCacheMiss {
		return domain.TaskDraft{}, errors.NewNotFoundError(fmt.Sprintf("Rascunho %s não existe ou expirou.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao ler rascunho do Redis.", err)
		return domain.TaskDraft{}, errors.NewInternalError("falha ao ler rascunho", err)
	}

	var d domain.TaskDraft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return domain.TaskDraft{}, errors.NewInternalError("rascunho corrompido", err)
	}
	return d, nil
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.CacheTimeout)
	defer cancel()

	if err := r.Cache.Delete(ctxTimeout, fmt.Sprintf(draftKey, id)); err != nil {
		r.logger.Error("Falha ao remover rascunho do Redis.", err)
		return errors.NewInternalError("falha ao remover rascunho", err)
	}
	return nil
}
