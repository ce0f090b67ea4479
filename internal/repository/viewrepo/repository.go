// Package viewrepo guarda no Redis o estado das telas de listagem de cada usuário
// (busca, filtros, ordenação, página e modo de exibição).
package viewrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sitetrack/internal/pkg/cache"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/query"
)

const viewKey = "list-state:%s:%s"

// ViewRepository é genérico no tipo de filtro da listagem.
type ViewRepository[F any] struct {
	cache      cache.Client
	collection string
	ttl        time.Duration
	logger     logger.Logger
}

func New[F any](c cache.Client, collection string, ttl time.Duration, log logger.Logger) *ViewRepository[F] {
	return &ViewRepository[F]{cache: c, collection: collection, ttl: ttl, logger: log}
}

// Load retorna o estado salvo ou o estado inicial. Falhas do Redis não impedem a listagem.
func (r *ViewRepository[F]) Load(ctx context.Context, userID string) query.ListState[F] {
	raw, err := r.cache.Get(ctx, fmt.Sprintf(viewKey, r.collection, userID))
	if err != nil {
		if err != cache.ErrCacheMiss {
			r.logger.Warn("Falha ao ler estado da listagem.", map[string]interface{}{"user_id": userID, "error": err.Error()})
		}
		return query.NewListState[F]()
	}

	var s query.ListState[F]
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return query.NewListState[F]()
	}
	return s
}

func (r *ViewRepository[F]) Save(ctx context.Context, userID string, s query.ListState[F]) {
	payload, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, fmt.Sprintf(viewKey, r.collection, userID), payload, r.ttl); err != nil {
		r.logger.Warn("Falha ao gravar estado da listagem.", map[string]interface{}{"user_id": userID, "error": err.Error()})
	}
}
