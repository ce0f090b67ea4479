// Package events publica e assina notificações de alteração das coleções
// (produtos e tarefas) usando o pub/sub do Redis.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"sitetrack/internal/pkg/logger"
)

const (
	CollectionProducts = "products"
	CollectionTasks    = "tasks"
)

// Tipos de evento.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Event descreve uma escrita bem-sucedida em uma coleção.
type Event struct {
	Collection string    `json:"collection"`
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	At         time.Time `json:"at"`
}

// Broker é o contrato usado pelos serviços.
type Broker interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, collection string) (<-chan Event, func())
}

// RedisBroker implementa Broker com canais "sitetrack:events:<coleção>".
type RedisBroker struct {
	rdb    *redis.Client
	logger logger.Logger
}

func NewRedisBroker(rdb *redis.Client, log logger.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, logger: log}
}

func channel(collection string) string {
	return "sitetrack:events:" + collection
}

func (b *RedisBroker) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel(e.Collection), payload).Err()
}

// Subscribe entrega os eventos da coleção até ctx terminar ou unsubscribe ser chamado.
// O canal retornado é fechado ao final.
func (b *RedisBroker) Subscribe(ctx context.Context, collection string) (<-chan Event, func()) {
	ctx, cancel := context.WithCancel(ctx)
	ps := b.rdb.Subscribe(ctx, channel(collection))
	out := make(chan Event, 16)

	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					b.logger.Warn("Evento inválido descartado", map[string]interface{}{"channel": msg.Channel, "error": err.Error()})
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel
}
