// Package watch transforma os eventos de uma coleção em uma sequência de
// snapshots recalculados, usada pelas listagens ao vivo.
package watch

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"sitetrack/internal/pkg/events"
	"sitetrack/internal/pkg/logger"
)

// MinInterval é o intervalo mínimo entre duas reconsultas da mesma assinatura.
const MinInterval = 250 * time.Millisecond

// Source descreve uma assinatura: a coleção, quais eventos interessam e como
// recalcular o snapshot.
type Source[T any] struct {
	Collection string
	Match      func(events.Event) bool // nil aceita todos
	Fetch      func(ctx context.Context) (T, error)
}

// Run busca o snapshot inicial e, se der certo, devolve um canal que já o
// contém e recebe um novo a cada evento relevante. Eventos em rajada são
// agrupados. Uma falha na busca inicial é devolvida como erro e nada é
// assinado; se uma reconsulta falhar nada é enviado e o consumidor continua
// com o último snapshot válido. O canal fecha quando ctx termina.
func Run[T any](ctx context.Context, broker events.Broker, src Source[T], log logger.Logger) (<-chan T, error) {
	evs, unsubscribe := broker.Subscribe(ctx, src.Collection)

	first, err := src.Fetch(ctx)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	out := make(chan T, 1)
	out <- first
	limiter := rate.NewLimiter(rate.Every(MinInterval), 1)

	go func() {
		defer close(out)
		defer unsubscribe()

		emit := func() bool {
			snap, err := src.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				log.Warn("Falha ao recalcular snapshot; mantendo o anterior.", map[string]interface{}{
					"collection": src.Collection,
					"error":      err.Error(),
				})
				return true
			}
			select {
			case out <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-evs:
				if !ok {
					return
				}
				if src.Match != nil && !src.Match(e) {
					continue
				}
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				drain(evs)
				if !emit() {
					return
				}
			}
		}
	}()

	return out, nil
}

// drain descarta os eventos já enfileirados; o próximo snapshot cobre todos eles.
func drain(evs <-chan events.Event) {
	for {
		select {
		case _, ok := <-evs:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
