package events

import (
	"context"
	"sync"
)

// MemoryBroker entrega eventos dentro do próprio processo. Útil em testes e em
// execuções com uma única instância.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[chan Event]struct{})}
}

// Publish não bloqueia: assinantes com buffer cheio perdem o evento.
func (b *MemoryBroker) Publish(_ context.Context, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[e.Collection] {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, collection string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subs[collection] == nil {
		b.subs[collection] = make(map[chan Event]struct{})
	}
	b.subs[collection][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[collection], ch)
			b.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()

	return ch, unsubscribe
}
