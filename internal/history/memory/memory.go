// memory — Slot в памяти процесса. Подходит для одного инстанса и тестов.
package memory

import (
	"context"
	"sync"

	"github.com/pribylovaa/myoutfood/internal/history"
)

// Slot хранит копии blob по ключу.
type Slot struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ history.Slot = (*Slot)(nil)

func New() *Slot {
	return &Slot{blobs: make(map[string][]byte)}
}

func (s *Slot) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, history.ErrSlotEmpty
	}

	return append([]byte(nil), b...), nil
}

func (s *Slot) Save(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = append([]byte(nil), blob...)

	return nil
}

func (s *Slot) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)

	return nil
}

func (s *Slot) Close() error { return nil }
