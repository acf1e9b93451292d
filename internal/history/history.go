// history реализует ограниченный журнал результатов конвейера:
// новые записи в начало, вытеснение с конца, не более Size записей на клиента.
//
// Особенности:
//   - весь журнал клиента хранится одним blob в Slot, каждая мутация
//     перечитывает и перезаписывает его целиком;
//   - мутации сериализуются на уровне экземпляра Store, чтение без блокировки;
//   - нечитаемый или битый blob трактуется как пустая история.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/pkg/log"
	"github.com/pribylovaa/myoutfood/internal/pkg/redact"
)

// DefaultSize — граница журнала.
const DefaultSize = 50

const blobVersion = 1

// document — сериализованный формат blob.
type document struct {
	Version int                   `json:"version"`
	Entries []models.HistoryEntry `json:"entries"`
}

// Store — журнал истории поверх Slot.
type Store struct {
	slot   Slot
	prefix string
	size   int
	mu     sync.Mutex
}

// New создаёт Store. size <= 0 -> DefaultSize; пустой prefix -> "myoutfood_history".
func New(slot Slot, prefix string, size int) *Store {
	if size <= 0 {
		size = DefaultSize
	}

	if prefix == "" {
		prefix = "myoutfood_history"
	}

	return &Store{slot: slot, prefix: prefix, size: size}
}

func (s *Store) key(clientID string) string { return s.prefix + ":" + clientID }

// Append вставляет запись в начало и отрезает хвост сверх размера.
// Если CreatedAt совпадает с существующей записью, он сдвигается на 1ns вперёд,
// чтобы ключ оставался уникальным. Возвращает фактически сохранённую запись.
func (s *Store) Append(ctx context.Context, clientID string, e models.HistoryEntry) (models.HistoryEntry, error) {
	const op = "history/Append"

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx, clientID)
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	e.CreatedAt = uniqueKey(entries, e.CreatedAt.UTC())

	out := make([]models.HistoryEntry, 0, min(len(entries)+1, s.size))
	out = append(out, e)
	out = append(out, entries...)

	if len(out) > s.size {
		out = out[:s.size]
	}

	if err := s.save(ctx, clientID, out); err != nil {
		return models.HistoryEntry{}, fmt.Errorf("%s: %w", op, err)
	}

	return e, nil
}

// List — снимок журнала, новые первыми. Ошибки чтения деградируют в пустой список.
func (s *Store) List(ctx context.Context, clientID string) []models.HistoryEntry {
	entries, err := s.load(ctx, clientID)
	if err != nil {
		log.From(ctx).Warn("history_load_failed",
			slog.String("client_id", redact.ClientID(clientID)),
			slog.String("err", err.Error()),
		)

		return []models.HistoryEntry{}
	}

	return entries
}

// Remove удаляет запись с точным CreatedAt. Отсутствие записи — не ошибка.
func (s *Store) Remove(ctx context.Context, clientID string, createdAt time.Time) error {
	const op = "history/Remove"

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx, clientID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	out := entries[:0]
	for _, e := range entries {
		if !e.CreatedAt.Equal(createdAt) {
			out = append(out, e)
		}
	}

	if len(out) == len(entries) {
		return nil
	}

	if err := s.save(ctx, clientID, out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Clear очищает журнал клиента.
func (s *Store) Clear(ctx context.Context, clientID string) error {
	const op = "history/Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.slot.Delete(ctx, s.key(clientID)); err != nil {
		return fmt.Errorf("%s: delete: %w", op, err)
	}

	return nil
}

// load читает blob. Пустой слот и битый blob -> пустой журнал без ошибки;
// ошибкой считается только сбой самого слота.
func (s *Store) load(ctx context.Context, clientID string) ([]models.HistoryEntry, error) {
	blob, err := s.slot.Load(ctx, s.key(clientID))
	if errors.Is(err, ErrSlotEmpty) {
		return []models.HistoryEntry{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	var doc document
	if err := json.Unmarshal(blob, &doc); err != nil || doc.Version != blobVersion {
		attrs := []any{slog.String("client_id", redact.ClientID(clientID)), slog.Int("version", doc.Version)}
		if err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
		}

		log.From(ctx).Warn("history_blob_corrupt", attrs...)

		return []models.HistoryEntry{}, nil
	}

	if doc.Entries == nil {
		doc.Entries = []models.HistoryEntry{}
	}

	if len(doc.Entries) > s.size {
		doc.Entries = doc.Entries[:s.size]
	}

	return doc.Entries, nil
}

func (s *Store) save(ctx context.Context, clientID string, entries []models.HistoryEntry) error {
	blob, err := json.Marshal(document{Version: blobVersion, Entries: entries})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := s.slot.Save(ctx, s.key(clientID), blob); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	return nil
}

func uniqueKey(entries []models.HistoryEntry, at time.Time) time.Time {
	for {
		taken := false
		for _, e := range entries {
			if e.CreatedAt.Equal(at) {
				taken = true
				break
			}
		}

		if !taken {
			return at
		}

		at = at.Add(time.Nanosecond)
	}
}
