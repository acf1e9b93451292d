package history

import (
	"context"
	"errors"
)

// ErrSlotEmpty — в слоте нет данных.
var ErrSlotEmpty = errors.New("history slot is empty")

// Slot — локальное key-value хранилище одного сериализованного blob на клиента.
type Slot interface {
	// Load возвращает blob по ключу или ErrSlotEmpty.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save перезаписывает blob целиком.
	Save(ctx context.Context, key string, blob []byte) error
	// Delete удаляет blob. Отсутствие ключа — не ошибка.
	Delete(ctx context.Context, key string) error
	// Close освобождает ресурсы.
	Close() error
}
