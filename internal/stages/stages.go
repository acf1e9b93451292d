// stages определяет контракты адаптеров внешних сервисов (Captioner,
// ImageGenerator, PlaceFinder) и общую таксономию их ошибок.
package stages

import (
	"context"

	"github.com/pribylovaa/myoutfood/internal/models"
)

// Captioner описывает образ на фото и предлагает блюдо.
type Captioner interface {
	// Caption возвращает текст подписи. Невалидный вход -> KindInvalid до сетевого вызова.
	Caption(ctx context.Context, image []byte, mimeType string) (string, error)
}

// ImageGenerator генерирует иллюстрацию по промпту.
type ImageGenerator interface {
	// Generate ставит задачу в очередь и опрашивает её до результата или дедлайна.
	Generate(ctx context.Context, prompt string) (models.ImageRef, error)
	// CheckStatus — дешёвая проверка доступности генератора.
	CheckStatus(ctx context.Context) error
}

// PlaceFinder подбирает рестораны рядом с локацией.
type PlaceFinder interface {
	// Find возвращает пустой срез (без ошибки), если в ответе нет валидных блоков.
	Find(ctx context.Context, caption, location string) ([]models.PlaceSuggestion, error)
}
