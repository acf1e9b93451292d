// storage определяет контракт архива сгенерированных изображений.
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/myoutfood/internal/models"
)

// ErrInvalidArgument — пустое или неподдерживаемое изображение.
var ErrInvalidArgument = errors.New("invalid argument")

// ImageArchive выгружает inline-изображения в объектное хранилище,
// чтобы в историю попадала ссылка, а не байты.
type ImageArchive interface {
	// Archive возвращает URL-вариант ImageRef. URL-вариант возвращается как есть.
	Archive(ctx context.Context, ref models.ImageRef) (models.ImageRef, error)
}
