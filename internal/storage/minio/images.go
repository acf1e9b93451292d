package minio

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"

	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/storage"
)

// Archive выгружает inline-изображение в ключ "generated/<yyyy-mm-dd>/<uuid>.<ext>"
// и возвращает URL-вариант. URL-вариант возвращается без изменений.
func (a *ImageArchive) Archive(ctx context.Context, ref models.ImageRef) (models.ImageRef, error) {
	const op = "storage/minio/images/Archive"

	if ref.Kind == models.ImageKindURL {
		return ref, nil
	}

	if ref.Kind != models.ImageKindInline || len(ref.Data) == 0 {
		return models.ImageRef{}, storage.ErrInvalidArgument
	}

	key := path.Join("generated", time.Now().UTC().Format("2006-01-02"), uuid.NewString()+extFor(ref.MIMEType))

	_, err := a.client.PutObject(ctx, a.cfg.Bucket, key, bytes.NewReader(ref.Data), int64(len(ref.Data)),
		mclient.PutObjectOptions{ContentType: ref.MIMEType})
	if err != nil {
		return models.ImageRef{}, fmt.Errorf("%s: put: %w", op, err)
	}

	return models.URLImage(strings.TrimRight(a.cfg.PublicBaseURL, "/") + "/" + key), nil
}

func extFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
