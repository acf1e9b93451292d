// minio предоставляет реализацию storage.ImageArchive на базе MinIO/S3.
// minio.go — конструктор клиента: нормализует endpoint,
// настраивает Secure/creds и проверяет наличие целевого бакета.
// images.go — выгрузка inline-изображений и сборка постоянного URL от PublicBaseURL.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/myoutfood/internal/config"
	"github.com/pribylovaa/myoutfood/internal/storage"
)

// ImageArchive — адаптер MinIO для сгенерированных изображений.
type ImageArchive struct {
	cfg    config.S3Config
	client *mclient.Client
}

// New создаёт клиент MinIO, убирает схему из endpoint, подбирает Secure
// и выполняет fail-fast-проверку бакета. PublicBaseURL обязателен.
func New(ctx context.Context, cfg config.S3Config) (*ImageArchive, error) {
	const op = "storage/minio/New"

	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("%s: public base url is required: %w", op, storage.ErrInvalidArgument)
	}

	endpoint := cfg.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.RootUser, cfg.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	return &ImageArchive{cfg: cfg, client: client}, nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.ImageArchive = (*ImageArchive)(nil)
