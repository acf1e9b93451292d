// clients собирает зависимости конвейера из конфигурации: адаптеры стадий
// (с circuit breaker и общим исходящим транспортом), журнал истории,
// архив изображений, reCAPTCHA и проверку токенов.
package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/myoutfood/internal/botverify"
	"github.com/pribylovaa/myoutfood/internal/clients/roundtrip"
	"github.com/pribylovaa/myoutfood/internal/config"
	"github.com/pribylovaa/myoutfood/internal/history"
	"github.com/pribylovaa/myoutfood/internal/history/memory"
	redisslot "github.com/pribylovaa/myoutfood/internal/history/redis"
	"github.com/pribylovaa/myoutfood/internal/identity"
	"github.com/pribylovaa/myoutfood/internal/metrics"
	"github.com/pribylovaa/myoutfood/internal/stages"
	"github.com/pribylovaa/myoutfood/internal/stages/breaker"
	"github.com/pribylovaa/myoutfood/internal/stages/falai"
	"github.com/pribylovaa/myoutfood/internal/stages/gemini"
	"github.com/pribylovaa/myoutfood/internal/stages/places"
	"github.com/pribylovaa/myoutfood/internal/storage"
	minioarchive "github.com/pribylovaa/myoutfood/internal/storage/minio"
)

const userAgent = "myoutfood"

// Clients агрегирует зависимости верхнего уровня.
type Clients struct {
	Captioner stages.Captioner
	Generator stages.ImageGenerator
	Places    stages.PlaceFinder
	History   *history.Store
	// Archive == nil, если S3 выключен.
	Archive storage.ImageArchive
	// Bot == nil, если reCAPTCHA выключена.
	Bot      *botverify.Verifier
	Identity *identity.Provider

	slot history.Slot
}

// New создаёт клиенты. Redis и MinIO проверяются fail-fast.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, m *metrics.Metrics) (*Clients, error) {
	const op = "internal/clients/New"

	// Исходящий транспорт: metadata -> logging -> timeout.
	httpClient := &http.Client{
		Transport: roundtrip.Chain(http.DefaultTransport,
			roundtrip.WithMetadata(userAgent),
			roundtrip.WithLogging(log),
			roundtrip.WithTimeout(cfg.Timeouts.Service),
		),
	}

	bs := breaker.Settings{
		MaxRequests:   cfg.Breaker.MaxRequests,
		Interval:      cfg.Breaker.Interval,
		Timeout:       cfg.Breaker.Timeout,
		FailureRatio:  cfg.Breaker.FailureRatio,
		MinRequests:   cfg.Breaker.MinRequests,
		OnStateChange: m.BreakerStateChanged,
	}

	captioner, err := gemini.New(ctx, httpClient, gemini.Options{
		APIKey:           cfg.Gemini.APIKey,
		BaseURL:          cfg.Gemini.BaseURL,
		APIVersion:       cfg.Gemini.APIVersion,
		Model:            cfg.Gemini.Model,
		MaxImageBytes:    cfg.Limits.MaxImageBytes,
		AllowedMIMETypes: cfg.Limits.AllowedMIMETypes,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: gemini: %w", op, err)
	}

	generator := falai.New(httpClient, falai.Options{
		APIKey:       cfg.FalAI.APIKey,
		BaseURL:      cfg.FalAI.BaseURL,
		Model:        cfg.FalAI.Model,
		ImageSize:    cfg.FalAI.ImageSize,
		MaxPromptLen: cfg.Limits.MaxPromptLen,
		PollInterval: cfg.FalAI.PollInterval,
		Deadline:     cfg.FalAI.Deadline,
	})

	finder, err := places.New(places.Options{
		APIKey:     cfg.Places.APIKey,
		BaseURL:    cfg.Places.BaseURL,
		Model:      cfg.Places.Model,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: places: %w", op, err)
	}

	slot, err := newSlot(ctx, cfg.History)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := &Clients{
		Captioner: breaker.NewCaptioner(captioner, bs, log),
		Generator: breaker.NewImageGenerator(generator, bs, log),
		Places:    breaker.NewPlaceFinder(finder, bs, log),
		History:   history.New(slot, cfg.History.Prefix, cfg.Limits.HistorySize),
		Identity:  identity.New(cfg.Identity.JWTSecret, cfg.Identity.Issuer),
		slot:      slot,
	}

	if cfg.S3.Enabled {
		archive, err := minioarchive.New(ctx, cfg.S3)
		if err != nil {
			_ = slot.Close()
			return nil, fmt.Errorf("%s: s3: %w", op, err)
		}

		c.Archive = archive
	}

	if cfg.Recaptcha.Enabled {
		c.Bot = botverify.New(httpClient, cfg.Recaptcha.Secret, cfg.Recaptcha.VerifyURL, cfg.Recaptcha.MinScore)
	}

	log.Info("clients_initialized",
		slog.String("history_backend", cfg.History.Backend),
		slog.Bool("s3", cfg.S3.Enabled),
		slog.Bool("recaptcha", cfg.Recaptcha.Enabled),
		slog.Bool("identity", c.Identity.Enabled()),
	)

	return c, nil
}

func newSlot(ctx context.Context, cfg config.HistoryConfig) (history.Slot, error) {
	switch cfg.Backend {
	case config.HistoryBackendRedis:
		slot, err := redisslot.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("history slot: %w", err)
		}

		return slot, nil
	default:
		return memory.New(), nil
	}
}

// pinger — слот с проверкой соединения (Redis).
type pinger interface {
	Ping(ctx context.Context) error
}

// Ready проверяет внешние зависимости, без которых сервис не принимает трафик.
// Слот в памяти всегда готов.
func (c *Clients) Ready(ctx context.Context) error {
	p, ok := c.slot.(pinger)
	if !ok {
		return nil
	}

	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("internal/clients/Ready: history slot: %w", err)
	}

	return nil
}

// Close освобождает соединения.
func (c *Clients) Close() error {
	if c.slot == nil {
		return nil
	}

	return c.slot.Close()
}
