// breaker оборачивает адаптеры стадий в circuit breaker (sony/gobreaker).
// Открытый breaker отвечает KindUpstream без обращения к внешнему сервису.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/stages"
)

// Settings — параметры breaker.
type Settings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
	// OnStateChange — опциональный хук (метрики).
	OnStateChange func(name string, from, to gobreaker.State)
}

func newBreaker(name string, s Settings, logger *slog.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("breaker_state_changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)

			if s.OnStateChange != nil {
				s.OnStateChange(name, from, to)
			}
		},
		IsSuccessful: isSuccessful,
	})
}

// isSuccessful: ошибки входа, отказ по безопасности, лимиты апстрима
// и отмена клиентом не считаются сбоями. 429 и 402 доходят до вызывающего как есть.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}

	switch stages.KindOf(err) {
	case stages.KindInvalid, stages.KindSafetyRejected, stages.KindRateLimited, stages.KindQuotaExceeded:
		return true
	default:
		return false
	}
}

func execute[T any](cb *gobreaker.CircuitBreaker, stage models.Stage, fn func() (T, error)) (T, error) {
	var zero T

	v, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, stages.NewError(stage, stages.KindUpstream, "service temporarily unavailable", err)
		}

		return zero, err
	}

	return v.(T), nil
}

// Captioner — stages.Captioner за breaker.
type Captioner struct {
	next stages.Captioner
	cb   *gobreaker.CircuitBreaker
}

var _ stages.Captioner = (*Captioner)(nil)

func NewCaptioner(next stages.Captioner, s Settings, logger *slog.Logger) *Captioner {
	return &Captioner{next: next, cb: newBreaker("captioner", s, logger)}
}

func (c *Captioner) Caption(ctx context.Context, image []byte, mimeType string) (string, error) {
	return execute(c.cb, models.StageAnalyze, func() (string, error) {
		return c.next.Caption(ctx, image, mimeType)
	})
}

// ImageGenerator — stages.ImageGenerator за breaker. CheckStatus идёт в обход.
type ImageGenerator struct {
	next stages.ImageGenerator
	cb   *gobreaker.CircuitBreaker
}

var _ stages.ImageGenerator = (*ImageGenerator)(nil)

func NewImageGenerator(next stages.ImageGenerator, s Settings, logger *slog.Logger) *ImageGenerator {
	return &ImageGenerator{next: next, cb: newBreaker("image_generator", s, logger)}
}

func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (models.ImageRef, error) {
	return execute(g.cb, models.StageGenerate, func() (models.ImageRef, error) {
		return g.next.Generate(ctx, prompt)
	})
}

func (g *ImageGenerator) CheckStatus(ctx context.Context) error {
	return g.next.CheckStatus(ctx)
}

// PlaceFinder — stages.PlaceFinder за breaker.
type PlaceFinder struct {
	next stages.PlaceFinder
	cb   *gobreaker.CircuitBreaker
}

var _ stages.PlaceFinder = (*PlaceFinder)(nil)

func NewPlaceFinder(next stages.PlaceFinder, s Settings, logger *slog.Logger) *PlaceFinder {
	return &PlaceFinder{next: next, cb: newBreaker("place_finder", s, logger)}
}

func (p *PlaceFinder) Find(ctx context.Context, caption, location string) ([]models.PlaceSuggestion, error) {
	return execute(p.cb, models.StageFindPlaces, func() ([]models.PlaceSuggestion, error) {
		return p.next.Find(ctx, caption, location)
	})
}
