// pipeline реализует оркестратор: фото образа -> подпись -> изображение блюда -> рестораны рядом.
//
// Особенности:
//   - стадии строго последовательны, автоматических повторов нет;
//   - лимитер проверяется после валидации и до первого внешнего вызова;
//   - сбой поиска мест не отменяет подпись и изображение (деградированный успех);
//   - отменённый прогон не пишет историю и не вызывает следующих стадий.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pribylovaa/myoutfood/internal/metrics"
	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/pkg/log"
	"github.com/pribylovaa/myoutfood/internal/pkg/redact"
	"github.com/pribylovaa/myoutfood/internal/stages"
	"github.com/pribylovaa/myoutfood/internal/storage"
)

// Limiter — Admission Controller.
type Limiter interface {
	Allow(clientID string, now time.Time) bool
	RetryAfter(clientID string, now time.Time) time.Duration
}

// HistoryWriter — запись результата в журнал клиента.
type HistoryWriter interface {
	Append(ctx context.Context, clientID string, e models.HistoryEntry) (models.HistoryEntry, error)
}

// Deps — зависимости оркестратора. Archive, Metrics и Now опциональны.
type Deps struct {
	Captioner stages.Captioner
	Generator stages.ImageGenerator
	Places    stages.PlaceFinder
	Limiter   Limiter
	History   HistoryWriter
	Archive   storage.ImageArchive
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Options — ограничения входа.
type Options struct {
	MaxImageBytes    int64
	AllowedMIMETypes []string
	MaxPromptLen     int
}

// Orchestrator — исполнитель прогона.
type Orchestrator struct {
	deps Deps
	opts Options
}

// New создаёт оркестратор.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if opts.MaxPromptLen <= 0 {
		opts.MaxPromptLen = 500
	}

	return &Orchestrator{deps: deps, opts: opts}
}

// Run исполняет прогон.
//
// Поведение/ошибки (*Error):
//   - KindInvalid — пустая локация, пустое/большое изображение, тип вне списка (лимит не расходуется);
//   - KindRateLimited — окно клиента заполнено, стадии не вызываются;
//   - ошибки Analyze/Generate прерывают прогон и не пишут историю;
//   - ошибка FindPlaces даёт результат с Degraded=true, история пишется;
//   - KindCanceled — клиент отменил контекст;
//   - KindTimeout — истёк дедлайн сервиса или стадии.
func (o *Orchestrator) Run(ctx context.Context, req models.PipelineRequest) (models.PipelineResult, error) {
	const op = "pipeline/Run"

	lg := log.From(ctx).With(
		slog.String("op", op),
		slog.String("client_id", redact.ClientID(req.ClientID)),
	)

	var progress models.Progress

	if err := o.validate(req); err != nil {
		lg.Warn("pipeline_invalid_request", slog.String("reason", err.Message))
		o.deps.Metrics.ObserveRun(err.Kind.String())

		return models.PipelineResult{}, err
	}

	_ = progress.Start(models.StageUpload)
	_ = progress.Complete(models.StageUpload)

	now := o.deps.Now()
	allowed := o.deps.Limiter.Allow(req.ClientID, now)
	o.deps.Metrics.ObserveAdmission(allowed)

	if !allowed {
		e := newError(KindRateLimited, models.StageGenerate, nil)
		e.RetryAfter = o.deps.Limiter.RetryAfter(req.ClientID, now)
		e.Stages = progress.Snapshot()

		lg.Warn("pipeline_rate_limited", slog.Duration("retry_after", e.RetryAfter))
		o.deps.Metrics.ObserveRun(e.Kind.String())

		return models.PipelineResult{}, e
	}

	// Analyze.
	caption, err := runStage(ctx, o, &progress, models.StageAnalyze, func(ctx context.Context) (string, error) {
		return o.deps.Captioner.Caption(ctx, req.Image, req.MIMEType)
	})
	if err != nil {
		return models.PipelineResult{}, o.fail(lg, err)
	}

	// Generate.
	prompt := clipPrompt(caption, o.opts.MaxPromptLen)
	image, err := runStage(ctx, o, &progress, models.StageGenerate, func(ctx context.Context) (models.ImageRef, error) {
		return o.deps.Generator.Generate(ctx, prompt)
	})
	if err != nil {
		return models.PipelineResult{}, o.fail(lg, err)
	}

	res := models.PipelineResult{
		Caption: caption,
		Image:   image,
		Places:  []models.PlaceSuggestion{},
	}

	// FindPlaces: сбой не прерывает прогон.
	places, err := runStage(ctx, o, &progress, models.StageFindPlaces, func(ctx context.Context) ([]models.PlaceSuggestion, error) {
		return o.deps.Places.Find(ctx, caption, req.LocationText)
	})
	switch {
	case err != nil && ctx.Err() != nil:
		return models.PipelineResult{}, o.fail(lg, err)
	case err != nil:
		pe := fromStage(models.StageFindPlaces, err)
		var runErr *Error
		if errors.As(err, &runErr) {
			pe = runErr
		}

		res.Degraded = true
		res.DegradedReason = pe.Message

		lg.Warn("pipeline_degraded",
			slog.String("kind", pe.Kind.String()),
			slog.String("err", pe.Error()),
		)
	case places != nil:
		res.Places = places
	}

	if ctx.Err() != nil {
		return models.PipelineResult{}, o.fail(lg, o.interrupted(&progress, models.StageFindPlaces, ctx.Err()))
	}

	res.Image = o.archive(ctx, lg, res.Image)
	res.CompletedAt = o.deps.Now().UTC()
	res.Stages = progress.Snapshot()

	stored, err := o.deps.History.Append(ctx, req.ClientID, models.NewHistoryEntry(res, res.CompletedAt))
	o.deps.Metrics.ObserveHistoryWrite(err)

	if err != nil {
		lg.Error("history_append_failed", slog.String("err", err.Error()))
	} else {
		res.CompletedAt = stored.CreatedAt
	}

	outcome := "success"
	if res.Degraded {
		outcome = "degraded"
	}

	o.deps.Metrics.ObserveRun(outcome)
	lg.Info("pipeline_completed",
		slog.Bool("degraded", res.Degraded),
		slog.Int("places", len(res.Places)),
		slog.String("image_kind", string(res.Image.Kind)),
	)

	return res, nil
}

// runStage проводит фазу через машину состояний и классифицирует ошибку.
// Завершённый контекст до старта фазы -> KindCanceled или KindTimeout без вызова fn.
func runStage[T any](ctx context.Context, o *Orchestrator, p *models.Progress, stage models.Stage, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, o.interrupted(p, stage, err)
	}

	if err := p.Start(stage); err != nil {
		return zero, fmt.Errorf("pipeline/runStage: %w", err)
	}

	start := time.Now()
	out, err := fn(ctx)
	dur := time.Since(start)

	if err != nil {
		_ = p.Fail(stage)

		var pe *Error
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			pe = fromContext(stage, err)
		} else {
			pe = fromStage(stage, err)
		}

		pe.Stages = p.Snapshot()
		o.deps.Metrics.ObserveStage(stage.String(), pe.Kind.String(), dur)

		return zero, pe
	}

	_ = p.Complete(stage)
	o.deps.Metrics.ObserveStage(stage.String(), "ok", dur)

	return out, nil
}

// interrupted — ошибка завершённого контекста без перевода фазы в Error: фаза не начиналась.
func (o *Orchestrator) interrupted(p *models.Progress, stage models.Stage, err error) *Error {
	e := fromContext(stage, err)
	e.Stages = p.Snapshot()

	return e
}

func (o *Orchestrator) fail(lg *slog.Logger, err error) error {
	var pe *Error
	if !errors.As(err, &pe) {
		lg.Error("pipeline_failed", slog.String("err", err.Error()))
		o.deps.Metrics.ObserveRun(KindUnknown.String())

		return newError(KindUnknown, models.StageUpload, err)
	}

	attrs := []any{
		slog.String("stage", pe.Stage.String()),
		slog.String("kind", pe.Kind.String()),
		slog.String("err", pe.Error()),
	}

	var se *stages.Error
	if errors.As(err, &se) && se.Detail != "" {
		attrs = append(attrs, slog.String("detail", se.Detail))
	}

	switch pe.Kind {
	case KindCanceled, KindInvalid, KindSafetyRejected:
		lg.Info("pipeline_stage_failed", attrs...)
	default:
		lg.Warn("pipeline_stage_failed", attrs...)
	}

	o.deps.Metrics.ObserveRun(pe.Kind.String())

	return pe
}

// archive выгружает inline-изображение в архив. Сбой архива не фатален:
// в результате остаётся inline-вариант.
func (o *Orchestrator) archive(ctx context.Context, lg *slog.Logger, ref models.ImageRef) models.ImageRef {
	if o.deps.Archive == nil || ref.Kind != models.ImageKindInline {
		return ref
	}

	archived, err := o.deps.Archive.Archive(ctx, ref)
	if err != nil {
		lg.Warn("image_archive_failed", slog.String("err", err.Error()))
		return ref
	}

	return archived
}

func (o *Orchestrator) validate(req models.PipelineRequest) *Error {
	switch {
	case strings.TrimSpace(req.ClientID) == "":
		return Invalid("client id is required")
	case strings.TrimSpace(req.LocationText) == "":
		return Invalid("location is required")
	case len(req.Image) == 0:
		return Invalid("image is required")
	case o.opts.MaxImageBytes > 0 && int64(len(req.Image)) > o.opts.MaxImageBytes:
		return Invalid(fmt.Sprintf("image exceeds %d bytes", o.opts.MaxImageBytes))
	case len(o.opts.AllowedMIMETypes) > 0 && !slices.Contains(o.opts.AllowedMIMETypes, req.MIMEType):
		return Invalid(fmt.Sprintf("unsupported image type %q", req.MIMEType))
	}

	return nil
}

// clipPrompt обрезает подпись до n рун по границе слова.
func clipPrompt(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	r := []rune(s)[:n]

	cut := len(r)
	for i := len(r) - 1; i > 0; i-- {
		if unicode.IsSpace(r[i]) {
			cut = i
			break
		}
	}

	return strings.TrimRightFunc(string(r[:cut]), unicode.IsSpace)
}
