// falai реализует stages.ImageGenerator поверх очереди fal.ai:
// submit -> poll status -> fetch result.
package falai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/pkg/log"
	"github.com/pribylovaa/myoutfood/internal/pkg/redact"
	"github.com/pribylovaa/myoutfood/internal/stages"
)

// Options — параметры генератора.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	ImageSize    string
	MaxPromptLen int
	PollInterval time.Duration
	Deadline     time.Duration
}

// Generator реализует stages.ImageGenerator.
type Generator struct {
	client *http.Client
	opts   Options
}

var _ stages.ImageGenerator = (*Generator)(nil)

// New создаёт генератор. Нулевые интервалы заменяются на 1s/60s.
func New(client *http.Client, opts Options) *Generator {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	if opts.Deadline <= 0 {
		opts.Deadline = 60 * time.Second
	}

	if opts.MaxPromptLen <= 0 {
		opts.MaxPromptLen = 500
	}

	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &Generator{client: client, opts: opts}
}

// Generate ставит задачу и опрашивает её с фиксированным интервалом
// не дольше Deadline. Истечение дедлайна -> KindTimeout.
func (g *Generator) Generate(ctx context.Context, prompt string) (models.ImageRef, error) {
	const op = "stages/falai/Generate"

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return models.ImageRef{}, stages.NewError(models.StageGenerate, stages.KindInvalid, "prompt is empty", nil)
	}

	if n := utf8.RuneCountInString(prompt); n > g.opts.MaxPromptLen {
		return models.ImageRef{}, stages.NewError(models.StageGenerate, stages.KindInvalid,
			fmt.Sprintf("prompt is %d characters, max %d", n, g.opts.MaxPromptLen), nil)
	}

	lg := log.From(ctx).With("op", op, "model", g.opts.Model)

	ctx, cancel := context.WithTimeout(ctx, g.opts.Deadline)
	defer cancel()

	job, err := g.submit(ctx, prompt)
	if err != nil {
		return models.ImageRef{}, g.classify(ctx, err)
	}

	lg = lg.With("request_id", job.RequestID)
	lg.Info("image_job_submitted")

	if err := g.wait(ctx, lg, job); err != nil {
		return models.ImageRef{}, g.classify(ctx, err)
	}

	ref, err := g.result(ctx, job)
	if err != nil {
		return models.ImageRef{}, g.classify(ctx, err)
	}

	lg.Info("image_job_completed", slog.String("kind", string(ref.Kind)))

	return ref, nil
}

// CheckStatus проверяет доступность очереди и валидность ключа.
func (g *Generator) CheckStatus(ctx context.Context) error {
	const op = "stages/falai/CheckStatus"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.opts.BaseURL+"/"+g.opts.Model+"/requests", nil)
	if err != nil {
		return fmt.Errorf("%s: new_request: %w", op, err)
	}

	g.authorize(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return stages.FromTransport(models.StageGenerate, fmt.Errorf("%s: do: %w", op, err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return stages.NewError(models.StageGenerate, stages.KindUpstream, "image generator rejected credentials", nil)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		return stages.FromHTTPStatus(models.StageGenerate, resp.StatusCode,
			fmt.Sprintf("image generator status %d", resp.StatusCode))
	}

	return nil
}

func (g *Generator) submit(ctx context.Context, prompt string) (*submitResponse, error) {
	const op = "stages/falai/submit"

	body, err := json.Marshal(submitRequest{Prompt: prompt, ImageSize: g.opts.ImageSize, NumImages: 1})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal: %w", op, err)
	}

	var out submitResponse
	if err := g.do(ctx, http.MethodPost, g.opts.BaseURL+"/"+g.opts.Model, body, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if out.RequestID == "" {
		return nil, stages.NewError(models.StageGenerate, stages.KindUpstream, "queue returned no request id", nil)
	}

	base := g.opts.BaseURL + "/" + g.opts.Model + "/requests/" + out.RequestID
	if out.StatusURL == "" {
		out.StatusURL = base + "/status"
	}

	if out.ResponseURL == "" {
		out.ResponseURL = base
	}

	return &out, nil
}

// wait — ограниченный по итерациям поллинг с фиксированным интервалом.
func (g *Generator) wait(ctx context.Context, lg *slog.Logger, job *submitResponse) error {
	const op = "stages/falai/wait"

	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()

	maxPolls := int(g.opts.Deadline/g.opts.PollInterval) + 1

	for i := 0; i < maxPolls; i++ {
		var st statusResponse
		if err := g.do(ctx, http.MethodGet, job.StatusURL, nil, &st); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		switch st.Status {
		case statusCompleted:
			return nil
		case statusInQueue, statusInProgress:
			lg.Debug("image_job_pending", slog.String("status", st.Status), slog.Int("poll", i+1))
		default:
			return stages.NewError(models.StageGenerate, stages.KindUpstream,
				fmt.Sprintf("unexpected job status %q", st.Status), nil)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-ticker.C:
		}
	}

	return stages.NewError(models.StageGenerate, stages.KindTimeout, "image generation timed out", nil)
}

func (g *Generator) result(ctx context.Context, job *submitResponse) (models.ImageRef, error) {
	const op = "stages/falai/result"

	var res resultResponse
	if err := g.do(ctx, http.MethodGet, job.ResponseURL, nil, &res); err != nil {
		return models.ImageRef{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(res.Images) == 0 || res.Images[0].URL == "" {
		return models.ImageRef{}, stages.NewError(models.StageGenerate, stages.KindUpstream, "no image in response", nil)
	}

	return toImageRef(res.Images[0])
}

// toImageRef формирует вариант ImageRef один раз: data:-URI -> inline, иначе URL.
func toImageRef(img resultImage) (models.ImageRef, error) {
	if !strings.HasPrefix(img.URL, "data:") {
		return models.URLImage(img.URL), nil
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(img.URL, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return models.ImageRef{}, stages.NewError(models.StageGenerate, stages.KindUpstream, "malformed inline image", nil)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return models.ImageRef{}, stages.NewError(models.StageGenerate, stages.KindUpstream, "malformed inline image", err)
	}

	mime := strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		mime = img.ContentType
	}

	return models.InlineImage(data, mime), nil
}

// do выполняет запрос и декодирует JSON. Не-2xx -> классифицированная *stages.Error.
func (g *Generator) do(ctx context.Context, method, url string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return fmt.Errorf("new_request: %w", err)
	}

	g.authorize(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		log.From(ctx).Warn("http_error", slog.String("url", url), slog.String("err", err.Error()))
		return fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	// Очередь отвечает 202 на статус задачи, пока она не завершена.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		_ = json.Unmarshal(raw, &er)

		log.From(ctx).Warn("falai_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.String("body", redact.Snippet(string(raw), 200)),
		)

		return stages.FromHTTPStatus(models.StageGenerate, resp.StatusCode, statusMessage(resp.StatusCode)).
			WithDetail(fmt.Sprint(er.Detail))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return stages.NewError(models.StageGenerate, stages.KindUpstream, "malformed queue response", err)
	}

	return nil
}

func (g *Generator) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Key "+g.opts.APIKey)
}

// classify сводит ошибку к *stages.Error; истечение внутреннего дедлайна -> KindTimeout.
func (g *Generator) classify(ctx context.Context, err error) error {
	var se *stages.Error
	if errors.As(err, &se) {
		return se
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return stages.NewError(models.StageGenerate, stages.KindTimeout, "image generation timed out", err)
	}

	return stages.FromTransport(models.StageGenerate, err)
}

func statusMessage(code int) string {
	switch code {
	case http.StatusTooManyRequests:
		return "rate limit exceeded, please wait a minute before trying again"
	case http.StatusPaymentRequired:
		return "image generation quota exceeded"
	case http.StatusRequestTimeout:
		return "image generation timed out"
	default:
		return fmt.Sprintf("image generator returned status %d", code)
	}
}
