// gemini реализует stages.Captioner поверх Gemini API (google.golang.org/genai).
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/pkg/log"
	"github.com/pribylovaa/myoutfood/internal/pkg/redact"
	"github.com/pribylovaa/myoutfood/internal/stages"
)

const captionPrompt = "You're a food critic and fashion guru. Analyze the outfit and the menu/meal photo " +
	"in detail in the best way you can accordingly. You can add emoji without exaggerating. " +
	"And please don't use '*'(star sign) in any title or content "

var harmCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// Options — параметры Captioner.
type Options struct {
	APIKey string
	// BaseURL и APIVersion переопределяют endpoint (прокси, тесты).
	BaseURL          string
	APIVersion       string
	Model            string
	MaxImageBytes    int64
	AllowedMIMETypes []string
}

// Captioner реализует stages.Captioner.
type Captioner struct {
	models *genai.Models
	config *genai.GenerateContentConfig
	opts   Options
}

var _ stages.Captioner = (*Captioner)(nil)

// New создаёт Captioner. HTTP-клиент (транспорт, таймауты) настраивается извне.
func New(ctx context.Context, httpClient *http.Client, opts Options) (*Captioner, error) {
	const op = "stages/gemini/New"

	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 10 << 20
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    opts.BaseURL,
			APIVersion: opts.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Captioner{models: client.Models, config: generateConfig(), opts: opts}, nil
}

func generateConfig() *genai.GenerateContentConfig {
	safety := make([]*genai.SafetySetting, 0, len(harmCategories))
	for _, cat := range harmCategories {
		safety = append(safety, &genai.SafetySetting{
			Category:  cat,
			Threshold: genai.HarmBlockThresholdBlockOnlyHigh,
		})
	}

	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.4),
		TopK:            genai.Ptr[float32](32),
		TopP:            genai.Ptr[float32](1),
		MaxOutputTokens: 1024,
		SafetySettings:  safety,
	}
}

// Caption отправляет фото в generateContent и возвращает склеенный текст кандидата.
func (c *Captioner) Caption(ctx context.Context, image []byte, mimeType string) (string, error) {
	const op = "stages/gemini/Caption"

	if err := c.validate(image, mimeType); err != nil {
		return "", err
	}

	lg := log.From(ctx).With("op", op, "model", c.opts.Model)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(captionPrompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	start := time.Now()

	resp, err := c.models.GenerateContent(ctx, c.opts.Model, contents, c.config)
	if err != nil {
		return "", classify(lg, fmt.Errorf("%s: %w", op, err))
	}

	lg.Debug("gemini_response", slog.Duration("dur", time.Since(start)))

	return extractCaption(resp)
}

// classify переводит ошибку genai в stages.Error: статус API -> FromHTTPStatus,
// остальное (сеть, дедлайн) -> FromTransport.
func classify(lg *slog.Logger, err error) error {
	code, status, msg, ok := apiError(err)
	if !ok {
		lg.Warn("gemini_request_failed", slog.String("err", err.Error()))
		return stages.FromTransport(models.StageAnalyze, err)
	}

	lg.Warn("gemini_bad_status",
		slog.Int("status", code),
		slog.String("upstream_status", status),
		slog.String("message", redact.Snippet(msg, 200)),
	)

	se := stages.FromHTTPStatus(models.StageAnalyze, code, fmt.Sprintf("captioner returned status %d", code)).
		WithDetail(msg)
	se.Err = err

	return se
}

func apiError(err error) (code int, status, msg string, ok bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v.Code, v.Status, v.Message, true
	}

	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return p.Code, p.Status, p.Message, true
	}

	return 0, "", "", false
}

func (c *Captioner) validate(image []byte, mimeType string) error {
	switch {
	case len(image) == 0:
		return stages.NewError(models.StageAnalyze, stages.KindInvalid, "image is empty", nil)
	case int64(len(image)) > c.opts.MaxImageBytes:
		return stages.NewError(models.StageAnalyze, stages.KindInvalid,
			fmt.Sprintf("image exceeds %d bytes", c.opts.MaxImageBytes), nil)
	case len(c.opts.AllowedMIMETypes) > 0 && !slices.Contains(c.opts.AllowedMIMETypes, mimeType):
		return stages.NewError(models.StageAnalyze, stages.KindInvalid,
			fmt.Sprintf("unsupported image type %q", mimeType), nil)
	}

	return nil
}

// extractCaption разбирает ответ: блокировка по безопасности -> KindSafetyRejected
// с категориями HIGH в Detail; нет текста -> KindUpstream.
func extractCaption(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", stages.NewError(models.StageAnalyze, stages.KindUpstream, "captioner returned no candidates", nil)
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", stages.NewError(models.StageAnalyze, stages.KindSafetyRejected, "image was rejected by the safety filter", nil).
			WithDetail(string(fb.BlockReason) + ": " + strings.Join(highCategories(fb.SafetyRatings), ", "))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", stages.NewError(models.StageAnalyze, stages.KindUpstream, "captioner returned no candidates", nil)
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", stages.NewError(models.StageAnalyze, stages.KindSafetyRejected, "image was rejected by the safety filter", nil).
			WithDetail(strings.Join(highCategories(cand.SafetyRatings), ", "))
	}

	if cand.Content != nil {
		texts := make([]string, 0, len(cand.Content.Parts))
		for _, p := range cand.Content.Parts {
			if p == nil || p.Thought {
				continue
			}

			if t := strings.TrimSpace(p.Text); t != "" {
				texts = append(texts, t)
			}
		}

		if len(texts) > 0 {
			return strings.Join(texts, " "), nil
		}
	}

	return "", stages.NewError(models.StageAnalyze, stages.KindUpstream, "captioner response has no text", nil).
		WithDetail("finish_reason=" + string(cand.FinishReason))
}

func highCategories(ratings []*genai.SafetyRating) []string {
	var out []string
	for _, r := range ratings {
		if r != nil && r.Probability == genai.HarmProbabilityHigh {
			out = append(out, string(r.Category))
		}
	}

	return out
}
