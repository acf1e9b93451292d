// places реализует stages.PlaceFinder: один вызов LLM (OpenAI-совместимый
// chat completions endpoint) и разбор свободного текста в рестораны.
package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/pkg/log"
	"github.com/pribylovaa/myoutfood/internal/stages"
)

const systemPrompt = "You are a local food guide. Answer only with the requested restaurant blocks."

// Options — параметры PlaceFinder.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Finder реализует stages.PlaceFinder.
type Finder struct {
	client openai.Client
	model  string
}

var _ stages.PlaceFinder = (*Finder)(nil)

// New создаёт Finder. Ретраи SDK отключены: повтор решает вызывающий.
func New(opts Options) (*Finder, error) {
	if opts.Model == "" {
		return nil, errors.New("places: model is required")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}

	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Finder{client: openai.NewClient(reqOpts...), model: opts.Model}, nil
}

// Find запрашивает три ресторана рядом с location под описание caption.
// Ответ без валидных блоков -> пустой срез без ошибки.
func (f *Finder) Find(ctx context.Context, caption, location string) ([]models.PlaceSuggestion, error) {
	const op = "stages/places/Find"

	caption = strings.TrimSpace(caption)
	location = strings.TrimSpace(location)

	if caption == "" || location == "" {
		return nil, stages.NewError(models.StageFindPlaces, stages.KindInvalid, "caption and location are required", nil)
	}

	lg := log.From(ctx).With("op", op, "model", f.model)

	resp, err := f.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(f.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(caption, location)),
		},
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		lg.Warn("llm_error", slog.String("err", err.Error()))
		return nil, classify(fmt.Errorf("%s: completions: %w", op, err))
	}

	if len(resp.Choices) == 0 {
		return nil, stages.NewError(models.StageFindPlaces, stages.KindUpstream, "llm returned no choices", nil)
	}

	out := Parse(resp.Choices[0].Message.Content)

	lg.Debug("places_parsed", slog.Int("count", len(out)))

	return out, nil
}

// BuildPrompt формирует запрос с фиксированной раскладкой "Ключ: значение".
func BuildPrompt(caption, location string) string {
	return fmt.Sprintf(`Based on this food description: "%s", suggest 3 restaurants in or near %s.
For each restaurant, provide:
Restaurant Name:
Cuisine Type:
Location: (provide exact coordinates in format: latitude, longitude - e.g., 41.0082, 28.9784)
Proximity: (distance from %s)
Rating: (out of 5 stars)
Brief Description: (max 2 sentences about ambiance and specialties)

Format each restaurant suggestion exactly as shown above, separated by a blank line. Ensure coordinates are real and accurate for the location specified.`,
		caption, location, location)
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return stages.FromHTTPStatus(models.StageFindPlaces, apiErr.StatusCode,
			fmt.Sprintf("place finder returned status %d", apiErr.StatusCode))
	}

	return stages.FromTransport(models.StageFindPlaces, err)
}
