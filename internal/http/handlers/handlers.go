package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yuin/goldmark"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/pribylovaa/myoutfood/internal/botverify"
	apierrors "github.com/pribylovaa/myoutfood/internal/errors"
	"github.com/pribylovaa/myoutfood/internal/http/middleware"
	"github.com/pribylovaa/myoutfood/internal/identity"
	"github.com/pribylovaa/myoutfood/internal/models"
	logctx "github.com/pribylovaa/myoutfood/internal/pkg/log"
)

// Suggester — оркестратор конвейера.
type Suggester interface {
	Run(ctx context.Context, req models.PipelineRequest) (models.PipelineResult, error)
}

// HistoryStore — журнал клиента.
type HistoryStore interface {
	List(ctx context.Context, clientID string) []models.HistoryEntry
	Remove(ctx context.Context, clientID string, createdAt time.Time) error
	Clear(ctx context.Context, clientID string) error
}

// BotVerifier — проверка reCAPTCHA на входе.
type BotVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (botverify.Result, error)
}

// StatusChecker — проверка доступности генератора изображений.
type StatusChecker interface {
	CheckStatus(ctx context.Context) error
}

// Deps — зависимости хендлеров. Bot == nil отключает проверку reCAPTCHA.
type Deps struct {
	Pipeline      Suggester
	History       HistoryStore
	Bot           BotVerifier
	Generator     StatusChecker
	MaxImageBytes int64
	StatusTimeout time.Duration
}

// Handlers агрегирует зависимости.
type Handlers struct {
	deps     Deps
	validate *validator.Validate
	md       goldmark.Markdown
}

func New(d Deps) *Handlers {
	if d.MaxImageBytes <= 0 {
		d.MaxImageBytes = 10 << 20
	}

	if d.StatusTimeout <= 0 {
		d.StatusTimeout = 5 * time.Second
	}

	return &Handlers{deps: d, validate: validator.New(), md: goldmark.New()}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Тело кодируется до записи статуса: ошибка кодирования даёт 500, а не обрезанный 200.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, value any) {
	body, err := json.Marshal(value)
	if err != nil {
		logctx.From(r.Context()).Error("response_encode_failed", slog.String("err", err.Error()))
		apierrors.WriteError(w, r, grpcstatus.Error(codes.Internal, "encode response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// clientOf — identity из контекста; без Identity-мидлвара клиент анонимен по IP.
func clientOf(r *http.Request) identity.Identity {
	if id, ok := identity.From(r.Context()); ok {
		return id
	}

	return identity.Anonymous(middleware.RemoteIP(r))
}
