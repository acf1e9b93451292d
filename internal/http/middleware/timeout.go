package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/myoutfood/internal/pkg/log"
)

// ErrServiceTimeout — причина отмены контекста по истечении SERVICE_TIMEOUT.
// Разрыв соединения клиентом даёт context.Canceled без этой причины.
var ErrServiceTimeout = errors.New("service timeout exceeded")

// Timeout ограничивает обработку запроса сроком d. Более ранний дедлайн
// родительского контекста сохраняется. d<=0 отключает ограничение.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeoutCause(r.Context(), d, ErrServiceTimeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			switch {
			case errors.Is(context.Cause(ctx), ErrServiceTimeout):
				logctx.From(ctx).Warn("request_deadline_exceeded", slog.Duration("timeout", d))
			case errors.Is(r.Context().Err(), context.Canceled):
				logctx.From(ctx).Info("request_canceled_by_client")
			}
		})
	}
}
