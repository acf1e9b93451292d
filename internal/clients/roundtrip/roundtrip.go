// roundtrip предоставляет цепочку http.RoundTripper для исходящих вызовов к внешним сервисам.
package roundtrip

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/myoutfood/internal/http/middleware"
	"github.com/pribylovaa/myoutfood/internal/pkg/log"
)

// Func адаптирует функцию к http.RoundTripper.
type Func func(*http.Request) (*http.Response, error)

func (f Func) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Wrapper — обёртка над RoundTripper.
type Wrapper func(http.RoundTripper) http.RoundTripper

// Chain применяет обёртки в порядке перечисления (первая — внешняя).
func Chain(base http.RoundTripper, ws ...Wrapper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	for i := len(ws) - 1; i >= 0; i-- {
		base = ws[i](base)
	}

	return base
}

// WithMetadata добавляет в исходящий запрос:
//   - X-Request-Id (из контекста входящего запроса или новый uuid);
//   - User-Agent (если передан).
func WithMetadata(userAgent string) Wrapper {
	return func(next http.RoundTripper) http.RoundTripper {
		return Func(func(r *http.Request) (*http.Response, error) {
			r = r.Clone(r.Context())

			if r.Header.Get("X-Request-Id") == "" {
				rid := middleware.RequestIDFrom(r.Context())
				if rid == "" {
					rid = uuid.NewString()
				}
				r.Header.Set("X-Request-Id", rid)
			}

			if userAgent != "" {
				r.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(r)
		})
	}
}

// WithTimeout навешивает таймаут d на вызов, если у контекста ещё нет дедлайна.
// Контекст отменяется при закрытии тела ответа.
func WithTimeout(d time.Duration) Wrapper {
	return func(next http.RoundTripper) http.RoundTripper {
		return Func(func(r *http.Request) (*http.Response, error) {
			if d <= 0 {
				return next.RoundTrip(r)
			}

			if _, ok := r.Context().Deadline(); ok {
				return next.RoundTrip(r)
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)

			resp, err := next.RoundTrip(r.WithContext(ctx))
			if err != nil {
				cancel()
				return nil, err
			}

			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}

			return resp, nil
		})
	}
}

// WithLogging пишет одну запись "upstream_http" на вызов: method, host, path, status, dur.
// Query, заголовки и тела не логируются.
func WithLogging(base *slog.Logger) Wrapper {
	return func(next http.RoundTripper) http.RoundTripper {
		return Func(func(r *http.Request) (*http.Response, error) {
			l := base
			if l == nil {
				l = log.From(r.Context())
			}

			start := time.Now()
			resp, err := next.RoundTrip(r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("host", r.URL.Host),
				slog.String("path", r.URL.Path),
				slog.String("request_id", r.Header.Get("X-Request-Id")),
				slog.Duration("dur", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("err", err.Error()))
				l.LogAttrs(r.Context(), slog.LevelWarn, "upstream_http", attrs...)

				return nil, err
			}

			attrs = append(attrs, slog.Int("status", resp.StatusCode))
			l.LogAttrs(r.Context(), slog.LevelDebug, "upstream_http", attrs...)

			return resp, nil
		})
	}
}
