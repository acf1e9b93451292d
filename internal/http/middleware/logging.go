package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	logctx "github.com/pribylovaa/myoutfood/internal/pkg/log"
)

// Logging кладёт в контекст логгер запроса (с request_id) и по завершении
// пишет запись "http". 5xx пишется с уровнем Error, 4xx с уровнем Warn.
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lg := base
			if id := RequestIDFrom(r.Context()); id != "" {
				lg = lg.With(slog.String("request_id", id))
			}

			ctx := logctx.Into(r.Context(), lg)
			rec := newStatusWriter(w)
			began := time.Now()

			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			lg.LogAttrs(ctx, level, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.Int("status", status),
				slog.Duration("dur", time.Since(began)),
				slog.Int("bytes", rec.count),
			)
		})
	}
}

// routePattern — шаблон chi-маршрута ("/history/{created_at}") или путь, если роутинга не было.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}

	return r.URL.Path
}
