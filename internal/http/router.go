package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pribylovaa/myoutfood/internal/http/handlers"
	"github.com/pribylovaa/myoutfood/internal/http/middleware"
	"github.com/pribylovaa/myoutfood/internal/identity"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api/v1"; если пустой — роуты регистрируются на корне.
	Identity *identity.Provider
	// TrustProxy включает X-Forwarded-For/X-Real-IP для анонимного ключа лимитера.
	TrustProxy bool
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	if opts.Identity == nil {
		opts.Identity = identity.New("", "")
	}

	root := chi.NewRouter()

	if opts.TrustProxy {
		root.Use(chimw.RealIP)
	}

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Identity(opts.Identity),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)

		return root
	}

	registerRoutes(root, h)

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Post("/suggestions", h.CreateSuggestion)

	r.Get("/history", h.ListHistory)
	r.Delete("/history", h.ClearHistory)
	r.Delete("/history/{created_at}", h.RemoveHistoryEntry)

	r.Get("/status/image-generator", h.ImageGeneratorStatus)
}
