package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apierrors "github.com/pribylovaa/myoutfood/internal/errors"
	"github.com/pribylovaa/myoutfood/internal/identity"
	logctx "github.com/pribylovaa/myoutfood/internal/pkg/log"
	"github.com/pribylovaa/myoutfood/internal/pkg/redact"
)

// Identity резолвит клиента по Bearer-токену (или IP для анонимов)
// и кладёт identity.Identity в контекст, а client_id в request-scoped логгер.
// Битый или просроченный токен -> 401 unauthenticated.
func Identity(p *identity.Provider) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := p.Resolve(bearerToken(r), RemoteIP(r))
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, identity.ErrTokenExpired) {
					msg = "token expired"
				}

				logctx.From(r.Context()).Warn("identity_rejected", slog.String("reason", msg))
				apierrors.WriteError(w, r, status.Error(codes.Unauthenticated, msg))

				return
			}

			ctx, _ := logctx.With(r.Context(), slog.String("client_id", redact.ClientID(id.ClientID)))
			ctx = identity.Into(ctx, id)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken — значение "Authorization: Bearer <token>" или "".
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) || len(auth) <= len(prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}

// RemoteIP — хост из RemoteAddr (после chi RealIP он уже может быть без порта).
func RemoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
