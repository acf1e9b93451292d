// identity превращает bearer JWT внешнего провайдера в непрозрачный clientID.
// Без токена клиент считается анонимным и ключуется по IP.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken — подпись/формат/issuer не прошли проверку.
	// Транспорт: 401.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — токен истёк.
	// Транспорт: 401.
	ErrTokenExpired = errors.New("token expired")
)

// Identity — результат проверки: аутентифицированный пользователь или аноним.
type Identity struct {
	ClientID      string
	Authenticated bool
	Email         string
}

// claims — полезная нагрузка токена провайдера (HS256, общий секрет).
type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Provider проверяет токены. Пустой secret отключает проверку: все запросы анонимны.
type Provider struct {
	secret []byte
	issuer string
}

func New(secret, issuer string) *Provider {
	return &Provider{secret: []byte(secret), issuer: issuer}
}

// Enabled — true, если задан секрет.
func (p *Provider) Enabled() bool { return len(p.secret) > 0 }

// Resolve возвращает Identity для токена (может быть пустым) и IP клиента.
func (p *Provider) Resolve(token, remoteIP string) (Identity, error) {
	const op = "identity/Resolve"

	token = strings.TrimSpace(token)
	if token == "" || !p.Enabled() {
		return Anonymous(remoteIP), nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5 * time.Second),
		jwt.WithExpirationRequired(),
	}

	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return Identity{ClientID: "user:" + c.Subject, Authenticated: true, Email: c.Email}, nil
}

// Anonymous — анонимная Identity, ключ "anon:<ip>".
func Anonymous(remoteIP string) Identity {
	if remoteIP == "" {
		remoteIP = "unknown"
	}

	return Identity{ClientID: "anon:" + remoteIP}
}

type ctxKey struct{}

// Into кладёт Identity в контекст.
func Into(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From достаёт Identity из контекста.
func From(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
