package stages

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/pribylovaa/myoutfood/internal/models"
)

// Kind — класс ошибки стадии.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalid — вход отклонён до сетевого вызова.
	KindInvalid
	// KindUpstream — не-2xx статус или битый ответ внешнего сервиса.
	KindUpstream
	// KindTimeout — истёк дедлайн (в т.ч. поллинга).
	KindTimeout
	// KindSafetyRejected — сервис отказался отвечать по политике безопасности.
	KindSafetyRejected
	// KindRateLimited — HTTP 429 от апстрима; повтор после паузы.
	KindRateLimited
	// KindQuotaExceeded — HTTP 402 от апстрима; квота исчерпана до конца периода.
	KindQuotaExceeded
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUpstream:
		return "upstream"
	case KindTimeout:
		return "timeout"
	case KindSafetyRejected:
		return "safety_rejected"
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExceeded:
		return "quota_exceeded"
	default:
		return "unknown"
	}
}

// Error — классифицированная ошибка стадии.
// Detail предназначен только для логов (категории safety, фрагмент ответа).
type Error struct {
	Kind    Kind
	Stage   models.Stage
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError — конструктор классифицированной ошибки.
func NewError(stage models.Stage, kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: msg, Err: err}
}

// WithDetail добавляет диагностическую деталь.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// KindOf извлекает Kind из цепочки ошибок (KindUnknown, если это не *Error).
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}

	return KindUnknown
}

// FromHTTPStatus классифицирует не-2xx статус апстрима.
// 4xx без особого смысла (400, 422) — это KindUpstream: вход уже прошёл валидацию.
func FromHTTPStatus(stage models.Stage, code int, msg string) *Error {
	switch {
	case code == http.StatusTooManyRequests:
		return NewError(stage, KindRateLimited, msg, nil)
	case code == http.StatusPaymentRequired:
		return NewError(stage, KindQuotaExceeded, msg, nil)
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return NewError(stage, KindTimeout, msg, nil)
	default:
		return NewError(stage, KindUpstream, msg, nil)
	}
}

// FromTransport классифицирует ошибку client.Do / ожидания контекста.
func FromTransport(stage models.Stage, err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}

	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(stage, KindTimeout, "deadline exceeded", err)
	case errors.As(err, &ne) && ne.Timeout():
		return NewError(stage, KindTimeout, "network timeout", err)
	case errors.Is(err, context.Canceled):
		return NewError(stage, KindUnknown, "canceled", err)
	default:
		return NewError(stage, KindUpstream, "request failed", err)
	}
}
