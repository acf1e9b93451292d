package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/stages"
)

// ErrorDomain — домен google.rpc.ErrorInfo.
const ErrorDomain = "myoutfood"

// Kind — класс ошибки, видимый вызывающему.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalid
	KindRateLimited
	KindUpstreamUnavailable
	KindTimeout
	KindSafetyRejected
	KindQuotaExceeded
	KindCanceled
	// KindBotRejected — отказ шлюза отправки, в машину состояний не входит.
	KindBotRejected
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindTimeout:
		return "timeout"
	case KindSafetyRejected:
		return "safety_rejected"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindCanceled:
		return "canceled"
	case KindBotRejected:
		return "bot_rejected"
	default:
		return "unknown"
	}
}

// Reason — значение ErrorInfo.Reason.
func (k Kind) Reason() string {
	switch k {
	case KindInvalid:
		return "INVALID"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindUpstreamUnavailable:
		return "UPSTREAM_UNAVAILABLE"
	case KindTimeout:
		return "TIMEOUT"
	case KindSafetyRejected:
		return "SAFETY_REJECTED"
	case KindQuotaExceeded:
		return "QUOTA_EXCEEDED"
	case KindCanceled:
		return "CANCELED"
	case KindBotRejected:
		return "BOT_REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Retryable — имеет ли смысл повторная отправка того же запроса.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindUpstreamUnavailable, KindTimeout, KindUnknown, KindCanceled:
		return true
	default:
		return false
	}
}

func (k Kind) code() codes.Code {
	switch k {
	case KindInvalid:
		return codes.InvalidArgument
	case KindRateLimited:
		return codes.ResourceExhausted
	case KindUpstreamUnavailable:
		return codes.Unavailable
	case KindTimeout:
		return codes.DeadlineExceeded
	case KindSafetyRejected, KindQuotaExceeded:
		return codes.FailedPrecondition
	case KindCanceled:
		return codes.Canceled
	case KindBotRejected:
		return codes.PermissionDenied
	default:
		return codes.Internal
	}
}

// Сообщения для пользователя по классу ошибки.
var guidance = map[Kind]string{
	KindRateLimited:         "You've made too many requests. Please wait a minute before trying again.",
	KindQuotaExceeded:       "We've reached our daily limit. Please try again tomorrow.",
	KindTimeout:             "The request took too long. Please try again with a simpler outfit.",
	KindUpstreamUnavailable: "The service is temporarily unavailable. Please try again shortly.",
	KindSafetyRejected:      "This photo can't be processed because of content restrictions. Please try a different image.",
	KindCanceled:            "The request was canceled.",
	KindBotRejected:         "reCAPTCHA verification failed.",
	KindUnknown:             "Something went wrong. Please try again.",
}

// Error — ошибка прогона: класс, стадия и безопасное сообщение.
// Внутренние детали стадий сюда не попадают, исходная ошибка доступна через Unwrap для логов.
type Error struct {
	Kind       Kind
	Stage      models.Stage
	Message    string
	RetryAfter time.Duration
	// Stages — статусы фаз на момент сбоя (nil для отказов до старта).
	Stages []models.StageState
	err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("pipeline: %s at %s: %s", e.Kind, e.Stage, e.Message)
	if e.err != nil {
		msg += ": " + e.err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error { return e.err }

// Retryable — см. Kind.Retryable.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// GRPCStatus делает ошибку совместимой со status.FromError:
// код по классу, ErrorInfo с reason/stage и RetryInfo для RateLimited.
func (e *Error) GRPCStatus() *status.Status {
	st := status.New(e.Kind.code(), e.Message)

	info := &errdetails.ErrorInfo{
		Reason:   e.Kind.Reason(),
		Domain:   ErrorDomain,
		Metadata: map[string]string{"stage": e.Stage.String()},
	}

	var (
		withDetails *status.Status
		err         error
	)

	if e.RetryAfter > 0 {
		withDetails, err = st.WithDetails(info, &errdetails.RetryInfo{RetryDelay: durationpb.New(e.RetryAfter)})
	} else {
		withDetails, err = st.WithDetails(info)
	}

	if err == nil {
		return withDetails
	}

	return st
}

// newError — ошибка с сообщением по умолчанию для класса.
func newError(kind Kind, stage models.Stage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: guidance[kind], err: err}
}

// Invalid — ошибка валидации запроса (стадия Upload).
func Invalid(msg string) *Error {
	return &Error{Kind: KindInvalid, Stage: models.StageUpload, Message: msg}
}

// BotRejected — отказ проверки reCAPTCHA на шлюзе отправки.
func BotRejected(err error) *Error {
	return newError(KindBotRejected, models.StageUpload, err)
}

// KindOf извлекает Kind из цепочки (KindUnknown, если это не *Error).
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}

	return KindUnknown
}

// fromStage переводит ошибку стадии в ошибку прогона.
// Для KindInvalid сохраняется сообщение стадии: оно описывает вход, а не апстрим.
func fromStage(stage models.Stage, err error) *Error {
	var se *stages.Error
	if !errors.As(err, &se) {
		se = stages.FromTransport(stage, err)
	}

	switch se.Kind {
	case stages.KindInvalid:
		return &Error{Kind: KindInvalid, Stage: stage, Message: se.Message, err: err}
	case stages.KindUpstream:
		return newError(KindUpstreamUnavailable, stage, err)
	case stages.KindTimeout:
		return newError(KindTimeout, stage, err)
	case stages.KindSafetyRejected:
		return newError(KindSafetyRejected, stage, err)
	case stages.KindRateLimited:
		return newError(KindRateLimited, stage, err)
	case stages.KindQuotaExceeded:
		return newError(KindQuotaExceeded, stage, err)
	default:
		return newError(KindUnknown, stage, err)
	}
}

// fromContext классифицирует ошибку завершённого контекста: истёкший дедлайн
// сервиса -> KindTimeout, отмена клиентом -> KindCanceled.
func fromContext(stage models.Stage, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, stage, err)
	}

	return newError(KindCanceled, stage, err)
}
