// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку (обычно *pipeline.Error, совместимую с gRPC-статусом),
// на выход даёт:
//   - корректный HTTP-статус;
//   - короткий стабильный code и безопасное message;
//   - стадию, признак повторяемости и Retry-After, если они известны.
//
// Доменные коды передаются через google.rpc.ErrorInfo: reason уточняет
// базовый маппинг кода (SAFETY_REJECTED -> 422, QUOTA_EXCEEDED -> 402, BOT_REJECTED -> 403).
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/myoutfood/internal/pipeline"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Stage      string `json:"stage,omitempty"`
	Retryable  bool   `json:"retryable"`
	RetryAfter int    `json:"retry_after,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type grpcStatuser interface {
	GRPCStatus() *status.Status
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - ошибка контекста — 499/504;
//   - ошибка с GRPCStatus() где угодно в цепочке — маппинг кода и ErrorInfo;
//   - прочее — 500/internal без утечки деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	var st *status.Status

	var gs grpcStatuser
	switch {
	case stderrors.As(err, &gs):
		st = gs.GRPCStatus()
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		st = status.FromContextError(err)
	default:
		var ok bool
		if st, ok = status.FromError(err); !ok {
			return internal()
		}
	}

	httpStatus, code, msg := baseFromGRPC(st.Code())
	apiErr := APIError{Code: code, Message: msg}

	for _, d := range st.Details() {
		switch v := d.(type) {
		case *errdetails.ErrorInfo:
			if v.GetDomain() != pipeline.ErrorDomain {
				continue
			}

			httpStatus = fromReason(v.GetReason(), httpStatus)
			apiErr.Code = strings.ToLower(v.GetReason())
			apiErr.Stage = v.GetMetadata()["stage"]

			// Сообщение доменной ошибки безопасно по построению.
			if m := st.Message(); m != "" {
				apiErr.Message = m
			}
		case *errdetails.RetryInfo:
			if delay := v.GetRetryDelay().AsDuration(); delay > 0 {
				apiErr.RetryAfter = int(math.Ceil(delay.Seconds()))
			}
		}
	}

	apiErr.Retryable = retryable(httpStatus)

	return httpStatus, ErrorResponse{Error: apiErr}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из заголовка и Retry-After, если он известен.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if resp.Error.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(resp.Error.RetryAfter))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:      "internal",
			Message:   "internal error",
			Retryable: true,
		},
	}
}

// fromReason уточняет статус по ErrorInfo.Reason.
func fromReason(reason string, fallback int) int {
	switch reason {
	case "SAFETY_REJECTED":
		return http.StatusUnprocessableEntity
	case "QUOTA_EXCEEDED":
		return http.StatusPaymentRequired
	case "BOT_REJECTED":
		return http.StatusForbidden
	default:
		return fallback
	}
}

func retryable(httpStatus int) bool {
	switch httpStatus {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout,
		http.StatusInternalServerError, StatusClientClosedRequest:
		return true
	default:
		return false
	}
}

// baseFromGRPC — базовый маппинг gRPC -> HTTP/FE-код/сообщение.
//   - InvalidArgument -> 400
//   - NotFound -> 404
//   - FailedPrecondition -> 412 (уточняется reason: 422/402)
//   - Unauthenticated -> 401 (битый/просроченный bearer)
//   - PermissionDenied -> 403 (reCAPTCHA)
//   - ResourceExhausted -> 429 (лимитер, 429 апстрима)
//   - Canceled -> 499 (клиент закрыл соединение)
//   - DeadlineExceeded -> 504
//   - Unavailable -> 503 (апстрим недоступен, breaker открыт)
//   - прочее -> 500/internal
func baseFromGRPC(c codes.Code) (int, string, string) {
	switch c {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case codes.NotFound:
		return http.StatusNotFound, "not_found", "not found"
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed, "failed_precondition", "failed precondition"
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case codes.PermissionDenied:
		return http.StatusForbidden, "permission_denied", "permission denied"
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests, "resource_exhausted", "resource exhausted"
	case codes.Canceled:
		return StatusClientClosedRequest, "canceled", "canceled"
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case codes.Unavailable:
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case codes.Unimplemented:
		return http.StatusNotImplemented, "unimplemented", "unimplemented"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
