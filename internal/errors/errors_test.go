package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/pipeline"
)

func TestToHTTP_BaseMapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"invalid_argument", status.Error(codes.InvalidArgument, "x"), http.StatusBadRequest, "invalid_argument"},
		{"not_found", status.Error(codes.NotFound, "x"), http.StatusNotFound, "not_found"},
		{"failed_prec", status.Error(codes.FailedPrecondition, "x"), http.StatusPreconditionFailed, "failed_precondition"},
		{"unauth", status.Error(codes.Unauthenticated, "x"), http.StatusUnauthorized, "unauthenticated"},
		{"perm_denied", status.Error(codes.PermissionDenied, "x"), http.StatusForbidden, "permission_denied"},
		{"res_exhausted", status.Error(codes.ResourceExhausted, "x"), http.StatusTooManyRequests, "resource_exhausted"},
		{"canceled", status.Error(codes.Canceled, "x"), StatusClientClosedRequest, "canceled"},
		{"deadline", status.Error(codes.DeadlineExceeded, "x"), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"unavailable", status.Error(codes.Unavailable, "x"), http.StatusServiceUnavailable, "unavailable"},
		{"unimplemented", status.Error(codes.Unimplemented, "x"), http.StatusNotImplemented, "unimplemented"},
		{"internal", status.Error(codes.Internal, "x"), http.StatusInternalServerError, "internal"},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
		{"ctx_canceled", fmt.Errorf("wrap: %w", context.Canceled), StatusClientClosedRequest, "canceled"},
		{"ctx_deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_PipelineErrors(t *testing.T) {
	tcs := []struct {
		kind          pipeline.Kind
		wantStatus    int
		wantCode      string
		wantRetryable bool
	}{
		{pipeline.KindInvalid, http.StatusBadRequest, "invalid", false},
		{pipeline.KindRateLimited, http.StatusTooManyRequests, "rate_limited", true},
		{pipeline.KindUpstreamUnavailable, http.StatusServiceUnavailable, "upstream_unavailable", true},
		{pipeline.KindTimeout, http.StatusGatewayTimeout, "timeout", true},
		{pipeline.KindSafetyRejected, http.StatusUnprocessableEntity, "safety_rejected", false},
		{pipeline.KindQuotaExceeded, http.StatusPaymentRequired, "quota_exceeded", false},
		{pipeline.KindCanceled, StatusClientClosedRequest, "canceled", true},
		{pipeline.KindBotRejected, http.StatusForbidden, "bot_rejected", false},
		{pipeline.KindUnknown, http.StatusInternalServerError, "unknown", true},
	}

	for _, tc := range tcs {
		t.Run(tc.wantCode, func(t *testing.T) {
			pe := &pipeline.Error{Kind: tc.kind, Stage: models.StageGenerate, Message: "safe message"}

			gotStatus, resp := ToHTTP(fmt.Errorf("handler: %w", pe))
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.Equal(t, "safe message", resp.Error.Message)
			require.Equal(t, "generate", resp.Error.Stage)
			require.Equal(t, tc.wantRetryable, resp.Error.Retryable)
			require.Equal(t, tc.wantRetryable, pe.Retryable())
		})
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteError_RetryAfterAndRequestID(t *testing.T) {
	pe := &pipeline.Error{
		Kind:       pipeline.KindRateLimited,
		Stage:      models.StageGenerate,
		Message:    "wait",
		RetryAfter: 41500 * time.Millisecond,
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/suggestions", nil)
	r.Header.Set("X-Request-Id", "rid-1")
	rr := httptest.NewRecorder()

	WriteError(rr, r, pe)

	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "42", rr.Header().Get("Retry-After"))
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "rid-1", body.Error.RequestID)
	require.Equal(t, 42, body.Error.RetryAfter)
	require.Equal(t, "rate_limited", body.Error.Code)
}
