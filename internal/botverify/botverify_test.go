package botverify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T, h http.HandlerFunc) *Verifier {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(srv.Client(), "s3cr3t", srv.URL, 0.5)
}

func reply(score float64, success bool, codes ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(siteverifyResponse{Success: success, Score: score, Action: "submit", ErrorCodes: codes})
	}
}

func TestVerify_FormAndAccept(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "s3cr3t", r.PostForm.Get("secret"))
		require.Equal(t, "tok", r.PostForm.Get("response"))
		require.Equal(t, "10.0.0.1", r.PostForm.Get("remoteip"))

		reply(0.9, true)(w, r)
	})

	res, err := v.Verify(context.Background(), "tok", "10.0.0.1")
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.InDelta(t, 0.9, res.Score, 1e-9)
	require.Equal(t, "submit", res.Action)
}

func TestVerify_ScoreThreshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		h        http.HandlerFunc
		accepted bool
	}{
		{name: "exactly threshold", h: reply(0.5, true), accepted: true},
		{name: "below threshold", h: reply(0.49, true), accepted: false},
		{name: "not success", h: reply(0.9, false, "invalid-input-response"), accepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := newTestVerifier(t, tt.h).Verify(context.Background(), "tok", "")
			require.NoError(t, err)
			require.Equal(t, tt.accepted, res.Accepted)
		})
	}
}

func TestVerify_Errors(t *testing.T) {
	t.Parallel()

	v := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := v.Verify(context.Background(), "", "")
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = v.Verify(context.Background(), "tok", "")
	require.ErrorIs(t, err, ErrUnavailable)

	broken := newTestVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{oops"))
	})
	_, err = broken.Verify(context.Background(), "tok", "")
	require.ErrorIs(t, err, ErrUnavailable)
}
