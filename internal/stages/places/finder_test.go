package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pribylovaa/myoutfood/internal/stages"
	"github.com/stretchr/testify/require"
)

// chatResponse — минимальный ответ chat completions.
func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   "test-model",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func newTestFinder(t *testing.T, h http.HandlerFunc) *Finder {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	f, err := New(Options{APIKey: "k", BaseURL: srv.URL + "/", Model: "test-model", HTTPClient: srv.Client()})
	require.NoError(t, err)

	return f
}

func TestFind_OK(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "test-model", body.Model)
		require.Len(t, body.Messages, 2)
		require.Contains(t, body.Messages[1].Content, "a relaxed streetwear look")
		require.Contains(t, body.Messages[1].Content, "Kadıköy, Istanbul")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(
			"Restaurant Name: Cafe A\nCuisine Type: Turkish\nLocation: 40.99, 29.02\nProximity: 500m\nRating: 4.5\nBrief Description: Cozy spot."))
	})

	got, err := f.Find(context.Background(), "a relaxed streetwear look", "Kadıköy, Istanbul")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Cafe A", got[0].Name)
}

func TestFind_NoValidBlocks_EmptyNotError(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("I could not find anything nearby."))
	})

	got, err := f.Find(context.Background(), "soup", "Nowhere")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFind_UpstreamErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   stages.Kind
	}{
		{http.StatusInternalServerError, stages.KindUpstream},
		{http.StatusTooManyRequests, stages.KindRateLimited},
		{http.StatusPaymentRequired, stages.KindQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()

			f := newTestFinder(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
			})

			_, err := f.Find(context.Background(), "soup", "Kadıköy")
			require.Error(t, err)
			require.Equal(t, tt.want, stages.KindOf(err))
		})
	}
}

func TestFind_InvalidInput(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected network call")
	})

	_, err := f.Find(context.Background(), " ", "Kadıköy")
	require.Equal(t, stages.KindInvalid, stages.KindOf(err))
}

func TestNew_RequiresModel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{APIKey: "k"})
	require.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	p := BuildPrompt("soup", "Moda")
	require.Contains(t, p, `"soup"`)
	require.Contains(t, p, "near Moda")
	require.Contains(t, p, "Restaurant Name:")
	require.Contains(t, p, "Brief Description:")
}
