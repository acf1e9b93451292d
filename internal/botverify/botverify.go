// botverify проверяет токен reCAPTCHA через siteverify на входе в конвейер.
// Не участвует в машине состояний стадий и не расходует лимит.
package botverify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/myoutfood/internal/pkg/log"
)

var (
	// ErrMissingToken — токен не передан.
	// Транспорт: 400.
	ErrMissingToken = errors.New("recaptcha token is required")
	// ErrUnavailable — siteverify недоступен или ответил не-200.
	// Транспорт: 503.
	ErrUnavailable = errors.New("bot verification unavailable")
)

// Result — ответ верификатора.
type Result struct {
	Accepted bool
	Score    float64
	Action   string
	Errors   []string
}

// siteverifyResponse — ответ siteverify.
type siteverifyResponse struct {
	Success     bool     `json:"success"`
	Score       float64  `json:"score"`
	Action      string   `json:"action"`
	Hostname    string   `json:"hostname"`
	ChallengeTS string   `json:"challenge_ts"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier вызывает siteverify. score < minScore трактуется как бот.
type Verifier struct {
	client    *http.Client
	secret    string
	verifyURL string
	minScore  float64
}

func New(client *http.Client, secret, verifyURL string, minScore float64) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Verifier{client: client, secret: secret, verifyURL: verifyURL, minScore: minScore}
}

// Verify проверяет токен. remoteIP передаётся в siteverify, если не пуст.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (Result, error) {
	const op = "botverify/Verify"

	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}, ErrMissingToken
	}

	lg := log.From(ctx).With("op", op)

	form := url.Values{"secret": {v.secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("%s: new_request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		lg.Warn("http_error", slog.String("err", err.Error()))
		return Result{}, fmt.Errorf("%s: do: %w: %w", op, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, fmt.Errorf("%s: status=%d: %w", op, resp.StatusCode, ErrUnavailable)
	}

	var sv siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&sv); err != nil {
		return Result{}, fmt.Errorf("%s: decode: %w: %w", op, ErrUnavailable, err)
	}

	res := Result{
		Accepted: sv.Success && sv.Score >= v.minScore,
		Score:    sv.Score,
		Action:   sv.Action,
		Errors:   sv.ErrorCodes,
	}

	if !res.Accepted {
		lg.Info("bot_rejected",
			slog.Bool("success", sv.Success),
			slog.Float64("score", sv.Score),
			slog.String("errors", strings.Join(sv.ErrorCodes, ",")),
		)
	}

	return res, nil
}
