package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/myoutfood/internal/botverify"
	apierrors "github.com/pribylovaa/myoutfood/internal/errors"
	"github.com/pribylovaa/myoutfood/internal/http/middleware"
	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/pipeline"
	logctx "github.com/pribylovaa/myoutfood/internal/pkg/log"
)

// multipartOverhead — запас на поля формы и границы поверх лимита изображения.
const multipartOverhead = 1 << 20

// suggestionForm — поля multipart-формы после разбора.
type suggestionForm struct {
	Location       string `validate:"required,max=200"`
	RecaptchaToken string `validate:"omitempty,max=4096"`
	MIMEType       string `validate:"required"`
	Image          []byte `validate:"required"`
}

// SuggestionResponse — ответ POST /suggestions.
type SuggestionResponse struct {
	models.PipelineResult
	CaptionHTML string `json:"caption_html"`
}

// CreateSuggestion — POST /suggestions (multipart: image, location, recaptcha_token).
func (h *Handlers) CreateSuggestion(w http.ResponseWriter, r *http.Request) {
	lg := logctx.From(r.Context())

	form, err := h.parseForm(w, r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if h.deps.Bot != nil {
		if err := h.checkBot(r, form.RecaptchaToken); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}
	}

	res, err := h.deps.Pipeline.Run(r.Context(), models.PipelineRequest{
		ClientID:     clientOf(r).ClientID,
		Image:        form.Image,
		MIMEType:     form.MIMEType,
		LocationText: form.Location,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.md.Convert([]byte(res.Caption), &buf); err != nil {
		lg.Warn("caption_render_failed", slog.String("err", err.Error()))
	}

	writeJSON(w, r, http.StatusOK, SuggestionResponse{PipelineResult: res, CaptionHTML: buf.String()})
}

func (h *Handlers) parseForm(w http.ResponseWriter, r *http.Request) (suggestionForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxImageBytes+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return suggestionForm{}, pipeline.Invalid(fmt.Sprintf("image exceeds %d bytes", h.deps.MaxImageBytes))
		}

		return suggestionForm{}, pipeline.Invalid("malformed multipart form")
	}

	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := suggestionForm{
		Location:       strings.TrimSpace(r.FormValue("location")),
		RecaptchaToken: strings.TrimSpace(r.FormValue("recaptcha_token")),
	}

	file, hdr, err := r.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return suggestionForm{}, pipeline.Invalid("malformed image part")
	}

	if file != nil {
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return suggestionForm{}, pipeline.Invalid("malformed image part")
		}

		form.Image = data
		form.MIMEType = hdr.Header.Get("Content-Type")

		if form.MIMEType == "" || form.MIMEType == "application/octet-stream" {
			form.MIMEType = http.DetectContentType(data)
		}
	}

	if err := h.validate.Struct(form); err != nil {
		return suggestionForm{}, pipeline.Invalid(formatValidationError(err))
	}

	return form, nil
}

// checkBot — шлюз reCAPTCHA: отказ -> 403 bot_rejected, сбой siteverify -> 503.
func (h *Handlers) checkBot(r *http.Request, token string) error {
	res, err := h.deps.Bot.Verify(r.Context(), token, middleware.RemoteIP(r))

	switch {
	case errors.Is(err, botverify.ErrMissingToken):
		return pipeline.Invalid("recaptcha_token is required")
	case err != nil:
		logctx.From(r.Context()).Warn("bot_verify_failed", slog.String("err", err.Error()))
		return status.Error(codes.Unavailable, "bot verification unavailable")
	case !res.Accepted:
		return pipeline.BotRejected(nil)
	}

	return nil
}

// formatValidationError — первое нарушение в виде "<field> is required/invalid".
func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid form"
	}

	e := verrs[0]
	field := strings.ToLower(e.Field())

	switch field {
	case "image", "mimetype":
		field = "image"
	case "recaptchatoken":
		field = "recaptcha_token"
	}

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
