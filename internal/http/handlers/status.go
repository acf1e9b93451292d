package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apierrors "github.com/pribylovaa/myoutfood/internal/errors"
	logctx "github.com/pribylovaa/myoutfood/internal/pkg/log"
)

// StatusResponse — ответ проверки доступности.
type StatusResponse struct {
	Status string `json:"status"`
}

// ImageGeneratorStatus — GET /status/image-generator.
func (h *Handlers) ImageGeneratorStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.deps.StatusTimeout)
	defer cancel()

	if err := h.deps.Generator.CheckStatus(ctx); err != nil {
		logctx.From(r.Context()).Warn("image_generator_status_failed", slog.String("err", err.Error()))
		apierrors.WriteError(w, r, status.Error(codes.Unavailable, "image generator unavailable"))

		return
	}

	writeJSON(w, r, http.StatusOK, StatusResponse{Status: "ok"})
}
