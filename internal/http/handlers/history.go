package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apierrors "github.com/pribylovaa/myoutfood/internal/errors"
	"github.com/pribylovaa/myoutfood/internal/models"
	"github.com/pribylovaa/myoutfood/internal/pipeline"
)

// HistoryResponse — ответ GET /history.
type HistoryResponse struct {
	Entries []models.HistoryEntry `json:"entries"`
}

// ListHistory — GET /history, новые первыми.
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	entries := h.deps.History.List(r.Context(), clientOf(r).ClientID)
	writeJSON(w, r, http.StatusOK, HistoryResponse{Entries: entries})
}

// RemoveHistoryEntry — DELETE /history/{created_at} (RFC3339Nano). Отсутствие записи — 204.
func (h *Handlers) RemoveHistoryEntry(w http.ResponseWriter, r *http.Request) {
	createdAt, err := time.Parse(time.RFC3339Nano, chi.URLParam(r, "created_at"))
	if err != nil {
		apierrors.WriteError(w, r, pipeline.Invalid("created_at must be RFC3339"))
		return
	}

	if err := h.deps.History.Remove(r.Context(), clientOf(r).ClientID, createdAt); err != nil {
		apierrors.WriteError(w, r, status.Error(codes.Unavailable, "history unavailable"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearHistory — DELETE /history.
func (h *Handlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.History.Clear(r.Context(), clientOf(r).ClientID); err != nil {
		apierrors.WriteError(w, r, status.Error(codes.Unavailable, "history unavailable"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
