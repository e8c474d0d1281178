package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/platedesk/backoffice/pkg/errors"
	"github.com/platedesk/backoffice/pkg/logger"
	"github.com/platedesk/backoffice/pkg/tracing"
)

// SnapshotSource reads persisted real-time snapshots, newest first.
type SnapshotSource interface {
	ListSnapshots(ctx context.Context, limit int) ([]RealTimeMetrics, error)
}

type Handler struct {
	service   *Service
	snapshots SnapshotSource
	logger    *slog.Logger
}

// NewHandler creates the analytics HTTP handler. snapshots may be nil when
// snapshot persistence is disabled.
func NewHandler(service *Service, snapshots SnapshotSource) *Handler {
	return &Handler{
		service:   service,
		snapshots: snapshots,
		logger:    slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) RealTime(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "analytics.realtime", logger.RequestIDFromContext(r.Context()))
	defer func() {
		span.End()
		span.Log()
	}()

	result, err := h.service.RealTimeSales(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, result)
}

func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "analytics.forecast", logger.RequestIDFromContext(r.Context()))
	defer func() {
		span.End()
		span.Log()
	}()

	result, err := h.service.Forecast(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, result)
}

func (h *Handler) PeakHours(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "analytics.peak_hours", logger.RequestIDFromContext(r.Context()))
	defer func() {
		span.End()
		span.Log()
	}()

	result, err := h.service.PeakHours(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, result)
}

// History serves recent persisted snapshots. Defaults to the last 20, capped
// at 100 via the limit query parameter.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrNotFound, http.StatusNotFound, "snapshot history not enabled"))
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 100 {
			h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be an integer between 1 and 100"))
			return
		}
		limit = parsed
	}

	snapshots, err := h.snapshots.ListSnapshots(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, map[string]any{"snapshots": snapshots})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, h.service.Stats())
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.FromContext(r.Context()).Error("failed to write analytics response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	logger.FromContext(r.Context()).Error("analytics request failed",
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
