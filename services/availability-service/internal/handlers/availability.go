package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/heri/availabilities/services/availability-service/internal/availability"
	"github.com/heri/availabilities/services/availability-service/internal/model"
)

type AvailabilityEngine interface {
	Availabilities(ctx context.Context, start time.Time) (model.Window, error)
}

type AvailabilityHandler struct {
	engine AvailabilityEngine
	logger *slog.Logger
}

func NewAvailabilityHandler(engine AvailabilityEngine, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{engine: engine, logger: logger}
}

// Get serves GET /api/v1/availabilities?start=2014-08-10.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	start, err := availability.ParseStart(r.URL.Query().Get("start"))
	if err != nil {
		writeInvalidArgument(w)
		return
	}

	window, err := h.engine.Availabilities(r.Context(), start)
	if err != nil {
		if errors.Is(err, availability.ErrInvalidArgument) {
			writeInvalidArgument(w)
			return
		}
		h.logger.Error("availabilities failed", "err", err, "start", start.Format(model.DateLayout))
		http.Error(w, "failed to compute availabilities", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, window)
}
