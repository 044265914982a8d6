package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/heri/availabilities/services/availability-service/internal/availability"
	"github.com/heri/availabilities/services/availability-service/internal/intervals"
	"github.com/heri/availabilities/services/availability-service/internal/model"
	"github.com/heri/availabilities/services/availability-service/internal/validation"
)

type IntervalService interface {
	Create(ctx context.Context, in intervals.Input) (model.Interval, error)
	Update(ctx context.Context, id string, in intervals.Input) (model.Interval, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (model.Interval, error)
	List(ctx context.Context, filter model.IntervalFilter) ([]model.Interval, error)
}

type IntervalHandler struct {
	svc      IntervalService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewIntervalHandler(svc IntervalService, logger *slog.Logger) *IntervalHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &IntervalHandler{svc: svc, logger: logger, validate: v}
}

type intervalRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=opening appointment"`
	Recurrence string `json:"recurrence" validate:"omitempty,oneof=one_time weekly"`
	Start      string `json:"start" validate:"required"`
	End        string `json:"end" validate:"required"`
}

type intervalResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Recurrence string `json:"recurrence"`
	Start      string `json:"start"`
	End        string `json:"end"`
	ExternalID string `json:"external_id,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toResponse(iv model.Interval) intervalResponse {
	return intervalResponse{
		ID:         iv.ID,
		Kind:       string(iv.Kind),
		Recurrence: string(iv.Recurrence),
		Start:      iv.Start.Format(intervals.WallClockLayout),
		End:        iv.End.Format(intervals.WallClockLayout),
		ExternalID: iv.ExternalID,
		CreatedAt:  iv.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  iv.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *IntervalHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	iv, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "failed to create interval")
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(iv))
}

func (h *IntervalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	iv, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, err, "failed to update interval")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(iv))
}

func (h *IntervalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "failed to delete interval")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IntervalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	iv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to load interval")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(iv))
}

// List serves GET /api/v1/intervals?kind=&recurrence=&from=&until=&limit=.
func (h *IntervalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.IntervalFilter{
		Kind:       model.Kind(strings.TrimSpace(q.Get("kind"))),
		Recurrence: model.Recurrence(strings.TrimSpace(q.Get("recurrence"))),
		Limit:      100,
	}
	errs := validation.Errors{}
	if filter.Kind != "" && !filter.Kind.Valid() {
		errs.Add("kind", "must be opening or appointment")
	}
	if filter.Recurrence != "" && !filter.Recurrence.Valid() {
		errs.Add("recurrence", "must be one_time or weekly")
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := availability.ParseStart(raw)
		if err != nil {
			errs.Add("from", "is not a valid date-time")
		}
		filter.StartFrom = t
	}
	if raw := strings.TrimSpace(q.Get("until")); raw != "" {
		t, err := availability.ParseStart(raw)
		if err != nil {
			errs.Add("until", "is not a valid date-time")
		}
		filter.EndUntil = t
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			filter.Limit = n
		}
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	ivs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err, "failed to list intervals")
		return
	}
	items := make([]intervalResponse, 0, len(ivs))
	for _, iv := range ivs {
		items = append(items, toResponse(iv))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *IntervalHandler) decode(w http.ResponseWriter, r *http.Request) (intervals.Input, bool) {
	var req intervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return intervals.Input{}, false
	}

	errs := validation.Errors{}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return intervals.Input{}, false
		}
		for _, fe := range verrs {
			errs.Add(fe.Field(), tagMessage(fe))
		}
	}

	in := intervals.Input{
		Kind:       model.Kind(req.Kind),
		Recurrence: model.Recurrence(req.Recurrence),
	}
	if req.Start != "" {
		t, err := availability.ParseStart(req.Start)
		if err != nil {
			errs.Add(validation.FieldStart, "is not a valid date-time")
		}
		in.Start = t
	}
	if req.End != "" {
		t, err := availability.ParseStart(req.End)
		if err != nil {
			errs.Add(validation.FieldEnd, "is not a valid date-time")
		}
		in.End = t
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return intervals.Input{}, false
	}
	return in, true
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "can't be blank"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}

func (h *IntervalHandler) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if err := h.validate.Var(id, "required,uuid"); err != nil {
		http.Error(w, "interval not found", http.StatusNotFound)
		return "", false
	}
	return id, true
}

func (h *IntervalHandler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		writeFieldErrors(w, verrs)
	case errors.Is(err, intervals.ErrNotFound):
		http.Error(w, "interval not found", http.StatusNotFound)
	case errors.Is(err, intervals.ErrConflict):
		http.Error(w, "interval already exists", http.StatusConflict)
	default:
		h.logger.Error(msg, "err", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}
