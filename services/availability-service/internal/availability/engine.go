package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/heri/availabilities/services/availability-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidArgument is returned for a missing or malformed start date.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	// CacheNamespace prefixes every cached window; interval writes clear it as a whole.
	CacheNamespace = "avails/events"
	DefaultTTL     = 5 * time.Minute
)

// Store is the read side of the interval store.
type Store interface {
	ListIntervals(ctx context.Context, filter model.IntervalFilter) ([]model.Interval, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (model.Window, bool, error)
	Set(ctx context.Context, key string, w model.Window, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, prefix string) error
}

type Engine struct {
	store  Store
	cache  Cache
	logger *slog.Logger
	ttl    time.Duration
	tracer trace.Tracer
}

func NewEngine(store Store, cache Cache, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		cache:  cache,
		logger: logger,
		ttl:    DefaultTTL,
		tracer: otel.Tracer("availability"),
	}
}

// CacheKey depends on the calendar date of start only.
func CacheKey(start time.Time) string {
	return CacheNamespace + ":" + start.Format(model.DateLayout)
}

// Availabilities returns the open slots for the 7 dates starting at start's calendar date.
// Store and cache failures are returned as is; there is no degraded result.
func (e *Engine) Availabilities(ctx context.Context, start time.Time) (model.Window, error) {
	if start.IsZero() {
		return model.Window{}, ErrInvalidArgument
	}

	key := CacheKey(start)
	ctx, span := e.tracer.Start(ctx, "availability.window", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	cached, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		return model.Window{}, fmt.Errorf("cache get %s: %w", key, err)
	}
	if ok {
		e.logger.Debug("availability cache hit", "key", key)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	e.logger.Debug("availability cache miss", "key", key)

	window, err := e.compute(ctx, start)
	if err != nil {
		span.RecordError(err)
		return model.Window{}, err
	}

	if err := e.cache.Set(ctx, key, window, e.ttl); err != nil {
		span.RecordError(err)
		return model.Window{}, fmt.Errorf("cache set %s: %w", key, err)
	}
	return window, nil
}

func (e *Engine) compute(ctx context.Context, start time.Time) (model.Window, error) {
	end := start.AddDate(0, 0, WindowDays)

	recurring, err := e.store.ListIntervals(ctx, model.IntervalFilter{
		Kind:        model.KindOpening,
		Recurrence:  model.RecurrenceWeekly,
		StartBefore: end,
	})
	if err != nil {
		return model.Window{}, fmt.Errorf("list recurring openings: %w", err)
	}
	oneTime, err := e.store.ListIntervals(ctx, model.IntervalFilter{
		Kind:       model.KindOpening,
		Recurrence: model.RecurrenceOneTime,
		StartFrom:  start,
		EndUntil:   end,
	})
	if err != nil {
		return model.Window{}, fmt.Errorf("list one-time openings: %w", err)
	}
	appointments, err := e.store.ListIntervals(ctx, model.IntervalFilter{
		Kind:      model.KindAppointment,
		StartFrom: start,
		EndUntil:  end,
	})
	if err != nil {
		return model.Window{}, fmt.Errorf("list appointments: %w", err)
	}

	window := model.Window{
		StartDate: start.Format(model.DateLayout),
		Days:      make([]model.DayAvailability, 0, WindowDays),
	}
	for i := 0; i < WindowDays; i++ {
		date := start.AddDate(0, 0, i)

		open := SelectSlots(recurring, date, start)
		for s := range SelectSlots(oneTime, date, start) {
			open[s] = struct{}{}
		}
		for s := range SelectSlots(appointments, date, start) {
			delete(open, s)
		}

		window.Days = append(window.Days, model.DayAvailability{
			Date:  date.Format(model.DateLayout),
			Slots: formatSlots(open),
		})
	}
	return window, nil
}

func formatSlots(set map[TimeOfDay]struct{}) []string {
	sorted := make([]TimeOfDay, 0, len(set))
	for s := range set {
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make([]string, len(sorted))
	for i, s := range sorted {
		out[i] = s.String()
	}
	return out
}

var startLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	model.DateLayout,
}

// ParseStart reads a start date as given at the boundary. Intervals are stored as wall-clock
// values, so an RFC3339 offset is dropped and the clock reading the caller wrote is kept.
func ParseStart(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidArgument
	}
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return WallClock(t), nil
		}
	}
	return time.Time{}, ErrInvalidArgument
}

// WallClock re-labels the clock reading of t as UTC without shifting it.
func WallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, m, d, h, mi, s, t.Nanosecond(), time.UTC)
}
