package intervals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/heri/availabilities/services/availability-service/internal/availability"
	"github.com/heri/availabilities/services/availability-service/internal/model"
	"github.com/heri/availabilities/services/availability-service/internal/outbox"
	"github.com/heri/availabilities/services/availability-service/internal/storage"
	"github.com/heri/availabilities/services/availability-service/internal/validation"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound = errors.New("interval not found")
	ErrConflict = errors.New("interval already exists")
)

// WallClockLayout is how interval timestamps travel in events and API payloads.
const WallClockLayout = "2006-01-02T15:04:05"

type Repository interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, iv *model.Interval) error
	Update(ctx context.Context, tx pgx.Tx, iv *model.Interval) error
	Delete(ctx context.Context, tx pgx.Tx, id string) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Interval, error)
	GetByExternalIDForUpdate(ctx context.Context, tx pgx.Tx, externalID string) (model.Interval, error)
	Get(ctx context.Context, id string) (model.Interval, error)
	ListIntervals(ctx context.Context, filter model.IntervalFilter) ([]model.Interval, error)
}

type OutboxWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type Inbox interface {
	Record(ctx context.Context, tx pgx.Tx, eventID string, eventType string) (bool, error)
}

// Invalidator clears cached availability windows.
type Invalidator interface {
	InvalidateNamespace(ctx context.Context, prefix string) error
}

type Input struct {
	Kind       model.Kind
	Recurrence model.Recurrence
	Start      time.Time
	End        time.Time
	ExternalID string
}

// Service owns every interval write. A write commits the interval and its outbox event
// together, then clears the availability cache before returning.
type Service struct {
	repo   Repository
	outbox OutboxWriter
	inbox  Inbox
	cache  Invalidator
	logger *slog.Logger
}

func NewService(repo Repository, outboxWriter OutboxWriter, inbox Inbox, cache Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, outbox: outboxWriter, inbox: inbox, cache: cache, logger: logger}
}

func (s *Service) Create(ctx context.Context, in Input) (model.Interval, error) {
	iv, err := prepare(in)
	if err != nil {
		return model.Interval{}, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return model.Interval{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.repo.Create(ctx, tx, &iv); err != nil {
		if storage.IsConflict(err) {
			return model.Interval{}, ErrConflict
		}
		return model.Interval{}, fmt.Errorf("create interval: %w", err)
	}
	if err := s.emit(ctx, tx, outbox.EventIntervalCreated, iv); err != nil {
		return model.Interval{}, err
	}
	if err := s.commit(ctx, tx); err != nil {
		return model.Interval{}, err
	}
	return iv, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (model.Interval, error) {
	iv, err := prepare(in)
	if err != nil {
		return model.Interval{}, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return model.Interval{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.repo.GetForUpdate(ctx, tx, id); err != nil {
		if storage.IsNotFound(err) {
			return model.Interval{}, ErrNotFound
		}
		return model.Interval{}, fmt.Errorf("load interval: %w", err)
	}

	iv.ID = id
	if err := s.repo.Update(ctx, tx, &iv); err != nil {
		return model.Interval{}, fmt.Errorf("update interval: %w", err)
	}
	if err := s.emit(ctx, tx, outbox.EventIntervalUpdated, iv); err != nil {
		return model.Interval{}, err
	}
	if err := s.commit(ctx, tx); err != nil {
		return model.Interval{}, err
	}
	return iv, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	iv, err := s.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("load interval: %w", err)
	}
	if err := s.remove(ctx, tx, iv); err != nil {
		return err
	}
	return s.commit(ctx, tx)
}

func (s *Service) Get(ctx context.Context, id string) (model.Interval, error) {
	iv, err := s.repo.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Interval{}, ErrNotFound
		}
		return model.Interval{}, fmt.Errorf("get interval: %w", err)
	}
	return iv, nil
}

func (s *Service) List(ctx context.Context, filter model.IntervalFilter) ([]model.Interval, error) {
	ivs, err := s.repo.ListIntervals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list intervals: %w", err)
	}
	return ivs, nil
}

// Booking is an appointment coming from the booking service, already in wall-clock time.
type Booking struct {
	AppointmentID string
	Start         time.Time
	End           time.Time
}

// ApplyBooked records the booking as an appointment interval. Redelivered events and
// bookings that already have an interval are no-ops.
func (s *Service) ApplyBooked(ctx context.Context, eventID, eventType string, b Booking) error {
	iv, err := prepare(Input{
		Kind:       model.KindAppointment,
		Start:      b.Start,
		End:        b.End,
		ExternalID: b.AppointmentID,
	})
	if err != nil {
		return err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fresh, err := s.inbox.Record(ctx, tx, eventID, eventType)
	if err != nil {
		return fmt.Errorf("inbox record: %w", err)
	}
	if !fresh {
		s.logger.Info("duplicate event ignored", "event_id", eventID, "event_type", eventType)
		return nil
	}

	if _, err := s.repo.GetByExternalIDForUpdate(ctx, tx, b.AppointmentID); err == nil {
		s.logger.Info("appointment already recorded", "appointment_id", b.AppointmentID)
		return tx.Commit(ctx)
	} else if !storage.IsNotFound(err) {
		return fmt.Errorf("load appointment: %w", err)
	}

	if err := s.repo.Create(ctx, tx, &iv); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	if err := s.emit(ctx, tx, outbox.EventIntervalCreated, iv); err != nil {
		return err
	}
	return s.commit(ctx, tx)
}

// ApplyCancelled removes the appointment interval of a cancelled booking, if any.
func (s *Service) ApplyCancelled(ctx context.Context, eventID, eventType, appointmentID string) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fresh, err := s.inbox.Record(ctx, tx, eventID, eventType)
	if err != nil {
		return fmt.Errorf("inbox record: %w", err)
	}
	if !fresh {
		s.logger.Info("duplicate event ignored", "event_id", eventID, "event_type", eventType)
		return nil
	}

	iv, err := s.repo.GetByExternalIDForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			s.logger.Info("no appointment interval for cancelled booking", "appointment_id", appointmentID)
			return tx.Commit(ctx)
		}
		return fmt.Errorf("load appointment: %w", err)
	}
	if err := s.remove(ctx, tx, iv); err != nil {
		return err
	}
	return s.commit(ctx, tx)
}

func (s *Service) remove(ctx context.Context, tx pgx.Tx, iv model.Interval) error {
	if err := s.repo.Delete(ctx, tx, iv.ID); err != nil {
		if storage.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete interval: %w", err)
	}
	return s.emit(ctx, tx, outbox.EventIntervalDeleted, iv)
}

// commit makes the write visible, then drops cached windows so no caller sees a window
// computed before it.
func (s *Service) commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if err := s.cache.InvalidateNamespace(ctx, availability.CacheNamespace); err != nil {
		s.logger.Error("availability cache invalidation failed", "err", err)
		return fmt.Errorf("invalidate availability cache: %w", err)
	}
	return nil
}

type intervalEvent struct {
	IntervalID string `json:"interval_id"`
	Kind       string `json:"kind"`
	Recurrence string `json:"recurrence"`
	Start      string `json:"start"`
	End        string `json:"end"`
	ExternalID string `json:"external_id,omitempty"`
}

func (s *Service) emit(ctx context.Context, tx pgx.Tx, eventType string, iv model.Interval) error {
	payload, err := json.Marshal(intervalEvent{
		IntervalID: iv.ID,
		Kind:       string(iv.Kind),
		Recurrence: string(iv.Recurrence),
		Start:      iv.Start.Format(WallClockLayout),
		End:        iv.End.Format(WallClockLayout),
		ExternalID: iv.ExternalID,
	})
	if err != nil {
		return fmt.Errorf("build %s payload: %w", eventType, err)
	}
	if err := s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: outbox.AggregateInterval,
		AggregateID:   iv.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return nil
}

// prepare applies defaults and runs every interval rule. Appointments never recur.
func prepare(in Input) (model.Interval, error) {
	if in.Recurrence == "" || in.Kind == model.KindAppointment {
		in.Recurrence = model.RecurrenceOneTime
	}

	errs := validation.ValidateInterval(in.Start, in.End)
	if !in.Kind.Valid() {
		errs.Add("kind", "must be opening or appointment")
	}
	if !in.Recurrence.Valid() {
		errs.Add("recurrence", "must be one_time or weekly")
	}
	if err := errs.Err(); err != nil {
		return model.Interval{}, err
	}

	return model.Interval{
		Kind:       in.Kind,
		Recurrence: in.Recurrence,
		Start:      availability.WallClock(in.Start),
		End:        availability.WallClock(in.End),
		ExternalID: in.ExternalID,
	}, nil
}
