package consumer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/heri/availabilities/libs/kafkax"
	"github.com/heri/availabilities/services/availability-service/internal/intervals"
	"github.com/heri/availabilities/services/availability-service/internal/validation"
	"github.com/segmentio/kafka-go"
)

const (
	TopicAppointmentBooked    = "booking.appointment.booked.v1"
	TopicAppointmentCancelled = "booking.appointment.cancelled.v1"
)

type BookingApplier interface {
	ApplyBooked(ctx context.Context, eventID, eventType string, b intervals.Booking) error
	ApplyCancelled(ctx context.Context, eventID, eventType, appointmentID string) error
}

// BookingHandler turns booking events into appointment intervals. Booking times are
// absolute; they are read as wall-clock time in loc, the zone the openings are written in.
type BookingHandler struct {
	svc            BookingApplier
	loc            *time.Location
	logger         *slog.Logger
	bookedTopic    string
	cancelledTopic string
}

func NewBookingHandler(svc BookingApplier, loc *time.Location, logger *slog.Logger, bookedTopic, cancelledTopic string) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	if bookedTopic == "" {
		bookedTopic = TopicAppointmentBooked
	}
	if cancelledTopic == "" {
		cancelledTopic = TopicAppointmentCancelled
	}
	return &BookingHandler{svc: svc, loc: loc, logger: logger, bookedTopic: bookedTopic, cancelledTopic: cancelledTopic}
}

func (h *BookingHandler) Topics() []string {
	return []string{h.bookedTopic, h.cancelledTopic}
}

type bookingPayload struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// Handle returns nil for payloads that can never succeed so they are not retried.
func (h *BookingHandler) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)

	var payload bookingPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
		return nil
	}
	payload.AppointmentID = strings.TrimSpace(payload.AppointmentID)
	if payload.AppointmentID == "" {
		h.logger.Error("missing required event fields", "topic", msg.Topic, "event_id", meta.EventID)
		return nil
	}

	switch msg.Topic {
	case h.bookedTopic:
		start, err := time.Parse(time.RFC3339, payload.StartTime)
		if err != nil {
			h.logger.Error("invalid start_time", "err", err, "event_id", meta.EventID)
			return nil
		}
		end, err := time.Parse(time.RFC3339, payload.EndTime)
		if err != nil {
			h.logger.Error("invalid end_time", "err", err, "event_id", meta.EventID)
			return nil
		}
		err = h.svc.ApplyBooked(ctx, meta.EventID, meta.EventType, intervals.Booking{
			AppointmentID: payload.AppointmentID,
			Start:         start.In(h.loc),
			End:           end.In(h.loc),
		})
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			h.logger.Warn("booking does not fit the slot grid; skipped",
				"appointment_id", payload.AppointmentID, "err", verrs.Error())
			return nil
		}
		return err
	case h.cancelledTopic:
		return h.svc.ApplyCancelled(ctx, meta.EventID, meta.EventType, payload.AppointmentID)
	default:
		h.logger.Warn("unexpected topic", "topic", msg.Topic)
		return nil
	}
}
