package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/heri/availabilities/libs/kafkax"
	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeStore struct {
	tx        *fakeTx
	records   []Record
	published []int64
}

func (s *fakeStore) Begin(context.Context) (pgx.Tx, error) {
	s.tx = &fakeTx{}
	return s.tx, nil
}

func (s *fakeStore) FetchUnpublished(_ context.Context, _ pgx.Tx, limit int) ([]Record, error) {
	if len(s.records) > limit {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func (s *fakeStore) MarkPublished(_ context.Context, _ pgx.Tx, ids []int64) error {
	s.published = append(s.published, ids...)
	return nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishBatch_WritesAndMarks(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	store := &fakeStore{records: []Record{
		{ID: 1, EventID: "e-1", AggregateID: "iv-1", EventType: EventIntervalCreated, Payload: []byte(`{}`),
			Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		{ID: 2, EventID: "e-2", AggregateID: "iv-2", EventType: EventIntervalDeleted, Payload: []byte(`{}`)},
	}}
	writer := &fakeWriter{}
	p := NewPublisher(store, testLogger(), PublisherConfig{BatchSize: 10})

	n, err := p.PublishBatch(context.Background(), writer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(writer.msgs) != 2 {
		t.Fatalf("expected 2 messages, got n=%d msgs=%d", n, len(writer.msgs))
	}
	if len(store.published) != 2 || !store.tx.committed {
		t.Fatalf("expected both ids marked and committed, got %v committed=%v", store.published, store.tx.committed)
	}

	first := writer.msgs[0]
	if first.Topic != EventIntervalCreated || string(first.Key) != "iv-1" {
		t.Fatalf("unexpected message: topic=%s key=%s", first.Topic, first.Key)
	}
	meta := kafkax.ExtractEventMeta(first)
	if meta.EventID != "e-1" || meta.EventType != EventIntervalCreated {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if got := kafkax.HeaderValue(first.Headers, "traceparent"); got != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" {
		t.Fatalf("expected stored traceparent to be propagated, got %q", got)
	}
}

func TestPublishBatch_WriterFailureLeavesRowsUnpublished(t *testing.T) {
	store := &fakeStore{records: []Record{{ID: 1, EventID: "e-1", EventType: EventIntervalCreated}}}
	p := NewPublisher(store, testLogger(), PublisherConfig{})

	_, err := p.PublishBatch(context.Background(), &fakeWriter{err: errors.New("broker down")})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.published) != 0 || store.tx.committed || !store.tx.rolledBack {
		t.Fatalf("expected rollback without marking, got %v", store.published)
	}
}

func TestPublishBatch_Empty(t *testing.T) {
	store := &fakeStore{}
	n, err := NewPublisher(store, testLogger(), PublisherConfig{}).PublishBatch(context.Background(), &fakeWriter{})
	if err != nil || n != 0 {
		t.Fatalf("expected empty batch, got n=%d err=%v", n, err)
	}
}
