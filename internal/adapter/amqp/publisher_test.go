package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"fuellog/internal/app"
	"fuellog/internal/domain"

	"github.com/rabbitmq/amqp091-go"
)

type published struct {
	exchange, key string
	msg           amqp091.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []published
	err  error
	done chan struct{}
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	if f.done != nil {
		f.done <- struct{}{}
	}
	return f.err
}

func (f *fakeChannel) Close() error { return nil }

func TestRecordsChanged_JSON(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	body, err := NewRecordsChanged(app.Snapshot{UserID: 3, Version: 7}, at).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["userId"] != float64(3) || got["version"] != float64(7) {
		t.Errorf("unexpected ids: %v", got)
	}
	if got["occurredAt"] != "2024-05-01T09:30:00Z" {
		t.Errorf("unexpected occurredAt: %v", got["occurredAt"])
	}
	if recs, ok := got["records"].([]any); !ok || len(recs) != 0 {
		t.Errorf("records should be an empty array, got %v", got["records"])
	}
}

func TestPublisher_RunPublishesQueuedSnapshots(t *testing.T) {
	ch := &fakeChannel{done: make(chan struct{}, 1)}
	p := newPublisher(ch, "fuellog", nil, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	p.Handle(app.Snapshot{UserID: 1, Version: 2, Records: []domain.FuelRecord{{ID: "r1", Date: "2024-01-01"}}})

	select {
	case <-ch.done:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot was not published")
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ch.sent))
	}
	sent := ch.sent[0]
	if sent.exchange != "fuellog" || sent.key != RoutingKey {
		t.Errorf("published to %s/%s", sent.exchange, sent.key)
	}
	if sent.msg.ContentType != "application/json" || sent.msg.DeliveryMode != amqp091.Persistent {
		t.Errorf("unexpected publishing properties: %+v", sent.msg)
	}
	var ev RecordsChanged
	if err := json.Unmarshal(sent.msg.Body, &ev); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if ev.UserID != 1 || ev.Version != 2 || len(ev.Records) != 1 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestPublisher_HandleSkipsFailedSnapshots(t *testing.T) {
	p := newPublisher(&fakeChannel{}, "fuellog", nil, 1)

	p.Handle(app.Snapshot{UserID: 1, Err: errors.New("load failed")})
	if len(p.queue) != 0 {
		t.Error("failed snapshot should not be queued")
	}
}

func TestPublisher_HandleDropsWhenFull(t *testing.T) {
	p := newPublisher(&fakeChannel{}, "fuellog", nil, 1)

	p.Handle(app.Snapshot{UserID: 1, Version: 1})
	p.Handle(app.Snapshot{UserID: 1, Version: 2})

	if len(p.queue) != 1 {
		t.Fatalf("expected 1 queued snapshot, got %d", len(p.queue))
	}
	if snap := <-p.queue; snap.Version != 1 {
		t.Errorf("expected the first snapshot to stay queued, got version %d", snap.Version)
	}
}

func TestPublisher_PublishError(t *testing.T) {
	p := newPublisher(&fakeChannel{err: errors.New("channel closed")}, "fuellog", nil, 1)
	if err := p.publish(context.Background(), app.Snapshot{UserID: 1}); err == nil {
		t.Error("expected publish error")
	}
}
