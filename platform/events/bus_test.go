package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncRunsHandlersInRegistrationOrder(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
			order = append(order, i)
			return nil
		}))
	}

	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "test.event"}); err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("expected 3 handler invocations, got %d", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("handler %d ran at position %d", got, i)
		}
	}
}

func TestPublishSyncStopsOnFirstError(t *testing.T) {
	bus := NewInMemoryBus(nil)
	wantErr := errors.New("boom")

	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		return wantErr
	}))

	ran := false
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		ran = true
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "test.event"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if ran {
		t.Errorf("second handler ran after first returned an error")
	}
}

func TestPublishDoesNotBlockOnSlowHandler(t *testing.T) {
	bus := NewInMemoryBus(nil)
	done := make(chan struct{})

	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		defer close(done)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "test.event"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler never ran")
	}
}

func TestPublishIgnoresUnsubscribedEvents(t *testing.T) {
	bus := NewInMemoryBus(nil)
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "nobody.listens"})
	if err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "nobody.listens"}); err != nil {
		t.Fatalf("PublishSync on unsubscribed event returned error: %v", err)
	}
}
