package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncRunsHandlersInOrderAndJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var order []int
	errBoom := errors.New("boom")

	bus.Subscribe("thing", HandlerFunc(func(ctx context.Context, event Event) error {
		order = append(order, 1)
		return errBoom
	}))
	bus.Subscribe("thing", HandlerFunc(func(ctx context.Context, event Event) error {
		order = append(order, 2)
		return nil
	}))
	bus.Subscribe("other", HandlerFunc(func(ctx context.Context, event Event) error {
		order = append(order, 99)
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent(), name: "thing"})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected handler order %v", order)
	}
}

func TestPublishSyncRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(nil)
	bus.Subscribe("thing", HandlerFunc(func(ctx context.Context, event Event) error {
		panic("kaboom")
	}))

	if err := bus.PublishSync(context.Background(), testEvent{name: "thing"}); err == nil {
		t.Fatal("expected panic to surface as error")
	}
}

func TestPublishSurvivesCanceledContext(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var wg sync.WaitGroup
	wg.Add(1)

	var ctxErr error
	bus.Subscribe("thing", HandlerFunc(func(ctx context.Context, event Event) error {
		defer wg.Done()
		ctxErr = ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, testEvent{name: "thing"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not run")
	}
	if ctxErr != nil {
		t.Fatalf("expected detached context, got %v", ctxErr)
	}
}
