package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alufers/frigate-ingestor/internal/normalize"
)

func TestBus_DispatchesToRegisteredListener(t *testing.T) {
	b := New(0)
	var got *normalize.NormalizedEvent
	b.OnEvent(func(_ context.Context, ev *normalize.NormalizedEvent) HandlerResult {
		got = ev
		return nil
	})

	ev := &normalize.NormalizedEvent{FrigateID: "default", EventID: "abc"}
	b.PublishEvent(context.Background(), ev)

	if got != ev {
		t.Fatalf("expected listener to receive the published event")
	}
}

func TestBus_DropsWithoutListener(t *testing.T) {
	b := New(0)
	// No panic, no block - just silently dropped with a logged warning.
	b.PublishReview(context.Background(), &normalize.NormalizedReview{FrigateID: "default", ReviewID: "r1"})
}

func TestBus_WorkerPoolDeliversAllMessages(t *testing.T) {
	b := New(4)
	var count int64
	var wg sync.WaitGroup
	wg.Add(20)
	b.OnAvailable(func(_ context.Context, av *normalize.NormalizedAvailable) HandlerResult {
		atomic.AddInt64(&count, 1)
		wg.Done()
		return nil
	})

	for i := 0; i < 20; i++ {
		b.PublishAvailable(context.Background(), &normalize.NormalizedAvailable{FrigateID: "default"})
	}
	wg.Wait()
	b.Wait()

	if atomic.LoadInt64(&count) != 20 {
		t.Fatalf("expected 20 deliveries, got %d", count)
	}
}
