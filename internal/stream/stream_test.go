package stream

import (
	"context"
	"testing"
	"time"
)

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	s.Changed("shop", "shop-1", OpCreate)

	select {
	case evt := <-ch:
		if evt.Entity != "shop" || evt.EntityID != "shop-1" || evt.Op != OpCreate {
			t.Fatalf("unexpected event: %+v", evt)
		}
		if evt.Timestamp.IsZero() {
			t.Fatal("timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestSubscriptionClosesOnContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got event")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after the subscriber left must not panic or block.
	s.Changed("tenant", "t-1", OpDelete)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		// Overflow the buffer without the subscriber draining.
		for i := 0; i < 100; i++ {
			s.Changed("payment", "p", OpCreate)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}

	// The buffered prefix is still deliverable.
	select {
	case <-ch:
	default:
		t.Fatal("no events buffered for subscriber")
	}
}

func TestNilStreamChangedIsNoop(t *testing.T) {
	var s *Stream
	s.Changed("shop", "id", OpUpdate)
}
