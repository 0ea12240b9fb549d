package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/veriflow/accounts-api/internal/core/ports"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []ports.Message
	err  error
	done chan struct{}
}

func newRecordingSender(expected int) *recordingSender {
	return &recordingSender{done: make(chan struct{}, expected)}
}

func (s *recordingSender) Send(_ context.Context, msg ports.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.done <- struct{}{}
	return s.err
}

func (s *recordingSender) wait(t *testing.T, n int) []ports.Message {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d of %d", i+1, n)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Message(nil), s.sent...)
}

func TestDispatcher_DeliversEnqueuedMessage(t *testing.T) {
	sender := newRecordingSender(1)
	d := NewDispatcher(2, sender, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	msg := ports.Message{To: "a@b.com", Subject: "your code", TextBody: "123456"}
	if err := d.Send(context.Background(), msg); err != nil {
		t.Fatalf("enqueue must not fail: %v", err)
	}

	sent := sender.wait(t, 1)
	if sent[0].To != "a@b.com" || sent[0].Subject != "your code" {
		t.Fatalf("unexpected delivery: %+v", sent[0])
	}
}

func TestDispatcher_SendNeverPropagatesDeliveryFailure(t *testing.T) {
	sender := newRecordingSender(1)
	sender.err = errors.New("smtp: connection refused")
	d := NewDispatcher(1, sender, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	if err := d.Send(context.Background(), ports.Message{To: "a@b.com"}); err != nil {
		t.Fatalf("delivery failures must stay inside the worker, got %v", err)
	}
	sender.wait(t, 1)
}

func TestDispatcher_SameRecipientSameWorker(t *testing.T) {
	d := NewDispatcher(8, newRecordingSender(0), zerolog.Nop())

	first := d.shardIndex("a@b.com")
	for i := 0; i < 100; i++ {
		if got := d.shardIndex("a@b.com"); got != first {
			t.Fatalf("shard index must be stable, got %d then %d", first, got)
		}
	}
	if first < 0 || first >= len(d.workers) {
		t.Fatalf("shard index out of range: %d", first)
	}
}

func TestDispatcher_PreservesOrderPerRecipient(t *testing.T) {
	const n = 20
	sender := newRecordingSender(n)
	d := NewDispatcher(4, sender, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < n; i++ {
		_ = d.Send(context.Background(), ports.Message{To: "a@b.com", Subject: string(rune('a' + i))})
	}

	sent := sender.wait(t, n)
	for i := 1; i < len(sent); i++ {
		if sent[i].Subject < sent[i-1].Subject {
			t.Fatalf("deliveries to one recipient arrived out of order: %q before %q", sent[i-1].Subject, sent[i].Subject)
		}
	}
}

func TestDispatcher_DefaultWorkerCount(t *testing.T) {
	d := NewDispatcher(0, newRecordingSender(0), zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
}

func TestDispatcher_StopsOnContextCancel(t *testing.T) {
	sender := newRecordingSender(1)
	d := NewDispatcher(1, sender, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	_ = d.Send(context.Background(), ports.Message{To: "a@b.com"})
	sender.wait(t, 1)

	cancel()
	// A message enqueued after shutdown sits in the buffer unharmed; Send
	// itself still reports success because the contract is fire-and-forget.
	if err := d.Send(context.Background(), ports.Message{To: "a@b.com"}); err != nil {
		t.Fatalf("enqueue after shutdown must not fail: %v", err)
	}
}
