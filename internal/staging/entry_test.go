package staging

import (
	"bytes"
	"testing"
)

func newTestBuffer(t *testing.T, capacity int) *Buffer {
	t.Helper()
	buffer, err := New([]string{"Test", "Staging"}, 0, capacity)
	if err != nil {
		t.Fatalf("failed creating staging buffer: %v", err)
	}
	return buffer
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		expectErr bool
	}{
		{
			name:     "power of two",
			capacity: 4096,
		},
		{
			name:      "not power of two",
			capacity:  4095,
			expectErr: true,
		},
		{
			name:      "zero",
			capacity:  0,
			expectErr: true,
		},
		{
			name:      "one",
			capacity:  1,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]string{"Test"}, 0, tt.capacity)
			if tt.expectErr && err == nil {
				t.Fatalf("expected error for capacity %d", tt.capacity)
			}
			if !tt.expectErr && err != nil {
				t.Fatalf("unexpected error for capacity %d: %v", tt.capacity, err)
			}
		})
	}
}

func TestReserveCommitPeekConsume(t *testing.T) {
	buffer := newTestBuffer(t, 4096)

	payload := []byte("hello staging ring")

	span := buffer.Reserve(len(payload))
	if span == nil {
		t.Fatalf("expected reservation to succeed on empty ring")
	}
	copy(span, payload)

	// Not yet committed, consumer must see nothing
	if readable := buffer.Peek(); len(readable) != 0 {
		t.Fatalf("peek returned %d bytes before commit", len(readable))
	}

	buffer.Commit(len(payload))

	readable := buffer.Peek()
	if !bytes.Equal(readable, payload) {
		t.Fatalf("peek mismatch: got %q want %q", readable, payload)
	}

	buffer.Consume(len(readable))

	if !buffer.Empty() {
		t.Fatalf("ring should be empty after consuming everything")
	}
	if readable := buffer.Peek(); len(readable) != 0 {
		t.Fatalf("peek returned %d bytes on empty ring", len(readable))
	}
}

func TestEqualPositionsMeanEmpty(t *testing.T) {
	buffer := newTestBuffer(t, 256)

	// Fill and drain a few times so the positions travel the ring
	payload := make([]byte, 100)
	for i := 0; i < 10; i++ {
		span := buffer.Reserve(len(payload))
		copy(span, payload)
		buffer.Commit(len(payload))

		readable := buffer.Peek()
		buffer.Consume(len(readable))

		if !buffer.Empty() {
			t.Fatalf("round %d: positions advanced but ring not empty", i)
		}
		if got := buffer.Peek(); len(got) != 0 {
			t.Fatalf("round %d: peek on drained ring returned %d bytes", i, len(got))
		}
	}
}

func TestTryReserveSentinel(t *testing.T) {
	buffer := newTestBuffer(t, 256)

	// Fill the ring up: usable capacity is size-1
	span := buffer.TryReserve(200)
	if span == nil {
		t.Fatalf("first reservation should succeed")
	}
	buffer.Commit(200)

	// Remaining contiguous space is too small
	if span := buffer.TryReserve(200); span != nil {
		t.Fatalf("expected nil sentinel on full ring")
	}
	if buffer.Metrics.ReserveFails.Load() == 0 {
		t.Fatalf("expected reserve_fails metric to increment")
	}

	// Drain, then a reservation fits again (strict inequality keeps
	// one byte unusable, so request less than the freed run)
	readable := buffer.Peek()
	buffer.Consume(len(readable))

	if span := buffer.TryReserve(100); span == nil {
		t.Fatalf("expected reservation to succeed after drain")
	}
}

func TestWrapSkipsTailSlack(t *testing.T) {
	buffer := newTestBuffer(t, 256)

	// First entry leaves a tail too small for the second
	first := bytes.Repeat([]byte{0xAA}, 200)
	span := buffer.Reserve(len(first))
	copy(span, first)
	buffer.Commit(len(first))

	readable := buffer.Peek()
	if !bytes.Equal(readable, first) {
		t.Fatalf("first peek mismatch")
	}
	buffer.Consume(len(readable))

	// Second entry cannot fit in the 56-byte tail, so the producer
	// wraps and the entry lands at the start of the ring
	second := bytes.Repeat([]byte{0xBB}, 100)
	span = buffer.Reserve(len(second))
	copy(span, second)
	buffer.Commit(len(second))

	if buffer.Metrics.Wraps.Load() != 1 {
		t.Fatalf("expected exactly one wrap, got %d", buffer.Metrics.Wraps.Load())
	}

	// Consumer first sees the empty pre-wrap run, then rolls over
	readable = buffer.Peek()
	if !bytes.Equal(readable, second) {
		t.Fatalf("post-wrap peek mismatch: got %d bytes", len(readable))
	}
	buffer.Consume(len(readable))

	if !buffer.Empty() {
		t.Fatalf("ring should be empty after wrap round-trip")
	}
}

func TestNoWrapOntoConsumerAtStart(t *testing.T) {
	buffer := newTestBuffer(t, 256)

	// Consumer is parked at the ring start with committed data ahead
	span := buffer.Reserve(200)
	copy(span, bytes.Repeat([]byte{0xCC}, 200))
	buffer.Commit(200)

	// The tail cannot fit this and the consumer has not moved, so a
	// blocking reserve would spin; non-blocking must return the
	// sentinel instead of wrapping onto the consumer position
	if span := buffer.TryReserve(100); span != nil {
		t.Fatalf("reservation must fail while consumer holds the ring start")
	}

	// The committed data must still be fully readable
	readable := buffer.Peek()
	if len(readable) != 200 {
		t.Fatalf("expected 200 readable bytes, got %d", len(readable))
	}
}

func TestCheckCanDelete(t *testing.T) {
	buffer := newTestBuffer(t, 256)

	span := buffer.Reserve(50)
	copy(span, bytes.Repeat([]byte{0xDD}, 50))
	buffer.Commit(50)

	if buffer.CheckCanDelete() {
		t.Fatalf("ring with live producer must not be deletable")
	}

	buffer.MarkForDealloc()

	if buffer.CheckCanDelete() {
		t.Fatalf("ring with undrained data must not be deletable")
	}

	readable := buffer.Peek()
	buffer.Consume(len(readable))

	if !buffer.CheckCanDelete() {
		t.Fatalf("released and drained ring must be deletable")
	}
}
