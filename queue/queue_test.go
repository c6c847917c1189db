package queue

import (
	"testing"
	"time"

	"github.com/splotd/splotd/parser"
)

// TestQueuePushPopOrder ensures frames come out in the order they were pushed
func TestQueuePushPopOrder(t *testing.T) {
	q := NewQueue()
	lines := []string{"a:1", "a:2", "a:3"}
	for _, line := range lines {
		q.Push(&Frame{Timestamp: time.Now(), Raw: line, Batch: parser.ParseLine(line)})
	}
	for _, line := range lines {
		frame := q.Pop()
		if frame == nil {
			t.Fatal("queue returned nil before draining all frames")
		}
		if frame.Raw != line {
			t.Fatalf("frames reordered: expected %q, received %q", line, frame.Raw)
		}
	}
	if frame := q.Pop(); frame != nil {
		t.Fatalf("expected nil from an empty queue, received %v", frame)
	}
}

// TestQueueSubscribe ensures listeners are signalled on push and duplicate
// subscriptions are rejected
func TestQueueSubscribe(t *testing.T) {
	q := NewQueue()
	sigChan, unsub, err := q.Subscribe("test-listener")
	if err != nil {
		t.Fatalf("could not subscribe: %v", err)
	}
	defer unsub()
	if _, _, err := q.Subscribe("test-listener"); err != ErrAlreadySubscribed {
		t.Fatalf("expected ErrAlreadySubscribed, received %v", err)
	}
	q.Push(&Frame{Raw: "10,20"})
	select {
	case n := <-sigChan:
		if n != 1 {
			t.Fatalf("expected queue length 1 in signal, received %v", n)
		}
	case <-time.After(time.Second):
		t.Fatal("no signal received after push")
	}
}
