package mqtt

import (
	"fmt"
	"testing"
)

func msg(i int) queued {
	return queued{topic: Topic, payload: []byte(fmt.Sprintf("m%d", i))}
}

func TestReplayBufferFIFO(t *testing.T) {
	b := newReplayBuffer(4)
	for i := 0; i < 3; i++ {
		b.push(msg(i))
	}
	if b.size() != 3 {
		t.Fatalf("expected size 3, got %d", b.size())
	}

	msgs, dropped := b.drain()
	if dropped != 0 {
		t.Errorf("expected no drops, got %d", dropped)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if string(m.payload) != fmt.Sprintf("m%d", i) {
			t.Errorf("message %d out of order: %s", i, m.payload)
		}
	}
}

func TestReplayBufferDropsOldest(t *testing.T) {
	b := newReplayBuffer(3)
	for i := 0; i < 5; i++ {
		b.push(msg(i))
	}
	if b.size() != 3 {
		t.Fatalf("expected size capped at 3, got %d", b.size())
	}

	msgs, dropped := b.drain()
	if dropped != 2 {
		t.Errorf("expected 2 drops, got %d", dropped)
	}
	want := []string{"m2", "m3", "m4"}
	for i, w := range want {
		if string(msgs[i].payload) != w {
			t.Errorf("message %d: expected %s, got %s", i, w, msgs[i].payload)
		}
	}
}

func TestReplayBufferDrainEmpties(t *testing.T) {
	b := newReplayBuffer(2)
	b.push(msg(0))
	b.drain()

	if b.size() != 0 {
		t.Errorf("expected empty buffer after drain, got %d", b.size())
	}
	msgs, dropped := b.drain()
	if msgs != nil || dropped != 0 {
		t.Errorf("second drain must be empty, got %v dropped=%d", msgs, dropped)
	}

	// Drop counter restarts after a drain.
	b.push(msg(1))
	b.push(msg(2))
	b.push(msg(3))
	if _, dropped := b.drain(); dropped != 1 {
		t.Errorf("expected 1 drop in the new window, got %d", dropped)
	}
}
