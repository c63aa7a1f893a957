package mqtt

// queued is a serialized message waiting for the broker to come back.
type queued struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// replayBuffer holds messages published while the broker is unreachable,
// oldest-first, up to a fixed capacity. When full, the oldest message is
// dropped: a fresh fault or transition matters more than a stale one.
// Not safe for concurrent use — the publisher synchronizes.
type replayBuffer struct {
	msgs    []queued
	cap     int
	dropped int // messages discarded since the last drain
}

func newReplayBuffer(capacity int) *replayBuffer {
	return &replayBuffer{cap: capacity}
}

func (b *replayBuffer) push(m queued) {
	if len(b.msgs) == b.cap {
		copy(b.msgs, b.msgs[1:])
		b.msgs[len(b.msgs)-1] = m
		b.dropped++
		return
	}
	b.msgs = append(b.msgs, m)
}

// drain returns the buffered messages oldest-first together with the
// number dropped while buffering, and empties the buffer.
func (b *replayBuffer) drain() ([]queued, int) {
	msgs := b.msgs
	dropped := b.dropped
	b.msgs = nil
	b.dropped = 0
	return msgs, dropped
}

func (b *replayBuffer) size() int {
	return len(b.msgs)
}
