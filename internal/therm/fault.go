package therm

import (
	"log"
	"sync"
	"time"
)

// DefaultMaxReactions bounds the number of fault reaction callbacks.
const DefaultMaxReactions = 4

// Latch is a write-once fault record for the whole process. The first
// Raise wins; every later call is a no-op. There is no way out of the
// faulted state short of a restart.
//
// The latch is an explicit object rather than package state so tests can
// run independent instances. The write path is mutex-guarded, so even a
// concurrent port could never observe a torn record.
type Latch struct {
	mu           sync.Mutex
	faulted      bool
	record       FaultRecord
	reactions    []func()
	maxReactions int
	logf         func(format string, args ...any)
}

// NewLatch creates an untripped latch holding at most maxReactions
// reaction callbacks. maxReactions <= 0 selects DefaultMaxReactions.
func NewLatch(maxReactions int) *Latch {
	if maxReactions <= 0 {
		maxReactions = DefaultMaxReactions
	}
	return &Latch{
		maxReactions: maxReactions,
		logf:         log.Printf,
	}
}

// SetLogf redirects diagnostic output. Used by tests.
func (l *Latch) SetLogf(logf func(format string, args ...any)) {
	l.logf = logf
}

// Faulted reports whether a fault has been latched.
func (l *Latch) Faulted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.faulted
}

// Record returns the latched fault record, if any.
func (l *Latch) Record() (FaultRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record, l.faulted
}

// OnFault registers a reaction callback to run when a fault latches.
// Reactions are expected to force devices into their safe state; the
// latch itself never touches hardware. Registering beyond the bound is
// itself a fault.
func (l *Latch) OnFault(fn func(), now time.Time) {
	l.mu.Lock()
	if len(l.reactions) >= l.maxReactions {
		l.mu.Unlock()
		l.Raise(FaultRegistrationOverflow, 0, SiteRegisterReaction, now)
		return
	}
	l.reactions = append(l.reactions, fn)
	l.mu.Unlock()
}

// Raise latches the fault. If already latched it does nothing. Otherwise
// it records kind/device/site/time, runs every registered reaction in
// registration order, and dumps the record.
//
// Reactions run outside the lock, so they may query the latch freely.
func (l *Latch) Raise(kind FaultKind, deviceID uint8, site Site, now time.Time) {
	l.mu.Lock()
	if l.faulted {
		l.mu.Unlock()
		return
	}
	l.faulted = true
	l.record = FaultRecord{
		Time:     now,
		DeviceID: deviceID,
		Site:     site,
		Kind:     kind,
	}
	reactions := make([]func(), len(l.reactions))
	copy(reactions, l.reactions)
	l.mu.Unlock()

	for _, fn := range reactions {
		if fn != nil {
			fn()
		}
	}

	l.logf("fault: latching")
	l.Dump()
}

// Dump emits the diagnostic record. May be called again at any time to
// re-print it.
func (l *Latch) Dump() {
	rec, ok := l.Record()
	if !ok {
		l.logf("fault: <none>")
		return
	}
	l.logf("fault (latched): reason=%s device=%d site=%s at=%s",
		rec.Kind, rec.DeviceID, rec.Site, rec.Time.UTC().Format(time.RFC3339))
}
