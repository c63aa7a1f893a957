package therm

import (
	"errors"
	"time"
)

// scriptSensor returns scripted samples; the last one repeats once the
// script is exhausted.
type scriptSensor struct {
	samples []float64
	index   int
	err     error
}

func (s *scriptSensor) Read() (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if len(s.samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	v := s.samples[s.index]
	if s.index < len(s.samples)-1 {
		s.index++
	}
	return v, nil
}

// recordLine records every value written to it.
type recordLine struct {
	values []bool
	on     bool
}

func (l *recordLine) Set(on bool) {
	l.values = append(l.values, on)
	l.on = on
}

func quietLatch(maxReactions int) *Latch {
	l := NewLatch(maxReactions)
	l.SetLogf(func(string, ...any) {})
	return l
}

var (
	t0                  = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	errTestDisconnected = errors.New("sensor disconnected")
)
