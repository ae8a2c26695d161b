// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owgpio

import (
	"time"

	"periph.io/x/host/v3/cpu"
)

// Timebase is the time source the bus master shapes its pulses against.
//
// Now returns the elapsed time on a monotonic counter with microsecond or
// better resolution. WaitUntil blocks until Now() >= t; it must never
// return early. Deadlines are always derived from a fresh Now() at the
// start of each pulse, so implementations need no state beyond the counter
// itself.
type Timebase interface {
	Now() time.Duration
	WaitUntil(t time.Duration)
}

// SpinTimebase is the Timebase used on real hardware: the host monotonic
// clock, waited on by busy-spinning the CPU.
//
// Spinning burns a core for the duration of a bus operation (a full reset
// is about 1ms, a byte about 0.6ms) but is the only way to hit single-digit
// microsecond deadlines from user space; sleeping would hand the CPU to the
// scheduler which is free to come back hundreds of microseconds late.
type SpinTimebase struct {
	origin time.Time
}

// NewSpinTimebase returns a SpinTimebase anchored at the current time.
func NewSpinTimebase() *SpinTimebase {
	return &SpinTimebase{origin: time.Now()}
}

// Now implements Timebase.
func (s *SpinTimebase) Now() time.Duration {
	return time.Since(s.origin)
}

// WaitUntil implements Timebase.
func (s *SpinTimebase) WaitUntil(t time.Duration) {
	for {
		d := t - time.Since(s.origin)
		if d <= 0 {
			return
		}
		cpu.Nanospin(d)
	}
}

var _ Timebase = &SpinTimebase{}
