// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package powernap schedules long idle stretches as chains of short
// watchdog-style naps.
//
// Nap lengths are quantized to power-of-two multiples of 16ms, the way a
// hardware watchdog prescaler quantizes them. Anything longer than the
// longest nap is slept as several arms back to back, each one waiting on
// a fresh one-shot wake event.
package powernap

import (
	"fmt"
	"time"
)

// Code selects a nap length as a power-of-two exponent: a nap of code c
// lasts 16ms << c. Valid codes run from 0 (16ms) to MaxCode (8.192s).
type Code uint8

// MaxCode is the longest nap a single arm can cover.
const MaxCode Code = 9

// Duration returns the nap length the code stands for.
func (c Code) Duration() time.Duration {
	return 16 * time.Millisecond << c
}

func (c Code) String() string {
	if c > MaxCode {
		return fmt.Sprintf("Code(%d)", uint8(c))
	}
	return c.Duration().String()
}

// WakeTimer delivers one-shot wake events.
//
// Each Arm returns a fresh channel that carries exactly one event at
// expiry and then stays silent forever. Implementations must not reuse
// channels across arms, so a late receiver can never pick up a stale
// event from an earlier nap.
type WakeTimer interface {
	Arm(d time.Duration) <-chan struct{}
}

// SysWake arms wake events on the host clock.
type SysWake struct{}

// Arm implements WakeTimer. A non-positive duration delivers the event
// immediately.
func (SysWake) Arm(d time.Duration) <-chan struct{} {
	ch := make(chan struct{}, 1)
	if d <= 0 {
		ch <- struct{}{}
		return ch
	}
	time.AfterFunc(d, func() { ch <- struct{}{} })
	return ch
}

// Scheduler runs naps to completion against a WakeTimer.
type Scheduler struct {
	timer WakeTimer
}

// New returns a Scheduler. A nil w selects the host clock.
func New(w WakeTimer) *Scheduler {
	if w == nil {
		w = SysWake{}
	}
	return &Scheduler{timer: w}
}

// Sleep arms one nap of code c and blocks until its wake event arrives.
func (s *Scheduler) Sleep(c Code) error {
	if c > MaxCode {
		return fmt.Errorf("powernap: invalid nap code %d", uint8(c))
	}
	<-s.timer.Arm(c.Duration())
	return nil
}

// SleepFor naps for at least d, decomposed into as few arms as possible.
// Non-positive durations return immediately without arming.
func (s *Scheduler) SleepFor(d time.Duration) error {
	for _, c := range Decompose(d) {
		if err := s.Sleep(c); err != nil {
			return err
		}
	}
	return nil
}

// Decompose splits a duration into nap codes whose lengths sum to at
// least d: MaxCode naps while the remainder calls for them, then the
// smallest single code covering what is left. The total rounds up, never
// down, so 16s comes out as two 8.192s naps rather than a flurry of
// short ones.
func Decompose(d time.Duration) []Code {
	if d <= 0 {
		return nil
	}
	var codes []Code
	for d >= MaxCode.Duration() {
		codes = append(codes, MaxCode)
		d -= MaxCode.Duration()
	}
	if d > 0 {
		c := Code(0)
		for c.Duration() < d {
			c++
		}
		codes = append(codes, c)
	}
	return codes
}
