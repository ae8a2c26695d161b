// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owgpiotest simulates a 1-wire line at the electrical level so the
// bit-banged master in owgpio can be exercised without hardware and without
// real time.
//
// The pieces are a Clock (a virtual microsecond timebase with an event
// queue), a Line (an open-drain wire with a pull-up, recording every
// transition), and device models that attach to the line: Thermometer (a
// behavioral DS18B20), Script (plays back fixed bits) and Loopback (echoes
// written bits). Everything runs synchronously on the goroutine driving the
// master: device reactions are scheduled on the Clock and executed while
// the master waits out its slot deadlines, so a whole conversion including
// its 750ms wait finishes in microseconds of wall time and is exactly
// reproducible.
//
// None of the types are safe for concurrent use; a simulation is driven
// from a single goroutine.
package owgpiotest

import (
	"errors"
	"sort"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Clock is a deterministic virtual timebase. It implements owgpio.Timebase.
//
// Time only moves when WaitUntil is called; scheduled events fire in
// timestamp order as the deadline sweeps past them.
type Clock struct {
	now    time.Duration
	events []event
	seq    int
}

type event struct {
	at  time.Duration
	seq int
	fn  func()
}

// NewClock returns a Clock at time zero.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current virtual time.
func (c *Clock) Now() time.Duration {
	return c.now
}

// WaitUntil advances virtual time to t, running every event scheduled at or
// before t in order. Events may schedule further events.
func (c *Clock) WaitUntil(t time.Duration) {
	for len(c.events) > 0 && c.events[0].at <= t {
		e := c.events[0]
		c.events = c.events[1:]
		if e.at > c.now {
			c.now = e.at
		}
		e.fn()
	}
	if t > c.now {
		c.now = t
	}
}

// Advance moves virtual time forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.WaitUntil(c.now + d)
}

func (c *Clock) schedule(at time.Duration, fn func()) {
	if at < c.now {
		at = c.now
	}
	c.seq++
	c.events = append(c.events, event{at: at, seq: c.seq, fn: fn})
	sort.SliceStable(c.events, func(i, j int) bool {
		if c.events[i].at != c.events[j].at {
			return c.events[i].at < c.events[j].at
		}
		return c.events[i].seq < c.events[j].seq
	})
}

// Edge is one recorded line transition. Level is the level after the
// transition.
type Edge struct {
	T     time.Duration
	Level gpio.Level
}

// Line is a virtual open-drain 1-wire line with a pull-up resistor.
//
// The master side is exposed as a gpio.PinIO via Pin; devices attach
// internally. The line is high unless the master or at least one device
// asserts it low. Every transition is recorded with its timestamp.
type Line struct {
	clk       *Clock
	pin       *masterPin
	masterLow bool
	taps      []*tap
	listeners []func(t time.Duration, l gpio.Level)
	level     gpio.Level
	edges     []Edge
	pull      gpio.Pull
}

// NewLine returns a released (high) line on the given clock.
func NewLine(clk *Clock) *Line {
	l := &Line{clk: clk, level: gpio.High, pull: gpio.PullUp}
	l.pin = &masterPin{l: l}
	return l
}

// Pin returns the master side of the line. Driving it low asserts the
// line; switching it to input (or driving it high) releases it.
func (l *Line) Pin() gpio.PinIO {
	return l.pin
}

// Level returns the current electrical level of the line.
func (l *Line) Level() gpio.Level {
	return l.level
}

// Edges returns a copy of all transitions recorded so far.
func (l *Line) Edges() []Edge {
	e := make([]Edge, len(l.edges))
	copy(e, l.edges)
	return e
}

// tap is a device-side connection to the line.
type tap struct {
	l   *Line
	low bool
}

func (l *Line) attach(onChange func(t time.Duration, lv gpio.Level)) *tap {
	t := &tap{l: l}
	l.taps = append(l.taps, t)
	if onChange != nil {
		l.listeners = append(l.listeners, onChange)
	}
	return t
}

// hold asserts or releases the device side of the tap.
func (t *tap) hold(low bool) {
	t.low = low
	t.l.recompute()
}

func (l *Line) setMasterLow(low bool) {
	l.masterLow = low
	l.recompute()
}

func (l *Line) recompute() {
	lv := gpio.High
	if l.masterLow {
		lv = gpio.Low
	} else {
		for _, t := range l.taps {
			if t.low {
				lv = gpio.Low
				break
			}
		}
	}
	if lv == l.level {
		return
	}
	l.level = lv
	now := l.clk.Now()
	l.edges = append(l.edges, Edge{T: now, Level: lv})
	for _, fn := range l.listeners {
		fn(now, lv)
	}
}

// masterPin implements gpio.PinIO for the master side of a Line.
type masterPin struct {
	l *Line
}

func (p *masterPin) Name() string {
	return "owsim"
}

func (p *masterPin) Number() int {
	return 0
}

func (p *masterPin) Function() string {
	if p.l.masterLow {
		return "Out/Low"
	}
	return "In/High"
}

func (p *masterPin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.l.pull = pull
	p.l.setMasterLow(false)
	return nil
}

func (p *masterPin) Read() gpio.Level {
	return p.l.level
}

func (p *masterPin) WaitForEdge(timeout time.Duration) bool {
	return false
}

func (p *masterPin) Pull() gpio.Pull {
	return p.l.pull
}

func (p *masterPin) DefaultPull() gpio.Pull {
	return gpio.PullUp
}

func (p *masterPin) Out(l gpio.Level) error {
	// Push-pull high is indistinguishable from released on this line: the
	// pull-up wins either way. Only low asserts.
	p.l.setMasterLow(l == gpio.Low)
	return nil
}

func (p *masterPin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("owgpiotest: pwm not supported")
}

func (p *masterPin) Halt() error {
	p.l.setMasterLow(false)
	return nil
}

func (p *masterPin) String() string {
	return p.Name()
}

var _ gpio.PinIO = &masterPin{}
