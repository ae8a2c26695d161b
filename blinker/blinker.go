// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package blinker flashes numbers on a red/green LED pair, one bit at a
// time.
//
// A value shows MSB first starting at its highest set bit: red for a one,
// green for a zero, so leading zeros never cost a pulse. Zero itself
// shows as a single green pulse. Negative values lead with a green sign
// pulse, set apart from the bit group by a longer gap.
package blinker

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Opts contains options to pass to the constructor.
type Opts struct {
	// On is how long each pulse lights its LED.
	On time.Duration
	// Off is the dark pause after every pulse.
	Off time.Duration
	// Gap is the extra pause between pulse groups, on top of Off.
	Gap time.Duration
	// ActiveLow inverts the drive polarity for common-anode wiring.
	ActiveLow bool
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	On:  300 * time.Millisecond,
	Off: 300 * time.Millisecond,
	Gap: 900 * time.Millisecond,
}

// New returns an object that flashes values on two LEDs wired to GPIOs.
// Both LEDs start dark.
func New(red, green gpio.PinIO, opts *Opts) (*Dev, error) {
	if red == nil || green == nil {
		return nil, errors.New("blinker: two pins are required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.On <= 0 || opts.Off <= 0 || opts.Gap <= 0 {
		return nil, errors.New("blinker: durations must be positive")
	}
	d := &Dev{red: red, green: green, opts: *opts}
	if err := d.Halt(); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev drives a red and a green LED as a one-bit-at-a-time display.
type Dev struct {
	red   gpio.PinIO
	green gpio.PinIO
	opts  Opts
}

func (d *Dev) String() string {
	return "blinker{" + d.red.Name() + ", " + d.green.Name() + "}"
}

// Halt implements conn.Resource. It turns both LEDs off.
func (d *Dev) Halt() error {
	if err := d.set(d.red, false); err != nil {
		return err
	}
	return d.set(d.green, false)
}

// Flash pulses the pattern out bit by bit, red for ones and green for
// zeros, starting at the highest set bit. A zero pattern is a single
// green pulse. Flash blocks until the last pulse has gone dark.
func (d *Dev) Flash(pattern byte) error {
	start := -1
	for i := 7; i >= 0; i-- {
		if pattern&(1<<uint(i)) != 0 {
			start = i
			break
		}
	}
	if start < 0 {
		return d.pulse(d.green)
	}
	for i := start; i >= 0; i-- {
		p := d.green
		if pattern&(1<<uint(i)) != 0 {
			p = d.red
		}
		if err := d.pulse(p); err != nil {
			return err
		}
	}
	return nil
}

// Show displays a raw temperature in 1/16°C units as its whole-degree
// magnitude. A negative value is announced by a green sign pulse before
// the bit group. The DS18B20's -55°C..125°C span keeps the shown
// magnitude within a byte.
func (d *Dev) Show(raw int16) error {
	v := int(raw)
	if v < 0 {
		v = -v
		if err := d.pulse(d.green); err != nil {
			return err
		}
		sleep(d.opts.Gap)
	}
	return d.Flash(byte(v >> 4))
}

// ShowNoDevice flashes the no-sensor pattern: three red pulses.
func (d *Dev) ShowNoDevice() error {
	for i := 0; i < 3; i++ {
		if err := d.pulse(d.red); err != nil {
			return err
		}
	}
	return nil
}

// ShowCRC flashes the corrupted-reading pattern: red green red green.
func (d *Dev) ShowCRC() error {
	for i := 0; i < 2; i++ {
		if err := d.pulse(d.red); err != nil {
			return err
		}
		if err := d.pulse(d.green); err != nil {
			return err
		}
	}
	return nil
}

// pulse lights one LED for On, then leaves both dark for Off.
func (d *Dev) pulse(p gpio.PinIO) error {
	if err := d.set(p, true); err != nil {
		return err
	}
	sleep(d.opts.On)
	if err := d.set(p, false); err != nil {
		return err
	}
	sleep(d.opts.Off)
	return nil
}

func (d *Dev) set(p gpio.PinIO, on bool) error {
	if err := p.Out(gpio.Level(on != d.opts.ActiveLow)); err != nil {
		return fmt.Errorf("blinker: driving %s: %s", p.Name(), err)
	}
	return nil
}

// sleep is a seam so tests run fast.
var sleep = time.Sleep

var _ conn.Resource = &Dev{}
