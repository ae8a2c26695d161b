// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermo runs the thermometer appliance: nap, measure, flash,
// forever.
//
// The loop never stops on a failed measurement. A missing or garbled
// sensor gets its own flash pattern and the next cycle proceeds as
// usual, so a flaky probe cable shows up on the LEDs instead of wedging
// the appliance.
package thermo

import (
	"errors"
	"sync"
	"time"

	"periph.io/x/conn/v3"

	"periph.io/x/flashtherm/ds18b20"
	"periph.io/x/flashtherm/powernap"
)

// Sensor delivers validated raw temperature readings in 1/16°C units.
// *ds18b20.Dev implements it.
type Sensor interface {
	ReadRaw() (int16, error)
}

// Display flashes a reading or one of the error patterns. *blinker.Dev
// implements it.
type Display interface {
	Show(raw int16) error
	ShowNoDevice() error
	ShowCRC() error
}

// Opts contains options to pass to the constructor.
type Opts struct {
	// Cycle is the nap between measurements.
	Cycle time.Duration
	// Logger receives progress and fault lines. Defaults to NullLogger.
	Logger Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Cycle: 16 * time.Second,
}

// New returns a measurement loop over the given sensor and display.
// A nil naps schedules on the host clock.
func New(s Sensor, d Display, naps *powernap.Scheduler, opts *Opts) (*Loop, error) {
	if s == nil || d == nil {
		return nil, errors.New("thermo: a sensor and a display are required")
	}
	if naps == nil {
		naps = powernap.New(nil)
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Cycle <= 0 {
		return nil, errors.New("thermo: Cycle must be positive")
	}
	l := &Loop{
		sensor:  s,
		display: d,
		naps:    naps,
		opts:    *opts,
		stop:    make(chan struct{}),
	}
	if l.opts.Logger == nil {
		l.opts.Logger = &NullLogger{}
	}
	return l, nil
}

// Loop is the appliance engine.
type Loop struct {
	sensor  Sensor
	display Display
	naps    *powernap.Scheduler
	opts    Opts

	stop chan struct{}
	once sync.Once
}

func (l *Loop) String() string {
	return "thermo.Loop"
}

// Run naps for a cycle, measures, flashes the result and repeats until
// Halt. It returns nil after a Halt; the only errors that surface are
// scheduling ones, which a valid configuration cannot produce.
func (l *Loop) Run() error {
	for {
		select {
		case <-l.stop:
			return nil
		default:
		}
		if err := l.naps.SleepFor(l.opts.Cycle); err != nil {
			return err
		}
		l.cycle()
	}
}

// Halt implements conn.Resource. The loop stops once the in-flight
// cycle completes; naps are not cancelable.
func (l *Loop) Halt() error {
	l.once.Do(func() { close(l.stop) })
	return nil
}

func (l *Loop) cycle() {
	log := l.opts.Logger
	raw, err := l.sensor.ReadRaw()
	if err == nil {
		log.Infof("measured %s", ds18b20.Temperature(raw))
		if err := l.display.Show(raw); err != nil {
			log.Errorf("display failed: %s", err)
		}
		return
	}

	var nde *ds18b20.NoDeviceError
	var ce *ds18b20.CRCError
	switch {
	case errors.As(err, &nde):
		log.Warnf("no sensor answered: %s", err)
		if err := l.display.ShowNoDevice(); err != nil {
			log.Errorf("display failed: %s", err)
		}
	case errors.As(err, &ce):
		log.Warnf("reading rejected: %s", err)
		if err := l.display.ShowCRC(); err != nil {
			log.Errorf("display failed: %s", err)
		}
	default:
		// Host-level faults have no LED vocabulary. Log and let the
		// next cycle try again.
		log.Errorf("measurement failed: %s", err)
	}
}

var _ conn.Resource = &Loop{}
