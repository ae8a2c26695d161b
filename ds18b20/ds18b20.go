// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18b20

import (
	"errors"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"

	"periph.io/x/flashtherm/common"
)

// BitReader is the optional bus capability used to poll a conversion in
// progress: a busy DS18B20 answers read slots with 0 and a finished one
// with 1. The bit-banged owgpio master implements it; buses that only do
// whole transactions (including recorded playback buses) do not, and the
// driver falls back to sleeping out the worst case.
type BitReader interface {
	ReadBit() (bool, error)
}

// Opts contains options to pass to the constructor.
type Opts struct {
	// MaxConversion bounds the wait for a temperature conversion. On buses
	// without a BitReader it is slept in full. The default is the 12-bit
	// worst case from the datasheet.
	MaxConversion time.Duration
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	MaxConversion: 750 * time.Millisecond,
}

// New returns an object that communicates over 1-wire to a DS18B20-family
// temperature sensor that is the only device on its bus.
//
// Every transaction addresses the sensor with Skip ROM, so a second device
// on the same bus would answer at the same time and garble the replies.
// New does not touch the bus: a sensor that is absent at construction time
// is reported by the first read instead, which lets an appliance start
// before its probe is plugged in.
func New(o onewire.Bus, opts *Opts) (*Dev, error) {
	if o == nil {
		return nil, errors.New("ds18b20: bus is required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.MaxConversion <= 0 {
		return nil, errors.New("ds18b20: MaxConversion must be positive")
	}
	d := &Dev{bus: o, opts: *opts}
	d.bits, _ = o.(BitReader)
	return d, nil
}

// Dev is a handle to a Dallas Semi / Maxim DS18B20 temperature sensor as
// the sole device on a 1-wire bus.
type Dev struct {
	bus  onewire.Bus
	bits BitReader // non-nil when the bus can generate single read slots
	opts Opts
}

func (d *Dev) String() string {
	return "DS18B20{" + d.bus.String() + "}"
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return nil
}

// ReadRaw performs one full measurement and returns the validated raw
// temperature in units of 1/16°C.
//
// The sequence is: start a conversion with the bus strongly pulled up so a
// parasitically powered sensor stays fed, wait for it to finish, then read
// the 9-byte scratchpad back and verify its CRC. A missing sensor is
// reported as *NoDeviceError, a mangled scratchpad as *CRCError; neither
// gets partially validated data out of this function.
func (d *Dev) ReadRaw() (int16, error) {
	if err := d.bus.Tx([]byte{0xcc, 0x44}, nil, onewire.StrongPullup); err != nil {
		return 0, mapBusError(err)
	}
	if err := d.waitConversion(); err != nil {
		return 0, err
	}
	var spad [9]byte
	if err := d.bus.Tx([]byte{0xcc, 0xbe}, spad[:], onewire.WeakPullup); err != nil {
		return 0, mapBusError(err)
	}
	if !common.CheckDallas(spad[:]) {
		for _, s := range spad {
			if s != 0xff {
				return 0, &CRCError{Scratchpad: spad}
			}
		}
		// All ones means nothing drove the line: the sensor dropped off
		// the bus after answering the presence pulse.
		return 0, &NoDeviceError{}
	}
	return int16(spad[1])<<8 | int16(spad[0]), nil
}

// Sense implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	raw, err := d.ReadRaw()
	if err != nil {
		return err
	}
	e.Temperature = Temperature(raw)
	return nil
}

// SenseContinuous implements physic.SenseEnv.
func (d *Dev) SenseContinuous(time.Duration) (<-chan physic.Env, error) {
	return nil, errors.New("ds18b20: not implemented")
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 16
}

// Temperature converts a raw reading in 1/16°C units to a
// physic.Temperature.
func Temperature(raw int16) physic.Temperature {
	// raw has 4 fractional bits. Sign extend, scale. Datasheet p.4.
	v := physic.Temperature(raw)
	return v*physic.Kelvin/16 + physic.ZeroCelsius
}

// waitConversion blocks until the sensor reports the conversion finished,
// or MaxConversion of bus time has been polled away, whichever is first.
func (d *Dev) waitConversion() error {
	if d.bits == nil {
		sleep(d.opts.MaxConversion)
		return nil
	}
	// Each poll costs one read slot of bus time, so capping the attempts
	// bounds the wait at MaxConversion regardless of how fast the host
	// itself runs. The two spare slots keep a conversion that finishes
	// right at the bound from being miscalled as a timeout.
	attempts := int(d.opts.MaxConversion/readSlot) + 2
	for i := 0; i < attempts; i++ {
		done, err := d.bits.ReadBit()
		if err != nil {
			return mapBusError(err)
		}
		if done {
			return nil
		}
	}
	return busError("ds18b20: conversion timed out")
}

// mapBusError folds the bus's own "nobody home" signal into this driver's
// error taxonomy and passes everything else through.
func mapBusError(err error) error {
	if _, ok := err.(onewire.NoDevicesError); ok {
		return &NoDeviceError{}
	}
	return err
}

// busError implements error and onewire.BusError.
type busError string

func (e busError) Error() string  { return string(e) }
func (e busError) BusError() bool { return true }

var sleep = time.Sleep

// readSlot is the nominal duration of one standard-speed read slot.
const readSlot = 70 * time.Microsecond

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
