// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owgpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/onewire"
)

// Opts contains options to pass to the constructor.
//
// The durations shape the waveform of each bus operation. The defaults
// implement the standard-speed timings from the Maxim 1-wire specification
// and suit every DS18x20-era device; they rarely need to change. Long and
// badly loaded buses can benefit from a longer ResetLow or Write0Low.
type Opts struct {
	ResetLow     time.Duration // reset: low pulse width
	PresenceWait time.Duration // reset: release to presence sample
	ResetTail    time.Duration // reset: presence sample to end of slot
	Write1Low    time.Duration // write-1 slot: low pulse width
	Write1Tail   time.Duration // write-1 slot: release to end of slot
	Write0Low    time.Duration // write-0 slot: low pulse width
	Write0Tail   time.Duration // write-0 slot: release to end of slot
	ReadLow      time.Duration // read slot: low pulse width
	ReadWait     time.Duration // read slot: release to sample
	ReadTail     time.Duration // read slot: sample to end of slot

	// Timebase is the time source pulses are generated against. Leave nil
	// to busy-spin against the host monotonic clock; tests substitute a
	// virtual clock.
	Timebase Timebase
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	ResetLow:     480 * time.Microsecond,
	PresenceWait: 70 * time.Microsecond,
	ResetTail:    410 * time.Microsecond,
	Write1Low:    6 * time.Microsecond,
	Write1Tail:   64 * time.Microsecond,
	Write0Low:    60 * time.Microsecond,
	Write0Tail:   10 * time.Microsecond,
	ReadLow:      6 * time.Microsecond,
	ReadWait:     9 * time.Microsecond,
	ReadTail:     55 * time.Microsecond,
}

// New returns a 1-wire bus master that bit-bangs the protocol on the given
// GPIO pin.
//
// The pin must be capable of both input with pull-up and push-pull output.
// New leaves the bus released (pin high).
func New(p gpio.PinIO, opts *Opts) (*Dev, error) {
	if p == nil {
		return nil, errors.New("owgpio: pin is required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	for _, t := range []time.Duration{
		opts.ResetLow, opts.PresenceWait, opts.ResetTail,
		opts.Write1Low, opts.Write1Tail, opts.Write0Low, opts.Write0Tail,
		opts.ReadLow, opts.ReadWait, opts.ReadTail,
	} {
		if t <= 0 {
			return nil, errors.New("owgpio: all slot durations must be positive")
		}
	}
	tb := opts.Timebase
	if tb == nil {
		tb = NewSpinTimebase()
	}
	d := &Dev{p: p, tb: tb, opts: *opts}
	d.release()
	if d.err != nil {
		return nil, d.err
	}
	return d, nil
}

// Dev is a handle to the bit-banged bus and implements onewire.Bus.
//
// Dev implements a persistent error model: if the GPIO pin itself fails, the
// device places itself into an error state and immediately returns the last
// error on all subsequent calls. A fresh Dev must be created to proceed.
// Protocol-level failures (no presence pulse) do not latch and implement the
// onewire.BusError interface instead.
type Dev struct {
	mu   sync.Mutex
	p    gpio.PinIO
	tb   Timebase
	opts Opts
	err  error // persistent error, device will no longer operate
}

func (d *Dev) String() string {
	return "owgpio{" + d.p.Name() + "}"
}

// Halt implements conn.Resource. It releases the bus.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.release()
	return d.err
}

// Q returns the data line, implementing onewire.Pins.
func (d *Dev) Q() gpio.PinIO {
	return d.p
}

// Tx performs a bus transaction, sending and receiving bytes, and ending by
// pulling the bus high either weakly or strongly depending on the value of
// power.
//
// The transaction starts with a bus reset; if no device answers with a
// presence pulse an error implementing onewire.NoDevicesError is returned.
// Bytes travel least-significant bit first, as everything does on a 1-wire
// bus. A strong pull-up is typically required to power temperature
// conversion or EEPROM writes on parasitically powered devices; on this
// master it is emulated by driving the pin high push-pull until the next
// operation.
func (d *Dev) Tx(w, r []byte, power onewire.Pullup) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if present, err := d.reset(); err != nil {
		return err
	} else if !present {
		return noDevicesError("owgpio: no device present")
	}
	for _, b := range w {
		d.writeByte(b)
	}
	for i := range r {
		r[i] = d.readByte()
	}
	if power == onewire.StrongPullup {
		// Emulated: the pin stays driven high push-pull until the next
		// operation asserts the line again.
		d.drive(gpio.High)
	}
	return d.err
}

// Reset sends a bus reset and reports whether any device answered with a
// presence pulse. The weak pull-up is left in control of the line.
func (d *Dev) Reset() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reset()
}

// WriteBit transmits a single bit slot.
func (d *Dev) WriteBit(bit bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeBit(bit)
	return d.err
}

// ReadBit generates a single read slot and returns the sampled level.
//
// Beyond byte transfers, single read slots are how a master polls a device
// that answers 0 while busy and 1 when done, such as a DS18B20 during a
// temperature conversion.
func (d *Dev) ReadBit() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bit := d.readBit()
	return bit, d.err
}

// Search performs a "search" cycle on the 1-wire bus and returns the
// addresses of all devices on the bus if alarmOnly is false and of all
// devices in alarm state if alarmOnly is true.
func (d *Dev) Search(alarmOnly bool) ([]onewire.Address, error) {
	return onewire.Search(d, alarmOnly)
}

// SearchTriplet performs a single bit search triplet on the bus: it reads
// the ROM bit and its complement from the devices and writes back the
// direction bit that decides which devices stay in the search.
//
// SearchTriplet should not be used directly, use Search instead.
func (d *Dev) SearchTriplet(direction byte) (onewire.TripletResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idBit := d.readBit()
	cmpBit := d.readBit()
	var taken byte
	switch {
	case idBit && cmpBit:
		// No device is participating. Write a 1 to terminate cleanly.
		taken = 1
	case !idBit && !cmpBit:
		// Discrepancy: devices disagree, the caller picks the branch.
		taken = direction
	case idBit:
		taken = 1
	default:
		taken = 0
	}
	d.writeBit(taken != 0)
	tr := onewire.TripletResult{
		GotZero: !idBit,
		GotOne:  !cmpBit,
		Taken:   taken,
	}
	return tr, d.err
}

// reset generates the reset waveform and samples the presence pulse: low
// for ResetLow, release, sample after PresenceWait (a device holding the
// line low is the presence pulse), then wait out ResetTail so devices are
// ready for the first command slot.
func (d *Dev) reset() (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	t := d.tb.Now()
	d.drive(gpio.Low)
	t += d.opts.ResetLow
	d.tb.WaitUntil(t)
	d.release()
	t += d.opts.PresenceWait
	d.tb.WaitUntil(t)
	present := d.sample() == gpio.Low
	t += d.opts.ResetTail
	d.tb.WaitUntil(t)
	if d.err != nil {
		return false, d.err
	}
	return present, nil
}

// writeBit generates one write slot. The slot starts with the falling
// edge; a short low pulse means 1, a low pulse held across the device's
// sample window means 0.
func (d *Dev) writeBit(bit bool) {
	if d.err != nil {
		return
	}
	low, tail := d.opts.Write0Low, d.opts.Write0Tail
	if bit {
		low, tail = d.opts.Write1Low, d.opts.Write1Tail
	}
	t := d.tb.Now()
	d.drive(gpio.Low)
	t += low
	d.tb.WaitUntil(t)
	d.release()
	t += tail
	d.tb.WaitUntil(t)
}

// readBit generates one read slot: a short low pulse hands the slot to the
// device, which holds the line low to send a 0 or leaves it released to
// send a 1. The master samples ReadLow+ReadWait after the falling edge,
// inside the 15µs valid window.
func (d *Dev) readBit() bool {
	if d.err != nil {
		return false
	}
	t := d.tb.Now()
	d.drive(gpio.Low)
	t += d.opts.ReadLow
	d.tb.WaitUntil(t)
	d.release()
	t += d.opts.ReadWait
	d.tb.WaitUntil(t)
	bit := d.sample() == gpio.High
	t += d.opts.ReadTail
	d.tb.WaitUntil(t)
	return bit
}

func (d *Dev) writeByte(b byte) {
	for i := 0; i < 8; i++ {
		d.writeBit(b&(1<<uint(i)) != 0)
	}
}

func (d *Dev) readByte() byte {
	var b byte
	for i := 0; i < 8; i++ {
		if d.readBit() {
			b |= 1 << uint(i)
		}
	}
	return b
}

// drive takes over the line push-pull. Used with gpio.Low to assert the
// bus and with gpio.High to emulate a strong pull-up.
func (d *Dev) drive(l gpio.Level) {
	if d.err != nil {
		return
	}
	if err := d.p.Out(l); err != nil {
		d.err = fmt.Errorf("owgpio: driving bus: %s", err)
	}
}

// release returns the line to the weak pull-up by switching the pin to
// input.
func (d *Dev) release() {
	if d.err != nil {
		return
	}
	if err := d.p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		d.err = fmt.Errorf("owgpio: releasing bus: %s", err)
	}
}

func (d *Dev) sample() gpio.Level {
	if d.err != nil {
		return gpio.Low
	}
	return d.p.Read()
}

// noDevicesError implements error, onewire.NoDevicesError and
// onewire.BusError.
type noDevicesError string

func (e noDevicesError) Error() string   { return string(e) }
func (e noDevicesError) NoDevices() bool { return true }
func (e noDevicesError) BusError() bool  { return true }

var _ conn.Resource = &Dev{}
var _ onewire.Bus = &Dev{}
var _ onewire.BusSearcher = &Dev{}
var _ onewire.Pins = &Dev{}
