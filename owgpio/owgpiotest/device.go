// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owgpiotest

import (
	"encoding/binary"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/onewire"

	"periph.io/x/flashtherm/common"
)

// Thermometer is a behavioral model of a DS18B20 attached to a Line.
//
// It answers a reset with a presence pulse, decodes write slots by sampling
// the line mid-slot, and understands Skip ROM, Read ROM, Match ROM, Convert
// T, Read/Write Scratchpad and Copy Scratchpad. During a conversion it
// answers read slots with 0 until ConvertTime has elapsed, then with 1.
// Search ROM is not modeled.
//
// The exported fields may be changed between bus transactions, not during
// one.
type Thermometer struct {
	// Present controls the presence pulse; clear it to simulate an absent
	// device.
	Present bool
	// ConvertTime is how long a temperature conversion takes. Virtual time
	// is free, so the default is the 12-bit worst case from the datasheet.
	ConvertTime time.Duration
	// Scratchpad is the 9-byte device memory including the trailing CRC.
	Scratchpad [9]byte
	// Addr is the 64-bit ROM code used by Read ROM and Match ROM.
	Addr onewire.Address

	clk        *Clock
	tap        *tap
	state      int
	lowAt      time.Duration
	rx         byte
	rxBits     int
	matchIdx   int
	matchOK    bool
	wrIdx      int
	outBits    []bool
	convertEnd time.Duration
}

// NewThermometer attaches a present 12-bit DS18B20 model to the line, with
// its temperature registers set to raw (in units of 1/16°C).
func NewThermometer(l *Line, raw int16) *Thermometer {
	t := &Thermometer{
		Present:     true,
		ConvertTime: 750 * time.Millisecond,
		Addr:        ROMAddress(0x28, 0x000079d3c0de),
		clk:         l.clk,
	}
	t.SetTemperature(raw)
	t.tap = l.attach(t.onChange)
	return t
}

// SetTemperature loads the temperature registers with raw (1/16°C units),
// resets the rest of the scratchpad to power-on defaults and fixes up the
// CRC.
func (t *Thermometer) SetTemperature(raw int16) {
	t.Scratchpad = [9]byte{byte(raw), byte(raw >> 8), 0x4b, 0x46, 0x7f, 0xff, 0x0c, 0x10, 0}
	t.Scratchpad[8] = common.CRC8Dallas(t.Scratchpad[:8])
}

// Corrupt damages the scratchpad CRC so the next read fails its check, the
// way a marginal bus mangles a byte in flight.
func (t *Thermometer) Corrupt() {
	t.Scratchpad[8] ^= 0x5a
}

func (t *Thermometer) onChange(now time.Duration, lv gpio.Level) {
	if !t.Present {
		return
	}
	if lv == gpio.Low {
		t.lowAt = now
		if t.tap.low {
			// Our own pulse, not a master slot.
			return
		}
		switch t.state {
		case stateROM, stateMatch, stateCmd, stateWrite:
			t.clk.schedule(now+sampleDelay, t.sampleWrite)
		case stateRead:
			if len(t.outBits) > 0 {
				bit := t.outBits[0]
				t.outBits = t.outBits[1:]
				if !bit {
					t.holdLow(now)
				}
			}
		case statePoll:
			if now < t.convertEnd {
				// Still converting: answer the poll slot with a 0.
				t.holdLow(now)
			}
		}
		return
	}
	if now-t.lowAt >= resetThreshold {
		t.reset(now)
	}
}

// reset reacts to the rising edge of a reset pulse: protocol state is
// cleared and the presence pulse is scheduled. A conversion in progress
// keeps its completion time.
func (t *Thermometer) reset(now time.Duration) {
	t.rx, t.rxBits = 0, 0
	t.outBits = nil
	t.state = stateROM
	t.clk.schedule(now+presenceDelay, func() { t.tap.hold(true) })
	t.clk.schedule(now+presenceDelay+presenceWidth, func() { t.tap.hold(false) })
}

// sampleWrite reads the line mid-slot: still low means the master is
// writing a 0, released means a 1.
func (t *Thermometer) sampleWrite() {
	switch t.state {
	case stateROM, stateMatch, stateCmd, stateWrite:
	default:
		return
	}
	t.shiftRx(t.tap.l.level == gpio.High)
}

func (t *Thermometer) shiftRx(bit bool) {
	if bit {
		t.rx |= 1 << uint(t.rxBits)
	}
	t.rxBits++
	if t.rxBits < 8 {
		return
	}
	b := t.rx
	t.rx, t.rxBits = 0, 0
	t.byteReceived(b)
}

func (t *Thermometer) byteReceived(b byte) {
	switch t.state {
	case stateROM:
		switch b {
		case cmdSkipROM:
			t.state = stateCmd
		case cmdReadROM:
			var rom [8]byte
			binary.LittleEndian.PutUint64(rom[:], uint64(t.Addr))
			t.loadOut(rom[:])
			t.state = stateRead
		case cmdMatchROM:
			t.matchIdx, t.matchOK = 0, true
			t.state = stateMatch
		default:
			t.state = stateIdle
		}
	case stateMatch:
		if b != byte(t.Addr>>uint(8*t.matchIdx)) {
			t.matchOK = false
		}
		t.matchIdx++
		if t.matchIdx == 8 {
			t.state = stateIdle
			if t.matchOK {
				t.state = stateCmd
			}
		}
	case stateCmd:
		switch b {
		case cmdConvert:
			t.convertEnd = t.clk.Now() + t.ConvertTime
			t.state = statePoll
		case cmdReadScratchpad:
			t.loadOut(t.Scratchpad[:])
			t.state = stateRead
		case cmdWriteScratchpad:
			t.wrIdx = 0
			t.state = stateWrite
		case cmdCopyScratchpad:
			// EEPROM is not modeled; the copy is instant.
			t.state = stateIdle
		default:
			// Unmodeled command: wait for a reset.
			t.state = stateIdle
		}
	case stateWrite:
		t.Scratchpad[2+t.wrIdx] = b
		t.wrIdx++
		if t.wrIdx == 3 {
			t.Scratchpad[8] = common.CRC8Dallas(t.Scratchpad[:8])
			t.state = stateIdle
		}
	}
}

func (t *Thermometer) loadOut(bs []byte) {
	t.outBits = make([]bool, 0, len(bs)*8)
	for _, b := range bs {
		for i := 0; i < 8; i++ {
			t.outBits = append(t.outBits, b&(1<<uint(i)) != 0)
		}
	}
}

func (t *Thermometer) holdLow(now time.Duration) {
	t.tap.hold(true)
	t.clk.schedule(now+readHold, func() { t.tap.hold(false) })
}

// ROMAddress builds a 64-bit ROM code from a family code and a 48-bit
// serial, with a valid CRC in the top byte.
func ROMAddress(family byte, serial uint64) onewire.Address {
	var b [8]byte
	b[0] = family
	for i := 0; i < 6; i++ {
		b[1+i] = byte(serial >> uint(8*i))
	}
	b[7] = common.CRC8Dallas(b[:7])
	return onewire.Address(binary.LittleEndian.Uint64(b[:]))
}

// Script is a device that answers consecutive slots with a fixed bit
// sequence: a true bit leaves the line released, a false bit holds it low.
// It sends a presence pulse on reset and rewinds to the start of the
// sequence.
//
// Script cannot tell read slots from write slots; it consumes one bit per
// falling edge. When mixing reads and writes, pad Bits with true at the
// positions of master write slots.
type Script struct {
	Bits []bool

	clk   *Clock
	tap   *tap
	lowAt time.Duration
	i     int
}

// NewScript attaches a Script playing bits to the line.
func NewScript(l *Line, bits []bool) *Script {
	s := &Script{Bits: bits, clk: l.clk}
	s.tap = l.attach(s.onChange)
	return s
}

func (s *Script) onChange(now time.Duration, lv gpio.Level) {
	if lv == gpio.Low {
		s.lowAt = now
		if s.tap.low {
			// Our own pulse, not a master slot.
			return
		}
		if s.i < len(s.Bits) {
			bit := s.Bits[s.i]
			s.i++
			if !bit {
				s.tap.hold(true)
				s.clk.schedule(now+readHold, func() { s.tap.hold(false) })
			}
		}
		return
	}
	if now-s.lowAt >= resetThreshold {
		s.i = 0
		s.clk.schedule(now+presenceDelay, func() { s.tap.hold(true) })
		s.clk.schedule(now+presenceDelay+presenceWidth, func() { s.tap.hold(false) })
	}
}

// Loopback records the first RecordBytes bytes the master writes after a
// reset and then plays the recorded bits back for the slots that follow.
// It answers resets with a presence pulse.
type Loopback struct {
	// RecordBytes is how many bytes to capture after each reset before
	// switching to playback.
	RecordBytes int

	clk       *Clock
	tap       *tap
	lowAt     time.Duration
	recording int
	fifo      []bool
}

// NewLoopback attaches a Loopback capturing one byte per reset.
func NewLoopback(l *Line) *Loopback {
	lb := &Loopback{RecordBytes: 1, clk: l.clk}
	lb.tap = l.attach(lb.onChange)
	return lb
}

func (lb *Loopback) onChange(now time.Duration, lv gpio.Level) {
	if lv == gpio.Low {
		lb.lowAt = now
		if lb.tap.low {
			// Our own pulse, not a master slot.
			return
		}
		if lb.recording > 0 {
			lb.recording--
			lb.clk.schedule(now+sampleDelay, func() {
				lb.fifo = append(lb.fifo, lb.tap.l.level == gpio.High)
			})
		} else if len(lb.fifo) > 0 {
			bit := lb.fifo[0]
			lb.fifo = lb.fifo[1:]
			if !bit {
				lb.tap.hold(true)
				lb.clk.schedule(now+readHold, func() { lb.tap.hold(false) })
			}
		}
		return
	}
	if now-lb.lowAt >= resetThreshold {
		lb.recording = 8 * lb.RecordBytes
		lb.fifo = nil
		lb.clk.schedule(now+presenceDelay, func() { lb.tap.hold(true) })
		lb.clk.schedule(now+presenceDelay+presenceWidth, func() { lb.tap.hold(false) })
	}
}

const (
	resetThreshold = 350 * time.Microsecond // low pulses at least this long act as a bus reset
	presenceDelay  = 30 * time.Microsecond  // release of reset to start of presence pulse
	presenceWidth  = 120 * time.Microsecond // presence pulse width
	sampleDelay    = 30 * time.Microsecond  // falling edge to device sample point in a write slot
	readHold       = 25 * time.Microsecond  // how long a device holds the line to send a 0

	cmdReadROM         = 0x33 // stream the 64-bit ROM code
	cmdMatchROM        = 0x55 // address one device by ROM code
	cmdSkipROM         = 0xcc // address all devices
	cmdConvert         = 0x44 // start temperature conversion
	cmdWriteScratchpad = 0x4e // TH, TL, config follow
	cmdCopyScratchpad  = 0x48 // persist TH, TL, config to EEPROM
	cmdReadScratchpad  = 0xbe // stream the 9-byte scratchpad
)

const (
	stateIdle = iota
	stateROM
	stateMatch
	stateCmd
	stateWrite
	stateRead
	statePoll
)
