// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owgpio implements a software (bit-banged) 1-wire bus master on a
// single GPIO pin, for hosts without a dedicated 1-wire controller.
//
// The pin is used in open-drain fashion: the master drives it low to assert
// and switches it to a pulled-up input to release, so the line can float
// high or be held low by a device. An external pull-up resistor (typically
// 4.7kΩ) is still recommended; the internal pull-up of most SoCs is weak.
//
// Bit timing follows the standard-speed 1-wire waveforms: a 480µs low reset
// pulse answered by a device presence pulse, 60-70µs write slots and read
// slots sampled 15µs after the falling edge. All timings can be adjusted
// via Opts and are generated against a Timebase, which is pluggable so the
// whole driver runs against a virtual clock in tests (see owgpiotest).
//
// Timing accuracy depends on the host. On a multitasking kernel the
// scheduler can stretch a slot at any point; the 1-wire protocol tolerates
// stretching of the high (released) phases but not of the low pulses, so
// heavily loaded hosts may see occasional CRC errors. Devices with retry
// logic on top of this bus work well in practice.
package owgpio
