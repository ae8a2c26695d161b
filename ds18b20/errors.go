// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18b20

// NoDeviceError is returned when no sensor answers on the bus, either at
// the presence pulse or by leaving a read all ones. It also implements
// onewire.NoDevicesError and onewire.BusError.
type NoDeviceError struct{}

func (e *NoDeviceError) Error() string {
	return "ds18b20: no sensor present on the bus"
}

func (e *NoDeviceError) NoDevices() bool { return true }

func (e *NoDeviceError) BusError() bool { return true }

// CRCError is returned when the scratchpad read back from the sensor fails
// its CRC check, meaning at least one bit was mangled in flight. It also
// implements onewire.BusError. The sample is discarded; the next cycle
// simply reads again.
type CRCError struct {
	// Scratchpad is the rejected 9-byte read, for diagnostics.
	Scratchpad [9]byte
}

func (e *CRCError) Error() string {
	return "ds18b20: scratchpad crc mismatch"
}

func (e *CRCError) BusError() bool { return true }
