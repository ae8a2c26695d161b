// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package flashtherm is a container for the building blocks of a 1-wire
// LED-flash thermometer: a software (bit-banged) 1-wire bus master, a
// DS18B20 read sequencer, a watchdog-style sleep scheduler and a red/green
// binary flash display, plus the simulation and rendering tools to develop
// them without hardware.
//
// The appliance itself lives in cmd/flashtherm.
package flashtherm
