// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, a CRC8 calculation
package common

// CRC8Dallas calculates the Dallas/Maxim 8-bit CRC of the byte slice
// parameter and returns the calculated value. This is the reflected form of
// polynomial 0x31 (x^8 + x^5 + x^4 + 1), shifted LSB-first from an all-zero
// starting value, as used by 1-wire devices for ROM codes and scratchpads.
func CRC8Dallas(bytes []byte) byte {
	var crc byte
	for _, val := range bytes {
		crc ^= val
		for i := 0; i < 8; i++ {
			if (crc & 0x01) == 0 {
				crc >>= 1
			} else {
				crc = (crc >> 1) ^ 0x8c
			}
		}
	}
	return crc
}

// CheckDallas returns true if the slice, with its trailing CRC byte
// included, checksums to zero. A scratchpad or ROM code read off the wire
// passes iff the device and the master saw the same bits.
func CheckDallas(bytes []byte) bool {
	return CRC8Dallas(bytes) == 0
}
