// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spi performs byte-oriented full-duplex SPI exchanges.
//
// A single call to Transfer issues one logical transaction made of one or
// more phases. Drivers that can chain phases (Linux spidev, periph.io) keep
// chip-select asserted across all of them.
package spi

import (
	"errors"
	"fmt"
)

// Useful references:
// * Linux: Documentation/spi/spidev
// * Linux: include/uapi/linux/spi/spidev.h

// Mode is the spidev mode bit set.
type Mode uint32

const (
	CPHA Mode = 1 << iota
	CPOL
	CS_HIGH
	LSB_FIRST
	THREE_WIRE
	LOOP
	NO_CS
	READY
	TX_DUAL
	TX_QUAD
	RX_DUAL
	RX_QUAD
)

// Clock modes.
const (
	Mode0 Mode = 0
	Mode1 Mode = CPHA
	Mode2 Mode = CPOL
	Mode3 Mode = CPOL | CPHA
)

// ErrNotSupported is returned by drivers that are unavailable on this
// platform.
var ErrNotSupported = errors.New("spi: not supported on this platform")

// Transfer is one phase of a transaction. A phase with only Tx set discards
// the received bytes; a phase with only Rx set clocks out zeroes.
type Transfer struct {
	Tx             []byte
	Rx             []byte
	SpeedHz        uint32
	DelayUsecs     uint16
	BitsPerWord    uint8
	CSChange       bool
	TxNBits        uint8
	RxNBits        uint8
	WordDelayUsecs uint8
}

// Len returns the number of bytes clocked by the phase.
func (t *Transfer) Len() int {
	if len(t.Tx) != 0 {
		return len(t.Tx)
	}
	return len(t.Rx)
}

// Conn is an open SPI device.
type Conn interface {
	// Transfer performs all phases as a single transaction.
	Transfer(transfers []Transfer) error
	Close() error
}

// Validate checks the phases of a transaction before it reaches a driver.
func Validate(transfers []Transfer) error {
	if len(transfers) == 0 {
		return errors.New("spi: empty transaction")
	}
	for i, t := range transfers {
		if len(t.Tx) != len(t.Rx) && (len(t.Tx) == 0) == (len(t.Rx) == 0) {
			return fmt.Errorf("spi: phase %d: rx/tx lengths must equal, or one length is zero", i)
		}
		if t.Len() == 0 {
			return fmt.Errorf("spi: phase %d: zero length", i)
		}
		if t.BitsPerWord != 0 && t.BitsPerWord%8 != 0 {
			return fmt.Errorf("spi: phase %d: %d bits per word is not byte aligned", i, t.BitsPerWord)
		}
	}
	return nil
}
