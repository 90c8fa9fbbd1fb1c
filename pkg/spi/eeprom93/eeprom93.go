// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eeprom93 programs Microwire 93Cxx serial EEPROMs over SPI.
//
// These parts have no identification command, so the geometry has to be
// known up front: pick a part number from a Registry or give the size and
// address bits by hand, then Resolve it.
//
//	g, err := eeprom93.Resolve(eeprom93.Profiles, eeprom93.Selection{Type: "93c66", X16: true})
//	if err != nil { ... }
//	s, err := spi.Open("/dev/spidev1.0", eeprom93.SPIMode, eeprom93.DefaultSpeedHz)
//	if err != nil { ... }
//	defer s.Close()
//	e := &eeprom93.EEPROM{Conn: s, Geometry: g}
//	image, err := e.ReadAll(false)
//
// Commands are not a multiple of 8 bits long. They are padded with leading
// zeroes to 16 bits, which the part ignores until it sees the start bit.
//
// Useful references:
// * Microchip 93C66 datasheet, "Instruction set"
package eeprom93

import (
	"fmt"
	"time"

	"github.com/u-root/eeprom93/pkg/spi"
)

// SPIMode is mode 0 with an active-high chip-select.
const SPIMode = spi.Mode0 | spi.CS_HIGH

// Defaults for a zero Options.
const (
	DefaultSpeedHz      = 100000
	DefaultPollInterval = 100 * time.Microsecond
	// DefaultPollTimeout is several times the worst-case self-timed write
	// and erase-all cycle of the family.
	DefaultPollTimeout = 50 * time.Millisecond
)

// statusReady is what the part drives on DO once a write cycle is done.
const statusReady = 0xff

// Transport performs a transaction of one or more phases. It is satisfied
// by *spi.SPI and *spi.PeriphConn.
type Transport interface {
	Transfer(transfers []spi.Transfer) error
}

// Options tune the bus and the write-completion poll. The zero value uses
// the defaults.
type Options struct {
	SpeedHz      uint32
	PollInterval time.Duration
	PollTimeout  time.Duration
	// Progress, if set, is called after each word of a workflow.
	Progress func(done, total int)
}

// EEPROM is a session with one part. The geometry must come from Resolve.
type EEPROM struct {
	Conn     Transport
	Geometry Geometry
	Options
}

func (e *EEPROM) speedHz() uint32 {
	if e.SpeedHz == 0 {
		return DefaultSpeedHz
	}
	return e.SpeedHz
}

func (e *EEPROM) phase(tx, rx []byte) spi.Transfer {
	return spi.Transfer{Tx: tx, Rx: rx, SpeedHz: e.speedHz(), BitsPerWord: 8}
}

func (e *EEPROM) header(c Command) (spi.Transfer, error) {
	h, err := c.Encode(e.Geometry)
	if err != nil {
		return spi.Transfer{}, err
	}
	t := e.phase(h[:], nil)
	t.BitsPerWord = h.BitsPerWord()
	return t, nil
}

func (e *EEPROM) transfer(op string, addr uint16, t ...spi.Transfer) error {
	if err := e.Conn.Transfer(t); err != nil {
		return &TransportError{Op: op, Addr: addr, Err: err}
	}
	return nil
}

// ReadStatus clocks in one byte without sending a command. While a write
// cycle runs the part holds DO low; it reads 0xff once the cycle is over.
func (e *EEPROM) ReadStatus() (byte, error) {
	var b [1]byte
	if err := e.transfer("status", 0, e.phase(nil, b[:])); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadWords fills buf starting at word addr. buf may span several words;
// the part increments the address on its own.
func (e *EEPROM) ReadWords(addr uint16, buf []byte) error {
	if err := e.checkRange(addr, len(buf)); err != nil {
		return err
	}
	h, err := e.header(ReadCommand(addr))
	if err != nil {
		return err
	}
	return e.transfer("read", addr, h, e.phase(nil, buf))
}

// WriteWord programs one word. It does not wait for the write cycle to end.
func (e *EEPROM) WriteWord(addr uint16, data []byte) error {
	if len(data) != e.Geometry.WordSize() {
		return fmt.Errorf("%w: write of %d bytes, word is %d", ErrConfiguration, len(data), e.Geometry.WordSize())
	}
	if err := e.checkRange(addr, len(data)); err != nil {
		return err
	}
	h, err := e.header(WriteCommand(addr))
	if err != nil {
		return err
	}
	return e.transfer("write", addr, h, e.phase(data, nil))
}

// Control sends a header-only control command.
func (e *EEPROM) Control(sub Subcode) error {
	h, err := e.header(ControlCommand(e.Geometry, sub))
	if err != nil {
		return err
	}
	return e.transfer(sub.String(), 0, h)
}

// EnableWrite unlocks write and erase commands.
func (e *EEPROM) EnableWrite() error { return e.Control(SubWriteEnable) }

// DisableWrite locks the part again.
func (e *EEPROM) DisableWrite() error { return e.Control(SubWriteDisable) }

func (e *EEPROM) checkRange(addr uint16, n int) error {
	ws := e.Geometry.WordSize()
	if n == 0 || n%ws != 0 {
		return fmt.Errorf("%w: transfer of %d bytes is not a whole number of %d-byte words", ErrConfiguration, n, ws)
	}
	if int(addr)+n/ws > e.Geometry.Words() {
		return fmt.Errorf("%w: words %#x-%#x beyond end of %d-word array", ErrConfiguration, addr, int(addr)+n/ws-1, e.Geometry.Words())
	}
	return nil
}
