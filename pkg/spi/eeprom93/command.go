// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eeprom93

import (
	"errors"
	"fmt"
	"math/bits"
)

// Opcode is the 2-bit operation code that follows the start bit.
type Opcode uint8

const (
	OpControl Opcode = 0x0
	OpWrite   Opcode = 0x1
	OpRead    Opcode = 0x2
)

func (op Opcode) String() string {
	switch op {
	case OpControl:
		return "control"
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	}
	return fmt.Sprintf("opcode(%d)", uint8(op))
}

// Subcode selects a control command. It occupies the two most significant
// address bits.
type Subcode uint8

const (
	SubWriteDisable Subcode = 0x0
	SubEraseAll     Subcode = 0x2
	SubWriteEnable  Subcode = 0x3
)

func (s Subcode) String() string {
	switch s {
	case SubWriteDisable:
		return "write disable"
	case SubEraseAll:
		return "erase all"
	case SubWriteEnable:
		return "write enable"
	}
	return fmt.Sprintf("subcode(%d)", uint8(s))
}

const (
	startBit = 1 << 2
	// headerBits is the width of every header on the wire.
	headerBits = 16
	// maxFieldBits leaves room for the start bit and opcode.
	maxFieldBits = headerBits - 3
)

// ErrBadFrame is returned by Decode for a header that carries no valid
// command.
var ErrBadFrame = errors.New("eeprom93: malformed command frame")

// Header is a command padded with leading zeroes to 16 bits, most
// significant byte first. The part ignores everything before the start bit,
// so the padding is invisible to it.
type Header [2]byte

// BitsPerWord is the transfer unit used to send a header.
func (Header) BitsPerWord() uint8 { return 8 }

// Command is a single Microwire instruction before encoding.
type Command struct {
	Op Opcode
	// Field holds every bit after the opcode: the address (or the subcode
	// for OpControl) followed by Dummy zero bits.
	Field uint16
	// Dummy is the number of clocks after the address during which the part
	// turns the bus around. Reads need one.
	Dummy int
}

// Addr returns the address part of Field.
func (c Command) Addr() uint16 {
	return c.Field >> c.Dummy
}

// ReadCommand reads from word addr on.
func ReadCommand(addr uint16) Command {
	return Command{Op: OpRead, Field: addr << 1, Dummy: 1}
}

// WriteCommand writes the word at addr.
func WriteCommand(addr uint16) Command {
	return Command{Op: OpWrite, Field: addr}
}

// ControlCommand places sub in the top two address bits of g. With fewer
// than two address bits sub is left unshifted and Encode rejects the frame.
func ControlCommand(g Geometry, sub Subcode) Command {
	c := Command{Op: OpControl, Field: uint16(sub)}
	if g.AddrBits >= 2 {
		c.Field <<= g.AddrBits - 2
	}
	return c
}

// Encode packs c for g. Address bits above the geometry's width are
// dropped.
func (c Command) Encode(g Geometry) (Header, error) {
	n := g.AddrBits + c.Dummy
	if c.Dummy < 0 || g.AddrBits < 2 || n > maxFieldBits {
		return Header{}, geometryErr(ErrFrameTooWide, "%d address bits + %d dummy", g.AddrBits, c.Dummy)
	}
	cmd := uint16(c.Op&0x3) | startBit
	field := c.Field & (1<<n - 1)
	v := cmd<<n | field
	return Header{byte(v >> 8), byte(v)}, nil
}

// Decode parses a header the way the part does: the first set bit is the
// start bit, the next two the opcode, the rest address and dummy bits.
func Decode(g Geometry, h Header) (Command, error) {
	v := uint16(h[0])<<8 | uint16(h[1])
	if v == 0 {
		return Command{}, fmt.Errorf("%w: no start bit", ErrBadFrame)
	}
	n := bits.Len16(v) - 3
	c := Command{Dummy: n - g.AddrBits}
	if c.Dummy < 0 || c.Dummy > 1 {
		return Command{}, fmt.Errorf("%w: %d bits after opcode, want %d or %d", ErrBadFrame, n, g.AddrBits, g.AddrBits+1)
	}
	c.Op = Opcode(v >> n & 0x3)
	c.Field = v & (1<<n - 1)
	if (c.Dummy == 1) != (c.Op == OpRead) {
		return Command{}, fmt.Errorf("%w: %v with %d dummy bits", ErrBadFrame, c.Op, c.Dummy)
	}
	return c, nil
}
