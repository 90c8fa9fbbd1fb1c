// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eeprom93sim is an in-memory 93Cxx part that speaks the wire
// protocol. It decodes every header the way the silicon does, so it catches
// framing mistakes that a byte-level mock would not.
package eeprom93sim

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/u-root/eeprom93/pkg/spi"
	"github.com/u-root/eeprom93/pkg/spi/eeprom93"
)

// Kind is the kind of a recorded transaction.
type Kind uint8

const (
	KindStatus Kind = iota
	KindRead
	KindWrite
	KindControl
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindControl:
		return "control"
	}
	return "unknown"
}

// Op is one transaction as seen by the part.
type Op struct {
	Kind Kind
	Addr uint16
	Sub  eeprom93.Subcode
	// Len is the length of the data phase.
	Len int
	// Status is the byte returned to a status poll.
	Status byte
}

// ErrInjected is returned for the transaction selected by FailAt when Err
// is nil.
var ErrInjected = errors.New("eeprom93sim: injected bus failure")

// Device is a simulated part. The zero value is not usable; call New.
type Device struct {
	Geometry eeprom93.Geometry
	Mem      []byte

	// BusyPolls is how many status polls read busy after each write or
	// erase. A negative value keeps the part busy forever.
	BusyPolls int
	// NoAutoIncrement makes multi-word reads return only the addressed
	// word followed by zeroes.
	NoAutoIncrement bool
	// FailAt makes the n-th transaction (1-based) fail with Err.
	FailAt int
	Err    error

	// Ops records every transaction that reached the part.
	Ops []Op

	enabled bool
	busy    int
	n       int
	closed  bool
}

var _ spi.Conn = (*Device)(nil)

// New returns an erased part of geometry g.
func New(g eeprom93.Geometry) *Device {
	return &Device{
		Geometry: g,
		Mem:      bytes.Repeat([]byte{0xff}, g.Size),
	}
}

// WriteEnabled reports whether the part accepts write and erase commands.
func (d *Device) WriteEnabled() bool { return d.enabled }

// Count returns the number of recorded transactions of kind k.
func (d *Device) Count(k Kind) int {
	n := 0
	for _, op := range d.Ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}

// Close implements spi.Conn.
func (d *Device) Close() error {
	d.closed = true
	return nil
}

// Transfer implements spi.Conn.
func (d *Device) Transfer(transfers []spi.Transfer) error {
	if d.closed {
		return errors.New("eeprom93sim: transfer on closed device")
	}
	if err := spi.Validate(transfers); err != nil {
		return err
	}
	d.n++
	if d.FailAt != 0 && d.n == d.FailAt {
		if d.Err != nil {
			return d.Err
		}
		return ErrInjected
	}
	for _, t := range transfers {
		if t.BitsPerWord != 8 {
			return fmt.Errorf("eeprom93sim: %d bits per word, want 8", t.BitsPerWord)
		}
	}

	first := transfers[0]
	if len(transfers) == 1 && len(first.Tx) == 0 {
		return d.status(first.Rx)
	}
	if len(first.Tx) != len(eeprom93.Header{}) {
		return fmt.Errorf("eeprom93sim: %d byte header", len(first.Tx))
	}
	c, err := eeprom93.Decode(d.Geometry, eeprom93.Header(first.Tx))
	if err != nil {
		return err
	}
	rest := transfers[1:]
	switch c.Op {
	case eeprom93.OpRead:
		if len(rest) != 1 || len(rest[0].Rx) == 0 {
			return errors.New("eeprom93sim: read without data phase")
		}
		d.read(c.Addr(), rest[0].Rx)
	case eeprom93.OpWrite:
		if len(rest) != 1 || len(rest[0].Tx) != d.Geometry.WordSize() {
			return errors.New("eeprom93sim: write needs exactly one word")
		}
		d.write(c.Addr(), rest[0].Tx)
	case eeprom93.OpControl:
		if len(rest) != 0 {
			return errors.New("eeprom93sim: control command with data phase")
		}
		return d.control(eeprom93.Subcode(c.Field >> (d.Geometry.AddrBits - 2)))
	default:
		return fmt.Errorf("eeprom93sim: unsupported %v", c.Op)
	}
	return nil
}

func (d *Device) status(rx []byte) error {
	st := byte(0xff)
	if d.busy != 0 {
		st = 0x00
		if d.busy > 0 {
			d.busy--
		}
	}
	for i := range rx {
		rx[i] = st
	}
	d.Ops = append(d.Ops, Op{Kind: KindStatus, Len: len(rx), Status: st})
	return nil
}

func (d *Device) read(addr uint16, rx []byte) {
	ws := d.Geometry.WordSize()
	off := int(addr) * ws
	for i := range rx {
		if d.NoAutoIncrement && i >= ws {
			rx[i] = 0
			continue
		}
		rx[i] = d.Mem[(off+i)%len(d.Mem)]
	}
	d.Ops = append(d.Ops, Op{Kind: KindRead, Addr: addr, Len: len(rx)})
}

func (d *Device) write(addr uint16, data []byte) {
	d.Ops = append(d.Ops, Op{Kind: KindWrite, Addr: addr, Len: len(data)})
	if !d.enabled {
		return
	}
	copy(d.Mem[int(addr)*len(data):], data)
	d.busy = d.BusyPolls
}

func (d *Device) control(sub eeprom93.Subcode) error {
	d.Ops = append(d.Ops, Op{Kind: KindControl, Sub: sub})
	switch sub {
	case eeprom93.SubWriteEnable:
		d.enabled = true
	case eeprom93.SubWriteDisable:
		d.enabled = false
	case eeprom93.SubEraseAll:
		if d.enabled {
			for i := range d.Mem {
				d.Mem[i] = 0xff
			}
			d.busy = d.BusyPolls
		}
	default:
		return fmt.Errorf("eeprom93sim: unsupported %v", sub)
	}
	return nil
}
