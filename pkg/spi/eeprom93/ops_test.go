// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eeprom93_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u-root/eeprom93/pkg/spi/eeprom93"
	"github.com/u-root/eeprom93/pkg/spi/eeprom93/eeprom93sim"
)

func resolve(t *testing.T, typ string, x16 bool) eeprom93.Geometry {
	t.Helper()
	g, err := eeprom93.Resolve(eeprom93.Profiles, eeprom93.Selection{Type: typ, X16: x16})
	require.NoError(t, err)
	return g
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i>>8)
	}
	return b
}

var geometries = []struct {
	typ string
	x16 bool
}{
	{"93c66", true},
	{"93c66", false},
	{"93c46", false},
	{"93c06", true},
}

func TestReadAll(t *testing.T) {
	for _, tt := range geometries {
		g := resolve(t, tt.typ, tt.x16)
		t.Run(g.String(), func(t *testing.T) {
			dev := eeprom93sim.New(g)
			copy(dev.Mem, pattern(g.Size))
			e := &eeprom93.EEPROM{Conn: dev, Geometry: g}

			got, err := e.ReadAll(false)
			require.NoError(t, err)
			assert.Equal(t, dev.Mem, got)

			require.Len(t, dev.Ops, g.Words())
			for i, op := range dev.Ops {
				assert.Equal(t, eeprom93sim.KindRead, op.Kind)
				assert.Equal(t, uint16(i), op.Addr)
				assert.Equal(t, g.WordSize(), op.Len)
			}
		})
	}
}

func TestReadAllBurst(t *testing.T) {
	g := resolve(t, "93c66", true)
	dev := eeprom93sim.New(g)
	copy(dev.Mem, pattern(g.Size))
	e := &eeprom93.EEPROM{Conn: dev, Geometry: g}

	got, err := e.ReadAll(true)
	require.NoError(t, err)
	assert.Equal(t, dev.Mem, got)
	assert.Equal(t, []eeprom93sim.Op{{Kind: eeprom93sim.KindRead, Addr: 0, Len: g.Size}}, dev.Ops)
}

func TestReadAllBurstWithoutAutoIncrement(t *testing.T) {
	g := resolve(t, "93c46", false)
	dev := eeprom93sim.New(g)
	dev.NoAutoIncrement = true
	copy(dev.Mem, pattern(g.Size))
	e := &eeprom93.EEPROM{Conn: dev, Geometry: g}

	got, err := e.ReadAll(true)
	require.NoError(t, err)
	assert.NotEqual(t, dev.Mem, got)
	got, err = e.ReadAll(false)
	require.NoError(t, err)
	assert.Equal(t, dev.Mem, got)
}

func TestWriteAll(t *testing.T) {
	for _, tt := range geometries {
		g := resolve(t, tt.typ, tt.x16)
		t.Run(g.String(), func(t *testing.T) {
			dev := eeprom93sim.New(g)
			dev.BusyPolls = 2
			var calls int
			e := &eeprom93.EEPROM{
				Conn:     dev,
				Geometry: g,
				Options: eeprom93.Options{
					PollInterval: time.Microsecond,
					Progress: func(done, total int) {
						calls++
						assert.Equal(t, calls*g.WordSize(), done)
						assert.Equal(t, g.Size, total)
					},
				},
			}
			image := pattern(g.Size)
			require.NoError(t, e.WriteAll(image))
			assert.Equal(t, image, dev.Mem)
			assert.Equal(t, g.Words(), calls)
			assert.False(t, dev.WriteEnabled())

			ops := dev.Ops
			require.NotEmpty(t, ops)
			assert.Equal(t, eeprom93sim.Op{Kind: eeprom93sim.KindControl, Sub: eeprom93.SubWriteEnable}, ops[0])
			assert.Equal(t, eeprom93sim.Op{Kind: eeprom93sim.KindControl, Sub: eeprom93.SubWriteDisable}, ops[len(ops)-1])
			assert.Equal(t, g.Words(), dev.Count(eeprom93sim.KindWrite))
			assert.Equal(t, 2, dev.Count(eeprom93sim.KindControl))

			// Every write is followed by polls ending in a ready status
			// before anything else is sent.
			var addr uint16
			for i := 1; i < len(ops)-1; i++ {
				require.Equal(t, eeprom93sim.KindWrite, ops[i].Kind, "op %d", i)
				assert.Equal(t, addr, ops[i].Addr)
				addr++
				i++
				for ; ops[i].Kind == eeprom93sim.KindStatus && ops[i].Status != 0xff; i++ {
				}
				require.Equal(t, eeprom93sim.KindStatus, ops[i].Kind, "op %d", i)
				assert.Equal(t, byte(0xff), ops[i].Status)
			}
			assert.Equal(t, g.Words(), int(addr))
		})
	}
}

func TestWriteAllSizeMismatch(t *testing.T) {
	g := resolve(t, "93c66", false)
	dev := eeprom93sim.New(g)
	e := &eeprom93.EEPROM{Conn: dev, Geometry: g}

	err := e.WriteAll(make([]byte, 511))
	assert.ErrorIs(t, err, eeprom93.ErrSizeMismatch)
	var se *eeprom93.SizeMismatchError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, eeprom93.SizeMismatchError{Got: 511, Want: 512}, *se)
	assert.Empty(t, dev.Ops)
}

func TestWriteAllBusyTimeout(t *testing.T) {
	g := resolve(t, "93c46", false)
	dev := eeprom93sim.New(g)
	dev.BusyPolls = -1
	e := &eeprom93.EEPROM{
		Conn:     dev,
		Geometry: g,
		Options:  eeprom93.Options{PollInterval: 100 * time.Microsecond, PollTimeout: 2 * time.Millisecond},
	}

	err := e.WriteAll(pattern(g.Size))
	assert.ErrorIs(t, err, eeprom93.ErrBusyTimeout)
	assert.NotErrorIs(t, err, eeprom93.ErrTransport)
	var be *eeprom93.BusyTimeoutError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "write", be.Op)
	assert.Equal(t, uint16(0), be.Addr)
	assert.Greater(t, be.Polls, 1)
	assert.Equal(t, 1, dev.Count(eeprom93sim.KindWrite), "no write after a timeout")
}

func TestWriteAllTransportError(t *testing.T) {
	g := resolve(t, "93c46", false)
	dev := eeprom93sim.New(g)
	// Write enable, first word, first poll, second word.
	dev.FailAt = 4
	e := &eeprom93.EEPROM{Conn: dev, Geometry: g}

	err := e.WriteAll(pattern(g.Size))
	assert.ErrorIs(t, err, eeprom93.ErrTransport)
	assert.ErrorIs(t, err, eeprom93sim.ErrInjected)
	var te *eeprom93.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "write", te.Op)
	assert.Equal(t, uint16(1), te.Addr)
	assert.Equal(t, 1, dev.Count(eeprom93sim.KindWrite))
	assert.True(t, dev.WriteEnabled(), "aborted write leaves the part unlocked")
}

func TestWaitReady(t *testing.T) {
	g := resolve(t, "93c46", false)
	dev := eeprom93sim.New(g)
	dev.BusyPolls = 2
	e := &eeprom93.EEPROM{Conn: dev, Geometry: g, Options: eeprom93.Options{PollInterval: time.Microsecond}}

	// An idle part answers the first poll.
	require.NoError(t, e.WaitReady())
	assert.Equal(t, 1, dev.Count(eeprom93sim.KindStatus))

	require.NoError(t, e.EnableWrite())
	require.NoError(t, e.WriteWord(5, []byte{0x5a}))
	require.NoError(t, e.WaitReady())
	assert.Equal(t, 4, dev.Count(eeprom93sim.KindStatus))
	assert.Equal(t, byte(0x5a), dev.Mem[5])

	dev.BusyPolls = -1
	e.PollTimeout = time.Millisecond
	require.NoError(t, e.WriteWord(6, []byte{0xa5}))
	err := e.WaitReady()
	assert.ErrorIs(t, err, eeprom93.ErrBusyTimeout)
	var be *eeprom93.BusyTimeoutError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "wait", be.Op)
	assert.Equal(t, byte(0x00), be.Last)
}

func TestWaitReadyTransportError(t *testing.T) {
	g := resolve(t, "93c46", false)
	dev := eeprom93sim.New(g)
	dev.FailAt = 1
	e := &eeprom93.EEPROM{Conn: dev, Geometry: g}

	err := e.WaitReady()
	assert.ErrorIs(t, err, eeprom93.ErrTransport)
	assert.ErrorIs(t, err, eeprom93sim.ErrInjected)
}

func TestEraseAll(t *testing.T) {
	g := resolve(t, "93c56", true)
	dev := eeprom93sim.New(g)
	dev.BusyPolls = 3
	copy(dev.Mem, pattern(g.Size))
	e := &eeprom93.EEPROM{Conn: dev, Geometry: g, Options: eeprom93.Options{PollInterval: time.Microsecond}}

	require.NoError(t, e.EraseAll())
	assert.Equal(t, bytes.Repeat([]byte{0xff}, g.Size), dev.Mem)

	kinds := make([]eeprom93sim.Kind, len(dev.Ops))
	for i, op := range dev.Ops {
		kinds[i] = op.Kind
	}
	assert.Equal(t, []eeprom93sim.Kind{
		eeprom93sim.KindControl,
		eeprom93sim.KindControl,
		eeprom93sim.KindStatus, eeprom93sim.KindStatus, eeprom93sim.KindStatus, eeprom93sim.KindStatus,
		eeprom93sim.KindControl,
	}, kinds)
	assert.Equal(t, eeprom93.SubWriteEnable, dev.Ops[0].Sub)
	assert.Equal(t, eeprom93.SubEraseAll, dev.Ops[1].Sub)
	assert.Equal(t, byte(0xff), dev.Ops[5].Status)
	assert.Equal(t, eeprom93.SubWriteDisable, dev.Ops[6].Sub)
}

func TestEraseAllBusyTimeout(t *testing.T) {
	g := resolve(t, "93c56", false)
	dev := eeprom93sim.New(g)
	dev.BusyPolls = -1
	e := &eeprom93.EEPROM{
		Conn:     dev,
		Geometry: g,
		Options:  eeprom93.Options{PollTimeout: time.Millisecond},
	}
	err := e.EraseAll()
	var be *eeprom93.BusyTimeoutError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "erase all", be.Op)
}
