// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trace records SPI transactions.
//
// Wrap a connection with NewConn and every Transfer is reported to a Logger
// once it completes. FileLogger stores events as a CBOR sequence that
// ReadAll reads back; SlogAdapter prints them.
package trace

import (
	"sync"
	"time"

	"github.com/u-root/eeprom93/pkg/spi"
)

// Phase is one phase of a recorded transaction.
type Phase struct {
	Tx      []byte `cbor:"1,keyasint,omitempty"`
	Rx      []byte `cbor:"2,keyasint,omitempty"`
	SpeedHz uint32 `cbor:"3,keyasint,omitempty"`
}

// Event is one transaction.
type Event struct {
	Time time.Time `cbor:"1,keyasint"`
	// Seq counts transactions on the connection, starting at 1.
	Seq      uint64        `cbor:"2,keyasint"`
	Phases   []Phase       `cbor:"3,keyasint"`
	Duration time.Duration `cbor:"4,keyasint,omitempty"`
	Err      string        `cbor:"5,keyasint,omitempty"`
}

// Logger receives events.
type Logger interface {
	Log(event Event)
}

// Multi fans events out to several loggers.
type Multi []Logger

// Log implements Logger.
func (m Multi) Log(event Event) {
	for _, l := range m {
		l.Log(event)
	}
}

// Conn is a spi.Conn that reports every transaction.
type Conn struct {
	conn spi.Conn
	log  Logger

	mu  sync.Mutex
	seq uint64
	now func() time.Time
}

var _ spi.Conn = (*Conn)(nil)

// NewConn wraps conn. A nil logger disables recording.
func NewConn(conn spi.Conn, l Logger) *Conn {
	return &Conn{conn: conn, log: l, now: time.Now}
}

// Transfer forwards to the wrapped connection and logs the outcome. Rx
// buffers are copied after the exchange so the event holds what was read.
func (c *Conn) Transfer(transfers []spi.Transfer) error {
	start := c.now()
	err := c.conn.Transfer(transfers)
	if c.log == nil {
		return err
	}

	c.mu.Lock()
	c.seq++
	ev := Event{
		Time:     start,
		Seq:      c.seq,
		Phases:   make([]Phase, len(transfers)),
		Duration: c.now().Sub(start),
	}
	c.mu.Unlock()

	for i, t := range transfers {
		ev.Phases[i] = Phase{
			Tx:      append([]byte(nil), t.Tx...),
			Rx:      append([]byte(nil), t.Rx...),
			SpeedHz: t.SpeedHz,
		}
	}
	if err != nil {
		ev.Err = err.Error()
	}
	c.log.Log(ev)
	return err
}

// Close closes the wrapped connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
