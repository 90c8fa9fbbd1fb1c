// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spi

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	pspi "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// PeriphConn is an SPI device driven through periph.io. It covers hosts and
// USB bridges (FT232H, ...) that periph supports but that have no spidev
// node.
//
// periph has no active-high chip-select mode; parts that need one must have
// it provided by the wiring.
type PeriphConn struct {
	port pspi.PortCloser
	conn pspi.Conn
}

var _ Conn = (*PeriphConn)(nil)

// OpenPeriph initializes the periph host drivers and connects to the named
// port ("SPI1.0", "" for the first one) in mode 0 with 8 bits per word.
func OpenPeriph(name string, hz uint32) (*PeriphConn, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spi: periph init: %w", err)
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("spi: periph open %q: %w", name, err)
	}
	c, err := p.Connect(physic.Frequency(hz)*physic.Hertz, pspi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("spi: periph connect %q: %w", name, err)
	}
	return &PeriphConn{port: p, conn: c}, nil
}

// Transfer sends all phases as packets, holding chip-select between them.
func (c *PeriphConn) Transfer(transfers []Transfer) error {
	if err := Validate(transfers); err != nil {
		return err
	}
	pkts := make([]pspi.Packet, len(transfers))
	for i, t := range transfers {
		pkts[i] = pspi.Packet{
			W:           t.Tx,
			R:           t.Rx,
			BitsPerWord: t.BitsPerWord,
			KeepCS:      i != len(transfers)-1,
		}
	}
	if err := c.conn.TxPackets(pkts); err != nil {
		return fmt.Errorf("spi: periph tx of %d phases: %w", len(pkts), err)
	}
	return nil
}

// Close releases the port.
func (c *PeriphConn) Close() error {
	return c.port.Close()
}
