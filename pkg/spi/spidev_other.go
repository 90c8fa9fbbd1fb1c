// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package spi

// SPI is a Linux spidev device. It cannot be opened on this platform.
type SPI struct{}

// Open always fails with ErrNotSupported.
func Open(dev string, mode Mode, hz uint32) (*SPI, error) {
	return nil, ErrNotSupported
}

func (s *SPI) Transfer(transfers []Transfer) error { return ErrNotSupported }

func (s *SPI) Close() error { return nil }
