// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eeprom93

import "time"

// ReadAll reads the whole array, one transaction per word. With burst set it
// issues a single read from address 0 instead and relies on the part's
// address auto-increment, which not every part supports.
func (e *EEPROM) ReadAll(burst bool) ([]byte, error) {
	g := e.Geometry
	buf := make([]byte, g.Size)
	if burst {
		if err := e.ReadWords(0, buf); err != nil {
			return nil, err
		}
		e.progress(g.Size)
		return buf, nil
	}
	ws := g.WordSize()
	for off := 0; off < g.Size; off += ws {
		if err := e.ReadWords(uint16(off/ws), buf[off:off+ws]); err != nil {
			return nil, err
		}
		e.progress(off + ws)
	}
	return buf, nil
}

// WriteAll programs image, which must be exactly as large as the part. Each
// word is erased by the part before it is written, and the next word is
// only sent once the write cycle is over.
func (e *EEPROM) WriteAll(image []byte) error {
	g := e.Geometry
	if len(image) != g.Size {
		return &SizeMismatchError{Got: len(image), Want: g.Size}
	}
	if err := e.EnableWrite(); err != nil {
		return err
	}
	ws := g.WordSize()
	for off := 0; off < g.Size; off += ws {
		addr := uint16(off / ws)
		if err := e.WriteWord(addr, image[off:off+ws]); err != nil {
			return err
		}
		if err := e.waitReady("write", addr); err != nil {
			return err
		}
		e.progress(off + ws)
	}
	return e.DisableWrite()
}

// EraseAll sets every bit of the array and waits for the erase cycle.
func (e *EEPROM) EraseAll() error {
	if err := e.EnableWrite(); err != nil {
		return err
	}
	if err := e.Control(SubEraseAll); err != nil {
		return err
	}
	if err := e.waitReady(SubEraseAll.String(), 0); err != nil {
		return err
	}
	e.progress(e.Geometry.Size)
	return e.DisableWrite()
}

// WaitReady polls the status until the current write or erase cycle is over
// or PollTimeout expires.
func (e *EEPROM) WaitReady() error {
	return e.waitReady("wait", 0)
}

func (e *EEPROM) waitReady(op string, addr uint16) error {
	interval, timeout := e.PollInterval, e.PollTimeout
	if interval == 0 {
		interval = DefaultPollInterval
	}
	if timeout == 0 {
		timeout = DefaultPollTimeout
	}
	deadline := time.Now().Add(timeout)
	for polls := 1; ; polls++ {
		st, err := e.ReadStatus()
		if err != nil {
			return err
		}
		if st == statusReady {
			return nil
		}
		if !time.Now().Before(deadline) {
			return &BusyTimeoutError{Op: op, Addr: addr, Polls: polls, Last: st}
		}
		time.Sleep(interval)
	}
}

func (e *EEPROM) progress(done int) {
	if e.Progress != nil {
		e.Progress(done, e.Geometry.Size)
	}
}
