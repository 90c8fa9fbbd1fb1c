// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spi

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Various ioctl numbers.
const (
	iocRdMode        = 0x80016b01
	iocWrMode        = 0x40016b01
	iocRdLSBFirst    = 0x80016b02
	iocWrLSBFirst    = 0x40016b02
	iocRdBitsPerWord = 0x80016b03
	iocWrBitsPerWord = 0x40016b03
	iocRdMaxSpeedHz  = 0x80046b04
	iocWrMaxSpeedHz  = 0x40046b04
	iocRdMode32      = 0x80046b05
	iocWrMode32      = 0x40046b05
)

// iocMessage is an ioctl number for n Transfers.
func iocMessage(n int) uint32 {
	const (
		sizeBits  = 14
		sizeShift = 16
	)
	size := uint32(n * binary.Size(iocTransfer{}))
	if n < 0 || size > (1<<sizeBits) {
		return iocMessage(0)
	}
	return 0x40006b00 | (size << sizeShift)
}

// iocTransfer is struct spi_ioc_transfer. Multiple such transfers may be
// chained together in a single ioctl call.
type iocTransfer struct {
	TxBuf          uint64
	RxBuf          uint64
	Length         uint32
	SpeedHz        uint32
	DelayUsecs     uint16
	BitsPerWord    uint8
	CSChange       uint8
	TxNBits        uint8
	RxNBits        uint8
	WordDelayUsecs uint8
	Pad            uint8
}

// SPI is a Linux spidev device.
type SPI struct {
	f *os.File
}

var _ Conn = (*SPI)(nil)

// Open opens a spidev device such as "/dev/spidev1.0", puts it in the given
// mode with MSB-first 8-bit words and, if hz is not zero, caps the clock at
// hz. Open fails if the controller does not keep those settings. Remember to
// call Close().
func Open(dev string, mode Mode, hz uint32) (*SPI, error) {
	f, err := os.OpenFile(dev, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("spi: open: %w", err)
	}
	s := &SPI{f: f}
	want := settings{mode: mode, bitsPerWord: 8, speedHz: hz}
	if err := s.configure(want); err != nil {
		f.Close()
		return nil, fmt.Errorf("spi: %s: %w", dev, err)
	}
	return s, nil
}

// settings is the per-device state spidev applies to every transfer that
// does not override it.
type settings struct {
	mode        Mode
	bitsPerWord uint8
	lsbFirst    bool
	speedHz     uint32
}

// modeMask covers the bits a controller must not change behind our back.
const modeMask = CPHA | CPOL | CS_HIGH | LSB_FIRST

// check compares the settings read back from the device with want.
func (got settings) check(want settings) error {
	if got.mode&modeMask != want.mode&modeMask {
		return fmt.Errorf("mode is %#x after setting %#x", got.mode&modeMask, want.mode&modeMask)
	}
	if got.bitsPerWord != want.bitsPerWord {
		return fmt.Errorf("%d bits per word after setting %d", got.bitsPerWord, want.bitsPerWord)
	}
	if got.lsbFirst != want.lsbFirst {
		return fmt.Errorf("lsb first is %t after setting %t", got.lsbFirst, want.lsbFirst)
	}
	if want.speedHz != 0 && got.speedHz > want.speedHz {
		return fmt.Errorf("clock is %d Hz after setting %d Hz", got.speedHz, want.speedHz)
	}
	return nil
}

func (s *SPI) configure(want settings) error {
	if err := s.SetMode(want.mode); err != nil {
		return fmt.Errorf("set mode %#x: %w", want.mode, err)
	}
	if err := s.SetBitsPerWord(want.bitsPerWord); err != nil {
		return fmt.Errorf("set bits per word: %w", err)
	}
	if err := s.SetLSBFirst(want.lsbFirst); err != nil {
		return fmt.Errorf("set lsb first: %w", err)
	}
	if want.speedHz != 0 {
		if err := s.SetSpeedHz(want.speedHz); err != nil {
			return fmt.Errorf("set speed: %w", err)
		}
	}

	var (
		got settings
		err error
	)
	if got.mode, err = s.Mode(); err != nil {
		return fmt.Errorf("get mode: %w", err)
	}
	if got.bitsPerWord, err = s.BitsPerWord(); err != nil {
		return fmt.Errorf("get bits per word: %w", err)
	}
	if got.lsbFirst, err = s.LSBFirst(); err != nil {
		return fmt.Errorf("get lsb first: %w", err)
	}
	if got.speedHz, err = s.SpeedHz(); err != nil {
		return fmt.Errorf("get speed: %w", err)
	}
	return got.check(want)
}

// Close closes SPI.
func (s *SPI) Close() error {
	return s.f.Close()
}

func (s *SPI) ioctl(req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, s.f.Fd(), req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

// Transfer performs all phases with one SPI_IOC_MESSAGE ioctl, so
// chip-select stays asserted between them unless CSChange is set.
func (s *SPI) Transfer(transfers []Transfer) error {
	if err := Validate(transfers); err != nil {
		return err
	}

	// Copy data into unmanaged buffer because the garbage collector may move
	// pointers at any time.
	bufSize := 0
	for _, t := range transfers {
		bufSize += len(t.Tx) + len(t.Rx)
	}
	buf, err := unix.Mmap(-1, 0, bufSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return fmt.Errorf("spi: mmap: %w", err)
	}
	defer unix.Munmap(buf)

	it := pack(transfers, buf)
	if err := s.ioctl(uintptr(iocMessage(len(it))), unsafe.Pointer(&it[0])); err != nil {
		return fmt.Errorf("spi: message of %d phases: %w", len(it), err)
	}

	unpack(transfers, buf)
	return nil
}

// pack copies every Tx into buf and describes the phases to the kernel. Each
// phase owns len(Tx)+len(Rx) bytes of buf, Tx first.
func pack(transfers []Transfer, buf []byte) []iocTransfer {
	it := make([]iocTransfer, len(transfers))
	off := 0
	for i, t := range transfers {
		copy(buf[off:], t.Tx)
		x := &it[i]
		x.Length = uint32(t.Len())
		x.SpeedHz = t.SpeedHz
		x.DelayUsecs = t.DelayUsecs
		x.BitsPerWord = t.BitsPerWord
		x.TxNBits = t.TxNBits
		x.RxNBits = t.RxNBits
		x.WordDelayUsecs = t.WordDelayUsecs
		if t.CSChange {
			x.CSChange = 1
		}
		if len(t.Tx) != 0 {
			x.TxBuf = uint64(uintptr(unsafe.Pointer(&buf[off])))
		}
		if len(t.Rx) != 0 {
			x.RxBuf = uint64(uintptr(unsafe.Pointer(&buf[off+len(t.Tx)])))
		}
		off += len(t.Tx) + len(t.Rx)
	}
	return it
}

// unpack copies the received bytes out of buf, laid out as by pack.
func unpack(transfers []Transfer, buf []byte) {
	off := 0
	for _, t := range transfers {
		copy(t.Rx, buf[off+len(t.Tx):])
		off += len(t.Tx) + len(t.Rx)
	}
}

// Mode returns the 32-bit mode.
func (s *SPI) Mode() (Mode, error) {
	var m uint32
	err := s.ioctl(iocRdMode32, unsafe.Pointer(&m))
	return Mode(m), err
}

// SetMode sets the mode. Only the low byte is written so that drivers
// without SPI_IOC_WR_MODE32 accept it.
func (s *SPI) SetMode(m Mode) error {
	if m > 0xff {
		v := uint32(m)
		return s.ioctl(iocWrMode32, unsafe.Pointer(&v))
	}
	v := uint8(m)
	return s.ioctl(iocWrMode, unsafe.Pointer(&v))
}

// LSBFirst reports whether words are sent least significant bit first.
func (s *SPI) LSBFirst() (bool, error) {
	var v uint8
	err := s.ioctl(iocRdLSBFirst, unsafe.Pointer(&v))
	return v != 0, err
}

// SetLSBFirst selects the bit order.
func (s *SPI) SetLSBFirst(lsbFirst bool) error {
	var v uint8
	if lsbFirst {
		v = 1
	}
	return s.ioctl(iocWrLSBFirst, unsafe.Pointer(&v))
}

// BitsPerWord returns the default word size.
func (s *SPI) BitsPerWord() (uint8, error) {
	var bpw uint8
	err := s.ioctl(iocRdBitsPerWord, unsafe.Pointer(&bpw))
	return bpw, err
}

// SetBitsPerWord sets the default word size.
func (s *SPI) SetBitsPerWord(bpw uint8) error {
	return s.ioctl(iocWrBitsPerWord, unsafe.Pointer(&bpw))
}

// SpeedHz gets the maximum transfer speed.
func (s *SPI) SpeedHz() (uint32, error) {
	var hz uint32
	err := s.ioctl(iocRdMaxSpeedHz, unsafe.Pointer(&hz))
	return hz, err
}

// SetSpeedHz sets the maximum transfer speed.
func (s *SPI) SetSpeedHz(hz uint32) error {
	return s.ioctl(iocWrMaxSpeedHz, unsafe.Pointer(&hz))
}
