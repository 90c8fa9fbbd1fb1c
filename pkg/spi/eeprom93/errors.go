// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eeprom93

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package matches exactly one of
// them with errors.Is.
var (
	ErrConfiguration = errors.New("eeprom93: configuration error")
	ErrTransport     = errors.New("eeprom93: transport error")
	ErrSizeMismatch  = errors.New("eeprom93: image size does not match EEPROM size")
	ErrBusyTimeout   = errors.New("eeprom93: timed out waiting for write cycle")
)

// GeometryErrorKind identifies the check that rejected a geometry.
type GeometryErrorKind uint8

const (
	_ GeometryErrorKind = iota
	ErrConflictingSelection
	ErrNoSelection
	ErrUnknownType
	ErrZeroSize
	ErrSizeNotPowerOfTwo
	ErrAddrBitsRange
	ErrX16Unsupported
	ErrX8Unsupported
	ErrFrameTooWide
	ErrBadProfile
)

func (k GeometryErrorKind) String() string {
	switch k {
	case ErrConflictingSelection:
		return "specify either EEPROM type, or EEPROM parameters, but not both"
	case ErrNoSelection:
		return "no EEPROM type or parameters given"
	case ErrUnknownType:
		return "unknown EEPROM type"
	case ErrZeroSize:
		return "EEPROM size cannot be zero"
	case ErrSizeNotPowerOfTwo:
		return "EEPROM size is not a power of 2"
	case ErrAddrBitsRange:
		return "addr-bits should be between 5 and 9"
	case ErrX16Unsupported:
		return "selected EEPROM does not support x16 mode"
	case ErrX8Unsupported:
		return "selected EEPROM does not support x8 mode"
	case ErrFrameTooWide:
		return "command frame does not fit in 16 bits"
	case ErrBadProfile:
		return "malformed profile"
	default:
		return "invalid geometry"
	}
}

// Error lets a bare kind be compared with errors.Is against a *GeometryError.
func (k GeometryErrorKind) Error() string { return k.String() }

// GeometryError reports a rejected selection, profile or geometry.
type GeometryError struct {
	Kind GeometryErrorKind
	// Detail names the offending value, if any.
	Detail string
}

func (e *GeometryError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

// Is matches ErrConfiguration and the error's own kind.
func (e *GeometryError) Is(target error) bool {
	if target == ErrConfiguration {
		return true
	}
	k, ok := target.(GeometryErrorKind)
	return ok && k == e.Kind
}

func geometryErr(kind GeometryErrorKind, format string, args ...any) error {
	return &GeometryError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// TransportError is a failed bus exchange.
type TransportError struct {
	// Op is the transaction that failed: "read", "write", "status", the
	// control command name, or "open" when the bus could not be opened.
	Op string
	// Addr is only meaningful for "read" and "write".
	Addr uint16
	Err  error
}

func (e *TransportError) Error() string {
	switch e.Op {
	case "read", "write":
		return fmt.Sprintf("eeprom93: %s at word %#x: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("eeprom93: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// SizeMismatchError is returned before any bus activity when a write image
// is not exactly as large as the part.
type SizeMismatchError struct {
	Got, Want int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("eeprom93: image is %d bytes, EEPROM is %d bytes", e.Got, e.Want)
}

func (e *SizeMismatchError) Is(target error) bool { return target == ErrSizeMismatch }

// BusyTimeoutError is returned when the part never reported the end of a
// write or erase cycle.
type BusyTimeoutError struct {
	Op    string
	Addr  uint16
	Polls int
	// Last is the last status byte read.
	Last byte
}

func (e *BusyTimeoutError) Error() string {
	return fmt.Sprintf("eeprom93: %s at word %#x still busy after %d polls (status %#02x)", e.Op, e.Addr, e.Polls, e.Last)
}

func (e *BusyTimeoutError) Is(target error) bool { return target == ErrBusyTimeout }
