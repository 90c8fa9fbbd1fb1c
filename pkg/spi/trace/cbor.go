// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("trace: cbor decoder mode: %v", err))
	}
}

// FileLogger appends events to a file as a CBOR sequence. Encoding errors
// are dropped so that tracing never aborts a transaction.
type FileLogger struct {
	mu     sync.Mutex
	f      *os.File
	enc    *cbor.Encoder
	closed bool
}

var _ Logger = (*FileLogger)(nil)

// NewFileLogger creates or truncates path.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileLogger{f: f, enc: encMode.NewEncoder(f)}, nil
}

// Log implements Logger.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_ = l.enc.Encode(event)
}

// Close closes the file. Later events are discarded.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.f.Close()
}

// Encode writes one event to w.
func Encode(w io.Writer, event Event) error {
	return encMode.NewEncoder(w).Encode(event)
}

// ReadAll decodes every event of a trace.
func ReadAll(r io.Reader) ([]Event, error) {
	dec := decMode.NewDecoder(r)
	var events []Event
	for {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, fmt.Errorf("trace: event %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
}
