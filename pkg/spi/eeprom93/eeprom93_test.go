// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eeprom93

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/u-root/eeprom93/pkg/spi"
)

type mockTransport struct{ mock.Mock }

func (m *mockTransport) Transfer(t []spi.Transfer) error {
	return m.Called(t).Error(0)
}

// phases matches a transaction by the tx bytes and rx length of each phase.
func phases(want ...spi.Transfer) any {
	return mock.MatchedBy(func(got []spi.Transfer) bool {
		if len(got) != len(want) {
			return false
		}
		for i := range got {
			if string(got[i].Tx) != string(want[i].Tx) || len(got[i].Rx) != len(want[i].Rx) {
				return false
			}
			if got[i].BitsPerWord != 8 || got[i].SpeedHz != DefaultSpeedHz {
				return false
			}
		}
		return true
	})
}

func TestReadStatus(t *testing.T) {
	m := &mockTransport{}
	m.On("Transfer", phases(spi.Transfer{Rx: make([]byte, 1)})).
		Run(func(args mock.Arguments) {
			args.Get(0).([]spi.Transfer)[0].Rx[0] = 0xa5
		}).
		Return(nil).Once()

	e := &EEPROM{Conn: m, Geometry: g93c66x16}
	st, err := e.ReadStatus()
	require.NoError(t, err)
	assert.Equal(t, byte(0xa5), st)
	m.AssertExpectations(t)
}

func TestReadWords(t *testing.T) {
	m := &mockTransport{}
	m.On("Transfer", phases(
		spi.Transfer{Tx: []byte{0x0c, 0x0a}},
		spi.Transfer{Rx: make([]byte, 4)},
	)).Run(func(args mock.Arguments) {
		copy(args.Get(0).([]spi.Transfer)[1].Rx, "\x01\x02\x03\x04")
	}).Return(nil).Once()

	e := &EEPROM{Conn: m, Geometry: g93c66x16}
	buf := make([]byte, 4)
	require.NoError(t, e.ReadWords(5, buf))
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
	m.AssertExpectations(t)
}

func TestWriteWord(t *testing.T) {
	m := &mockTransport{}
	m.On("Transfer", phases(
		spi.Transfer{Tx: []byte{0x02, 0x92}},
		spi.Transfer{Tx: []byte{0x5a}},
	)).Return(nil).Once()

	e := &EEPROM{Conn: m, Geometry: g93c46x8}
	require.NoError(t, e.WriteWord(0x12, []byte{0x5a}))
	m.AssertExpectations(t)
}

func TestControl(t *testing.T) {
	m := &mockTransport{}
	m.On("Transfer", phases(spi.Transfer{Tx: []byte{0x04, 0xc0}})).Return(nil).Once()
	m.On("Transfer", phases(spi.Transfer{Tx: []byte{0x04, 0x00}})).Return(nil).Once()

	e := &EEPROM{Conn: m, Geometry: g93c66x16}
	require.NoError(t, e.EnableWrite())
	require.NoError(t, e.DisableWrite())
	m.AssertExpectations(t)
}

func TestTransportError(t *testing.T) {
	busErr := errors.New("ioctl: input/output error")
	m := &mockTransport{}
	m.On("Transfer", mock.Anything).Return(busErr)

	e := &EEPROM{Conn: m, Geometry: g93c66x16}
	err := e.ReadWords(3, make([]byte, 2))
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, busErr)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "read", te.Op)
	assert.Equal(t, uint16(3), te.Addr)

	_, err = e.ReadStatus()
	assert.ErrorIs(t, err, ErrTransport)
	m.AssertNumberOfCalls(t, "Transfer", 2)
}

func TestBadArguments(t *testing.T) {
	m := &mockTransport{}
	e := &EEPROM{Conn: m, Geometry: g93c66x16}

	assert.ErrorIs(t, e.WriteWord(0, []byte{1}), ErrConfiguration, "short word")
	assert.ErrorIs(t, e.WriteWord(0, []byte{1, 2, 3}), ErrConfiguration, "long word")
	assert.ErrorIs(t, e.WriteWord(256, []byte{1, 2}), ErrConfiguration, "past the end")
	assert.ErrorIs(t, e.ReadWords(0, nil), ErrConfiguration, "empty read")
	assert.ErrorIs(t, e.ReadWords(0, make([]byte, 3)), ErrConfiguration, "half word")
	assert.ErrorIs(t, e.ReadWords(255, make([]byte, 4)), ErrConfiguration, "past the end")
	m.AssertNotCalled(t, "Transfer", mock.Anything)
}

func TestControlWithoutGeometry(t *testing.T) {
	m := &mockTransport{}
	e := &EEPROM{Conn: m}
	assert.ErrorIs(t, e.EnableWrite(), ErrFrameTooWide)
	m.AssertNotCalled(t, "Transfer", mock.Anything)
}

func TestTransportErrorMessage(t *testing.T) {
	err := errors.New("no such device")
	assert.EqualError(t, &TransportError{Op: "read", Addr: 0x12, Err: err}, "eeprom93: read at word 0x12: no such device")
	assert.EqualError(t, &TransportError{Op: "open", Err: err}, "eeprom93: open: no such device")
}
