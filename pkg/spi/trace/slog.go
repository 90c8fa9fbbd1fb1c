// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strconv"
)

// SlogAdapter prints events at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

var _ Logger = (*SlogAdapter)(nil)

// NewSlogAdapter returns an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log implements Logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.Uint64("seq", event.Seq),
		slog.Int("phases", len(event.Phases)),
		slog.Duration("took", event.Duration),
	}
	for i, p := range event.Phases {
		g := []any{}
		if len(p.Tx) != 0 {
			g = append(g, slog.String("tx", hex.EncodeToString(p.Tx)))
		}
		if len(p.Rx) != 0 {
			g = append(g, slog.String("rx", hex.EncodeToString(p.Rx)))
		}
		attrs = append(attrs, slog.Group("phase"+strconv.Itoa(i), g...))
	}
	level := slog.LevelDebug
	msg := "spi transfer"
	if event.Err != "" {
		level = slog.LevelWarn
		msg = "spi transfer failed"
		attrs = append(attrs, slog.String("error", event.Err))
	}
	a.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

