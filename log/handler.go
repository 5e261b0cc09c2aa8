// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"io"
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// Format selects the record layout of a handler.
type Format string

const (
	FormatTerminal Format = "terminal"
	FormatJSON     Format = "json"
	FormatLogfmt   Format = "logfmt"
)

// DiscardHandler returns a no-op handler
func DiscardHandler() slog.Handler {
	return ethlog.DiscardHandler()
}

// FromVerbosity maps the 0-9 command line verbosity to a level.
// 0 is crit only, 3 is info, 4 debug, 5 and above trace.
func FromVerbosity(v int) slog.Level {
	if v > 5 {
		v = 5
	}
	return ethlog.FromLegacyLevel(v)
}

// NewHandler builds a leveled handler of the given format.
// Big integers are rendered in decimal by all formats.
func NewHandler(wr io.Writer, format Format, verbosity int, useColor bool) slog.Handler {
	var h slog.Handler
	switch format {
	case FormatJSON:
		h = ethlog.JSONHandler(wr)
	case FormatLogfmt:
		h = ethlog.LogfmtHandler(wr)
	default:
		h = ethlog.NewTerminalHandler(wr, useColor)
	}
	glog := ethlog.NewGlogHandler(h)
	glog.Verbosity(FromVerbosity(verbosity))
	return glog
}

// NewLeveledHandler builds a handler whose threshold follows level, so it can be
// changed while running.
func NewLeveledHandler(wr io.Writer, format Format, level slog.Leveler, useColor bool) slog.Handler {
	var h slog.Handler
	switch format {
	case FormatJSON:
		h = ethlog.JSONHandlerWithLevel(wr, LevelTrace)
	case FormatLogfmt:
		h = ethlog.LogfmtHandlerWithLevel(wr, LevelTrace)
	default:
		h = ethlog.NewTerminalHandlerWithLevel(wr, LevelTrace, useColor)
	}
	return &leveledHandler{inner: h, level: level}
}

// leveledHandler filters records below a threshold read on every call.
// The wrapped handler is built at the trace level and accepts everything.
type leveledHandler struct {
	inner slog.Handler
	level slog.Leveler
}

func (h *leveledHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.inner.Enabled(ctx, l)
}

func (h *leveledHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *leveledHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &leveledHandler{inner: h.inner.WithAttrs(attrs), level: h.level}
}

func (h *leveledHandler) WithGroup(name string) slog.Handler {
	return &leveledHandler{inner: h.inner.WithGroup(name), level: h.level}
}
