// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"log/slog"
	"sync/atomic"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// Logger is the structured logger used across the module.
type Logger = ethlog.Logger

const (
	LevelTrace = ethlog.LevelTrace
	LevelDebug = ethlog.LevelDebug
	LevelInfo  = ethlog.LevelInfo
	LevelWarn  = ethlog.LevelWarn
	LevelError = ethlog.LevelError
	LevelCrit  = ethlog.LevelCrit
)

// Root returns the root logger.
func Root() Logger {
	return ethlog.Root()
}

// SetDefault replaces the root logger.
func SetDefault(l Logger) {
	ethlog.SetDefault(l)
}

// NewLogger creates a logger writing to the given handler.
func NewLogger(h slog.Handler) Logger {
	return ethlog.NewLogger(h)
}

// ContextLogger is a logger carrying a fixed context.
// It binds to the root logger on use, so package level loggers
// declared before the root handler is installed still honour it.
type ContextLogger struct {
	ctx   []any
	bound atomic.Pointer[boundLogger]
}

type boundLogger struct {
	root Logger
	l    Logger
}

// WithContext returns a logger that prefixes every record with ctx.
func WithContext(ctx ...any) *ContextLogger {
	return &ContextLogger{ctx: ctx}
}

func (c *ContextLogger) logger() Logger {
	root := ethlog.Root()
	if b := c.bound.Load(); b != nil && b.root == root {
		return b.l
	}
	b := &boundLogger{root: root, l: root.With(c.ctx...)}
	c.bound.Store(b)
	return b.l
}

// New returns a child logger with ctx appended.
func (c *ContextLogger) New(ctx ...any) *ContextLogger {
	return WithContext(append(append([]any{}, c.ctx...), ctx...)...)
}

func (c *ContextLogger) Trace(msg string, ctx ...any) { c.logger().Trace(msg, ctx...) }
func (c *ContextLogger) Debug(msg string, ctx ...any) { c.logger().Debug(msg, ctx...) }
func (c *ContextLogger) Info(msg string, ctx ...any)  { c.logger().Info(msg, ctx...) }
func (c *ContextLogger) Warn(msg string, ctx ...any)  { c.logger().Warn(msg, ctx...) }
func (c *ContextLogger) Error(msg string, ctx ...any) { c.logger().Error(msg, ctx...) }
func (c *ContextLogger) Crit(msg string, ctx ...any)  { c.logger().Crit(msg, ctx...) }

func Trace(msg string, ctx ...any) { ethlog.Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { ethlog.Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { ethlog.Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { ethlog.Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { ethlog.Root().Error(msg, ctx...) }
