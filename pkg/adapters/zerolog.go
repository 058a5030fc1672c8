// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package adapters

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	logger zerolog.Logger
	level  LogLevel
}

// NewZerologLogger creates a zerolog console logger writing to w.
func NewZerologLogger(w io.Writer) Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "15:04:05",
	}
	return &ZerologLogger{
		logger: zerolog.New(output).With().Timestamp().Logger(),
		level:  InfoLevel,
	}
}

// NewZerologLoggerFrom wraps an existing zerolog.Logger.
func NewZerologLoggerFrom(logger zerolog.Logger) Logger {
	return &ZerologLogger{logger: logger, level: InfoLevel}
}

func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	if l.level <= DebugLevel {
		l.emit(l.logger.Debug(), msg, fields)
	}
}

func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...Field) {
	if l.level <= InfoLevel {
		l.emit(l.logger.Info(), msg, fields)
	}
}

func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	if l.level <= WarnLevel {
		l.emit(l.logger.Warn(), msg, fields)
	}
}

func (l *ZerologLogger) Error(ctx context.Context, msg string, fields ...Field) {
	if l.level <= ErrorLevel {
		l.emit(l.logger.Error(), msg, fields)
	}
}

// WithFields returns a logger whose zerolog context carries the fields.
func (l *ZerologLogger) WithFields(fields ...Field) Logger {
	zctx := l.logger.With()
	for _, f := range fields {
		zctx = zctx.Interface(f.Key, f.Value)
	}
	return &ZerologLogger{logger: zctx.Logger(), level: l.level}
}

func (l *ZerologLogger) SetLevel(level LogLevel) { l.level = level }
func (l *ZerologLogger) GetLevel() LogLevel      { return l.level }

func (l *ZerologLogger) emit(e *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			e = e.Str(f.Key, v)
		case int:
			e = e.Int(f.Key, v)
		case int64:
			e = e.Int64(f.Key, v)
		case bool:
			e = e.Bool(f.Key, v)
		case error:
			e = e.AnErr(f.Key, v)
		default:
			e = e.Interface(f.Key, v)
		}
	}
	e.Msg(msg)
}
