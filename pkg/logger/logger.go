// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/env"
)

// LogLevel represents the logging level.
type LogLevel string

// LogFormat represents the logging format.
type LogFormat string

const (
	DebugLevel LogLevel = "DEBUG"
	InfoLevel  LogLevel = "INFO"
	WarnLevel  LogLevel = "WARN"
	ErrorLevel LogLevel = "ERROR"
	// ProductionLevel is an alias for InfoLevel, used for easier configuration.
	ProductionLevel LogLevel = "PRODUCTION"

	// FormatConsole indicates human-readable console format.
	FormatConsole LogFormat = "CONSOLE"
	// FormatJSON indicates structured JSON format.
	FormatJSON LogFormat = "JSON"
	// FormatPretty indicates the bracketed one-line format used on the device console.
	FormatPretty LogFormat = "PRETTY"
)

// Options select level, format and destination of a logger.
type Options struct {
	Level  LogLevel
	Format LogFormat
	// Output defaults to stdout.
	Output io.Writer
}

var (
	initOnce sync.Once
	// level is shared by every logger created through Initialize, so SetLevel
	// takes effect for loggers that were already handed out.
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// ParseLevel maps a configured level to zap. Unknown values mean info.
func ParseLevel(l LogLevel) zapcore.Level {
	switch LogLevel(strings.ToUpper(strings.TrimSpace(string(l)))) {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func parseFormat(f LogFormat, fallback LogFormat) LogFormat {
	switch format := LogFormat(strings.ToUpper(strings.TrimSpace(string(f)))); format {
	case FormatConsole, FormatJSON, FormatPretty:
		return format
	default:
		return fallback
	}
}

// OptionsFromEnv reads LOGGING_LEVEL and LOGGING_FORMAT. The device console
// gets the pretty format unless told otherwise.
func OptionsFromEnv() Options {
	lvl, _ := env.GetAsString("LOGGING_LEVEL", false, string(ProductionLevel))
	format, _ := env.GetAsString("LOGGING_FORMAT", false, string(FormatPretty))

	return Options{
		Level:  LogLevel(lvl),
		Format: parseFormat(LogFormat(format), FormatPretty),
	}
}

func encoderFor(format LogFormat) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	switch format {
	case FormatPretty:
		return NewPrettyConsoleEncoder(cfg)
	case FormatConsole:
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05 MST")
		cfg.ConsoleSeparator = " | "

		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder

		return zapcore.NewJSONEncoder(cfg)
	}
}

// New builds a standalone logger. Its level is fixed; use Initialize for the
// process-wide logger whose level can be changed later.
func New(opts Options) *zap.Logger {
	return newWithLevel(opts, zap.NewAtomicLevelAt(ParseLevel(opts.Level)))
}

func newWithLevel(opts Options, lvl zap.AtomicLevel) *zap.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	core := zapcore.NewCore(encoderFor(parseFormat(opts.Format, FormatJSON)), zapcore.AddSync(out), lvl)

	return zap.New(core, zap.AddCaller())
}

// Initialize installs the process-wide logger configured from the environment.
func Initialize() {
	initOnce.Do(func() { install(OptionsFromEnv()) })
}

// InitializeWith installs the process-wide logger. Only the first call of
// Initialize or InitializeWith has an effect.
func InitializeWith(opts Options) {
	initOnce.Do(func() { install(opts) })
}

func install(opts Options) {
	level.SetLevel(ParseLevel(opts.Level))
	l := newWithLevel(opts, level)
	zap.ReplaceGlobals(l)

	l.Info("Logger initialized",
		zap.String("level", level.String()),
		zap.String("format", string(opts.Format)))
}

// SetLevel changes the level of the process-wide logger, including loggers
// handed out before the call.
func SetLevel(l LogLevel) {
	level.SetLevel(ParseLevel(l))
}

// Sync flushes any buffered log entries.
func Sync() error {
	return zap.L().Sync()
}

// For creates a named logger for a specific component.
func For(component string) *zap.SugaredLogger {
	Initialize()

	return zap.S().Named(component)
}

// ForSession is For with the editor session id attached to every entry.
func ForSession(component, sessionID string) *zap.SugaredLogger {
	return For(component).With("session", sessionID)
}
