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
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// PrettyConsoleEncoder produces lines like
// 2006-01-02 15:04:05 UTC [INFO]	[Editor]	message - session=3f2a, key=value
//
// Fields attached with With() are printed before the fields of the entry.
type PrettyConsoleEncoder struct {
	*zapcore.MapObjectEncoder
	cfg  zapcore.EncoderConfig
	pool buffer.Pool
}

// NewPrettyConsoleEncoder creates a new PrettyConsoleEncoder instance.
func NewPrettyConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &PrettyConsoleEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		cfg:              cfg,
		pool:             buffer.NewPool(),
	}
}

// Clone implements zapcore.Encoder.
func (e *PrettyConsoleEncoder) Clone() zapcore.Encoder {
	ctx := zapcore.NewMapObjectEncoder()
	maps.Copy(ctx.Fields, e.Fields)

	return &PrettyConsoleEncoder{
		MapObjectEncoder: ctx,
		cfg:              e.cfg,
		pool:             e.pool,
	}
}

// EncodeEntry formats a log entry in a human-readable format.
func (e *PrettyConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := e.pool.Get()

	if !entry.Time.IsZero() {
		line.AppendString(entry.Time.Format("2006-01-02 15:04:05 MST"))
	}
	line.AppendString(" [")
	line.AppendString(entry.Level.CapitalString())
	line.AppendString("]\t")

	if entry.Caller.Defined {
		line.AppendByte('[')
		line.AppendString(entry.Caller.TrimmedPath())
		line.AppendString("]\t")
	}

	if entry.LoggerName != "" {
		line.AppendByte('[')
		line.AppendString(entry.LoggerName)
		line.AppendString("]\t")
	}

	line.AppendString(entry.Message)

	pairs := make([]string, 0, len(e.Fields)+len(fields))
	for _, key := range slices.Sorted(maps.Keys(e.Fields)) {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, e.Fields[key]))
	}
	for _, field := range fields {
		enc := zapcore.NewMapObjectEncoder()
		field.AddTo(enc)
		pairs = append(pairs, fmt.Sprintf("%s=%v", field.Key, enc.Fields[field.Key]))
	}
	if len(pairs) > 0 {
		line.AppendString(" - ")
		line.AppendString(strings.Join(pairs, ", "))
	}

	line.AppendString(e.cfg.LineEnding)

	return line, nil
}
