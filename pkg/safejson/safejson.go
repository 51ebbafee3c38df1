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

// Package safejson decodes and encodes with goccy/go-json and falls back to
// encoding/json whenever goccy panics on an unusual payload.
package safejson

import (
	"bytes"
	jsonstd "encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// RawMessage is re-exported so callers do not need to import a codec.
type RawMessage = json.RawMessage

// logPrefix bounds how much of a payload a fallback warning quotes. Config
// documents can be large.
const logPrefix = 256

// fallback runs fast and, if it panics, slow instead.
func fallback(op string, payload []byte, fast, slow func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		quoted := payload
		if len(quoted) > logPrefix {
			quoted = quoted[:logPrefix]
		}
		zap.S().Warnw("goccy panicked, retrying with encoding/json",
			"op", op, "panic", r, "bytes", len(payload), "prefix", string(quoted))

		if err = slow(); err != nil {
			err = fmt.Errorf("stdlib fallback failed after goccy panic %v: %w", r, err)
		}
	}()

	return fast()
}

func Unmarshal(val []byte, decoded any) error {
	target := reflect.ValueOf(decoded)
	if !target.IsValid() || target.Kind() != reflect.Ptr || target.IsNil() {
		return errors.New("decoded must be a non-nil pointer")
	}

	return fallback("unmarshal", val,
		func() error { return json.Unmarshal(val, decoded) },
		func() error {
			// A panicking goccy decode may have written part of decoded.
			fresh := reflect.New(target.Elem().Type())
			if err := jsonstd.Unmarshal(val, fresh.Interface()); err != nil {
				return err
			}
			target.Elem().Set(fresh.Elem())

			return nil
		})
}

func Marshal(val any) ([]byte, error) {
	var encoded []byte
	err := fallback("marshal", nil,
		func() (err error) {
			encoded, err = json.Marshal(val)
			return err
		},
		func() (err error) {
			encoded, err = jsonstd.Marshal(val)
			return err
		})

	return encoded, err
}

// MarshalIndent encodes val pretty printed with two-space indentation and a
// trailing newline, the layout of config files on the device.
func MarshalIndent(val any) ([]byte, error) {
	raw, err := Marshal(val)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent json: %w", err)
	}
	out.WriteByte('\n')

	return out.Bytes(), nil
}

// Valid reports whether data is a syntactically valid JSON document.
func Valid(data []byte) bool {
	return json.Valid(data)
}
