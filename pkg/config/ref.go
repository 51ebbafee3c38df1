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

package config

import (
	"bytes"
	"fmt"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/safejson"
)

// Ref is a value that is either inline or a reference to a named template.
// On the wire a reference is a JSON string; anything else is the inline T.
type Ref[T any] struct {
	inline T
	name   string
	isRef  bool
}

// Reference returns a Ref naming the template id.
func Reference[T any](name string) Ref[T] {
	return Ref[T]{name: name, isRef: true}
}

// Inline returns a Ref holding v.
func Inline[T any](v T) Ref[T] {
	return Ref[T]{inline: v}
}

// IsRef reports whether r names a template.
func (r Ref[T]) IsRef() bool {
	return r.isRef
}

// RefName returns the referenced template id.
func (r Ref[T]) RefName() (string, bool) {
	return r.name, r.isRef
}

// InlineValue returns the inline value.
func (r Ref[T]) InlineValue() (T, bool) {
	if r.isRef {
		var zero T
		return zero, false
	}

	return r.inline, true
}

// Match calls exactly one of onRef or onInline.
func Match[T, R any](r Ref[T], onRef func(name string) R, onInline func(v T) R) R {
	if r.isRef {
		return onRef(r.name)
	}

	return onInline(r.inline)
}

// Rename returns r pointing at to when it currently references from.
func (r Ref[T]) Rename(from, to string) Ref[T] {
	if r.isRef && r.name == from {
		return Reference[T](to)
	}

	return r
}

// MapInline applies fn to an inline value and passes references through.
func (r Ref[T]) MapInline(fn func(T) T) Ref[T] {
	if r.isRef {
		return r
	}

	return Inline(fn(r.inline))
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.isRef {
		return safejson.Marshal(r.name)
	}

	return safejson.Marshal(r.inline)
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := safejson.Unmarshal(trimmed, &name); err != nil {
			return fmt.Errorf("failed to decode reference: %w", err)
		}
		*r = Reference[T](name)

		return nil
	}

	var v T
	if err := safejson.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*r = Inline(v)

	return nil
}
