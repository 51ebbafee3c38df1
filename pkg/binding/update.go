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

package binding

import (
	"fmt"
	"reflect"
	"strconv"
)

// Change is either a literal new value or a function of the current value.
// Passing functions up a chain of update helpers lets several deferred
// updates compose instead of overwriting each other with stale copies.
type Change[V any] struct {
	value V
	fn    func(V) V
}

// Set is the literal form.
func Set[V any](v V) Change[V] {
	return Change[V]{value: v}
}

// Apply is the functional form.
func Apply[V any](fn func(V) V) Change[V] {
	return Change[V]{fn: fn}
}

// IsFunc reports whether c is the functional form.
func (c Change[V]) IsFunc() bool {
	return c.fn != nil
}

// Resolve returns the new value given the current one.
func (c Change[V]) Resolve(old V) V {
	if c.fn != nil {
		return c.fn(old)
	}

	return c.value
}

// ReplaceKey returns a callback that emits a copy of parent with key replaced.
// It returns nil when onChange is nil, so callers can test whether editing is
// allowed before wiring a control.
func ReplaceKey[P, V any](key string, parent P, onChange func(P)) func(V) {
	if onChange == nil {
		return nil
	}
	mustHaveKey[P](key)

	return func(v V) {
		next, err := WithKey(parent, key, v)
		if err != nil {
			panic(err)
		}
		onChange(next)
	}
}

// UpdateKey returns a callback that accepts a Change for parent[key] and
// forwards it to onUpdate as a functional change of the parent. An updater
// sees defaultInit when the key is absent or nil. It returns nil when
// onUpdate is nil.
func UpdateKey[P, V any](key string, onUpdate func(Change[P]), defaultInit ...V) func(Change[V]) {
	if onUpdate == nil {
		return nil
	}
	mustHaveKey[P](key)

	return func(c Change[V]) {
		onUpdate(Apply(func(parent P) P {
			old := getKey(parent, key, defaultInit...)
			next, err := WithKey(parent, key, c.Resolve(old))
			if err != nil {
				panic(err)
			}

			return next
		}))
	}
}

// UpdateIndex is the list analogue of UpdateKey: the returned callback
// replaces element index of a copy of the list, leaving every other element
// in place. An index outside the list leaves it unchanged. It returns nil
// when onUpdate is nil.
func UpdateIndex[V any](index int, onUpdate func(Change[[]V])) func(Change[V]) {
	if onUpdate == nil {
		return nil
	}

	return func(c Change[V]) {
		onUpdate(Apply(func(list []V) []V {
			out := make([]V, len(list))
			copy(out, list)
			if index >= 0 && index < len(list) {
				out[index] = c.Resolve(list[index])
			}

			return out
		}))
	}
}

// Setter adapts a Change callback to a plain value callback.
func Setter[V any](onUpdate func(Change[V])) func(V) {
	if onUpdate == nil {
		return nil
	}

	return func(v V) { onUpdate(Set(v)) }
}

// Updater adapts a plain value callback to a Change callback, resolving
// functional changes against current.
func Updater[V any](current V, onChange func(V)) func(Change[V]) {
	if onChange == nil {
		return nil
	}

	return func(c Change[V]) { onChange(c.Resolve(current)) }
}

// Convert adapts a Change callback of a named slice type to its element list
// form, e.g. config.StageList to []config.Stage.
func Convert[L ~[]V, V any](onUpdate func(Change[L])) func(Change[[]V]) {
	if onUpdate == nil {
		return nil
	}

	return func(c Change[[]V]) {
		onUpdate(Apply(func(l L) L { return L(c.Resolve([]V(l))) }))
	}
}

func getKey[P, V any](parent P, key string, defaultInit ...V) V {
	var zero V
	fallback := zero
	if len(defaultInit) > 0 {
		fallback = defaultInit[0]
	}

	v, err := lookup(reflect.ValueOf(&parent).Elem(), key)
	if err != nil {
		panic(err)
	}

	want := reflect.TypeOf((*V)(nil)).Elem()
	for v.IsValid() {
		if isNilValue(v) {
			return fallback
		}
		if v.Type().AssignableTo(want) {
			return v.Interface().(V)
		}
		if v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface {
			break
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return fallback
	}

	panic(fmt.Sprintf("binding: key %q holds %s, not %s", key, v.Type(), want))
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// Index formats a list index as a key.
func Index(i int) string {
	return strconv.Itoa(i)
}
