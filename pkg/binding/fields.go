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
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Keys address one level of a value: the JSON name of a struct field
// (promoted fields of embedded structs included), a map key, or a decimal
// slice index.

var fieldIndexCache sync.Map // reflect.Type -> map[string][]int

func structFields(t reflect.Type) map[string][]int {
	if cached, ok := fieldIndexCache.Load(t); ok {
		return cached.(map[string][]int)
	}

	fields := map[string][]int{}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" && f.Type.Kind() == reflect.Struct {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if _, dup := fields[name]; dup && len(f.Index) > len(fields[name]) {
			continue
		}
		fields[name] = f.Index
	}

	fieldIndexCache.Store(t, fields)

	return fields
}

// HasKey reports whether values of type t can be addressed by key.
func HasKey(t reflect.Type, key string) bool {
	switch t.Kind() {
	case reflect.Struct:
		_, ok := structFields(t)[key]
		return ok
	case reflect.Pointer:
		return HasKey(t.Elem(), key)
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	case reflect.Slice, reflect.Array:
		_, err := strconv.Atoi(key)
		return err == nil
	case reflect.Interface:
		return true
	default:
		return false
	}
}

func mustHaveKey[P any](key string) {
	t := reflect.TypeOf((*P)(nil)).Elem()
	if !HasKey(t, key) {
		panic(fmt.Sprintf("binding: %s has no key %q", t, key))
	}
}

// lookup returns the value stored under key, which may be invalid for a
// missing map key or an out of range index.
func lookup(v reflect.Value, key string) (reflect.Value, error) {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, nil
		}
		return lookup(v.Elem(), key)
	case reflect.Struct:
		idx, ok := structFields(v.Type())[key]
		if !ok {
			return reflect.Value{}, fmt.Errorf("binding: %s has no key %q", v.Type(), key)
		}
		return v.FieldByIndex(idx), nil
	case reflect.Map:
		return v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key())), nil
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("binding: %q is not an index", key)
		}
		if i < 0 || i >= v.Len() {
			return reflect.Value{}, nil
		}
		return v.Index(i), nil
	default:
		return reflect.Value{}, fmt.Errorf("binding: cannot address %q in %s", key, v.Type())
	}
}

// KeyValue returns parent[key] as a plain value: pointers are dereferenced and
// null is nil.
func KeyValue(parent any, key string) (any, error) {
	v, err := lookup(reflect.ValueOf(parent), key)
	if err != nil {
		return nil, err
	}
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}

	return v.Interface(), nil
}

// keyType returns the declared type stored under key.
func keyType(t reflect.Type, key string) (reflect.Type, bool) {
	switch t.Kind() {
	case reflect.Struct:
		idx, ok := structFields(t)[key]
		if !ok {
			return nil, false
		}
		return t.FieldByIndex(idx).Type, true
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer:
		if t.Kind() == reflect.Pointer {
			return keyType(t.Elem(), key)
		}
		return t.Elem(), true
	default:
		return nil, false
	}
}

// WithKey returns a shallow copy of parent in which only key holds value.
// parent itself is never modified.
func WithKey[P any](parent P, key string, value any) (P, error) {
	src := reflect.ValueOf(&parent).Elem()
	next, err := withKey(src, key, value)
	if err != nil {
		return parent, err
	}

	var out P
	reflect.ValueOf(&out).Elem().Set(next)

	return out, nil
}

func withKey(v reflect.Value, key string, value any) (reflect.Value, error) {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("binding: cannot set %q on nil %s", key, v.Type())
		}
		inner, err := withKey(v.Elem(), key, value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out, nil

	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("binding: cannot set %q on nil %s", key, v.Type())
		}
		inner, err := withKey(v.Elem(), key, value)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(inner)
		return out, nil

	case reflect.Struct:
		idx, ok := structFields(v.Type())[key]
		if !ok {
			return reflect.Value{}, fmt.Errorf("binding: %s has no key %q", v.Type(), key)
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		if err := assign(out.FieldByIndex(idx), value); err != nil {
			return reflect.Value{}, fmt.Errorf("%s: %w", key, err)
		}
		return out, nil

	case reflect.Map:
		out := reflect.MakeMapWithSize(v.Type(), v.Len()+1)
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		elem := reflect.New(v.Type().Elem()).Elem()
		if err := assign(elem, value); err != nil {
			return reflect.Value{}, fmt.Errorf("%s: %w", key, err)
		}
		out.SetMapIndex(reflect.ValueOf(key).Convert(v.Type().Key()), elem)
		return out, nil

	case reflect.Slice:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= v.Len() {
			return reflect.Value{}, fmt.Errorf("binding: index %q out of range for %s of length %d", key, v.Type(), v.Len())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(out, v)
		if err := assign(out.Index(i), value); err != nil {
			return reflect.Value{}, fmt.Errorf("%s: %w", key, err)
		}
		return out, nil

	default:
		return reflect.Value{}, fmt.Errorf("binding: cannot set %q in %s", key, v.Type())
	}
}

// assign stores value in dst, converting between the coerced representation
// (bool, string, float64 or nil) and the declared field type.
func assign(dst reflect.Value, value any) error {
	t := dst.Type()

	if value == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
			dst.Set(reflect.Zero(t))
			return nil
		default:
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, t)
		}
	}

	src := reflect.ValueOf(value)

	if src.Type().AssignableTo(t) {
		dst.Set(src)
		return nil
	}

	if t.Kind() == reflect.Pointer {
		elem := reflect.New(t.Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	switch t.Kind() {
	case reflect.String:
		if src.Kind() == reflect.String {
			dst.SetString(src.String())
			return nil
		}

	case reflect.Bool:
		if src.Kind() == reflect.Bool {
			dst.SetBool(src.Bool())
			return nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := asFloat(src)
		if !ok {
			break
		}
		if f != math.Trunc(f) || dst.OverflowInt(int64(f)) {
			return fmt.Errorf("%w: %v is not a valid %s", ErrInvalidInput, f, t)
		}
		dst.SetInt(int64(f))
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, ok := asFloat(src)
		if !ok {
			break
		}
		if f < 0 || f != math.Trunc(f) || dst.OverflowUint(uint64(f)) {
			return fmt.Errorf("%w: %v is not a valid %s", ErrInvalidInput, f, t)
		}
		dst.SetUint(uint64(f))
		return nil

	case reflect.Float32, reflect.Float64:
		f, ok := asFloat(src)
		if !ok {
			break
		}
		dst.SetFloat(f)
		return nil

	default:
		if src.Type().ConvertibleTo(t) {
			dst.Set(src.Convert(t))
			return nil
		}
	}

	return fmt.Errorf("binding: cannot store %s in %s", src.Type(), t)
}

func asFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	default:
		return 0, false
	}
}

// isNullable reports whether the field under key can hold null.
func isNullable(t reflect.Type, key string) bool {
	ft, ok := keyType(t, key)
	if !ok {
		return false
	}
	switch ft.Kind() {
	case reflect.Pointer, reflect.Interface:
		return true
	default:
		return false
	}
}

// isInteger reports whether the field under key stores an integer.
func isInteger(t reflect.Type, key string) bool {
	ft, ok := keyType(t, key)
	if !ok {
		return false
	}
	for ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	switch ft.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}
