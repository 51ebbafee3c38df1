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
	"reflect"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
)

// FieldFunc renders one bound field of the facade's object.
type FieldFunc func(b *form.Builder, key, label string, opts ...form.FieldOption) form.Node

// SelectFunc renders a bound select with the given options.
type SelectFunc func(b *form.Builder, key, label string, options []form.Option, opts ...form.FieldOption) form.Node

// Facade is a set of field renderers pre-bound to one value and its change
// callback. The renderers are created once; the value and callback they use
// live in a cell that Update refreshes on every render.
type Facade[T any] struct {
	cell *cell[T]

	Checkbox FieldFunc
	Select   SelectFunc
	Number   FieldFunc
	Text     FieldFunc
}

type cell[T any] struct {
	value    T
	onChange func(T)
}

// NewFacade returns an unbound facade. Call Update before rendering.
func NewFacade[T any]() *Facade[T] {
	f := &Facade[T]{cell: &cell[T]{}}
	typ := reflect.TypeOf((*T)(nil)).Elem()

	f.Checkbox = func(b *form.Builder, key, label string, opts ...form.FieldOption) form.Node {
		value, _ := KeyValue(f.cell.value, key)
		checked, _ := value.(bool)

		return b.Field(key, form.Field{Kind: form.KindCheckbox, Label: label, Value: checked},
			f.handler(key, AsCheckbox()), opts...)
	}

	f.Select = func(b *form.Builder, key, label string, options []form.Option, opts ...form.FieldOption) form.Node {
		nullable := isNullable(typ, key)
		value, _ := KeyValue(f.cell.value, key)

		var current any = NullSentinel
		if value != nil {
			current = reflect.ValueOf(value).String()
		}
		if nullable && !hasOption(options, NullSentinel) {
			options = append([]form.Option{{Value: NullSentinel, Label: "(none)"}}, options...)
		}

		return b.Field(key, form.Field{Kind: form.KindSelect, Label: label, Value: current, Options: options},
			f.handler(key, AsSelect(nullable)), opts...)
	}

	f.Number = func(b *form.Builder, key, label string, opts ...form.FieldOption) form.Node {
		value, _ := KeyValue(f.cell.value, key)

		field := form.Field{Kind: form.KindNumber, Label: label, Value: value}
		if isInteger(typ, key) {
			field.Attrs = form.Attrs{form.AttrStep: 1}
		} else {
			field.Attrs = form.Attrs{form.AttrStep: "any"}
		}

		return b.Field(key, field, f.handler(key, AsNumber(isNullable(typ, key))), opts...)
	}

	f.Text = func(b *form.Builder, key, label string, opts ...form.FieldOption) form.Node {
		value, _ := KeyValue(f.cell.value, key)
		if value == nil {
			value = ""
		} else {
			value = reflect.ValueOf(value).String()
		}

		return b.Field(key, form.Field{Kind: form.KindText, Label: label, Value: value},
			f.handler(key, AsText(isNullable(typ, key))), opts...)
	}

	return f
}

// Update points the facade at the latest value and callback.
func (f *Facade[T]) Update(value T, onChange func(T)) *Facade[T] {
	f.cell.value = value
	f.cell.onChange = onChange

	return f
}

// Value returns the value of the last Update.
func (f *Facade[T]) Value() T {
	return f.cell.value
}

// Editable reports whether the last Update supplied a change callback.
func (f *Facade[T]) Editable() bool {
	return f.cell.onChange != nil
}

// handler binds key against the cell. The binding reads the cell when the
// event arrives, so it always sees the value of the latest render.
func (f *Facade[T]) handler(key string, coerce Coercer) form.Handler {
	if f.cell.onChange == nil {
		return nil
	}
	mustHaveKey[T](key)

	return func(c form.Control) error {
		h := Bind(f.cell.value, key, f.cell.onChange, coerce)
		if h == nil {
			return form.ErrReadOnly
		}

		return h(c)
	}
}

// UseFacade returns the facade memoised in b's scope, updated to value and
// onChange. Repeated renders of the same scope get the same facade.
func UseFacade[T any](b *form.Builder, value T, onChange func(T)) *Facade[T] {
	return form.Memo(b, "facade", NewFacade[T]).Update(value, onChange)
}

func hasOption(options []form.Option, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}

	return false
}
