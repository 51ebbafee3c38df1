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

package form

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownControl is returned for events addressed to a control that was
	// not part of the last render.
	ErrUnknownControl = errors.New("unknown control")

	// ErrReadOnly is returned for events addressed to a disabled control.
	ErrReadOnly = errors.New("control is read-only")
)

// Handler receives a control change.
type Handler func(Control) error

// ActionHandler receives an action, with the chosen menu value if it has one.
type ActionHandler func(value string) error

type boundField struct {
	field   Field
	handler Handler
}

type boundAction struct {
	action  Action
	handler ActionHandler
}

type memoEntry struct {
	gen   uint64
	value any
}

// Registry routes events to the handlers of the most recent render and keeps
// memoised values alive across renders. It is not safe for concurrent use;
// callers serialise renders and dispatches.
type Registry struct {
	fields   map[string]boundField
	actions  map[string]boundAction
	messages map[string]string
	memo     map[string]*memoEntry
	gen      uint64
}

func NewRegistry() *Registry {
	return &Registry{
		fields:   map[string]boundField{},
		actions:  map[string]boundAction{},
		messages: map[string]string{},
		memo:     map[string]*memoEntry{},
	}
}

// Begin starts a render. Handlers of the previous render are dropped.
func (r *Registry) Begin() *Builder {
	r.gen++
	r.fields = map[string]boundField{}
	r.actions = map[string]boundAction{}

	return &Builder{reg: r}
}

// End finishes a render and forgets memoised values the render did not use.
func (r *Registry) End() {
	for key, e := range r.memo {
		if e.gen != r.gen {
			delete(r.memo, key)
		}
	}
	for id := range r.messages {
		if _, ok := r.fields[id]; !ok {
			delete(r.messages, id)
		}
	}
}

// Dispatch delivers a posted event to the control with the given id.
func (r *Registry) Dispatch(id string, ev Event) error {
	bound, ok := r.fields[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	if bound.handler == nil || bound.field.Disabled {
		return fmt.Errorf("%w: %s", ErrReadOnly, id)
	}

	control := NewControl(bound.field, ev, func(message string) {
		if message == "" {
			delete(r.messages, id)
			return
		}
		r.messages[id] = message
	})

	return bound.handler(control)
}

// Invoke runs the action with the given id. Menu actions only accept one of
// their enabled option values.
func (r *Registry) Invoke(id, value string) error {
	bound, ok := r.actions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	if bound.handler == nil || bound.action.Disabled {
		return fmt.Errorf("%w: %s", ErrReadOnly, id)
	}

	if len(bound.action.Options) > 0 {
		allowed := false
		for _, o := range bound.action.Options {
			if o.Value == value && !o.Disabled {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: %s does not offer %q", ErrReadOnly, id, value)
		}
	}

	return bound.handler(value)
}

// Message returns the validation message last reported for a control.
func (r *Registry) Message(id string) string {
	return r.messages[id]
}

// Messages returns all current validation messages by control id.
func (r *Registry) Messages() map[string]string {
	out := make(map[string]string, len(r.messages))
	for k, v := range r.messages {
		out[k] = v
	}

	return out
}

// Controls returns the ids of all fields bound in the last render.
func (r *Registry) Controls() []string {
	ids := make([]string, 0, len(r.fields))
	for id := range r.fields {
		ids = append(ids, id)
	}

	return ids
}

// Builder renders nodes below one id prefix and binds their handlers.
type Builder struct {
	reg    *Registry
	prefix string
}

// Scope returns a builder for the child path seg.
func (b *Builder) Scope(seg string) *Builder {
	return &Builder{reg: b.reg, prefix: b.ID(seg)}
}

// Scopef is Scope with a formatted segment.
func (b *Builder) Scopef(format string, args ...any) *Builder {
	return b.Scope(fmt.Sprintf(format, args...))
}

// ID returns the full id of name below this builder.
func (b *Builder) ID(name string) string {
	if b.prefix == "" {
		return name
	}
	if name == "" {
		return b.prefix
	}

	return b.prefix + "." + name
}

// Prefix returns the id of the builder's own scope.
func (b *Builder) Prefix() string {
	return b.prefix
}

// Field renders a control. A nil handler renders it disabled.
func (b *Builder) Field(name string, f Field, h Handler, opts ...FieldOption) Node {
	f.ID = b.ID(name)
	for _, opt := range opts {
		opt(&f)
	}
	if h == nil {
		f.Disabled = true
	}
	f.Message = b.reg.messages[f.ID]

	b.reg.fields[f.ID] = boundField{field: f, handler: h}

	return Node{Type: NodeField, ID: f.ID, Label: f.Label, Field: &f}
}

// Action renders a button. A nil handler renders it disabled.
func (b *Builder) Action(name, label string, h ActionHandler, options ...Option) Node {
	a := Action{ID: b.ID(name), Label: label, Disabled: h == nil, Options: options}
	if len(options) > 0 {
		allDisabled := true
		for _, o := range options {
			if !o.Disabled {
				allDisabled = false
				break
			}
		}
		a.Disabled = a.Disabled || allDisabled
	}

	b.reg.actions[a.ID] = boundAction{action: a, handler: h}

	return Node{Type: NodeAction, ID: a.ID, Label: label, Action: &a}
}

// Memo returns the value stored under key in the builder's scope, creating it
// with create on first use or when the stored value has a different type.
// Values survive as long as every render asks for them.
func Memo[T any](b *Builder, key string, create func() T) T {
	full := b.ID("#" + strings.TrimPrefix(key, "#"))
	if e, ok := b.reg.memo[full]; ok {
		if v, ok := e.value.(T); ok {
			e.gen = b.reg.gen
			return v
		}
	}

	v := create()
	b.reg.memo[full] = &memoEntry{gen: b.reg.gen, value: v}

	return v
}
