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

// Package stages holds the pipeline stage registry: for every stage kind a
// renderer, a default constructor and the rules that decide whether another
// stage of that kind may be added to a list.
package stages

import (
	"fmt"
	"slices"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
)

// Helpers is what a stage renderer gets besides the stage itself.
type Helpers struct {
	// Config is the whole document, e.g. for resolving inherit targets.
	Config config.LocalConfig
	// Siblings is the list the stage lives in, the stage included.
	Siblings config.StageList
	Index    int

	// OnChange replaces the stage. Nil renders it read-only.
	OnChange func(config.Stage)
	OnDelete func()
	// OnMove moves the stage by delta positions. Nil hides the move actions.
	OnMove func(delta int)
}

type RenderFunc func(b *form.Builder, s config.Stage, h Helpers) form.Node

type DefaultFunc func(cfg config.LocalConfig, existing config.StageList) config.Stage

// Entry describes one stage kind.
type Entry struct {
	Kind        config.StageKind
	Label       string
	Render      RenderFunc
	MakeDefault DefaultFunc

	// Targets is the closed candidate set of kinds whose stages must not
	// share a target within one list.
	Targets []config.CameraTarget
	// Single kinds may appear at most once per list.
	Single bool
}

// Registry maps stage kinds to their entries.
type Registry struct {
	entries map[config.StageKind]Entry
	order   []config.StageKind
}

// NewRegistry checks that every known stage kind has exactly one complete
// entry whose default constructor produces that kind.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[config.StageKind]Entry, len(entries))}
	for _, e := range entries {
		if _, dup := r.entries[e.Kind]; dup {
			return nil, fmt.Errorf("stage kind %q registered twice", e.Kind)
		}
		if e.Render == nil || e.MakeDefault == nil {
			return nil, fmt.Errorf("stage kind %q is missing a renderer or a default", e.Kind)
		}
		if e.Single && len(e.Targets) > 0 {
			return nil, fmt.Errorf("stage kind %q cannot be single and target exclusive", e.Kind)
		}
		if got := e.MakeDefault(config.Default(), nil).Kind(); got != e.Kind {
			return nil, fmt.Errorf("default of stage kind %q has kind %q", e.Kind, got)
		}
		r.entries[e.Kind] = e
	}

	for _, kind := range config.StageKinds() {
		if _, ok := r.entries[kind]; !ok {
			return nil, fmt.Errorf("stage kind %q has no registry entry", kind)
		}
		r.order = append(r.order, kind)
	}
	if len(r.order) != len(r.entries) {
		return nil, fmt.Errorf("registry has %d entries for %d stage kinds", len(r.entries), len(r.order))
	}

	return r, nil
}

// MustRegistry is NewRegistry for package initialisation.
func MustRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}

	return r
}

// Default is the registry of all built-in stage kinds.
var Default = MustRegistry(builtinEntries()...)

func (r *Registry) Lookup(kind config.StageKind) (Entry, bool) {
	e, ok := r.entries[kind]
	return e, ok
}

// Kinds returns the registered kinds in menu order.
func (r *Registry) Kinds() []config.StageKind {
	return slices.Clone(r.order)
}

// Label returns the display name of kind, or the raw tag when unknown.
func (r *Registry) Label(kind config.StageKind) string {
	if e, ok := r.entries[kind]; ok {
		return e.Label
	}

	return string(kind)
}

// Render dispatches to the renderer of s's kind. Kinds without an entry
// render a placeholder.
func (r *Registry) Render(b *form.Builder, s config.Stage, h Helpers) form.Node {
	e, ok := r.entries[s.Kind()]
	if !ok {
		return UnknownStageNode(b, s, h)
	}

	return e.Render(b, s, h)
}

// UnknownStageNode shows a stage of an unregistered kind. It can still be
// deleted or moved so a config written by a newer build stays editable.
func UnknownStageNode(b *form.Builder, s config.Stage, h Helpers) form.Node {
	children := []form.Node{form.Placeholder(fmt.Sprintf("Unknown stage %s", s.Kind()))}
	children = append(children, itemActions(b, h)...)

	return form.Item(b.Prefix(), string(s.Kind()), children...)
}

// MakeDefault returns a new stage of kind for a list already holding existing.
func (r *Registry) MakeDefault(kind config.StageKind, cfg config.LocalConfig, existing config.StageList) (config.Stage, error) {
	e, ok := r.entries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown stage kind %q", kind)
	}

	return e.MakeDefault(cfg, existing), nil
}

// UsedTargets returns the targets claimed by stages of kind in existing.
func UsedTargets(kind config.StageKind, existing config.StageList) map[config.CameraTarget]bool {
	used := map[config.CameraTarget]bool{}
	for _, s := range existing {
		if s.Kind() != kind {
			continue
		}
		if t, ok := config.StageTarget(s); ok {
			used[t] = true
		}
	}

	return used
}

// FreeTargets returns the candidate targets of kind not yet used by a stage
// of the same kind in existing, in candidate order.
func (r *Registry) FreeTargets(kind config.StageKind, existing config.StageList) []config.CameraTarget {
	e, ok := r.entries[kind]
	if !ok {
		return nil
	}

	used := UsedTargets(kind, existing)
	free := make([]config.CameraTarget, 0, len(e.Targets))
	for _, t := range e.Targets {
		if !used[t] {
			free = append(free, t)
		}
	}

	return free
}

// Available reports whether another stage of kind may be added to existing.
func (r *Registry) Available(kind config.StageKind, existing config.StageList) bool {
	e, ok := r.entries[kind]
	if !ok {
		return false
	}
	if e.Single && existing.CountKind(kind) > 0 {
		return false
	}
	if len(e.Targets) > 0 && len(r.FreeTargets(kind, existing)) == 0 {
		return false
	}

	return true
}

// AddOptions is the "add stage" menu for existing, with unavailable kinds
// disabled.
func (r *Registry) AddOptions(existing config.StageList) []form.Option {
	opts := make([]form.Option, 0, len(r.order))
	for _, kind := range r.order {
		opts = append(opts, form.Option{
			Value:    string(kind),
			Label:    r.entries[kind].Label,
			Disabled: !r.Available(kind, existing),
		})
	}

	return opts
}
