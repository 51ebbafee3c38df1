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

package editor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/binding"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/configstore"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/constants"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/logger"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/service/filesystem"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/stages"
)

// ErrNotReady is returned for edits sent before the session's data is loaded.
var ErrNotReady = errors.New("editor is still loading")

// Saver pushes a finished config to the device.
type Saver interface {
	SaveConfig(ctx context.Context, cfg config.LocalConfig) error
}

// Deps are the collaborators of a session. Saver and FS are optional.
type Deps struct {
	Source    Source
	Saver     Saver
	FS        filesystem.Writer
	ExportDir string
	Stages    *stages.Registry
	// TTL bounds how long the session's fetches may keep retrying.
	TTL time.Duration
}

// State is what a client needs to draw the editor.
type State struct {
	ID       string            `json:"id"`
	Phase    string            `json:"phase"`
	Revision uint64            `json:"revision"`
	Form     form.Node         `json:"form"`
	Warnings []config.Warning  `json:"warnings,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

type SaveTarget string

const (
	SaveTargetDevice SaveTarget = "device"
	SaveTargetExport SaveTarget = "export"
	SaveTargetManual SaveTarget = "manual"
)

// SaveResult tells where a saved config ended up. For SaveTargetManual the
// config text is in Content so it can be copied by hand.
type SaveResult struct {
	Target  SaveTarget `json:"target"`
	Path    string     `json:"path,omitempty"`
	Content string     `json:"content,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// Session is one mounted editor: a view loading the document, the document
// being edited and the handlers of its last render.
type Session struct {
	ID string

	log    *zap.SugaredLogger
	deps   Deps
	view   *View
	cancel context.CancelFunc
	once   sync.Once

	mu       sync.Mutex
	reg      *form.Registry
	cfg      *config.LocalConfig
	cameras  []config.DetectedCamera
	revision uint64
	rendered bool
}

// NewSession mounts a view for id. parent must outlive the request that
// creates the session; Close or the TTL ends the fetches.
func NewSession(parent context.Context, id string, deps Deps) *Session {
	if deps.Stages == nil {
		deps.Stages = stages.Default
	}
	if deps.TTL <= 0 {
		deps.TTL = constants.SessionTTL
	}

	log := logger.ForSession(logger.ComponentEditor, id)
	s := &Session{
		ID:   id,
		log:  log,
		deps: deps,
		view: NewView(logger.ForSession(logger.ComponentView, id)),
		reg:  form.NewRegistry(),
	}

	ctx, cancel := context.WithTimeout(parent, deps.TTL)
	s.cancel = cancel
	s.view.Mount(ctx, deps.Source)
	metrics.SessionMounted()
	log.Debugf("session mounted")

	return s
}

// View returns the session's loading lifecycle.
func (s *Session) View() *View {
	return s.view
}

// Render returns the current state and rebinds every control.
func (s *Session) Render() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.render()
}

// HandleField delivers a control change event. Invalid input is not an
// error: the state then carries the validation message at the control.
func (s *Session) HandleField(id string, ev form.Event) (State, error) {
	return s.handle(func() error { return s.reg.Dispatch(id, ev) })
}

// HandleAction runs an action such as "add stage" with the chosen value.
func (s *Session) HandleAction(id, value string) (State, error) {
	return s.handle(func() error { return s.reg.Invoke(id, value) })
}

func (s *Session) handle(run func() error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded() {
		return s.render(), ErrNotReady
	}
	if !s.rendered || s.view.State() == StateUnmounted {
		s.render()
	}

	err := run()
	switch {
	case errors.Is(err, form.ErrUnknownControl):
		metrics.RecordFieldEvent("any", "unknown")
	case errors.Is(err, form.ErrReadOnly):
		metrics.RecordFieldEvent("any", "readonly")
	}

	return s.render(), err
}

// loaded seeds the editable document from the view once it has been ready,
// including after an unmount. It must be called with s.mu held.
func (s *Session) loaded() bool {
	if s.cfg != nil {
		return true
	}
	if !s.view.WasReady() {
		return false
	}

	snap := s.view.Snapshot()
	if snap.Config == nil {
		return false
	}
	s.cfg = snap.Config
	s.cameras = snap.Cameras
	s.log.Debugf("document loaded with %d pipelines and %d cameras", len(s.cfg.Pipelines), len(s.cfg.Cameras))

	return true
}

// update applies a change of the whole document. It runs inside a handler,
// so s.mu is already held.
func (s *Session) update(ch binding.Change[config.LocalConfig]) {
	next := ch.Resolve(*s.cfg)
	s.cfg = &next
	s.revision++
}

func (s *Session) render() State {
	snap := s.view.Snapshot()
	st := State{ID: s.ID, Phase: snap.State, Revision: s.revision, Errors: snap.Errors}

	b := s.reg.Begin()
	if s.loaded() {
		var onUpdate func(binding.Change[config.LocalConfig])
		if snap.State != StateUnmounted {
			onUpdate = s.update
		}
		ctrl := Controller{Stages: s.deps.Stages, Cameras: s.cameras}
		st.Form = ctrl.Render(b.Scope("config"), *s.cfg, onUpdate)
		st.Warnings = s.warnings()
	} else {
		children := []form.Node{form.Placeholder("Loading configuration...")}
		for _, resource := range slices.Sorted(maps.Keys(snap.Errors)) {
			children = append(children, form.Text(fmt.Sprintf("Failed to load %s: %s", resource, snap.Errors[resource])))
		}
		st.Form = form.Section("config", "Configuration", children...)
	}
	s.reg.End()
	s.rendered = true

	return st
}

func (s *Session) warnings() []config.Warning {
	w := config.Validate(*s.cfg)

	return append(w, s.deps.Stages.CheckConfig(*s.cfg)...)
}

// Config returns the document being edited.
func (s *Session) Config() (config.LocalConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded() {
		return config.LocalConfig{}, false
	}

	return *s.cfg, true
}

// Warnings returns the data-integrity findings for the current document.
func (s *Session) Warnings() ([]config.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded() {
		return nil, ErrNotReady
	}

	return s.warnings(), nil
}

// Export returns the document as pretty-printed JSON.
func (s *Session) Export() ([]byte, error) {
	cfg, ok := s.Config()
	if !ok {
		return nil, ErrNotReady
	}

	return config.Encode(cfg)
}

// Save pushes the document to the device. Without a device saver, or when
// pushing fails, the document is written to the export directory, and when
// that fails too it is returned for manual copying. The last save wins.
func (s *Session) Save(ctx context.Context) (SaveResult, error) {
	cfg, ok := s.Config()
	if !ok {
		return SaveResult{}, ErrNotReady
	}
	data, err := config.Encode(cfg)
	if err != nil {
		return SaveResult{}, err
	}

	var failures []error
	if s.deps.Saver != nil {
		if err := s.deps.Saver.SaveConfig(ctx, cfg); err != nil {
			s.log.Warnf("failed to save config to device: %v", err)
			failures = append(failures, fmt.Errorf("device: %w", err))
		} else {
			metrics.RecordSave(string(SaveTargetDevice))
			return SaveResult{Target: SaveTargetDevice}, nil
		}
	}

	if s.deps.FS != nil && s.deps.ExportDir != "" {
		path := filepath.Join(s.deps.ExportDir, fmt.Sprintf("config-%s.json", time.Now().UTC().Format("20060102T150405.000Z")))
		if err := configstore.WriteAtomic(ctx, s.deps.FS, path, data); err != nil {
			s.log.Warnf("failed to export config: %v", err)
			failures = append(failures, fmt.Errorf("export: %w", err))
		} else {
			metrics.RecordSave(string(SaveTargetExport))
			return SaveResult{Target: SaveTargetExport, Path: path}, nil
		}
	}

	metrics.RecordSave(string(SaveTargetManual))
	res := SaveResult{Target: SaveTargetManual, Content: string(data)}
	if len(failures) > 0 {
		res.Error = errors.Join(failures...).Error()
	}

	return res, nil
}

// Close unmounts the view. In-flight fetches are cancelled and their results
// discarded.
func (s *Session) Close() {
	s.once.Do(func() {
		s.view.Unmount()
		s.cancel()
		metrics.SessionUnmounted()
		s.log.Debugf("session closed")
	})
}
