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

package stages

import (
	"fmt"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
)

const (
	WarningDuplicateStage config.WarningCode = "duplicate_stage"
	WarningSharedTarget   config.WarningCode = "shared_target"
)

// Check reports stages in list that break the registry's placement rules:
// a second stage of a single kind, or two stages of one kind on the same
// target. Such lists load fine but could not have been built in the editor.
func (r *Registry) Check(path string, list config.StageList) []config.Warning {
	var w []config.Warning

	seen := map[config.StageKind]bool{}
	targets := map[config.StageKind]map[config.CameraTarget]bool{}
	for i, s := range list {
		e, ok := r.entries[s.Kind()]
		if !ok {
			continue
		}
		at := fmt.Sprintf("%s[%d]", path, i)

		if e.Single {
			if seen[e.Kind] {
				w = append(w, config.Warning{
					Path:    at,
					Code:    WarningDuplicateStage,
					Message: fmt.Sprintf("only one %s stage is allowed per pipeline", e.Kind),
				})
			}
			seen[e.Kind] = true
		}

		t, ok := config.StageTarget(s)
		if !ok || len(e.Targets) == 0 {
			continue
		}
		if targets[e.Kind] == nil {
			targets[e.Kind] = map[config.CameraTarget]bool{}
		}
		if targets[e.Kind][t] {
			w = append(w, config.Warning{
				Path:    at + ".target",
				Code:    WarningSharedTarget,
				Message: fmt.Sprintf("another %s stage already uses target %s", e.Kind, t),
			})
		}
		targets[e.Kind][t] = true
	}

	return w
}

// CheckConfig runs Check on every stage list of cfg.
func (r *Registry) CheckConfig(cfg config.LocalConfig) []config.Warning {
	var w []config.Warning
	for i, p := range cfg.Pipelines {
		w = append(w, r.Check(fmt.Sprintf("pipelines[%d].stages", i), p.Stages)...)
	}
	for i, c := range cfg.Cameras {
		if c.Pipeline == nil {
			continue
		}
		if list, ok := c.Pipeline.InlineValue(); ok {
			w = append(w, r.Check(fmt.Sprintf("cameras[%d].pipeline", i), list)...)
		}
	}

	return w
}
