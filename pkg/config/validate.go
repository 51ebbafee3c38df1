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
	"fmt"
	"sort"
)

type WarningCode string

const (
	WarningDuplicateID        WarningCode = "duplicate_id"
	WarningUnresolvedSelector WarningCode = "unresolved_selector"
	WarningUnresolvedPipeline WarningCode = "unresolved_pipeline"
	WarningUnknownStage       WarningCode = "unknown_stage"
	WarningUnknownFieldLayout WarningCode = "unknown_field_layout"
	WarningUnknownFieldPreset WarningCode = "unknown_field_preset"
	WarningInheritCycle       WarningCode = "inherit_cycle"
)

// Warning is a data-integrity finding. Warnings never block editing or saving.
type Warning struct {
	Path    string      `json:"path"`
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// Validate checks the cross references of cfg.
func Validate(cfg LocalConfig) []Warning {
	var w []Warning

	w = append(w, duplicateIDs("camera_selectors", cfg.SelectorIDs())...)
	w = append(w, duplicateIDs("pipelines", cfg.PipelineIDs())...)

	for i, p := range cfg.Pipelines {
		w = append(w, validateStages(cfg, fmt.Sprintf("pipelines[%d].stages", i), p.Stages)...)
	}

	for i, c := range cfg.Cameras {
		path := fmt.Sprintf("cameras[%d]", i)
		if name, ok := c.Selector.RefName(); ok && cfg.FindSelector(name) < 0 {
			w = append(w, Warning{
				Path:    path + ".selector",
				Code:    WarningUnresolvedSelector,
				Message: fmt.Sprintf("selector template %q does not exist", name),
			})
		}
		if c.Pipeline == nil {
			continue
		}
		if name, ok := c.Pipeline.RefName(); ok {
			if cfg.FindPipeline(name) < 0 {
				w = append(w, Warning{
					Path:    path + ".pipeline",
					Code:    WarningUnresolvedPipeline,
					Message: fmt.Sprintf("pipeline template %q does not exist", name),
				})
			}

			continue
		}
		stages, _ := c.Pipeline.InlineValue()
		w = append(w, validateStages(cfg, path+".pipeline", stages)...)
	}

	w = append(w, inheritCycles(cfg)...)

	return w
}

func duplicateIDs(path string, ids []string) []Warning {
	first := make(map[string]int, len(ids))
	var w []Warning
	for i, id := range ids {
		if j, seen := first[id]; seen {
			w = append(w, Warning{
				Path:    fmt.Sprintf("%s[%d].id", path, i),
				Code:    WarningDuplicateID,
				Message: fmt.Sprintf("id %q is already used by %s[%d]; references resolve to the first one", id, path, j),
			})

			continue
		}
		first[id] = i
	}

	return w
}

func validateStages(cfg LocalConfig, path string, stages StageList) []Warning {
	var w []Warning
	for i, s := range stages {
		stagePath := fmt.Sprintf("%s[%d]", path, i)
		switch st := s.(type) {
		case UnknownStage:
			w = append(w, Warning{
				Path:    stagePath,
				Code:    WarningUnknownStage,
				Message: fmt.Sprintf("unknown stage %q", st.Tag),
			})
		case InheritStage:
			if cfg.FindPipeline(st.ID) < 0 {
				w = append(w, Warning{
					Path:    stagePath + ".id",
					Code:    WarningUnresolvedPipeline,
					Message: fmt.Sprintf("inherited pipeline %q does not exist", st.ID),
				})
			}
		case ApriltagStage:
			if name, ok := st.Apriltags.RefName(); ok {
				if !IsFieldPreset(name) {
					w = append(w, Warning{
						Path:    stagePath + ".apriltags",
						Code:    WarningUnknownFieldPreset,
						Message: fmt.Sprintf("unknown field preset %q", name),
					})
				}

				continue
			}
			field, _ := st.Apriltags.InlineValue()
			if u, ok := field.Layout.(UnknownFieldLayout); ok {
				w = append(w, Warning{
					Path:    stagePath + ".apriltags",
					Code:    WarningUnknownFieldLayout,
					Message: fmt.Sprintf("unknown field format %q", u.FormatName),
				})
			}
		}
	}

	return w
}

// inheritCycles reports each template that takes part in an inherit cycle.
func inheritCycles(cfg LocalConfig) []Warning {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make([]int, len(cfg.Pipelines))
	inCycle := map[int]bool{}

	var visit func(i int, stack []int)
	visit = func(i int, stack []int) {
		state[i] = visiting
		stack = append(stack, i)
		for _, s := range cfg.Pipelines[i].Stages {
			inh, ok := s.(InheritStage)
			if !ok {
				continue
			}
			j := cfg.FindPipeline(inh.ID)
			if j < 0 {
				continue
			}
			switch state[j] {
			case visiting:
				for k := len(stack) - 1; k >= 0; k-- {
					inCycle[stack[k]] = true
					if stack[k] == j {
						break
					}
				}
			case unvisited:
				visit(j, stack)
			}
		}
		state[i] = done
	}

	for i := range cfg.Pipelines {
		if state[i] == unvisited {
			visit(i, nil)
		}
	}

	indices := make([]int, 0, len(inCycle))
	for i := range inCycle {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	w := make([]Warning, 0, len(indices))
	for _, i := range indices {
		w = append(w, Warning{
			Path:    fmt.Sprintf("pipelines[%d]", i),
			Code:    WarningInheritCycle,
			Message: fmt.Sprintf("pipeline %q inherits from itself", cfg.Pipelines[i].ID),
		})
	}

	return w
}
