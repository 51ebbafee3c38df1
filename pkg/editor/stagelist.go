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
	"fmt"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/binding"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/stages"
)

// AddStage appends a default stage of kind to list. Kinds the registry
// does not offer for list are rejected with binding.ErrInvalidInput.
func AddStage(reg *stages.Registry, cfg config.LocalConfig, list config.StageList, kind config.StageKind) (config.StageList, error) {
	if !reg.Available(kind, list) {
		return list, fmt.Errorf("%w: stage %s cannot be added", binding.ErrInvalidInput, kind)
	}

	s, err := reg.MakeDefault(kind, cfg, list)
	if err != nil {
		return list, err
	}

	return stages.Append(list, s), nil
}

// renderStageList renders every stage of list through the registry and an
// "add stage" action. A nil onChange renders the list read-only.
func renderStageList(b *form.Builder, reg *stages.Registry, cfg config.LocalConfig, list config.StageList, onChange func(config.StageList)) form.Node {
	items := make([]form.Node, 0, len(list))
	for i, s := range list {
		h := stages.Helpers{Config: cfg, Siblings: list, Index: i}
		if onChange != nil {
			h.OnChange = func(next config.Stage) { onChange(stages.ReplaceAt(list, i, next)) }
			h.OnDelete = func() { onChange(stages.DeleteAt(list, i)) }
			h.OnMove = func(delta int) { onChange(stages.Move(list, i, delta)) }
		}
		items = append(items, reg.Render(b.Scope(binding.Index(i)), s, h))
	}
	if len(list) == 0 {
		items = append(items, form.Placeholder("No stages"))
	}

	nodes := []form.Node{form.List(b.ID("items"), "", items...)}
	if onChange != nil {
		add := func(value string) error {
			next, err := AddStage(reg, cfg, list, config.StageKind(value))
			if err != nil {
				return err
			}
			onChange(next)

			return nil
		}
		nodes = append(nodes, b.Action("add", "Add stage", add, reg.AddOptions(list)...))
	}

	return form.Group("Stages", nodes...)
}
