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
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/binding"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/stages"
)

// renderPipelineTemplates edits the named pipeline templates. An id edit is
// applied to the whole document in one step so every reference follows the
// template.
func renderPipelineTemplates(b *form.Builder, reg *stages.Registry, cfg config.LocalConfig, onUpdate func(binding.Change[config.LocalConfig])) form.Node {
	onList := binding.UpdateKey[config.LocalConfig, []config.PipelineDefinition]("pipelines", onUpdate)

	items := make([]form.Node, 0, len(cfg.Pipelines))
	for i, def := range cfg.Pipelines {
		ib := b.Scope(binding.Index(i))

		var onDef func(config.PipelineDefinition)
		if onUpdate != nil {
			onDef = func(next config.PipelineDefinition) {
				if next.ID != def.ID {
					metrics.RecordRename("pipeline")
				}
				onUpdate(binding.Apply(func(c config.LocalConfig) config.LocalConfig {
					return config.ReplacePipeline(c, i, next)
				}))
			}
		}
		f := binding.UseFacade(ib, def, onDef)

		var del form.ActionHandler
		if onList != nil {
			del = func(string) error {
				onList(binding.Apply(func(l []config.PipelineDefinition) []config.PipelineDefinition {
					return stages.DeleteAt(l, i)
				}))
				return nil
			}
		}

		items = append(items, form.Item(ib.Prefix(), def.ID,
			f.Text(ib, "id", "Id", form.Required()),
			renderStageList(ib.Scope("stages"), reg, cfg, def.Stages, binding.ReplaceKey[config.PipelineDefinition, config.StageList]("stages", def, onDef)),
			ib.Action("delete", "Delete", del),
		))
	}

	var add form.ActionHandler
	if onList != nil {
		add = func(string) error {
			onList(binding.Apply(func(l []config.PipelineDefinition) []config.PipelineDefinition {
				ids := make([]string, 0, len(l))
				for _, p := range l {
					ids = append(ids, p.ID)
				}
				return stages.Append(l, config.PipelineDefinition{ID: uniqueID("pipeline", ids), Stages: config.StageList{}})
			}))
			return nil
		}
	}

	return form.Section(b.Prefix(), "Pipelines",
		form.List(b.ID("items"), "", items...),
		b.Action("add", "Add pipeline", add),
	)
}
