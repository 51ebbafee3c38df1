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
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/stages"
)

// Controller renders the whole document. Every sub-editor receives a
// callback derived from onUpdate, so all edits reach the owner of the
// document as changes of the root.
type Controller struct {
	Stages  *stages.Registry
	Cameras []config.DetectedCamera
}

// Render builds the form for cfg. A nil onUpdate renders the document
// read-only.
func (c Controller) Render(b *form.Builder, cfg config.LocalConfig, onUpdate func(binding.Change[config.LocalConfig])) form.Node {
	reg := c.Stages
	if reg == nil {
		reg = stages.Default
	}

	gb := b.Scope("general")
	general := binding.UseFacade(gb, cfg, binding.Setter(onUpdate))

	return form.Section(b.Prefix(), "Configuration",
		form.Section(gb.Prefix(), "General",
			general.Checkbox(gb, "allow_overwrite", "Allow overwriting the device config"),
		),
		renderNT(b.Scope("nt"), cfg.NT,
			binding.Setter(binding.UpdateKey[config.LocalConfig, config.NetworkTablesConfig]("nt", onUpdate))),
		renderLog(b.Scope("log"), cfg.Log,
			binding.Setter(binding.UpdateKey[config.LocalConfig, config.LogConfig]("log", onUpdate))),
		renderDatalog(b.Scope("datalog"), cfg.Datalog,
			binding.Setter(binding.UpdateKey[config.LocalConfig, config.DatalogConfig]("datalog", onUpdate))),
		renderEstimator(b.Scope("estimator"), cfg.Estimator,
			binding.Setter(binding.UpdateKey[config.LocalConfig, config.EstimatorConfig]("estimator", onUpdate))),
		renderWeb(b.Scope("web"), cfg.Web,
			binding.Setter(binding.UpdateKey[config.LocalConfig, config.WebConfig]("web", onUpdate))),
		renderSelectorTemplates(b.Scope("camera_selectors"), cfg, onUpdate, c.Cameras),
		renderPipelineTemplates(b.Scope("pipelines"), reg, cfg, onUpdate),
		renderCameras(b.Scope("cameras"), reg, cfg, onUpdate, c.Cameras),
	)
}
