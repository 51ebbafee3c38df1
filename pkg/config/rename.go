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

// ReplacePipeline replaces the pipeline template at index with next. When the
// id changes, every reference to the old id is rewritten in the same step:
// inherit stages in all templates, string camera pipelines, and inherit
// stages inside inline camera pipelines. References are scanned on the
// pre-edit templates and the edited entry is written last, so next is stored
// exactly as given.
func ReplacePipeline(cfg LocalConfig, index int, next PipelineDefinition) LocalConfig {
	if index < 0 || index >= len(cfg.Pipelines) {
		return cfg
	}

	oldID := cfg.Pipelines[index].ID
	pipelines := make([]PipelineDefinition, len(cfg.Pipelines))
	copy(pipelines, cfg.Pipelines)

	if oldID != next.ID {
		for i, p := range cfg.Pipelines {
			pipelines[i] = PipelineDefinition{ID: p.ID, Stages: p.Stages.RenameInherit(oldID, next.ID)}
		}

		cameras := make([]CameraConfig, len(cfg.Cameras))
		for i, c := range cfg.Cameras {
			if c.Pipeline != nil {
				renamed := c.Pipeline.Rename(oldID, next.ID).MapInline(func(stages StageList) StageList {
					return stages.RenameInherit(oldID, next.ID)
				})
				c.Pipeline = &renamed
			}
			cameras[i] = c
		}
		cfg.Cameras = cameras
	}

	pipelines[index] = next
	cfg.Pipelines = pipelines

	return cfg
}

// ReplaceSelector replaces the selector template at index with next and
// moves string camera selectors naming the old id over to the new one.
func ReplaceSelector(cfg LocalConfig, index int, next CameraSelectorDefinition) LocalConfig {
	if index < 0 || index >= len(cfg.CameraSelectors) {
		return cfg
	}

	oldID := cfg.CameraSelectors[index].ID
	if oldID != next.ID {
		cameras := make([]CameraConfig, len(cfg.Cameras))
		for i, c := range cfg.Cameras {
			c.Selector = c.Selector.Rename(oldID, next.ID)
			cameras[i] = c
		}
		cfg.Cameras = cameras
	}

	selectors := make([]CameraSelectorDefinition, len(cfg.CameraSelectors))
	copy(selectors, cfg.CameraSelectors)
	selectors[index] = next
	cfg.CameraSelectors = selectors

	return cfg
}

// RenamePipeline renames the first template called from. It reports false
// when no such template exists.
func RenamePipeline(cfg LocalConfig, from, to string) (LocalConfig, bool) {
	i := cfg.FindPipeline(from)
	if i < 0 {
		return cfg, false
	}
	next := cfg.Pipelines[i]
	next.ID = to

	return ReplacePipeline(cfg, i, next), true
}
