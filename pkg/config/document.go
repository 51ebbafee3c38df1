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

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/safejson"
)

// Parse decodes a LocalConfig. Missing lists decode as empty lists.
func Parse(data []byte) (LocalConfig, error) {
	var cfg LocalConfig
	if err := safejson.Unmarshal(data, &cfg); err != nil {
		return LocalConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg.normalized(), nil
}

// Encode returns the pretty printed document as it is written to disk.
func Encode(cfg LocalConfig) ([]byte, error) {
	data, err := safejson.MarshalIndent(cfg.normalized())
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	return data, nil
}

// Clone returns a copy that shares no memory with cfg.
func (cfg LocalConfig) Clone() (LocalConfig, error) {
	data, err := safejson.Marshal(cfg)
	if err != nil {
		return LocalConfig{}, fmt.Errorf("failed to clone config: %w", err)
	}

	return Parse(data)
}

func (cfg LocalConfig) normalized() LocalConfig {
	if cfg.CameraSelectors == nil {
		cfg.CameraSelectors = []CameraSelectorDefinition{}
	}
	if cfg.Pipelines == nil {
		cfg.Pipelines = []PipelineDefinition{}
	}
	if cfg.Cameras == nil {
		cfg.Cameras = []CameraConfig{}
	}

	return cfg
}

// FindSelector returns the index of the first selector template with id.
func (cfg LocalConfig) FindSelector(id string) int {
	for i, s := range cfg.CameraSelectors {
		if s.ID == id {
			return i
		}
	}

	return -1
}

// FindPipeline returns the index of the first pipeline template with id.
func (cfg LocalConfig) FindPipeline(id string) int {
	for i, p := range cfg.Pipelines {
		if p.ID == id {
			return i
		}
	}

	return -1
}

// ResolveSelector returns the selector a camera ends up with. Duplicate
// template ids resolve to the first one.
func (cfg LocalConfig) ResolveSelector(r Ref[OakSelector]) (OakSelector, bool) {
	return Match(r,
		func(name string) resolved[OakSelector] {
			i := cfg.FindSelector(name)
			if i < 0 {
				return resolved[OakSelector]{}
			}

			return resolved[OakSelector]{cfg.CameraSelectors[i].OakSelector, true}
		},
		func(v OakSelector) resolved[OakSelector] { return resolved[OakSelector]{v, true} },
	).unpack()
}

// ResolvePipeline returns the stages a pipeline reference stands for, without
// expanding inherit stages.
func (cfg LocalConfig) ResolvePipeline(r Ref[StageList]) (StageList, bool) {
	return Match(r,
		func(name string) resolved[StageList] {
			i := cfg.FindPipeline(name)
			if i < 0 {
				return resolved[StageList]{}
			}

			return resolved[StageList]{cfg.Pipelines[i].Stages, true}
		},
		func(v StageList) resolved[StageList] { return resolved[StageList]{v, true} },
	).unpack()
}

type resolved[T any] struct {
	val T
	ok  bool
}

func (r resolved[T]) unpack() (T, bool) { return r.val, r.ok }

// PipelineIDs returns the template ids in document order.
func (cfg LocalConfig) PipelineIDs() []string {
	ids := make([]string, 0, len(cfg.Pipelines))
	for _, p := range cfg.Pipelines {
		ids = append(ids, p.ID)
	}

	return ids
}

// SelectorIDs returns the selector template ids in document order.
func (cfg LocalConfig) SelectorIDs() []string {
	ids := make([]string, 0, len(cfg.CameraSelectors))
	for _, s := range cfg.CameraSelectors {
		ids = append(ids, s.ID)
	}

	return ids
}
