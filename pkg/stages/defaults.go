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
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
)

// UnknownPipelineID is what a new inherit stage points at when the document
// has no pipeline templates yet.
const UnknownPipelineID = "unknown"

var (
	monoTargets  = []config.CameraTarget{config.TargetLeft, config.TargetRight}
	imageTargets = []config.CameraTarget{config.TargetLeft, config.TargetRight, config.TargetRgb, config.TargetDepth}
)

func builtinEntries() []Entry {
	return []Entry{
		{
			Kind:        config.StageInherit,
			Label:       "Inherit",
			Render:      typed[config.InheritStage]("Inherit", renderInherit),
			MakeDefault: defaultInherit,
		},
		{
			Kind:        config.StageMono,
			Label:       "Mono camera",
			Render:      typed[config.MonoStage]("Mono camera", renderTargetOnly[config.MonoStage](monoTargets)),
			MakeDefault: defaultMono,
			Targets:     monoTargets,
		},
		{
			Kind:        config.StageRgb,
			Label:       "RGB camera",
			Render:      typed[config.RgbStage]("RGB camera", renderNoSettings[config.RgbStage]),
			MakeDefault: func(config.LocalConfig, config.StageList) config.Stage { return config.RgbStage{} },
			Single:      true,
		},
		{
			Kind:        config.StageDepth,
			Label:       "Stereo depth",
			Render:      typed[config.DepthStage]("Stereo depth", renderNoSettings[config.DepthStage]),
			MakeDefault: func(config.LocalConfig, config.StageList) config.Stage { return config.DepthStage{} },
			Single:      true,
		},
		{
			Kind:        config.StageSlam,
			Label:       "SLAM",
			Render:      typed[config.SlamStage]("SLAM", renderNoSettings[config.SlamStage]),
			MakeDefault: func(config.LocalConfig, config.StageList) config.Stage { return config.SlamStage{} },
			Single:      true,
		},
		{
			Kind:        config.StageApriltag,
			Label:       "AprilTag detection",
			Render:      typed[config.ApriltagStage]("AprilTag detection", renderApriltag),
			MakeDefault: defaultApriltag,
			Single:      true,
		},
		{
			Kind:        config.StageNN,
			Label:       "Object detection",
			Render:      typed[config.NNStage]("Object detection", renderNN),
			MakeDefault: defaultNN,
			Single:      true,
		},
		{
			Kind:        config.StageTelemetry,
			Label:       "Telemetry",
			Render:      typed[config.TelemetryStage]("Telemetry", renderNoSettings[config.TelemetryStage]),
			MakeDefault: func(config.LocalConfig, config.StageList) config.Stage { return config.TelemetryStage{} },
			Single:      true,
		},
		{
			Kind:        config.StageWeb,
			Label:       "Web stream",
			Render:      typed[config.WebStage]("Web stream", renderTargetOnly[config.WebStage](imageTargets)),
			MakeDefault: defaultWeb,
			Targets:     imageTargets,
		},
		{
			Kind:        config.StageShow,
			Label:       "Local preview",
			Render:      typed[config.ShowStage]("Local preview", renderTargetOnly[config.ShowStage](imageTargets)),
			MakeDefault: defaultShow,
			Targets:     imageTargets,
		},
		{
			Kind:        config.StageSave,
			Label:       "Save to disk",
			Render:      typed[config.SaveStage]("Save to disk", renderSave),
			MakeDefault: defaultSave,
		},
	}
}

func defaultInherit(cfg config.LocalConfig, _ config.StageList) config.Stage {
	if len(cfg.Pipelines) == 0 {
		return config.InheritStage{ID: UnknownPipelineID}
	}

	return config.InheritStage{ID: cfg.Pipelines[0].ID}
}

func defaultApriltag(config.LocalConfig, config.StageList) config.Stage {
	return config.ApriltagStage{
		Apriltags:      config.Reference[config.AprilTagField](config.FieldPreset2024Crescendo),
		QuadDecimate:   1,
		QuadSigma:      0,
		RefineEdges:    true,
		NumIterations:  40,
		HammingDist:    0,
		DecisionMargin: 35,
	}
}

func defaultNN(config.LocalConfig, config.StageList) config.Stage {
	return config.NNStage{
		Config: config.ObjectDetectionConfig{
			ConfidenceThreshold: 0.9,
			CoordinateSize:      0.5,
			IOUThreshold:        0.5,
			Anchors:             []float64{},
			AnchorMasks:         map[string][]int{},
			Labels:              []string{},
		},
	}
}

func defaultSave(config.LocalConfig, config.StageList) config.Stage {
	return config.SaveStage{Target: config.TargetLeft, Path: ""}
}

// firstFree picks the first candidate target not used by a stage of kind.
// When every target is taken it falls back to the first candidate; the add
// menu keeps that case unreachable.
func firstFree(kind config.StageKind, candidates []config.CameraTarget, existing config.StageList) config.CameraTarget {
	used := UsedTargets(kind, existing)
	for _, t := range candidates {
		if !used[t] {
			return t
		}
	}

	return candidates[0]
}

func defaultMono(_ config.LocalConfig, existing config.StageList) config.Stage {
	return config.MonoStage{Target: firstFree(config.StageMono, monoTargets, existing)}
}

func defaultWeb(_ config.LocalConfig, existing config.StageList) config.Stage {
	return config.WebStage{Target: firstFree(config.StageWeb, imageTargets, existing)}
}

func defaultShow(_ config.LocalConfig, existing config.StageList) config.Stage {
	return config.ShowStage{Target: firstFree(config.StageShow, imageTargets, existing)}
}
