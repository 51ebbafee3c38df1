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
	"strconv"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/binding"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/stages"
)

// NoneChoice is the pipeline-kind value for a camera without a pipeline.
const NoneChoice = "$none"

// blankCamera is the "add camera" option for a camera with an empty selector.
const blankCamera = "$blank"

func pipelineChoice(p *config.Ref[config.StageList]) string {
	if p == nil {
		return NoneChoice
	}

	return config.Match(*p,
		func(name string) string { return name },
		func(config.StageList) string { return CustomChoice },
	)
}

// SwitchPipeline changes a camera pipeline between none, inline and template
// form. Choosing CustomChoice on a template reference seeds the inline list
// with a copy of the template's stages when the template exists.
func SwitchPipeline(cfg config.LocalConfig, current *config.Ref[config.StageList], choice string) (*config.Ref[config.StageList], error) {
	switch choice {
	case NoneChoice:
		return nil, nil
	case CustomChoice:
	default:
		ref := config.Reference[config.StageList](choice)
		return &ref, nil
	}

	if current != nil && !current.IsRef() {
		return current, nil
	}

	seed := config.StageList{}
	if current != nil {
		if resolved, ok := cfg.ResolvePipeline(*current); ok {
			cloned, err := resolved.Clone()
			if err != nil {
				return current, fmt.Errorf("failed to copy pipeline template: %w", err)
			}
			seed = cloned
		}
	}
	inline := config.Inline(seed)

	return &inline, nil
}

// NewCamera returns a camera for the "add camera" action. A detected camera
// index seeds the selector from that camera.
func NewCamera(cameras []config.DetectedCamera, choice string) (config.CameraConfig, error) {
	cam := config.CameraConfig{Selector: config.Inline(config.OakSelector{})}
	if choice == blankCamera {
		return cam, nil
	}

	i, err := strconv.Atoi(choice)
	if err != nil {
		return cam, fmt.Errorf("%w: %q is not a detected camera", binding.ErrInvalidInput, choice)
	}
	sel, err := CopyFromCamera(config.OakSelector{}, cameras, i)
	if err != nil {
		return cam, err
	}
	cam.Selector = config.Inline(sel)
	if cameras[i].Name != "" {
		id := cameras[i].Name
		cam.ID = &id
	}

	return cam, nil
}

func renderCameraPipeline(b *form.Builder, reg *stages.Registry, cfg config.LocalConfig, value *config.Ref[config.StageList], onChange func(*config.Ref[config.StageList])) form.Node {
	current := pipelineChoice(value)
	opts, resolvable := templateOptions(cfg.PipelineIDs(), current, true)
	if current == NoneChoice {
		resolvable = true
	}
	opts = append([]form.Option{{Value: NoneChoice, Label: "(none)"}}, opts...)

	var onKind form.Handler
	if onChange != nil {
		onKind = func(c form.Control) error {
			choice, err := binding.SelectValue(c, false)
			if err != nil {
				return nil
			}
			next, err := SwitchPipeline(cfg, value, *choice)
			if err != nil {
				return err
			}
			onChange(next)

			return nil
		}
	}

	children := []form.Node{
		b.Field("kind", form.Field{Kind: form.KindSelect, Label: "Pipeline", Value: current, Options: opts}, onKind, form.Required()),
	}

	sb := b.Scope("stages")
	switch {
	case value == nil:
	case !value.IsRef():
		list, _ := value.InlineValue()
		var onList func(config.StageList)
		if onChange != nil {
			onList = func(l config.StageList) {
				inline := config.Inline(l)
				onChange(&inline)
			}
		}
		children = append(children, renderStageList(sb, reg, cfg, list, onList))
	case resolvable:
		list, _ := cfg.ResolvePipeline(*value)
		children = append(children, renderStageList(sb, reg, cfg, list, nil))
	default:
		children = append(children, form.Placeholder(fmt.Sprintf("Unresolved pipeline reference %s", current)))
	}

	return form.Group("Pipeline", children...)
}

func renderPose(b *form.Builder, value *config.Transform3d, onChange func(*config.Transform3d)) form.Node {
	if value == nil {
		var add form.ActionHandler
		if onChange != nil {
			add = func(string) error {
				pose := config.IdentityTransform()
				onChange(&pose)
				return nil
			}
		}

		return form.Group("Pose", b.Action("add", "Add pose", add))
	}

	var onPose func(config.Transform3d)
	var remove form.ActionHandler
	if onChange != nil {
		onPose = func(t config.Transform3d) { onChange(&t) }
		remove = func(string) error { onChange(nil); return nil }
	}

	return form.Group("Pose",
		stages.RenderTransform(b, *value, onPose),
		b.Action("remove", "Remove pose", remove),
	)
}

func cameraLabel(i int, cam config.CameraConfig) string {
	if cam.ID != nil && *cam.ID != "" {
		return *cam.ID
	}

	return fmt.Sprintf("Camera %d", i+1)
}

// renderCameras edits the camera list. Each camera is updated through its
// index so edits to one camera never touch another.
func renderCameras(b *form.Builder, reg *stages.Registry, cfg config.LocalConfig, onUpdate func(binding.Change[config.LocalConfig]), detected []config.DetectedCamera) form.Node {
	onList := binding.UpdateKey[config.LocalConfig, []config.CameraConfig]("cameras", onUpdate)

	items := make([]form.Node, 0, len(cfg.Cameras))
	for i, cam := range cfg.Cameras {
		ib := b.Scope(binding.Index(i))
		onCam := binding.Setter(binding.UpdateIndex(i, onList))
		f := binding.UseFacade(ib, cam, onCam)

		var del form.ActionHandler
		if onList != nil {
			del = func(string) error {
				onList(binding.Apply(func(l []config.CameraConfig) []config.CameraConfig {
					return stages.DeleteAt(l, i)
				}))
				return nil
			}
		}

		items = append(items, form.Item(ib.Prefix(), cameraLabel(i, cam),
			f.Text(ib, "id", "Id"),
			renderCameraSelector(ib.Scope("selector"), cfg, cam.Selector,
				binding.ReplaceKey[config.CameraConfig, config.Ref[config.OakSelector]]("selector", cam, onCam), detected),
			renderPose(ib.Scope("pose"), cam.Pose,
				binding.ReplaceKey[config.CameraConfig, *config.Transform3d]("pose", cam, onCam)),
			renderCameraPipeline(ib.Scope("pipeline"), reg, cfg, cam.Pipeline,
				binding.ReplaceKey[config.CameraConfig, *config.Ref[config.StageList]]("pipeline", cam, onCam)),
			ib.Action("delete", "Delete", del),
		))
	}
	if len(cfg.Cameras) == 0 {
		items = append(items, form.Placeholder("No cameras configured"))
	}

	var add form.ActionHandler
	if onList != nil {
		add = func(value string) error {
			cam, err := NewCamera(detected, value)
			if err != nil {
				return nil
			}
			onList(binding.Apply(func(l []config.CameraConfig) []config.CameraConfig {
				return stages.Append(l, cam)
			}))
			return nil
		}
	}
	addOpts := append([]form.Option{{Value: blankCamera, Label: "Empty camera"}}, detectedOptions(detected)...)

	return form.Section(b.Prefix(), "Cameras",
		form.List(b.ID("items"), "", items...),
		b.Action("add", "Add camera", add, addOpts...),
	)
}
