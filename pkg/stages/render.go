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

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/binding"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
)

type bodyFunc[S config.Stage] func(b *form.Builder, f *binding.Facade[S], h Helpers) []form.Node

// typed adapts a renderer for one concrete stage type: it binds a facade to
// the stage and adds the flags and item actions every stage has.
func typed[S config.Stage](label string, body bodyFunc[S]) RenderFunc {
	return func(b *form.Builder, s config.Stage, h Helpers) form.Node {
		st, ok := s.(S)
		if !ok {
			return form.Item(b.Prefix(), label, form.Placeholder(fmt.Sprintf("Stage %s cannot be edited as %s", s.Kind(), label)))
		}

		var onChange func(S)
		if h.OnChange != nil {
			onChange = func(next S) { h.OnChange(next) }
		}
		f := binding.UseFacade(b, st, onChange)

		enabled := f.Checkbox(b, "enabled", "Enabled")
		enabled.Field.Value = st.Common().IsEnabled()

		children := []form.Node{enabled, f.Checkbox(b, "optional", "Optional")}
		children = append(children, body(b, f, h)...)
		children = append(children, itemActions(b, h)...)

		return form.Item(b.Prefix(), label, children...)
	}
}

func itemActions(b *form.Builder, h Helpers) []form.Node {
	var nodes []form.Node

	if h.OnMove != nil {
		var up, down form.ActionHandler
		if h.Index > 0 {
			up = func(string) error { h.OnMove(-1); return nil }
		}
		if h.Index < len(h.Siblings)-1 {
			down = func(string) error { h.OnMove(1); return nil }
		}
		nodes = append(nodes, b.Action("up", "Move up", up), b.Action("down", "Move down", down))
	}

	var del form.ActionHandler
	if h.OnDelete != nil {
		del = func(string) error { h.OnDelete(); return nil }
	}

	return append(nodes, b.Action("delete", "Delete", del))
}

// others returns the siblings without the stage being rendered.
func (h Helpers) others() config.StageList {
	return DeleteAt(h.Siblings, h.Index)
}

func renderNoSettings[S config.Stage](_ *form.Builder, _ *binding.Facade[S], _ Helpers) []form.Node {
	return nil
}

// renderTargetOnly renders the target select of an exclusive-target stage.
// Targets already used by another stage of the same kind are disabled.
func renderTargetOnly[S config.Stage](candidates []config.CameraTarget) bodyFunc[S] {
	return func(b *form.Builder, f *binding.Facade[S], h Helpers) []form.Node {
		used := UsedTargets(f.Value().Kind(), h.others())

		return []form.Node{
			f.Select(b, "target", "Camera", targetOptions(candidates, used), form.Required()),
		}
	}
}

func targetOptions(candidates []config.CameraTarget, used map[config.CameraTarget]bool) []form.Option {
	opts := make([]form.Option, 0, len(candidates))
	for _, t := range candidates {
		opts = append(opts, form.Option{Value: string(t), Label: string(t), Disabled: used[t]})
	}

	return opts
}

func renderSave(b *form.Builder, f *binding.Facade[config.SaveStage], _ Helpers) []form.Node {
	return []form.Node{
		f.Select(b, "target", "Camera", targetOptions(imageTargets, nil), form.Required()),
		f.Text(b, "path", "Folder", form.PlaceholderText("/data/recordings")),
	}
}

func renderInherit(b *form.Builder, f *binding.Facade[config.InheritStage], h Helpers) []form.Node {
	current := f.Value().ID

	seen := map[string]bool{}
	var opts []form.Option
	for _, id := range h.Config.PipelineIDs() {
		if seen[id] {
			continue
		}
		seen[id] = true
		opts = append(opts, form.Option{Value: id, Label: id})
	}

	nodes := []form.Node{}
	if !seen[current] {
		opts = append(opts, form.Option{Value: current, Label: current + " (missing)", Disabled: true})
		nodes = append(nodes, form.Placeholder(fmt.Sprintf("Unresolved pipeline reference %s", current)))
	}

	return append([]form.Node{f.Select(b, "id", "Pipeline", opts, form.Required())}, nodes...)
}

func renderApriltag(b *form.Builder, f *binding.Facade[config.ApriltagStage], h Helpers) []form.Node {
	st := f.Value()

	var onChange func(config.ApriltagStage)
	if f.Editable() {
		onChange = func(next config.ApriltagStage) { h.OnChange(next) }
	}
	onField := binding.ReplaceKey[config.ApriltagStage, config.Ref[config.AprilTagField]]("apriltags", st, onChange)

	return []form.Node{
		RenderFieldSelector(b.Scope("apriltags"), st.Apriltags, onField),
		form.Group("Detector",
			f.Number(b, "quadDecimate", "Quad decimate", form.Min(1), form.Required()),
			f.Number(b, "quadSigma", "Quad sigma", form.Min(0), form.Required()),
			f.Checkbox(b, "refineEdges", "Refine edges"),
			f.Number(b, "numIterations", "Pose iterations", form.Min(1), form.Required()),
			f.Number(b, "hammingDist", "Max hamming distance", form.Min(0), form.Max(3), form.Required()),
			f.Number(b, "decisionMargin", "Decision margin", form.Min(0), form.Required()),
		),
	}
}

var nnFamilies = []form.Option{
	{Value: "YOLO", Label: "YOLO"},
	{Value: "mobilenet", Label: "MobileNet SSD"},
}

func renderNN(b *form.Builder, f *binding.Facade[config.NNStage], h Helpers) []form.Node {
	st := f.Value()

	var onStage func(config.NNStage)
	if f.Editable() {
		onStage = func(next config.NNStage) { h.OnChange(next) }
	}
	onConfig := binding.ReplaceKey[config.NNStage, config.ObjectDetectionConfig]("config", st, onStage)

	cb := b.Scope("config")
	c := binding.UseFacade(cb, st.Config, onConfig)

	return []form.Node{
		form.Group("Model",
			c.Text(cb, "blob_path", "Blob path", form.Required()),
			c.Select(cb, "NN_family", "Family", nnFamilies),
			c.Text(cb, "input_size", "Input size", form.Pattern(`\d+x\d+`), form.PlaceholderText("416x416")),
			c.Number(cb, "classes", "Classes", form.Min(0)),
			c.Number(cb, "coordinates", "Coordinates", form.Min(0)),
			form.Text(fmt.Sprintf("%d labels, %d anchors", len(st.Config.Labels), len(st.Config.Anchors))),
		),
		form.Group("Thresholds",
			c.Number(cb, "confidence_threshold", "Confidence", form.Min(0), form.Max(1)),
			c.Number(cb, "iou_threshold", "IoU", form.Min(0), form.Max(1)),
			c.Number(cb, "coordinateSize", "Bounding box scale", form.Min(0), form.Max(1)),
			c.Number(cb, "depthLowerThreshold", "Min depth (mm)", form.Min(0)),
			c.Number(cb, "depthUpperThreshold", "Max depth (mm)", form.Min(0)),
		),
	}
}
