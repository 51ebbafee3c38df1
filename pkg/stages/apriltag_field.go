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
	"errors"
	"fmt"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/binding"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
)

// Field source values of the selector besides the preset names.
const (
	sourceWPIInline = "$wpi-inline"
	sourceWPIFile   = "$wpi-file"
	sourceSAIInline = "$sai-inline"
	sourceSAIFile   = "$sai-file"
	sourceUnknown   = "$unknown"
)

var tagFamilies = []form.Option{
	{Value: string(config.TagFamily36h11), Label: "36h11"},
	{Value: string(config.TagFamily25h9), Label: "25h9"},
	{Value: string(config.TagFamily16h5), Label: "16h5"},
	{Value: string(config.TagFamilyCircle), Label: "Circle 21h7"},
}

// Dimensions of the 2024 field, used to seed a new inline WPILib layout.
const (
	defaultFieldLength = 16.541
	defaultFieldWidth  = 8.211
	defaultTagSize     = 0.1651
)

// FieldSource returns the selector value describing the current field.
func FieldSource(value config.Ref[config.AprilTagField]) string {
	return config.Match(value,
		func(name string) string { return name },
		func(f config.AprilTagField) string {
			switch f.Layout.(type) {
			case config.WPIInlineField:
				return sourceWPIInline
			case config.WPIFileField:
				return sourceWPIFile
			case config.SAIInlineField:
				return sourceSAIInline
			case config.SAIFileField:
				return sourceSAIFile
			default:
				return sourceUnknown
			}
		},
	)
}

// SwitchFieldSource converts value to the shape named by source. Choosing the
// current source returns value unchanged; otherwise only what the new shape
// can hold is carried over.
func SwitchFieldSource(value config.Ref[config.AprilTagField], source string) (config.Ref[config.AprilTagField], error) {
	if source == FieldSource(value) {
		return value, nil
	}

	family, size := config.TagFamily36h11, defaultTagSize
	if field, ok := value.InlineValue(); ok {
		switch l := field.Layout.(type) {
		case config.WPIInlineField:
			family, size = l.TagFamily, l.TagSize
		case config.WPIFileField:
			family, size = l.TagFamily, l.TagSize
		}
	}

	inline := func(l config.FieldLayout) config.Ref[config.AprilTagField] {
		return config.Inline(config.AprilTagField{Layout: l})
	}

	switch source {
	case sourceWPIInline:
		return inline(config.WPIInlineField{
			TagFamily: family,
			TagSize:   size,
			Field:     config.FieldDimensions{Length: defaultFieldLength, Width: defaultFieldWidth},
			Tags:      []config.WPITag{},
		}), nil
	case sourceWPIFile:
		return inline(config.WPIFileField{TagFamily: family, TagSize: size}), nil
	case sourceSAIInline:
		return inline(config.SAIInlineField{Tags: []config.SAITag{}}), nil
	case sourceSAIFile:
		return inline(config.SAIFileField{}), nil
	}

	if config.IsFieldPreset(source) {
		return config.Reference[config.AprilTagField](source), nil
	}

	return value, fmt.Errorf("%w: unknown field source %q", binding.ErrInvalidInput, source)
}

func fieldSourceOptions(current string) []form.Option {
	opts := make([]form.Option, 0, 8)
	for _, p := range config.FieldPresets() {
		opts = append(opts, form.Option{Value: p, Label: p})
	}
	opts = append(opts,
		form.Option{Value: sourceWPIInline, Label: "WPILib layout (inline)"},
		form.Option{Value: sourceWPIFile, Label: "WPILib layout (file)"},
		form.Option{Value: sourceSAIInline, Label: "Spectacular AI layout (inline)"},
		form.Option{Value: sourceSAIFile, Label: "Spectacular AI layout (file)"},
	)
	if current == sourceUnknown {
		opts = append(opts, form.Option{Value: sourceUnknown, Label: "Unknown format", Disabled: true})
	} else if !hasOptionValue(opts, current) {
		opts = append(opts, form.Option{Value: current, Label: current + " (unknown preset)", Disabled: true})
	}

	return opts
}

func hasOptionValue(opts []form.Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}

	return false
}

// RenderFieldSelector edits the AprilTag field of a detection stage: a
// built-in preset or one of the inline or file layouts.
func RenderFieldSelector(b *form.Builder, value config.Ref[config.AprilTagField], onChange func(config.Ref[config.AprilTagField])) form.Node {
	current := FieldSource(value)

	var onSource form.Handler
	if onChange != nil {
		onSource = func(c form.Control) error {
			source, err := binding.SelectValue(c, false)
			if err == nil {
				var next config.Ref[config.AprilTagField]
				if next, err = SwitchFieldSource(value, *source); err == nil {
					onChange(next)

					return nil
				}
			}
			if errors.Is(err, binding.ErrInvalidInput) {
				return nil
			}

			return err
		}
	}

	children := []form.Node{
		b.Field("source", form.Field{
			Kind:    form.KindSelect,
			Label:   "Field",
			Value:   current,
			Options: fieldSourceOptions(current),
		}, onSource, form.Required()),
	}

	field, inline := value.InlineValue()
	if !inline {
		if !config.IsFieldPreset(current) {
			children = append(children, form.Placeholder(fmt.Sprintf("Unknown field preset %s", current)))
		}

		return form.Group("AprilTag field", children...)
	}

	var onLayout func(config.FieldLayout)
	if onChange != nil {
		onLayout = func(l config.FieldLayout) { onChange(config.Inline(config.AprilTagField{Layout: l})) }
	}

	lb := b.Scope("layout")
	switch l := field.Layout.(type) {
	case config.WPIInlineField:
		children = append(children, renderWPIInline(lb, l, typedLayout[config.WPIInlineField](onLayout))...)
	case config.WPIFileField:
		f := binding.UseFacade(lb, l, typedLayout[config.WPIFileField](onLayout))
		children = append(children,
			f.Text(lb, "path", "Layout file", form.Required()),
			f.Select(lb, "tagFamily", "Tag family", tagFamilies),
			f.Number(lb, "tagSize", "Tag size (m)", form.Min(0)),
		)
	case config.SAIInlineField:
		children = append(children, renderSAIInline(lb, l, typedLayout[config.SAIInlineField](onLayout))...)
	case config.SAIFileField:
		f := binding.UseFacade(lb, l, typedLayout[config.SAIFileField](onLayout))
		children = append(children, f.Text(lb, "path", "Layout file", form.Required()))
	case config.UnknownFieldLayout:
		children = append(children, form.Placeholder(fmt.Sprintf("Unknown AprilTag field format %s", l.FormatName)))
	default:
		children = append(children, form.Placeholder("Missing AprilTag field layout"))
	}

	return form.Group("AprilTag field", children...)
}

func typedLayout[L config.FieldLayout](onLayout func(config.FieldLayout)) func(L) {
	if onLayout == nil {
		return nil
	}

	return func(l L) { onLayout(l) }
}

func renderWPIInline(b *form.Builder, l config.WPIInlineField, onChange func(config.WPIInlineField)) []form.Node {
	f := binding.UseFacade(b, l, onChange)

	fb := b.Scope("field")
	dims := binding.UseFacade(fb, l.Field,
		binding.ReplaceKey[config.WPIInlineField, config.FieldDimensions]("field", l, onChange))

	onTags := binding.Updater(l.Tags, binding.ReplaceKey[config.WPIInlineField, []config.WPITag]("tags", l, onChange))

	items := make([]form.Node, 0, len(l.Tags))
	for i, tag := range l.Tags {
		tb := b.Scopef("tags.%d", i)
		onTag := binding.Setter(binding.UpdateIndex(i, onTags))
		t := binding.UseFacade(tb, tag, onTag)

		var onPose func(config.Transform3d)
		if onTag != nil {
			onPose = binding.ReplaceKey[config.WPITag, config.Transform3d]("pose", tag, onTag)
		}

		var del form.ActionHandler
		if onTags != nil {
			del = func(string) error {
				onTags(binding.Apply(func(tags []config.WPITag) []config.WPITag { return DeleteAt(tags, i) }))
				return nil
			}
		}

		items = append(items, form.Item(tb.Prefix(), fmt.Sprintf("Tag %d", tag.ID),
			t.Number(tb, "ID", "ID", form.Min(0), form.Required()),
			RenderTransform(tb.Scope("pose"), tag.Pose, onPose),
			tb.Action("delete", "Delete", del),
		))
	}

	var add form.ActionHandler
	if onTags != nil {
		add = func(string) error {
			onTags(binding.Apply(func(tags []config.WPITag) []config.WPITag {
				return Append(tags, config.WPITag{ID: nextWPITagID(tags), Pose: config.IdentityTransform()})
			}))
			return nil
		}
	}

	return []form.Node{
		f.Select(b, "tagFamily", "Tag family", tagFamilies),
		f.Number(b, "tagSize", "Tag size (m)", form.Min(0)),
		form.Group("Field size",
			dims.Number(fb, "length", "Length (m)", form.Min(0)),
			dims.Number(fb, "width", "Width (m)", form.Min(0)),
		),
		form.List(b.ID("tags"), "Tags", items...),
		b.Action("tags.add", "Add tag", add),
	}
}

func nextWPITagID(tags []config.WPITag) int {
	next := 1
	for _, t := range tags {
		if t.ID >= next {
			next = t.ID + 1
		}
	}

	return next
}

func renderSAIInline(b *form.Builder, l config.SAIInlineField, onChange func(config.SAIInlineField)) []form.Node {
	onTags := binding.Updater(l.Tags, binding.ReplaceKey[config.SAIInlineField, []config.SAITag]("tags", l, onChange))

	items := make([]form.Node, 0, len(l.Tags))
	for i, tag := range l.Tags {
		tb := b.Scopef("tags.%d", i)
		onTag := binding.Setter(binding.UpdateIndex(i, onTags))
		t := binding.UseFacade(tb, tag, onTag)

		onRows := binding.Updater(tag.TagToWorld, binding.ReplaceKey[config.SAITag, [][]float64]("tagToWorld", tag, onTag))
		rows := make([]form.Node, 0, len(tag.TagToWorld))
		for r, row := range tag.TagToWorld {
			rb := tb.Scopef("tagToWorld.%d", r)
			m := binding.UseFacade(rb, row, binding.Setter(binding.UpdateIndex(r, onRows)))
			cells := make([]form.Node, 0, len(row))
			for c := range row {
				cells = append(cells, m.Number(rb, binding.Index(c), "", form.Required()))
			}
			rows = append(rows, form.Group(fmt.Sprintf("Row %d", r+1), cells...))
		}

		var del form.ActionHandler
		if onTags != nil {
			del = func(string) error {
				onTags(binding.Apply(func(tags []config.SAITag) []config.SAITag { return DeleteAt(tags, i) }))
				return nil
			}
		}

		children := []form.Node{
			t.Number(tb, "id", "ID", form.Min(0), form.Required()),
			t.Select(tb, "family", "Family", tagFamilies),
			t.Number(tb, "size", "Size (m)", form.Min(0)),
			form.Group("Tag to world", rows...),
			tb.Action("delete", "Delete", del),
		}
		items = append(items, form.Item(tb.Prefix(), fmt.Sprintf("Tag %d", tag.ID), children...))
	}

	var add form.ActionHandler
	if onTags != nil {
		add = func(string) error {
			onTags(binding.Apply(func(tags []config.SAITag) []config.SAITag {
				next := 0
				for _, t := range tags {
					if t.ID >= next {
						next = t.ID + 1
					}
				}

				return Append(tags, config.SAITag{
					ID:         next,
					Family:     config.TagFamily36h11,
					Size:       defaultTagSize,
					TagToWorld: config.DefaultTagToWorld(),
				})
			}))
			return nil
		}
	}

	return []form.Node{
		form.List(b.ID("tags"), "Tags", items...),
		b.Action("tags.add", "Add tag", add),
	}
}
