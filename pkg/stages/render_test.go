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

package stages_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/stages"
)

var _ = Describe("Render", func() {
	var (
		reg     *form.Registry
		list    config.StageList
		changed []config.Stage
		deleted int
		moved   []int
	)

	helpers := func(i int, editable bool) stages.Helpers {
		h := stages.Helpers{Config: config.Default(), Siblings: list, Index: i}
		if editable {
			h.OnChange = func(s config.Stage) { changed = append(changed, s) }
			h.OnDelete = func() { deleted++ }
			h.OnMove = func(d int) { moved = append(moved, d) }
		}

		return h
	}

	render := func(i int, editable bool) form.Node {
		b := reg.Begin()
		defer reg.End()

		return stages.Default.Render(b.Scope("s"), list[i], helpers(i, editable))
	}

	field := func(root form.Node, id string) *form.Field {
		n, ok := form.Find(root, id)
		Expect(ok).To(BeTrue(), id)
		Expect(n.Field).NotTo(BeNil(), id)

		return n.Field
	}

	action := func(root form.Node, id string) *form.Action {
		n, ok := form.Find(root, id)
		Expect(ok).To(BeTrue(), id)
		Expect(n.Action).NotTo(BeNil(), id)

		return n.Action
	}

	BeforeEach(func() {
		reg = form.NewRegistry()
		changed, deleted, moved = nil, 0, nil
		list = config.StageList{
			config.MonoStage{Target: config.TargetLeft},
			config.MonoStage{Target: config.TargetRight},
			config.UnknownStage{Tag: "bogus", Raw: []byte(`{"stage":"bogus"}`)},
		}
	})

	It("disables targets taken by another stage of the same kind", func() {
		root := render(0, true)

		opts := field(root, "s.target").Options
		Expect(opts).To(ConsistOf(
			form.Option{Value: "left", Label: "left"},
			form.Option{Value: "right", Label: "right", Disabled: true},
		))

		Expect(reg.Dispatch("s.target", form.Event{Value: "right"})).To(Succeed())
		Expect(changed).To(BeEmpty())
		Expect(reg.Message("s.target")).NotTo(BeEmpty())
	})

	It("shows a missing enabled flag as enabled and stores edits", func() {
		root := render(0, true)
		Expect(field(root, "s.enabled").Value).To(Equal(true))

		Expect(reg.Dispatch("s.enabled", form.Event{Checked: false})).To(Succeed())
		Expect(changed).To(HaveLen(1))
		mono := changed[0].(config.MonoStage)
		Expect(mono.IsEnabled()).To(BeFalse())
		Expect(mono.Target).To(Equal(config.TargetLeft))
	})

	It("renders unknown stages as a removable placeholder", func() {
		root := render(2, true)

		var texts []string
		form.Walk(root, func(n form.Node) bool {
			if n.Type == form.NodePlaceholder {
				texts = append(texts, n.Text)
			}
			return true
		})
		Expect(texts).To(Equal([]string{"Unknown stage bogus"}))

		Expect(reg.Invoke("s.delete", "")).To(Succeed())
		Expect(deleted).To(Equal(1))
		Expect(reg.Invoke("s.up", "")).To(Succeed())
		Expect(moved).To(Equal([]int{-1}))
		Expect(action(root, "s.down").Disabled).To(BeTrue())
	})

	It("renders read-only without callbacks", func() {
		root := render(0, false)

		Expect(field(root, "s.target").Disabled).To(BeTrue())
		Expect(action(root, "s.delete").Disabled).To(BeTrue())
		_, hasMove := form.Find(root, "s.up")
		Expect(hasMove).To(BeFalse())
	})

	It("marks inherit targets that do not exist", func() {
		list = config.StageList{config.InheritStage{ID: "gone"}}
		root := render(0, true)

		opts := field(root, "s.id").Options
		Expect(opts).To(ContainElement(form.Option{Value: "gone", Label: "gone (missing)", Disabled: true}))
	})
})

var _ = Describe("AprilTag field", func() {
	preset := config.Reference[config.AprilTagField](config.FieldPreset2024Crescendo)

	It("switches between presets and layouts", func() {
		next, err := stages.SwitchFieldSource(preset, "$wpi-file")
		Expect(err).NotTo(HaveOccurred())
		field, ok := next.InlineValue()
		Expect(ok).To(BeTrue())
		Expect(field.Layout).To(Equal(config.WPIFileField{TagFamily: config.TagFamily36h11, TagSize: 0.1651}))
		Expect(stages.FieldSource(next)).To(Equal("$wpi-file"))

		back, err := stages.SwitchFieldSource(next, config.FieldPreset2023ChargedUp)
		Expect(err).NotTo(HaveOccurred())
		name, _ := back.RefName()
		Expect(name).To(Equal(config.FieldPreset2023ChargedUp))
	})

	It("carries the tag family between WPILib shapes", func() {
		file := config.Inline(config.AprilTagField{Layout: config.WPIFileField{Path: "/f.json", TagFamily: config.TagFamily16h5, TagSize: 0.2}})

		next, err := stages.SwitchFieldSource(file, "$wpi-inline")
		Expect(err).NotTo(HaveOccurred())
		field, _ := next.InlineValue()
		inline := field.Layout.(config.WPIInlineField)
		Expect(inline.TagFamily).To(Equal(config.TagFamily16h5))
		Expect(inline.TagSize).To(Equal(0.2))
		Expect(inline.Tags).To(BeEmpty())
	})

	It("keeps the value when the source is unchanged", func() {
		next, err := stages.SwitchFieldSource(preset, config.FieldPreset2024Crescendo)
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal(preset))
	})

	It("rejects unknown sources", func() {
		_, err := stages.SwitchFieldSource(preset, "1999Mystery")
		Expect(err).To(HaveOccurred())
	})

	It("adds tags to an inline layout", func() {
		reg := form.NewRegistry()
		value := config.Inline(config.AprilTagField{Layout: config.SAIInlineField{Tags: []config.SAITag{}}})
		var got config.Ref[config.AprilTagField]

		b := reg.Begin()
		stages.RenderFieldSelector(b.Scope("f"), value, func(v config.Ref[config.AprilTagField]) { got = v })
		reg.End()

		Expect(reg.Invoke("f.layout.tags.add", "")).To(Succeed())
		field, ok := got.InlineValue()
		Expect(ok).To(BeTrue())
		tags := field.Layout.(config.SAIInlineField).Tags
		Expect(tags).To(HaveLen(1))
		Expect(tags[0].TagToWorld).To(Equal(config.DefaultTagToWorld()))
	})
})
