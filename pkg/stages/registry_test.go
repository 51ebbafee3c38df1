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

func optionFor(opts []form.Option, kind config.StageKind) form.Option {
	for _, o := range opts {
		if o.Value == string(kind) {
			return o
		}
	}
	Fail("no option for " + string(kind))

	return form.Option{}
}

var _ = Describe("Registry", func() {
	reg := stages.Default

	It("covers every stage kind in menu order", func() {
		Expect(reg.Kinds()).To(Equal(config.StageKinds()))
		for _, kind := range config.StageKinds() {
			s, err := reg.MakeDefault(kind, config.Default(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Kind()).To(Equal(kind))
		}
	})

	It("rejects incomplete registries", func() {
		_, err := stages.NewRegistry()
		Expect(err).To(MatchError(ContainSubstring("has no registry entry")))

		entry, _ := reg.Lookup(config.StageMono)
		_, err = stages.NewRegistry(entry, entry)
		Expect(err).To(MatchError(ContainSubstring("registered twice")))

		entry.Render = nil
		_, err = stages.NewRegistry(entry)
		Expect(err).To(MatchError(ContainSubstring("missing a renderer")))
	})

	It("rejects defaults of the wrong kind", func() {
		entry, _ := reg.Lookup(config.StageMono)
		entry.MakeDefault = func(config.LocalConfig, config.StageList) config.Stage { return config.RgbStage{} }

		_, err := stages.NewRegistry(entry)
		Expect(err).To(MatchError(ContainSubstring("has kind")))
	})

	It("labels unknown kinds with their tag", func() {
		Expect(reg.Label(config.StageMono)).To(Equal("Mono camera"))
		Expect(reg.Label("bogus")).To(Equal("bogus"))
	})

	Describe("exclusive targets", func() {
		It("hands out mono targets left then right, then runs out", func() {
			var list config.StageList
			Expect(reg.Available(config.StageMono, list)).To(BeTrue())

			first, err := reg.MakeDefault(config.StageMono, config.Default(), list)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(Equal(config.MonoStage{Target: config.TargetLeft}))
			list = stages.Append(list, first)

			second, err := reg.MakeDefault(config.StageMono, config.Default(), list)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(config.MonoStage{Target: config.TargetRight}))
			list = stages.Append(list, second)

			Expect(reg.Available(config.StageMono, list)).To(BeFalse())
			Expect(optionFor(reg.AddOptions(list), config.StageMono).Disabled).To(BeTrue())
			Expect(reg.FreeTargets(config.StageMono, list)).To(BeEmpty())
		})

		It("only counts stages of the same kind", func() {
			list := config.StageList{config.WebStage{Target: config.TargetLeft}}
			s, _ := reg.MakeDefault(config.StageMono, config.Default(), list)
			Expect(s).To(Equal(config.MonoStage{Target: config.TargetLeft}))
		})
	})

	It("allows single kinds once", func() {
		list := config.StageList{config.RgbStage{}}
		Expect(reg.Available(config.StageRgb, list)).To(BeFalse())
		Expect(reg.Available(config.StageDepth, list)).To(BeTrue())
		Expect(reg.Available(config.StageSave, config.StageList{config.SaveStage{}, config.SaveStage{}})).To(BeTrue())
	})

	It("points new inherit stages at the first template", func() {
		cfg := config.Default()
		s, _ := reg.MakeDefault(config.StageInherit, cfg, nil)
		Expect(s).To(Equal(config.InheritStage{ID: stages.UnknownPipelineID}))

		cfg.Pipelines = []config.PipelineDefinition{{ID: "base"}}
		s, _ = reg.MakeDefault(config.StageInherit, cfg, nil)
		Expect(s).To(Equal(config.InheritStage{ID: "base"}))
	})

	It("fails for unknown kinds", func() {
		_, err := reg.MakeDefault("bogus", config.Default(), nil)
		Expect(err).To(HaveOccurred())
		Expect(reg.Available("bogus", nil)).To(BeFalse())
	})

	Describe("Check", func() {
		It("flags lists that break the placement rules", func() {
			list := config.StageList{
				config.MonoStage{Target: config.TargetLeft},
				config.MonoStage{Target: config.TargetLeft},
				config.RgbStage{},
				config.RgbStage{},
				config.WebStage{Target: config.TargetLeft},
			}

			w := reg.Check("p", list)
			Expect(w).To(HaveLen(2))
			Expect(w[0].Code).To(Equal(stages.WarningSharedTarget))
			Expect(w[0].Path).To(Equal("p[1].target"))
			Expect(w[1].Code).To(Equal(stages.WarningDuplicateStage))
			Expect(w[1].Path).To(Equal("p[3]"))
		})

		It("checks templates and inline camera pipelines", func() {
			cfg := config.Default()
			cfg.Pipelines = []config.PipelineDefinition{{ID: "a", Stages: config.StageList{config.SlamStage{}, config.SlamStage{}}}}
			inline := config.Inline(config.StageList{config.TelemetryStage{}, config.TelemetryStage{}})
			cfg.Cameras = []config.CameraConfig{{Selector: config.Inline(config.OakSelector{}), Pipeline: &inline}}

			paths := []string{}
			for _, w := range reg.CheckConfig(cfg) {
				paths = append(paths, w.Path)
			}
			Expect(paths).To(Equal([]string{"pipelines[0].stages[1]", "cameras[0].pipeline[1]"}))
		})
	})
})
