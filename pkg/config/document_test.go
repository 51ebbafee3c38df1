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

package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
)

const sampleDocument = `{
  "allow_overwrite": true,
  "nt": {"enabled": true, "team": 1234, "client_id": "oak", "protocol": "nt4", "publish_cameras": false},
  "log": {"level": "info"},
  "datalog": {"enabled": false},
  "estimator": {"pose_history": 1, "single_tag_strategy": "lowest_ambiguity", "multi_tag": true},
  "web": {"enabled": true, "port": 8000},
  "camera_selectors": [
    {"id": "front", "mxid": "1844301011B546F500", "ordinal": 1}
  ],
  "pipelines": [
    {"id": "base", "stages": [{"stage": "mono", "target": "left"}, {"stage": "apriltag", "apriltags": "2024Crescendo", "quadDecimate": 2, "quadSigma": 0, "refineEdges": true, "numIterations": 1, "hammingDist": 0, "decisionMargin": 35}]},
    {"id": "full", "stages": [{"stage": "inherit", "id": "base"}, {"stage": "holo", "power": 9001}]}
  ],
  "cameras": [
    {"id": "front", "selector": "front", "pipeline": "full"},
    {"selector": {"ordinal": 2}, "pipeline": [{"stage": "inherit", "id": "base"}, {"stage": "rgb"}]}
  ]
}`

var _ = Describe("Document", func() {
	var cfg config.LocalConfig

	BeforeEach(func() {
		var err error
		cfg, err = config.Parse([]byte(sampleDocument))
		Expect(err).NotTo(HaveOccurred())
	})

	It("decodes references and inline values", func() {
		Expect(cfg.Cameras[0].Selector.IsRef()).To(BeTrue())
		name, _ := cfg.Cameras[0].Pipeline.RefName()
		Expect(name).To(Equal("full"))

		sel, ok := cfg.Cameras[1].Selector.InlineValue()
		Expect(ok).To(BeTrue())
		Expect(*sel.Ordinal).To(Equal(2))

		stages, ok := cfg.Cameras[1].Pipeline.InlineValue()
		Expect(ok).To(BeTrue())
		Expect(stages).To(HaveLen(2))
		Expect(stages[0]).To(Equal(config.InheritStage{ID: "base"}))
	})

	It("decodes tagged stages", func() {
		base := cfg.Pipelines[0].Stages
		Expect(base[0]).To(Equal(config.MonoStage{Target: config.TargetLeft}))

		tag, ok := base[1].(config.ApriltagStage)
		Expect(ok).To(BeTrue())
		preset, _ := tag.Apriltags.RefName()
		Expect(preset).To(Equal(config.FieldPreset2024Crescendo))
		Expect(tag.DecisionMargin).To(Equal(35.0))
	})

	It("keeps unknown stages verbatim", func() {
		unknown, ok := cfg.Pipelines[1].Stages[1].(config.UnknownStage)
		Expect(ok).To(BeTrue())
		Expect(unknown.Kind()).To(Equal(config.StageKind("holo")))

		data, err := config.Encode(cfg)
		Expect(err).NotTo(HaveOccurred())
		again, err := config.Parse(data)
		Expect(err).NotTo(HaveOccurred())

		raw, err := config.MarshalStage(again.Pipelines[1].Stages[1])
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(MatchJSON(`{"stage": "holo", "power": 9001}`))
	})

	It("survives an encode round trip", func() {
		data, err := config.Encode(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(MatchJSON(sampleDocument))
	})

	It("writes the stage tag first", func() {
		raw, err := config.MarshalStage(config.SaveStage{Target: config.TargetRgb, Path: "/tmp/x"})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(HavePrefix(`{"stage":"save",`))
	})

	It("normalises missing lists", func() {
		empty, err := config.Parse([]byte(`{}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(empty.Pipelines).NotTo(BeNil())
		Expect(empty.Cameras).NotTo(BeNil())
		Expect(empty.CameraSelectors).NotTo(BeNil())
	})

	It("rejects malformed documents", func() {
		_, err := config.Parse([]byte(`{"pipelines": 3}`))
		Expect(err).To(HaveOccurred())
	})

	It("clones without sharing memory", func() {
		clone, err := cfg.Clone()
		Expect(err).NotTo(HaveOccurred())

		*clone.NT.Team = 1
		Expect(*cfg.NT.Team).To(Equal(1234))
	})

	Describe("resolution", func() {
		It("resolves selector and pipeline references", func() {
			sel, ok := cfg.ResolveSelector(cfg.Cameras[0].Selector)
			Expect(ok).To(BeTrue())
			Expect(*sel.MxID).To(Equal("1844301011B546F500"))

			stages, ok := cfg.ResolvePipeline(*cfg.Cameras[0].Pipeline)
			Expect(ok).To(BeTrue())
			Expect(stages).To(HaveLen(2))
		})

		It("reports unresolved references", func() {
			_, ok := cfg.ResolveSelector(config.Reference[config.OakSelector]("missing"))
			Expect(ok).To(BeFalse())
		})

		It("resolves duplicate ids to the first template", func() {
			cfg.Pipelines = append(cfg.Pipelines, config.PipelineDefinition{ID: "base", Stages: config.StageList{}})

			stages, ok := cfg.ResolvePipeline(config.Reference[config.StageList]("base"))
			Expect(ok).To(BeTrue())
			Expect(stages).To(HaveLen(2))
		})
	})

	It("clones stage lists", func() {
		list := cfg.Pipelines[0].Stages
		clone, err := list.Clone()
		Expect(err).NotTo(HaveOccurred())
		Expect(clone).To(Equal(list))

		clone[0] = config.RgbStage{}
		Expect(list[0]).To(Equal(config.MonoStage{Target: config.TargetLeft}))
	})
})
