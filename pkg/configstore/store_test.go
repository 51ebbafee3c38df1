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

package configstore_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/backoff"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/configstore"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/safejson"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/service/filesystem"
)

const (
	configPath  = "/data/config.json"
	camerasPath = "/run/oak/cameras.json"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		fs    *filesystem.MockFileSystem
		store *configstore.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		fs = filesystem.NewMockFileSystem()
		store = configstore.NewStore(configPath, camerasPath).WithFileSystemService(fs)
	})

	It("starts from the defaults without a file", func() {
		cfg, err := store.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.Default()))
	})

	It("reads back what it saved", func() {
		cfg := config.Default()
		cfg.AllowOverwrite = true
		cfg.Pipelines = []config.PipelineDefinition{{ID: "p", Stages: config.StageList{config.DepthStage{}}}}

		Expect(store.Save(ctx, cfg)).To(Succeed())
		Expect(fs.Files()).To(HaveKey(configPath))
		Expect(fs.Files()).NotTo(HaveKey(configPath + ".tmp"))

		loaded, err := store.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(cfg))
	})

	It("treats an unparsable file as permanent", func() {
		Expect(fs.WriteFile(ctx, configPath, []byte("{"), 0o644)).To(Succeed())

		_, err := store.Load(ctx)
		Expect(err).To(HaveOccurred())
		Expect(backoff.IsPermanentError(err)).To(BeTrue())
	})

	It("keeps read errors transient", func() {
		Expect(fs.WriteFile(ctx, configPath, []byte("{}"), 0o644)).To(Succeed())
		fs.WithReadFileFunc(func(context.Context, string) ([]byte, error) {
			return nil, errors.New("i/o timeout")
		})

		_, err := store.Load(ctx)
		Expect(err).To(HaveOccurred())
		Expect(backoff.IsTransientError(err)).To(BeTrue())
	})

	It("cleans up when the rename fails", func() {
		fs.WithRenameFunc(func(context.Context, string, string) error {
			return errors.New("read-only filesystem")
		})

		err := store.Save(ctx, config.Default())
		Expect(err).To(MatchError(ContainSubstring("read-only filesystem")))
		Expect(fs.Files()).To(BeEmpty())
	})

	Describe("Cameras", func() {
		It("returns no cameras without a list", func() {
			cams, err := store.Cameras(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cams).To(BeEmpty())
			Expect(cams).NotTo(BeNil())
		})

		It("parses the detected cameras", func() {
			Expect(fs.WriteFile(ctx, camerasPath, []byte(`[{"mxid":"1844301011B546F500","name":"oak-d"}]`), 0o644)).To(Succeed())

			cams, err := store.Cameras(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cams).To(Equal([]config.DetectedCamera{{MxID: "1844301011B546F500", Name: "oak-d"}}))
		})
	})

	Describe("Local", func() {
		It("serves the store as an editor source", func() {
			local := configstore.Local{Store: store}

			cfg := config.Default()
			cfg.Web.Port = 9000
			Expect(local.SaveConfig(ctx, cfg)).To(Succeed())

			loaded, err := local.FetchConfig(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Web.Port).To(Equal(9000))

			schema, err := local.FetchSchema(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(safejson.Valid(schema)).To(BeTrue())
		})
	})
})
