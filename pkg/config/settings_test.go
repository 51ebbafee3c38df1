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
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/constants"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/service/filesystem"
)

var _ = Describe("Settings", func() {
	var (
		ctx context.Context
		fs  *filesystem.MockFileSystem
		log *zap.SugaredLogger
	)

	BeforeEach(func() {
		ctx = context.Background()
		fs = filesystem.NewMockFileSystem()
		log = zap.NewNop().Sugar()
	})

	It("uses defaults without a settings file", func() {
		s, err := config.LoadSettingsWithEnvOverrides(ctx, fs, "/etc/oak/settings.yaml", log)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(config.DefaultSettings()))
	})

	It("layers the file over the defaults", func() {
		Expect(fs.WriteFile(ctx, "/s.yaml", []byte("listenAddr: \":9999\"\nsessionTTL: 5m\nallowedOrigins: [\"http://a\"]\n"), 0o644)).To(Succeed())

		s, err := config.LoadSettingsWithEnvOverrides(ctx, fs, "/s.yaml", log)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.ListenAddr).To(Equal(":9999"))
		Expect(s.SessionTTL).To(Equal(5 * time.Minute))
		Expect(s.AllowedOrigins).To(Equal([]string{"http://a"}))
		Expect(s.ConfigPath).To(Equal(constants.DefaultConfigPath))
	})

	It("lets the environment win", func() {
		Expect(fs.WriteFile(ctx, "/s.yaml", []byte("deviceURL: http://file\n"), 0o644)).To(Succeed())
		GinkgoT().Setenv("DEVICE_URL", "http://env")
		GinkgoT().Setenv("SESSION_TTL", "90s")
		GinkgoT().Setenv("ALLOWED_ORIGINS", "http://oak.local,http://10.0.0.2")

		s, err := config.LoadSettingsWithEnvOverrides(ctx, fs, "/s.yaml", log)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.DeviceURL).To(Equal("http://env"))
		Expect(s.SessionTTL).To(Equal(90 * time.Second))
		Expect(s.AllowedOrigins).To(Equal([]string{"http://oak.local", "http://10.0.0.2"}))
	})

	It("rejects malformed yaml", func() {
		Expect(fs.WriteFile(ctx, "/s.yaml", []byte("listenAddr: [\n"), 0o644)).To(Succeed())

		_, err := config.LoadSettingsWithEnvOverrides(ctx, fs, "/s.yaml", log)
		Expect(err).To(HaveOccurred())
	})

	It("clones deeply", func() {
		s := config.DefaultSettings()
		s.AllowedOrigins = []string{"a"}
		c := s.Clone()
		c.AllowedOrigins[0] = "b"
		Expect(s.AllowedOrigins[0]).To(Equal("a"))
	})
})
