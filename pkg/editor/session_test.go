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

package editor_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/backoff"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/editor"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/service/filesystem"
)

func findField(st editor.State, id string) *form.Field {
	n, ok := form.Find(st.Form, id)
	Expect(ok).To(BeTrue(), id)
	Expect(n.Field).NotTo(BeNil(), id)

	return n.Field
}

var _ = Describe("Session", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		src     *fakeSource
		session *editor.Session
	)

	start := func(deps editor.Deps) {
		deps.Source = src
		session = editor.NewSession(ctx, "s1", deps)
		DeferCleanup(session.Close)
	}

	ready := func() {
		wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
		defer wcancel()
		Expect(session.View().WaitReady(wctx)).To(Succeed())
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(func() { cancel() })
		src = &fakeSource{cfg: sampleConfig(), cameras: detected}
	})

	It("refuses edits while loading", func() {
		src.gate = make(chan struct{})
		DeferCleanup(func() { close(src.gate) })
		start(editor.Deps{})

		st, err := session.HandleField("config.general.allow_overwrite", form.Event{Checked: true})
		Expect(err).To(MatchError(editor.ErrNotReady))
		Expect(st.Phase).To(Equal(editor.StateLoading))

		_, ok := form.Find(st.Form, "config.general.allow_overwrite")
		Expect(ok).To(BeFalse())
	})

	Context("when loaded", func() {
		BeforeEach(func() {
			start(editor.Deps{})
			ready()
		})

		It("renders the document", func() {
			st := session.Render()
			Expect(st.Phase).To(Equal(editor.StateReady))
			Expect(findField(st, "config.pipelines.0.id").Value).To(Equal("base"))
			Expect(findField(st, "config.cameras.0.pipeline.kind").Value).To(Equal("base"))
			Expect(st.Warnings).To(BeEmpty())
		})

		It("applies field edits and bumps the revision", func() {
			st, err := session.HandleField("config.general.allow_overwrite", form.Event{Checked: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Revision).To(Equal(uint64(1)))

			cfg, _ := session.Config()
			Expect(cfg.AllowOverwrite).To(BeTrue())

			_, err = session.HandleField("config.nt.team", form.Event{Value: "1234"})
			Expect(err).NotTo(HaveOccurred())
			cfg, _ = session.Config()
			Expect(*cfg.NT.Team).To(Equal(1234))
			Expect(cfg.AllowOverwrite).To(BeTrue())
		})

		It("renames pipeline templates together with their references", func() {
			_, err := session.HandleField("config.pipelines.0.id", form.Event{Value: "renamed"})
			Expect(err).NotTo(HaveOccurred())

			cfg, _ := session.Config()
			Expect(cfg.Pipelines[0].ID).To(Equal("renamed"))
			Expect(cfg.Pipelines[1].Stages[0]).To(Equal(config.InheritStage{ID: "renamed"}))
			name, _ := cfg.Cameras[0].Pipeline.RefName()
			Expect(name).To(Equal("renamed"))

			w, err := session.Warnings()
			Expect(err).NotTo(HaveOccurred())
			Expect(w).To(BeEmpty())
		})

		It("renames selector templates together with their references", func() {
			_, err := session.HandleField("config.camera_selectors.0.id", form.Event{Value: "back"})
			Expect(err).NotTo(HaveOccurred())

			cfg, _ := session.Config()
			name, _ := cfg.Cameras[0].Selector.RefName()
			Expect(name).To(Equal("back"))
		})

		It("adds stages until the kind runs out", func() {
			for _, want := range []config.CameraTarget{config.TargetLeft, config.TargetRight} {
				_, err := session.HandleAction("config.pipelines.0.stages.add", string(config.StageMono))
				Expect(err).NotTo(HaveOccurred())

				cfg, _ := session.Config()
				stages := cfg.Pipelines[0].Stages
				Expect(stages[len(stages)-1]).To(Equal(config.MonoStage{Target: want}))
			}

			_, err := session.HandleAction("config.pipelines.0.stages.add", string(config.StageMono))
			Expect(err).To(MatchError(form.ErrReadOnly))
		})

		It("edits stages of an inline camera pipeline", func() {
			_, err := session.HandleField("config.cameras.0.pipeline.kind", form.Event{Value: editor.CustomChoice})
			Expect(err).NotTo(HaveOccurred())

			_, err = session.HandleAction("config.cameras.0.pipeline.stages.add", string(config.StageRgb))
			Expect(err).NotTo(HaveOccurred())

			cfg, _ := session.Config()
			list, ok := cfg.Cameras[0].Pipeline.InlineValue()
			Expect(ok).To(BeTrue())
			Expect(list).To(Equal(config.StageList{config.RgbStage{}}))
			Expect(cfg.Pipelines[0].Stages).To(BeEmpty())
		})

		It("adds detected cameras", func() {
			_, err := session.HandleAction("config.cameras.add", "1")
			Expect(err).NotTo(HaveOccurred())

			cfg, _ := session.Config()
			Expect(cfg.Cameras).To(HaveLen(2))
			Expect(*cfg.Cameras[1].ID).To(Equal("oak-1"))
		})

		It("keeps invalid input out of the document", func() {
			st, err := session.HandleField("config.web.port", form.Event{Value: "70000"})
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Revision).To(BeZero())
			Expect(findField(st, "config.web.port").Message).To(Equal("Value must be less than or equal to 65535."))

			cfg, _ := session.Config()
			Expect(cfg.Web.Port).To(Equal(8000))
		})

		It("rejects unknown controls", func() {
			_, err := session.HandleField("config.nope", form.Event{})
			Expect(err).To(MatchError(form.ErrUnknownControl))
		})

		It("goes read-only once closed", func() {
			session.Close()

			st := session.Render()
			Expect(st.Phase).To(Equal(editor.StateUnmounted))
			Expect(findField(st, "config.general.allow_overwrite").Disabled).To(BeTrue())

			_, err := session.HandleField("config.general.allow_overwrite", form.Event{Checked: true})
			Expect(err).To(MatchError(form.ErrReadOnly))
		})

		It("exports pretty printed JSON", func() {
			data, err := session.Export()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("\n"))

			cfg, err := config.Parse(data)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.PipelineIDs()).To(Equal([]string{"base", "full"}))
		})
	})

	Describe("Save", func() {
		It("pushes to the device", func() {
			saver := &fakeSaver{}
			start(editor.Deps{Saver: saver})
			ready()

			res, err := session.Save(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Target).To(Equal(editor.SaveTargetDevice))
			Expect(saver.saved).To(HaveLen(1))
		})

		It("falls back to the export directory", func() {
			fs := filesystem.NewMockFileSystem()
			start(editor.Deps{Saver: &fakeSaver{err: errors.New("offline")}, FS: fs, ExportDir: "/exports"})
			ready()

			res, err := session.Save(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Target).To(Equal(editor.SaveTargetExport))
			Expect(res.Path).To(HavePrefix("/exports/config-"))

			files := fs.Files()
			Expect(files).To(HaveKey(res.Path))
			Expect(files).NotTo(HaveKey(res.Path + ".tmp"))
		})

		It("hands the document back when nothing else works", func() {
			fs := filesystem.NewMockFileSystem().WithWriteFileFunc(func(context.Context, string, []byte, os.FileMode) error {
				return errors.New("disk full")
			})
			start(editor.Deps{Saver: &fakeSaver{err: errors.New("offline")}, FS: fs, ExportDir: "/exports"})
			ready()

			res, err := session.Save(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Target).To(Equal(editor.SaveTargetManual))
			Expect(res.Content).To(ContainSubstring(`"pipelines"`))
			Expect(res.Error).To(ContainSubstring("offline"))
			Expect(res.Error).To(ContainSubstring("disk full"))
		})

		It("is not available while loading", func() {
			src.gate = make(chan struct{})
			DeferCleanup(func() { close(src.gate) })
			start(editor.Deps{})

			_, err := session.Save(ctx)
			Expect(err).To(MatchError(editor.ErrNotReady))
		})
	})

	Describe("View", func() {
		It("stays loading and shows why when the config is broken", func() {
			src.configErr = backoff.NewPermanentError(errors.New("config is not valid JSON"))
			start(editor.Deps{})

			Eventually(session.View().Done()).Should(BeClosed())
			st := session.Render()
			Expect(st.Phase).To(Equal(editor.StateLoading))
			Expect(st.Errors).To(HaveKeyWithValue("config", "config is not valid JSON"))

			var texts []string
			form.Walk(st.Form, func(n form.Node) bool {
				if n.Type == form.NodeText {
					texts = append(texts, n.Text)
				}
				return true
			})
			Expect(strings.Join(texts, "\n")).To(ContainSubstring("Failed to load config"))
		})

		It("retries transient failures", func() {
			src.configErr = errors.New("connection refused")
			start(editor.Deps{})

			Eventually(src.fetchCount, 3*time.Second).Should(BeNumerically(">=", 2))
			Eventually(func() map[string]string { return session.Render().Errors }).Should(HaveKey("config"))

			src.mu.Lock()
			src.configErr = nil
			src.mu.Unlock()
			ready()
			Expect(session.Render().Errors).To(BeEmpty())
		})

		It("keeps Ready closed after unmount", func() {
			start(editor.Deps{})
			Eventually(session.View().Ready()).Should(BeClosed())

			session.Close()
			Expect(session.View().State()).To(Equal(editor.StateUnmounted))
			Expect(session.View().WasReady()).To(BeTrue())

			cfg, ok := session.Config()
			Expect(ok).To(BeTrue())
			Expect(cfg.PipelineIDs()).To(Equal([]string{"base", "full"}))
		})

		It("stops waiting when unmounted while loading", func() {
			src.gate = make(chan struct{})
			DeferCleanup(func() { close(src.gate) })
			start(editor.Deps{})

			errc := make(chan error, 1)
			go func() { errc <- session.View().WaitReady(ctx) }()
			session.Close()

			Eventually(errc).Should(Receive(MatchError("view unmounted")))
			Expect(session.View().WasReady()).To(BeFalse())
		})

		It("discards results that arrive after unmount", func() {
			src.gate = make(chan struct{})
			start(editor.Deps{})

			session.Close()
			close(src.gate)
			Eventually(session.View().Done()).Should(BeClosed())

			snap := session.View().Snapshot()
			Expect(snap.State).To(Equal(editor.StateUnmounted))
			Expect(snap.Config).To(BeNil())
		})
	})
})
