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

package api

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/configstore"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/editor"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/service/filesystem"
)

var _ = Describe("sessionTable", func() {
	var (
		table *sessionTable
		deps  editor.Deps
		ttl   time.Duration
		cull  time.Duration
	)

	BeforeEach(func() {
		ttl = 100 * time.Millisecond
		cull = 50 * time.Millisecond
		table = newSessionTable(ttl, cull)

		store := configstore.NewStore("/data/config.json", "/run/oak/cameras.json").
			WithFileSystemService(filesystem.NewMockFileSystem())
		deps = editor.Deps{Source: configstore.Local{Store: store}, TTL: time.Minute}
		DeferCleanup(table.closeAll)
	})

	It("hands out sessions by id", func() {
		s := table.create(context.Background(), deps)
		Expect(s.ID).NotTo(BeEmpty())
		Expect(table.count()).To(Equal(1))

		got, ok := table.get(s.ID)
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(s))

		_, ok = table.get("missing")
		Expect(ok).To(BeFalse())
	})

	It("closes removed sessions", func() {
		s := table.create(context.Background(), deps)

		Expect(table.remove(s.ID)).To(BeTrue())
		Expect(table.remove(s.ID)).To(BeFalse())
		Expect(s.View().State()).To(Equal(editor.StateUnmounted))
		Expect(table.count()).To(BeZero())
	})

	It("sweeps sessions that were not touched for the ttl", func() {
		idle := table.create(context.Background(), deps)
		busy := table.create(context.Background(), deps)

		deadline := time.Now().Add(ttl + cull + 50*time.Millisecond)
		for time.Now().Before(deadline) {
			_, ok := table.get(busy.ID)
			Expect(ok).To(BeTrue())
			time.Sleep(ttl / 4)
		}

		Expect(table.sweep()).To(Equal(1))
		Expect(idle.View().State()).To(Equal(editor.StateUnmounted))
		Expect(busy.View().State()).NotTo(Equal(editor.StateUnmounted))
		Expect(table.count()).To(Equal(1))
	})

	It("reports an expired session as missing on lookup", func() {
		s := table.create(context.Background(), deps)
		time.Sleep(ttl + cull + 50*time.Millisecond)

		_, ok := table.get(s.ID)
		Expect(ok).To(BeFalse())
		Expect(s.View().State()).To(Equal(editor.StateUnmounted))
	})

	It("closes everything on shutdown", func() {
		a := table.create(context.Background(), deps)
		b := table.create(context.Background(), deps)

		table.closeAll()
		Expect(table.count()).To(BeZero())
		Expect(a.View().State()).To(Equal(editor.StateUnmounted))
		Expect(b.View().State()).To(Equal(editor.StateUnmounted))
	})
})
