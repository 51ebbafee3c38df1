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

package sentry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/constants"
)

var _ = Describe("Reporting", func() {
	BeforeEach(func() {
		setDebounce(true)
		DeferCleanup(setDebounce, true)
	})

	DescribeTable("environments",
		func(version, want string, valid bool) {
			env, err := environmentFor(version)
			Expect(env).To(Equal(want))
			Expect(err == nil).To(Equal(valid))
		},
		Entry("release", "1.4.0", constants.DefaultProductionEnvironment, true),
		Entry("prerelease", "1.4.0-rc.1", constants.DefaultDevelopmentEnvironment, true),
		Entry("garbage", "main", constants.DefaultDevelopmentEnvironment, false),
	)

	It("titles issues by their first phrase", func() {
		Expect(issueTitle(errors.New("failed to load config: i/o timeout"))).To(Equal("failed to load config"))
		Expect(issueTitle(errors.New(strings.Repeat("x", 150)))).To(HaveLen(100))
	})

	It("debounces repeats of one issue but not other issues", func() {
		now := time.Now()
		save := issueKey{IssueTypeError, "failed to save config"}
		fetch := issueKey{IssueTypeError, "failed to fetch cameras"}

		Expect(debounced(save, now)).To(BeFalse())
		Expect(debounced(save, now.Add(time.Minute))).To(BeTrue())
		Expect(debounced(fetch, now.Add(time.Minute))).To(BeFalse())
		Expect(debounced(save, now.Add(debounceWindow+time.Second))).To(BeFalse())
	})

	It("forwards everything when debouncing is off", func() {
		setDebounce(false)
		key := issueKey{IssueTypeWarning, "x"}

		Expect(debounced(key, time.Now())).To(BeFalse())
		Expect(debounced(key, time.Now())).To(BeFalse())
	})

	It("turns context into tags and extras", func() {
		err := fmt.Errorf("save: %w", errors.New("device unreachable"))
		ev := newEvent(sentry.LevelError, err, map[string]interface{}{
			"session_id": "s1",
			"operation":  "save",
			"warnings":   []string{"duplicate_id"},
		})

		Expect(ev.Level).To(Equal(sentry.LevelError))
		Expect(ev.Tags).To(HaveKeyWithValue("session_id", "s1"))
		Expect(ev.Extra).To(HaveKey("warnings"))
		Expect(ev.Fingerprint).To(ContainElement("operation: save"))
		Expect(ev.Exception[0].Type).To(Equal("save"))
	})

	It("only logs editor errors without a client", func() {
		Expect(func() {
			ReportEditorError(nil, "s1", "field", errors.New("handler failed"))
		}).NotTo(Panic())
	})
})
