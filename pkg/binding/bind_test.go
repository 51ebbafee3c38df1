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

package binding_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/binding"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
)

var _ = Describe("Bind", func() {
	var (
		parent   sample
		got      *sample
		calls    int
		onChange func(sample)
		messages []string
	)

	BeforeEach(func() {
		parent = sample{Name: "cam", Count: 3, Ratio: ptr(0.5), Note: ptr("x"), Mode: ptr(mode("a"))}
		got, calls, messages = nil, 0, nil
		onChange = func(s sample) {
			got = &s
			calls++
		}
	})

	Describe("nullable round trip", func() {
		It("stores null for an empty number and reads it back as nil", func() {
			h := binding.Bind(parent, "ratio", onChange, binding.AsNumber(true))
			Expect(h(control(form.KindNumber, "", &messages))).To(Succeed())

			Expect(got.Ratio).To(BeNil())
			v, err := binding.KeyValue(*got, "ratio")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeNil())
		})

		It("stores null for empty text", func() {
			h := binding.Bind(parent, "note", onChange, binding.AsText(true))
			Expect(h(control(form.KindText, "", &messages))).To(Succeed())

			Expect(got.Note).To(BeNil())
		})

		It("stores null for the select sentinels", func() {
			opts := form.Options(form.Option{Value: "a"}, form.Option{Value: "b"})
			for _, sentinel := range []string{binding.NullSentinel, binding.UndefinedSentinel} {
				h := binding.Bind(parent, "mode", onChange, binding.AsSelect(true))
				Expect(h(control(form.KindSelect, sentinel, &messages, opts))).To(Succeed())
				Expect(got.Mode).To(BeNil())
			}
		})

		It("reads back exactly the value that was entered", func() {
			Expect(binding.Bind(parent, "ratio", onChange, binding.AsNumber(true))(
				control(form.KindNumber, "0.25", &messages, form.Step("any")))).To(Succeed())
			Expect(*got.Ratio).To(Equal(0.25))

			Expect(binding.Bind(parent, "note", onChange, binding.AsText(true))(
				control(form.KindText, "hello", &messages))).To(Succeed())
			Expect(*got.Note).To(Equal("hello"))

			Expect(binding.Bind(parent, "mode", onChange, binding.AsSelect(true))(
				control(form.KindSelect, "b", &messages, form.Options(form.Option{Value: "a"}, form.Option{Value: "b"})))).To(Succeed())
			Expect(*got.Mode).To(Equal(mode("b")))
		})

		It("converts numbers to integer fields", func() {
			Expect(binding.Bind(parent, "count", onChange, binding.AsNumber(false))(
				control(form.KindNumber, "12", &messages))).To(Succeed())
			Expect(got.Count).To(Equal(12))
		})

		It("never touches the parent", func() {
			Expect(binding.Bind(parent, "name", onChange, binding.AsText(false))(
				control(form.KindText, "new", &messages))).To(Succeed())
			Expect(parent.Name).To(Equal("cam"))
			Expect(got.Name).To(Equal("new"))
		})
	})

	Describe("invalid input", func() {
		invalid := &form.Validity{Valid: false, Message: "Constraints not satisfied"}

		DescribeTable("drops the change for every coercer",
			func(kind form.ControlKind, key string, coerce binding.Coercer) {
				c := form.NewControl(form.Field{Kind: kind}, form.Event{Value: "1", Checked: true, Validity: invalid},
					func(m string) { messages = append(messages, m) })

				Expect(binding.Bind(parent, key, onChange, coerce)(c)).To(Succeed())
				Expect(calls).To(BeZero())
				Expect(messages).To(ContainElement("Constraints not satisfied"))
			},
			Entry("checkbox", form.KindCheckbox, "enabled", binding.AsCheckbox()),
			Entry("select", form.KindSelect, "kind", binding.AsSelect(false)),
			Entry("number", form.KindNumber, "count", binding.AsNumber(false)),
			Entry("text", form.KindText, "name", binding.AsText(false)),
		)

		It("drops a null selection the client marked invalid", func() {
			c := form.NewControl(form.Field{Kind: form.KindSelect}, form.Event{Value: binding.NullSentinel, Validity: invalid},
				func(m string) { messages = append(messages, m) })

			Expect(binding.Bind(parent, "mode", onChange, binding.AsSelect(true))(c)).To(Succeed())
			Expect(calls).To(BeZero())
			Expect(messages).To(ContainElement("Constraints not satisfied"))
		})

		It("reports constraint violations of the rendered control", func() {
			h := binding.Bind(parent, "count", onChange, binding.AsNumber(false))
			Expect(h(control(form.KindNumber, "-1", &messages, form.Min(0)))).To(Succeed())

			Expect(calls).To(BeZero())
			Expect(messages).To(ContainElement("Value must be greater than or equal to 0."))
		})

		It("rejects an empty non-nullable number", func() {
			h := binding.Bind(parent, "count", onChange, binding.AsNumber(false))
			Expect(h(control(form.KindNumber, "", &messages))).To(Succeed())

			Expect(calls).To(BeZero())
			Expect(messages).To(ContainElement("Please enter a number."))
		})

		It("rejects fractions for integer fields", func() {
			h := binding.Bind(parent, "count", onChange, binding.AsNumber(false))
			Expect(h(control(form.KindNumber, "1.5", &messages, form.Step("any")))).To(Succeed())

			Expect(calls).To(BeZero())
			Expect(messages).To(ContainElement("Please enter a valid value."))
		})

		It("rejects options the select does not offer", func() {
			h := binding.Bind(parent, "kind", onChange, binding.AsSelect(false))
			Expect(h(control(form.KindSelect, "zzz", &messages, form.Options(form.Option{Value: "a"})))).To(Succeed())

			Expect(calls).To(BeZero())
			Expect(messages).To(ContainElement("Please select an item in the list."))
		})
	})

	It("returns other coercer errors", func() {
		boom := errors.New("boom")
		h := binding.Bind(parent, "name", onChange, func(form.Control) (any, error) { return nil, boom })

		Expect(h(control(form.KindText, "x", &messages))).To(MatchError(boom))
		Expect(calls).To(BeZero())
	})

	It("yields no handler without onChange", func() {
		Expect(binding.Bind(parent, "name", nil, binding.AsText(false))).To(BeNil())
	})
})
