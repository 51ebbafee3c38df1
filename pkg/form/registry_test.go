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

package form_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
)

var _ = Describe("Registry", func() {
	var reg *form.Registry

	BeforeEach(func() {
		reg = form.NewRegistry()
	})

	Describe("ids", func() {
		It("joins scopes with dots", func() {
			b := reg.Begin()
			Expect(b.ID("x")).To(Equal("x"))
			Expect(b.Scope("config").Scopef("%d", 2).ID("id")).To(Equal("config.2.id"))
			Expect(b.Scope("config").ID("")).To(Equal("config"))
		})
	})

	Describe("Dispatch", func() {
		It("routes to the handler of the last render", func() {
			var seen []string
			for _, tag := range []string{"first", "second"} {
				b := reg.Begin()
				b.Field("name", form.Field{Kind: form.KindText}, func(c form.Control) error {
					seen = append(seen, tag+":"+c.Value)
					return nil
				})
				reg.End()
			}

			Expect(reg.Dispatch("name", form.Event{Value: "v"})).To(Succeed())
			Expect(seen).To(Equal([]string{"second:v"}))
		})

		It("rejects controls that were not rendered", func() {
			b := reg.Begin()
			b.Field("name", form.Field{Kind: form.KindText}, func(form.Control) error { return nil })
			reg.End()
			reg.Begin()
			reg.End()

			Expect(reg.Dispatch("name", form.Event{})).To(MatchError(form.ErrUnknownControl))
		})

		It("rejects disabled controls", func() {
			called := false
			b := reg.Begin()
			n := b.Field("a", form.Field{Kind: form.KindText}, nil)
			b.Field("b", form.Field{Kind: form.KindText}, func(form.Control) error {
				called = true
				return nil
			}, form.ReadOnly())
			reg.End()

			Expect(n.Field.Disabled).To(BeTrue())
			Expect(reg.Dispatch("a", form.Event{})).To(MatchError(form.ErrReadOnly))
			Expect(reg.Dispatch("b", form.Event{})).To(MatchError(form.ErrReadOnly))
			Expect(called).To(BeFalse())
		})

		It("passes handler errors through", func() {
			boom := errors.New("boom")
			b := reg.Begin()
			b.Field("a", form.Field{Kind: form.KindText}, func(form.Control) error { return boom })
			reg.End()

			Expect(reg.Dispatch("a", form.Event{})).To(MatchError(boom))
		})

		It("keeps reported messages on the next render", func() {
			b := reg.Begin()
			b.Field("a", form.Field{Kind: form.KindNumber}, func(c form.Control) error {
				c.ReportValidity()
				return nil
			}, form.Min(0))
			reg.End()

			Expect(reg.Dispatch("a", form.Event{Value: "-3"})).To(Succeed())
			Expect(reg.Messages()).To(HaveKeyWithValue("a", "Value must be greater than or equal to 0."))

			b = reg.Begin()
			n := b.Field("a", form.Field{Kind: form.KindNumber}, func(form.Control) error { return nil }, form.Min(0))
			reg.End()
			Expect(n.Field.Message).To(Equal("Value must be greater than or equal to 0."))
		})

		It("forgets messages of controls that disappear", func() {
			b := reg.Begin()
			b.Field("a", form.Field{Kind: form.KindText}, func(c form.Control) error {
				c.Report("bad")
				return nil
			})
			reg.End()
			Expect(reg.Dispatch("a", form.Event{})).To(Succeed())
			Expect(reg.Message("a")).To(Equal("bad"))

			reg.Begin()
			reg.End()
			Expect(reg.Messages()).To(BeEmpty())
		})
	})

	Describe("Invoke", func() {
		var got []string

		render := func(options ...form.Option) form.Node {
			b := reg.Begin()
			defer reg.End()

			return b.Action("add", "Add", func(v string) error {
				got = append(got, v)
				return nil
			}, options...)
		}

		BeforeEach(func() {
			got = nil
		})

		It("runs plain actions", func() {
			render()
			Expect(reg.Invoke("add", "")).To(Succeed())
			Expect(got).To(Equal([]string{""}))
		})

		It("only accepts enabled menu values", func() {
			render(form.Option{Value: "a"}, form.Option{Value: "b", Disabled: true})

			Expect(reg.Invoke("add", "a")).To(Succeed())
			Expect(reg.Invoke("add", "b")).To(MatchError(form.ErrReadOnly))
			Expect(reg.Invoke("add", "c")).To(MatchError(form.ErrReadOnly))
			Expect(got).To(Equal([]string{"a"}))
		})

		It("disables an action whose options are all disabled", func() {
			n := render(form.Option{Value: "a", Disabled: true})

			Expect(n.Action.Disabled).To(BeTrue())
			Expect(reg.Invoke("add", "a")).To(MatchError(form.ErrReadOnly))
		})

		It("rejects unknown actions", func() {
			render()
			Expect(reg.Invoke("remove", "")).To(MatchError(form.ErrUnknownControl))
		})
	})

	Describe("Memo", func() {
		It("keeps values used by every render", func() {
			created := 0
			create := func() *int {
				created++
				v := created
				return &v
			}

			b := reg.Begin()
			first := form.Memo(b.Scope("x"), "state", create)
			reg.End()

			b = reg.Begin()
			second := form.Memo(b.Scope("x"), "state", create)
			reg.End()

			Expect(second).To(BeIdenticalTo(first))
			Expect(created).To(Equal(1))
		})

		It("drops values a render skipped", func() {
			created := 0
			create := func() *int {
				created++
				return new(int)
			}

			b := reg.Begin()
			form.Memo(b, "state", create)
			reg.End()
			reg.Begin()
			reg.End()
			b = reg.Begin()
			form.Memo(b, "state", create)
			reg.End()

			Expect(created).To(Equal(2))
		})

		It("recreates values stored with another type", func() {
			b := reg.Begin()
			form.Memo(b, "state", func() string { return "s" })
			Expect(form.Memo(b, "state", func() int { return 4 })).To(Equal(4))
			reg.End()
		})
	})
})
