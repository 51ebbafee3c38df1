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

package backoff_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/backoff"
)

var _ = Describe("Error categories", func() {
	It("tells permanent from transient errors", func() {
		perm := backoff.NewPermanentError(errors.New("bad document")) //nolint:err113 // Test needs dynamic error
		Expect(backoff.IsPermanentError(perm)).To(BeTrue())
		Expect(backoff.IsTransientError(perm)).To(BeFalse())

		temp := backoff.NewTransientError(errors.New("connection reset")) //nolint:err113 // Test needs dynamic error
		Expect(backoff.IsPermanentError(temp)).To(BeFalse())
		Expect(backoff.IsTransientError(temp)).To(BeTrue())
	})

	It("keeps the category through wrapping", func() {
		perm := backoff.NewPermanentError(errors.New("bad document")) //nolint:err113 // Test needs dynamic error
		wrapped := fmt.Errorf("failed to load config: %w", perm)
		Expect(backoff.IsPermanentError(wrapped)).To(BeTrue())
		Expect(wrapped.Error()).To(Equal("failed to load config: bad document"))
	})

	It("treats uncategorized errors as transient and nil as neither", func() {
		Expect(backoff.IsTransientError(errors.New("plain"))).To(BeTrue()) //nolint:err113 // Test needs dynamic error
		Expect(backoff.IsTransientError(nil)).To(BeFalse())
		Expect(backoff.IsPermanentError(nil)).To(BeFalse())
	})

	It("unwraps to the original error", func() {
		orig := errors.New("original") //nolint:err113 // Test needs dynamic error
		Expect(errors.Is(backoff.NewTransientError(orig), orig)).To(BeTrue())
	})
})

var _ = Describe("Retry", func() {
	It("retries transient errors until the operation succeeds", func() {
		calls := 0
		var notified []error

		v, err := backoff.Retry(context.Background(), func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("not yet") //nolint:err113 // Test needs dynamic error
			}

			return 42, nil
		}, func(err error, _ time.Duration) {
			notified = append(notified, err)
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(42))
		Expect(calls).To(Equal(3))
		Expect(notified).To(HaveLen(2))
	})

	It("stops at the first permanent error", func() {
		calls := 0
		_, err := backoff.Retry(context.Background(), func(context.Context) (string, error) {
			calls++
			return "", backoff.NewPermanentError(errors.New("404 not found")) //nolint:err113 // Test needs dynamic error
		}, nil)

		Expect(calls).To(Equal(1))
		Expect(err).To(MatchError("404 not found"))
		Expect(backoff.IsPermanentError(err)).To(BeTrue())
	})

	It("gives up when the context is done", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		_, err := backoff.Retry(ctx, func(context.Context) (int, error) {
			return 0, errors.New("unreachable") //nolint:err113 // Test needs dynamic error
		}, nil)

		Expect(err).To(HaveOccurred())
		Expect(ctx.Err()).To(HaveOccurred())
	})
})
