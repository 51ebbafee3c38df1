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

package backoff

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/constants"
)

// ErrorCategory indicates how a caller should respond to a given error.
type ErrorCategory int

const (
	// CategoryTransient indicates an error that is unexpected but recoverable.
	// Fetches retry these until they succeed or the caller goes away.
	CategoryTransient ErrorCategory = iota

	// CategoryPermanent indicates an error that will not go away by retrying,
	// e.g. a malformed document or a 4xx response.
	CategoryPermanent
)

// CategorizedError is a wrapper that includes the underlying error plus a Category.
type CategorizedError struct {
	Err      error
	Category ErrorCategory
}

// Error returns the original error message.
func (ce *CategorizedError) Error() string {
	return ce.Err.Error()
}

// Unwrap returns the underlying wrapped error.
func (ce *CategorizedError) Unwrap() error {
	return ce.Err
}

// NewTransientError wraps err as CategoryTransient.
func NewTransientError(err error) error {
	return &CategorizedError{Err: err, Category: CategoryTransient}
}

// NewPermanentError wraps err as CategoryPermanent.
func NewPermanentError(err error) error {
	return &CategorizedError{Err: err, Category: CategoryPermanent}
}

// IsPermanentError is a convenience checker for CategoryPermanent.
func IsPermanentError(err error) bool {
	var ce *CategorizedError
	return errors.As(err, &ce) && ce.Category == CategoryPermanent
}

// IsTransientError reports whether err is anything but permanent. Uncategorized
// errors count as transient.
func IsTransientError(err error) bool {
	return err != nil && !IsPermanentError(err)
}

// NewFetchBackoff returns the exponential policy used for collaborator
// fetches. It never gives up on its own; only ctx stops it.
func NewFetchBackoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = constants.FetchMaxInterval
	b.MaxElapsedTime = 0

	return backoff.WithContext(b, ctx)
}

// Retry runs op until it succeeds, returns a permanent error, or ctx is done.
// notify is called after every failed attempt and may be nil.
func Retry[T any](ctx context.Context, op func(context.Context) (T, error), notify func(err error, next time.Duration)) (T, error) {
	var out T

	err := backoff.RetryNotify(func() error {
		v, err := op(ctx)
		if err != nil {
			if IsPermanentError(err) {
				return backoff.Permanent(err)
			}

			return err
		}
		out = v

		return nil
	}, NewFetchBackoff(ctx), notify)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}

	return out, err
}
