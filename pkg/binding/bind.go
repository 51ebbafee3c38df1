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

package binding

import (
	"errors"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/logger"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
)

// Bind returns a handler that coerces a control change and calls onChange
// with a copy of parent whose key holds the new value.
//
// Invalid input is dropped: the coercer has already reported the message at
// the control, onChange is not called and the handler returns nil. Any other
// error is returned unchanged. A nil onChange yields a nil handler, which
// renders the control read-only.
func Bind[P any](parent P, key string, onChange func(P), coerce Coercer) form.Handler {
	if onChange == nil {
		return nil
	}
	mustHaveKey[P](key)

	return func(c form.Control) error {
		value, err := coerce(c)
		if err == nil {
			var next P
			next, err = WithKey(parent, key, value)
			if err == nil {
				metrics.RecordFieldEvent(string(c.Kind), "applied")
				onChange(next)

				return nil
			}
			if errors.Is(err, ErrInvalidInput) {
				c.Report("Please enter a valid value.")
			}
		}

		if errors.Is(err, ErrInvalidInput) {
			metrics.RecordFieldEvent(string(c.Kind), "invalid")
			logger.For(logger.ComponentBinding).Debugf("dropped invalid input for %q: %v", key, err)

			return nil
		}

		return err
	}
}
