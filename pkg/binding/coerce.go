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

// Package binding connects single object fields to form controls: typed
// coercion of posted input, keyed shallow-copy updates and the memoised
// per-object field facade.
package binding

import (
	"errors"
	"math"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
)

// ErrInvalidInput means the control's value failed its constraints. The
// message has already been reported at the control; the edit is dropped.
var ErrInvalidInput = errors.New("invalid input")

// Sentinel select values standing for "no value".
const (
	NullSentinel      = "$null"
	UndefinedSentinel = "$undefined"
)

// Coercer turns a control change into a field value. A nil value is null.
type Coercer func(c form.Control) (any, error)

// CheckboxValue returns the checked state.
func CheckboxValue(c form.Control) (bool, error) {
	if !c.ReportValidity() {
		return false, ErrInvalidInput
	}

	return c.Checked, nil
}

// SelectValue returns the selected value, or nil for the null sentinels when
// nullable. A sentinel is still subject to the validity the client reported.
func SelectValue(c form.Control, nullable bool) (*string, error) {
	if nullable && (c.Value == NullSentinel || c.Value == UndefinedSentinel) {
		if c.Validity != nil && !c.Validity.Valid {
			c.ReportValidity()

			return nil, ErrInvalidInput
		}
		c.Report("")

		return nil, nil
	}
	if !c.ReportValidity() {
		return nil, ErrInvalidInput
	}
	v := c.Value

	return &v, nil
}

// NumberValue returns the numeric value, or nil for empty input when nullable.
// Empty input of a non-nullable field is invalid since Go numbers have no NaN
// for integers.
func NumberValue(c form.Control, nullable bool) (*float64, error) {
	if !c.ReportValidity() {
		return nil, ErrInvalidInput
	}
	v := c.ValueAsNumber()
	if math.IsNaN(v) {
		if nullable {
			return nil, nil
		}
		c.Report("Please enter a number.")

		return nil, ErrInvalidInput
	}

	return &v, nil
}

// TextValue returns the text, or nil for "" when nullable.
func TextValue(c form.Control, nullable bool) (*string, error) {
	if !c.ReportValidity() {
		return nil, ErrInvalidInput
	}
	if nullable && c.Value == "" {
		return nil, nil
	}
	v := c.Value

	return &v, nil
}

func AsCheckbox() Coercer {
	return func(c form.Control) (any, error) {
		return CheckboxValue(c)
	}
}

func AsSelect(nullable bool) Coercer {
	return func(c form.Control) (any, error) {
		return deref(SelectValue(c, nullable))
	}
}

func AsNumber(nullable bool) Coercer {
	return func(c form.Control) (any, error) {
		return deref(NumberValue(c, nullable))
	}
}

func AsText(nullable bool) Coercer {
	return func(c form.Control) (any, error) {
		return deref(TextValue(c, nullable))
	}
}

func deref[T any](v *T, err error) (any, error) {
	if err != nil || v == nil {
		return nil, err
	}

	return *v, nil
}
