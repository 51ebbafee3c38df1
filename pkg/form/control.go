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

package form

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ControlKind is the kind of input a field is rendered as.
type ControlKind string

const (
	KindCheckbox ControlKind = "checkbox"
	KindSelect   ControlKind = "select"
	KindNumber   ControlKind = "number"
	KindText     ControlKind = "text"
)

// Attribute names understood by CheckValidity. Any other key is passed
// through to the client untouched.
const (
	AttrRequired    = "required"
	AttrMin         = "min"
	AttrMax         = "max"
	AttrStep        = "step"
	AttrPattern     = "pattern"
	AttrMinLength   = "minlength"
	AttrMaxLength   = "maxlength"
	AttrPlaceholder = "placeholder"
	AttrTitle       = "title"
)

// Attrs are extra control attributes. Values are string, bool, int or float64.
type Attrs map[string]any

// With returns a copy of a with key set.
func (a Attrs) With(key string, value any) Attrs {
	out := make(Attrs, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	out[key] = value

	return out
}

func (a Attrs) Bool(key string) bool {
	v, ok := a[key].(bool)
	return ok && v
}

func (a Attrs) String(key string) (string, bool) {
	switch v := a[key].(type) {
	case string:
		return v, true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

func (a Attrs) Float(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (a Attrs) Int(key string) (int, bool) {
	f, ok := a.Float(key)
	if !ok {
		return 0, false
	}

	return int(f), true
}

// Option is one entry of a select control or an action menu.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Validity is the constraint state a client observed on its own input element.
type Validity struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Event is a posted control change.
type Event struct {
	Value    string    `json:"value"`
	Checked  bool      `json:"checked"`
	Validity *Validity `json:"validity,omitempty"`
}

// Reporter shows a validation message at a control. An empty message clears it.
type Reporter func(message string)

// Control is one control change as seen by a handler: the posted input plus
// the constraints the control was rendered with.
type Control struct {
	Kind     ControlKind
	Value    string
	Checked  bool
	Attrs    Attrs
	Options  []Option
	Validity *Validity

	report Reporter
}

// NewControl combines a rendered field with a posted event.
func NewControl(f Field, ev Event, report Reporter) Control {
	return Control{
		Kind:     f.Kind,
		Value:    ev.Value,
		Checked:  ev.Checked,
		Attrs:    f.Attrs,
		Options:  f.Options,
		Validity: ev.Validity,
		report:   report,
	}
}

// ValueAsNumber parses Value. Empty or malformed input yields NaN.
func (c Control) ValueAsNumber() float64 {
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return math.NaN()
	}

	return f
}

// Report shows message at the control. An empty message clears it.
func (c Control) Report(message string) {
	if c.report != nil {
		c.report(message)
	}
}

// ReportValidity checks the control and shows the outcome through the reporter.
func (c Control) ReportValidity() bool {
	ok, message := c.CheckValidity()
	c.Report(message)

	return ok
}

// CheckValidity applies the same constraints a browser applies to the
// rendered input element.
func (c Control) CheckValidity() (bool, string) {
	if c.Validity != nil && !c.Validity.Valid {
		message := c.Validity.Message
		if message == "" {
			message = "Please enter a valid value."
		}

		return false, message
	}

	switch c.Kind {
	case KindCheckbox:
		if c.Attrs.Bool(AttrRequired) && !c.Checked {
			return false, "Please check this box if you want to proceed."
		}
	case KindSelect:
		return c.checkSelect()
	case KindNumber:
		return c.checkNumber()
	case KindText:
		return c.checkText()
	}

	return true, ""
}

func (c Control) checkSelect() (bool, string) {
	if c.Value == "" && c.Attrs.Bool(AttrRequired) {
		return false, "Please select an item in the list."
	}
	if len(c.Options) == 0 {
		return true, ""
	}
	for _, o := range c.Options {
		if o.Value == c.Value {
			if o.Disabled {
				return false, "Please select an item in the list."
			}

			return true, ""
		}
	}

	return false, "Please select an item in the list."
}

func (c Control) checkNumber() (bool, string) {
	if strings.TrimSpace(c.Value) == "" {
		if c.Attrs.Bool(AttrRequired) {
			return false, "Please fill out this field."
		}

		return true, ""
	}

	v := c.ValueAsNumber()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false, "Please enter a number."
	}

	minimum, hasMin := c.Attrs.Float(AttrMin)
	if hasMin && v < minimum {
		return false, fmt.Sprintf("Value must be greater than or equal to %s.", formatNumber(minimum))
	}
	maximum, hasMax := c.Attrs.Float(AttrMax)
	if hasMax && v > maximum {
		return false, fmt.Sprintf("Value must be less than or equal to %s.", formatNumber(maximum))
	}

	step := 1.0
	if raw, ok := c.Attrs.String(AttrStep); ok {
		if raw == "any" {
			return true, ""
		}
		if s, ok := c.Attrs.Float(AttrStep); ok && s > 0 {
			step = s
		}
	}

	base := 0.0
	if hasMin {
		base = minimum
	}
	n := (v - base) / step
	if math.Abs(n-math.Round(n)) > 1e-9 {
		lower := base + math.Floor(n)*step
		upper := lower + step
		return false, fmt.Sprintf("Please enter a valid value. The two nearest valid values are %s and %s.",
			formatNumber(lower), formatNumber(upper))
	}

	return true, ""
}

func (c Control) checkText() (bool, string) {
	if c.Value == "" {
		if c.Attrs.Bool(AttrRequired) {
			return false, "Please fill out this field."
		}

		return true, ""
	}

	length := utf8.RuneCountInString(c.Value)
	if minLength, ok := c.Attrs.Int(AttrMinLength); ok && length < minLength {
		return false, fmt.Sprintf("Please lengthen this text to %d characters or more (you are currently using %d characters).", minLength, length)
	}
	if maxLength, ok := c.Attrs.Int(AttrMaxLength); ok && length > maxLength {
		return false, fmt.Sprintf("Please shorten this text to %d characters or less (you are currently using %d characters).", maxLength, length)
	}

	if pattern, ok := c.Attrs.String(AttrPattern); ok && pattern != "" {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err == nil && !re.MatchString(c.Value) {
			message := "Please match the requested format."
			if title, ok := c.Attrs.String(AttrTitle); ok && title != "" {
				message += "\n" + title
			}

			return false, message
		}
	}

	return true, ""
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
