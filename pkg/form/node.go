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

type NodeType string

const (
	NodeSection     NodeType = "section"
	NodeGroup       NodeType = "group"
	NodeList        NodeType = "list"
	NodeItem        NodeType = "item"
	NodeField       NodeType = "field"
	NodeAction      NodeType = "action"
	NodeText        NodeType = "text"
	NodePlaceholder NodeType = "placeholder"
)

// Node is one element of a rendered form tree.
type Node struct {
	Type     NodeType `json:"type"`
	ID       string   `json:"id,omitempty"`
	Label    string   `json:"label,omitempty"`
	Text     string   `json:"text,omitempty"`
	Field    *Field   `json:"field,omitempty"`
	Action   *Action  `json:"action,omitempty"`
	Children []Node   `json:"children,omitempty"`
}

// Field is a rendered control. A field without a handler is Disabled.
type Field struct {
	ID       string      `json:"id"`
	Kind     ControlKind `json:"kind"`
	Label    string      `json:"label,omitempty"`
	Value    any         `json:"value"`
	Disabled bool        `json:"disabled,omitempty"`
	Options  []Option    `json:"options,omitempty"`
	Attrs    Attrs       `json:"attrs,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// Action is a button, optionally with a menu of values to choose from.
type Action struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Disabled bool     `json:"disabled,omitempty"`
	Options  []Option `json:"options,omitempty"`
}

// FieldOption adjusts a field before it is rendered.
type FieldOption func(*Field)

func WithAttr(key string, value any) FieldOption {
	return func(f *Field) { f.Attrs = f.Attrs.With(key, value) }
}

func Required() FieldOption { return WithAttr(AttrRequired, true) }

func Min(v float64) FieldOption { return WithAttr(AttrMin, v) }

func Max(v float64) FieldOption { return WithAttr(AttrMax, v) }

// Step sets the number step; "any" disables step matching.
func Step(v any) FieldOption { return WithAttr(AttrStep, v) }

func Pattern(p string) FieldOption { return WithAttr(AttrPattern, p) }

func PlaceholderText(s string) FieldOption { return WithAttr(AttrPlaceholder, s) }

func Options(opts ...Option) FieldOption {
	return func(f *Field) { f.Options = append(f.Options, opts...) }
}

// ReadOnly renders the field disabled even when a handler exists.
func ReadOnly() FieldOption {
	return func(f *Field) { f.Disabled = true }
}

func Section(id, label string, children ...Node) Node {
	return Node{Type: NodeSection, ID: id, Label: label, Children: children}
}

func Group(label string, children ...Node) Node {
	return Node{Type: NodeGroup, Label: label, Children: children}
}

func List(id, label string, items ...Node) Node {
	return Node{Type: NodeList, ID: id, Label: label, Children: items}
}

func Item(id, label string, children ...Node) Node {
	return Node{Type: NodeItem, ID: id, Label: label, Children: children}
}

func Text(s string) Node {
	return Node{Type: NodeText, Text: s}
}

// Placeholder marks data the editor cannot show, e.g. an unknown variant or
// an unresolved reference.
func Placeholder(message string) Node {
	return Node{Type: NodePlaceholder, Text: message}
}

// Walk visits n and all of its descendants depth first.
func Walk(n Node, visit func(Node) bool) bool {
	if !visit(n) {
		return false
	}
	for _, c := range n.Children {
		if !Walk(c, visit) {
			return false
		}
	}

	return true
}

// Find returns the first node in the tree with the given id.
func Find(root Node, id string) (Node, bool) {
	var found Node
	ok := false
	Walk(root, func(n Node) bool {
		if n.ID == id || (n.Field != nil && n.Field.ID == id) || (n.Action != nil && n.Action.ID == id) {
			found, ok = n, true
			return false
		}

		return true
	})

	return found, ok
}
