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

package editor

import (
	"fmt"
	"strconv"

	"github.com/tiendc/go-deepcopy"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/binding"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/stages"
)

// CustomChoice is the selector-kind value for an inline selector or pipeline.
const CustomChoice = "$custom"

// CopyFromCamera fills the identity criteria of sel from the detected camera
// at index. The ordinal is the camera's 1-based position in the detected
// list, which is how the device numbers cameras when matching by ordinal.
func CopyFromCamera(sel config.OakSelector, cameras []config.DetectedCamera, index int) (config.OakSelector, error) {
	if index < 0 || index >= len(cameras) {
		return sel, fmt.Errorf("%w: no detected camera %d", binding.ErrInvalidInput, index)
	}

	cam := cameras[index]
	name, mxid, ordinal := cam.Name, cam.MxID, index+1
	sel.Name = &name
	sel.MxID = &mxid
	sel.Ordinal = &ordinal

	return sel, nil
}

// SwitchSelector changes a camera selector between inline and template form.
// Choosing CustomChoice on a template reference seeds the inline selector
// with a copy of the template's criteria when the template exists.
func SwitchSelector(cfg config.LocalConfig, current config.Ref[config.OakSelector], choice string) (config.Ref[config.OakSelector], error) {
	if choice != CustomChoice {
		return config.Reference[config.OakSelector](choice), nil
	}
	if !current.IsRef() {
		return current, nil
	}

	resolved, ok := cfg.ResolveSelector(current)
	if !ok {
		return config.Inline(config.OakSelector{}), nil
	}

	var seeded config.OakSelector
	if err := deepcopy.Copy(&seeded, &resolved); err != nil {
		return current, fmt.Errorf("failed to copy selector template: %w", err)
	}

	return config.Inline(seeded), nil
}

func detectedOptions(cameras []config.DetectedCamera) []form.Option {
	opts := make([]form.Option, 0, len(cameras))
	for i, c := range cameras {
		label := c.MxID
		if c.Name != "" {
			label = fmt.Sprintf("%s (%s)", c.Name, c.MxID)
		}
		opts = append(opts, form.Option{Value: strconv.Itoa(i), Label: label})
	}

	return opts
}

// renderOakSelector edits the matching criteria. Without onChange the
// criteria are shown read-only.
func renderOakSelector(b *form.Builder, sel config.OakSelector, onChange func(config.OakSelector), cameras []config.DetectedCamera) []form.Node {
	f := binding.UseFacade(b, sel, onChange)

	nodes := []form.Node{
		f.Number(b, "ordinal", "Ordinal", form.Min(0)),
		f.Text(b, "mxid", "MxID", form.Pattern(`[0-9A-Fa-f]+`)),
		f.Text(b, "name", "Device name"),
		f.Select(b, "platform", "Platform",
			enumOptions(config.PlatformRVC2, config.PlatformRVC3, config.PlatformRVC4)),
		f.Select(b, "protocol", "Protocol",
			enumOptions(config.UsbProtocolVSC, config.UsbProtocolCDC, config.UsbProtocolPCIe, config.UsbProtocolTCPIP)),
	}

	if onChange != nil {
		copyFrom := func(value string) error {
			i, err := strconv.Atoi(value)
			if err != nil {
				return nil
			}
			next, err := CopyFromCamera(sel, cameras, i)
			if err != nil {
				return nil
			}
			onChange(next)

			return nil
		}
		nodes = append(nodes, b.Action("copy", "Copy from detected camera", copyFrom, detectedOptions(cameras)...))
	}

	return nodes
}

func templateOptions(ids []string, current string, custom bool) ([]form.Option, bool) {
	opts := []form.Option{}
	if custom {
		opts = append(opts, form.Option{Value: CustomChoice, Label: "Custom"})
	}

	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		opts = append(opts, form.Option{Value: id, Label: id})
	}

	resolvable := current == CustomChoice || seen[current]
	if !resolvable && current != "" {
		opts = append(opts, form.Option{Value: current, Label: current + " (missing)", Disabled: true})
	}

	return opts, resolvable
}

// renderCameraSelector edits a camera's inline-or-template selector.
func renderCameraSelector(b *form.Builder, cfg config.LocalConfig, value config.Ref[config.OakSelector], onChange func(config.Ref[config.OakSelector]), cameras []config.DetectedCamera) form.Node {
	current := config.Match(value,
		func(name string) string { return name },
		func(config.OakSelector) string { return CustomChoice },
	)
	opts, resolvable := templateOptions(cfg.SelectorIDs(), current, true)

	var onKind form.Handler
	if onChange != nil {
		onKind = func(c form.Control) error {
			choice, err := binding.SelectValue(c, false)
			if err != nil {
				return nil
			}
			next, err := SwitchSelector(cfg, value, *choice)
			if err != nil {
				return err
			}
			onChange(next)

			return nil
		}
	}

	children := []form.Node{
		b.Field("kind", form.Field{Kind: form.KindSelect, Label: "Selector", Value: current, Options: opts}, onKind, form.Required()),
	}

	cb := b.Scope("criteria")
	switch {
	case !value.IsRef():
		sel, _ := value.InlineValue()
		var onSel func(config.OakSelector)
		if onChange != nil {
			onSel = func(s config.OakSelector) { onChange(config.Inline(s)) }
		}
		children = append(children, renderOakSelector(cb, sel, onSel, cameras)...)
	case resolvable:
		sel, _ := cfg.ResolveSelector(value)
		children = append(children, renderOakSelector(cb, sel, nil, cameras)...)
	default:
		children = append(children, form.Placeholder(fmt.Sprintf("Unresolved selector reference %s", current)))
	}

	return form.Group("Camera selector", children...)
}

func uniqueID(prefix string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, id := range taken {
		used[id] = true
	}
	for n := len(taken) + 1; ; n++ {
		id := fmt.Sprintf("%s-%d", prefix, n)
		if !used[id] {
			return id
		}
	}
}

// renderSelectorTemplates edits the named selector templates. Renaming a
// template moves every camera referencing it along.
func renderSelectorTemplates(b *form.Builder, cfg config.LocalConfig, onUpdate func(binding.Change[config.LocalConfig]), cameras []config.DetectedCamera) form.Node {
	onList := binding.UpdateKey[config.LocalConfig, []config.CameraSelectorDefinition]("camera_selectors", onUpdate)

	items := make([]form.Node, 0, len(cfg.CameraSelectors))
	for i, def := range cfg.CameraSelectors {
		ib := b.Scope(binding.Index(i))

		var onDef func(config.CameraSelectorDefinition)
		if onUpdate != nil {
			onDef = func(next config.CameraSelectorDefinition) {
				if next.ID != def.ID {
					metrics.RecordRename("selector")
				}
				onUpdate(binding.Apply(func(c config.LocalConfig) config.LocalConfig {
					return config.ReplaceSelector(c, i, next)
				}))
			}
		}
		f := binding.UseFacade(ib, def, onDef)

		var onSel func(config.OakSelector)
		if onDef != nil {
			onSel = func(s config.OakSelector) {
				next := def
				next.OakSelector = s
				onDef(next)
			}
		}

		var del form.ActionHandler
		if onList != nil {
			del = func(string) error {
				onList(binding.Apply(func(l []config.CameraSelectorDefinition) []config.CameraSelectorDefinition {
					return stages.DeleteAt(l, i)
				}))
				return nil
			}
		}

		children := []form.Node{f.Text(ib, "id", "Id", form.Required())}
		children = append(children, renderOakSelector(ib.Scope("criteria"), def.OakSelector, onSel, cameras)...)
		children = append(children, ib.Action("delete", "Delete", del))
		items = append(items, form.Item(ib.Prefix(), def.ID, children...))
	}

	var add form.ActionHandler
	if onList != nil {
		add = func(string) error {
			onList(binding.Apply(func(l []config.CameraSelectorDefinition) []config.CameraSelectorDefinition {
				ids := make([]string, 0, len(l))
				for _, d := range l {
					ids = append(ids, d.ID)
				}
				return stages.Append(l, config.CameraSelectorDefinition{ID: uniqueID("selector", ids)})
			}))
			return nil
		}
	}

	return form.Section(b.Prefix(), "Camera selectors",
		form.List(b.ID("items"), "", items...),
		b.Action("add", "Add selector", add),
	)
}
