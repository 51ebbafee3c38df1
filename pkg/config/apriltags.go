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

package config

import (
	"fmt"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/safejson"
)

// FieldFormat is the "format" discriminant of an AprilTag field layout.
type FieldFormat string

const (
	FieldFormatWPI FieldFormat = "wpi"
	FieldFormatSAI FieldFormat = "sai"
)

// Built-in field presets, referenced by name from ApriltagStage.Apriltags.
const (
	FieldPreset2024Crescendo  = "2024Crescendo"
	FieldPreset2023ChargedUp  = "2023ChargedUp"
	FieldPreset2022RapidReact = "2022RapidReact"
)

// FieldPresets lists the built-in presets, newest first.
func FieldPresets() []string {
	return []string{FieldPreset2024Crescendo, FieldPreset2023ChargedUp, FieldPreset2022RapidReact}
}

type TagFamily string

const (
	TagFamily16h5   TagFamily = "tag16h5"
	TagFamily25h9   TagFamily = "tag25h9"
	TagFamily36h11  TagFamily = "tag36h11"
	TagFamilyCircle TagFamily = "tagCircle21h7"
)

// FieldLayout is one of the AprilTag field shapes. The shape is decided by the
// format crossed with whether the layout lives in an external file.
type FieldLayout interface {
	Format() FieldFormat
	IsExternal() bool
}

type FieldDimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
}

type WPITag struct {
	ID   int         `json:"ID"`
	Pose Transform3d `json:"pose"`
}

// WPIInlineField embeds a WPILib AprilTagFieldLayout.
type WPIInlineField struct {
	TagFamily TagFamily       `json:"tagFamily"`
	TagSize   float64         `json:"tagSize"`
	Field     FieldDimensions `json:"field"`
	Tags      []WPITag        `json:"tags"`
}

// WPIFileField points at a WPILib layout JSON on the device.
type WPIFileField struct {
	Path      string    `json:"path"`
	TagFamily TagFamily `json:"tagFamily"`
	TagSize   float64   `json:"tagSize"`
}

// SAITag is a Spectacular AI tag: a 4x4 row-major tag-to-world matrix.
type SAITag struct {
	ID         int         `json:"id"`
	Family     TagFamily   `json:"family"`
	Size       float64     `json:"size"`
	TagToWorld [][]float64 `json:"tagToWorld"`
}

type SAIInlineField struct {
	Tags []SAITag `json:"tags"`
}

type SAIFileField struct {
	Path string `json:"path"`
}

// UnknownFieldLayout keeps a layout with an unrecognised format, verbatim.
type UnknownFieldLayout struct {
	FormatName string
	Raw        safejson.RawMessage
}

func (WPIInlineField) Format() FieldFormat       { return FieldFormatWPI }
func (WPIFileField) Format() FieldFormat         { return FieldFormatWPI }
func (SAIInlineField) Format() FieldFormat       { return FieldFormatSAI }
func (SAIFileField) Format() FieldFormat         { return FieldFormatSAI }
func (u UnknownFieldLayout) Format() FieldFormat { return FieldFormat(u.FormatName) }

func (WPIInlineField) IsExternal() bool     { return false }
func (WPIFileField) IsExternal() bool       { return true }
func (SAIInlineField) IsExternal() bool     { return false }
func (SAIFileField) IsExternal() bool       { return true }
func (UnknownFieldLayout) IsExternal() bool { return false }

// AprilTagField carries one FieldLayout and handles its JSON discrimination.
type AprilTagField struct {
	Layout FieldLayout
}

func (f AprilTagField) MarshalJSON() ([]byte, error) {
	switch l := f.Layout.(type) {
	case nil:
		return []byte("null"), nil
	case UnknownFieldLayout:
		return append([]byte(nil), l.Raw...), nil
	case WPIInlineField:
		return safejson.Marshal(struct {
			Format FieldFormat `json:"format"`
			WPIInlineField
		}{l.Format(), l})
	case WPIFileField:
		return safejson.Marshal(struct {
			Format FieldFormat `json:"format"`
			WPIFileField
		}{l.Format(), l})
	case SAIInlineField:
		return safejson.Marshal(struct {
			Format FieldFormat `json:"format"`
			SAIInlineField
		}{l.Format(), l})
	case SAIFileField:
		return safejson.Marshal(struct {
			Format FieldFormat `json:"format"`
			SAIFileField
		}{l.Format(), l})
	default:
		return nil, fmt.Errorf("unsupported field layout %T", l)
	}
}

func (f *AprilTagField) UnmarshalJSON(data []byte) error {
	var head struct {
		Format FieldFormat `json:"format"`
		Path   *string     `json:"path"`
	}
	if err := safejson.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("failed to decode apriltag field: %w", err)
	}

	var (
		layout FieldLayout
		err    error
	)
	external := head.Path != nil

	switch {
	case head.Format == FieldFormatWPI && external:
		layout, err = decodeLayout[WPIFileField](data)
	case head.Format == FieldFormatWPI:
		layout, err = decodeLayout[WPIInlineField](data)
	case head.Format == FieldFormatSAI && external:
		layout, err = decodeLayout[SAIFileField](data)
	case head.Format == FieldFormatSAI:
		layout, err = decodeLayout[SAIInlineField](data)
	default:
		layout = UnknownFieldLayout{FormatName: string(head.Format), Raw: append(safejson.RawMessage(nil), data...)}
	}
	if err != nil {
		return err
	}
	f.Layout = layout

	return nil
}

func decodeLayout[L FieldLayout](data []byte) (FieldLayout, error) {
	var l L
	if err := safejson.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", l, err)
	}

	return l, nil
}

// IsFieldPreset reports whether name is a built-in preset.
func IsFieldPreset(name string) bool {
	for _, p := range FieldPresets() {
		if p == name {
			return true
		}
	}

	return false
}

// DefaultTagToWorld is the identity pose.
func DefaultTagToWorld() [][]float64 {
	return [][]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}
