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
	"bytes"
	"fmt"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/safejson"
)

// StageKind is the "stage" discriminant of a pipeline stage.
type StageKind string

const (
	StageInherit   StageKind = "inherit"
	StageWeb       StageKind = "web"
	StageApriltag  StageKind = "apriltag"
	StageMono      StageKind = "mono"
	StageRgb       StageKind = "rgb"
	StageDepth     StageKind = "depth"
	StageNN        StageKind = "nn"
	StageSave      StageKind = "save"
	StageShow      StageKind = "show"
	StageTelemetry StageKind = "telemetry"
	StageSlam      StageKind = "slam"
)

// StageKinds lists every known kind in menu order.
func StageKinds() []StageKind {
	return []StageKind{
		StageInherit,
		StageMono,
		StageRgb,
		StageDepth,
		StageSlam,
		StageApriltag,
		StageNN,
		StageTelemetry,
		StageWeb,
		StageShow,
		StageSave,
	}
}

// CameraTarget names one of the OAK image streams.
type CameraTarget string

const (
	TargetLeft  CameraTarget = "left"
	TargetRight CameraTarget = "right"
	TargetRgb   CameraTarget = "rgb"
	TargetDepth CameraTarget = "depth"
)

// Stage is one step of a camera pipeline. Implementations are plain values.
type Stage interface {
	Kind() StageKind
	Common() StageCommon
}

// StageCommon holds the flags every stage carries.
type StageCommon struct {
	Enabled  *bool `json:"enabled,omitempty"`
	Optional *bool `json:"optional,omitempty"`
}

func (c StageCommon) Common() StageCommon { return c }

// IsEnabled treats a missing flag as enabled.
func (c StageCommon) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// InheritStage splices in the stages of another pipeline template.
type InheritStage struct {
	StageCommon
	ID string `json:"id"`
}

type WebStage struct {
	StageCommon
	Target CameraTarget `json:"target"`
}

type ApriltagStage struct {
	StageCommon
	Apriltags      Ref[AprilTagField] `json:"apriltags"`
	QuadDecimate   int                `json:"quadDecimate"`
	QuadSigma      float64            `json:"quadSigma"`
	RefineEdges    bool               `json:"refineEdges"`
	NumIterations  int                `json:"numIterations"`
	HammingDist    int                `json:"hammingDist"`
	DecisionMargin float64            `json:"decisionMargin"`
}

type MonoStage struct {
	StageCommon
	Target CameraTarget `json:"target"`
}

type RgbStage struct {
	StageCommon
}

type DepthStage struct {
	StageCommon
}

// ObjectDetectionConfig follows the DepthAI model zoo config layout.
type ObjectDetectionConfig struct {
	BlobPath            string           `json:"blob_path"`
	Family              string           `json:"NN_family"`
	InputSize           string           `json:"input_size"`
	Classes             int              `json:"classes"`
	Coordinates         int              `json:"coordinates"`
	Anchors             []float64        `json:"anchors"`
	AnchorMasks         map[string][]int `json:"anchor_masks"`
	Labels              []string         `json:"labels"`
	ConfidenceThreshold float64          `json:"confidence_threshold"`
	IOUThreshold        float64          `json:"iou_threshold"`
	CoordinateSize      float64          `json:"coordinateSize"`
	DepthLowerThreshold int              `json:"depthLowerThreshold"`
	DepthUpperThreshold int              `json:"depthUpperThreshold"`
}

type NNStage struct {
	StageCommon
	Config ObjectDetectionConfig `json:"config"`
}

type SaveStage struct {
	StageCommon
	Target CameraTarget `json:"target"`
	Path   string       `json:"path"`
}

type ShowStage struct {
	StageCommon
	Target CameraTarget `json:"target"`
}

type TelemetryStage struct {
	StageCommon
}

type SlamStage struct {
	StageCommon
}

// UnknownStage keeps a stage whose tag this build does not know, verbatim.
type UnknownStage struct {
	Tag StageKind
	Raw safejson.RawMessage
}

func (InheritStage) Kind() StageKind   { return StageInherit }
func (WebStage) Kind() StageKind       { return StageWeb }
func (ApriltagStage) Kind() StageKind  { return StageApriltag }
func (MonoStage) Kind() StageKind      { return StageMono }
func (RgbStage) Kind() StageKind       { return StageRgb }
func (DepthStage) Kind() StageKind     { return StageDepth }
func (NNStage) Kind() StageKind        { return StageNN }
func (SaveStage) Kind() StageKind      { return StageSave }
func (ShowStage) Kind() StageKind      { return StageShow }
func (TelemetryStage) Kind() StageKind { return StageTelemetry }
func (SlamStage) Kind() StageKind      { return StageSlam }
func (u UnknownStage) Kind() StageKind { return u.Tag }

func (UnknownStage) Common() StageCommon { return StageCommon{} }

// StageTarget returns the camera target of the stage kinds that have one.
func StageTarget(s Stage) (CameraTarget, bool) {
	switch st := s.(type) {
	case MonoStage:
		return st.Target, true
	case ShowStage:
		return st.Target, true
	case WebStage:
		return st.Target, true
	case SaveStage:
		return st.Target, true
	default:
		return "", false
	}
}

// StageList is an ordered pipeline. On the wire every element carries its
// kind in the "stage" field.
type StageList []Stage

func (l StageList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, s := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		raw, err := MarshalStage(s)
		if err != nil {
			return nil, fmt.Errorf("failed to encode stage %d: %w", i, err)
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')

	return buf.Bytes(), nil
}

func (l *StageList) UnmarshalJSON(data []byte) error {
	var raws []safejson.RawMessage
	if err := safejson.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("failed to decode stage list: %w", err)
	}

	out := make(StageList, 0, len(raws))
	for i, raw := range raws {
		s, err := UnmarshalStage(raw)
		if err != nil {
			return fmt.Errorf("failed to decode stage %d: %w", i, err)
		}
		out = append(out, s)
	}
	*l = out

	return nil
}

// MarshalStage encodes s with its "stage" tag as the first member.
func MarshalStage(s Stage) ([]byte, error) {
	if u, ok := s.(UnknownStage); ok {
		return append([]byte(nil), u.Raw...), nil
	}

	body, err := safejson.Marshal(s)
	if err != nil {
		return nil, err
	}
	tag, err := safejson.Marshal(string(s.Kind()))
	if err != nil {
		return nil, err
	}

	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("stage %s did not encode as an object", s.Kind())
	}

	var buf bytes.Buffer
	buf.WriteString(`{"stage":`)
	buf.Write(tag)
	rest := bytes.TrimSpace(body[1:])
	if len(rest) > 0 && rest[0] != '}' {
		buf.WriteByte(',')
	}
	buf.Write(rest)

	return buf.Bytes(), nil
}

var stageDecoders = map[StageKind]func([]byte) (Stage, error){
	StageInherit:   decodeStage[InheritStage],
	StageWeb:       decodeStage[WebStage],
	StageApriltag:  decodeStage[ApriltagStage],
	StageMono:      decodeStage[MonoStage],
	StageRgb:       decodeStage[RgbStage],
	StageDepth:     decodeStage[DepthStage],
	StageNN:        decodeStage[NNStage],
	StageSave:      decodeStage[SaveStage],
	StageShow:      decodeStage[ShowStage],
	StageTelemetry: decodeStage[TelemetryStage],
	StageSlam:      decodeStage[SlamStage],
}

func decodeStage[S Stage](raw []byte) (Stage, error) {
	var s S
	if err := safejson.Unmarshal(raw, &s); err != nil {
		return nil, err
	}

	return s, nil
}

// UnmarshalStage decodes one tagged stage. Unknown tags become UnknownStage.
func UnmarshalStage(raw []byte) (Stage, error) {
	var head struct {
		Stage StageKind `json:"stage"`
	}
	if err := safejson.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	decode, ok := stageDecoders[head.Stage]
	if !ok {
		return UnknownStage{Tag: head.Stage, Raw: append(safejson.RawMessage(nil), raw...)}, nil
	}

	return decode(raw)
}

// IsKnownStageKind reports whether kind has a decoder.
func IsKnownStageKind(kind StageKind) bool {
	_, ok := stageDecoders[kind]
	return ok
}

// CountKind returns how many stages of kind the list holds.
func (l StageList) CountKind(kind StageKind) int {
	n := 0
	for _, s := range l {
		if s.Kind() == kind {
			n++
		}
	}

	return n
}

// RenameInherit returns a copy of l in which inherit stages pointing at from
// point at to instead.
func (l StageList) RenameInherit(from, to string) StageList {
	if l == nil {
		return nil
	}

	out := make(StageList, len(l))
	for i, s := range l {
		if inh, ok := s.(InheritStage); ok && inh.ID == from {
			inh.ID = to
			out[i] = inh

			continue
		}
		out[i] = s
	}

	return out
}

// Clone returns a copy of l that shares no memory with it.
func (l StageList) Clone() (StageList, error) {
	data, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var out StageList
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, err
	}

	return out, nil
}
