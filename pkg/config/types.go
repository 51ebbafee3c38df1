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

// LocalConfig is the device's vision pipeline document. It is only ever
// replaced as a whole; editors produce new copies instead of mutating.
type LocalConfig struct {
	AllowOverwrite  bool                       `json:"allow_overwrite"`
	NT              NetworkTablesConfig        `json:"nt"`
	Log             LogConfig                  `json:"log"`
	Datalog         DatalogConfig              `json:"datalog"`
	Estimator       EstimatorConfig            `json:"estimator"`
	Web             WebConfig                  `json:"web"`
	CameraSelectors []CameraSelectorDefinition `json:"camera_selectors"`
	Pipelines       []PipelineDefinition       `json:"pipelines"`
	Cameras         []CameraConfig             `json:"cameras"`
}

type NTProtocol string

const (
	NTProtocolNT3 NTProtocol = "nt3"
	NTProtocolNT4 NTProtocol = "nt4"
)

type NetworkTablesConfig struct {
	Enabled  bool       `json:"enabled"`
	Team     *int       `json:"team,omitempty"`
	Host     *string    `json:"host,omitempty"`
	Port     *int       `json:"port,omitempty"`
	ClientID string     `json:"client_id"`
	Protocol NTProtocol `json:"protocol"`
	// Publish the per-camera pose estimates in addition to the fused one.
	PublishCameras bool `json:"publish_cameras"`
}

type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

type LogConfig struct {
	Level LogLevel `json:"level"`
	File  *string  `json:"file,omitempty"`
}

type DatalogConfig struct {
	Enabled bool    `json:"enabled"`
	Folder  *string `json:"folder,omitempty"`
	// FlushPeriod in seconds.
	FlushPeriod *float64 `json:"flush_period,omitempty"`
	MaxFiles    *int     `json:"max_files,omitempty"`
}

type PoseStrategy string

const (
	PoseStrategyLowestAmbiguity PoseStrategy = "lowest_ambiguity"
	PoseStrategyClosestToLast   PoseStrategy = "closest_to_last"
	PoseStrategyAverage         PoseStrategy = "average"
)

type EstimatorConfig struct {
	// PoseHistory in seconds.
	PoseHistory       float64      `json:"pose_history"`
	SingleTagStrategy PoseStrategy `json:"single_tag_strategy"`
	MultiTag          bool         `json:"multi_tag"`
	MaxAmbiguity      *float64     `json:"max_ambiguity,omitempty"`
}

type WebConfig struct {
	Enabled   bool     `json:"enabled"`
	Host      *string  `json:"host,omitempty"`
	Port      int      `json:"port"`
	FrameRate *float64 `json:"frame_rate,omitempty"`
}

type Platform string

const (
	PlatformRVC2 Platform = "X_LINK_MYRIAD_X"
	PlatformRVC3 Platform = "X_LINK_RVC3"
	PlatformRVC4 Platform = "X_LINK_RVC4"
)

type UsbProtocol string

const (
	UsbProtocolVSC   UsbProtocol = "X_LINK_USB_VSC"
	UsbProtocolCDC   UsbProtocol = "X_LINK_USB_CDC"
	UsbProtocolPCIe  UsbProtocol = "X_LINK_PCIE"
	UsbProtocolTCPIP UsbProtocol = "X_LINK_TCP_IP"
)

// OakSelector matches a detected OAK device. Every criterion is optional and
// nil means "any".
type OakSelector struct {
	Ordinal  *int         `json:"ordinal,omitempty"`
	MxID     *string      `json:"mxid,omitempty"`
	Name     *string      `json:"name,omitempty"`
	Platform *Platform    `json:"platform,omitempty"`
	Protocol *UsbProtocol `json:"protocol,omitempty"`
}

type CameraSelectorDefinition struct {
	ID string `json:"id"`
	OakSelector
}

type PipelineDefinition struct {
	ID     string    `json:"id"`
	Stages StageList `json:"stages"`
}

type CameraConfig struct {
	ID       *string          `json:"id,omitempty"`
	Selector Ref[OakSelector] `json:"selector"`
	Pose     *Transform3d     `json:"pose,omitempty"`
	Pipeline *Ref[StageList]  `json:"pipeline,omitempty"`
}

type Translation3d struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quaternion struct {
	W float64 `json:"W"`
	X float64 `json:"X"`
	Y float64 `json:"Y"`
	Z float64 `json:"Z"`
}

type Rotation3d struct {
	Quaternion Quaternion `json:"quaternion"`
}

// Transform3d uses the WPILib JSON layout.
type Transform3d struct {
	Translation Translation3d `json:"translation"`
	Rotation    Rotation3d    `json:"rotation"`
}

// IdentityTransform has no translation and the unit quaternion.
func IdentityTransform() Transform3d {
	return Transform3d{Rotation: Rotation3d{Quaternion: Quaternion{W: 1}}}
}

// DetectedCamera is one entry of the device's camera list.
type DetectedCamera struct {
	MxID string `json:"mxid"`
	Name string `json:"name"`
}

// Default returns the document a fresh device starts with.
func Default() LocalConfig {
	return LocalConfig{
		NT: NetworkTablesConfig{
			Enabled:  true,
			ClientID: "oak",
			Protocol: NTProtocolNT4,
		},
		Log: LogConfig{Level: LogLevelInfo},
		Estimator: EstimatorConfig{
			PoseHistory:       1,
			SingleTagStrategy: PoseStrategyLowestAmbiguity,
			MultiTag:          true,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8000,
		},
		CameraSelectors: []CameraSelectorDefinition{},
		Pipelines:       []PipelineDefinition{},
		Cameras:         []CameraConfig{},
	}
}
