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
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/binding"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
)

func enumOptions[E ~string](values ...E) []form.Option {
	opts := make([]form.Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, form.Option{Value: string(v), Label: string(v)})
	}

	return opts
}

func renderNT(b *form.Builder, v config.NetworkTablesConfig, onChange func(config.NetworkTablesConfig)) form.Node {
	f := binding.UseFacade(b, v, onChange)

	return form.Section(b.Prefix(), "NetworkTables",
		f.Checkbox(b, "enabled", "Enabled"),
		f.Number(b, "team", "Team number", form.Min(0), form.Max(25599)),
		f.Text(b, "host", "Server host", form.PlaceholderText("10.TE.AM.2")),
		f.Number(b, "port", "Server port", form.Min(1), form.Max(65535)),
		f.Text(b, "client_id", "Client id", form.Required()),
		f.Select(b, "protocol", "Protocol", enumOptions(config.NTProtocolNT3, config.NTProtocolNT4), form.Required()),
		f.Checkbox(b, "publish_cameras", "Publish per-camera poses"),
	)
}

func renderLog(b *form.Builder, v config.LogConfig, onChange func(config.LogConfig)) form.Node {
	f := binding.UseFacade(b, v, onChange)

	return form.Section(b.Prefix(), "Logging",
		f.Select(b, "level", "Level",
			enumOptions(config.LogLevelDebug, config.LogLevelInfo, config.LogLevelWarning, config.LogLevelError),
			form.Required()),
		f.Text(b, "file", "Log file"),
	)
}

func renderDatalog(b *form.Builder, v config.DatalogConfig, onChange func(config.DatalogConfig)) form.Node {
	f := binding.UseFacade(b, v, onChange)

	return form.Section(b.Prefix(), "Datalog",
		f.Checkbox(b, "enabled", "Enabled"),
		f.Text(b, "folder", "Folder"),
		f.Number(b, "flush_period", "Flush period (s)", form.Min(0)),
		f.Number(b, "max_files", "Max files", form.Min(1)),
	)
}

func renderEstimator(b *form.Builder, v config.EstimatorConfig, onChange func(config.EstimatorConfig)) form.Node {
	f := binding.UseFacade(b, v, onChange)

	return form.Section(b.Prefix(), "Pose estimator",
		f.Number(b, "pose_history", "Pose history (s)", form.Min(0), form.Required()),
		f.Select(b, "single_tag_strategy", "Single tag strategy",
			enumOptions(config.PoseStrategyLowestAmbiguity, config.PoseStrategyClosestToLast, config.PoseStrategyAverage),
			form.Required()),
		f.Checkbox(b, "multi_tag", "Multi-tag estimation"),
		f.Number(b, "max_ambiguity", "Max ambiguity", form.Min(0), form.Max(1)),
	)
}

func renderWeb(b *form.Builder, v config.WebConfig, onChange func(config.WebConfig)) form.Node {
	f := binding.UseFacade(b, v, onChange)

	return form.Section(b.Prefix(), "Web server",
		f.Checkbox(b, "enabled", "Enabled"),
		f.Text(b, "host", "Bind address"),
		f.Number(b, "port", "Port", form.Min(1), form.Max(65535), form.Required()),
		f.Number(b, "frame_rate", "Frame rate", form.Min(0)),
	)
}
