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

package constants

import "time"

const (
	// DefaultAppVersion is reported by builds without version ldflags.
	DefaultAppVersion = "0.0.0-dev"

	// DefaultDevelopmentEnvironment / DefaultProductionEnvironment are the sentry environments.
	DefaultDevelopmentEnvironment = "development"
	DefaultProductionEnvironment  = "production"
)

const (
	// DefaultSettingsPath is where the service settings YAML lives on the device.
	DefaultSettingsPath = "/data/oak-config-builder.yaml"

	// DefaultConfigPath is the device's vision pipeline config.
	DefaultConfigPath = "/data/config.json"

	// DefaultCamerasPath lists the currently detected cameras as [{mxid, name}].
	DefaultCamerasPath = "/data/cameras.json"

	// DefaultExportDir receives exported configs when no device save endpoint is wired.
	DefaultExportDir = "/data/exports"

	DefaultListenAddr  = ":8080"
	DefaultMetricsAddr = ":9102"
)

const (
	// SessionTTL is how long an editor session survives without being touched.
	SessionTTL = 30 * time.Minute

	// SessionSweepInterval controls how often expired sessions are dropped.
	SessionSweepInterval = time.Minute

	// FetchTimeout bounds a single collaborator request.
	FetchTimeout = 10 * time.Second

	// FetchMaxInterval caps the retry interval while a view waits for its data.
	FetchMaxInterval = 15 * time.Second

	// ConfigStoreLockTimeout bounds how long a store operation waits for the lock.
	ConfigStoreLockTimeout = 5 * time.Second
)

const (
	// ConfigFilePermissions is used for the config and for exports.
	ConfigFilePermissions = 0o644
)
