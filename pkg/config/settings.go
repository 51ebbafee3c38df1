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
	"context"
	"fmt"
	"time"

	"github.com/tiendc/go-deepcopy"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/constants"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/env"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/sentry"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/service/filesystem"
)

// Settings configures the config builder service itself.
type Settings struct {
	ListenAddr  string `yaml:"listenAddr"`
	MetricsAddr string `yaml:"metricsAddr"`

	// ConfigPath and CamerasPath back the device endpoints served by this process.
	ConfigPath  string `yaml:"configPath"`
	CamerasPath string `yaml:"camerasPath"`
	ExportDir   string `yaml:"exportDir"`

	// DeviceURL, when set, makes editor sessions load from and save to a
	// remote device instead of the local store.
	DeviceURL string `yaml:"deviceURL"`

	SessionTTL time.Duration `yaml:"sessionTTL"`
	SentryDSN  string        `yaml:"sentryDSN"`

	// AllowedOrigins are echoed in CORS responses of the editor API.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		ListenAddr:  constants.DefaultListenAddr,
		MetricsAddr: constants.DefaultMetricsAddr,
		ConfigPath:  constants.DefaultConfigPath,
		CamerasPath: constants.DefaultCamerasPath,
		ExportDir:   constants.DefaultExportDir,
		SessionTTL:  constants.SessionTTL,
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	var out Settings
	if err := deepcopy.Copy(&out, &s); err != nil {
		// Settings only holds plain values; a failure here is a programming error.
		panic(fmt.Sprintf("failed to copy settings: %v", err))
	}

	return out
}

// ParseSettings decodes YAML on top of the defaults.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}

	return s, nil
}

// LoadSettingsWithEnvOverrides loads the settings file and applies environment
// variable overrides.
//
// Order of precedence (highest to lowest):
// 1. Environment variables (LISTEN_ADDR, METRICS_ADDR, CONFIG_PATH, CAMERAS_PATH,
// EXPORT_DIR, DEVICE_URL, SESSION_TTL, SENTRY_DSN, ALLOWED_ORIGINS)
// 2. Settings file values
// 3. Default values
//
// A missing settings file is not an error. Unlike the device config, the
// settings file is never written back.
func LoadSettingsWithEnvOverrides(ctx context.Context, fs filesystem.Reader, path string, log *zap.SugaredLogger) (Settings, error) {
	settings := DefaultSettings()

	exists, err := fs.PathExists(ctx, path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to check settings file: %w", err)
	}
	if exists {
		data, err := fs.ReadFile(ctx, path)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
		}
		settings, err = ParseSettings(data)
		if err != nil {
			return Settings{}, err
		}
	} else {
		log.Infof("No settings file at %s, using defaults", path)
	}

	overrideString := func(key string, target *string) {
		value, err := env.GetAsString(key, false, "")
		if err != nil {
			sentry.ReportIssuef(sentry.IssueTypeWarning, log, "Failed to get %s: %w", key, err)

			return
		}
		if value != "" {
			*target = value
		}
	}

	overrideString("LISTEN_ADDR", &settings.ListenAddr)
	overrideString("METRICS_ADDR", &settings.MetricsAddr)
	overrideString("CONFIG_PATH", &settings.ConfigPath)
	overrideString("CAMERAS_PATH", &settings.CamerasPath)
	overrideString("EXPORT_DIR", &settings.ExportDir)
	overrideString("DEVICE_URL", &settings.DeviceURL)
	overrideString("SENTRY_DSN", &settings.SentryDSN)

	ttl, err := env.GetAsDuration("SESSION_TTL", false, settings.SessionTTL)
	if err != nil {
		sentry.ReportIssuef(sentry.IssueTypeWarning, log, "Failed to get SESSION_TTL: %w", err)
	} else {
		settings.SessionTTL = ttl
	}

	origins, err := env.GetAsList("ALLOWED_ORIGINS", false, settings.AllowedOrigins)
	if err != nil {
		sentry.ReportIssuef(sentry.IssueTypeWarning, log, "Failed to get ALLOWED_ORIGINS: %w", err)
	} else {
		settings.AllowedOrigins = origins
	}

	if settings.SessionTTL <= 0 {
		settings.SessionTTL = constants.SessionTTL
	}

	return settings, nil
}
