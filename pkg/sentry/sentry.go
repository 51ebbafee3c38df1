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

package sentry

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/constants"
)

// InitSentry enables event delivery for a release build. Development builds
// and an empty DSN keep it disabled; reports then only go to the logger.
// debounceErrors false forwards every report, which tests rely on.
func InitSentry(dsn string, appVersion string, debounceErrors bool) {
	setDebounce(debounceErrors)

	if dsn == "" || appVersion == "" || appVersion == constants.DefaultAppVersion {
		zap.S().Debug("Sentry disabled for local development build")

		return
	}

	environment, err := environmentFor(appVersion)
	if err != nil {
		zap.S().Errorf("Failed to parse app version, using default environment (%s): %s", environment, err)
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     "oak-config-builder@" + appVersion,
	})
	if err != nil {
		zap.S().Errorf("Failed to initialize Sentry: %s", err)
	}
}

// environmentFor files prereleases ("1.4.0-rc.1") and unparsable versions
// under development.
func environmentFor(appVersion string) (string, error) {
	version, err := semver.NewVersion(appVersion)
	if err != nil {
		return constants.DefaultDevelopmentEnvironment, fmt.Errorf("invalid version %q: %w", appVersion, err)
	}
	if version.Prerelease() != "" {
		return constants.DefaultDevelopmentEnvironment, nil
	}

	return constants.DefaultProductionEnvironment, nil
}
