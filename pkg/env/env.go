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

// Package env reads service settings from environment variables. Every getter
// returns defaultValue for an unset variable, and for an unparsable one unless
// the variable is required.
package env

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func lookup(key string, required bool) (string, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" && required {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}

	return value, nil
}

func get[T any](key string, required bool, defaultValue T, kind string, parse func(string) (T, error)) (T, error) {
	value, err := lookup(key, required)
	if err != nil {
		return defaultValue, err
	}
	if value == "" {
		return defaultValue, nil
	}

	v, err := parse(value)
	if err != nil {
		if required {
			return defaultValue, fmt.Errorf("environment variable %s must be %s: %w", key, kind, err)
		}

		return defaultValue, nil
	}

	return v, nil
}

// GetAsString retrieves an environment variable as a string.
func GetAsString(key string, required bool, defaultValue string) (string, error) {
	return get(key, required, defaultValue, "a string", func(s string) (string, error) { return s, nil })
}

// GetAsBool accepts true/false, 1/0, yes/no, y/n and on/off.
func GetAsBool(key string, required bool, defaultValue bool) (bool, error) {
	return get(key, required, defaultValue, "a boolean", func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes", "y", "on":
			return true, nil
		case "false", "0", "no", "n", "off":
			return false, nil
		}

		return false, fmt.Errorf("unrecognized value %q", s)
	})
}

// GetAsDuration retrieves an environment variable as a time.Duration ("90s", "5m").
func GetAsDuration(key string, required bool, defaultValue time.Duration) (time.Duration, error) {
	return get(key, required, defaultValue, "a duration", time.ParseDuration)
}

// GetAsList splits a comma separated variable such as
// ALLOWED_ORIGINS="http://oak.local, http://10.0.0.2". Empty items are dropped.
func GetAsList(key string, required bool, defaultValue []string) ([]string, error) {
	return get(key, required, defaultValue, "a list", func(s string) ([]string, error) {
		var out []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no items in %q", s)
		}

		return out, nil
	})
}
