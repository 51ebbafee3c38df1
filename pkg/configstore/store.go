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

// Package configstore keeps the device's pipeline config and the list of
// detected cameras on disk.
package configstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/backoff"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/constants"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/ctxutil/ctxmutex"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/logger"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/safejson"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/service/filesystem"
)

// Store reads and writes the config file. Writes replace the file
// atomically and the last write wins.
type Store struct {
	// configPath is the device's pipeline config
	configPath string

	// camerasPath lists the currently detected cameras
	camerasPath string

	fsService filesystem.Service
	logger    *zap.SugaredLogger

	// mutex serialises reads and writes of the config file. It is context
	// aware so a stuck filesystem cannot block a request forever.
	mutex *ctxmutex.CtxMutex
}

// NewStore creates a store on the default filesystem.
func NewStore(configPath, camerasPath string) *Store {
	return &Store{
		configPath:  configPath,
		camerasPath: camerasPath,
		fsService:   filesystem.NewDefaultService(),
		logger:      logger.For(logger.ComponentConfigStore),
		mutex:       ctxmutex.New(),
	}
}

// WithFileSystemService allows setting a custom filesystem service,
// useful for testing.
func (s *Store) WithFileSystemService(fsService filesystem.Service) *Store {
	s.fsService = fsService
	return s
}

// ConfigPath returns the path of the config file.
func (s *Store) ConfigPath() string {
	return s.configPath
}

func (s *Store) lock(ctx context.Context) (context.Context, func(), error) {
	ctx, release, err := s.mutex.Hold(ctx, constants.ConfigStoreLockTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock config file: %w", err)
	}

	return ctx, release, nil
}

// Load reads the config. A missing file yields config.Default(). A file that
// cannot be parsed is a permanent error.
func (s *Store) Load(ctx context.Context) (config.LocalConfig, error) {
	ctx, release, err := s.lock(ctx)
	if err != nil {
		return config.LocalConfig{}, err
	}
	defer release()

	exists, err := s.fsService.PathExists(ctx, s.configPath)
	if err != nil {
		return config.LocalConfig{}, fmt.Errorf("failed to check config file %s: %w", s.configPath, err)
	}
	if !exists {
		s.logger.Infof("config file %s does not exist, using defaults", s.configPath)
		return config.Default(), nil
	}

	data, err := s.fsService.ReadFile(ctx, s.configPath)
	if err != nil {
		return config.LocalConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := config.Parse(data)
	if err != nil {
		metrics.IncErrorCountAndLog(metrics.ComponentConfigStore, s.configPath, err, s.logger)
		return config.LocalConfig{}, backoff.NewPermanentError(fmt.Errorf("failed to parse config file %s: %w", s.configPath, err))
	}

	return cfg, nil
}

// Save writes cfg as pretty-printed JSON.
func (s *Store) Save(ctx context.Context, cfg config.LocalConfig) error {
	data, err := config.Encode(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	ctx, release, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := WriteAtomic(ctx, s.fsService, s.configPath, data); err != nil {
		metrics.IncErrorCountAndLog(metrics.ComponentConfigStore, s.configPath, err, s.logger)
		return err
	}

	s.logger.Infof("Successfully wrote config to %s", s.configPath)

	return nil
}

// Cameras reads the detected camera list. A missing file means no cameras
// are connected.
func (s *Store) Cameras(ctx context.Context) ([]config.DetectedCamera, error) {
	exists, err := s.fsService.PathExists(ctx, s.camerasPath)
	if err != nil {
		return nil, fmt.Errorf("failed to check camera list %s: %w", s.camerasPath, err)
	}
	if !exists {
		return []config.DetectedCamera{}, nil
	}

	data, err := s.fsService.ReadFile(ctx, s.camerasPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read camera list: %w", err)
	}

	cams := []config.DetectedCamera{}
	if err := safejson.Unmarshal(data, &cams); err != nil {
		return nil, backoff.NewPermanentError(fmt.Errorf("failed to parse camera list %s: %w", s.camerasPath, err))
	}

	return cams, nil
}

// WriteAtomic writes data next to path and renames it into place, so readers
// see either the old or the new file.
func WriteAtomic(ctx context.Context, fs filesystem.Writer, path string, data []byte) error {
	if err := fs.EnsureDirectory(ctx, filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := fs.WriteFile(ctx, tmp, data, os.FileMode(constants.ConfigFilePermissions)); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := fs.Rename(ctx, tmp, path); err != nil {
		if rmErr := fs.Remove(ctx, tmp); rmErr != nil {
			logger.For(logger.ComponentConfigStore).Warnf("failed to remove %s: %v", tmp, rmErr)
		}
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}
