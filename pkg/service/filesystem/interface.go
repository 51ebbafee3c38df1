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

// Package filesystem is the file access of the config store, the settings
// loader and the export path. Every call gives up when its context is done,
// so a stuck mount cannot hang an editor request.
package filesystem

import (
	"context"
	"os"
)

// Reader is what loading settings and camera lists needs.
type Reader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// PathExists reports false without an error for a missing path.
	PathExists(ctx context.Context, path string) (bool, error)
}

// Writer is what replacing a config file atomically needs.
type Writer interface {
	EnsureDirectory(ctx context.Context, path string) error
	WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error
	// Rename is atomic when both paths are on the same mount.
	Rename(ctx context.Context, oldPath, newPath string) error
	Remove(ctx context.Context, path string) error
}

// Service is the full set, implemented by DefaultService and MockFileSystem.
type Service interface {
	Reader
	Writer
}

var (
	_ Service = (*DefaultService)(nil)
	_ Service = (*MockFileSystem)(nil)
)
