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

package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/logger"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
)

// DefaultService is the default implementation of Service.
type DefaultService struct {
	logger *zap.SugaredLogger
}

// NewDefaultService creates a new DefaultService.
func NewDefaultService() *DefaultService {
	return &DefaultService{
		logger: logger.For(logger.ComponentConfigStore),
	}
}

func (s *DefaultService) recordOp(op string, path string, start time.Time, err error) {
	metrics.RecordFilesystemOp(op, err, time.Since(start))
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, os.ErrNotExist) {
		s.logger.Debugf("filesystem %s on %s failed: %v", op, path, err)
	}
}

func (s *DefaultService) checkContext(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return nil
}

// run executes fn in a goroutine and waits for either its result or ctx.
func run[T any](ctx context.Context, s *DefaultService, op, path string, fn func() (T, error)) (T, error) {
	start := time.Now()

	var zero T
	if err := s.checkContext(ctx); err != nil {
		return zero, fmt.Errorf("failed to check context: %w", err)
	}

	type result struct {
		val T
		err error
	}

	resCh := make(chan result, 1)

	go func() {
		v, err := fn()
		resCh <- result{val: v, err: err}
	}()

	select {
	case res := <-resCh:
		s.recordOp(op, path, start, res.err)
		return res.val, res.err
	case <-ctx.Done():
		err := ctx.Err()
		s.recordOp(op, path, start, err)
		return zero, err
	}
}

// EnsureDirectory creates a directory if it doesn't exist.
func (s *DefaultService) EnsureDirectory(ctx context.Context, path string) error {
	_, err := run(ctx, s, "EnsureDirectory", path, func() (struct{}, error) {
		return struct{}{}, os.MkdirAll(path, 0o755)
	})
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// ReadFile reads a file's contents respecting the context.
func (s *DefaultService) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := run(ctx, s, "ReadFile", path, func() ([]byte, error) {
		return os.ReadFile(path)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return data, nil
}

// WriteFile writes data to a file respecting the context.
func (s *DefaultService) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	_, err := run(ctx, s, "WriteFile", path, func() (struct{}, error) {
		return struct{}{}, os.WriteFile(path, data, perm)
	})
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

// PathExists checks if a path (file or directory) exists.
func (s *DefaultService) PathExists(ctx context.Context, path string) (bool, error) {
	return run(ctx, s, "PathExists", path, func() (bool, error) {
		_, err := os.Stat(path)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("failed to check if path exists: %w", err)
	})
}

// Remove removes a file or directory.
func (s *DefaultService) Remove(ctx context.Context, path string) error {
	_, err := run(ctx, s, "Remove", path, func() (struct{}, error) {
		return struct{}{}, os.Remove(path)
	})
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}

// Rename renames (moves) a file or directory from oldPath to newPath.
// This operation is atomic on the same filesystem mount.
func (s *DefaultService) Rename(ctx context.Context, oldPath, newPath string) error {
	_, err := run(ctx, s, "Rename", oldPath+"->"+newPath, func() (struct{}, error) {
		return struct{}{}, os.Rename(oldPath, newPath)
	})
	if err != nil {
		return fmt.Errorf("failed to rename file %s to %s: %w", oldPath, newPath, err)
	}

	return nil
}
