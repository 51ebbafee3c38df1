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

// Package ctxmutex provides a mutex whose Lock gives up when the caller's
// context is done.
package ctxmutex

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// CtxMutex is backed by a weighted semaphore of size 1.
type CtxMutex struct {
	sem *semaphore.Weighted
}

func New() *CtxMutex {
	return &CtxMutex{sem: semaphore.NewWeighted(1)}
}

// Lock locks the mutex or returns the context error.
func (m *CtxMutex) Lock(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// TryLock locks the mutex if it is free.
func (m *CtxMutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}

func (m *CtxMutex) Unlock() {
	m.sem.Release(1)
}

// Hold waits at most timeout for the lock. The returned context carries the
// same deadline for the work done while holding it; release unlocks and
// cancels that context and must be called exactly once.
func (m *CtxMutex) Hold(ctx context.Context, timeout time.Duration) (held context.Context, release func(), err error) {
	held, cancel := context.WithTimeout(ctx, timeout)
	if err := m.Lock(held); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("lock not acquired within %s: %w", timeout, err)
	}

	return held, func() {
		m.Unlock()
		cancel()
	}, nil
}
