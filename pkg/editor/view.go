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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/backoff"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/metrics"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/safejson"
)

// Source provides the data an editor view loads at mount.
type Source interface {
	FetchConfig(ctx context.Context) (config.LocalConfig, error)
	FetchCameras(ctx context.Context) ([]config.DetectedCamera, error)
	FetchSchema(ctx context.Context) (safejson.RawMessage, error)
}

const (
	StateLoading   = "loading"
	StateReady     = "ready"
	StateUnmounted = "unmounted"

	EventLoaded  = "loaded"
	EventUnmount = "unmount"
)

const (
	resourceConfig  = "config"
	resourceCameras = "cameras"
	resourceSchema  = "schema"
)

// View is the loading lifecycle of one editor: it fetches config, camera list
// and schema in parallel, retrying each until it succeeds or the view is
// unmounted, and becomes ready once config and cameras are present.
type View struct {
	machine *fsm.FSM
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	// ready and unmounted are closed when the machine enters those states.
	ready     chan struct{}
	unmounted chan struct{}
	log       *zap.SugaredLogger

	mu      sync.Mutex
	cfg     *config.LocalConfig
	cameras []config.DetectedCamera
	hasCams bool
	schema  safejson.RawMessage
	errs    map[string]error
}

// Snapshot is the data a view has loaded so far.
type Snapshot struct {
	State   string
	Config  *config.LocalConfig
	Cameras []config.DetectedCamera
	Schema  safejson.RawMessage
	Errors  map[string]string
}

func NewView(log *zap.SugaredLogger) *View {
	v := &View{
		done:      make(chan struct{}),
		ready:     make(chan struct{}),
		unmounted: make(chan struct{}),
		log:       log,
		errs:      map[string]error{},
	}

	v.machine = fsm.NewFSM(
		StateLoading,
		fsm.Events{
			{Name: EventLoaded, Src: []string{StateLoading}, Dst: StateReady},
			{Name: EventUnmount, Src: []string{StateLoading, StateReady}, Dst: StateUnmounted},
		},
		fsm.Callbacks{
			"enter_" + StateReady: func(_ context.Context, e *fsm.Event) {
				v.log.Debugf("view ready (from %s)", e.Src)
				close(v.ready)
			},
			"enter_" + StateUnmounted: func(_ context.Context, e *fsm.Event) {
				v.log.Debugf("view unmounted (from %s)", e.Src)
				close(v.unmounted)
			},
		},
	)

	return v
}

// Mount starts loading from src. The view's fetches live until Unmount or
// until parent is done.
func (v *View) Mount(parent context.Context, src Source) {
	v.ctx, v.cancel = context.WithCancel(parent)
	ctx := v.ctx

	var g errgroup.Group
	g.Go(func() error {
		cfg, err := fetch(ctx, v, resourceConfig, src.FetchConfig)
		if err == nil {
			v.apply(ctx, resourceConfig, func() { v.cfg = &cfg })
		}
		return nil
	})
	g.Go(func() error {
		cams, err := fetch(ctx, v, resourceCameras, src.FetchCameras)
		if err == nil {
			v.apply(ctx, resourceCameras, func() { v.cameras, v.hasCams = cams, true })
		}
		return nil
	})
	g.Go(func() error {
		schema, err := fetch(ctx, v, resourceSchema, src.FetchSchema)
		if err == nil {
			v.apply(ctx, resourceSchema, func() { v.schema = schema })
		}
		return nil
	})

	go func() {
		_ = g.Wait()
		close(v.done)
	}()
}

func fetch[T any](ctx context.Context, v *View, resource string, get func(context.Context) (T, error)) (T, error) {
	out, err := backoff.Retry(ctx, func(ctx context.Context) (T, error) {
		start := time.Now()
		res, err := get(ctx)
		metrics.ObserveFetch(resource, err, time.Since(start))

		return res, err
	}, func(err error, next time.Duration) {
		v.log.Warnf("failed to load %s, retrying in %s: %v", resource, next, err)
		v.setError(ctx, resource, err)
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			metrics.IncErrorCountAndLog(metrics.ComponentView, resource, fmt.Errorf("giving up on %s: %w", resource, err), v.log)
			v.setError(ctx, resource, err)
		}

		return out, err
	}

	return out, nil
}

// apply runs fn under the view lock unless the view has been unmounted, then
// moves to ready once config and cameras are present.
func (v *View) apply(ctx context.Context, resource string, fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	fn()
	delete(v.errs, resource)

	if v.cfg != nil && v.hasCams && v.machine.Can(EventLoaded) {
		if err := v.machine.Event(context.Background(), EventLoaded); err != nil {
			v.log.Errorf("failed to mark view ready: %v", err)
		}
	}
}

func (v *View) setError(ctx context.Context, resource string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	v.errs[resource] = err
}

// Unmount cancels all fetches before any further state change. Results of
// fetches finishing afterwards are discarded.
func (v *View) Unmount() {
	if v.cancel != nil {
		v.cancel()
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.machine.Can(EventUnmount) {
		if err := v.machine.Event(context.Background(), EventUnmount); err != nil {
			v.log.Errorf("failed to unmount view: %v", err)
		}
	}
}

// State returns the lifecycle state.
func (v *View) State() string {
	return v.machine.Current()
}

// Done is closed once every fetch goroutine has returned.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Ready is closed once config and cameras have been loaded. It stays closed
// after the view is unmounted.
func (v *View) Ready() <-chan struct{} {
	return v.ready
}

// WasReady reports whether the view ever became ready.
func (v *View) WasReady() bool {
	select {
	case <-v.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the view is ready, ctx is done, the view is
// unmounted or every fetch has given up.
func (v *View) WaitReady(ctx context.Context) error {
	select {
	case <-v.unmounted:
		return errors.New("view unmounted")
	default:
	}

	select {
	case <-v.ready:
		return nil
	case <-v.unmounted:
		return errors.New("view unmounted")
	case <-ctx.Done():
		return ctx.Err()
	case <-v.done:
		if v.WasReady() {
			return nil
		}

		return errors.New("view stopped loading before it was ready")
	}
}

// Snapshot returns a copy of what has been loaded.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot{
		State:   v.machine.Current(),
		Cameras: append([]config.DetectedCamera(nil), v.cameras...),
		Schema:  v.schema,
		Errors:  make(map[string]string, len(v.errs)),
	}
	if v.cfg != nil {
		cfg := *v.cfg
		s.Config = &cfg
	}
	for k, err := range v.errs {
		s.Errors[k] = err.Error()
	}

	return s
}
