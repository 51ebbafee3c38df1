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

package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/united-manufacturing-hub/expiremap/v2/pkg/expiremap"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/editor"
)

// sessionTable holds the mounted editor sessions. seen expires entries that
// were not touched for the TTL; the sweep then closes their sessions.
type sessionTable struct {
	mu   sync.Mutex
	live map[string]*editor.Session
	seen *expiremap.ExpireMap[string, time.Time]
}

func newSessionTable(ttl time.Duration, cull time.Duration) *sessionTable {
	return &sessionTable{
		live: map[string]*editor.Session{},
		seen: expiremap.NewEx[string, time.Time](cull, ttl),
	}
}

func (t *sessionTable) create(ctx context.Context, deps editor.Deps) *editor.Session {
	s := editor.NewSession(ctx, uuid.NewString(), deps)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[s.ID] = s
	t.seen.Set(s.ID, time.Now())

	return s
}

// get returns the session and refreshes its TTL. Expired sessions are
// closed and reported as missing.
func (t *sessionTable) get(id string) (*editor.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.live[id]
	if !ok {
		return nil, false
	}
	if _, fresh := t.seen.Load(id); !fresh {
		s.Close()
		delete(t.live, id)
		return nil, false
	}
	t.seen.Set(id, time.Now())

	return s, true
}

func (t *sessionTable) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.live[id]
	if !ok {
		return false
	}
	s.Close()
	delete(t.live, id)

	return true
}

// sweep closes expired sessions and returns how many it closed.
func (t *sessionTable) sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	closed := 0
	for id, s := range t.live {
		if _, fresh := t.seen.Load(id); fresh {
			continue
		}
		s.Close()
		delete(t.live, id)
		closed++
	}

	return closed
}

func (t *sessionTable) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, s := range t.live {
		s.Close()
		delete(t.live, id)
	}
}

func (t *sessionTable) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.live)
}
