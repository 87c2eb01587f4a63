// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package watch

import (
	"sort"
	"strings"
	"sync"
)

// Memory is the set of normalized addresses already processed. It only grows.
type Memory struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Seen reports whether address was already added.
func (m *Memory) Seen(address string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[normalize(address)]
	return ok
}

// Add records address and reports whether it was new.
func (m *Memory) Add(address string) bool {
	key := normalize(address)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return false
	}
	m.seen[key] = struct{}{}
	return true
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}

// Snapshot returns the addresses in sorted order.
func (m *Memory) Snapshot() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.seen))
	for a := range m.seen {
		out = append(out, a)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}
