// Package location provides location channels: where the navigator persists
// the selected instant and learns about externally driven changes to it.
package location

import (
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process location channel with browser-like history.
// Subscribers are notified synchronously, without the lock held, whenever the
// current value changes.
type Memory struct {
	mu      sync.Mutex
	entries []string
	pos     int
	subs    map[uint64]func()
	nextID  uint64
}

// NewMemory returns a channel whose single history entry is initial.
func NewMemory(initial string) *Memory {
	return &Memory{
		entries: []string{normalize(initial)},
		subs:    make(map[uint64]func()),
	}
}

// Read returns the current value.
func (m *Memory) Read() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.pos]
}

// Write replaces the current history entry.
func (m *Memory) Write(fragment string) {
	fragment = normalize(fragment)

	m.mu.Lock()
	changed := m.entries[m.pos] != fragment
	m.entries[m.pos] = fragment
	m.mu.Unlock()

	if changed {
		m.notify()
	}
}

// Navigate pushes fragment as a new history entry, discarding any forward
// entries, the way following a link does.
func (m *Memory) Navigate(fragment string) {
	fragment = normalize(fragment)

	m.mu.Lock()
	changed := m.entries[m.pos] != fragment
	m.entries = append(m.entries[:m.pos+1], fragment)
	m.pos++
	m.mu.Unlock()

	if changed {
		m.notify()
	}
}

// Back moves one entry back in history. It reports false at the oldest entry.
func (m *Memory) Back() bool {
	return m.move(-1)
}

// Forward moves one entry forward in history. It reports false at the newest entry.
func (m *Memory) Forward() bool {
	return m.move(1)
}

// History returns a copy of all entries and the index of the current one.
func (m *Memory) History() ([]string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.entries...), m.pos
}

// Subscribe registers fn for value changes.
func (m *Memory) Subscribe(fn func()) (cancel func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Memory) move(delta int) bool {
	m.mu.Lock()
	next := m.pos + delta
	if next < 0 || next >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	changed := m.entries[m.pos] != m.entries[next]
	m.pos = next
	m.mu.Unlock()

	if changed {
		m.notify()
	}
	return true
}

func (m *Memory) notify() {
	m.mu.Lock()
	ids := make([]uint64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.subs[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// normalize strips the leading '#' a URL fragment carries.
func normalize(fragment string) string {
	return strings.TrimPrefix(fragment, "#")
}
