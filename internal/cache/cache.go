// Package cache implements the category-tiered TTL cache used by the
// invocation engine. Each category is an independent tier with its own lock,
// default TTL, and LRU bound, so traffic on one category never blocks
// another.
//
// Expiry is sweep-based: entries past their TTL stay visible until Sweep,
// Invalidate, or an overwrite removes them. That read-after-expiry tolerance
// is deliberate; callers that need hard freshness trigger Sweep themselves.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"caprun/internal/logging"
)

// Store is the cache surface shared by the memory and disk backends.
type Store interface {
	// Get returns the cached value for (category, key), or a miss.
	Get(category, key string) (any, bool)

	// Put stores a value. A zero ttl uses the category's default.
	Put(category, key string, value any, ttl time.Duration)

	// Invalidate clears one category, or everything when category is empty.
	// Returns the number of entries removed.
	Invalidate(category string) int

	// InvalidateComponent removes entries belonging to one component across
	// all categories. Engine keys are "<component>/..." so this is a prefix
	// match.
	InvalidateComponent(component string) int

	// Sweep removes all entries whose creation time plus TTL has passed.
	// Returns the number removed.
	Sweep() int

	// SetTTLs replaces the category -> TTL table. Existing entries keep the
	// TTL they were stored with; new Puts use the updated table.
	SetTTLs(tiers map[string]time.Duration)

	// Close releases backend resources.
	Close() error
}

// Config holds the category -> TTL table and sizing.
type Config struct {
	// Tiers maps category names to their default TTL.
	Tiers map[string]time.Duration

	// DefaultTTL applies to categories absent from Tiers.
	DefaultTTL time.Duration

	// MaxEntriesPerTier bounds each tier; least recently used entries are
	// evicted first. Zero means unbounded.
	MaxEntriesPerTier int
}

// DefaultConfig mirrors the tier layout used for API-backed data: long-lived
// profile data, medium repository metadata and search results, short-lived
// file content.
func DefaultConfig() Config {
	return Config{
		Tiers: map[string]time.Duration{
			"profile": time.Hour,
			"repo":    30 * time.Minute,
			"search":  10 * time.Minute,
			"content": 5 * time.Minute,
		},
		DefaultTTL:        5 * time.Minute,
		MaxEntriesPerTier: 1000,
	}
}

type entry struct {
	key       string
	value     any
	createdAt time.Time
	ttl       time.Duration
	elem      *list.Element
}

type tier struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lru     *list.List // front = most recently used
}

// Memory is the in-process Store.
type Memory struct {
	cfg Config

	mu    sync.RWMutex
	tiers map[string]*tier

	// now is swapped in tests to advance time.
	now func() time.Time
}

// NewMemory creates a memory cache from config.
func NewMemory(cfg Config) *Memory {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	return &Memory{
		cfg:   cfg,
		tiers: make(map[string]*tier),
		now:   time.Now,
	}
}

func (m *Memory) tierFor(category string, create bool) *tier {
	m.mu.RLock()
	t, ok := m.tiers[category]
	m.mu.RUnlock()
	if ok || !create {
		return t
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tiers[category]; ok {
		return t
	}
	t = &tier{entries: make(map[string]*entry), lru: list.New()}
	m.tiers[category] = t
	return t
}

func (m *Memory) ttlFor(category string, ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.cfg.Tiers[category]; ok {
		return d
	}
	return m.cfg.DefaultTTL
}

// SetTTLs replaces the tier table, typically on config reload.
func (m *Memory) SetTTLs(tiers map[string]time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Tiers = tiers
}

// Get returns the cached value for (category, key). Expired-but-unswept
// entries are still returned.
func (m *Memory) Get(category, key string) (any, bool) {
	t := m.tierFor(category, false)
	if t == nil {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	t.lru.MoveToFront(e.elem)
	return e.value, true
}

// Put stores a value under (category, key).
func (m *Memory) Put(category, key string, value any, ttl time.Duration) {
	t := m.tierFor(category, true)

	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		e.value = value
		e.createdAt = m.now()
		e.ttl = m.ttlFor(category, ttl)
		t.lru.MoveToFront(e.elem)
		return
	}

	e := &entry{
		key:       key,
		value:     value,
		createdAt: m.now(),
		ttl:       m.ttlFor(category, ttl),
	}
	e.elem = t.lru.PushFront(e)
	t.entries[key] = e

	if m.cfg.MaxEntriesPerTier > 0 {
		for len(t.entries) > m.cfg.MaxEntriesPerTier {
			oldest := t.lru.Back()
			if oldest == nil {
				break
			}
			evicted := oldest.Value.(*entry)
			t.lru.Remove(oldest)
			delete(t.entries, evicted.key)
		}
	}
}

// Invalidate clears one category, or all categories when empty.
func (m *Memory) Invalidate(category string) int {
	m.mu.RLock()
	var targets []*tier
	if category == "" {
		targets = make([]*tier, 0, len(m.tiers))
		for _, t := range m.tiers {
			targets = append(targets, t)
		}
	} else if t, ok := m.tiers[category]; ok {
		targets = []*tier{t}
	}
	m.mu.RUnlock()

	removed := 0
	for _, t := range targets {
		t.mu.Lock()
		removed += len(t.entries)
		t.entries = make(map[string]*entry)
		t.lru.Init()
		t.mu.Unlock()
	}

	if removed > 0 {
		logging.Get(logging.CategoryCache).Debugf("invalidated %d entries (category=%q)", removed, category)
	}
	return removed
}

// InvalidateComponent removes entries keyed under a component name prefix.
func (m *Memory) InvalidateComponent(component string) int {
	prefix := component + "/"
	removed := 0

	m.mu.RLock()
	tiers := make([]*tier, 0, len(m.tiers))
	for _, t := range m.tiers {
		tiers = append(tiers, t)
	}
	m.mu.RUnlock()

	for _, t := range tiers {
		t.mu.Lock()
		for key, e := range t.entries {
			if strings.HasPrefix(key, prefix) {
				t.lru.Remove(e.elem)
				delete(t.entries, key)
				removed++
			}
		}
		t.mu.Unlock()
	}

	if removed > 0 {
		logging.Get(logging.CategoryCache).Debugf("invalidated %d entries for component %q", removed, component)
	}
	return removed
}

// Sweep removes entries whose createdAt + ttl is in the past.
func (m *Memory) Sweep() int {
	now := m.now()
	removed := 0

	m.mu.RLock()
	tiers := make([]*tier, 0, len(m.tiers))
	for _, t := range m.tiers {
		tiers = append(tiers, t)
	}
	m.mu.RUnlock()

	for _, t := range tiers {
		t.mu.Lock()
		for key, e := range t.entries {
			if e.createdAt.Add(e.ttl).Before(now) {
				t.lru.Remove(e.elem)
				delete(t.entries, key)
				removed++
			}
		}
		t.mu.Unlock()
	}

	logging.Get(logging.CategoryCache).Debugf("sweep removed %d entries", removed)
	return removed
}

// Len returns the total number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, t := range m.tiers {
		t.mu.RLock()
		n += len(t.entries)
		t.mu.RUnlock()
	}
	return n
}

// Close is a no-op for the memory backend.
func (m *Memory) Close() error { return nil }
