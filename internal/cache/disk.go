package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"caprun/internal/logging"
)

// Disk is the optional persistent Store backed by SQLite. Values are stored
// as JSON, so only JSON-serializable results are cacheable on disk. Entries
// survive process restarts; component state does not.
type Disk struct {
	mu  sync.RWMutex
	cfg Config
	db  *sql.DB

	// now is swapped in tests to advance time.
	now func() time.Time
}

const diskSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	category   TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	ttl_ns     INTEGER NOT NULL,
	PRIMARY KEY (category, key)
);
CREATE INDEX IF NOT EXISTS idx_cache_expiry ON cache_entries (created_at, ttl_ns);
`

// NewDisk opens (or creates) a SQLite-backed cache at path.
func NewDisk(path string, cfg Config) (*Disk, error) {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(diskSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}

	logging.Get(logging.CategoryCache).Debugf("disk cache opened at %s", path)
	return &Disk{cfg: cfg, db: db, now: time.Now}, nil
}

func (d *Disk) ttlFor(category string, ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if t, ok := d.cfg.Tiers[category]; ok {
		return t
	}
	return d.cfg.DefaultTTL
}

// SetTTLs replaces the tier table, typically on config reload.
func (d *Disk) SetTTLs(tiers map[string]time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.Tiers = tiers
}

// Get returns the cached value for (category, key).
func (d *Disk) Get(category, key string) (any, bool) {
	var raw string
	err := d.db.QueryRow(
		`SELECT value FROM cache_entries WHERE category = ? AND key = ?`,
		category, key,
	).Scan(&raw)
	if err != nil {
		return nil, false
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		logging.Get(logging.CategoryCache).Warnf("corrupt cache entry %s/%s: %v", category, key, err)
		return nil, false
	}
	return value, true
}

// Put stores a value under (category, key). Non-serializable values are
// dropped with a warning rather than failing the invocation.
func (d *Disk) Put(category, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		logging.Get(logging.CategoryCache).Warnf("value for %s/%s is not JSON-serializable, not cached: %v", category, key, err)
		return
	}

	_, err = d.db.Exec(
		`INSERT INTO cache_entries (category, key, value, created_at, ttl_ns)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (category, key) DO UPDATE SET
		   value = excluded.value, created_at = excluded.created_at, ttl_ns = excluded.ttl_ns`,
		category, key, string(raw), d.now().UnixNano(), int64(d.ttlFor(category, ttl)),
	)
	if err != nil {
		logging.Get(logging.CategoryCache).Warnf("writing cache entry %s/%s: %v", category, key, err)
	}
}

// Invalidate clears one category, or all categories when empty.
func (d *Disk) Invalidate(category string) int {
	var res sql.Result
	var err error
	if category == "" {
		res, err = d.db.Exec(`DELETE FROM cache_entries`)
	} else {
		res, err = d.db.Exec(`DELETE FROM cache_entries WHERE category = ?`, category)
	}
	if err != nil {
		logging.Get(logging.CategoryCache).Warnf("invalidating category %q: %v", category, err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// InvalidateComponent removes entries keyed under a component name prefix.
func (d *Disk) InvalidateComponent(component string) int {
	prefix := component + "/"
	// Escape LIKE metacharacters in the component name.
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	res, err := d.db.Exec(
		`DELETE FROM cache_entries WHERE key LIKE ? ESCAPE '\'`, escaped+"%",
	)
	if err != nil {
		logging.Get(logging.CategoryCache).Warnf("invalidating component %q: %v", component, err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// Sweep removes entries whose created_at + ttl is in the past.
func (d *Disk) Sweep() int {
	res, err := d.db.Exec(
		`DELETE FROM cache_entries WHERE created_at + ttl_ns < ?`, d.now().UnixNano(),
	)
	if err != nil {
		logging.Get(logging.CategoryCache).Warnf("sweeping disk cache: %v", err)
		return 0
	}
	n, _ := res.RowsAffected()
	logging.Get(logging.CategoryCache).Debugf("disk sweep removed %d entries", n)
	return int(n)
}

// Close closes the underlying database.
func (d *Disk) Close() error { return d.db.Close() }
