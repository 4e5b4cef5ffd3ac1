package domain

import (
	"sync"
)

// ResultCache holds the latest reconciliation result per period. It is the
// only mutable shared state in the engine.
//
// Concurrency contract: at most one in-flight run per period (BeginRun blocks
// until the period is free), distinct periods proceed independently, and reads
// never block on another period's run. Each run carries a monotonic id; a
// commit is discarded when a newer run for the same period has begun, so an
// abandoned run cannot overwrite a fresher result.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]*Result
	locks   map[string]*sync.Mutex
	lastRun map[string]uint64
	seq     uint64
}

func NewResultCache() *ResultCache {
	return &ResultCache{
		entries: make(map[string]*Result),
		locks:   make(map[string]*sync.Mutex),
		lastRun: make(map[string]uint64),
	}
}

// RunToken identifies one reconciliation run against a period.
type RunToken struct {
	period string
	id     uint64
}

// BeginRun serializes runs per period and registers a new run id. The returned
// release func must be called when the run ends, committed or not.
func (c *ResultCache) BeginRun(period string) (RunToken, func()) {
	c.mu.Lock()
	lock, ok := c.locks[period]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[period] = lock
	}
	c.mu.Unlock()

	lock.Lock()

	c.mu.Lock()
	c.seq++
	id := c.seq
	c.lastRun[period] = id
	c.mu.Unlock()

	return RunToken{period: period, id: id}, lock.Unlock
}

// Commit installs a run's result, fully replacing the period's entry. Returns
// false when the token is stale.
func (c *ResultCache) Commit(tok RunToken, res *Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastRun[tok.period] != tok.id {
		return false
	}
	res.runID = tok.id
	c.entries[tok.period] = res
	return true
}

// Get returns the latest committed result for a period.
func (c *ResultCache) Get(period string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[period]
	return res, ok
}

// Snapshot returns the current entry per period. The map is a copy; the
// results it points to are immutable once committed.
func (c *ResultCache) Snapshot() map[string]*Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*Result, len(c.entries))
	for period, res := range c.entries {
		out[period] = res
	}
	return out
}

// FindMismatch scans all cached periods for a mismatch id.
func (c *ResultCache) FindMismatch(id string) (Mismatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, res := range c.entries {
		for _, m := range res.Mismatches {
			if m.ID == id {
				return m, true
			}
		}
	}
	return Mismatch{}, false
}
