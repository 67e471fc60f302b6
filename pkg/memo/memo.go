// Package memo caches the results of pure pipeline functions. A cached
// result stays valid as long as every external read performed while
// computing it still yields the same fingerprint.
package memo

import (
	"sync"
	"sync/atomic"
)

// Input is a tracked external resource. Fingerprint hashes the current
// value stored under key, including whether it exists at all.
type Input interface {
	Namespace() string
	Fingerprint(key string) uint64
}

// Read is one recorded access to an input.
type Read struct {
	Namespace string
	Key       string
	Hash      uint64
}

type readKey struct{ ns, key string }

// Recorder collects the reads of one memoized computation. Reads of nested
// computations are forwarded to the enclosing recorder.
type Recorder struct {
	mu     sync.Mutex
	reads  []Read
	seen   map[readKey]bool
	parent *Recorder
}

// NewRecorder returns a recorder that forwards to parent, which may be nil.
func NewRecorder(parent *Recorder) *Recorder {
	return &Recorder{seen: make(map[readKey]bool), parent: parent}
}

// Record notes that key of namespace ns was read and hashed to hash.
// A nil recorder ignores the read.
func (r *Recorder) Record(ns, key string, hash uint64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	k := readKey{ns, key}
	if !r.seen[k] {
		r.seen[k] = true
		r.reads = append(r.reads, Read{Namespace: ns, Key: key, Hash: hash})
	}
	r.mu.Unlock()
	r.parent.Record(ns, key, hash)
}

// Reads returns the reads recorded so far.
func (r *Recorder) Reads() []Read {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Read(nil), r.reads...)
}

// replay forwards reads of a cache hit to r.
func (r *Recorder) replay(reads []Read) {
	for _, rd := range reads {
		r.Record(rd.Namespace, rd.Key, rd.Hash)
	}
}

// Key identifies a call: the function and a hash of its arguments.
type Key struct {
	Func string
	Args uint64
}

type entry struct {
	output any
	reads  []Read
	used   atomic.Uint64 // epoch of the last hit
}

// Stats counts cache traffic.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Cache stores memoized results. It is safe for concurrent use. Entries are
// never modified after insertion; two goroutines computing the same key
// may both insert, and lookups take whichever valid entry comes first.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key][]*entry
	epoch   atomic.Uint64
	hits    atomic.Uint64
	misses  atomic.Uint64
	calls   sync.Map // Func -> *atomic.Uint64, computations per function
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[Key][]*entry)}
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := 0
	for _, es := range c.entries {
		n += len(es)
	}
	c.mu.RUnlock()
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}

// Computations returns how often fn was actually computed.
func (c *Cache) Computations(fn string) uint64 {
	if v, ok := c.calls.Load(fn); ok {
		return v.(*atomic.Uint64).Load()
	}
	return 0
}

// Tick starts a new compilation epoch. Entries remember the epoch of
// their last use so Evict can drop stale ones.
func (c *Cache) Tick() uint64 { return c.epoch.Add(1) }

// Evict drops entries that were not used during the last maxAge epochs
// and returns how many were removed.
func (c *Cache) Evict(maxAge uint64) int {
	now := c.epoch.Load()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, es := range c.entries {
		kept := es[:0:0]
		for _, e := range es {
			if now-e.used.Load() <= maxAge {
				kept = append(kept, e)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(c.entries, k)
		} else {
			c.entries[k] = kept
		}
	}
	return removed
}

// lookup finds a valid entry for k.
func (c *Cache) lookup(k Key, inputs map[string]Input) *entry {
	c.mu.RLock()
	es := c.entries[k]
	c.mu.RUnlock()
	for _, e := range es {
		if valid(e.reads, inputs) {
			return e
		}
	}
	return nil
}

func (c *Cache) insert(k Key, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.entries[k]
	es := make([]*entry, 0, len(old)+1)
	es = append(es, e)
	es = append(es, old...)
	c.entries[k] = es
}

func valid(reads []Read, inputs map[string]Input) bool {
	for _, rd := range reads {
		in, ok := inputs[rd.Namespace]
		if !ok || in.Fingerprint(rd.Key) != rd.Hash {
			return false
		}
	}
	return true
}

// Memoize returns the cached result of fn for args if every read recorded
// for it is unchanged against inputs. Otherwise it runs compute with a
// fresh recorder, caches the result and returns it. The reads of the call,
// fresh or cached, are forwarded to parent. Errors are not cached. A nil
// cache computes every time.
func Memoize[T any](c *Cache, parent *Recorder, fn string, args uint64, inputs []Input, compute func(*Recorder) (T, error)) (T, error) {
	if c == nil {
		return compute(NewRecorder(parent))
	}
	byNS := make(map[string]Input, len(inputs))
	for _, in := range inputs {
		byNS[in.Namespace()] = in
	}

	k := Key{Func: fn, Args: args}
	if e := c.lookup(k, byNS); e != nil {
		if out, ok := e.output.(T); ok {
			c.hits.Add(1)
			e.used.Store(c.epoch.Load())
			parent.replay(e.reads)
			return out, nil
		}
	}

	c.misses.Add(1)
	counter, _ := c.calls.LoadOrStore(fn, new(atomic.Uint64))
	counter.(*atomic.Uint64).Add(1)

	rec := NewRecorder(parent)
	out, err := compute(rec)
	if err != nil {
		return out, err
	}
	e := &entry{output: out, reads: rec.Reads()}
	e.used.Store(c.epoch.Load())
	c.insert(k, e)
	return out, nil
}
