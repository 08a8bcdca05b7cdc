package l402

import (
	"context"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Credential is a previously verified proof plus a client-assigned
// expiry, cached so repeated requests to the same resource settle once.
type Credential struct {
	Macaroon  string    `json:"macaroon"`
	Preimage  string    `json:"preimage"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CredentialStore caches paid credentials keyed by resource identity.
// Implementations must be safe for concurrent use.
type CredentialStore interface {
	// Get returns the cached credential, or false if there is none or
	// it has expired.
	Get(ctx context.Context, key string) (*Credential, bool)

	// Set inserts or overwrites the credential for a key.
	Set(ctx context.Context, key string, cred *Credential)

	// Invalidate removes a credential, used when the server rejects a
	// cached proof on replay.
	Invalidate(ctx context.Context, key string)

	// Sweep removes expired entries. Safe to invoke at any time.
	Sweep(ctx context.Context)

	// Close releases resources owned by the store. Idempotent.
	Close() error
}

// CacheKey derives the cache key for a resource: origin plus path, query
// string stripped. Proof of payment is path-scoped, not query-scoped, so
// two query strings against the same path share an entry. Method may be
// empty for method-agnostic keying.
func CacheKey(u *url.URL, method string) string {
	var b strings.Builder
	if method != "" {
		b.WriteString(strings.ToUpper(method))
		b.WriteByte(' ')
	}
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(u.Path)
	return b.String()
}

// MemoryStoreConfig configures a MemoryStore. Zero values select defaults.
type MemoryStoreConfig struct {
	// MaxEntries bounds the store; the oldest-inserted entry is evicted
	// when a new key arrives at capacity. Default 1000.
	MaxEntries int

	// TTL applies to credentials stored without an expiry. Default 1h.
	TTL time.Duration

	// SweepInterval is how often the background sweep runs. Default 60s.
	SweepInterval time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

const (
	defaultMaxEntries    = 1000
	defaultCredentialTTL = time.Hour
	defaultSweepInterval = time.Minute
)

// MemoryStore is an in-memory CredentialStore. The store owns a
// background sweep goroutine started on construction and stopped by
// Close.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	max     int
	ttl     time.Duration
	now     func() time.Time
	seq     uint64

	stop      chan struct{}
	closeOnce sync.Once
}

type memoryEntry struct {
	cred     Credential
	storedAt time.Time
	seq      uint64
}

// NewMemoryStore creates a MemoryStore and starts its sweep goroutine.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCredentialTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		max:     cfg.MaxEntries,
		ttl:     cfg.TTL,
		now:     cfg.Clock,
		stop:    make(chan struct{}),
	}
	go s.sweepLoop(cfg.SweepInterval)
	return s
}

// Get returns the credential for key. Expired entries are invisible and
// evicted as a side effect.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.cred.ExpiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	cred := e.cred
	return &cred, true
}

// Set inserts or overwrites the credential for key, evicting the
// oldest-inserted entry first when at capacity.
func (s *MemoryStore) Set(ctx context.Context, key string, cred *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cred
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = s.now().Add(s.ttl)
	}

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.max {
		s.evictOldest()
	}

	s.seq++
	s.entries[key] = &memoryEntry{cred: c, storedAt: s.now(), seq: s.seq}
}

// Invalidate removes the credential for key.
func (s *MemoryStore) Invalidate(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Sweep removes all expired entries.
func (s *MemoryStore) Sweep(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
}

// Close stops the background sweep. Cache contents are unaffected, but
// no further automatic eviction occurs.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}

// Len reports the number of live entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) evictOldest() {
	var oldestKey string
	var oldestSeq uint64
	for key, e := range s.entries {
		if oldestKey == "" || e.seq < oldestSeq {
			oldestKey = key
			oldestSeq = e.seq
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

func (s *MemoryStore) sweepLocked() int {
	now := s.now()
	evicted := 0
	for key, e := range s.entries {
		if !now.Before(e.cred.ExpiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			evicted := s.sweepLocked()
			s.mu.Unlock()
			if evicted > 0 {
				log.Printf("l402: cache sweep evicted %d expired credentials", evicted)
			}
		}
	}
}
