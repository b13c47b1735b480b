package forking

import (
	"sync"
	"time"

	"github.com/NethermindEth/cheatnet/starknet"
	"github.com/NethermindEth/cheatnet/utils"
)

type registryKey struct {
	fork  string
	block string
}

// Registry shares one Cache per fork block between tests of a process.
type Registry struct {
	mu       sync.Mutex
	caches   map[registryKey]*Cache
	store    *Store
	listener EventListener
	log      utils.SimpleLogger
	timeout  time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		caches:   make(map[registryKey]*Cache),
		listener: &SelectiveListener{},
		log:      utils.NewNopZapLogger(),
		timeout:  DefaultTimeout,
	}
}

func (r *Registry) WithStore(s *Store) *Registry {
	r.store = s
	return r
}

func (r *Registry) WithListener(l EventListener) *Registry {
	r.listener = l
	return r
}

func (r *Registry) WithLogger(log utils.SimpleLogger) *Registry {
	r.log = log
	return r
}

func (r *Registry) WithTimeout(t time.Duration) *Registry {
	r.timeout = t
	return r
}

// Cache returns the cache of (url, block), creating it over remote on first
// use. Later callers get the existing cache and their remote is ignored.
func (r *Registry) Cache(url string, block starknet.BlockID, remote Remote) *Cache {
	key := registryKey{fork: SanitizeURL(url), block: block.String()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cache, found := r.caches[key]; found {
		return cache
	}

	cache := NewCache(remote, url, block).
		WithStore(r.store).
		WithListener(r.listener).
		WithLogger(r.log).
		WithTimeout(r.timeout)
	r.caches[key] = cache
	r.log.Debugw("Created fork cache", "fork", key.fork, "block", key.block)
	return cache
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.caches)
}
