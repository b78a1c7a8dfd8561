package jsont

import (
	"container/list"
	"sync"
	"time"
)

// CacheConfig contains configuration options for the template cache
type CacheConfig struct {
	// MaxSize is the maximum number of templates to cache. 0 disables caching.
	MaxSize int
	// TTL is the time-to-live for cached templates. 0 means no expiration.
	TTL time.Duration
}

// TemplateCache is an LRU cache of compiled templates with optional
// expiry. Compiled templates are immutable, so a cached entry may be
// executed by many renders at once.
type TemplateCache struct {
	mu     sync.Mutex
	cache  map[string]*cacheEntry
	lru    *list.List
	config CacheConfig
	now    func() time.Time
}

type cacheEntry struct {
	key      string
	template *CompiledTemplate
	expiry   time.Time
	element  *list.Element
}

// NewTemplateCache creates a cache sized from the global configuration
func NewTemplateCache() *TemplateCache {
	config := GetGlobalConfig()
	return NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: config.CacheMaxSize,
		TTL:     config.CacheTTL,
	})
}

// NewTemplateCacheWithConfig creates a new template cache with the given configuration
func NewTemplateCacheWithConfig(config CacheConfig) *TemplateCache {
	return &TemplateCache{
		cache:  make(map[string]*cacheEntry),
		lru:    list.New(),
		config: config,
		now:    time.Now,
	}
}

// GetOrCompile returns the cached template for key, calling compile on a
// miss. Failed compilations are not cached.
func (tc *TemplateCache) GetOrCompile(key string, compile func() (*CompiledTemplate, error)) (*CompiledTemplate, error) {
	if tmpl, ok := tc.Get(key); ok {
		return tmpl, nil
	}
	tmpl, err := compile()
	if err != nil {
		return nil, err
	}
	tc.Set(key, tmpl)
	return tmpl, nil
}

// Get retrieves a template, dropping it when it has expired
func (tc *TemplateCache) Get(key string) (*CompiledTemplate, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	entry, exists := tc.cache[key]
	if !exists {
		return nil, false
	}
	if tc.expired(entry) {
		tc.remove(entry)
		return nil, false
	}
	tc.lru.MoveToFront(entry.element)
	return entry.template, true
}

// Set adds a template to the cache
func (tc *TemplateCache) Set(key string, template *CompiledTemplate) {
	if tc.config.MaxSize <= 0 {
		return
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if existing, exists := tc.cache[key]; exists {
		existing.template = template
		existing.expiry = tc.expiry()
		tc.lru.MoveToFront(existing.element)
		return
	}

	for tc.lru.Len() >= tc.config.MaxSize {
		oldest := tc.lru.Back()
		if oldest == nil {
			break
		}
		tc.remove(oldest.Value.(*cacheEntry))
	}

	entry := &cacheEntry{
		key:      key,
		template: template,
		expiry:   tc.expiry(),
	}
	entry.element = tc.lru.PushFront(entry)
	tc.cache[key] = entry
}

// Remove removes a template from the cache
func (tc *TemplateCache) Remove(key string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if entry, exists := tc.cache[key]; exists {
		tc.remove(entry)
	}
}

// Clear removes all templates from the cache
func (tc *TemplateCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.cache = make(map[string]*cacheEntry)
	tc.lru = list.New()
}

// Size returns the current number of cached templates
func (tc *TemplateCache) Size() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.cache)
}

func (tc *TemplateCache) remove(entry *cacheEntry) {
	delete(tc.cache, entry.key)
	tc.lru.Remove(entry.element)
}

func (tc *TemplateCache) expiry() time.Time {
	if tc.config.TTL <= 0 {
		return time.Time{}
	}
	return tc.now().Add(tc.config.TTL)
}

func (tc *TemplateCache) expired(entry *cacheEntry) bool {
	return tc.config.TTL > 0 && tc.now().After(entry.expiry)
}
