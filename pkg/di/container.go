package di

import (
	"sync"

	"github.com/goliatone/go-call-cache/cache"
	"github.com/goliatone/go-call-cache/statecache"
)

// Container provides dependency injection for cache related components.
// It owns the shared default store that callers would otherwise reach
// through a package level variable, and hands out state bound stores that
// share its configuration.
type Container struct {
	mu     sync.RWMutex
	store  *cache.Store
	config cache.Config
}

// NewContainer creates a new DI container with the provided cache configuration.
// The configuration is validated before the default store is built.
func NewContainer(config cache.Config) (*Container, error) {
	store, err := cache.NewStore(config)
	if err != nil {
		return nil, err
	}

	return &Container{
		store:  store,
		config: config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// Store returns the shared default store. The same instance is returned
// until Replace swaps it.
func (c *Container) Store() *cache.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// Replace builds a new default store from config and closes the old one.
// On a validation error the current store is kept.
func (c *Container) Replace(config cache.Config) error {
	store, err := cache.NewStore(config)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.store
	c.store = store
	c.config = config
	c.mu.Unlock()

	old.Close()
	return nil
}

// NewStateStore binds a statecache.Store to host using the container's
// configuration. A nil host gets its own in-memory host.
func (c *Container) NewStateStore(host statecache.Host) (*statecache.Store, error) {
	return statecache.New(host, c.Config())
}

// Close closes the default store.
func (c *Container) Close() {
	c.Store().Close()
}
