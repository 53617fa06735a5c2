package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	data     []byte
	deadline time.Time
}

func (e entry) expired(now time.Time) bool { return !now.Before(e.deadline) }

// InMemoryCache sustituye a Redis cuando no hay servidor disponible.
// Las entradas caducadas se ignoran al leer y un barrido periódico las elimina.
type InMemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time

	done chan struct{}
	once sync.Once
}

func NewInMemoryCache(defaultTTL, sweepEvery time.Duration) *InMemoryCache {
	c := &InMemoryCache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	go c.janitor(sweepEvery)
	return c
}

func (c *InMemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		return false, nil
	}
	return decode(key, e.data, dest)
}

func (c *InMemoryCache) Set(_ context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := encode(key, val)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[key] = entry{data: data, deadline: c.now().Add(ttlOr(ttl, c.defaultTTL))}
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len cuenta las entradas almacenadas, caducadas incluidas hasta el siguiente barrido.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop detiene el barrido. Es seguro llamarlo varias veces.
func (c *InMemoryCache) Stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *InMemoryCache) sweep() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

func (c *InMemoryCache) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			c.sweep()
		}
	}
}

var _ Cache = (*InMemoryCache)(nil)
