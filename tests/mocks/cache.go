package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	sharedCache "github.com/davicafu/jobberlab/internal/shared/infra/platform/cache"
)

var _ sharedCache.Cache = (*DummyCache)(nil)

// DummyCache no caduca nunca y lleva la cuenta de hits, escrituras y borrados
// para comprobar el cache-aside desde los tests de servicio.
type DummyCache struct {
	mu      sync.Mutex
	docs    map[string]json.RawMessage
	Hits    int
	Writes  int
	Deletes []string
}

func NewDummyCache() *DummyCache {
	return &DummyCache{docs: map[string]json.RawMessage{}}
}

func (c *DummyCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	raw, ok := c.docs[key]
	if ok {
		c.Hits++
	}
	c.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *DummyCache) Set(_ context.Context, key string, val interface{}, _ time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key] = raw
	c.Writes++
	return nil
}

func (c *DummyCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, key)
	c.Deletes = append(c.Deletes, key)
	return nil
}
