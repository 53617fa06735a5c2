package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const setTimeout = 200 * time.Millisecond

// Invalidate borra la clave de forma síncrona; un fallo solo se registra.
func Invalidate(ctx context.Context, c Cache, key string, log *zap.Logger) {
	if c == nil {
		return
	}
	if err := c.Delete(ctx, key); err != nil {
		log.Warn("Cache deletion failed", zap.String("key", key), zap.Error(err))
	}
}

// Fence impide que una lectura del almacén hecha antes de una invalidación
// repueble la caché después de ella. Cubre las escrituras de este proceso.
//
//	gen := f.Snapshot(key)
//	v := repo.Get(...)
//	f.Fill(ctx, c, key, gen, v, ttl, log)
type Fence struct {
	mu  sync.Mutex
	gen map[string]uint64
}

func NewFence() *Fence {
	return &Fence{gen: make(map[string]uint64)}
}

// Snapshot devuelve la generación actual de key; se toma antes de leer el almacén.
func (f *Fence) Snapshot(key string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen[key]
}

// Fill guarda value solo si key no se invalidó desde gen. Devuelve si se escribió.
// La escritura tiene su propio timeout y no hereda la cancelación de la petición.
func (f *Fence) Fill(ctx context.Context, c Cache, key string, gen uint64, value any, ttl time.Duration, log *zap.Logger) bool {
	if c == nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen[key] != gen {
		return false
	}

	setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), setTimeout)
	defer cancel()
	if err := c.Set(setCtx, key, value, ttl); err != nil {
		log.Warn("Cache update failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Invalidate avanza la generación de key y después la borra de la caché.
func (f *Fence) Invalidate(ctx context.Context, c Cache, key string, log *zap.Logger) {
	f.mu.Lock()
	f.gen[key]++
	f.mu.Unlock()

	Invalidate(ctx, c, key, log)
}
