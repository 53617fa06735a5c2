package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache guarda documentos serializados en JSON bajo una clave.
// Get devuelve (false, nil) en un miss; un ttl <= 0 en Set aplica el TTL por defecto.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const keyPrefix = "jobber"

// Key compone claves con namespace, ej. Key("gig", id) = "jobber:gig:<id>".
func Key(namespace, id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, namespace, id)
}

func encode(key string, val interface{}) ([]byte, error) {
	data, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("cache: encode %q: %w", key, err)
	}
	return data, nil
}

func decode(key string, data []byte, dest interface{}) (bool, error) {
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return true, nil
}

func ttlOr(ttl, fallback time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return fallback
}
