package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
)

// assertUniqueUnderConcurrency pide n valores en paralelo y comprueba que salen 1..n sin repetir.
func assertUniqueUnderConcurrency(t *testing.T, seq gigDomain.SequenceGenerator, n int) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.Next(context.Background(), gigDomain.SortIDSequence)
			assert.NoError(t, err)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	for i := int64(1); i <= int64(n); i++ {
		assert.True(t, seen[i], "missing %d", i)
	}
}

func TestRedisSequence(t *testing.T) {
	mr := miniredis.RunT(t)
	seq := NewRedisSequence(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	assertUniqueUnderConcurrency(t, seq, 50)

	v, err := seq.Next(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "sequences are independent")
}

func TestRedisSequence_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	seq := NewRedisSequence(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	mr.Close()

	_, err := seq.Next(context.Background(), gigDomain.SortIDSequence)
	assert.Error(t, err)
}

func TestMemorySequence(t *testing.T) {
	assertUniqueUnderConcurrency(t, NewMemorySequence(), 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemorySequence().Next(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
