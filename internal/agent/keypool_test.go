package agent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyPoolEmpty(t *testing.T) {
	_, err := NewKeyPool(nil)
	assert.Error(t, err)
}

func TestKeyPoolRoundRobin(t *testing.T) {
	pool, err := NewKeyPool([]string{"k1", "k2", "k3"})
	require.NoError(t, err)

	// 连续取用应依次轮询并回绕
	got := []string{pool.Next(), pool.Next(), pool.Next(), pool.Next()}
	assert.Equal(t, []string{"k1", "k2", "k3", "k1"}, got)
}

func TestKeyPoolConcurrentDistribution(t *testing.T) {
	pool, err := NewKeyPool([]string{"a", "b"})
	require.NoError(t, err)

	const n = 100
	counts := make(map[string]int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := pool.Next()
			mu.Lock()
			counts[k]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	// 原子计数保证两把密钥精确均分
	assert.Equal(t, n/2, counts["a"])
	assert.Equal(t, n/2, counts["b"])
}
