package syncmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	var m Map[string, int]

	_, ok := m.Load("a")
	assert.False(t, ok)

	v, loaded := m.LoadOrStore("a", 1)
	assert.False(t, loaded)
	assert.Equal(t, 1, v)

	v, loaded = m.LoadOrStore("a", 2)
	assert.True(t, loaded)
	assert.Equal(t, 1, v)

	m.Store("b", 3)
	assert.Equal(t, 2, m.Len())

	m.Delete("a")
	_, ok = m.Load("a")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestMap_LoadOrStoreConcurrent(t *testing.T) {
	var m Map[string, *int]
	var wg sync.WaitGroup
	results := make([]*int, 16)

	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := i
			results[i], _ = m.LoadOrStore("key", &n)
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}
