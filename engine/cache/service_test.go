package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCacheAddOverwrites(t *testing.T) {
	service := NewInMemoryCacheService()

	_, ok := service.Get("missing")
	assert.False(t, ok)

	service.Add("key", 1)
	service.Add("key", 2)

	value, ok := service.Get("key")
	require.True(t, ok)
	assert.Equal(t, 2, value)
	assert.Equal(t, 1, service.Len())
}

func TestInMemoryCacheConcurrentAccess(t *testing.T) {
	service := NewInMemoryCacheService()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%4)
			service.Add(key, n)
			service.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, service.Len())
}

func TestKeyBuildersAreNamespaced(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{"operations vs library", OperationsKey("/study", "x"), LibraryVariablesKey("/study", "x")},
		{"code vs term hierarchies", CodeHierarchiesKey("/meddra"), TermHierarchiesKey("/meddra")},
		{"hierarchies vs pairs", CodeHierarchiesKey("/meddra"), CodeTermPairsKey("/meddra")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, tt.a, tt.b)
		})
	}
}
