package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.Equal(t, ":memory:", store.Path())

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestNewConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(
		map[string]any{"embedding.provider": "ollama"},
		map[string]any{"embedding.burst": 4},
	)

	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, 4, store.GetInt("embedding.burst"))
}

func TestConfigStore_Set_Update(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("key", "original"))
	require.NoError(t, store.Set("key", "updated"))

	val, ok := store.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "updated", val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"string":  "value",
		"int":     42,
		"int64":   int64(7),
		"float":   2.5,
		"float32": float32(1.5),
		"bool":    true,
		"strings": []string{"a", "b"},
		"anys":    []any{"x", 1, "y"},
	})

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"string", store.GetString("string"), "value"},
		{"string wrong type", store.GetString("int"), ""},
		{"string missing", store.GetString("missing"), ""},
		{"int", store.GetInt("int"), 42},
		{"int from int64", store.GetInt("int64"), 7},
		{"int from float", store.GetInt("float"), 2},
		{"int wrong type", store.GetInt("string"), 0},
		{"float", store.GetFloat("float"), 2.5},
		{"float from float32", store.GetFloat("float32"), 1.5},
		{"float from int", store.GetFloat("int"), 42.0},
		{"float from int64", store.GetFloat("int64"), 7.0},
		{"float wrong type", store.GetFloat("bool"), 0.0},
		{"bool", store.GetBool("bool"), true},
		{"bool wrong type", store.GetBool("string"), false},
		{"string slice", store.GetStringSlice("strings"), []string{"a", "b"}},
		{"string slice from any", store.GetStringSlice("anys"), []string{"x", "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}

	assert.Nil(t, store.GetStringSlice("string"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_SaveLoadNoOp(t *testing.T) {
	store := NewConfigStore(map[string]any{"key": "value"})

	require.NoError(t, store.Save())
	require.NoError(t, store.Load())
	assert.Equal(t, "value", store.GetString("key"))
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("counter", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("counter")
		}()
	}
	wg.Wait()

	_, ok := store.Get("counter")
	assert.True(t, ok)
}
