// Marquee - Movie Catalog Search and Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[string, int](3)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	for key, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		got, found := c.Get(key)
		if !found {
			t.Errorf("Expected to find key %q", key)
		}
		if got != want {
			t.Errorf("Get(%q) = %d, want %d", key, got, want)
		}
	}

	if c.Len() != 3 {
		t.Errorf("Expected len 3, got %d", c.Len())
	}
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string, int](3)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	// 'a' becomes most recently used, leaving 'b' as LRU
	c.Get("a")
	c.Add("d", 4)

	if _, found := c.Peek("b"); found {
		t.Error("Expected 'b' to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, found := c.Peek(key); !found {
			t.Errorf("Expected %q to be present", key)
		}
	}
	if st := c.Stats(); st.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", st.Evictions)
	}
}

func TestLRU_OnEvict(t *testing.T) {
	c := NewLRU[int, string](1)

	var evicted []int
	c.OnEvict(func(key int, _ string) { evicted = append(evicted, key) })

	c.Add(1, "one")
	c.Add(2, "two")
	c.Add(3, "three")

	if len(evicted) != 2 || evicted[0] != 1 || evicted[1] != 2 {
		t.Errorf("evicted = %v, want [1 2]", evicted)
	}
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := NewLRU[string, int](2)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("a", 10)
	c.Add("c", 3)

	// Updating 'a' refreshed it, so 'b' was evicted
	if v, _ := c.Peek("a"); v != 10 {
		t.Errorf("Expected updated value 10, got %d", v)
	}
	if _, found := c.Peek("b"); found {
		t.Error("Expected 'b' to be evicted")
	}
}

func TestLRU_RemoveAndClear(t *testing.T) {
	c := NewLRU[string, int](5)
	c.Add("a", 1)
	c.Add("b", 2)

	if !c.Remove("a") {
		t.Error("Expected Remove to report true")
	}
	if c.Remove("a") {
		t.Error("Expected second Remove to report false")
	}

	c.Get("b")
	c.Get("missing")
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Expected empty cache after Clear, got %d", c.Len())
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("Clear should keep counters, got hits=%d misses=%d", st.Hits, st.Misses)
	}

	// List must still be usable after Clear
	c.Add("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Error("Expected cache to work after Clear")
	}
}

func TestLRU_DefaultCapacity(t *testing.T) {
	c := NewLRU[string, int](0)
	if c.Capacity() != DefaultCapacity {
		t.Errorf("Capacity() = %d, want %d", c.Capacity(), DefaultCapacity)
	}
}

func TestLRU_StructKeys(t *testing.T) {
	type key struct {
		a, b int
		s    string
	}
	c := NewLRU[key, string](4)
	c.Add(key{1, 2, "x"}, "first")

	if v, ok := c.Get(key{1, 2, "x"}); !ok || v != "first" {
		t.Error("Expected equal struct key to hit")
	}
	if _, ok := c.Get(key{1, 2, "y"}); ok {
		t.Error("Expected differing struct key to miss")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[string, int](100)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (g*i)%150)
				c.Add(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
