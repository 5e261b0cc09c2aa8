// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import lru "github.com/hashicorp/golang-lru"

// LRU is a typed LRU cache over golang-lru, recording hit stats.
type LRU[K comparable, V any] struct {
	cache *lru.Cache
	stats Stats
}

// NewLRU create a LRU cache instance.
// maxSize should be > 0, or an error returned.
func NewLRU[K comparable, V any](maxSize int) (*LRU[K, V], error) {
	cache, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{cache: cache}, nil
}

// Get returns the cached value of key.
func (l *LRU[K, V]) Get(key K) (value V, ok bool) {
	v, ok := l.cache.Get(key)
	if !ok {
		l.stats.Miss()
		return value, false
	}
	l.stats.Hit()
	return v.(V), true
}

// Add adds a value, evicting the least recently used entry when full.
func (l *LRU[K, V]) Add(key K, value V) {
	l.cache.Add(key, value)
}

// GetOrLoad first try to get from cache, do load if missed.
func (l *LRU[K, V]) GetOrLoad(key K, loader func(K) (V, error)) (V, error) {
	if v, ok := l.Get(key); ok {
		return v, nil
	}
	v, err := loader(key)
	if err != nil {
		return v, err
	}
	l.Add(key, v)
	return v, nil
}

// Values returns cached values, oldest first.
func (l *LRU[K, V]) Values() []V {
	keys := l.cache.Keys()
	values := make([]V, 0, len(keys))
	for _, k := range keys {
		if v, ok := l.cache.Peek(k); ok {
			values = append(values, v.(V))
		}
	}
	return values
}

func (l *LRU[K, V]) Len() int {
	return l.cache.Len()
}

func (l *LRU[K, V]) Stats() *Stats {
	return &l.stats
}
