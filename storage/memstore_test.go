// Copyright 2025 The kvstored Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStorePutGet(t *testing.T) {
	s := NewMemStore(MemoryConfig{})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "key", "value"))

	value, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestMemStoreGetMissing(t *testing.T) {
	s := NewMemStore(MemoryConfig{})

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreOverwrite(t *testing.T) {
	s := NewMemStore(MemoryConfig{})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", "one"))
	require.NoError(t, s.Put(ctx, "a", "two"))

	value, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "two", value)
}

func TestMemStoreEmptyKeyAndValue(t *testing.T) {
	s := NewMemStore(MemoryConfig{Shards: 1})
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "", ""))

	value, err := s.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestMemStoreConcurrent(t *testing.T) {
	s := NewMemStore(MemoryConfig{Shards: 4})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key%c", 'a'+i)
			for j := 0; j < 100; j++ {
				assert.NoError(t, s.Put(ctx, key, "value"))
				value, err := s.Get(ctx, key)
				assert.NoError(t, err)
				assert.Equal(t, "value", value)
			}
		}(i)
	}
	wg.Wait()
}
