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
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFSStore(t *testing.T) Store {
	s, err := NewFSStore(FSConfig{Dir: filepath.Join(t.TempDir(), "database")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFSStorePutGet(t *testing.T) {
	s := newTestFSStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "key", "value"))

	value, err := s.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestFSStoreGetMissing(t *testing.T) {
	s := newTestFSStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSStoreOverwrite(t *testing.T) {
	s := newTestFSStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", "one"))
	require.NoError(t, s.Put(ctx, "a", "two"))

	value, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "two", value)
}

func TestFSStoreFileLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "database")
	s, err := NewFSStore(FSConfig{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "key", "value"))
	require.NoError(t, s.Put(ctx, "", "empty"))

	b, err := os.ReadFile(filepath.Join(dir, "key-key"))
	require.NoError(t, err)
	assert.Equal(t, "value", string(b))

	// 空键对应文件名 key-
	b, err = os.ReadFile(filepath.Join(dir, "key-"))
	require.NoError(t, err)
	assert.Equal(t, "empty", string(b))
}

func TestFSStoreClosed(t *testing.T) {
	s := newTestFSStore(t)
	require.NoError(t, s.Close())

	err := s.Put(context.Background(), "key", "value")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.Get(context.Background(), "key")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFSStoreContextCanceled(t *testing.T) {
	s := newTestFSStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Put(ctx, "key", "value")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFSStoreConcurrent(t *testing.T) {
	s := newTestFSStore(t)
	ctx := context.Background()

	// 多个 goroutine 写同一个键 串行化由 actor 保证
	// 最终读到的值必须是某个 goroutine 写入的完整值
	values := []string{"aaaa", "bbbb", "cccc", "dddd"}

	var wg sync.WaitGroup
	for _, v := range values {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				assert.NoError(t, s.Put(ctx, "shared", v))
			}
		}(v)
	}
	wg.Wait()

	got, err := s.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Contains(t, values, got)
}
