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
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 16

// memStore 内存后端
//
// 按键哈希分片 降低多链接并发读写同一把锁的竞争
// 临界区内只操作映射本身 任何 socket I/O 都在锁外进行
type memStore struct {
	shards []*memShard
}

type memShard struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemStore 创建并返回内存后端实例
func NewMemStore(config MemoryConfig) Store {
	if config.Shards <= 0 {
		config.Shards = defaultShards
	}

	shards := make([]*memShard, config.Shards)
	for i := range shards {
		shards[i] = &memShard{data: make(map[string]string)}
	}
	return &memStore{shards: shards}
}

func (s *memStore) shard(key string) *memShard {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

func (s *memStore) Put(_ context.Context, key, value string) error {
	sh := s.shard(key)
	sh.mu.Lock()
	sh.data[key] = value
	sh.mu.Unlock()
	return nil
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	sh := s.shard(key)
	sh.mu.RLock()
	value, ok := sh.data[key]
	sh.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *memStore) Name() string {
	return BackendMemory
}

func (s *memStore) Close() error {
	return nil
}
