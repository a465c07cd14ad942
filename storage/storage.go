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

// Package storage 提供键值后端的统一抽象
//
// 两种后端对外契约完全一致 任何客户端可见的行为差异都视为缺陷
//
// - memory: 分片互斥锁保护的内存映射 所有链接直接读写
// - fs: 单 goroutine actor 独占一个目录 其余 goroutine 经由信箱访问
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kvstored/kvstored/confengine"
)

const (
	BackendMemory = "memory"
	BackendFS     = "fs"
)

var (
	// ErrNotFound 键不存在
	ErrNotFound = errors.New("storage: key not found")

	// ErrClosed 后端已关闭
	ErrClosed = errors.New("storage: backend closed")
)

// Store 键值后端接口
//
// Put / Get 彼此可线性化 Put(k, v) 返回之后 任意链接的 Get(k)
// 在下一次覆盖之前都必须返回 v
type Store interface {
	// Put 建立或覆盖 key 到 value 的绑定
	Put(ctx context.Context, key, value string) error

	// Get 读取 key 当前的绑定 键不存在时返回 ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Name 返回后端名称
	Name() string

	// Close 释放持有的资源
	//
	// fs 后端关闭后的 Put / Get 返回 ErrClosed
	// memory 后端没有需要释放的资源 Close 之后 Put / Get 照常工作 不返回 ErrClosed
	Close() error
}

type Config struct {
	Backend string       `config:"backend"`
	Memory  MemoryConfig `config:"memory"`
	FS      FSConfig     `config:"fs"`
}

type MemoryConfig struct {
	Shards int `config:"shards"`
}

type FSConfig struct {
	Dir     string `config:"dir"`
	Mailbox int    `config:"mailbox"`
}

func (c *Config) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	switch c.Backend {
	case BackendMemory, BackendFS:
	default:
		return errors.Errorf("storage: unknown backend %q", c.Backend)
	}

	if c.Memory.Shards <= 0 {
		c.Memory.Shards = defaultShards
	}
	if c.FS.Dir == "" {
		c.FS.Dir = defaultDir
	}
	if c.FS.Mailbox <= 0 {
		c.FS.Mailbox = defaultMailbox
	}
	return nil
}

// New 根据配置创建后端实例
func New(conf *confengine.Config) (Store, error) {
	var config Config
	if err := conf.UnpackSection("storage", &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Backend {
	case BackendFS:
		return NewFSStore(config.FS)
	default:
		return NewMemStore(config.Memory), nil
	}
}
