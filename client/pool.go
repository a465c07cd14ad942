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

package client

import (
	"context"
	"time"

	"github.com/jackc/puddle/v2"
)

type Config struct {
	// Address 服务端地址
	Address string

	// DialTimeout 建链超时 默认 5s
	DialTimeout time.Duration

	// MaxConns 链接池容量 默认 4
	MaxConns int32
}

// Client 带链接池的客户端
//
// 协议的应答没有请求标识 单条链接上必须一问一答
// 并发吞吐依靠多条链接 池负责建链和复用
type Client struct {
	pool *puddle.Pool[*Conn]
}

// New 创建并返回 Client 实例
func New(config Config) (*Client, error) {
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.MaxConns <= 0 {
		config.MaxConns = 4
	}

	pool, err := puddle.NewPool(&puddle.Config[*Conn]{
		Constructor: func(ctx context.Context) (*Conn, error) {
			ctx, cancel := context.WithTimeout(ctx, config.DialTimeout)
			defer cancel()
			return Dial(ctx, config.Address)
		},
		Destructor: func(c *Conn) {
			_ = c.Close()
		},
		MaxSize: config.MaxConns,
	})
	if err != nil {
		return nil, err
	}
	return &Client{pool: pool}, nil
}

// Store 存储键值
func (c *Client) Store(ctx context.Context, key, value string) error {
	res, err := c.pool.Acquire(ctx)
	if err != nil {
		return err
	}

	if err := res.Value().Store(key, value); err != nil {
		// 协议层出错时链接状态不可再信任 只能丢弃
		res.Destroy()
		return err
	}
	res.Release()
	return nil
}

// Load 读取键的当前值
func (c *Client) Load(ctx context.Context, key string) (string, bool, error) {
	res, err := c.pool.Acquire(ctx)
	if err != nil {
		return "", false, err
	}

	value, found, err := res.Value().Load(key)
	if err != nil {
		res.Destroy()
		return "", false, err
	}
	res.Release()
	return value, found, nil
}

// Close 关闭链接池 等待所有占用中的链接归还
func (c *Client) Close() {
	c.pool.Close()
}
